package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"paycanvas.org/internal/audit"
	"paycanvas.org/internal/features"
)

type toggleResponse struct {
	Key              string `json:"key"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	IsEnabled        bool   `json:"isEnabled"`
	EnabledCompanies int    `json:"enabledCompanies"`
}

type setToggleRequest struct {
	CompanyID string `json:"companyId"`
	IsEnabled *bool  `json:"isEnabled"`
}

func (a *API) listToggles(w http.ResponseWriter, r *http.Request) {
	toggles, err := a.features.List(r.Context(), r.URL.Query().Get("companyId"))
	if err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	out := make([]toggleResponse, 0, len(toggles))
	for _, t := range toggles {
		out = append(out, toToggleResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"features": out})
}

func (a *API) setToggle(w http.ResponseWriter, r *http.Request) {
	var req setToggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.IsEnabled == nil {
		writeError(w, r, http.StatusBadRequest, "isEnabled is required")
		return
	}
	key := chi.URLParam(r, "key")
	if err := a.features.Set(r.Context(), req.CompanyID, key, *req.IsEnabled); err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	_ = a.audit.Record(r.Context(), audit.FeatureToggled,
		zap.String("feature", key),
		zap.String("company_id", req.CompanyID),
		zap.Bool("enabled", *req.IsEnabled))
	writeJSON(w, http.StatusOK, map[string]any{
		"key":       key,
		"companyId": req.CompanyID,
		"isEnabled": *req.IsEnabled,
	})
}

func toToggleResponse(t features.Toggle) toggleResponse {
	return toggleResponse{
		Key:              t.Key,
		Name:             t.Name,
		Description:      t.Description,
		IsEnabled:        t.Enabled,
		EnabledCompanies: t.EnabledTenants,
	}
}
