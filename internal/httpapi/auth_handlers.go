package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"paycanvas.org/internal/audit"
	"paycanvas.org/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userSummary struct {
	UserID          string   `json:"userId"`
	CompanyID       string   `json:"companyId,omitempty"`
	CompanyName     string   `json:"companyName,omitempty"`
	Role            string   `json:"role"`
	EnabledFeatures []string `json:"enabledFeatures"`
	Name            string   `json:"name,omitempty"`
}

type tokenResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	User         userSummary `json:"user"`
}

func newTokenResponse(b *auth.Bundle) tokenResponse {
	return tokenResponse{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		ExpiresAt:    b.ExpiresAt.UTC(),
		User:         toUserSummary(b.User),
	}
}

func toUserSummary(s auth.Summary) userSummary {
	features := s.Features
	if features == nil {
		features = []string{}
	}
	return userSummary{
		UserID:          s.UserID,
		CompanyID:       s.CompanyID,
		CompanyName:     s.CompanyName,
		Role:            string(s.Role),
		EnabledFeatures: features,
		Name:            s.DisplayName,
	}
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	bundle, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		_ = a.audit.Record(r.Context(), audit.LoginFailed,
			zap.String("email", auth.NormalizeEmail(req.Email)),
			zap.String("remote_ip", clientIP(r)))
		writeAuthError(w, r, a.logger, err)
		return
	}
	_ = a.audit.Record(r.Context(), audit.LoginSucceeded,
		zap.String("subject", bundle.User.UserID),
		zap.String("remote_ip", clientIP(r)))
	writeJSON(w, http.StatusOK, newTokenResponse(bundle))
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	bundle, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		_ = a.audit.Record(r.Context(), audit.RefreshRejected, zap.String("remote_ip", clientIP(r)))
		writeAuthError(w, r, a.logger, err)
		return
	}
	_ = a.audit.Record(r.Context(), audit.TokenRefreshed, zap.String("subject", bundle.User.UserID))
	writeJSON(w, http.StatusOK, newTokenResponse(bundle))
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	_ = a.audit.Record(r.Context(), audit.LoggedOut)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeAuthError(w, r, a.logger, auth.ErrUnauthenticated)
		return
	}
	summary, err := a.auth.Profile(r.Context(), p)
	if err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserSummary(summary))
}
