package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"paycanvas.org/internal/audit"
	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/masters"
)

type storeRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type storeResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toStoreResponse(s masters.Store) storeResponse {
	return storeResponse{
		ID:        s.ID,
		CompanyID: s.CompanyID,
		Name:      s.Name,
		Address:   s.Address,
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
}

// principal is set by Require on every store route.
func (a *API) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeAuthError(w, r, a.logger, auth.ErrUnauthenticated)
	}
	return p, ok
}

func (a *API) listStores(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	stores, err := a.stores.List(r.Context(), p)
	if err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	out := make([]storeResponse, 0, len(stores))
	for _, s := range stores {
		out = append(out, toStoreResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": out})
}

func (a *API) getStore(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	s, err := a.stores.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toStoreResponse(s))
}

func (a *API) createStore(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s, err := a.stores.Create(r.Context(), p, masters.Input{Name: req.Name, Address: req.Address})
	if err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	_ = a.audit.Record(r.Context(), audit.StoreCreated, zap.String("store_id", s.ID))
	w.Header().Set("Location", "/api/masters/stores/"+s.ID)
	writeJSON(w, http.StatusCreated, toStoreResponse(s))
}

func (a *API) updateStore(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s, err := a.stores.Update(r.Context(), p, chi.URLParam(r, "id"), masters.Input{Name: req.Name, Address: req.Address})
	if err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	_ = a.audit.Record(r.Context(), audit.StoreUpdated, zap.String("store_id", s.ID))
	writeJSON(w, http.StatusOK, toStoreResponse(s))
}

func (a *API) deleteStore(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.stores.Delete(r.Context(), p, id); err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	_ = a.audit.Record(r.Context(), audit.StoreDeleted, zap.String("store_id", id))
	w.WriteHeader(http.StatusNoContent)
}
