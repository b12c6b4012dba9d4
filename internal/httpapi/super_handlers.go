package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"paycanvas.org/internal/audit"
	"paycanvas.org/internal/provisioning"
)

type companyRequest struct {
	Name         string `json:"name"`
	PostalCode   string `json:"postalCode"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	ContactName  string `json:"contactName"`
	ContactKana  string `json:"contactKana"`
	ContactEmail string `json:"contactEmail"`
}

func (r companyRequest) input() provisioning.CompanyInput {
	return provisioning.CompanyInput{
		Name:         r.Name,
		PostalCode:   r.PostalCode,
		Address:      r.Address,
		Phone:        r.Phone,
		ContactName:  r.ContactName,
		ContactKana:  r.ContactKana,
		ContactEmail: r.ContactEmail,
	}
}

type companyResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	PostalCode   string    `json:"postalCode"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	ContactName  string    `json:"contactName"`
	ContactKana  string    `json:"contactKana"`
	ContactEmail string    `json:"contactEmail"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toCompanyResponse(c provisioning.Company) companyResponse {
	return companyResponse{
		ID:           c.ID,
		Name:         c.Name,
		Status:       c.Status,
		PostalCode:   c.PostalCode,
		Address:      c.Address,
		Phone:        c.Phone,
		ContactName:  c.ContactName,
		ContactKana:  c.ContactKana,
		ContactEmail: c.ContactEmail,
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}
}

type adminRequest struct {
	CompanyID   string `json:"companyId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type adminResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`
}

func (a *API) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := a.provisioning.ListCompanies(r.Context())
	if err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	out := make([]companyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, toCompanyResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": out})
}

func (a *API) createCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.provisioning.CreateCompany(r.Context(), req.input())
	if err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	_ = a.audit.Record(r.Context(), audit.CompanyCreated, zap.String("company_id", c.ID))
	w.Header().Set("Location", "/api/super/companies/"+c.ID)
	writeJSON(w, http.StatusCreated, toCompanyResponse(c))
}

func (a *API) updateCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.provisioning.UpdateCompany(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	_ = a.audit.Record(r.Context(), audit.CompanyUpdated, zap.String("company_id", c.ID))
	writeJSON(w, http.StatusOK, toCompanyResponse(c))
}

func (a *API) createCompanyAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	admin, err := a.provisioning.CreateCompanyAdmin(r.Context(), provisioning.AdminInput{
		CompanyID:   req.CompanyID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		writeAuthError(w, r, a.logger, err)
		return
	}
	_ = a.audit.Record(r.Context(), audit.AdminProvisioned,
		zap.String("new_user_id", admin.ID),
		zap.String("company_id", admin.CompanyID))
	writeJSON(w, http.StatusCreated, adminResponse{
		ID:          admin.ID,
		Email:       admin.Email,
		DisplayName: admin.DisplayName,
		CompanyID:   admin.CompanyID,
		CompanyName: admin.CompanyName,
	})
}
