package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func companyBody(name string) map[string]string {
	return map[string]string{
		"name":         name,
		"postalCode":   "100-0001",
		"address":      "Chiyoda 1-1",
		"phone":        "03-0000-0000",
		"contactName":  "Tanaka",
		"contactKana":  "タナカ",
		"contactEmail": "tanaka@initech.test",
	}
}

func TestSuperAdminCreatesCompanyAndAdmin(t *testing.T) {
	s := newTestServer(t)
	token := s.token("admin@acme.test")

	resp, company := s.do(http.MethodPost, "/api/super/companies", token, companyBody("Initech"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, company)
	companyID := company["id"].(string)
	assert.Equal(t, "/api/super/companies/"+companyID, resp.Header.Get("Location"))
	assert.Equal(t, "active", company["status"])
	assert.Equal(t, "タナカ", company["contactKana"])

	resp, admin := s.do(http.MethodPost, "/api/super/users", token, map[string]string{
		"companyId":   companyID,
		"email":       "Boss@Initech.test",
		"displayName": "Initech boss",
		"password":    "initech-pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, admin)
	assert.Equal(t, "boss@initech.test", admin["email"])
	assert.Equal(t, "Initech", admin["companyName"])
	assert.NotContains(t, admin, "password")
	assert.NotContains(t, admin, "passwordHash")

	resp, login := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "boss@initech.test",
		"password": "initech-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, login)
	user := login["user"].(map[string]any)
	assert.Equal(t, "COMPANY_ADMIN", user["role"])
	assert.Equal(t, companyID, user["companyId"])
	assert.Equal(t, "Initech", user["companyName"])
	assert.Empty(t, user["enabledFeatures"])

	resp, list := s.do(http.MethodGet, "/api/super/companies", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list["companies"], 3)
}

func TestSuperAdminUpdatesCompany(t *testing.T) {
	s := newTestServer(t)
	token := s.token("admin@acme.test")

	body := companyBody("Acme Holdings")
	resp, out := s.do(http.MethodPut, "/api/super/companies/"+acme, token, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Equal(t, "Acme Holdings", out["name"])
	assert.Equal(t, acme, out["id"])

	login := s.login("owner@acme.test")
	assert.Equal(t, "Acme Holdings", login["user"].(map[string]any)["companyName"])

	resp, _ = s.do(http.MethodPut, "/api/super/companies/01J0NOPE000000000000000000", token, body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body["contactEmail"] = "nope"
	resp, _ = s.do(http.MethodPut, "/api/super/companies/"+acme, token, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateCompanyAdminRejections(t *testing.T) {
	s := newTestServer(t)
	token := s.token("admin@acme.test")
	req := func(companyID, email, password string) int {
		resp, _ := s.do(http.MethodPost, "/api/super/users", token, map[string]string{
			"companyId":   companyID,
			"email":       email,
			"displayName": "Someone",
			"password":    password,
		})
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusConflict, req(acme, "OWNER@acme.test", "longenough"))
	assert.Equal(t, http.StatusNotFound, req("01J0NOPE000000000000000000", "fresh@acme.test", "longenough"))
	assert.Equal(t, http.StatusBadRequest, req(acme, "fresh@acme.test", "short"))
	assert.Equal(t, http.StatusBadRequest, req(acme, "not-an-email", "longenough"))
	assert.Equal(t, http.StatusBadRequest, req("", "fresh@acme.test", "longenough"))

	resp, _ := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "fresh@acme.test", "password": "longenough",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSuperRoutesRequireSuperAdmin(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(http.MethodGet, "/api/super/companies", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	for _, email := range []string{"owner@acme.test", "staff@acme.test"} {
		token := s.token(email)
		resp, body := s.do(http.MethodGet, "/api/super/companies", token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, email)
		assert.NotContains(t, body, "companies")

		resp, _ = s.do(http.MethodPost, "/api/super/users", token, map[string]string{
			"companyId": acme, "email": "sneaky@acme.test", "displayName": "x", "password": "longenough",
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, email)
	}
}
