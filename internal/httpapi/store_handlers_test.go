package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycanvas.org/internal/auth"
)

func (s *testServer) createStore(token, name string) map[string]any {
	s.t.Helper()
	resp, body := s.do(http.MethodPost, "/api/masters/stores", token, map[string]string{
		"name":    name,
		"address": "1 Main St",
	})
	require.Equal(s.t, http.StatusCreated, resp.StatusCode, body)
	return body
}

func TestStoreCRUD(t *testing.T) {
	s := newTestServer(t)
	token := s.token("owner@acme.test")

	created := s.createStore(token, "Downtown")
	id := created["id"].(string)
	assert.Equal(t, acme, created["companyId"])

	resp, body := s.do(http.MethodGet, "/api/masters/stores", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["stores"], 1)

	resp, body = s.do(http.MethodPut, "/api/masters/stores/"+id, token, map[string]string{"name": "Uptown"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Uptown", body["name"])
	assert.Equal(t, acme, body["companyId"])

	resp, _ = s.do(http.MethodDelete, "/api/masters/stores/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/masters/stores/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStoreCreateRejectsClientCompany(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(http.MethodPost, "/api/masters/stores", s.token("owner@acme.test"), map[string]string{
		"name":      "Sneaky",
		"companyId": globex,
	})
	// unknown fields are rejected outright
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStoreValidationAndConflict(t *testing.T) {
	s := newTestServer(t)
	token := s.token("owner@acme.test")

	resp, _ := s.do(http.MethodPost, "/api/masters/stores", token, map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	s.createStore(token, "Harbor")
	resp, _ = s.do(http.MethodPost, "/api/masters/stores", token, map[string]string{"name": "harbor"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStoreCrossTenantAccessIsForbidden(t *testing.T) {
	s := newTestServer(t)
	globexStore := s.createStore(s.token("owner@globex.test"), "Globex HQ")
	id := globexStore["id"].(string)

	acmeOwner := s.token("owner@acme.test")
	for _, tc := range []struct {
		method string
		body   any
	}{
		{http.MethodGet, nil},
		{http.MethodPut, map[string]string{"name": "Hijacked"}},
		{http.MethodDelete, nil},
	} {
		resp, body := s.do(tc.method, "/api/masters/stores/"+id, acmeOwner, tc.body)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, tc.method)
		assert.NotContains(t, body, "name", tc.method)
		assert.NotContains(t, body, "address", tc.method)
	}

	resp, body := s.do(http.MethodGet, "/api/masters/stores", acmeOwner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["stores"])

	resp, body = s.do(http.MethodGet, "/api/masters/stores/"+id, s.token("owner@globex.test"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Globex HQ", body["name"])
}

func TestStoreStaffOfOtherTenantGetsForbiddenWithoutBody(t *testing.T) {
	s := newTestServer(t)
	id := s.createStore(s.token("owner@globex.test"), "Globex HQ")["id"].(string)

	resp, body := s.do(http.MethodGet, "/api/masters/stores/"+id, s.token("staff@acme.test"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": "forbidden", "request_id": body["request_id"]}, body)
}

func TestStoreRoutesRequireEntitlement(t *testing.T) {
	s := newTestServer(t)
	s.store.AddCompany(auth.Company{ID: "initech", Name: "Initech"})
	s.store.AddUser(auth.User{ID: "u-ini", TenantID: "initech", Email: "owner@initech.test", PasswordHash: pwHash,
		Status: auth.UserStatusActive, Roles: []auth.Role{auth.RoleCompanyAdmin}})

	resp, _ := s.do(http.MethodGet, "/api/masters/stores", s.token("owner@initech.test"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	anon, _ := s.do(http.MethodGet, "/api/masters/stores", "", nil)
	assert.Equal(t, http.StatusUnauthorized, anon.StatusCode)
}

func TestSuperAdminHasNoTenantForStores(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(http.MethodGet, "/api/masters/stores", s.token("admin@acme.test"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
