package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findToggle(t *testing.T, body map[string]any, key string) map[string]any {
	t.Helper()
	for _, raw := range body["features"].([]any) {
		f := raw.(map[string]any)
		if f["key"] == key {
			return f
		}
	}
	t.Fatalf("feature %q not listed", key)
	return nil
}

func TestFeatureTogglesRequireSuperAdmin(t *testing.T) {
	s := newTestServer(t)

	anon, _ := s.do(http.MethodGet, "/api/feature-toggles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, anon.StatusCode)

	owner, _ := s.do(http.MethodGet, "/api/feature-toggles", s.token("owner@acme.test"), nil)
	assert.Equal(t, http.StatusForbidden, owner.StatusCode)
}

func TestListToggles(t *testing.T) {
	s := newTestServer(t)
	token := s.token("admin@acme.test")

	resp, body := s.do(http.MethodGet, "/api/feature-toggles?companyId="+acme, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["features"], 4)

	sm := findToggle(t, body, "store_masters")
	assert.Equal(t, true, sm["isEnabled"])
	assert.EqualValues(t, 2, sm["enabledCompanies"])

	payslips := findToggle(t, body, "payslips")
	assert.Equal(t, false, payslips["isEnabled"])
	assert.EqualValues(t, 0, payslips["enabledCompanies"])
}

func TestSetToggleChangesEntitlementsOnNextLogin(t *testing.T) {
	s := newTestServer(t)
	token := s.token("admin@acme.test")

	resp, _ := s.do(http.MethodPatch, "/api/feature-toggles/payslips", token, map[string]any{
		"companyId": acme,
		"isEnabled": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	user := s.login("owner@acme.test")["user"].(map[string]any)
	assert.Contains(t, user["enabledFeatures"], "payslips")
}

func TestSetToggleValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.token("admin@acme.test")

	missing, _ := s.do(http.MethodPatch, "/api/feature-toggles/payslips", token, map[string]any{"companyId": acme})
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)

	noCompany, _ := s.do(http.MethodPatch, "/api/feature-toggles/payslips", token, map[string]any{"isEnabled": true})
	assert.Equal(t, http.StatusBadRequest, noCompany.StatusCode)

	unknown, _ := s.do(http.MethodPatch, "/api/feature-toggles/teleport", token, map[string]any{
		"companyId": acme,
		"isEnabled": true,
	})
	assert.Equal(t, http.StatusNotFound, unknown.StatusCode)
}
