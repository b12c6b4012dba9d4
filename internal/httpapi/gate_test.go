package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycanvas.org/internal/auth"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer   abc  ", "abc", false},
		{"", "", true},
		{"Bearer ", "", true},
		{"Basic dXNlcjpwdw==", "", true},
		{"Token abc", "", true},
	}
	for _, tt := range tests {
		got, err := extractBearerToken(tt.header)
		if tt.err {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got)
	}
}

func recordPrincipal(seen *auth.Principal, ok *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, *ok = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestGateAttachesPrincipal(t *testing.T) {
	codec, err := auth.NewCodec("gate-secret")
	require.NoError(t, err)
	token, _, err := codec.Issue(auth.Claims{
		TenantID:         "c1",
		Role:             auth.RoleCompanyAdmin,
		Entitlements:     []string{"payroll"},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}, time.Minute)
	require.NoError(t, err)

	var (
		seen auth.Principal
		ok   bool
	)
	h := Gate(codec, nil)(recordPrincipal(&seen, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, ok)
	assert.Equal(t, "u1", seen.UserID)
	assert.Equal(t, "c1", seen.TenantID)
	assert.Equal(t, auth.RoleCompanyAdmin, seen.Role)
	assert.Equal(t, []string{"payroll"}, seen.Entitlements)
}

func TestGateFallsThroughAnonymously(t *testing.T) {
	codec, err := auth.NewCodec("gate-secret")
	require.NoError(t, err)
	other, err := auth.NewCodec("someone-else")
	require.NoError(t, err)
	forged, _, err := other.Issue(auth.Claims{Role: auth.RoleSuperAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}, time.Minute)
	require.NoError(t, err)

	for _, header := range []string{"", "Bearer garbage", "Bearer " + forged, "Basic abc"} {
		var (
			seen auth.Principal
			ok   bool
		)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		Gate(codec, nil)(recordPrincipal(&seen, &ok)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, header)
		assert.False(t, ok, header)
	}
}

func TestGateDropsUpstreamPrincipal(t *testing.T) {
	codec, err := auth.NewCodec("gate-secret")
	require.NoError(t, err)

	var (
		seen auth.Principal
		ok   bool
	)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.Principal{UserID: "stale", Role: auth.RoleSuperAdmin}))
	Gate(codec, nil)(recordPrincipal(&seen, &ok)).ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, ok)
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Require(auth.All(auth.AnyRole(auth.RoleCompanyAdmin), auth.Entitled("payroll")))(ok)

	serve := func(p *auth.Principal) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if p != nil {
			req = req.WithContext(auth.ContextWithPrincipal(req.Context(), *p))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&auth.Principal{UserID: "u", Role: auth.RoleStaff, Entitlements: []string{"payroll"}}))
	assert.Equal(t, http.StatusForbidden, serve(&auth.Principal{UserID: "u", Role: auth.RoleCompanyAdmin}))
	assert.Equal(t, http.StatusOK, serve(&auth.Principal{UserID: "u", Role: auth.RoleCompanyAdmin, Entitlements: []string{"payroll"}}))
}
