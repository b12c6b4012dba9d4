package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicies(t *testing.T) {
	admin := Principal{UserID: "a", TenantID: "c1", Role: RoleCompanyAdmin, Entitlements: []string{"store_masters"}}
	staff := Principal{UserID: "s", TenantID: "c1", Role: RoleStaff, Entitlements: []string{"payslips"}}
	root := Principal{UserID: "r", Role: RoleSuperAdmin, Entitlements: []string{"payslips", "store_masters"}}

	stores := All(AnyRole(RoleCompanyAdmin), Entitled("store_masters"))
	assert.True(t, stores(admin))
	assert.False(t, stores(staff))
	assert.False(t, stores(root))

	assert.True(t, Entitled("store_masters")(root))
	assert.True(t, AnyRole(RoleStaff, RoleCompanyAdmin)(staff))
	assert.False(t, AnyRole()(staff))
	assert.True(t, Authenticated()(staff))
	assert.True(t, All()(staff))
}

func TestAuthorize(t *testing.T) {
	_, err := Authorize(context.Background(), Authenticated())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	p := Principal{UserID: "s", TenantID: "c1", Role: RoleStaff}
	ctx := ContextWithPrincipal(context.Background(), p)

	got, err := Authorize(ctx, AnyRole(RoleStaff))
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = Authorize(ctx, AnyRole(RoleSuperAdmin))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPrincipalContextIsCopied(t *testing.T) {
	p := Principal{UserID: "s", Entitlements: []string{"a"}}
	ctx := ContextWithPrincipal(context.Background(), p)
	p.UserID = "changed"

	got, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "s", got.UserID)

	got.Entitlements[0] = "tampered"
	again, _ := PrincipalFromContext(ctx)
	assert.Equal(t, []string{"a"}, again.Entitlements)

	_, ok = PrincipalFromContext(context.Background())
	assert.False(t, ok)
	_, ok = PrincipalFromContext(ContextWithoutPrincipal(ctx))
	assert.False(t, ok)
	_, ok = PrincipalFromContext(ContextWithPrincipal(context.Background(), Principal{Role: RoleStaff}))
	assert.False(t, ok, "principal without a user id")
}
