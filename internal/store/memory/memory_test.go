package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/masters"
)

func seeded() *Store {
	s := New()
	s.AddCompany(auth.Company{ID: "c1", Name: "Acme"})
	s.AddUser(auth.User{ID: "u1", TenantID: "c1", Email: " Staff@Acme.Test ", Status: auth.UserStatusActive, Roles: []auth.Role{auth.RoleStaff}})
	s.AddUser(auth.User{ID: "u2", TenantID: "c1", Email: "other@acme.test", Status: auth.UserStatusActive})
	return s
}

func TestFindByEmailNormalises(t *testing.T) {
	s := seeded()
	u, err := s.Users(context.Background()).FindByEmail(context.Background(), "STAFF@acme.test")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Acme", u.TenantName)

	_, err = s.Users(context.Background()).FindByEmail(context.Background(), "nobody@acme.test")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestReplaceKeepsSingleSession(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	sessions := s.Sessions(ctx)

	require.NoError(t, sessions.Replace(ctx, &auth.Session{ID: "s1", UserID: "u1", TokenHash: "h1"}))
	require.NoError(t, sessions.Replace(ctx, &auth.Session{ID: "s2", UserID: "u1", TokenHash: "h2"}))
	require.NoError(t, sessions.Replace(ctx, &auth.Session{ID: "s3", UserID: "u2", TokenHash: "h3"}))

	assert.Equal(t, 1, s.SessionCount("u1"))
	_, err := sessions.FindByTokenHash(ctx, "h1")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = sessions.FindByTokenHash(ctx, "h2")
	assert.NoError(t, err)
}

func TestRotateOnlyOnce(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	sessions := s.Sessions(ctx)
	require.NoError(t, sessions.Replace(ctx, &auth.Session{ID: "s1", UserID: "u1", TokenHash: "h1"}))

	require.NoError(t, sessions.Rotate(ctx, "s1", &auth.Session{ID: "s2", UserID: "u1", TokenHash: "h2"}))
	err := sessions.Rotate(ctx, "s1", &auth.Session{ID: "s3", UserID: "u1", TokenHash: "h3"})
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	assert.Equal(t, 1, s.SessionCount("u1"))
}

func TestDeleteExpired(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions := s.Sessions(ctx)
	require.NoError(t, sessions.Replace(ctx, &auth.Session{ID: "s1", UserID: "u1", TokenHash: "h1", ExpiresAt: now}))
	require.NoError(t, sessions.Replace(ctx, &auth.Session{ID: "s2", UserID: "u2", TokenHash: "h2", ExpiresAt: now.Add(time.Second)}))

	n, err := sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, s.SessionCount("u1"))
	assert.Equal(t, 1, s.SessionCount("u2"))
}

func TestTogglesAndEnabledKeys(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	s.AddFeature(auth.Feature{Key: "payroll", Name: "Payroll"})
	s.AddFeature(auth.Feature{Key: "payslips", Name: "Payslips"})

	require.NoError(t, s.SetEnabled(ctx, "c1", "payroll", true))
	assert.ErrorIs(t, s.SetEnabled(ctx, "c1", "unknown", true), auth.ErrNotFound)
	assert.ErrorIs(t, s.SetEnabled(ctx, "c404", "payroll", true), auth.ErrNotFound)

	keys, err := s.EnabledKeys(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"payroll"}, keys)

	all, err := s.AllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"payroll", "payslips"}, all)

	toggles, err := s.ListToggles(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, toggles, 2)
	assert.True(t, toggles[0].Enabled)
	assert.Equal(t, 1, toggles[0].EnabledTenants)
	assert.False(t, toggles[1].Enabled)
}

func TestStoreTable(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	table := s.Stores()

	_, err := table.Insert(ctx, masters.Store{ID: "st1", CompanyID: "c1", Name: "Main"})
	require.NoError(t, err)
	_, err = table.Insert(ctx, masters.Store{ID: "st2", CompanyID: "c1", Name: "main"})
	assert.ErrorIs(t, err, auth.ErrConflict)
	_, err = table.Insert(ctx, masters.Store{ID: "st3", CompanyID: "c404", Name: "x"})
	assert.ErrorIs(t, err, auth.ErrNotFound)

	updated, err := table.Update(ctx, masters.Store{ID: "st1", CompanyID: "c9", Name: "Main street"})
	require.NoError(t, err)
	assert.Equal(t, "c1", updated.CompanyID)

	require.NoError(t, table.Delete(ctx, "st1"))
	_, err = table.Find(ctx, "st1")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSeedDemo(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.SeedDemo(ctx))

	admin, err := s.Users(ctx).FindByEmail(ctx, "admin@acme.test")
	require.NoError(t, err)
	assert.Empty(t, admin.TenantID)
	assert.True(t, auth.VerifyPassword(DemoPassword, admin.PasswordHash))

	all, err := s.AllKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	acme, err := s.Stores().ListByTenant(ctx, "01J0ACME000000000000000000")
	require.NoError(t, err)
	require.Len(t, acme, 1)
	assert.Equal(t, "Shibuya", acme[0].Name)
}
