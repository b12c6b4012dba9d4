package pg

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/provisioning"
)

var companyCols = []string{"id", "name", "status", "postal_code", "address", "phone",
	"contact_name", "contact_kana", "contact_email", "created_at", "updated_at"}

func TestCompanyTableListAndFind(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(`from companies order by name, id`).
		WillReturnRows(sqlmock.NewRows(companyCols).
			AddRow("c1", "Acme", "active", "150-0002", "Shibuya", "03", "Aiko", "アイコ", "aiko@acme.test", ts, ts))
	companies, err := store.Provisioning().ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "aiko@acme.test", companies[0].ContactEmail)

	mock.ExpectQuery(`from companies where id = \$1`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	_, err = store.Provisioning().FindCompany(ctx, "ghost")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestCompanyTableInsertAndUpdate(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	c := provisioning.Company{ID: "c2", Name: "Initech", Status: "active", CreatedAt: ts, UpdatedAt: ts}

	mock.ExpectQuery(`insert into companies`).
		WithArgs("c2", "Initech", "active", "", "", "", "", "", "", ts, ts).
		WillReturnRows(sqlmock.NewRows(companyCols).AddRow("c2", "Initech", "active", "", "", "", "", "", "", ts, ts))
	created, err := store.Provisioning().InsertCompany(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "c2", created.ID)

	mock.ExpectQuery(`update companies`).WillReturnError(sql.ErrNoRows)
	_, err = store.Provisioning().UpdateCompany(ctx, provisioning.Company{ID: "ghost"})
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestInsertUserWritesRolesInTransaction(t *testing.T) {
	store, mock := newMock(t)
	u := auth.User{ID: "u9", TenantID: "c1", Email: "New@Acme.test", PasswordHash: "hash", DisplayName: "New",
		Status: auth.UserStatusActive, Roles: []auth.Role{auth.RoleCompanyAdmin}, CreatedAt: ts, UpdatedAt: ts}

	mock.ExpectBegin()
	mock.ExpectExec(`insert into users`).
		WithArgs("u9", "c1", "new@acme.test", "hash", "New", "active", ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`insert into user_roles`).
		WithArgs("u9", "COMPANY_ADMIN", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Provisioning().InsertUser(context.Background(), u))
}

func TestInsertUserConstraintErrors(t *testing.T) {
	store, mock := newMock(t)
	u := auth.User{ID: "u9", TenantID: "c1", Email: "owner@acme.test", Roles: []auth.Role{auth.RoleCompanyAdmin}}

	mock.ExpectBegin()
	mock.ExpectExec(`insert into users`).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "users_email_key"})
	mock.ExpectRollback()
	err := store.Provisioning().InsertUser(context.Background(), u)
	assert.ErrorIs(t, err, auth.ErrConflict)
	assert.ErrorContains(t, err, "email already registered")

	mock.ExpectBegin()
	mock.ExpectExec(`insert into users`).
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "users_company_id_fkey"})
	mock.ExpectRollback()
	err = store.Provisioning().InsertUser(context.Background(), u)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}
