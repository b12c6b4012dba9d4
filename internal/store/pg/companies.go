package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/provisioning"
)

type companyTable struct {
	db *sql.DB
}

const companyColumns = `id, name, status, postal_code, address, phone,
	contact_name, contact_kana, contact_email, created_at, updated_at`

func scanCompany(row rowScanner) (provisioning.Company, error) {
	var c provisioning.Company
	err := row.Scan(&c.ID, &c.Name, &c.Status, &c.PostalCode, &c.Address, &c.Phone,
		&c.ContactName, &c.ContactKana, &c.ContactEmail, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (t companyTable) ListCompanies(ctx context.Context) ([]provisioning.Company, error) {
	if t.db == nil {
		return nil, errNoDB
	}
	rows, err := t.db.QueryContext(ctx, `select `+companyColumns+` from companies order by name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []provisioning.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (t companyTable) FindCompany(ctx context.Context, id string) (provisioning.Company, error) {
	if t.db == nil {
		return provisioning.Company{}, errNoDB
	}
	c, err := scanCompany(t.db.QueryRowContext(ctx, `select `+companyColumns+` from companies where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return provisioning.Company{}, auth.ErrNotFound
	}
	return c, err
}

func (t companyTable) InsertCompany(ctx context.Context, c provisioning.Company) (provisioning.Company, error) {
	if t.db == nil {
		return provisioning.Company{}, errNoDB
	}
	created, err := scanCompany(t.db.QueryRowContext(ctx, `
		insert into companies (id, name, status, postal_code, address, phone,
		                       contact_name, contact_kana, contact_email, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning `+companyColumns,
		c.ID, c.Name, c.Status, c.PostalCode, c.Address, c.Phone,
		c.ContactName, c.ContactKana, c.ContactEmail, c.CreatedAt, c.UpdatedAt))
	if err != nil {
		return provisioning.Company{}, mapWriteError(err)
	}
	return created, nil
}

func (t companyTable) UpdateCompany(ctx context.Context, c provisioning.Company) (provisioning.Company, error) {
	if t.db == nil {
		return provisioning.Company{}, errNoDB
	}
	updated, err := scanCompany(t.db.QueryRowContext(ctx, `
		update companies
		set name = $2, postal_code = $3, address = $4, phone = $5,
		    contact_name = $6, contact_kana = $7, contact_email = $8, updated_at = $9
		where id = $1
		returning `+companyColumns,
		c.ID, c.Name, c.PostalCode, c.Address, c.Phone,
		c.ContactName, c.ContactKana, c.ContactEmail, c.UpdatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return provisioning.Company{}, auth.ErrNotFound
	}
	if err != nil {
		return provisioning.Company{}, mapWriteError(err)
	}
	return updated, nil
}

// InsertUser adds the account and its roles. Roles keep their slice order
// through strictly increasing assigned_at values.
func (t companyTable) InsertUser(ctx context.Context, u auth.User) error {
	if t.db == nil {
		return errNoDB
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var companyID any
	if u.TenantID != "" {
		companyID = u.TenantID
	}
	if _, err := tx.ExecContext(ctx, `
		insert into users (id, company_id, email, password_hash, display_name, status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, companyID, auth.NormalizeEmail(u.Email), u.PasswordHash, u.DisplayName, u.Status, u.CreatedAt, u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.ConstraintName == "users_email_key" {
			return fmt.Errorf("%w: email already registered", auth.ErrConflict)
		}
		return mapWriteError(err)
	}
	for i, role := range u.Roles {
		if _, err := tx.ExecContext(ctx, `
			insert into user_roles (user_id, role_key, assigned_at)
			values ($1, $2, $3)
		`, u.ID, string(role), u.CreatedAt.Add(time.Duration(i)*time.Microsecond)); err != nil {
			return mapWriteError(err)
		}
	}
	return tx.Commit()
}
