package pg

import (
	"context"
	"database/sql"
	"errors"

	"paycanvas.org/internal/auth"
)

type userStore struct {
	db *sql.DB
}

const userColumns = `
	select u.id, coalesce(u.company_id, ''), coalesce(c.name, ''), u.email, u.password_hash,
	       u.display_name, u.status, u.created_at, u.updated_at
	from users u
	left join companies c on c.id = u.company_id
`

func (s userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	return s.one(ctx, userColumns+` where u.id = $1`, id)
}

func (s userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.one(ctx, userColumns+` where u.email = $1`, auth.NormalizeEmail(email))
}

func (s userStore) one(ctx context.Context, query string, arg string) (*auth.User, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	var u auth.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.TenantID, &u.TenantName, &u.Email, &u.PasswordHash,
		&u.DisplayName, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	roles, err := s.roles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

// roles returns assignments in the order they were made.
func (s userStore) roles(ctx context.Context, userID string) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select role_key from user_roles
		where user_id = $1
		order by assigned_at, role_key
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		roles = append(roles, auth.Role(r))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}
