package pg

import (
	"context"
	"database/sql"
	"errors"

	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/masters"
)

type storeTable struct {
	db *sql.DB
}

const storeColumns = `id, company_id, name, address, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(row rowScanner) (masters.Store, error) {
	var st masters.Store
	err := row.Scan(&st.ID, &st.CompanyID, &st.Name, &st.Address, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

func (t storeTable) ListByTenant(ctx context.Context, tenantID string) ([]masters.Store, error) {
	if t.db == nil {
		return nil, errNoDB
	}
	rows, err := t.db.QueryContext(ctx, `
		select `+storeColumns+`
		from stores
		where company_id = $1
		order by name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []masters.Store{}
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (t storeTable) Find(ctx context.Context, id string) (masters.Store, error) {
	if t.db == nil {
		return masters.Store{}, errNoDB
	}
	st, err := scanStore(t.db.QueryRowContext(ctx, `select `+storeColumns+` from stores where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return masters.Store{}, auth.ErrNotFound
	}
	return st, err
}

func (t storeTable) Insert(ctx context.Context, st masters.Store) (masters.Store, error) {
	if t.db == nil {
		return masters.Store{}, errNoDB
	}
	created, err := scanStore(t.db.QueryRowContext(ctx, `
		insert into stores (id, company_id, name, address, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
		returning `+storeColumns,
		st.ID, st.CompanyID, st.Name, st.Address, st.CreatedAt, st.UpdatedAt))
	if err != nil {
		return masters.Store{}, mapWriteError(err)
	}
	return created, nil
}

// Update never moves a store to another company.
func (t storeTable) Update(ctx context.Context, st masters.Store) (masters.Store, error) {
	if t.db == nil {
		return masters.Store{}, errNoDB
	}
	updated, err := scanStore(t.db.QueryRowContext(ctx, `
		update stores
		set name = $2, address = $3, updated_at = $4
		where id = $1
		returning `+storeColumns,
		st.ID, st.Name, st.Address, st.UpdatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return masters.Store{}, auth.ErrNotFound
	}
	if err != nil {
		return masters.Store{}, mapWriteError(err)
	}
	return updated, nil
}

func (t storeTable) Delete(ctx context.Context, id string) error {
	if t.db == nil {
		return errNoDB
	}
	res, err := t.db.ExecContext(ctx, `delete from stores where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
