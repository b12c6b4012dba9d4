package pg

import (
	"context"
	"database/sql"

	"paycanvas.org/internal/features"
)

type featureStore struct {
	db *sql.DB
}

func (s featureStore) AllKeys(ctx context.Context) ([]string, error) {
	return queryKeys(ctx, s.db, `select key from features order by key`)
}

func (s featureStore) EnabledKeys(ctx context.Context, tenantID string) ([]string, error) {
	return queryKeys(ctx, s.db, `
		select feature_key from company_features
		where company_id = $1 and enabled
		order by feature_key
	`, tenantID)
}

func queryKeys(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	if db == nil {
		return nil, errNoDB
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Feature toggles -----------------------------------------------------------

func (s *Store) ListToggles(ctx context.Context, tenantID string) ([]features.Toggle, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select f.key, f.name, f.description,
		       coalesce(bool_or(cf.company_id = $1 and cf.enabled), false),
		       count(cf.company_id) filter (where cf.enabled)
		from features f
		left join company_features cf on cf.feature_key = f.key
		group by f.key, f.name, f.description
		order by f.key
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var toggles []features.Toggle
	for rows.Next() {
		var t features.Toggle
		if err := rows.Scan(&t.Key, &t.Name, &t.Description, &t.Enabled, &t.EnabledTenants); err != nil {
			return nil, err
		}
		toggles = append(toggles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return toggles, nil
}

func (s *Store) SetEnabled(ctx context.Context, tenantID, key string, enabled bool) error {
	if s.db == nil {
		return errNoDB
	}
	_, err := s.db.ExecContext(ctx, `
		insert into company_features (company_id, feature_key, enabled, updated_at)
		values ($1, $2, $3, now())
		on conflict (company_id, feature_key) do update
		set enabled = excluded.enabled, updated_at = now()
	`, tenantID, key, enabled)
	return mapWriteError(err)
}
