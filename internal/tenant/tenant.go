// Package tenant confines data access to the caller's company.
//
// Every tenant-scoped operation receives the Principal explicitly. Lists are
// filtered by the principal's tenant; single-row operations load the row and
// verify ownership. A missing row is ErrNotFound, a row owned by another tenant
// is ErrForbidden.
package tenant

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/obs"
)

// Scope is the tenant a principal may act on.
type Scope string

// ScopeOf returns the principal's tenant. Principals without a tenant cannot
// touch tenant-scoped data.
func ScopeOf(p auth.Principal) (Scope, error) {
	if !p.HasTenant() {
		return "", fmt.Errorf("%w: principal has no tenant", auth.ErrForbidden)
	}
	return Scope(p.TenantID), nil
}

// Owned is a row that belongs to exactly one tenant.
type Owned[T any] interface {
	Key() string
	Tenant() string
	// WithTenant returns a copy owned by tenantID.
	WithTenant(tenantID string) T
}

// Require returns row when scope owns it and ErrForbidden otherwise.
func Require[T Owned[T]](scope Scope, row T) (T, error) {
	if scope == "" || row.Tenant() != string(scope) {
		var zero T
		return zero, auth.ErrForbidden
	}
	return row, nil
}

// Table is the persistence a Guard needs. Find returns auth.ErrNotFound for
// unknown ids regardless of tenant.
type Table[T Owned[T]] interface {
	ListByTenant(ctx context.Context, tenantID string) ([]T, error)
	Find(ctx context.Context, id string) (T, error)
	Insert(ctx context.Context, row T) (T, error)
	Update(ctx context.Context, row T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Guard applies tenant isolation in front of a Table.
type Guard[T Owned[T]] struct {
	table    Table[T]
	resource string
	logger   *zap.Logger
}

// NewGuard wraps table. resource names the rows in logs and metrics.
func NewGuard[T Owned[T]](table Table[T], resource string, logger *zap.Logger) *Guard[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard[T]{table: table, resource: resource, logger: logger}
}

// List returns the rows owned by the principal's tenant.
func (g *Guard[T]) List(ctx context.Context, p auth.Principal) ([]T, error) {
	scope, err := g.scope(p)
	if err != nil {
		return nil, err
	}
	rows, err := g.table.ListByTenant(ctx, string(scope))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", g.resource, err)
	}
	return rows, nil
}

// Get loads id and verifies ownership.
func (g *Guard[T]) Get(ctx context.Context, p auth.Principal, id string) (T, error) {
	var zero T
	scope, err := g.scope(p)
	if err != nil {
		return zero, err
	}
	return g.load(ctx, p, scope, id)
}

// Create stamps row with the principal's tenant, whatever tenant it carried.
func (g *Guard[T]) Create(ctx context.Context, p auth.Principal, row T) (T, error) {
	var zero T
	scope, err := g.scope(p)
	if err != nil {
		return zero, err
	}
	created, err := g.table.Insert(ctx, row.WithTenant(string(scope)))
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", g.resource, err)
	}
	return created, nil
}

// Update verifies the stored row is owned by the principal and writes row.
// The tenant of a row never changes.
func (g *Guard[T]) Update(ctx context.Context, p auth.Principal, row T) (T, error) {
	var zero T
	scope, err := g.scope(p)
	if err != nil {
		return zero, err
	}
	current, err := g.load(ctx, p, scope, row.Key())
	if err != nil {
		return zero, err
	}
	updated, err := g.table.Update(ctx, row.WithTenant(current.Tenant()))
	if err != nil {
		return zero, fmt.Errorf("update %s: %w", g.resource, err)
	}
	return updated, nil
}

// Delete verifies ownership of id and removes it.
func (g *Guard[T]) Delete(ctx context.Context, p auth.Principal, id string) error {
	scope, err := g.scope(p)
	if err != nil {
		return err
	}
	if _, err := g.load(ctx, p, scope, id); err != nil {
		return err
	}
	if err := g.table.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", g.resource, err)
	}
	return nil
}

func (g *Guard[T]) load(ctx context.Context, p auth.Principal, scope Scope, id string) (T, error) {
	var zero T
	row, err := g.table.Find(ctx, id)
	if err != nil {
		return zero, err
	}
	owned, err := Require(scope, row)
	if err != nil {
		g.deny(p, id, row.Tenant())
		return zero, err
	}
	return owned, nil
}

func (g *Guard[T]) scope(p auth.Principal) (Scope, error) {
	scope, err := ScopeOf(p)
	if err != nil {
		g.deny(p, "", "")
	}
	return scope, err
}

func (g *Guard[T]) deny(p auth.Principal, id, owner string) {
	obs.TenantDenied(g.resource)
	g.logger.Warn("cross-tenant access denied",
		zap.String("resource", g.resource),
		zap.String("id", id),
		zap.String("user_id", p.UserID),
		zap.String("tenant_id", p.TenantID),
		zap.String("owner_tenant_id", owner))
}
