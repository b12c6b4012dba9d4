package auth

import (
	"context"
	"fmt"
)

// FeatureResolver maps a role and tenant to the entitlements embedded in tokens.
type FeatureResolver struct {
	store FeatureStore
}

func NewFeatureResolver(store FeatureStore) *FeatureResolver {
	return &FeatureResolver{store: store}
}

// Resolve returns every feature key for super-admins and the tenant's enabled keys
// otherwise. A principal without a tenant gets none.
func (r *FeatureResolver) Resolve(ctx context.Context, role Role, tenantID string) ([]string, error) {
	if role == RoleSuperAdmin {
		keys, err := r.store.AllKeys(ctx)
		if err != nil {
			return nil, fmt.Errorf("list features: %w", err)
		}
		return normalizeKeys(keys), nil
	}
	if tenantID == "" {
		return []string{}, nil
	}
	keys, err := r.store.EnabledKeys(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list tenant features: %w", err)
	}
	return normalizeKeys(keys), nil
}
