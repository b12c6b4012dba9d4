// Package features administers per-company feature toggles.
package features

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"paycanvas.org/internal/auth"
)

// Toggle is a feature as seen for one company.
type Toggle struct {
	Key            string
	Name           string
	Description    string
	Enabled        bool
	EnabledTenants int
}

// Store persists the feature catalog and company enablement.
type Store interface {
	// ListToggles returns every feature; Enabled reflects tenantID and is false
	// when tenantID is empty.
	ListToggles(ctx context.Context, tenantID string) ([]Toggle, error)
	// SetEnabled upserts the enablement. Unknown feature or company yields auth.ErrNotFound.
	SetEnabled(ctx context.Context, tenantID, key string, enabled bool) error
}

// Invalidator drops cached entitlements of a company.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string) error
}

type Service struct {
	store  Store
	cache  Invalidator
	logger *zap.Logger
}

// NewService builds the toggle service. cache may be nil.
func NewService(store Store, cache Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Toggle, error) {
	toggles, err := s.store.ListToggles(ctx, strings.TrimSpace(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list toggles: %w", err)
	}
	return toggles, nil
}

// Set enables or disables key for tenantID. Tokens already issued keep their
// entitlements until the next refresh.
func (s *Service) Set(ctx context.Context, tenantID, key string, enabled bool) error {
	tenantID = strings.TrimSpace(tenantID)
	key = strings.TrimSpace(key)
	if tenantID == "" || key == "" {
		return fmt.Errorf("%w: company and feature are required", auth.ErrInvalidInput)
	}
	if err := s.store.SetEnabled(ctx, tenantID, key, enabled); err != nil {
		return fmt.Errorf("set toggle: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, tenantID); err != nil {
			s.logger.Warn("entitlement cache invalidation failed",
				zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
	s.logger.Info("feature toggle changed",
		zap.String("tenant_id", tenantID),
		zap.String("feature", key),
		zap.Bool("enabled", enabled))
	return nil
}
