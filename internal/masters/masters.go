// Package masters manages per-company store master records.
package masters

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/ids"
	"paycanvas.org/internal/tenant"
)

// Feature is the entitlement key gating store masters.
const Feature = "store_masters"

const maxNameLen = 255

// Store is a physical shop location of a company.
type Store struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Store) Key() string    { return s.ID }
func (s Store) Tenant() string { return s.CompanyID }

func (s Store) WithTenant(tenantID string) Store {
	s.CompanyID = tenantID
	return s
}

// Input carries client supplied fields. The company is never taken from input.
type Input struct {
	Name    string
	Address string
}

func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return in, fmt.Errorf("%w: name is required", auth.ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Name) > maxNameLen {
		return in, fmt.Errorf("%w: name is too long", auth.ErrInvalidInput)
	}
	return in, nil
}

// Repository persists stores.
type Repository = tenant.Table[Store]

// Service exposes store masters to a principal, confined to its company.
type Service struct {
	guard *tenant.Guard[Store]
	now   func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		guard: tenant.NewGuard[Store](repo, "stores", logger),
		now:   time.Now,
	}
}

func (s *Service) List(ctx context.Context, p auth.Principal) ([]Store, error) {
	return s.guard.List(ctx, p)
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (Store, error) {
	return s.guard.Get(ctx, p, id)
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in Input) (Store, error) {
	in, err := in.normalize()
	if err != nil {
		return Store{}, err
	}
	now := s.now().UTC()
	return s.guard.Create(ctx, p, Store{
		ID:        ids.NewAt(now),
		Name:      in.Name,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id string, in Input) (Store, error) {
	in, err := in.normalize()
	if err != nil {
		return Store{}, err
	}
	return s.guard.Update(ctx, p, Store{
		ID:        id,
		Name:      in.Name,
		Address:   in.Address,
		UpdatedAt: s.now().UTC(),
	})
}

func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	return s.guard.Delete(ctx, p, id)
}
