// Package provisioning lets the platform operator onboard companies and their
// first administrator accounts.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/ids"
)

const CompanyStatusActive = "active"

const (
	maxFieldLen      = 255
	minPasswordRunes = 8
	maxPasswordBytes = 72 // bcrypt ignores the rest
)

// Company is a tenant with its contact profile.
type Company struct {
	ID           string
	Name         string
	Status       string
	PostalCode   string
	Address      string
	Phone        string
	ContactName  string
	ContactKana  string
	ContactEmail string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CompanyInput carries the editable profile. Every field is required.
type CompanyInput struct {
	Name         string
	PostalCode   string
	Address      string
	Phone        string
	ContactName  string
	ContactKana  string
	ContactEmail string
}

// AdminInput describes the COMPANY_ADMIN account to create.
type AdminInput struct {
	CompanyID   string
	Email       string
	DisplayName string
	Password    string
}

// Admin is the created account, without credentials.
type Admin struct {
	ID          string
	Email       string
	DisplayName string
	CompanyID   string
	CompanyName string
}

// Store persists companies and provisioned users.
type Store interface {
	ListCompanies(ctx context.Context) ([]Company, error)
	FindCompany(ctx context.Context, id string) (Company, error)
	InsertCompany(ctx context.Context, c Company) (Company, error)
	// UpdateCompany rewrites the profile and UpdatedAt; status and CreatedAt are kept.
	UpdateCompany(ctx context.Context, c Company) (Company, error)
	// InsertUser writes u and its role assignments in one transaction. A taken
	// email yields auth.ErrConflict, an unknown company auth.ErrNotFound.
	InsertUser(ctx context.Context, u auth.User) error
}

type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

func (s *Service) ListCompanies(ctx context.Context) ([]Company, error) {
	companies, err := s.store.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}

func (s *Service) CreateCompany(ctx context.Context, in CompanyInput) (Company, error) {
	in, err := in.normalize()
	if err != nil {
		return Company{}, err
	}
	now := s.now().UTC()
	c, err := s.store.InsertCompany(ctx, in.apply(Company{
		ID:        ids.NewAt(now),
		Status:    CompanyStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	if err != nil {
		return Company{}, fmt.Errorf("create company: %w", err)
	}
	s.logger.Info("company created", zap.String("company_id", c.ID))
	return c, nil
}

func (s *Service) UpdateCompany(ctx context.Context, id string, in CompanyInput) (Company, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Company{}, fmt.Errorf("%w: company id is required", auth.ErrInvalidInput)
	}
	in, err := in.normalize()
	if err != nil {
		return Company{}, err
	}
	c, err := s.store.UpdateCompany(ctx, in.apply(Company{ID: id, UpdatedAt: s.now().UTC()}))
	if err != nil {
		return Company{}, fmt.Errorf("update company %s: %w", id, err)
	}
	return c, nil
}

// CreateCompanyAdmin creates an active COMPANY_ADMIN bound to an existing company.
func (s *Service) CreateCompanyAdmin(ctx context.Context, in AdminInput) (Admin, error) {
	in, err := in.normalize()
	if err != nil {
		return Admin{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Admin{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	u := auth.User{
		ID:           ids.NewAt(now),
		TenantID:     in.CompanyID,
		Email:        in.Email,
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
		Status:       auth.UserStatusActive,
		Roles:        []auth.Role{auth.RoleCompanyAdmin},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertUser(ctx, u); err != nil {
		return Admin{}, fmt.Errorf("create company admin: %w", err)
	}
	admin := Admin{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, CompanyID: u.TenantID}
	c, err := s.store.FindCompany(ctx, u.TenantID)
	switch {
	case err == nil:
		admin.CompanyName = c.Name
	case !errors.Is(err, auth.ErrNotFound):
		s.logger.Warn("company lookup after admin insert", zap.String("company_id", u.TenantID), zap.Error(err))
	}
	s.logger.Info("company admin created",
		zap.String("user_id", admin.ID),
		zap.String("company_id", admin.CompanyID))
	return admin, nil
}

func (in CompanyInput) normalize() (CompanyInput, error) {
	fields := []struct {
		name string
		v    *string
	}{
		{"name", &in.Name},
		{"postalCode", &in.PostalCode},
		{"address", &in.Address},
		{"phone", &in.Phone},
		{"contactName", &in.ContactName},
		{"contactKana", &in.ContactKana},
		{"contactEmail", &in.ContactEmail},
	}
	for _, f := range fields {
		*f.v = strings.TrimSpace(*f.v)
		if err := requireText(f.name, *f.v); err != nil {
			return in, err
		}
	}
	email, err := normalizeEmail("contactEmail", in.ContactEmail)
	if err != nil {
		return in, err
	}
	in.ContactEmail = email
	return in, nil
}

func (in CompanyInput) apply(c Company) Company {
	c.Name = in.Name
	c.PostalCode = in.PostalCode
	c.Address = in.Address
	c.Phone = in.Phone
	c.ContactName = in.ContactName
	c.ContactKana = in.ContactKana
	c.ContactEmail = in.ContactEmail
	return c
}

func (in AdminInput) normalize() (AdminInput, error) {
	in.CompanyID = strings.TrimSpace(in.CompanyID)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := requireText("companyId", in.CompanyID); err != nil {
		return in, err
	}
	if err := requireText("displayName", in.DisplayName); err != nil {
		return in, err
	}
	email, err := normalizeEmail("email", in.Email)
	if err != nil {
		return in, err
	}
	in.Email = auth.NormalizeEmail(email)
	if utf8.RuneCountInString(in.Password) < minPasswordRunes {
		return in, fmt.Errorf("%w: password must be at least %d characters", auth.ErrInvalidInput, minPasswordRunes)
	}
	if len(in.Password) > maxPasswordBytes {
		return in, fmt.Errorf("%w: password is too long", auth.ErrInvalidInput)
	}
	return in, nil
}

func requireText(field, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is required", auth.ErrInvalidInput, field)
	}
	if utf8.RuneCountInString(v) > maxFieldLen {
		return fmt.Errorf("%w: %s is too long", auth.ErrInvalidInput, field)
	}
	return nil
}

// normalizeEmail accepts a bare address only, no display name.
func normalizeEmail(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if err := requireText(field, v); err != nil {
		return "", err
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || addr.Name != "" {
		return "", fmt.Errorf("%w: %s is not a valid email address", auth.ErrInvalidInput, field)
	}
	return v, nil
}
