package auth

import "time"

// Role is one of the fixed authorisation tiers.
type Role string

const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleCompanyAdmin Role = "COMPANY_ADMIN"
	RoleStaff        Role = "STAFF"
)

// DefaultRole is assumed when a user has no role assignments.
const DefaultRole = RoleStaff

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// Company is a tenant. All business data is partitioned by company id.
type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// User represents an account able to log in. TenantID is empty for super-admins.
type User struct {
	ID           string
	TenantID     string
	TenantName   string
	Email        string
	PasswordHash string
	DisplayName  string
	Status       string
	Roles        []Role // ordered by assignment
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the account may authenticate.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}

// PrimaryRole returns the first assigned role, or false if none is assigned.
func (u *User) PrimaryRole() (Role, bool) {
	if u == nil || len(u.Roles) == 0 {
		return DefaultRole, false
	}
	return u.Roles[0], true
}

// Session is a persisted refresh session. Only the hash of the opaque token is stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Feature is a capability that can be enabled per tenant.
type Feature struct {
	Key         string
	Name        string
	Description string
}
