package auth

// Principal is the identity derived from a validated access token. It lives only
// for the request that produced it.
type Principal struct {
	UserID       string
	TenantID     string
	Role         Role
	Entitlements []string
}

// HasTenant reports whether the principal is bound to a company.
func (p Principal) HasTenant() bool { return p.TenantID != "" }

// HasRole reports whether the principal holds one of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Entitled reports whether key is among the principal's entitlements.
func (p Principal) Entitled(key string) bool {
	for _, k := range p.Entitlements {
		if k == key {
			return true
		}
	}
	return false
}
