package auth

import (
	"sort"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimsVersion is bumped whenever the claim layout changes.
const ClaimsVersion = 1

// Claims is the fixed access token payload.
type Claims struct {
	Version      int      `json:"ver"`
	TenantID     string   `json:"tid,omitempty"`
	Role         Role     `json:"role"`
	Entitlements []string `json:"ent"`
	jwt.RegisteredClaims
}

// Principal builds the request-scoped identity carried by these claims.
func (c *Claims) Principal() Principal {
	return Principal{
		UserID:       c.Subject,
		TenantID:     c.TenantID,
		Role:         c.Role,
		Entitlements: normalizeKeys(c.Entitlements),
	}
}

// IsValidRole reports whether r is one of the fixed roles.
func IsValidRole(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleStaff:
		return true
	}
	return false
}

// normalizeKeys trims, drops blanks and duplicates, and sorts feature keys.
func normalizeKeys(keys []string) []string {
	if len(keys) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
