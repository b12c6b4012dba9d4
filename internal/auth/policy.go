package auth

import "context"

// Policy decides whether a principal may call an endpoint.
type Policy func(Principal) bool

// Authenticated admits any principal.
func Authenticated() Policy {
	return func(Principal) bool { return true }
}

// AnyRole admits principals holding at least one of roles.
func AnyRole(roles ...Role) Policy {
	return func(p Principal) bool { return p.HasRole(roles...) }
}

// Entitled admits principals whose token carries the capability key.
func Entitled(key string) Policy {
	return func(p Principal) bool { return p.Entitled(key) }
}

// All admits only when every policy admits.
func All(policies ...Policy) Policy {
	return func(p Principal) bool {
		for _, policy := range policies {
			if policy != nil && !policy(p) {
				return false
			}
		}
		return true
	}
}

// Authorize checks the request principal against policy.
func Authorize(ctx context.Context, policy Policy) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	if policy != nil && !policy(p) {
		return Principal{}, ErrForbidden
	}
	return p, nil
}
