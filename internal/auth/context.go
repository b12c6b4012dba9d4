package auth

import (
	"context"
	"slices"
)

type principalKey struct{}

// principalSlot is what the request context carries. An empty slot marks a
// request as anonymous even when an outer context had a principal.
type principalSlot struct {
	p     Principal
	valid bool
}

// ContextWithPrincipal binds p to the request. Entitlements are copied so
// handlers cannot alter what later middleware sees.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	p.Entitlements = slices.Clone(p.Entitlements)
	return context.WithValue(ctx, principalKey{}, principalSlot{p: p, valid: p.UserID != ""})
}

// ContextWithoutPrincipal marks the request anonymous.
func ContextWithoutPrincipal(ctx context.Context) context.Context {
	return context.WithValue(ctx, principalKey{}, principalSlot{})
}

// PrincipalFromContext returns the principal bound by the request gate.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	slot, _ := ctx.Value(principalKey{}).(principalSlot)
	if !slot.valid {
		return Principal{}, false
	}
	p := slot.p
	p.Entitlements = slices.Clone(p.Entitlements)
	return p, true
}
