// Package audit records security relevant events as structured log lines.
package audit

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"paycanvas.org/internal/auth"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// Event names.
const (
	LoginSucceeded   = "auth.login.succeeded"
	LoginFailed      = "auth.login.failed"
	TokenRefreshed   = "auth.token.refreshed"
	RefreshRejected  = "auth.token.rejected"
	LoggedOut        = "auth.logout"
	FeatureToggled   = "feature.toggled"
	StoreCreated     = "store.created"
	StoreUpdated     = "store.updated"
	StoreDeleted     = "store.deleted"
	CompanyCreated   = "company.created"
	CompanyUpdated   = "company.updated"
	AdminProvisioned = "company.admin.created"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Log writes audit entries through a dedicated zap logger.
type Log struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("audit").With(zap.String("type", "audit"))}
}

// Record writes one entry enriched with request id and the acting principal.
// Callers must not pass secrets in fields.
func (l *Log) Record(ctx context.Context, event string, fields ...zap.Field) error {
	if l == nil {
		return nil
	}
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := make([]zap.Field, 0, len(fields)+4)
	entry = append(entry, zap.String("event", event))
	if rid := requestIDFromContext(ctx); rid != "" {
		entry = append(entry, zap.String("request_id", rid))
	}
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		entry = append(entry, zap.String("user_id", p.UserID), zap.String("role", string(p.Role)))
		if p.HasTenant() {
			entry = append(entry, zap.String("tenant_id", p.TenantID))
		}
	}
	entry = append(entry, fields...)
	l.logger.Info("audit", entry...)
	return nil
}
