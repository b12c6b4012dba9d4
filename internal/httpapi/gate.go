package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"paycanvas.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var errNoBearer = errors.New("missing bearer token")

// Gate authenticates requests carrying a bearer token. Requests without a
// token, or with one that fails verification, continue anonymously; endpoint
// policies decide whether that is acceptable.
func Gate(codec *auth.Codec, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.ContextWithoutPrincipal(r.Context())

			token, err := extractBearerToken(r.Header.Get(authHeader))
			if err != nil {
				if !errors.Is(err, errNoBearer) {
					logger.Debug("ignoring authorization header", zap.Error(err))
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			claims, err := codec.Parse(token)
			if err != nil {
				logger.Debug("access token rejected",
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.Error(err))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(ctx, claims.Principal())))
		})
	}
}

// Require rejects requests whose principal does not satisfy policy:
// 401 without a principal, 403 when the policy denies.
func Require(policy auth.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := auth.Authorize(r.Context(), policy); err != nil {
				writeAuthError(w, r, nil, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errNoBearer
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errNoBearer
	}
	return token, nil
}
