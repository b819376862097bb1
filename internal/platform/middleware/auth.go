package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"desarquivamento/internal/platform/metrics"
	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
	"desarquivamento/pkg/platform/httputil"
	"desarquivamento/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID id.UserID
	Roles  []string
}

// RequireAuth validates the bearer token and stores the caller's id and
// roles in the request context. m may be nil.
func RequireAuth(validator JWTValidator, logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	reject := func(w http.ResponseWriter, r *http.Request, reason string, err error) {
		ctx := r.Context()
		logger.WarnContext(ctx, "unauthorized access - "+reason,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		if m != nil {
			m.IncrementAuthFailures()
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "missing or invalid bearer token"))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || strings.TrimSpace(token) == "" {
				reject(w, r, "missing token", nil)
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				reject(w, r, "invalid token", err)
				return
			}
			if claims.UserID.IsNil() {
				reject(w, r, "token has no user", nil)
				return
			}

			ctx := requestcontext.WithPrincipal(r.Context(), claims.UserID, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
