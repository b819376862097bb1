// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the values; services and workers read them without pulling
// in net/http.
//
// Usage in services (read values):
//
//	userID := requestcontext.UserID(ctx)
//	roles := requestcontext.Roles(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithPrincipal(ctx, userID, []string{"admin"})
package requestcontext

import (
	"context"
	"slices"
	"time"

	id "desarquivamento/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	userIDKey      struct{}
	rolesKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyUserID      = userIDKey{}
	ContextKeyRoles       = rolesKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Principal (authenticated user id and roles)
// -----------------------------------------------------------------------------

// UserID retrieves the authenticated user id from the context.
// Returns the zero value if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(ContextKeyUserID).(id.UserID); ok {
		return userID
	}
	return 0
}

// Roles retrieves the authenticated user's roles. The returned slice is a copy.
func Roles(ctx context.Context) []string {
	if roles, ok := ctx.Value(ContextKeyRoles).([]string); ok {
		return slices.Clone(roles)
	}
	return nil
}

// WithPrincipal injects the authenticated user id and roles into the context.
func WithPrincipal(ctx context.Context, userID id.UserID, roles []string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, userID)
	return context.WithValue(ctx, ContextKeyRoles, slices.Clone(roles))
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request id from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request id into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like the scanner, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - The scanner, which needs one "now" for a whole batch
//   - CLI commands
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
