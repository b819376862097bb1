package testutil

import (
	"net/http"

	id "desarquivamento/pkg/domain"
	"desarquivamento/pkg/requestcontext"
)

// WithPrincipal adds the caller to the request context.
// This simulates what the auth middleware does for authenticated requests.
func WithPrincipal(req *http.Request, userID id.UserID, roles ...string) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), userID, roles))
}
