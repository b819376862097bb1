package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "desarquivamento/pkg/domain"
)

func TestPrincipal(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, id.UserID(0), UserID(ctx))
	assert.Nil(t, Roles(ctx))

	roles := []string{"operator"}
	ctx = WithPrincipal(ctx, id.UserID(9), roles)
	roles[0] = "admin"

	assert.Equal(t, id.UserID(9), UserID(ctx))
	assert.Equal(t, []string{"operator"}, Roles(ctx), "stored roles must not alias the caller's slice")

	got := Roles(ctx)
	got[0] = "admin"
	assert.Equal(t, []string{"operator"}, Roles(ctx), "returned roles must be a copy")
}

func TestNow(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	assert.Equal(t, "req-1", RequestID(WithRequestID(context.Background(), "req-1")))
}
