package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desarquivamento/internal/desarquivamento/document"
	"desarquivamento/internal/desarquivamento/models"
	"desarquivamento/internal/platform/config"
	"desarquivamento/pkg/requestcontext"
)

func TestNewWithMemoryStores(t *testing.T) {
	cfg := config.Config{
		Scheduler: config.Scheduler{StaleThreshold: 5 * 24 * time.Hour, NotificationRetention: 30 * 24 * time.Hour},
		Document:  config.Document{Format: "text"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := New(context.Background(), cfg, logger, prometheus.NewRegistry())
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Nil(t, a.DB)
	assert.NoError(t, a.Ready(context.Background()))

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	requestedAt := now.Add(-6 * 24 * time.Hour)
	ctx := requestcontext.WithTime(context.Background(), now)
	created, err := a.Requests.Create(ctx, &models.CreateCommand{
		Actor:             models.Actor{UserID: 10, UserRoles: []string{"user"}},
		RequesterName:     "Maria Souza",
		DocumentReference: "REF-1",
		DocumentType:      "processo",
		Department:        "Cartório",
		RequestedAt:       &requestedAt,
	})
	require.NoError(t, err)

	result, err := a.Scanner.Scan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Raised)

	inbox, err := a.Notifications.ListForUser(ctx, 10, true, 0)
	require.NoError(t, err)
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, created.ID, inbox.Items[0].RequestID.Int64())
}

func TestRendererSelection(t *testing.T) {
	assert.IsType(t, &document.XLSXRenderer{}, renderer("xlsx"))
	assert.IsType(t, &document.TextRenderer{}, renderer("text"))
}
