package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reqModels "desarquivamento/internal/desarquivamento/models"
	reqStore "desarquivamento/internal/desarquivamento/store"
	notifStore "desarquivamento/internal/notification/store"
)

func TestNewSchedulerRejectsBadSpecs(t *testing.T) {
	scanner := NewScanner(reqStore.NewInMemory(), notifStore.NewInMemory(), WithLogger(discard))

	_, err := NewScheduler(scanner, "not a spec", "30 3 * * *", discard)
	assert.Error(t, err)

	_, err = NewScheduler(scanner, "0 * * * *", "* * *", discard)
	assert.Error(t, err)
}

func TestSchedulerRunScanUsesClock(t *testing.T) {
	ctx := context.Background()
	requests := reqStore.NewInMemory()
	notifications := notifStore.NewInMemory()
	r, err := reqModels.NewRequest(reqModels.NewRequestParams{
		RequesterName:     "Maria Souza",
		DocumentReference: "REF-CRON",
		DocumentType:      "processo",
		Department:        "Cartório",
		RequestedAt:       now.Add(-6 * 24 * time.Hour),
		CreatedBy:         10,
	}, now)
	require.NoError(t, err)
	require.NoError(t, requests.Save(ctx, r))

	s, err := NewScheduler(NewScanner(requests, notifications, WithLogger(discard)), "0 * * * *", "30 3 * * *", discard)
	require.NoError(t, err)
	s.clock = func() time.Time { return now }

	s.RunScan()
	count, err := notifications.CountUnread(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	s.RunCleanup()
}

func TestSchedulerStartStop(t *testing.T) {
	scanner := NewScanner(reqStore.NewInMemory(), notifStore.NewInMemory(), WithLogger(discard))
	s, err := NewScheduler(scanner, "0 * * * *", "30 3 * * *", discard)
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
