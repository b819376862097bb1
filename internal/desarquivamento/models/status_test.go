package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "desarquivamento/pkg/domain-errors"
)

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses() {
		parsed, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	for _, raw := range []string{"", "REQUESTED", "archived", " requested"} {
		_, err := ParseStatus(raw)
		require.Error(t, err, raw)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), raw)
	}
}

func TestStatusClassification(t *testing.T) {
	cases := map[Status]struct {
		initial, terminal, inProgress bool
	}{
		StatusRequested:            {initial: true},
		StatusRetrieved:            {inProgress: true},
		StatusNotCollected:         {inProgress: true},
		StatusReturnedByDepartment: {inProgress: true},
		StatusRearchivalRequested:  {inProgress: true},
		StatusNotLocated:           {terminal: true},
		StatusFinalized:            {terminal: true},
	}
	require.Len(t, cases, len(AllStatuses()))

	for s, want := range cases {
		assert.Equal(t, want.initial, s.IsInitial(), s)
		assert.Equal(t, want.terminal, s.IsTerminal(), s)
		assert.Equal(t, want.inProgress, s.IsInProgress(), s)
	}
	assert.False(t, Status("bogus").IsInProgress())
}

func TestTransitionTable(t *testing.T) {
	t.Run("terminal statuses have no outgoing edges", func(t *testing.T) {
		for _, s := range AllStatuses() {
			if s.IsTerminal() {
				assert.Empty(t, s.NextStatuses(), s)
			}
		}
	})

	t.Run("requested is the only entry state", func(t *testing.T) {
		for _, from := range AllStatuses() {
			assert.False(t, from.CanTransitionTo(StatusRequested), from)
		}
	})

	t.Run("no status transitions to itself", func(t *testing.T) {
		for _, s := range AllStatuses() {
			assert.False(t, s.CanTransitionTo(s), s)
		}
	})

	t.Run("returned by department requires a retrieval edge", func(t *testing.T) {
		assert.True(t, StatusRetrieved.CanTransitionTo(StatusReturnedByDepartment))
		assert.False(t, StatusRequested.CanTransitionTo(StatusReturnedByDepartment))
		assert.False(t, StatusNotCollected.CanTransitionTo(StatusReturnedByDepartment))
	})

	t.Run("NextStatuses returns a copy", func(t *testing.T) {
		next := StatusRequested.NextStatuses()
		next[0] = StatusFinalized
		assert.Equal(t, StatusRetrieved, StatusRequested.NextStatuses()[0])
	})
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Returned by department", StatusReturnedByDepartment.Label())
	assert.Equal(t, "bogus", Status("bogus").Label())
}
