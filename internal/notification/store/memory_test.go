package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"desarquivamento/internal/notification/models"
	id "desarquivamento/pkg/domain"
	"desarquivamento/pkg/platform/sentinel"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newNotification(userID id.UserID, requestID id.RequestID, createdAt time.Time) *models.Notification {
	n, err := models.NewNotification(userID, requestID, models.TypePendingRequest,
		"Pending request", "waiting for retrieval", models.PriorityHigh, createdAt)
	if err != nil {
		panic(err)
	}
	return n
}

type InMemoryNotificationSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
}

func TestInMemoryNotificationSuite(t *testing.T) {
	suite.Run(t, new(InMemoryNotificationSuite))
}

func (s *InMemoryNotificationSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func (s *InMemoryNotificationSuite) TestCreate() {
	s.Run("refuses a second unread notification for the same request", func() {
		s.Require().NoError(s.store.Create(s.ctx, newNotification(10, 1, now)))
		err := s.store.Create(s.ctx, newNotification(20, 1, now))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("allows a new one once the previous was read", func() {
		first := newNotification(10, 2, now)
		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().NoError(s.store.MarkRead(s.ctx, first.ID, now))
		s.NoError(s.store.Create(s.ctx, newNotification(10, 2, now)))
	})
}

func (s *InMemoryNotificationSuite) TestHasUnreadForRequest() {
	n := newNotification(10, 3, now)
	s.Require().NoError(s.store.Create(s.ctx, n))

	has, err := s.store.HasUnreadForRequest(s.ctx, 3, models.TypePendingRequest)
	s.Require().NoError(err)
	s.True(has)

	s.Require().NoError(s.store.MarkRead(s.ctx, n.ID, now))
	has, err = s.store.HasUnreadForRequest(s.ctx, 3, models.TypePendingRequest)
	s.Require().NoError(err)
	s.False(has)
}

func (s *InMemoryNotificationSuite) TestListAndCount() {
	older := newNotification(10, 1, now.Add(-time.Hour))
	newer := newNotification(10, 2, now)
	foreign := newNotification(11, 3, now)
	for _, n := range []*models.Notification{older, newer, foreign} {
		s.Require().NoError(s.store.Create(s.ctx, n))
	}
	s.Require().NoError(s.store.MarkRead(s.ctx, older.ID, now))

	s.Run("lists newest first for the owner only", func() {
		items, err := s.store.ListByUser(s.ctx, 10, false, 0)
		s.Require().NoError(err)
		s.Require().Len(items, 2)
		s.Equal(newer.ID, items[0].ID)
		s.Equal(older.ID, items[1].ID)
	})

	s.Run("filters unread and applies the limit", func() {
		items, err := s.store.ListByUser(s.ctx, 10, true, 0)
		s.Require().NoError(err)
		s.Require().Len(items, 1)
		s.Equal(newer.ID, items[0].ID)

		items, err = s.store.ListByUser(s.ctx, 10, false, 1)
		s.Require().NoError(err)
		s.Len(items, 1)
	})

	s.Run("counts unread", func() {
		count, err := s.store.CountUnread(s.ctx, 10)
		s.Require().NoError(err)
		s.Equal(1, count)
	})
}

func (s *InMemoryNotificationSuite) TestMarkRead() {
	n := newNotification(10, 1, now)
	s.Require().NoError(s.store.Create(s.ctx, n))

	s.Require().NoError(s.store.MarkRead(s.ctx, n.ID, now))
	s.Require().NoError(s.store.MarkRead(s.ctx, n.ID, now.Add(time.Hour)))

	found, err := s.store.FindByID(s.ctx, n.ID)
	s.Require().NoError(err)
	s.True(found.Read)
	s.Require().NotNil(found.ReadAt)
	s.True(found.ReadAt.Equal(now))

	s.ErrorIs(s.store.MarkRead(s.ctx, uuid.New(), now), sentinel.ErrNotFound)
}

func (s *InMemoryNotificationSuite) TestDeleteReadBefore() {
	oldRead := newNotification(10, 1, now.Add(-40*24*time.Hour))
	oldUnread := newNotification(10, 2, now.Add(-40*24*time.Hour))
	recentRead := newNotification(10, 3, now.Add(-time.Hour))
	for _, n := range []*models.Notification{oldRead, oldUnread, recentRead} {
		s.Require().NoError(s.store.Create(s.ctx, n))
	}
	s.Require().NoError(s.store.MarkRead(s.ctx, oldRead.ID, now))
	s.Require().NoError(s.store.MarkRead(s.ctx, recentRead.ID, now))

	removed, err := s.store.DeleteReadBefore(s.ctx, now.Add(-30*24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), removed)

	_, err = s.store.FindByID(s.ctx, oldRead.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByID(s.ctx, oldUnread.ID)
	s.NoError(err)
}
