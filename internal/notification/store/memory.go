package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"desarquivamento/internal/notification/models"
	id "desarquivamento/pkg/domain"
	"desarquivamento/pkg/platform/sentinel"
)

// InMemory keeps notifications in a map guarded by a RWMutex.
type InMemory struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]*models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{notifications: make(map[uuid.UUID]*models.Notification)}
}

func clone(n *models.Notification) *models.Notification {
	c := *n
	if n.ReadAt != nil {
		t := *n.ReadAt
		c.ReadAt = &t
	}
	return &c
}

// Create stores n. A second unread notification of the same type for the
// same request is refused with ErrConflict.
func (s *InMemory) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[n.ID]; exists {
		return sentinel.ErrConflict
	}
	if !n.Read && s.hasUnreadLocked(n.RequestID, n.Type) {
		return sentinel.ErrConflict
	}
	s.notifications[n.ID] = clone(n)
	return nil
}

func (s *InMemory) hasUnreadLocked(requestID id.RequestID, typ models.Type) bool {
	for _, n := range s.notifications {
		if !n.Read && n.RequestID == requestID && n.Type == typ {
			return true
		}
	}
	return false
}

func (s *InMemory) HasUnreadForRequest(_ context.Context, requestID id.RequestID, typ models.Type) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasUnreadLocked(requestID, typ), nil
}

func (s *InMemory) FindByID(_ context.Context, notificationID uuid.UUID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(n), nil
}

// ListByUser returns the user's notifications, newest first. A limit of zero
// or less returns all of them.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	out := make([]*models.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, clone(n))
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *models.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) MarkRead(_ context.Context, notificationID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	n.MarkRead(at)
	return nil
}

func (s *InMemory) CountUnread(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

// DeleteReadBefore removes read notifications created before cutoff and
// reports how many were removed.
func (s *InMemory) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, n := range s.notifications {
		if n.Read && n.CreatedAt.Before(cutoff) {
			delete(s.notifications, key)
			removed++
		}
	}
	return removed, nil
}
