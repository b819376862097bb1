package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"desarquivamento/internal/notification/models"
	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
	"desarquivamento/pkg/platform/sentinel"
	"desarquivamento/pkg/requestcontext"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Store is the subset of the notification store the inbox needs.
type Store interface {
	FindByID(ctx context.Context, notificationID uuid.UUID) (*models.Notification, error)
	ListByUser(ctx context.Context, userID id.UserID, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID, at time.Time) error
	CountUnread(ctx context.Context, userID id.UserID) (int, error)
}

// Service serves a user's notification inbox. Users only ever see and mark
// their own notifications.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var errNotificationNotFound = dErrors.New(dErrors.CodeNotFound, "notification not found")

// ListForUser returns the newest notifications of userID. A limit outside
// 1..MaxListLimit falls back to the default or the cap.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID, unreadOnly bool, limit int) (*models.ListResponse, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "user id required")
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	items, err := s.store.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to list notifications")
	}
	return &models.ListResponse{Items: items}, nil
}

// MarkRead flags a notification as read. Someone else's notification is
// reported as not found.
func (s *Service) MarkRead(ctx context.Context, notificationID uuid.UUID, userID id.UserID) (*models.Notification, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "user id required")
	}
	n, err := s.store.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errNotificationNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load notification")
	}
	if !n.IsOwnedBy(userID) {
		return nil, errNotificationNotFound
	}
	if n.Read {
		return n, nil
	}

	now := requestcontext.Now(ctx)
	if err := s.store.MarkRead(ctx, notificationID, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errNotificationNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to mark notification read")
	}
	n.MarkRead(now)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "notification marked read",
			"notification_id", notificationID.String(),
			"user_id", userID.Int64())
	}
	return n, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID id.UserID) (*models.UnreadCountResponse, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "user id required")
	}
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to count notifications")
	}
	return &models.UnreadCountResponse{Unread: count}, nil
}
