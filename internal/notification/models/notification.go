package models

import (
	"time"

	"github.com/google/uuid"

	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
)

// Type labels why a notification was raised.
type Type string

const (
	TypePendingRequest Type = "pending_request"
)

// Priority orders notifications in the inbox.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Notification is an alert addressed to one user about one request.
// It is append-only apart from the read flag.
type Notification struct {
	ID          uuid.UUID    `json:"id"`
	UserID      id.UserID    `json:"user_id"`
	RequestID   id.RequestID `json:"request_id"`
	Type        Type         `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Priority    Priority     `json:"priority"`
	Read        bool         `json:"read"`
	ReadAt      *time.Time   `json:"read_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewNotification builds an unread notification.
func NewNotification(userID id.UserID, requestID id.RequestID, typ Type, title, description string, priority Priority, now time.Time) (*Notification, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification recipient is required")
	}
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification must reference a request")
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification title cannot be empty")
	}
	if !priority.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid notification priority")
	}
	return &Notification{
		ID:          uuid.New(),
		UserID:      userID,
		RequestID:   requestID,
		Type:        typ,
		Title:       title,
		Description: description,
		Priority:    priority,
		CreatedAt:   now,
	}, nil
}

// MarkRead flags the notification as read. Marking twice keeps the first
// read timestamp.
func (n *Notification) MarkRead(now time.Time) {
	if n.Read {
		return
	}
	n.Read = true
	n.ReadAt = &now
}

// IsOwnedBy reports whether userID is the recipient.
func (n *Notification) IsOwnedBy(userID id.UserID) bool {
	return !userID.IsNil() && n.UserID == userID
}

// UnreadCountResponse is returned by the unread counter endpoint.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// ListResponse wraps a notification listing.
type ListResponse struct {
	Items []*Notification `json:"items"`
}
