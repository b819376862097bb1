// Package scheduler raises notifications for requests left too long in
// intake and prunes old read notifications.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	reqModels "desarquivamento/internal/desarquivamento/models"
	notifModels "desarquivamento/internal/notification/models"
	id "desarquivamento/pkg/domain"
	"desarquivamento/pkg/platform/sentinel"
)

const (
	DefaultStaleThreshold = 5 * 24 * time.Hour
	DefaultRetention      = 30 * 24 * time.Hour
)

// RequestSource lists live requests still in intake that were requested
// before cutoff.
type RequestSource interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]*reqModels.Request, error)
}

// NotificationStore is the notification sink used by the scanner.
type NotificationStore interface {
	Create(ctx context.Context, n *notifModels.Notification) error
	HasUnreadForRequest(ctx context.Context, requestID id.RequestID, typ notifModels.Type) (bool, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Scanned int `json:"scanned"`
	Raised  int `json:"raised"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Scanner finds stale requests and raises at most one unread notification
// per request.
type Scanner struct {
	requests      RequestSource
	notifications NotificationStore
	threshold     time.Duration
	retention     time.Duration
	logger        *slog.Logger
	metrics       *Metrics
	tracer        trace.Tracer
}

type Option func(*Scanner)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scanner) {
		s.metrics = m
	}
}

// WithThreshold sets how long a request may wait in intake. Non-positive
// values keep the default.
func WithThreshold(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.threshold = d
		}
	}
}

// WithRetention sets how long read notifications are kept. Non-positive
// values keep the default.
func WithRetention(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.retention = d
		}
	}
}

func NewScanner(requests RequestSource, notifications NotificationStore, opts ...Option) *Scanner {
	s := &Scanner{
		requests:      requests,
		notifications: notifications,
		threshold:     DefaultStaleThreshold,
		retention:     DefaultRetention,
		logger:        slog.Default(),
		tracer:        otel.Tracer("desarquivamento/scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan raises notifications for requests pending since before now minus the
// threshold. Failures on one request are logged and counted; only a failure
// to list candidates aborts the scan.
func (s *Scanner) Scan(ctx context.Context, now time.Time) (ScanResult, error) {
	cutoff := now.Add(-s.threshold)
	ctx, span := s.tracer.Start(ctx, "scheduler.scan_pending",
		trace.WithAttributes(attribute.String("cutoff", cutoff.Format(time.RFC3339))),
	)
	defer span.End()
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ScanDuration.Observe(time.Since(start).Seconds())
		}
	}()

	var result ScanResult
	pending, err := s.requests.FindPendingBefore(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list pending requests")
		return result, fmt.Errorf("list pending requests: %w", err)
	}
	result.Scanned = len(pending)

	for _, r := range pending {
		raised, err := s.notify(ctx, r, now)
		switch {
		case err != nil:
			result.Failed++
			if s.metrics != nil {
				s.metrics.ScanFailures.Inc()
			}
			s.logger.ErrorContext(ctx, "failed to raise pending notification",
				"desarquivamento_id", r.ID.Int64(),
				"error", err,
			)
		case raised:
			result.Raised++
		default:
			result.Skipped++
		}
	}

	span.SetAttributes(
		attribute.Int("scanned", result.Scanned),
		attribute.Int("raised", result.Raised),
		attribute.Int("failed", result.Failed),
	)
	s.logger.InfoContext(ctx, "pending request scan finished",
		"scanned", result.Scanned,
		"raised", result.Raised,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *Scanner) notify(ctx context.Context, r *reqModels.Request, now time.Time) (bool, error) {
	exists, err := s.notifications.HasUnreadForRequest(ctx, r.ID, notifModels.TypePendingRequest)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	recipient := r.CreatedBy
	if r.AssignedTo != nil {
		recipient = *r.AssignedTo
	}
	priority := notifModels.PriorityHigh
	if r.Urgent {
		priority = notifModels.PriorityCritical
	}
	days := int(math.Floor(now.Sub(r.RequestedAt).Hours() / 24))
	title := fmt.Sprintf("Request #%d pending for %d days", r.ID.Int64(), days)
	description := fmt.Sprintf("%s requested document %s (%s) on %s and it has not been retrieved yet.",
		r.RequesterName, r.DocumentReference, r.DocumentType, r.RequestedAt.Format("2006-01-02"))

	n, err := notifModels.NewNotification(recipient, r.ID, notifModels.TypePendingRequest, title, description, priority, now)
	if err != nil {
		return false, err
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		// Another writer raised it between the check and the insert.
		if errors.Is(err, sentinel.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	if s.metrics != nil {
		s.metrics.NotificationsRaised.WithLabelValues(string(priority)).Inc()
	}
	return true, nil
}

// Cleanup deletes read notifications created before now minus the retention.
func (s *Scanner) Cleanup(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.retention)
	ctx, span := s.tracer.Start(ctx, "scheduler.cleanup_notifications",
		trace.WithAttributes(attribute.String("cutoff", cutoff.Format(time.RFC3339))),
	)
	defer span.End()

	removed, err := s.notifications.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete read notifications")
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}
	span.SetAttributes(attribute.Int64("removed", removed))
	if s.metrics != nil {
		s.metrics.NotificationsRemoved.Add(float64(removed))
	}
	s.logger.InfoContext(ctx, "notification cleanup finished", "removed", removed)
	return removed, nil
}
