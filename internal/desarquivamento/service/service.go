package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"desarquivamento/internal/desarquivamento/metrics"
	"desarquivamento/internal/desarquivamento/models"
	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
	"desarquivamento/pkg/platform/sentinel"
	"desarquivamento/pkg/platform/tx"
	"desarquivamento/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks RequestStore,DocumentRenderer

// RequestStore is the persistence contract for requests. Implementations
// return sentinel errors (ErrNotFound, ErrConflict) and must be safe for
// concurrent use.
type RequestStore interface {
	// FindByID excludes soft-deleted rows.
	FindByID(ctx context.Context, id id.RequestID) (*models.Request, error)
	FindByIDWithDeleted(ctx context.Context, id id.RequestID) (*models.Request, error)
	FindAll(ctx context.Context, opts models.ListOptions) (models.Page, error)
	// Save inserts a new request and assigns its id.
	Save(ctx context.Context, request *models.Request) error
	// Update persists field changes of a non-deleted request. It never
	// touches the soft-delete timestamp.
	Update(ctx context.Context, request *models.Request) error
	SoftDelete(ctx context.Context, id id.RequestID, at time.Time) error
	Restore(ctx context.Context, id id.RequestID, at time.Time) error
	Delete(ctx context.Context, id id.RequestID) error
	// FindPendingBefore lists non-deleted requests still in the intake
	// status whose requested-on date is before cutoff.
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]*models.Request, error)
}

// DocumentRenderer turns a receipt snapshot into a printable file.
type DocumentRenderer interface {
	Render(ctx context.Context, receipt models.DeliveryReceipt) (*models.Document, error)
}

// Service runs the request lifecycle use cases. Every use case follows the
// same order: validate, load, authorize, mutate, persist, map.
type Service struct {
	requests RequestStore
	renderer DocumentRenderer
	tx       tx.Runner
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTxRunner wraps load-mutate-persist cycles in a transaction.
func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

// New constructs a Service.
func New(requests RequestStore, renderer DocumentRenderer, opts ...Option) *Service {
	s := &Service{
		requests: requests,
		renderer: renderer,
		tx:       tx.NoopRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -----------------------------------------------------------------------------
// Error translation
// -----------------------------------------------------------------------------

var (
	errRequestNotFound   = dErrors.New(dErrors.CodeNotFound, "request not found")
	errDuplicateDocument = dErrors.New(dErrors.CodeConflict, "document reference is already used by another request")
)

// storeError maps sentinel errors to coded ones. Coded errors raised inside a
// transaction callback pass through untouched.
func storeError(err error, msg string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return errRequestNotFound
	case errors.Is(err, sentinel.ErrConflict):
		return errDuplicateDocument
	default:
		return dErrors.Wrap(err, dErrors.CodePersistence, msg)
	}
}

func unauthorized(msg string, requestID id.RequestID) error {
	return dErrors.New(dErrors.CodeUnauthorized, msg).With("request_id", requestID.Int64())
}

// -----------------------------------------------------------------------------
// Observability helpers
// -----------------------------------------------------------------------------

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, start)
	}
}
