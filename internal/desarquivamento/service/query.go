package service

import (
	"context"
	"time"

	"desarquivamento/internal/desarquivamento/models"
	"desarquivamento/pkg/requestcontext"
)

// FindByID returns one non-deleted request. A request the caller may not see
// is reported exactly like a missing one so ids cannot be probed.
func (s *Service) FindByID(ctx context.Context, q *models.FindByIDQuery) (*models.RequestResponse, error) {
	start := time.Now()
	defer s.observe("find_by_id", start)

	if err := q.Validate(); err != nil {
		return nil, err
	}

	req, err := s.requests.FindByID(ctx, q.ID)
	if err != nil {
		return nil, storeError(err, "failed to load request")
	}
	if !req.CanBeAccessedBy(q.UserID, q.UserRoles) {
		return nil, errRequestNotFound
	}
	return models.ToResponse(req, requestcontext.Now(ctx)), nil
}

// FindAll lists requests. Callers without view-any permission only ever see
// their own requests and never deleted ones, whatever filters they send.
func (s *Service) FindAll(ctx context.Context, q *models.FindAllQuery) (*models.PageResponse, error) {
	start := time.Now()
	defer s.observe("find_all", start)

	q.Normalize()
	opts, err := q.Options()
	if err != nil {
		return nil, err
	}
	if !models.IsElevated(q.UserRoles) {
		own := q.UserID
		opts.Filter.CreatedBy = &own
		opts.Filter.IncludeDeleted = false
	}

	page, err := s.requests.FindAll(ctx, opts)
	if err != nil {
		return nil, storeError(err, "failed to list requests")
	}
	return models.ToPageResponse(page, requestcontext.Now(ctx)), nil
}
