package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"desarquivamento/internal/desarquivamento/models"
	id "desarquivamento/pkg/domain"
	"desarquivamento/pkg/platform/sentinel"
)

// InMemory is a RequestStore for tests and single-process runs. Records are
// cloned on the way in and out so callers never share memory with the store.
type InMemory struct {
	mu       sync.RWMutex
	nextID   int64
	requests map[id.RequestID]*models.Request
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[id.RequestID]*models.Request)}
}

func (s *InMemory) FindByID(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[requestID]
	if !ok || r.IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemory) FindByIDWithDeleted(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemory) FindAll(_ context.Context, opts models.ListOptions) (models.Page, error) {
	s.mu.RLock()
	matched := make([]*models.Request, 0, len(s.requests))
	for _, r := range s.requests {
		if matches(r, opts.Filter) {
			matched = append(matched, r.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *models.Request) int {
		c := compareBy(a, b, opts.SortBy)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if opts.SortOrder == models.SortDesc {
			return -c
		}
		return c
	})

	page := models.Page{Total: len(matched), Page: opts.Page, Limit: opts.Limit}
	start := min(opts.Offset(), len(matched))
	end := min(start+opts.Limit, len(matched))
	page.Items = matched[start:end]
	return page, nil
}

func matches(r *models.Request, f models.ListFilter) bool {
	if r.IsDeleted() && !f.IncludeDeleted {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
		return false
	}
	if f.DocumentType != "" && !strings.EqualFold(r.DocumentType, f.DocumentType) {
		return false
	}
	if f.RequesterName != "" && !strings.Contains(strings.ToLower(r.RequesterName), strings.ToLower(f.RequesterName)) {
		return false
	}
	if f.RequestedFrom != nil && r.RequestedAt.Before(*f.RequestedFrom) {
		return false
	}
	if f.RequestedTo != nil && r.RequestedAt.After(*f.RequestedTo) {
		return false
	}
	if f.Urgent != nil && r.Urgent != *f.Urgent {
		return false
	}
	if f.CreatedBy != nil && r.CreatedBy != *f.CreatedBy {
		return false
	}
	return true
}

func compareBy(a, b *models.Request, field models.SortField) int {
	switch field {
	case models.SortByID:
		return cmp.Compare(a.ID, b.ID)
	case models.SortByRequestedAt:
		return a.RequestedAt.Compare(b.RequestedAt)
	case models.SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case models.SortByStatus:
		return cmp.Compare(a.Status, b.Status)
	case models.SortByRequesterName:
		return cmp.Compare(strings.ToLower(a.RequesterName), strings.ToLower(b.RequesterName))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// referenceTaken must be called with the lock held.
func (s *InMemory) referenceTaken(reference string, except id.RequestID) bool {
	for _, r := range s.requests {
		if r.ID != except && !r.IsDeleted() && r.DocumentReference == reference {
			return true
		}
	}
	return false
}

func (s *InMemory) Save(_ context.Context, request *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.referenceTaken(request.DocumentReference, 0) {
		return sentinel.ErrConflict
	}
	s.nextID++
	request.ID = id.RequestID(s.nextID)
	s.requests[request.ID] = request.Clone()
	return nil
}

func (s *InMemory) Update(_ context.Context, request *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[request.ID]
	if !ok || current.IsDeleted() {
		return sentinel.ErrNotFound
	}
	if s.referenceTaken(request.DocumentReference, request.ID) {
		return sentinel.ErrConflict
	}
	next := request.Clone()
	next.DeletedAt = nil
	next.CreatedAt = current.CreatedAt
	next.CreatedBy = current.CreatedBy
	s.requests[request.ID] = next
	return nil
}

func (s *InMemory) SoftDelete(_ context.Context, requestID id.RequestID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok || r.IsDeleted() {
		return sentinel.ErrNotFound
	}
	r.DeletedAt = &at
	r.UpdatedAt = at
	return nil
}

func (s *InMemory) Restore(_ context.Context, requestID id.RequestID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok || !r.IsDeleted() {
		return sentinel.ErrNotFound
	}
	if s.referenceTaken(r.DocumentReference, requestID) {
		return sentinel.ErrConflict
	}
	r.DeletedAt = nil
	r.UpdatedAt = at
	return nil
}

func (s *InMemory) Delete(_ context.Context, requestID id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[requestID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.requests, requestID)
	return nil
}

func (s *InMemory) FindPendingBefore(_ context.Context, cutoff time.Time) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []*models.Request
	for _, r := range s.requests {
		if !r.IsDeleted() && r.Status.IsInitial() && r.RequestedAt.Before(cutoff) {
			pending = append(pending, r.Clone())
		}
	}
	slices.SortFunc(pending, func(a, b *models.Request) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return pending, nil
}
