package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
	pstrings "desarquivamento/pkg/platform/strings"
)

// SortField is a column that listings may be ordered by.
type SortField string

const (
	SortByID            SortField = "id"
	SortByRequestedAt   SortField = "requested_at"
	SortByCreatedAt     SortField = "created_at"
	SortByUpdatedAt     SortField = "updated_at"
	SortByStatus        SortField = "status"
	SortByRequesterName SortField = "requester_name"
)

// sortableFields is the allow-list. Stores map these to columns and never
// interpolate caller input.
var sortableFields = map[SortField]struct{}{
	SortByID:            {},
	SortByRequestedAt:   {},
	SortByCreatedAt:     {},
	SortByUpdatedAt:     {},
	SortByStatus:        {},
	SortByRequesterName: {},
}

func (f SortField) IsValid() bool {
	_, ok := sortableFields[f]
	return ok
}

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) IsValid() bool {
	return o == SortAsc || o == SortDesc
}

const maxStatusFilters = 7

// ListFilter narrows a listing. Zero values mean "no filter".
type ListFilter struct {
	Statuses       []Status
	DocumentType   string
	RequesterName  string
	RequestedFrom  *time.Time
	RequestedTo    *time.Time
	Urgent         *bool
	IncludeDeleted bool
	CreatedBy      *id.UserID
}

// ListOptions is what the repository receives: validated paging, ordering
// and filters with the visibility override already applied.
type ListOptions struct {
	Page      int
	Limit     int
	SortBy    SortField
	SortOrder SortOrder
	Filter    ListFilter
}

// Offset is the number of rows to skip for the current page.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// Page is one slice of a listing.
type Page struct {
	Items []*Request
	Total int
	Page  int
	Limit int
}

// TotalPages rounds up; an empty listing has zero pages.
func (p Page) TotalPages() int {
	if p.Limit <= 0 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// FindAllQuery is the raw listing input as received from a transport.
type FindAllQuery struct {
	Actor
	Page           *int
	Limit          *int
	SortBy         string
	SortOrder      string
	Statuses       []string
	DocumentType   string
	RequesterName  string
	RequestedFrom  *time.Time
	RequestedTo    *time.Time
	Urgent         *bool
	IncludeDeleted bool
	CreatedBy      *int64
}

func (q *FindAllQuery) Normalize() {
	if q == nil {
		return
	}
	if q.Page == nil {
		page := DefaultPage
		q.Page = &page
	}
	if q.Limit == nil {
		limit := DefaultLimit
		q.Limit = &limit
	}
	q.SortBy = strings.ToLower(strings.TrimSpace(q.SortBy))
	if q.SortBy == "" {
		q.SortBy = string(SortByCreatedAt)
	}
	q.SortOrder = strings.ToLower(strings.TrimSpace(q.SortOrder))
	if q.SortOrder == "" {
		q.SortOrder = string(SortDesc)
	}
	q.Statuses = pstrings.DedupeAndTrimLower(q.Statuses)
	q.DocumentType = strings.TrimSpace(q.DocumentType)
	q.RequesterName = strings.TrimSpace(q.RequesterName)
}

// Options validates the query and converts it to repository options.
// It does not apply the visibility override; that is the use case's job.
//
// Follows validation order: Size -> Syntax -> Semantic.
func (q *FindAllQuery) Options() (ListOptions, error) {
	if q == nil {
		return ListOptions{}, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := q.Actor.Validate(); err != nil {
		return ListOptions{}, err
	}
	if len(q.Statuses) > maxStatusFilters {
		return ListOptions{}, dErrors.New(dErrors.CodeInvalidInput, "too many status filters")
	}
	if utf8.RuneCountInString(q.RequesterName) > maxTextLength || utf8.RuneCountInString(q.DocumentType) > maxTextLength {
		return ListOptions{}, dErrors.New(dErrors.CodeInvalidInput, "filter values must be 255 characters or less")
	}
	page, limit := intOr(q.Page, DefaultPage), intOr(q.Limit, DefaultLimit)
	if page < 1 {
		return ListOptions{}, dErrors.New(dErrors.CodeInvalidInput, "page must be at least 1").With("field", "page")
	}
	if limit < 1 || limit > MaxLimit {
		return ListOptions{}, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 100").With("field", "limit")
	}
	sortBy := SortField(q.SortBy)
	if !sortBy.IsValid() {
		return ListOptions{}, dErrors.New(dErrors.CodeInvalidInput, "unsupported sort field").With("field", "sort_by")
	}
	order := SortOrder(q.SortOrder)
	if !order.IsValid() {
		return ListOptions{}, dErrors.New(dErrors.CodeInvalidInput, "sort order must be asc or desc").With("field", "sort_order")
	}
	if q.RequestedFrom != nil && q.RequestedTo != nil && q.RequestedTo.Before(*q.RequestedFrom) {
		return ListOptions{}, dErrors.New(dErrors.CodeInvalidInput, "requested_to must not precede requested_from")
	}

	filter := ListFilter{
		DocumentType:   q.DocumentType,
		RequesterName:  q.RequesterName,
		RequestedFrom:  q.RequestedFrom,
		RequestedTo:    q.RequestedTo,
		Urgent:         q.Urgent,
		IncludeDeleted: q.IncludeDeleted,
	}
	for _, raw := range q.Statuses {
		st, err := ParseStatus(raw)
		if err != nil {
			return ListOptions{}, err
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	if q.CreatedBy != nil {
		creator, err := id.NewUserID(*q.CreatedBy)
		if err != nil {
			return ListOptions{}, err
		}
		filter.CreatedBy = &creator
	}

	return ListOptions{
		Page:      page,
		Limit:     limit,
		SortBy:    sortBy,
		SortOrder: order,
		Filter:    filter,
	}, nil
}

// intOr distinguishes an absent paging value from an explicit zero.
func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
