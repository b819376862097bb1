package models

import (
	"time"
)

// RequestResponse is the outward shape of a request, decoupled from storage.
type RequestResponse struct {
	ID                 int64      `json:"id"`
	Status             string     `json:"status"`
	StatusLabel        string     `json:"status_label"`
	NextStatuses       []string   `json:"next_statuses"`
	RequesterName      string     `json:"requester_name"`
	ProcessNumber      string     `json:"process_number"`
	DocumentReference  string     `json:"document_reference"`
	DocumentType       string     `json:"document_type"`
	Urgent             bool       `json:"urgent"`
	RequestedAt        time.Time  `json:"requested_at"`
	RetrievedAt        *time.Time `json:"retrieved_at,omitempty"`
	ReturnedAt         *time.Time `json:"returned_at,omitempty"`
	Department         string     `json:"department"`
	ResponsibleServer  string     `json:"responsible_server"`
	Purpose            string     `json:"purpose"`
	ExtensionRequested bool       `json:"extension_requested"`
	CreatedBy          int64      `json:"created_by"`
	AssignedTo         *int64     `json:"assigned_to,omitempty"`
	Deadline           time.Time  `json:"deadline"`
	Overdue            bool       `json:"overdue"`
	DaysUntilDeadline  int        `json:"days_until_deadline"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
}

// ToResponse maps an aggregate to its response shape. now feeds the
// deadline flags.
func ToResponse(r *Request, now time.Time) *RequestResponse {
	next := r.Status.NextStatuses()
	nextCodes := make([]string, 0, len(next))
	for _, s := range next {
		nextCodes = append(nextCodes, string(s))
	}
	resp := &RequestResponse{
		ID:                 r.ID.Int64(),
		Status:             string(r.Status),
		StatusLabel:        r.Status.Label(),
		NextStatuses:       nextCodes,
		RequesterName:      r.RequesterName,
		ProcessNumber:      r.ProcessNumber,
		DocumentReference:  r.DocumentReference,
		DocumentType:       r.DocumentType,
		Urgent:             r.Urgent,
		RequestedAt:        r.RequestedAt,
		RetrievedAt:        cloneTime(r.RetrievedAt),
		ReturnedAt:         cloneTime(r.ReturnedAt),
		Department:         r.Department,
		ResponsibleServer:  r.ResponsibleServer,
		Purpose:            r.Purpose,
		ExtensionRequested: r.ExtensionRequested,
		CreatedBy:          r.CreatedBy.Int64(),
		Deadline:           r.Deadline(),
		Overdue:            r.IsOverdue(now),
		DaysUntilDeadline:  r.DaysUntilDeadline(now),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		DeletedAt:          cloneTime(r.DeletedAt),
	}
	if r.AssignedTo != nil {
		a := r.AssignedTo.Int64()
		resp.AssignedTo = &a
	}
	return resp
}

// PageResponse is one page of a listing.
type PageResponse struct {
	Items      []*RequestResponse `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

// ToPageResponse maps a repository page.
func ToPageResponse(p Page, now time.Time) *PageResponse {
	items := make([]*RequestResponse, 0, len(p.Items))
	for _, r := range p.Items {
		items = append(items, ToResponse(r, now))
	}
	return &PageResponse{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages(),
	}
}

// DeleteResponse reports the outcome of a delete.
type DeleteResponse struct {
	ID             int64      `json:"id"`
	Permanent      bool       `json:"permanent"`
	AlreadyDeleted bool       `json:"already_deleted"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// ImportRowError describes why one spreadsheet row was not imported.
type ImportRowError struct {
	Row               int    `json:"row"`
	DocumentReference string `json:"document_reference,omitempty"`
	Code              string `json:"code"`
	Message           string `json:"message"`
}

// ImportResponse summarizes a spreadsheet import.
type ImportResponse struct {
	Created []*RequestResponse `json:"created"`
	Failed  []ImportRowError   `json:"failed"`
}

// DeliveryReceipt is the data snapshot handed to a document renderer.
type DeliveryReceipt struct {
	RequestID          int64
	Status             string
	StatusLabel        string
	RequesterName      string
	ProcessNumber      string
	DocumentReference  string
	DocumentType       string
	Department         string
	ResponsibleServer  string
	Purpose            string
	Urgent             bool
	ExtensionRequested bool
	RequestedAt        time.Time
	RetrievedAt        *time.Time
	ReturnedAt         *time.Time
	IssuedAt           time.Time
	IssuedBy           int64
}

// NewDeliveryReceipt snapshots the request at issue time.
func NewDeliveryReceipt(r *Request, issuedBy int64, now time.Time) DeliveryReceipt {
	return DeliveryReceipt{
		RequestID:          r.ID.Int64(),
		Status:             string(r.Status),
		StatusLabel:        r.Status.Label(),
		RequesterName:      r.RequesterName,
		ProcessNumber:      r.ProcessNumber,
		DocumentReference:  r.DocumentReference,
		DocumentType:       r.DocumentType,
		Department:         r.Department,
		ResponsibleServer:  r.ResponsibleServer,
		Purpose:            r.Purpose,
		Urgent:             r.Urgent,
		ExtensionRequested: r.ExtensionRequested,
		RequestedAt:        r.RequestedAt,
		RetrievedAt:        cloneTime(r.RetrievedAt),
		ReturnedAt:         cloneTime(r.ReturnedAt),
		IssuedAt:           now,
		IssuedBy:           issuedBy,
	}
}

// Document is a rendered file.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}
