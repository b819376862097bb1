package models

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
)

// ServiceLevelWindow is how long the office has to deliver a request after
// it was filed. Used for overdue flags only, never to block transitions.
const ServiceLevelWindow = 10 * 24 * time.Hour

const (
	maxTextLength    = 255
	maxPurposeLength = 2000
)

// Request is the aggregate root for a desarquivamento (archive retrieval) request.
//
// Invariants:
//   - Status is one of the seven workflow statuses and only changes along
//     the allowed-transition table, except through ChangeStatusForce
//   - RequesterName, DocumentReference, DocumentType and Department are non-empty
//   - DocumentReference is unique among non-deleted requests (enforced by the store)
//   - A deleted request (DeletedAt != nil) accepts no mutation other than Restore
//   - ReturnedAt never precedes RetrievedAt when both are known
//   - CreatedBy and CreatedAt are immutable after construction
//
// Mutating methods either apply the whole change and return nil, or return a
// coded error and leave the aggregate untouched.
type Request struct {
	ID                 id.RequestID `json:"id"`
	Status             Status       `json:"status"`
	RequesterName      string       `json:"requester_name"`
	ProcessNumber      string       `json:"process_number"`
	DocumentReference  string       `json:"document_reference"`
	DocumentType       string       `json:"document_type"`
	Urgent             bool         `json:"urgent"`
	RequestedAt        time.Time    `json:"requested_at"`
	RetrievedAt        *time.Time   `json:"retrieved_at,omitempty"`
	ReturnedAt         *time.Time   `json:"returned_at,omitempty"`
	Department         string       `json:"department"`
	ResponsibleServer  string       `json:"responsible_server"`
	Purpose            string       `json:"purpose"`
	ExtensionRequested bool         `json:"extension_requested"`
	CreatedBy          id.UserID    `json:"created_by"`
	AssignedTo         *id.UserID   `json:"assigned_to,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	DeletedAt          *time.Time   `json:"deleted_at,omitempty"`
}

// NewRequestParams carries the intake fields of a new request.
type NewRequestParams struct {
	RequesterName      string
	ProcessNumber      string
	DocumentReference  string
	DocumentType       string
	Urgent             bool
	RequestedAt        time.Time
	Department         string
	ResponsibleServer  string
	Purpose            string
	ExtensionRequested bool
	CreatedBy          id.UserID
	AssignedTo         *id.UserID
}

// NewRequest builds a request in the intake status. RequestedAt defaults to
// now when zero. The id is assigned by the store on save.
func NewRequest(p NewRequestParams, now time.Time) (*Request, error) {
	if p.CreatedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "creator is required")
	}
	if p.AssignedTo != nil && p.AssignedTo.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "assignee must be a positive user id")
	}
	r := &Request{
		Status:             StatusRequested,
		RequesterName:      strings.TrimSpace(p.RequesterName),
		ProcessNumber:      strings.TrimSpace(p.ProcessNumber),
		DocumentReference:  strings.TrimSpace(p.DocumentReference),
		DocumentType:       strings.TrimSpace(p.DocumentType),
		Urgent:             p.Urgent,
		RequestedAt:        p.RequestedAt,
		Department:         strings.TrimSpace(p.Department),
		ResponsibleServer:  strings.TrimSpace(p.ResponsibleServer),
		Purpose:            strings.TrimSpace(p.Purpose),
		ExtensionRequested: p.ExtensionRequested,
		CreatedBy:          p.CreatedBy,
		AssignedTo:         p.AssignedTo,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = now
	}
	if err := r.validateDetails(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Request) validateDetails() error {
	required := []struct {
		field string
		value string
	}{
		{"requester_name", r.RequesterName},
		{"document_reference", r.DocumentReference},
		{"document_type", r.DocumentType},
		{"department", r.Department},
	}
	for _, f := range required {
		if f.value == "" {
			return dErrors.New(dErrors.CodeInvalidInput, f.field+" is required").With("field", f.field)
		}
	}
	bounded := []struct {
		field string
		value string
	}{
		{"requester_name", r.RequesterName},
		{"process_number", r.ProcessNumber},
		{"document_reference", r.DocumentReference},
		{"document_type", r.DocumentType},
		{"department", r.Department},
		{"responsible_server", r.ResponsibleServer},
	}
	for _, f := range bounded {
		if utf8.RuneCountInString(f.value) > maxTextLength {
			return dErrors.New(dErrors.CodeInvalidInput, f.field+" must be 255 characters or less").With("field", f.field)
		}
	}
	if utf8.RuneCountInString(r.Purpose) > maxPurposeLength {
		return dErrors.New(dErrors.CodeInvalidInput, "purpose must be 2000 characters or less").With("field", "purpose")
	}
	return nil
}

// IsDeleted reports whether the request is soft-deleted.
func (r *Request) IsDeleted() bool {
	return r.DeletedAt != nil
}

func (r *Request) ensureNotDeleted() error {
	if r.IsDeleted() {
		return dErrors.New(dErrors.CodeAlreadyDeleted, "request is deleted").With("request_id", r.ID.Int64())
	}
	return nil
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// ChangeStatus moves the request along the workflow graph.
//
// Errors: CodeAlreadyDeleted, CodeInvalidInput for an unknown status, and
// CodeInvalidTransition when next is not reachable from the current status.
func (r *Request) ChangeStatus(next Status, now time.Time) error {
	if err := r.ensureNotDeleted(); err != nil {
		return err
	}
	if !next.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid status").With("status", string(next))
	}
	if !r.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidTransition, "status transition not allowed").
			With("request_id", r.ID.Int64()).
			With("from", string(r.Status)).
			With("to", string(next))
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// ChangeStatusForce sets the status without consulting the workflow graph.
// Callers must gate it with CanForceStatus; it exists to correct data-entry
// mistakes.
func (r *Request) ChangeStatusForce(next Status, now time.Time) error {
	if err := r.ensureNotDeleted(); err != nil {
		return err
	}
	if !next.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid status").With("status", string(next))
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// -----------------------------------------------------------------------------
// Assignment and dates
// -----------------------------------------------------------------------------

// AssignResponsible sets the assignee, or clears it when userID is nil.
func (r *Request) AssignResponsible(userID *id.UserID, now time.Time) error {
	if err := r.ensureNotDeleted(); err != nil {
		return err
	}
	if userID != nil && userID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "assignee must be a positive user id")
	}
	if userID == nil {
		r.AssignedTo = nil
	} else {
		assignee := *userID
		r.AssignedTo = &assignee
	}
	r.UpdatedAt = now
	return nil
}

// SetRetrievalDate records when the file was retrieved from the archive.
//
// Errors: CodeInvalidInput for a zero date, CodeInvariantViolation when it
// falls after a known department-return date.
func (r *Request) SetRetrievalDate(at time.Time, now time.Time) error {
	if err := r.ensureNotDeleted(); err != nil {
		return err
	}
	if at.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "retrieval date is required")
	}
	if r.ReturnedAt != nil && at.After(*r.ReturnedAt) {
		return dErrors.New(dErrors.CodeInvariantViolation, "retrieval date must not be after the department return date").
			With("rule", "retrieval_before_return")
	}
	r.RetrievedAt = &at
	r.UpdatedAt = now
	return nil
}

// SetDepartmentReturnDate records when the requesting department returned the file.
//
// Errors: CodeInvalidInput for a zero date, CodeInvariantViolation when it
// precedes a known retrieval date.
func (r *Request) SetDepartmentReturnDate(at time.Time, now time.Time) error {
	if err := r.ensureNotDeleted(); err != nil {
		return err
	}
	if at.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "department return date is required")
	}
	if r.RetrievedAt != nil && at.Before(*r.RetrievedAt) {
		return dErrors.New(dErrors.CodeInvariantViolation, "department return date must not precede the retrieval date").
			With("rule", "retrieval_before_return")
	}
	r.ReturnedAt = &at
	r.UpdatedAt = now
	return nil
}

// SetDates applies optional retrieval and return dates together, ordering
// the writes so a consistent new pair never trips over the old values.
func (r *Request) SetDates(retrievedAt, returnedAt *time.Time, now time.Time) error {
	if retrievedAt != nil && returnedAt != nil && returnedAt.Before(*retrievedAt) {
		return dErrors.New(dErrors.CodeInvariantViolation, "department return date must not precede the retrieval date").
			With("rule", "retrieval_before_return")
	}
	next := r.Clone()
	returnFirst := retrievedAt != nil && next.ReturnedAt != nil && retrievedAt.After(*next.ReturnedAt)
	if returnFirst && returnedAt != nil {
		if err := next.SetDepartmentReturnDate(*returnedAt, now); err != nil {
			return err
		}
		returnedAt = nil
	}
	if retrievedAt != nil {
		if err := next.SetRetrievalDate(*retrievedAt, now); err != nil {
			return err
		}
	}
	if returnedAt != nil {
		if err := next.SetDepartmentReturnDate(*returnedAt, now); err != nil {
			return err
		}
	}
	*r = *next
	return nil
}

// RequestDetailsPatch holds optional edits to the descriptive fields. Nil fields
// are left untouched.
type RequestDetailsPatch struct {
	RequesterName      *string
	ProcessNumber      *string
	DocumentReference  *string
	DocumentType       *string
	Urgent             *bool
	RequestedAt        *time.Time
	Department         *string
	ResponsibleServer  *string
	Purpose            *string
	ExtensionRequested *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p RequestDetailsPatch) IsEmpty() bool {
	return p == RequestDetailsPatch{}
}

// UpdateDetails applies a validated patch of descriptive fields.
func (r *Request) UpdateDetails(p RequestDetailsPatch, now time.Time) error {
	if err := r.ensureNotDeleted(); err != nil {
		return err
	}
	if p.IsEmpty() {
		return nil
	}
	next := *r
	setTrimmed(&next.RequesterName, p.RequesterName)
	setTrimmed(&next.ProcessNumber, p.ProcessNumber)
	setTrimmed(&next.DocumentReference, p.DocumentReference)
	setTrimmed(&next.DocumentType, p.DocumentType)
	setTrimmed(&next.Department, p.Department)
	setTrimmed(&next.ResponsibleServer, p.ResponsibleServer)
	setTrimmed(&next.Purpose, p.Purpose)
	if p.Urgent != nil {
		next.Urgent = *p.Urgent
	}
	if p.ExtensionRequested != nil {
		next.ExtensionRequested = *p.ExtensionRequested
	}
	if p.RequestedAt != nil {
		if p.RequestedAt.IsZero() {
			return dErrors.New(dErrors.CodeInvalidInput, "requested_at cannot be empty").With("field", "requested_at")
		}
		next.RequestedAt = *p.RequestedAt
	}
	if err := next.validateDetails(); err != nil {
		return err
	}
	next.UpdatedAt = now
	*r = next
	return nil
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// -----------------------------------------------------------------------------
// Deadline
// -----------------------------------------------------------------------------

// Deadline is the date by which the request should be delivered.
func (r *Request) Deadline() time.Time {
	return r.RequestedAt.Add(ServiceLevelWindow)
}

// IsOverdue reports whether an open request has passed its deadline.
func (r *Request) IsOverdue(now time.Time) bool {
	if r.Status.IsTerminal() {
		return false
	}
	return now.After(r.Deadline())
}

// DaysUntilDeadline returns whole days left until the deadline, rounded up.
// Negative values count days overdue.
func (r *Request) DaysUntilDeadline(now time.Time) int {
	remaining := r.Deadline().Sub(now)
	return int(math.Ceil(remaining.Hours() / 24))
}

// -----------------------------------------------------------------------------
// Authorization predicates (backed by rolePermissions)
// -----------------------------------------------------------------------------

// CanBeAccessedBy: the creator, the assignee, or any elevated role.
func (r *Request) CanBeAccessedBy(userID id.UserID, roles []string) bool {
	if PermissionsFor(roles).Has(PermViewAny) {
		return true
	}
	return r.isCreator(userID) || r.isAssignee(userID)
}

// CanBeEditedBy: edit-any roles always; the creator while not terminal.
func (r *Request) CanBeEditedBy(userID id.UserID, roles []string) bool {
	if PermissionsFor(roles).Has(PermEditAny) {
		return true
	}
	return r.isCreator(userID) && !r.Status.IsTerminal()
}

// CanBeDeletedBy: finalized requests need the delete-finalized permission,
// in-progress ones the delete-in-progress permission; otherwise delete-any
// roles may delete, and the creator may delete their own request while it
// is still in intake.
func (r *Request) CanBeDeletedBy(userID id.UserID, roles []string) bool {
	perms := PermissionsFor(roles)
	switch {
	case r.Status == StatusFinalized:
		return perms.Has(PermDeleteFinalized)
	case r.Status.IsInProgress():
		return perms.Has(PermDeleteInProgress)
	case perms.Has(PermDeleteAny):
		return true
	default:
		return r.isCreator(userID) && r.Status.IsInitial()
	}
}

// CanForceStatus reports whether roles may bypass the transition table.
func (r *Request) CanForceStatus(roles []string) bool {
	return PermissionsFor(roles).Has(PermForceStatus)
}

// CanBeRestoredBy reports whether roles may undo a soft delete.
func (r *Request) CanBeRestoredBy(roles []string) bool {
	return PermissionsFor(roles).Has(PermRestore)
}

// CanBeHardDeletedBy reports whether roles may remove the row for good.
func (r *Request) CanBeHardDeletedBy(roles []string) bool {
	return PermissionsFor(roles).Has(PermHardDelete)
}

func (r *Request) isCreator(userID id.UserID) bool {
	return !userID.IsNil() && r.CreatedBy == userID
}

func (r *Request) isAssignee(userID id.UserID) bool {
	return !userID.IsNil() && r.AssignedTo != nil && *r.AssignedTo == userID
}

// -----------------------------------------------------------------------------
// Soft delete
// -----------------------------------------------------------------------------

// MarkDeleted sets the soft-delete timestamp. Calling it on a deleted request
// changes nothing and reports the original timestamp with alreadyDeleted=true.
func (r *Request) MarkDeleted(now time.Time) (deletedAt time.Time, alreadyDeleted bool) {
	if r.DeletedAt != nil {
		return *r.DeletedAt, true
	}
	r.DeletedAt = &now
	r.UpdatedAt = now
	return now, false
}

// Restore clears the soft-delete timestamp.
//
// Errors: CodeNotDeleted when the request is not deleted.
func (r *Request) Restore(now time.Time) error {
	if r.DeletedAt == nil {
		return dErrors.New(dErrors.CodeNotDeleted, "request is not deleted").With("request_id", r.ID.Int64())
	}
	r.DeletedAt = nil
	r.UpdatedAt = now
	return nil
}

// Clone returns a deep copy so stores never share pointers with callers.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	c.RetrievedAt = cloneTime(r.RetrievedAt)
	c.ReturnedAt = cloneTime(r.ReturnedAt)
	c.DeletedAt = cloneTime(r.DeletedAt)
	if r.AssignedTo != nil {
		a := *r.AssignedTo
		c.AssignedTo = &a
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
