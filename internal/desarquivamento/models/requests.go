package models

import (
	"strings"
	"time"

	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Actor identifies who issues a command. Transports fill it from the
// authenticated principal, never from the request body.
type Actor struct {
	UserID    id.UserID `json:"-"`
	UserRoles []string  `json:"-"`
}

// Validate checks the actor shape and normalizes the role list in place.
func (a *Actor) Validate() error {
	if a.UserID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "user id must be a positive integer")
	}
	roles, err := NormalizeRoles(a.UserRoles)
	if err != nil {
		return err
	}
	a.UserRoles = roles
	return nil
}

func parseAssignee(raw *int64) (*id.UserID, error) {
	if raw == nil {
		return nil, nil
	}
	userID, err := id.NewUserID(*raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "assigned_to must be a positive user id").With("field", "assigned_to")
	}
	return &userID, nil
}

// CreateCommand is the intake payload.
type CreateCommand struct {
	Actor
	RequesterName      string     `json:"requester_name"`
	ProcessNumber      string     `json:"process_number"`
	DocumentReference  string     `json:"document_reference"`
	DocumentType       string     `json:"document_type"`
	Urgent             bool       `json:"urgent"`
	RequestedAt        *time.Time `json:"requested_at,omitempty"`
	Department         string     `json:"department"`
	ResponsibleServer  string     `json:"responsible_server"`
	Purpose            string     `json:"purpose"`
	ExtensionRequested bool       `json:"extension_requested"`
	AssignedTo         *int64     `json:"assigned_to,omitempty"`

	assignee *id.UserID
}

func (c *CreateCommand) Normalize() {
	if c == nil {
		return
	}
	c.RequesterName = strings.TrimSpace(c.RequesterName)
	c.ProcessNumber = strings.TrimSpace(c.ProcessNumber)
	c.DocumentReference = strings.TrimSpace(c.DocumentReference)
	c.DocumentType = strings.TrimSpace(c.DocumentType)
	c.Department = strings.TrimSpace(c.Department)
	c.ResponsibleServer = strings.TrimSpace(c.ResponsibleServer)
	c.Purpose = strings.TrimSpace(c.Purpose)
}

// Validate checks primitive inputs. Field-level rules are enforced again by
// NewRequest.
func (c *CreateCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := c.Actor.Validate(); err != nil {
		return err
	}
	assignee, err := parseAssignee(c.AssignedTo)
	if err != nil {
		return err
	}
	c.assignee = assignee
	return nil
}

// Params converts a validated command into aggregate constructor input.
func (c *CreateCommand) Params() NewRequestParams {
	p := NewRequestParams{
		RequesterName:      c.RequesterName,
		ProcessNumber:      c.ProcessNumber,
		DocumentReference:  c.DocumentReference,
		DocumentType:       c.DocumentType,
		Urgent:             c.Urgent,
		Department:         c.Department,
		ResponsibleServer:  c.ResponsibleServer,
		Purpose:            c.Purpose,
		ExtensionRequested: c.ExtensionRequested,
		CreatedBy:          c.UserID,
		AssignedTo:         c.assignee,
	}
	if c.RequestedAt != nil {
		p.RequestedAt = *c.RequestedAt
	}
	return p
}

// UpdateCommand carries optional edits. Nil fields are left untouched.
// Mutations apply in a fixed order: details, dates, assignee, status.
type UpdateCommand struct {
	Actor
	ID id.RequestID `json:"-"`

	RequesterName      *string    `json:"requester_name,omitempty"`
	ProcessNumber      *string    `json:"process_number,omitempty"`
	DocumentReference  *string    `json:"document_reference,omitempty"`
	DocumentType       *string    `json:"document_type,omitempty"`
	Urgent             *bool      `json:"urgent,omitempty"`
	RequestedAt        *time.Time `json:"requested_at,omitempty"`
	Department         *string    `json:"department,omitempty"`
	ResponsibleServer  *string    `json:"responsible_server,omitempty"`
	Purpose            *string    `json:"purpose,omitempty"`
	ExtensionRequested *bool      `json:"extension_requested,omitempty"`

	RetrievedAt *time.Time `json:"retrieved_at,omitempty"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`

	AssignedTo *int64 `json:"assigned_to,omitempty"`
	Unassign   bool   `json:"unassign,omitempty"`

	Status *string `json:"status,omitempty"`
	Force  bool    `json:"force,omitempty"`

	assignee *id.UserID
	status   Status
}

func (c *UpdateCommand) Normalize() {
	if c == nil {
		return
	}
	if c.Status != nil {
		s := strings.ToLower(strings.TrimSpace(*c.Status))
		c.Status = &s
	}
}

// Follows validation order: Required -> Syntax -> Semantic.
func (c *UpdateCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if c.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "request id must be a positive integer")
	}
	if err := c.Actor.Validate(); err != nil {
		return err
	}
	if c.AssignedTo != nil && c.Unassign {
		return dErrors.New(dErrors.CodeInvalidInput, "assigned_to and unassign are mutually exclusive")
	}
	assignee, err := parseAssignee(c.AssignedTo)
	if err != nil {
		return err
	}
	c.assignee = assignee
	if c.Status != nil {
		st, err := ParseStatus(*c.Status)
		if err != nil {
			return err
		}
		c.status = st
	} else if c.Force {
		return dErrors.New(dErrors.CodeInvalidInput, "force requires a status")
	}
	return nil
}

// DetailsPatch extracts the descriptive-field edits.
func (c *UpdateCommand) DetailsPatch() RequestDetailsPatch {
	return RequestDetailsPatch{
		RequesterName:      c.RequesterName,
		ProcessNumber:      c.ProcessNumber,
		DocumentReference:  c.DocumentReference,
		DocumentType:       c.DocumentType,
		Urgent:             c.Urgent,
		RequestedAt:        c.RequestedAt,
		Department:         c.Department,
		ResponsibleServer:  c.ResponsibleServer,
		Purpose:            c.Purpose,
		ExtensionRequested: c.ExtensionRequested,
	}
}

// ChangesAssignee reports whether the command sets or clears the assignee.
func (c *UpdateCommand) ChangesAssignee() bool {
	return c.assignee != nil || c.Unassign
}

// Assignee returns the parsed assignee; nil together with Unassign clears it.
func (c *UpdateCommand) Assignee() *id.UserID {
	return c.assignee
}

// TargetStatus returns the parsed status and whether one was requested.
func (c *UpdateCommand) TargetStatus() (Status, bool) {
	return c.status, c.Status != nil
}

// DeleteCommand removes a request. Permanent removes the row for good.
type DeleteCommand struct {
	Actor
	ID        id.RequestID
	Permanent bool
}

func (c *DeleteCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if c.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "request id must be a positive integer")
	}
	return c.Actor.Validate()
}

// RestoreCommand undoes a soft delete.
type RestoreCommand struct {
	Actor
	ID id.RequestID
}

func (c *RestoreCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if c.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "request id must be a positive integer")
	}
	return c.Actor.Validate()
}

// FindByIDQuery loads one request for display.
type FindByIDQuery struct {
	Actor
	ID id.RequestID
}

func (q *FindByIDQuery) Validate() error {
	if q == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if q.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "request id must be a positive integer")
	}
	return q.Actor.Validate()
}

// GenerateDocumentCommand renders the delivery receipt of a request.
type GenerateDocumentCommand struct {
	Actor
	ID id.RequestID
}

func (c *GenerateDocumentCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if c.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "request id must be a positive integer")
	}
	return c.Actor.Validate()
}

// ImportRow is one parsed spreadsheet line.
type ImportRow struct {
	Line    int
	Command CreateCommand
}

// ImportCommand creates one request per parsed spreadsheet row.
type ImportCommand struct {
	Actor
	Rows []ImportRow
}

func (c *ImportCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := c.Actor.Validate(); err != nil {
		return err
	}
	if len(c.Rows) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "import has no rows")
	}
	return nil
}
