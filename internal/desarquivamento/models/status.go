package models

import (
	"slices"

	dErrors "desarquivamento/pkg/domain-errors"
)

// Status is where the archived file currently sits in the retrieval workflow.
// Invariant: the value is one of the seven codes below.
//
// Usage: construct via ParseStatus at trust boundaries; direct casting
// bypasses validation.
type Status string

const (
	StatusRequested            Status = "requested"
	StatusRetrieved            Status = "retrieved"
	StatusNotCollected         Status = "not_collected"
	StatusReturnedByDepartment Status = "returned_by_department"
	StatusRearchivalRequested  Status = "rearchival_requested"
	StatusNotLocated           Status = "not_located"
	StatusFinalized            Status = "finalized"
)

// statusLabels is the single source of truth for valid statuses.
var statusLabels = map[Status]string{
	StatusRequested:            "Requested",
	StatusRetrieved:            "Retrieved",
	StatusNotCollected:         "Not collected",
	StatusReturnedByDepartment: "Returned by department",
	StatusRearchivalRequested:  "Rearchival requested",
	StatusNotLocated:           "Not located",
	StatusFinalized:            "Finalized",
}

// allowedTransitions is the workflow graph. Requested is the only entry
// state; Finalized and NotLocated have no outgoing edges.
var allowedTransitions = map[Status][]Status{
	StatusRequested:            {StatusRetrieved, StatusNotCollected, StatusNotLocated, StatusRearchivalRequested},
	StatusRetrieved:            {StatusReturnedByDepartment, StatusRearchivalRequested, StatusFinalized},
	StatusNotCollected:         {StatusRetrieved, StatusRearchivalRequested},
	StatusReturnedByDepartment: {StatusFinalized, StatusRearchivalRequested},
	StatusRearchivalRequested:  {StatusFinalized, StatusNotLocated},
	StatusNotLocated:           nil,
	StatusFinalized:            nil,
}

// ParseStatus constructs a Status from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unknown.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status cannot be empty")
	}
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status").With("status", s)
	}
	return st, nil
}

// AllStatuses returns every status in workflow order.
func AllStatuses() []Status {
	return []Status{
		StatusRequested,
		StatusRetrieved,
		StatusNotCollected,
		StatusReturnedByDepartment,
		StatusRearchivalRequested,
		StatusNotLocated,
		StatusFinalized,
	}
}

func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// Label returns the human-readable name used in documents and notifications.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsInitial reports whether s is the intake state.
func (s Status) IsInitial() bool {
	return s == StatusRequested
}

// IsTerminal reports whether s is final (no outgoing transitions).
func (s Status) IsTerminal() bool {
	return s == StatusFinalized || s == StatusNotLocated
}

// IsInProgress reports whether s is an active working state: neither the
// intake state nor a terminal one.
func (s Status) IsInProgress() bool {
	return s.IsValid() && !s.IsInitial() && !s.IsTerminal()
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(allowedTransitions[s], next)
}

// NextStatuses returns the statuses reachable from s in one step.
func (s Status) NextStatuses() []Status {
	return slices.Clone(allowedTransitions[s])
}
