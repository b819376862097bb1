package domain

import (
	"strconv"
	"strings"

	dErrors "desarquivamento/pkg/domain-errors"
)

// RequestID identifies a desarquivamento request.
// Invariant: the value is a positive integer.
//
// Usage: construct via ParseRequestID or NewRequestID at trust boundaries;
// direct conversion bypasses validation.
type RequestID int64

// UserID identifies an account of the records office.
// Invariant: the value is a positive integer.
type UserID int64

// maxIDLength bounds the textual form of an id (len of max int64).
const maxIDLength = 19

// NewRequestID validates a numeric request id.
func NewRequestID(v int64) (RequestID, error) {
	if v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "request id must be a positive integer").With("value", v)
	}
	return RequestID(v), nil
}

// ParseRequestID parses a request id from external input.
//
// Errors: returns CodeInvalidInput for empty, non-integer, zero, negative or
// overflowing input.
func ParseRequestID(s string) (RequestID, error) {
	v, err := parsePositive(s, "request id")
	if err != nil {
		return 0, err
	}
	return RequestID(v), nil
}

// Int64 returns the underlying value.
func (id RequestID) Int64() int64 {
	return int64(id)
}

func (id RequestID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IsNil returns true for the zero value, which never identifies a request.
func (id RequestID) IsNil() bool {
	return id <= 0
}

// NewUserID validates a numeric user id.
func NewUserID(v int64) (UserID, error) {
	if v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "user id must be a positive integer").With("value", v)
	}
	return UserID(v), nil
}

// ParseUserID parses a user id from external input.
func ParseUserID(s string) (UserID, error) {
	v, err := parsePositive(s, "user id")
	if err != nil {
		return 0, err
	}
	return UserID(v), nil
}

func (id UserID) Int64() int64 {
	return int64(id)
}

func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id UserID) IsNil() bool {
	return id <= 0
}

func parsePositive(s, label string) (int64, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if len(s) > maxIDLength || strings.TrimSpace(s) != s {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, label+" must be a positive integer")
	}
	return v, nil
}
