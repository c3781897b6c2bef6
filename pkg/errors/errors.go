package pollbox_errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("invalid token")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyClosed = errors.New("poll already closed")
	ErrStorage       = errors.New("storage failure")

	// ErrInvalidVote rejects a selection that does not fit the poll it targets.
	ErrInvalidVote = fmt.Errorf("%w: free response not allowed or invalid vote", ErrInvalidInput)
)

// ValidationError carries per-field messages. It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Storage wraps a database or blob failure so it matches ErrStorage.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
