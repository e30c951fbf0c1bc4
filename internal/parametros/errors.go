package parametros

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/auditoria360/auditoria360/internal/platform/httpx"
)

// Sentinels shared with the HTTP layer so handlers can map them with errors.Is.
var (
	ErrValidation = httpx.ErrValidation
	ErrNotFound   = httpx.ErrNotFound
	ErrConflict   = httpx.ErrConflict
	ErrStorage    = httpx.ErrUnavailable
)

// ValidationError collects per-field messages for a rejected payload.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an error with a single field message.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add records a message for field, keeping the first one reported.
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	if _, exists := v.Fields[field]; !exists {
		v.Fields[field] = message
	}
}

// HasErrors reports whether any field failed.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// FieldErrors exposes the messages to the HTTP layer.
func (v *ValidationError) FieldErrors() map[string]string {
	return v.Fields
}

func (v *ValidationError) Error() string {
	names := make([]string, 0, len(v.Fields))
	for name := range v.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+v.Fields[name])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageError reports a failing Parameter Store call.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("parametros: storage %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrStorage and the underlying cause.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func notFound(kind Kind, id string) error {
	return fmt.Errorf("%w: %s parameter %s", ErrNotFound, kind, id)
}

func conflict(kind Kind, id string, want, got int64) error {
	return fmt.Errorf("%w: %s parameter %s is at version %d, expected %d", ErrConflict, kind, id, got, want)
}
