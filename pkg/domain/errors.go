package domain

import (
	"fmt"
	"strings"
)

// NotFoundError reports that a record does not exist.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", strings.ToLower(string(e.Entity)))
	}
	return fmt.Sprintf("%s %s not found", strings.ToLower(string(e.Entity)), e.ID)
}

// NewNotFound builds a NotFoundError for the given entity and id.
func NewNotFound(entity EntityType, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

// ValidationError reports a constraint violation on caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError for a named field.
func NewValidation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ReferencedEntityError reports that a delete is blocked because other rows
// still reference the target. ReferencingIDs lists the blocking rows.
type ReferencedEntityError struct {
	Entity         EntityType
	ID             int64
	Referencing    EntityType
	ReferencingIDs []int64
}

func (e *ReferencedEntityError) Error() string {
	return fmt.Sprintf("%s %d is referenced by %d %s record(s)",
		strings.ToLower(string(e.Entity)), e.ID, len(e.ReferencingIDs), strings.ToLower(string(e.Referencing)))
}

// InvalidReplacementError reports a bad reassignment target on delete.
type InvalidReplacementError struct {
	Message string
}

func (e *InvalidReplacementError) Error() string { return e.Message }

// InvalidSortFieldError reports an unknown or unsupported sort column.
type InvalidSortFieldError struct {
	Entity EntityType
	Field  string
}

func (e *InvalidSortFieldError) Error() string {
	return fmt.Sprintf("unknown sort field %q for %s", e.Field, strings.ToLower(string(e.Entity)))
}

// StorageUnavailableError reports that the blob store could not be reached.
type StorageUnavailableError struct {
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("blob storage unavailable: %v", e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

// ImportParseError reports a structurally malformed import file.
type ImportParseError struct {
	Err error
}

func (e *ImportParseError) Error() string {
	return fmt.Sprintf("parse import file: %v", e.Err)
}

func (e *ImportParseError) Unwrap() error { return e.Err }

// ImportValidationError reports a semantically invalid import record.
// Index is the zero-based position of the offending record.
type ImportValidationError struct {
	Index   int
	Message string
}

func (e *ImportValidationError) Error() string {
	if e.Index < 0 {
		return e.Message
	}
	return fmt.Sprintf("record %d: %s", e.Index, e.Message)
}
