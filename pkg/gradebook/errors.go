package gradebook

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized     = errors.New("gradebook.unauthorized")
	ErrForbidden        = errors.New("gradebook.forbidden")
	ErrNotFound         = errors.New("gradebook.not_found")
	ErrInvalidInput     = errors.New("gradebook.invalid_input")
	ErrUnexpectedStatus = errors.New("gradebook.unexpected_status")

	// ErrInvalidGradeSheet is returned by ParseGradeSheet.
	ErrInvalidGradeSheet = errors.New("gradebook.invalid_grade_sheet")
)

// StatusError reports a non-success response from the grade service.
type StatusError struct {
	StatusCode int
	// Detail is the server supplied reason, when there is one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("gradebook: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Detail)
	}
	return fmt.Sprintf("gradebook: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap maps the status onto a sentinel so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrInvalidInput
	}
	return ErrUnexpectedStatus
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors is returned when input is rejected before any request is made.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// Has reports whether field failed validation.
func (fe FieldErrors) Has(field string) bool {
	for _, e := range fe {
		if e.Field == field {
			return true
		}
	}
	return false
}

func (fe *FieldErrors) add(field, message string) {
	*fe = append(*fe, FieldError{Field: field, Message: message})
}

func (fe FieldErrors) orNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}
