package services

import (
	"errors"
	"strings"

	"stockroom/internal/repos"
	"stockroom/internal/validate"
)

var (
	ErrNotFound     = repos.ErrNotFound
	ErrConflict     = repos.ErrConflict
	ErrBadCreds     = errors.New("invalid email or password")
	ErrUnauthorized = errors.New("access token required")
	ErrForbidden    = errors.New("invalid or expired token")
)

// ValidationError carries per-field problems with a request.
type ValidationError struct {
	Fields []validate.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// kindError gives a sentinel a caller-facing message; errors.Is still matches the sentinel.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func notFound(msg string) error { return &kindError{kind: ErrNotFound, msg: msg} }
func conflict(msg string) error { return &kindError{kind: ErrConflict, msg: msg} }

func invalid(field, msg string) error {
	return &ValidationError{Fields: []validate.FieldError{{Field: field, Message: msg}}}
}

// check runs struct validation and wraps any failures.
func check(in any) error {
	if errs := validate.Struct(in); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
