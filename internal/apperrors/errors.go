// Package apperrors defines the error kinds callers of the ledger and the
// aggregation engine can branch on.
package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidArgument indicates a caller passed an out-of-range value, such as month 13.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrStore indicates the underlying store failed to answer a query.
var ErrStore = errors.New("store error")

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// Error carries a kind sentinel plus the failing operation and its cause.
type Error struct {
	Kind   error
	Op     string
	Err    error
	Fields map[string]string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the kind sentinel, so errors.Is(err, ErrStore) works through wrapping.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidArgument builds an ErrInvalidArgument error with a formatted detail.
func InvalidArgument(op, format string, args ...any) error {
	return &Error{Kind: ErrInvalidArgument, Op: op, Err: fmt.Errorf(format, args...)}
}

// Store wraps a store failure. A nil cause yields nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrStore, Op: op, Err: err}
}

// NotFound reports a missing resource.
func NotFound(op, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Op: op, Err: fmt.Errorf(format, args...)}
}

// Validation reports per-field input problems.
func Validation(op string, fields map[string]string) error {
	return &Error{Kind: ErrValidation, Op: op, Fields: fields}
}

// FieldsOf returns the field messages of a validation error, if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
