// Package common defines shared constants and sentinel errors used across
// client and server layers of taskmate. Callers should use errors.Is to
// match these values and errors.As for *ValidationError.
package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")

	// ErrUnauthenticated covers missing, malformed, forged and expired tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTokenExpired    = fmt.Errorf("%w: token expired", ErrUnauthenticated)

	// ErrIdentityRejected is returned when an external identity assertion
	// cannot be verified or lacks a verified email.
	ErrIdentityRejected = errors.New("identity rejected")

	// ErrTransaction marks a storage fault during a sync transaction. The
	// transaction has been rolled back when this is returned.
	ErrTransaction = errors.New("transaction failed")
)

// FieldViolation is a single schema violation. Field is a JSON pointer into
// the request body ("" for the document root).
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports every violation found in a request body.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation error"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		field := v.Field
		if field == "" {
			field = "/"
		}
		parts = append(parts, field+": "+v.Reason)
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Fields returns the violated field paths in report order.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Field)
	}
	return out
}
