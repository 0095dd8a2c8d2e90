package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrTokenExpired_IsUnauthenticated(t *testing.T) {
	assert.True(t, errors.Is(ErrTokenExpired, ErrUnauthenticated))
	assert.False(t, errors.Is(ErrUnauthenticated, ErrTokenExpired))
}

func TestValidationError_MessageAndFields(t *testing.T) {
	err := &ValidationError{Violations: []FieldViolation{
		{Field: "/tasks/0/title", Reason: "minLength: got 0, want 1"},
		{Field: "", Reason: "missing property 'tasks'"},
	}}

	assert.Equal(t, []string{"/tasks/0/title", ""}, err.Fields())
	assert.Contains(t, err.Error(), "/tasks/0/title: minLength")
	assert.Contains(t, err.Error(), "/: missing property")
}

func TestValidationError_As(t *testing.T) {
	wrapped := fmt.Errorf("decode: %w", &ValidationError{Violations: []FieldViolation{{Field: "/x", Reason: "bad"}}})

	var ve *ValidationError
	require.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, "/x", ve.Violations[0].Field)
}

func TestValidationError_Empty(t *testing.T) {
	assert.Equal(t, "validation error", (&ValidationError{}).Error())
}
