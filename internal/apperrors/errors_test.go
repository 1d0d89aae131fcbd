package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorPrimaryAndMessage(t *testing.T) {
	err := NewValidationError("phone is required", "Invalid email format")

	assert.Equal(t, "phone is required", err.Primary())
	assert.Equal(t, "phone is required; Invalid email format", err.Error())
}

func TestValidationErrorEmpty(t *testing.T) {
	err := &ValidationError{}
	assert.Equal(t, "validation failed", err.Primary())
	assert.Equal(t, "validation failed", err.Error())
}

func TestAsValidationThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("appointments: create: %w", NewValidationError("clinic is required"))

	ve, ok := AsValidation(wrapped)
	require.True(t, ok)
	assert.Equal(t, []string{"clinic is required"}, ve.Problems)

	_, ok = AsValidation(errors.New("boom"))
	assert.False(t, ok)
}

func TestDetailErrorUnwrapsToKind(t *testing.T) {
	err := fmt.Errorf("reports: create: %w", WithDetail(ErrMissingFields, "%s", "diagnosis, treatment"))

	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Equal(t, "reports: create: missing required fields: diagnosis, treatment", err.Error())
	assert.Equal(t, "missing required fields: diagnosis, treatment", Public(err))
}

func TestPublicDropsWrappingText(t *testing.T) {
	assert.Equal(t, "invalid status", Public(fmt.Errorf("contacts: list: %w: db said no", ErrInvalidStatus)))
	assert.Equal(t, "internal error", Public(errors.New("dial tcp 10.0.0.3:3306: refused")))
}
