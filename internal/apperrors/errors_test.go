package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesKindAndCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := apperrors.NewConflictError("lock balances", cause)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, "lock balances: deadlock detected", err.Error())
}

func TestAppError_WrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("create item: %w", apperrors.NewValidationError("amount is required"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, "amount is required", appErr.Message)
}

func TestNewAppError_DefaultsToInternal(t *testing.T) {
	err := apperrors.NewAppError(nil, "boom", nil)
	assert.ErrorIs(t, err, apperrors.ErrInternal)
}
