package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidationError_NilWhenEmpty(t *testing.T) {
	assert.NoError(t, NewValidationError(nil))
	assert.NoError(t, NewValidationError([]Problem{}))
}

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := NewValidationError([]Problem{
		RowProblem(7, "scheduled_value", "invalid scheduled value '12,,00'"),
		LineProblem(0, "amount", "amount must be greater than zero"),
		GeneralProblem("total", "lines do not sum to total"),
	})
	require.Error(t, err)

	wrapped := fmt.Errorf("import: %w", err)
	assert.True(t, errors.Is(wrapped, ErrValidation))

	var ve *ValidationError
	require.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, []string{
		"Row 7: invalid scheduled value '12,,00'",
		"Line 1: amount must be greater than zero",
		"lines do not sum to total",
	}, ve.Reasons())
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrPermissionDenied, "permission_denied"},
		{fmt.Errorf("approve: %w", ErrAlreadyLocked), "already_locked"},
		{ErrEmptySOV, "empty_sov"},
		{ErrUnsavedChanges, "unsaved_changes"},
		{ErrConflict, "conflict"},
		{ErrDraftInProgress, "draft_in_progress"},
		{&ValidationError{Problems: []Problem{GeneralProblem("", "x")}}, "validation_error"},
		{errors.New("disk on fire"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}
