// Package errs defines the outcome kinds returned by the billing engine.
// Every kind except ErrConflict is an expected, user-facing result that
// callers branch on; ErrConflict means the caller's view is stale and it
// should re-fetch before trying again
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation matches any *ValidationError via errors.Is
	ErrValidation = errors.New("validation failed")

	// ErrPermissionDenied is returned when the actor lacks an approver role
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAlreadyLocked is returned when a draw already exists for the job
	ErrAlreadyLocked = errors.New("schedule of values is locked")

	// ErrEmptySOV is returned when approving an SOV with no active items
	ErrEmptySOV = errors.New("schedule of values has no line items")

	// ErrUnsavedChanges is returned when approving with pending local edits
	ErrUnsavedChanges = errors.New("schedule of values has unsaved changes")

	// ErrConflict is returned when a concurrent write invalidated the caller's view
	ErrConflict = errors.New("concurrent modification")

	// ErrApproved is returned when a financial edit targets an approved SOV
	ErrApproved = errors.New("schedule of values is approved")

	// ErrDraftInProgress is returned when a second draft draw is requested
	ErrDraftInProgress = errors.New("a draft draw is already in progress")

	// ErrSOVNotReady is returned when the first draw is requested before approval
	ErrSOVNotReady = errors.New("schedule of values is not approved")

	// ErrOverContract is returned under the block balance policy
	ErrOverContract = errors.New("bill exceeds remaining contract balance")

	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("not found")
)

// Problem is one row- or line-level validation failure.
// Row is the 1-based source row (0 when not applicable); Line is the
// 0-based distribution line index (-1 when not applicable)
type Problem struct {
	Row     int    `json:"row,omitempty"`
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// String renders the problem the way it is shown to users
func (p Problem) String() string {
	switch {
	case p.Row > 0:
		return fmt.Sprintf("Row %d: %s", p.Row, p.Message)
	case p.Line >= 0:
		return fmt.Sprintf("Line %d: %s", p.Line+1, p.Message)
	default:
		return p.Message
	}
}

// RowProblem builds a Problem tied to a source row
func RowProblem(row int, field, msg string) Problem {
	return Problem{Row: row, Line: -1, Field: field, Message: msg}
}

// LineProblem builds a Problem tied to a distribution line
func LineProblem(line int, field, msg string) Problem {
	return Problem{Line: line, Field: field, Message: msg}
}

// GeneralProblem builds a Problem that applies to the whole batch
func GeneralProblem(field, msg string) Problem {
	return Problem{Line: -1, Field: field, Message: msg}
}

// ValidationError carries every problem found in one batch
type ValidationError struct {
	Problems []Problem `json:"problems"`
}

// NewValidationError wraps problems; it returns nil when there are none
func NewValidationError(problems []Problem) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// Error joins all problems into one message
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Reasons returns the rendered problem strings
func (e *ValidationError) Reasons() []string {
	out := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		out = append(out, p.String())
	}
	return out
}

// Code returns a stable machine-readable code for an outcome kind
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrAlreadyLocked):
		return "already_locked"
	case errors.Is(err, ErrEmptySOV):
		return "empty_sov"
	case errors.Is(err, ErrUnsavedChanges):
		return "unsaved_changes"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrApproved):
		return "approved"
	case errors.Is(err, ErrDraftInProgress):
		return "draft_in_progress"
	case errors.Is(err, ErrSOVNotReady):
		return "sov_not_ready"
	case errors.Is(err, ErrOverContract):
		return "over_contract"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}
