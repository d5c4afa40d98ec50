package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted in the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when a guard refuses without giving a reason
	ErrGuardFailed = errors.New("guard condition failed")
)
