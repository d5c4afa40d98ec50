package workflow

import "context"

// StateMachine tracks the current SOV state and validates triggers against it
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger has a transition from the current state
	CanFire(trigger Trigger) bool

	// Fire evaluates guards in order and moves to the first passing target
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []Trigger
}
