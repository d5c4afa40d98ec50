package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a transition may proceed. A non-nil error is
// the reason it may not and is returned from Fire unchanged
type GuardFunc func(ctx context.Context) error

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns the configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a machine positioned at the given state
	Build(initial State) StateMachine
}

// StateConfiguration configures transitions out of one state
type StateConfiguration interface {
	// Permit allows a trigger to move to the target state
	Permit(trigger Trigger, to State) StateConfiguration

	// PermitIf allows a trigger to move to the target state when the guard passes
	PermitIf(trigger Trigger, to State, guard GuardFunc) StateConfiguration

	// RejectWith sets the error returned for triggers this state does not permit
	RejectWith(err error) StateConfiguration
}

type transition struct {
	to    State
	guard GuardFunc
}

type stateConfig struct {
	transitions map[Trigger][]transition
	rejection   error
}

type stateMachineBuilder struct {
	configs map[State]*stateConfig
}

type stateMachine struct {
	current State
	configs map[State]*stateConfig
}

// NewBuilder creates an empty builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{configs: make(map[State]*stateConfig)}
}

func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	cfg, ok := b.configs[state]
	if !ok {
		cfg = &stateConfig{transitions: make(map[Trigger][]transition)}
		b.configs[state] = cfg
	}
	return cfg
}

func (b *stateMachineBuilder) Build(initial State) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	// copy so later Configure calls do not leak into built machines
	configs := make(map[State]*stateConfig, len(b.configs))
	for state, cfg := range b.configs {
		ts := make(map[Trigger][]transition, len(cfg.transitions))
		for trigger, list := range cfg.transitions {
			ts[trigger] = append([]transition(nil), list...)
		}
		configs[state] = &stateConfig{transitions: ts, rejection: cfg.rejection}
	}

	return &stateMachine{current: initial, configs: configs}
}

func (c *stateConfig) Permit(trigger Trigger, to State) StateConfiguration {
	return c.PermitIf(trigger, to, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, to State, guard GuardFunc) StateConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}
	c.transitions[trigger] = append(c.transitions[trigger], transition{to: to, guard: guard})
	return c
}

func (c *stateConfig) RejectWith(err error) StateConfiguration {
	c.rejection = err
	return c
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	cfg, ok := m.configs[m.current]
	if !ok {
		return false
	}
	return len(cfg.transitions[trigger]) > 0
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	cfg, ok := m.configs[m.current]
	if !ok || len(cfg.transitions[trigger]) == 0 {
		if ok && cfg.rejection != nil {
			return cfg.rejection
		}
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	// the first guard error wins so callers see the highest-priority reason
	var firstErr error
	for _, t := range cfg.transitions[trigger] {
		if t.guard == nil {
			m.current = t.to
			return nil
		}
		err := t.guard(ctx)
		if err == nil {
			m.current = t.to
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		firstErr = fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
	}
	return firstErr
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	cfg, ok := m.configs[m.current]
	if !ok {
		return []Trigger{}
	}
	out := make([]Trigger, 0, len(cfg.transitions))
	for trigger := range cfg.transitions {
		out = append(out, trigger)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
