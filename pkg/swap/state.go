// Package swap builds, signs and submits aggregator swaps and tracks each
// attempt through an explicit state machine.
package swap

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is a step of a swap attempt
type State string

const (
	Idle               State = "idle"
	CheckingBalance    State = "checking-balance"
	EnsuringFeeAccount State = "ensuring-fee-account"
	Building           State = "building"
	AwaitingSignature  State = "awaiting-signature"
	Submitting         State = "submitting"
	Succeeded          State = "succeeded"
	Failed             State = "failed"
	Cancelled          State = "cancelled"
)

// Terminal reports whether the attempt has ended
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Cancelled
}

// Active reports whether an attempt is in flight
func (s State) Active() bool {
	return s != Idle && !s.Terminal()
}

var next = map[State]State{
	CheckingBalance:    EnsuringFeeAccount,
	EnsuringFeeAccount: Building,
	Building:           AwaitingSignature,
	AwaitingSignature:  Submitting,
	Submitting:         Succeeded,
}

var (
	ErrAttemptInFlight   = errors.New("a swap is already in progress")
	ErrDismissBlocked    = errors.New("cannot dismiss while a swap is in progress")
	ErrDismissRequired   = errors.New("dismiss the previous swap before starting another")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Transition is one state change
type Transition struct {
	From State
	To   State
	Err  error
	At   time.Time
}

// Machine tracks a single swap attempt. Transitions only move forward;
// a terminal state returns to idle on Dismiss.
type Machine struct {
	mu        sync.Mutex
	state     State
	err       error
	observers []func(Transition)
}

// NewMachine returns an idle machine
func NewMachine() *Machine {
	return &Machine{state: Idle}
}

// Observe registers fn to receive every transition
func (m *Machine) Observe(fn func(Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error that failed the last attempt
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// CanDismiss reports whether the attempt may be closed
func (m *Machine) CanDismiss() bool {
	return !m.State().Active()
}

// Begin starts an attempt in checking-balance. A finished attempt must be
// dismissed first.
func (m *Machine) Begin() error {
	return m.move(func(cur State) (State, error) {
		switch {
		case cur.Active():
			return "", ErrAttemptInFlight
		case cur.Terminal():
			return "", fmt.Errorf("%w: attempt ended in %s", ErrDismissRequired, cur)
		}
		return CheckingBalance, nil
	}, nil)
}

// Advance moves to the next forward state, which must be to
func (m *Machine) Advance(to State) error {
	return m.move(func(cur State) (State, error) {
		if next[cur] != to {
			return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, to)
		}
		return to, nil
	}, nil)
}

// Fail ends an active attempt with err
func (m *Machine) Fail(err error) error {
	return m.move(func(cur State) (State, error) {
		if !cur.Active() {
			return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, Failed)
		}
		return Failed, nil
	}, err)
}

// Cancel ends an attempt whose signature was declined
func (m *Machine) Cancel() error {
	return m.move(func(cur State) (State, error) {
		if cur != AwaitingSignature {
			return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, Cancelled)
		}
		return Cancelled, nil
	}, nil)
}

// Dismiss returns a finished attempt to idle
func (m *Machine) Dismiss() error {
	return m.move(func(cur State) (State, error) {
		if cur.Active() {
			return "", ErrDismissBlocked
		}
		return Idle, nil
	}, nil)
}

func (m *Machine) move(decide func(State) (State, error), cause error) error {
	m.mu.Lock()
	from := m.state
	to, err := decide(from)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.state = to
	if to == Failed || to == CheckingBalance || to == Idle {
		m.err = cause
	}
	observers := append([]func(Transition){}, m.observers...)
	m.mu.Unlock()

	if from == to {
		return nil
	}
	t := Transition{From: from, To: to, Err: cause, At: time.Now()}
	for _, fn := range observers {
		fn(t)
	}
	return nil
}
