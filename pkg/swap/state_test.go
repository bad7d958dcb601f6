package swap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineForwardPath(t *testing.T) {
	m := NewMachine()
	var seen []State
	m.Observe(func(tr Transition) { seen = append(seen, tr.To) })

	require.NoError(t, m.Begin())
	for _, s := range []State{EnsuringFeeAccount, Building, AwaitingSignature, Submitting, Succeeded} {
		require.NoError(t, m.Advance(s), s)
	}

	assert.Equal(t, []State{CheckingBalance, EnsuringFeeAccount, Building, AwaitingSignature, Submitting, Succeeded}, seen)
	assert.True(t, m.CanDismiss())
	require.NoError(t, m.Dismiss())
	assert.Equal(t, Idle, m.State())
}

func TestMachineRejectsSkips(t *testing.T) {
	m := NewMachine()
	assert.ErrorIs(t, m.Advance(CheckingBalance), ErrInvalidTransition)

	require.NoError(t, m.Begin())
	assert.ErrorIs(t, m.Advance(Building), ErrInvalidTransition)
	assert.ErrorIs(t, m.Advance(Succeeded), ErrInvalidTransition)
	assert.Equal(t, CheckingBalance, m.State())
}

func TestMachineDismissBlockedWhileActive(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Begin())

	for _, s := range []State{EnsuringFeeAccount, Building, AwaitingSignature, Submitting} {
		assert.False(t, m.CanDismiss())
		assert.ErrorIs(t, m.Dismiss(), ErrDismissBlocked)
		require.NoError(t, m.Advance(s))
	}
	assert.ErrorIs(t, m.Dismiss(), ErrDismissBlocked)
	assert.Equal(t, Submitting, m.State())
}

func TestMachineBeginWhileInFlight(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Begin())
	assert.ErrorIs(t, m.Begin(), ErrAttemptInFlight)

	boom := errors.New("boom")
	require.NoError(t, m.Fail(boom))
	assert.Equal(t, Failed, m.State())
	assert.Equal(t, boom, m.Err())

	assert.ErrorIs(t, m.Begin(), ErrDismissRequired)
	assert.Equal(t, Failed, m.State())

	require.NoError(t, m.Dismiss())
	require.NoError(t, m.Begin())
	assert.Equal(t, CheckingBalance, m.State())
	assert.NoError(t, m.Err())
}

func TestMachineBeginRequiresDismissAfterEveryOutcome(t *testing.T) {
	finish := map[State]func(m *Machine) error{
		Failed: func(m *Machine) error { return m.Fail(errors.New("boom")) },
		Cancelled: func(m *Machine) error {
			for _, s := range []State{EnsuringFeeAccount, Building, AwaitingSignature} {
				if err := m.Advance(s); err != nil {
					return err
				}
			}
			return m.Cancel()
		},
		Succeeded: func(m *Machine) error {
			for _, s := range []State{EnsuringFeeAccount, Building, AwaitingSignature, Submitting, Succeeded} {
				if err := m.Advance(s); err != nil {
					return err
				}
			}
			return nil
		},
	}

	for end, run := range finish {
		t.Run(string(end), func(t *testing.T) {
			m := NewMachine()
			require.NoError(t, m.Begin())
			require.NoError(t, run(m))
			require.Equal(t, end, m.State())

			assert.ErrorIs(t, m.Begin(), ErrDismissRequired)
			assert.Equal(t, end, m.State())

			require.NoError(t, m.Dismiss())
			assert.NoError(t, m.Begin())
		})
	}
}

func TestMachineCancelOnlyWhileAwaitingSignature(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Begin())
	assert.ErrorIs(t, m.Cancel(), ErrInvalidTransition)

	require.NoError(t, m.Advance(EnsuringFeeAccount))
	require.NoError(t, m.Advance(Building))
	require.NoError(t, m.Advance(AwaitingSignature))
	require.NoError(t, m.Cancel())
	assert.Equal(t, Cancelled, m.State())
	assert.NoError(t, m.Err())

	assert.ErrorIs(t, m.Fail(errors.New("late")), ErrInvalidTransition)
}
