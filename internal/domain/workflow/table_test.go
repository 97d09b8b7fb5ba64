package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/domain/errs"
)

type state string

const (
	stateOpen   state = "open"
	stateMiddle state = "middle"
	stateDone   state = "done"
	stateClosed state = "closed"
)

func buildTable() *Table[state] {
	b := NewBuilder[state]()
	b.Configure(stateOpen).
		Permit(TriggerApproveHOD, stateMiddle).
		Permit(TriggerReject, stateClosed)
	b.Configure(stateMiddle).
		Permit(TriggerApproveHR, stateDone).
		Permit(TriggerReject, stateClosed)
	return b.Terminal(stateDone, stateClosed).Build()
}

func TestTableNext(t *testing.T) {
	table := buildTable()

	tests := []struct {
		name    string
		from    state
		trigger Trigger
		want    state
		wantErr bool
	}{
		{"first stage", stateOpen, TriggerApproveHOD, stateMiddle, false},
		{"second stage", stateMiddle, TriggerApproveHR, stateDone, false},
		{"skip stage", stateOpen, TriggerApproveHR, stateOpen, true},
		{"reject early", stateOpen, TriggerReject, stateClosed, false},
		{"reject late", stateMiddle, TriggerReject, stateClosed, false},
		{"terminal approved", stateDone, TriggerApproveHR, stateDone, true},
		{"terminal rejected", stateClosed, TriggerReject, stateClosed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Next(tt.from, tt.trigger)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTablePermitted(t *testing.T) {
	table := buildTable()
	assert.Equal(t, []Trigger{TriggerApproveHOD, TriggerReject}, table.Permitted(stateOpen))
	assert.Empty(t, table.Permitted(stateDone))
	assert.True(t, table.IsTerminal(stateClosed))
	assert.False(t, table.CanFire(stateMiddle, TriggerApproveHOD))
}

func TestBuildIsImmutable(t *testing.T) {
	b := NewBuilder[state]()
	b.Configure(stateOpen).Permit(TriggerApproveHOD, stateMiddle)
	table := b.Build()
	b.Configure(stateOpen).Permit(TriggerReject, stateClosed)

	assert.False(t, table.CanFire(stateOpen, TriggerReject))
}

func TestDuplicatePermitPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewBuilder[state]().Configure(stateOpen).
			Permit(TriggerApproveHOD, stateMiddle).
			Permit(TriggerApproveHOD, stateDone)
	})
}
