// Package workflow declares fixed approval transition tables.
package workflow

import (
	"fmt"
	"sort"

	"timesheet/internal/domain/errs"
)

// Trigger is an approval action that moves a request between states.
type Trigger string

const (
	TriggerApproveHOD        Trigger = "approve_hod"
	TriggerApproveHR         Trigger = "approve_hr"
	TriggerApproveFinance    Trigger = "approve_finance"
	TriggerApproveManagement Trigger = "approve_management"
	TriggerReject            Trigger = "reject"
	TriggerStart             Trigger = "start"
	TriggerResolve           Trigger = "resolve"
	TriggerClose             Trigger = "close"
	TriggerReopen            Trigger = "reopen"
)

func (t Trigger) String() string {
	return string(t)
}

type Builder[S ~string] struct {
	transitions map[S]map[Trigger]S
	terminal    map[S]bool
}

type StateConfig[S ~string] struct {
	builder *Builder[S]
	from    S
}

func NewBuilder[S ~string]() *Builder[S] {
	return &Builder[S]{
		transitions: make(map[S]map[Trigger]S),
		terminal:    make(map[S]bool),
	}
}

func (b *Builder[S]) Configure(state S) *StateConfig[S] {
	if _, ok := b.transitions[state]; !ok {
		b.transitions[state] = make(map[Trigger]S)
	}
	return &StateConfig[S]{builder: b, from: state}
}

// Permit panics on a duplicate trigger; tables are declared at init time.
func (c *StateConfig[S]) Permit(trigger Trigger, to S) *StateConfig[S] {
	if existing, ok := c.builder.transitions[c.from][trigger]; ok {
		panic(fmt.Sprintf("workflow: %s already permits %s to %s", c.from, trigger, existing))
	}
	c.builder.transitions[c.from][trigger] = to
	return c
}

func (b *Builder[S]) Terminal(states ...S) *Builder[S] {
	for _, s := range states {
		b.terminal[s] = true
	}
	return b
}

func (b *Builder[S]) Build() *Table[S] {
	transitions := make(map[S]map[Trigger]S, len(b.transitions))
	for from, triggers := range b.transitions {
		copied := make(map[Trigger]S, len(triggers))
		for trigger, to := range triggers {
			copied[trigger] = to
		}
		transitions[from] = copied
	}
	terminal := make(map[S]bool, len(b.terminal))
	for s := range b.terminal {
		terminal[s] = true
	}
	return &Table[S]{transitions: transitions, terminal: terminal}
}

// Table is an immutable transition table.
type Table[S ~string] struct {
	transitions map[S]map[Trigger]S
	terminal    map[S]bool
}

// Next returns the state reached by firing trigger from the given state.
func (t *Table[S]) Next(from S, trigger Trigger) (S, error) {
	if t.terminal[from] {
		return from, fmt.Errorf("%w: %s is terminal, cannot %s", errs.ErrInvalidTransition, from, trigger)
	}
	to, ok := t.transitions[from][trigger]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s from %s", errs.ErrInvalidTransition, trigger, from)
	}
	return to, nil
}

func (t *Table[S]) CanFire(from S, trigger Trigger) bool {
	_, err := t.Next(from, trigger)
	return err == nil
}

func (t *Table[S]) IsTerminal(s S) bool {
	return t.terminal[s]
}

// Permitted lists the triggers allowed from a state in a stable order.
func (t *Table[S]) Permitted(from S) []Trigger {
	if t.terminal[from] {
		return nil
	}
	out := make([]Trigger, 0, len(t.transitions[from]))
	for trigger := range t.transitions[from] {
		out = append(out, trigger)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
