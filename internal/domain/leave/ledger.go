package leave

import (
	"context"
	"fmt"

	"timesheet/internal/domain/auth"
	"timesheet/internal/domain/core"
	"timesheet/internal/domain/errs"
)

// Remaining returns the balance left for a leave type.
func Remaining(b core.Balances, t Type) float64 {
	switch t {
	case TypeAnnual:
		return b.Annual
	case TypeMedical:
		return b.Medical
	case TypeTimeOff:
		return b.TimeOff
	case TypeUnpaid:
		return b.Unpaid
	}
	return 0
}

// CheckAvailable reports whether days can be taken; unpaid leave is unbounded.
func CheckAvailable(b core.Balances, t Type, days float64) bool {
	if !t.IsValid() || days < 0 {
		return false
	}
	if !t.Bounded() {
		return true
	}
	return days <= Remaining(b, t)
}

// Debit returns b with days taken from the matching counter.
func Debit(b core.Balances, t Type, days float64) (core.Balances, error) {
	if !t.Bounded() {
		return b, nil
	}
	if !CheckAvailable(b, t, days) {
		return b, fmt.Errorf("%w: %s needs %.1f days, %.1f remaining", errs.ErrInsufficientBalance, t, days, Remaining(b, t))
	}
	return Credit(b, t, -days), nil
}

// Credit adds delta to the matching counter without bounds checks.
func Credit(b core.Balances, t Type, delta float64) core.Balances {
	switch t {
	case TypeAnnual:
		b.Annual += delta
	case TypeMedical:
		b.Medical += delta
	case TypeTimeOff:
		b.TimeOff += delta
	case TypeUnpaid:
		b.Unpaid += delta
	}
	return b
}

type Ledger struct {
	store BalanceStore
}

func NewLedger(store BalanceStore) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Balances(ctx context.Context, employeeID string) (core.Balances, error) {
	return l.store.Balances(ctx, employeeID)
}

func (l *Ledger) CheckAvailable(ctx context.Context, employeeID string, t Type, days float64) (bool, error) {
	b, err := l.store.Balances(ctx, employeeID)
	if err != nil {
		return false, err
	}
	return CheckAvailable(b, t, days), nil
}

// Decrement takes approved days off the balance. Unpaid leave is never
// decremented.
func (l *Ledger) Decrement(ctx context.Context, employeeID string, t Type, days float64) error {
	if !t.Bounded() {
		return nil
	}
	return l.store.DebitBalance(ctx, employeeID, t, days)
}

// Adjust applies an HR correction. The resulting balance must stay
// non-negative.
func (l *Ledger) Adjust(ctx context.Context, actor auth.Actor, employeeID string, t Type, delta float64) (core.Balances, error) {
	if err := auth.Require(actor, auth.ActBalancesAdjust); err != nil {
		return core.Balances{}, err
	}
	if !t.IsValid() {
		return core.Balances{}, errs.Invalid("leaveType", "must be a known leave type")
	}
	return l.store.AdjustBalance(ctx, employeeID, t, delta)
}
