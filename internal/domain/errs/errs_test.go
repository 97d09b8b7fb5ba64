package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestInsufficientBalanceIsValidation(t *testing.T) {
	if !errors.Is(ErrInsufficientBalance, ErrValidation) {
		t.Fatal("expected insufficient balance to match validation")
	}
	if errors.Is(ErrValidation, ErrInsufficientBalance) {
		t.Fatal("validation must not match insufficient balance")
	}
}

func TestValidationErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("submit: %w", Invalid("reason", "is required"))
	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected wrapped validation error")
	}
	field, reason, ok := Field(err)
	if !ok || field != "reason" || reason != "is required" {
		t.Fatalf("unexpected field extraction: %q %q %v", field, reason, ok)
	}
	if _, _, ok := Field(ErrNotFound); ok {
		t.Fatal("not found is not a field error")
	}
}

func TestAtRowQualifiesField(t *testing.T) {
	field, reason, ok := Field(AtRow(3, Invalid("name", "is required")))
	if !ok || field != "rows[3].name" || reason != "is required" {
		t.Fatalf("unexpected field: %q %q %v", field, reason, ok)
	}
	if err := AtRow(2, ErrNotFound); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found to pass through, got %v", err)
	}
}
