package utils

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestKindErrorUnwrapsToSentinel(t *testing.T) {
	err := KindError(ErrorRecordNotFound, "Material not found (id=%s)", "x1")
	if !errors.Is(err, ErrorRecordNotFound) {
		t.Fatalf("expected record-not-found kind, got %v", err)
	}
	if err.Error() != "Material not found (id=x1)" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := InsufficientStockError(
		decimal.RequireFromString("2.5"),
		decimal.RequireFromString("0"),
		decimal.RequireFromString("10"),
	)
	if !errors.Is(err, ErrorInsufficientStock) {
		t.Fatalf("expected insufficient-stock kind, got %v", err)
	}
	expected := "Insufficient stock: available used=2.5, unallocated=0, requested=10"
	if err.Error() != expected {
		t.Fatalf("expected %q, got %q", expected, err.Error())
	}
}

func TestReturnExceedsAllocatedErrorMessage(t *testing.T) {
	err := ReturnExceedsAllocatedError(
		decimal.RequireFromString("4"),
		decimal.RequireFromString("6"),
	)
	if !errors.Is(err, ErrorReturnExceedsAllocated) {
		t.Fatalf("expected return-exceeds-allocated kind, got %v", err)
	}
	expected := "Return qty exceeds allocated qty (allocated 4, trying to return 6)"
	if err.Error() != expected {
		t.Fatalf("expected %q, got %q", expected, err.Error())
	}
}
