package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Every error leaving the models/workflow packages wraps one of
// these sentinels so handlers can map it to an HTTP status while the message
// text stays part of the external contract.
var (
	ErrorRecordNotFound         = errors.New("record not found")
	ErrorInvalidInput           = errors.New("invalid input")
	ErrorInsufficientStock      = errors.New("insufficient stock")
	ErrorReturnExceedsAllocated = errors.New("return exceeds allocated")
	ErrorDuplicateSku           = errors.New("SKU already exists")
	ErrorUnsupportedStatus      = errors.New("unsupported status")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// KindError attaches a caller-facing message to one of the sentinel kinds.
// The message is returned verbatim to API clients.
func KindError(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// InsufficientStockError reports both source pools alongside the requested
// quantity; the message wording is relied on by existing front-ends.
func InsufficientStockError(used, unallocated, requested decimal.Decimal) error {
	return KindError(ErrorInsufficientStock,
		"Insufficient stock: available used=%s, unallocated=%s, requested=%s",
		used.String(), unallocated.String(), requested.String())
}

func ReturnExceedsAllocatedError(allocated, requested decimal.Decimal) error {
	return KindError(ErrorReturnExceedsAllocated,
		"Return qty exceeds allocated qty (allocated %s, trying to return %s)",
		allocated.String(), requested.String())
}
