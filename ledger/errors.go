/*
errors.go - Centralized error types for the tax ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers wrap these with context and test them with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Validation errors - an amount, rate or rate period out of range.
     Recoverable: the caller rejects the record or aborts the batch.
  2. Precondition errors - the reconciliation engine received inputs
     assembled incorrectly (unsorted incomes, a full reconciliation among
     the partials). These are defects in the caller, not user input.
  3. Store errors - missing payments or taxes, double application.

SEE ALSO:
  - types.go: Amount and TaxRate constructors
  - schedule.go: Rate period validation
  - reconcile.go: Precondition checks
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when a monetary value is outside [0, MaxAmount).
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidRate is returned when a tax rate is outside [0, 1).
	ErrInvalidRate = errors.New("invalid rate")

	// ErrInvalidPeriod is returned when a rate period is empty, reversed,
	// or overlaps the period before it.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidCriteria is returned when a year or quarter filter can't be parsed.
	ErrInvalidCriteria = errors.New("invalid criteria")

	// ErrPreconditionViolated is returned by the reconciliation engine when
	// its inputs break the documented contract.
	ErrPreconditionViolated = errors.New("precondition violated")

	// ErrPaymentNotFound is returned when a referenced tax payment doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrTaxNotFound is returned when a referenced income tax doesn't exist.
	ErrTaxNotFound = errors.New("income tax not found")

	// ErrTaxExists is returned when an income tax name is already taken.
	ErrTaxExists = errors.New("income tax already exists")

	// ErrPaymentApplied is returned when applying a payment twice.
	ErrPaymentApplied = errors.New("payment already applied")

	// ErrPaymentNotApplied is returned when undoing a payment that was never applied.
	ErrPaymentNotApplied = errors.New("payment not applied")

	// ErrPaymentSuperseded is returned when undoing a payment whose incomes a
	// later payment has reconciled further.
	ErrPaymentSuperseded = errors.New("payment superseded by a later payment")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AmountError reports the rejected raw value.
type AmountError struct {
	Value string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("invalid amount %s: must be in [0, %d)", e.Value, MaxAmount)
}

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// TaxRateError reports the rejected raw rate.
type TaxRateError struct {
	Value string
}

func (e *TaxRateError) Error() string {
	return fmt.Sprintf("invalid rate %s: must be in [0, 1)", e.Value)
}

func (e *TaxRateError) Unwrap() error { return ErrInvalidRate }

// RatePeriodError describes a rejected rate period.
type RatePeriodError struct {
	Start  string
	End    string
	Reason string
}

func (e *RatePeriodError) Error() string {
	return fmt.Sprintf("invalid period [%s, %s): %s", e.Start, e.End, e.Reason)
}

func (e *RatePeriodError) Unwrap() error { return ErrInvalidPeriod }

// PreconditionError is a broken reconciliation input contract.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "reconciliation precondition violated: " + e.Reason
}

func (e *PreconditionError) Unwrap() error { return ErrPreconditionViolated }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidRate) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidCriteria)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrTaxNotFound)
}

// IsConflict returns true if the request clashes with the stored state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrPaymentApplied) ||
		errors.Is(err, ErrPaymentNotApplied) ||
		errors.Is(err, ErrPaymentSuperseded) ||
		errors.Is(err, ErrTaxExists)
}

// IsPrecondition returns true for caller defects detected by the engine.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPreconditionViolated)
}
