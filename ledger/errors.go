/*
errors.go - Centralized error types for the obligations ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer maps these onto status codes; nothing outside this file
  invents new error categories.

ERROR CATEGORIES:
  1. Validation errors - Business rule violations (bad input, overpayment)
  2. Funds errors - Owner balance shortages
  3. Not-found errors - Missing obligations, owners, settlements
  4. Concurrency errors - Optimistic locking conflicts

SEE ALSO:
  - recorder.go: Wraps these on payment application
  - settlement.go: Duplicate/stale settlement errors
  - api/handlers.go: Error-to-status mapping
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
	// ErrObligationNotFound is returned when a referenced obligation doesn't exist.
	ErrObligationNotFound = errors.New("obligation not found")

	// ErrOwnerNotFound is returned when a referenced owner doesn't exist.
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrSettlementNotFound is returned when a referenced settlement doesn't exist.
	ErrSettlementNotFound = errors.New("settlement not found")

	// ErrAmountNotPositive is returned for zero or negative payment amounts.
	ErrAmountNotPositive = errors.New("amount must be strictly positive")

	// ErrObligationPaid is returned when paying an obligation that is already
	// settled in full.
	ErrObligationPaid = errors.New("obligation already paid in full")

	// ErrOverpayment is returned when a payment would push paidAmount past amount.
	ErrOverpayment = errors.New("payment exceeds remaining amount")

	// ErrInsufficientBalance is returned when an owner_balance payment exceeds
	// the owner's available balance.
	ErrInsufficientBalance = errors.New("insufficient owner balance")

	// ErrConcurrentModification is returned when optimistic locking detects a
	// conflict. Retryable.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInvalidInput is returned for malformed creation or payment input
	// (unknown enum value, missing apartment, bad date).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPeriod is returned when a period string is malformed.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrDuplicateSettlement is returned when a settlement already exists for
	// the (owner, period) pair.
	ErrDuplicateSettlement = errors.New("settlement already recorded for period")

	// ErrSettlementSettled is returned when marking an already-settled settlement.
	ErrSettlementSettled = errors.New("settlement already settled")

	// ErrSettlementStale is returned when the recorded net no longer matches a
	// recomputation at settle time (new payments landed since recording).
	ErrSettlementStale = errors.New("settlement stale: figures changed since recording")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OverpaymentError provides details about a rejected overpayment.
type OverpaymentError struct {
	ObligationID ObligationID
	Remaining    Money
	Requested    Money
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %v exceeds remaining %v on obligation %s",
		e.Requested, e.Remaining, e.ObligationID)
}

func (e *OverpaymentError) Unwrap() error {
	return ErrOverpayment
}

// InsufficientBalanceError provides details about an owner balance shortage.
type InsufficientBalanceError struct {
	OwnerID   OwnerID
	Available Money
	Requested Money
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("owner %s balance %v cannot cover %v",
		e.OwnerID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAmountNotPositive) ||
		errors.Is(err, ErrObligationPaid) ||
		errors.Is(err, ErrOverpayment) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrSettlementSettled) ||
		errors.Is(err, ErrSettlementStale)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObligationNotFound) ||
		errors.Is(err, ErrOwnerNotFound) ||
		errors.Is(err, ErrSettlementNotFound)
}

// IsConflict returns true for errors the HTTP layer reports as 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrDuplicateSettlement)
}
