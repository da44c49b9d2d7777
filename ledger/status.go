/*
status.go - The obligation status state machine

PURPOSE:
  Exactly one function decides an obligation's status. Every write path
  (creation, payment application, overdue sweep) calls StatusOf instead of
  assigning status ad hoc, so the derivation rules live in one place.

RULES (in precedence order):
  1. paid    when paidAmount >= amount
  2. overdue when unpaid and now is past dueDate
  3. partial when 0 < paidAmount < amount
  4. pending otherwise

  Overdue outranks partial: a partially paid obligation past its due date
  reads overdue. A payment completing the amount always lands on paid, even
  when late.
*/
package ledger

import "time"

// StatusOf derives the status of an obligation from its amounts and due date.
func StatusOf(amount, paidAmount Money, dueDate, now time.Time) ObligationStatus {
	if paidAmount.GreaterThanOrEqual(amount) {
		return StatusPaid
	}
	if now.After(dueDate) {
		return StatusOverdue
	}
	if paidAmount.IsPositive() {
		return StatusPartial
	}
	return StatusPending
}

// CheckPayment validates that amount can be applied to the obligation.
// Returns nil when the payment is admissible.
func CheckPayment(o Obligation, amount Money) error {
	if !amount.IsPositive() {
		return ErrAmountNotPositive
	}
	if o.Status == StatusPaid {
		return ErrObligationPaid
	}
	if remaining := o.Remaining(); amount.GreaterThan(remaining) {
		return &OverpaymentError{
			ObligationID: o.ID,
			Remaining:    remaining,
			Requested:    amount,
		}
	}
	return nil
}
