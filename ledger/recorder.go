/*
recorder.go - Payment application

PURPOSE:
  The single write path for payments. Recording a payment atomically:
    1. inserts the immutable Payment row
    2. increments the obligation's paidAmount
    3. re-derives the obligation status via StatusOf
    4. for owner_balance payments, debits the owner's balance through
       ApplyBalanceChange (reason payment_applied)
  All four effects run inside one store transaction: either all land or
  none do.

CONCURRENCY:
  Obligation and owner rows carry versions; a conflicting concurrent write
  rolls the transaction back with ErrConcurrentModification and the whole
  attempt is retried from a fresh read, up to maxAttempts times. Two
  concurrent payments that together overpay can therefore never both
  commit: the loser re-reads, re-validates, and fails the overpayment
  check.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultMaxAttempts = 3

// PaymentInput is the input to RecordPayment.
type PaymentInput struct {
	ObligationID ObligationID
	Amount       Money
	PaymentDate  time.Time // defaults to now when zero
	Method       PaymentMethod
	Reference    string
	Notes        string
}

// Recorder applies payments to obligations.
type Recorder struct {
	store       TxStore
	clock       func() time.Time
	maxAttempts int
}

func NewRecorder(store TxStore) *Recorder {
	return &Recorder{store: store, clock: time.Now, maxAttempts: defaultMaxAttempts}
}

// WithClock overrides the time source. Used by tests.
func (r *Recorder) WithClock(clock func() time.Time) *Recorder {
	r.clock = clock
	return r
}

// RecordPayment validates and applies a payment. On ErrConcurrentModification
// the transaction is retried from a fresh read; any other failure is final.
func (r *Recorder) RecordPayment(ctx context.Context, in PaymentInput) (Payment, error) {
	if !in.Amount.IsPositive() {
		return Payment{}, ErrAmountNotPositive
	}
	if !in.Method.Valid() {
		return Payment{}, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, in.Method)
	}

	now := r.clock()
	if in.PaymentDate.IsZero() {
		in.PaymentDate = now
	}

	var recorded Payment
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		lastErr = r.store.WithTx(ctx, func(s Store) error {
			p, err := r.apply(ctx, s, in, now)
			if err != nil {
				return err
			}
			recorded = p
			return nil
		})
		if lastErr == nil {
			return recorded, nil
		}
		if !IsRetryable(lastErr) {
			return Payment{}, lastErr
		}
	}
	return Payment{}, fmt.Errorf("recording payment on %s: %w", in.ObligationID, lastErr)
}

// apply runs the four payment effects against the transactional view s.
func (r *Recorder) apply(ctx context.Context, s Store, in PaymentInput, now time.Time) (Payment, error) {
	o, err := s.GetObligation(ctx, in.ObligationID)
	if err != nil {
		return Payment{}, err
	}
	if err := CheckPayment(o, in.Amount); err != nil {
		return Payment{}, err
	}

	if in.Method == MethodOwnerBalance {
		owner, err := s.GetOwner(ctx, o.OwnerID)
		if err != nil {
			return Payment{}, err
		}
		if owner.Balance.LessThan(in.Amount) {
			return Payment{}, &InsufficientBalanceError{
				OwnerID:   o.OwnerID,
				Available: owner.Balance,
				Requested: in.Amount,
			}
		}
	}

	p := Payment{
		ID:           PaymentID(uuid.NewString()),
		ObligationID: o.ID,
		Amount:       in.Amount,
		PaymentDate:  in.PaymentDate,
		Method:       in.Method,
		Reference:    in.Reference,
		Notes:        in.Notes,
		CreatedAt:    now,
	}
	if err := s.AppendPayment(ctx, p); err != nil {
		return Payment{}, err
	}

	if in.Method == MethodOwnerBalance {
		debit := in.Amount.Neg()
		if _, err := ApplyBalanceChange(ctx, s, o.OwnerID, debit, ReasonPaymentApplied, string(p.ID), now); err != nil {
			return Payment{}, err
		}
	}

	o.PaidAmount = o.PaidAmount.Add(in.Amount)
	o.Status = StatusOf(o.Amount, o.PaidAmount, o.DueDate, now)
	o.UpdatedAt = now
	if err := s.UpdateObligation(ctx, o); err != nil {
		return Payment{}, err
	}

	return p, nil
}
