/*
sweeper.go - Overdue promotion batch

PURPOSE:
  Finds pending and partial obligations whose due date has passed and
  promotes them to overdue. Paid obligations are never touched, so running
  the sweep twice in a row changes nothing the second time.

FAILURE MODEL:
  Per-row failures are collected, not fatal: one bad row never blocks the
  rest of the batch. A version conflict on a row means a payment landed
  mid-sweep; the row is re-read and retried once, and skipped quietly if
  the payment resolved it.
*/
package ledger

import (
	"context"
	"fmt"
	"time"
)

// SweepResult reports one sweep run.
type SweepResult struct {
	Examined int
	Promoted int
	Errors   []error
}

// Sweeper promotes past-due obligations to overdue.
type Sweeper struct {
	store Store
}

func NewSweeper(store Store) *Sweeper {
	return &Sweeper{store: store}
}

// Sweep promotes every unpaid obligation whose due date is before now.
// Idempotent: already-overdue and paid obligations are left alone.
func (sw *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	candidates, err := sw.store.ListObligations(ctx, ObligationFilter{
		Statuses:  []ObligationStatus{StatusPending, StatusPartial},
		DueBefore: &now,
	})
	if err != nil {
		return SweepResult{}, fmt.Errorf("listing sweep candidates: %w", err)
	}

	res := SweepResult{Examined: len(candidates)}
	for _, o := range candidates {
		promoted, err := sw.promote(ctx, o, now)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("obligation %s: %w", o.ID, err))
			continue
		}
		if promoted {
			res.Promoted++
		}
	}
	return res, nil
}

// promote moves one obligation to overdue. On a version conflict the row is
// re-read once: if a payment won the race and the status no longer needs
// promotion, that is success, not an error.
func (sw *Sweeper) promote(ctx context.Context, o Obligation, now time.Time) (bool, error) {
	for attempt := 0; ; attempt++ {
		next := StatusOf(o.Amount, o.PaidAmount, o.DueDate, now)
		if next != StatusOverdue || o.Status == StatusOverdue {
			return false, nil
		}

		o.Status = StatusOverdue
		o.UpdatedAt = now
		err := sw.store.UpdateObligation(ctx, o)
		if err == nil {
			return true, nil
		}
		if !IsRetryable(err) || attempt >= 1 {
			return false, err
		}

		fresh, gerr := sw.store.GetObligation(ctx, o.ID)
		if gerr != nil {
			return false, gerr
		}
		o = fresh
	}
}
