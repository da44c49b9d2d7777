/*
balance.go - The single entry point for owner balance mutation

PURPOSE:
  Every change to an owner's running balance goes through ApplyBalanceChange.
  No other code writes the balance. Each mutation carries a reason code and
  lands as an append-only BalanceEntry, so the balance is always explainable
  from its entries:

    balance == sum(entries.delta)   for every owner, at all times

CALLERS:
  - recorder.go: debits for owner_balance payments (payment_applied)
  - settlement.go: credits and payouts at settle time
    (settlement_credited, settlement_paid_out)
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ApplyBalanceChange mutates the owner's balance by delta inside the caller's
// transactional view and records the audit entry. reference names the payment
// or settlement that caused the change.
//
// Optimistic: a concurrent balance write surfaces ErrConcurrentModification
// and the caller's transaction is expected to retry from the top.
func ApplyBalanceChange(ctx context.Context, s Store, ownerID OwnerID, delta Money, reason BalanceReason, reference string, now time.Time) (Owner, error) {
	owner, err := s.GetOwner(ctx, ownerID)
	if err != nil {
		return Owner{}, err
	}

	owner.Balance = owner.Balance.Add(delta)
	if err := s.UpdateOwnerBalance(ctx, ownerID, owner.Balance, owner.Version); err != nil {
		return Owner{}, err
	}
	owner.Version++

	entry := BalanceEntry{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Delta:     delta,
		Reason:    reason,
		Reference: reference,
		CreatedAt: now,
	}
	if err := s.AppendBalanceEntry(ctx, entry); err != nil {
		return Owner{}, err
	}

	return owner, nil
}
