/*
settlement.go - Per-(owner, period) reconciliation

PURPOSE:
  Answers "how much does the agency owe this owner for this month?" from
  obligations that were actually PAID in the period. Unpaid and partially
  paid obligations never enter a settlement.

FIGURES:
  totalIncome    gross credits to the owner: for rent, the full rent amount
                 (ownerAmount + commission) so the commission line below is
                 visible rather than pre-netted
  totalExpenses  owner-charged amounts (negative ownerImpact, absolute)
  commission     sum of frozen commissionAmount figures
  netAmount      totalIncome - totalExpenses - commission

  The reconciliation identity: netAmount equals the sum of the owners'
  frozen net impacts, so the presentation split never changes the payout.

LIFECYCLE:
  Compute (pure, idempotent) -> Record (one pending settlement per
  (owner, period)) -> MarkSettled (the only settlement path that may touch
  the owner balance, governed by an explicit PayoutDisposition). MarkSettled
  recomputes the summary inside its transaction and refuses with
  ErrSettlementStale when payments recorded since drift the net.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Settler computes, records, and finalizes settlements.
type Settler struct {
	store TxStore
	clock func() time.Time
}

func NewSettler(store TxStore) *Settler {
	return &Settler{store: store, clock: time.Now}
}

// WithClock overrides the time source. Used by tests.
func (st *Settler) WithClock(clock func() time.Time) *Settler {
	st.clock = clock
	return st
}

// Compute aggregates the owner's paid obligations for the period. Read-only;
// computing twice in a row yields identical results.
func (st *Settler) Compute(ctx context.Context, ownerID OwnerID, period Period) (SettlementSummary, error) {
	return computeSummary(ctx, st.store, ownerID, period)
}

func computeSummary(ctx context.Context, s Store, ownerID OwnerID, period Period) (SettlementSummary, error) {
	owner, err := s.GetOwner(ctx, ownerID)
	if err != nil {
		return SettlementSummary{}, err
	}

	paid, err := s.ListObligations(ctx, ObligationFilter{
		OwnerID:  ownerID,
		Period:   &period,
		Statuses: []ObligationStatus{StatusPaid},
	})
	if err != nil {
		return SettlementSummary{}, err
	}

	sum := SettlementSummary{
		OwnerID:          ownerID,
		Period:           period,
		TotalIncome:      ZeroMoney(),
		TotalExpenses:    ZeroMoney(),
		CommissionAmount: ZeroMoney(),
		OwnerBalance:     owner.Balance,
		ObligationCount:  len(paid),
	}
	for _, o := range paid {
		sum.CommissionAmount = sum.CommissionAmount.Add(o.CommissionAmount)
		switch {
		case o.OwnerImpact.IsPositive():
			// Gross credit: the net owner share plus the commission carved
			// out of it, so income - commission returns the net share.
			sum.TotalIncome = sum.TotalIncome.Add(o.OwnerImpact).Add(o.CommissionAmount)
		case o.OwnerImpact.IsNegative():
			sum.TotalExpenses = sum.TotalExpenses.Add(o.OwnerImpact.Abs())
		}
	}
	sum.NetAmount = sum.TotalIncome.Sub(sum.TotalExpenses).Sub(sum.CommissionAmount)
	return sum, nil
}

// Record persists the current summary as a pending settlement. At most one
// settlement may exist per (owner, period); a second Record fails with
// ErrDuplicateSettlement.
func (st *Settler) Record(ctx context.Context, ownerID OwnerID, period Period) (Settlement, error) {
	now := st.clock()
	var recorded Settlement
	err := st.store.WithTx(ctx, func(s Store) error {
		sum, err := computeSummary(ctx, s, ownerID, period)
		if err != nil {
			return err
		}
		recorded = Settlement{
			ID:               SettlementID(uuid.NewString()),
			OwnerID:          ownerID,
			Period:           period,
			TotalIncome:      sum.TotalIncome,
			TotalExpenses:    sum.TotalExpenses,
			CommissionAmount: sum.CommissionAmount,
			NetAmount:        sum.NetAmount,
			Status:           SettlementPending,
			PayoutAmount:     ZeroMoney(),
			CreatedAt:        now,
		}
		return s.InsertSettlement(ctx, recorded)
	})
	if err != nil {
		return Settlement{}, err
	}
	return recorded, nil
}

// SettleInput finalizes a recorded settlement.
type SettleInput struct {
	SettlementID SettlementID
	Disposition  PayoutDisposition
	Method       PaymentMethod
	Reference    string
}

// MarkSettled transitions a settlement from pending to settled and applies
// the chosen payout disposition. This is the only settlement code path that
// mutates the owner balance, and it does so solely through
// ApplyBalanceChange.
func (st *Settler) MarkSettled(ctx context.Context, in SettleInput) (Settlement, error) {
	if !in.Disposition.Valid() {
		return Settlement{}, fmt.Errorf("%w: unknown payout disposition %q", ErrInvalidInput, in.Disposition)
	}
	if in.Method != "" && !in.Method.Valid() {
		return Settlement{}, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, in.Method)
	}

	now := st.clock()
	var settled Settlement
	err := st.store.WithTx(ctx, func(s Store) error {
		sm, err := s.GetSettlement(ctx, in.SettlementID)
		if err != nil {
			return err
		}
		if sm.Status == SettlementSettled {
			return ErrSettlementSettled
		}

		// Payments recorded between Record and MarkSettled would silently
		// change what the owner is owed; refuse rather than pay a number
		// the user never saw.
		fresh, err := computeSummary(ctx, s, sm.OwnerID, sm.Period)
		if err != nil {
			return err
		}
		if !fresh.NetAmount.Equal(sm.NetAmount) {
			return fmt.Errorf("%w: recorded net %v, current net %v",
				ErrSettlementStale, sm.NetAmount, fresh.NetAmount)
		}

		payout := sm.NetAmount
		switch in.Disposition {
		case DispositionCreditBalance:
			payout = ZeroMoney()
			if _, err := ApplyBalanceChange(ctx, s, sm.OwnerID, sm.NetAmount, ReasonSettlementCredited, string(sm.ID), now); err != nil {
				return err
			}
		case DispositionTransferWithBalance:
			owner, err := s.GetOwner(ctx, sm.OwnerID)
			if err != nil {
				return err
			}
			payout = sm.NetAmount.Add(owner.Balance)
			if !owner.Balance.IsZero() {
				if _, err := ApplyBalanceChange(ctx, s, sm.OwnerID, owner.Balance.Neg(), ReasonSettlementPaidOut, string(sm.ID), now); err != nil {
					return err
				}
			}
		}

		settledAt := now
		sm.Status = SettlementSettled
		sm.Disposition = in.Disposition
		sm.PayoutAmount = payout
		sm.Method = in.Method
		sm.Reference = in.Reference
		sm.SettledAt = &settledAt
		if err := s.UpdateSettlement(ctx, sm); err != nil {
			return err
		}
		settled = sm
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}
	return settled, nil
}
