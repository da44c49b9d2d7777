package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atrium/property-ledger/ledger"
)

// march is the period the fixture clock sits in.
var march = ledger.Period{Year: 2025, Month: time.March}

// payInFull creates and fully pays an obligation so it enters settlements.
func (f *fixture) payInFull(spec ledger.ObligationSpec) ledger.Obligation {
	f.t.Helper()
	o := f.createObligation(spec)
	if _, err := f.recorder.RecordPayment(context.Background(), ledger.PaymentInput{
		ObligationID: o.ID,
		Amount:       o.Amount,
		Method:       ledger.MethodTransfer,
	}); err != nil {
		f.t.Fatalf("paying obligation in full: %v", err)
	}
	return f.getObligation(o.ID)
}

// =============================================================================
// SUMMARY COMPUTATION
// =============================================================================

func TestSettlementCompute_RentAndExpenses(t *testing.T) {
	// GIVEN: Paid rent of 300000 at 10% and a paid 500 owner-charged expense
	// WHEN: Computing the March settlement
	// THEN: income 300000 gross, commission 30000, expenses 500, net 269500

	f := newFixture(t)
	ctx := context.Background()

	f.payInFull(ledger.ObligationSpec{
		Type:    ledger.TypeRent,
		Amount:  money(300000),
		DueDate: date(2025, time.March, 31),
		PaidBy:  ledger.PartyTenant,
	})
	f.payInFull(ledger.ObligationSpec{
		Type:    ledger.TypeMaintenance,
		Amount:  money(500),
		DueDate: date(2025, time.March, 31),
		PaidBy:  ledger.PartyOwner,
	})

	sum, err := f.settler.Compute(ctx, "own-1", march)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if !sum.TotalIncome.Equal(money(300000)) {
		t.Errorf("income %v, want 300000", sum.TotalIncome)
	}
	if !sum.CommissionAmount.Equal(money(30000)) {
		t.Errorf("commission %v, want 30000", sum.CommissionAmount)
	}
	if !sum.TotalExpenses.Equal(money(500)) {
		t.Errorf("expenses %v, want 500", sum.TotalExpenses)
	}
	if !sum.NetAmount.Equal(money(269500)) {
		t.Errorf("net %v, want 269500", sum.NetAmount)
	}
	if sum.ObligationCount != 2 {
		t.Errorf("obligation count %d, want 2", sum.ObligationCount)
	}
}

func TestSettlementCompute_ReconciliationIdentity(t *testing.T) {
	// The net amount must equal the sum of the frozen owner impacts of the
	// settled obligations, whatever the income/commission presentation split.

	f := newFixture(t)
	ctx := context.Background()

	obligations := []ledger.Obligation{
		f.payInFull(ledger.ObligationSpec{Type: ledger.TypeRent, Amount: moneyStr("1234.56"), DueDate: date(2025, time.March, 5), PaidBy: ledger.PartyTenant}),
		f.payInFull(ledger.ObligationSpec{Type: ledger.TypeRent, Amount: moneyStr("987.65"), DueDate: date(2025, time.March, 5), PaidBy: ledger.PartyTenant}),
		f.payInFull(ledger.ObligationSpec{Type: ledger.TypeExpenses, Amount: moneyStr("321.09"), DueDate: date(2025, time.March, 5), PaidBy: ledger.PartyOwner}),
	}

	wantNet := ledger.ZeroMoney()
	for _, o := range obligations {
		wantNet = wantNet.Add(o.OwnerImpact)
	}

	sum, err := f.settler.Compute(ctx, "own-1", march)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !sum.NetAmount.Equal(wantNet) {
		t.Errorf("net %v, want sum of owner impacts %v", sum.NetAmount, wantNet)
	}
}

func TestSettlementCompute_ExcludesUnpaidObligations(t *testing.T) {
	// GIVEN: One paid rent, one pending rent, one partially paid rent
	// THEN: Only the paid one enters the settlement

	f := newFixture(t)
	ctx := context.Background()

	f.payInFull(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(1000), DueDate: date(2025, time.March, 31), PaidBy: ledger.PartyTenant,
	})
	f.createObligation(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(2000), DueDate: date(2025, time.March, 31), PaidBy: ledger.PartyTenant,
	})
	partial := f.createObligation(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(3000), DueDate: date(2025, time.March, 31), PaidBy: ledger.PartyTenant,
	})
	if _, err := f.recorder.RecordPayment(ctx, ledger.PaymentInput{
		ObligationID: partial.ID, Amount: money(1500), Method: ledger.MethodCash,
	}); err != nil {
		t.Fatalf("partial payment: %v", err)
	}

	sum, err := f.settler.Compute(ctx, "own-1", march)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if sum.ObligationCount != 1 {
		t.Errorf("obligation count %d, want 1 (only the fully paid one)", sum.ObligationCount)
	}
	if !sum.TotalIncome.Equal(money(1000)) {
		t.Errorf("income %v, want 1000", sum.TotalIncome)
	}
}

func TestSettlementCompute_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.payInFull(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(5000), DueDate: date(2025, time.March, 31), PaidBy: ledger.PartyTenant,
	})

	first, err := f.settler.Compute(ctx, "own-1", march)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	second, err := f.settler.Compute(ctx, "own-1", march)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if !first.NetAmount.Equal(second.NetAmount) || first.ObligationCount != second.ObligationCount {
		t.Errorf("compute is not idempotent: %+v vs %+v", first, second)
	}
}

func TestSettlementCompute_EmptyPeriod(t *testing.T) {
	f := newFixture(t)
	sum, err := f.settler.Compute(context.Background(), "own-1", ledger.Period{Year: 2024, Month: time.January})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !sum.NetAmount.IsZero() || sum.ObligationCount != 0 {
		t.Errorf("empty period should net zero, got %+v", sum)
	}
}

// =============================================================================
// RECORDING
// =============================================================================

func TestSettlementRecord_OncePerOwnerPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.payInFull(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(1000), DueDate: date(2025, time.March, 31), PaidBy: ledger.PartyTenant,
	})

	first, err := f.settler.Record(ctx, "own-1", march)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if first.Status != ledger.SettlementPending {
		t.Errorf("status %v, want pending", first.Status)
	}
	if !first.NetAmount.Equal(money(900)) {
		t.Errorf("net %v, want 900", first.NetAmount)
	}

	if _, err := f.settler.Record(ctx, "own-1", march); !errors.Is(err, ledger.ErrDuplicateSettlement) {
		t.Errorf("second record: got %v, want ErrDuplicateSettlement", err)
	}

	// A different period is a different settlement.
	if _, err := f.settler.Record(ctx, "own-1", march.Next()); err != nil {
		t.Errorf("next period record: %v", err)
	}
}

// =============================================================================
// SETTLING
// =============================================================================

func TestMarkSettled_BankTransferLeavesBalanceAlone(t *testing.T) {
	// GIVEN: A recorded settlement with net 900 and a carried balance of 100
	// WHEN: Settling with bank_transfer
	// THEN: Payout is the net only; the balance does not move

	f := newFixture(t)
	ctx := context.Background()
	f.seedOwner("own-b", "apt-b", "0.10", money(100))
	f.payInFull(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(1000), DueDate: date(2025, time.March, 31),
		PaidBy: ledger.PartyTenant, ApartmentID: "apt-b",
	})

	rec, err := f.settler.Record(ctx, "own-b", march)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	settled, err := f.settler.MarkSettled(ctx, ledger.SettleInput{
		SettlementID: rec.ID,
		Disposition:  ledger.DispositionBankTransfer,
		Method:       ledger.MethodTransfer,
		Reference:    "wire-123",
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if settled.Status != ledger.SettlementSettled {
		t.Errorf("status %v, want settled", settled.Status)
	}
	if !settled.PayoutAmount.Equal(money(900)) {
		t.Errorf("payout %v, want 900", settled.PayoutAmount)
	}
	if settled.SettledAt == nil {
		t.Error("settled_at not stamped")
	}
	if got := f.getOwner("own-b").Balance; !got.Equal(money(100)) {
		t.Errorf("balance %v, want untouched 100", got)
	}
	entries, _ := f.store.ListBalanceEntries(ctx, "own-b")
	if len(entries) != 0 {
		t.Errorf("bank_transfer must not touch the balance, found %d entries", len(entries))
	}
}

func TestMarkSettled_CreditBalance(t *testing.T) {
	// GIVEN: Net 900 to be held as credit rather than paid out
	// THEN: Payout 0, balance grows by 900, settlement_credited entry

	f := newFixture(t)
	ctx := context.Background()
	f.payInFull(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(1000), DueDate: date(2025, time.March, 31), PaidBy: ledger.PartyTenant,
	})

	rec, err := f.settler.Record(ctx, "own-1", march)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	settled, err := f.settler.MarkSettled(ctx, ledger.SettleInput{
		SettlementID: rec.ID,
		Disposition:  ledger.DispositionCreditBalance,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if !settled.PayoutAmount.IsZero() {
		t.Errorf("payout %v, want 0", settled.PayoutAmount)
	}
	if got := f.getOwner("own-1").Balance; !got.Equal(money(900)) {
		t.Errorf("balance %v, want 900", got)
	}

	entries, _ := f.store.ListBalanceEntries(ctx, "own-1")
	if len(entries) != 1 {
		t.Fatalf("audit entries: %d, want 1", len(entries))
	}
	if entries[0].Reason != ledger.ReasonSettlementCredited {
		t.Errorf("entry reason %v, want settlement_credited", entries[0].Reason)
	}
	if !entries[0].Delta.Equal(money(900)) {
		t.Errorf("entry delta %v, want +900", entries[0].Delta)
	}
}

func TestMarkSettled_TransferWithBalanceFoldsCarriedCredit(t *testing.T) {
	// GIVEN: Net 900 and a carried balance of 250
	// WHEN: Settling with bank_transfer_with_balance
	// THEN: Payout 1150, balance zeroed, settlement_paid_out entry of -250

	f := newFixture(t)
	ctx := context.Background()
	f.seedOwner("own-c", "apt-c", "0.10", money(250))
	f.payInFull(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(1000), DueDate: date(2025, time.March, 31),
		PaidBy: ledger.PartyTenant, ApartmentID: "apt-c",
	})

	rec, err := f.settler.Record(ctx, "own-c", march)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	settled, err := f.settler.MarkSettled(ctx, ledger.SettleInput{
		SettlementID: rec.ID,
		Disposition:  ledger.DispositionTransferWithBalance,
		Method:       ledger.MethodTransfer,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if !settled.PayoutAmount.Equal(money(1150)) {
		t.Errorf("payout %v, want 1150 (net 900 + balance 250)", settled.PayoutAmount)
	}
	if got := f.getOwner("own-c").Balance; !got.IsZero() {
		t.Errorf("balance %v, want 0", got)
	}

	entries, _ := f.store.ListBalanceEntries(ctx, "own-c")
	if len(entries) != 1 {
		t.Fatalf("audit entries: %d, want 1", len(entries))
	}
	if entries[0].Reason != ledger.ReasonSettlementPaidOut {
		t.Errorf("entry reason %v, want settlement_paid_out", entries[0].Reason)
	}
	if !entries[0].Delta.Equal(money(-250)) {
		t.Errorf("entry delta %v, want -250", entries[0].Delta)
	}
}

func TestMarkSettled_TransferWithBalanceZeroBalanceSkipsEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.payInFull(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(1000), DueDate: date(2025, time.March, 31), PaidBy: ledger.PartyTenant,
	})

	rec, err := f.settler.Record(ctx, "own-1", march)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	settled, err := f.settler.MarkSettled(ctx, ledger.SettleInput{
		SettlementID: rec.ID,
		Disposition:  ledger.DispositionTransferWithBalance,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !settled.PayoutAmount.Equal(money(900)) {
		t.Errorf("payout %v, want 900", settled.PayoutAmount)
	}
	entries, _ := f.store.ListBalanceEntries(ctx, "own-1")
	if len(entries) != 0 {
		t.Errorf("zero balance fold must not write an entry, found %d", len(entries))
	}
}

func TestMarkSettled_RejectsSecondSettle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.payInFull(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(1000), DueDate: date(2025, time.March, 31), PaidBy: ledger.PartyTenant,
	})
	rec, err := f.settler.Record(ctx, "own-1", march)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := f.settler.MarkSettled(ctx, ledger.SettleInput{
		SettlementID: rec.ID, Disposition: ledger.DispositionBankTransfer,
	}); err != nil {
		t.Fatalf("first settle: %v", err)
	}

	_, err = f.settler.MarkSettled(ctx, ledger.SettleInput{
		SettlementID: rec.ID, Disposition: ledger.DispositionCreditBalance,
	})
	if !errors.Is(err, ledger.ErrSettlementSettled) {
		t.Errorf("got %v, want ErrSettlementSettled", err)
	}
}

func TestMarkSettled_StaleWhenPaymentsLandAfterRecording(t *testing.T) {
	// GIVEN: A recorded settlement, then another obligation paid in the
	//        same period
	// WHEN: Settling
	// THEN: Refused as stale; the user must re-record the new figures

	f := newFixture(t)
	ctx := context.Background()
	f.payInFull(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(1000), DueDate: date(2025, time.March, 31), PaidBy: ledger.PartyTenant,
	})
	rec, err := f.settler.Record(ctx, "own-1", march)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	f.payInFull(ledger.ObligationSpec{
		Type: ledger.TypeRent, Amount: money(2000), DueDate: date(2025, time.March, 31), PaidBy: ledger.PartyTenant,
	})

	_, err = f.settler.MarkSettled(ctx, ledger.SettleInput{
		SettlementID: rec.ID, Disposition: ledger.DispositionBankTransfer,
	})
	if !errors.Is(err, ledger.ErrSettlementStale) {
		t.Fatalf("got %v, want ErrSettlementStale", err)
	}

	// The refused settle must leave the settlement pending.
	stored, err := f.store.GetSettlement(ctx, rec.ID)
	if err != nil {
		t.Fatalf("fetching settlement: %v", err)
	}
	if stored.Status != ledger.SettlementPending {
		t.Errorf("status %v, want still pending", stored.Status)
	}
}

func TestMarkSettled_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.settler.MarkSettled(ctx, ledger.SettleInput{
		SettlementID: "s-1", Disposition: "cash_under_the_door",
	}); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("bad disposition: got %v, want ErrInvalidInput", err)
	}

	if _, err := f.settler.MarkSettled(ctx, ledger.SettleInput{
		SettlementID: "missing", Disposition: ledger.DispositionBankTransfer,
	}); !errors.Is(err, ledger.ErrSettlementNotFound) {
		t.Errorf("missing settlement: got %v, want ErrSettlementNotFound", err)
	}
}
