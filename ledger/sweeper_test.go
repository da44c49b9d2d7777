package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/atrium/property-ledger/ledger"
)

func TestSweep_PromotesPastDuePending(t *testing.T) {
	// GIVEN: A pending obligation due March 15
	// WHEN: Sweeping on March 16
	// THEN: Promoted to overdue

	f := newFixture(t)
	ctx := context.Background()
	o := f.createObligation(ledger.ObligationSpec{
		Type:    ledger.TypeRent,
		Amount:  money(1000),
		DueDate: date(2025, time.March, 15),
		PaidBy:  ledger.PartyTenant,
	})

	res, err := f.sweeper.Sweep(ctx, date(2025, time.March, 16))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Examined != 1 || res.Promoted != 1 {
		t.Errorf("examined %d promoted %d, want 1/1", res.Examined, res.Promoted)
	}
	if len(res.Errors) != 0 {
		t.Errorf("unexpected row errors: %v", res.Errors)
	}
	if got := f.getObligation(o.ID).Status; got != ledger.StatusOverdue {
		t.Errorf("status %v, want overdue", got)
	}
}

func TestSweep_PromotesPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.createObligation(ledger.ObligationSpec{
		Type:    ledger.TypeRent,
		Amount:  money(1000),
		DueDate: date(2025, time.March, 15),
		PaidBy:  ledger.PartyTenant,
	})
	if _, err := f.recorder.RecordPayment(ctx, ledger.PaymentInput{
		ObligationID: o.ID, Amount: money(400), Method: ledger.MethodCash,
	}); err != nil {
		t.Fatalf("partial payment: %v", err)
	}

	if _, err := f.sweeper.Sweep(ctx, date(2025, time.March, 16)); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if got := f.getObligation(o.ID).Status; got != ledger.StatusOverdue {
		t.Errorf("status %v, want overdue (overdue outranks partial)", got)
	}
}

func TestSweep_LeavesFutureAndPaidAlone(t *testing.T) {
	// GIVEN: One future obligation and one fully paid past-due obligation
	// WHEN: Sweeping
	// THEN: Neither is touched

	f := newFixture(t)
	ctx := context.Background()
	future := f.createObligation(ledger.ObligationSpec{
		Type:    ledger.TypeRent,
		Amount:  money(1000),
		DueDate: date(2025, time.April, 15),
		PaidBy:  ledger.PartyTenant,
	})
	paid := f.payInFull(ledger.ObligationSpec{
		Type:    ledger.TypeRent,
		Amount:  money(2000),
		DueDate: date(2025, time.March, 1),
		PaidBy:  ledger.PartyTenant,
	})

	res, err := f.sweeper.Sweep(ctx, date(2025, time.March, 16))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Promoted != 0 {
		t.Errorf("promoted %d, want 0", res.Promoted)
	}
	if got := f.getObligation(future.ID).Status; got != ledger.StatusPending {
		t.Errorf("future obligation status %v, want pending", got)
	}
	if got := f.getObligation(paid.ID).Status; got != ledger.StatusPaid {
		t.Errorf("paid obligation status %v, want paid", got)
	}
}

func TestSweep_IsIdempotent(t *testing.T) {
	// Running the sweep twice promotes nothing the second time.

	f := newFixture(t)
	ctx := context.Background()
	f.createObligation(ledger.ObligationSpec{
		Type:    ledger.TypeRent,
		Amount:  money(1000),
		DueDate: date(2025, time.March, 15),
		PaidBy:  ledger.PartyTenant,
	})

	now := date(2025, time.March, 16)
	first, err := f.sweeper.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first.Promoted != 1 {
		t.Fatalf("first sweep promoted %d, want 1", first.Promoted)
	}

	second, err := f.sweeper.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second.Examined != 0 || second.Promoted != 0 {
		t.Errorf("second sweep examined %d promoted %d, want 0/0", second.Examined, second.Promoted)
	}
}

func TestSweep_MixedBatch(t *testing.T) {
	// GIVEN: Three past-due and one future obligation
	// THEN: Exactly the three past-due rows are promoted

	f := newFixture(t)
	ctx := context.Background()
	// Due after the fixture clock so they are created pending, not overdue.
	for i := 0; i < 3; i++ {
		f.createObligation(ledger.ObligationSpec{
			Type:    ledger.TypeService,
			Amount:  money(100),
			DueDate: date(2025, time.March, 12+i),
			PaidBy:  ledger.PartyTenant,
		})
	}
	f.createObligation(ledger.ObligationSpec{
		Type:    ledger.TypeService,
		Amount:  money(100),
		DueDate: date(2025, time.May, 1),
		PaidBy:  ledger.PartyTenant,
	})

	res, err := f.sweeper.Sweep(ctx, date(2025, time.March, 16))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Examined != 3 || res.Promoted != 3 {
		t.Errorf("examined %d promoted %d, want 3/3", res.Examined, res.Promoted)
	}
}
