package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/atrium/property-ledger/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(v int64) ledger.Money {
	return ledger.NewMoney(v)
}

func moneyStr(s string) ledger.Money {
	m, err := ledger.ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// STATUS DERIVATION
// =============================================================================

func TestStatusOf_AllTransitions(t *testing.T) {
	due := date(2025, time.March, 5)
	beforeDue := date(2025, time.March, 1)
	afterDue := date(2025, time.March, 10)

	cases := []struct {
		name   string
		amount ledger.Money
		paid   ledger.Money
		now    time.Time
		want   ledger.ObligationStatus
	}{
		{"unpaid before due date is pending", money(1000), money(0), beforeDue, ledger.StatusPending},
		{"partially paid before due date is partial", money(1000), money(400), beforeDue, ledger.StatusPartial},
		{"fully paid is paid", money(1000), money(1000), beforeDue, ledger.StatusPaid},
		{"unpaid past due date is overdue", money(1000), money(0), afterDue, ledger.StatusOverdue},
		{"partially paid past due date is overdue", money(1000), money(400), afterDue, ledger.StatusOverdue},
		{"fully paid past due date stays paid", money(1000), money(1000), afterDue, ledger.StatusPaid},
		{"exactly at due date is not yet overdue", money(1000), money(0), due, ledger.StatusPending},
		{"overpaid reads paid", money(1000), money(1200), afterDue, ledger.StatusPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ledger.StatusOf(tc.amount, tc.paid, due, tc.now)
			if got != tc.want {
				t.Errorf("StatusOf(%v paid %v at %v) = %v, want %v",
					tc.amount, tc.paid, tc.now.Format("2006-01-02"), got, tc.want)
			}
		})
	}
}

func TestStatusOf_FractionalCompletion(t *testing.T) {
	// GIVEN: 100000 obligation paid in two parts of 60000 and 40000
	// WHEN: Deriving status after each part
	// THEN: partial after the first, paid after the second

	due := date(2025, time.June, 1)
	now := date(2025, time.May, 20)

	first := ledger.StatusOf(money(100000), money(60000), due, now)
	if first != ledger.StatusPartial {
		t.Errorf("after first installment: got %v, want partial", first)
	}

	second := ledger.StatusOf(money(100000), money(100000), due, now)
	if second != ledger.StatusPaid {
		t.Errorf("after second installment: got %v, want paid", second)
	}
}

// =============================================================================
// PAYMENT ADMISSIBILITY
// =============================================================================

func TestCheckPayment_RejectsNonPositiveAmounts(t *testing.T) {
	o := ledger.Obligation{Amount: money(1000), PaidAmount: money(0), Status: ledger.StatusPending}

	if err := ledger.CheckPayment(o, money(0)); !errors.Is(err, ledger.ErrAmountNotPositive) {
		t.Errorf("zero amount: got %v, want ErrAmountNotPositive", err)
	}
	if err := ledger.CheckPayment(o, money(-50)); !errors.Is(err, ledger.ErrAmountNotPositive) {
		t.Errorf("negative amount: got %v, want ErrAmountNotPositive", err)
	}
}

func TestCheckPayment_RejectsPaidObligation(t *testing.T) {
	o := ledger.Obligation{Amount: money(1000), PaidAmount: money(1000), Status: ledger.StatusPaid}

	if err := ledger.CheckPayment(o, money(1)); !errors.Is(err, ledger.ErrObligationPaid) {
		t.Errorf("got %v, want ErrObligationPaid", err)
	}
}

func TestCheckPayment_RejectsOverpayment(t *testing.T) {
	// GIVEN: 1000 obligation with 400 already paid (600 remaining)
	// WHEN: Attempting a 700 payment
	// THEN: Rejected with the remaining and requested amounts attached

	o := ledger.Obligation{
		ID:         "ob-1",
		Amount:     money(1000),
		PaidAmount: money(400),
		Status:     ledger.StatusPartial,
	}

	err := ledger.CheckPayment(o, money(700))
	if !errors.Is(err, ledger.ErrOverpayment) {
		t.Fatalf("got %v, want ErrOverpayment", err)
	}

	var ope *ledger.OverpaymentError
	if !errors.As(err, &ope) {
		t.Fatalf("error is not an *OverpaymentError: %v", err)
	}
	if !ope.Remaining.Equal(money(600)) {
		t.Errorf("remaining = %v, want 600", ope.Remaining)
	}
	if !ope.Requested.Equal(money(700)) {
		t.Errorf("requested = %v, want 700", ope.Requested)
	}
}

func TestCheckPayment_AllowsExactRemaining(t *testing.T) {
	o := ledger.Obligation{Amount: money(1000), PaidAmount: money(400), Status: ledger.StatusPartial}

	if err := ledger.CheckPayment(o, money(600)); err != nil {
		t.Errorf("exact remaining should be admissible, got %v", err)
	}
}

func TestCheckPayment_AllowsPaymentOnOverdue(t *testing.T) {
	// Overdue obligations still accept payments; overdue is a reporting
	// status, not a lock.
	o := ledger.Obligation{Amount: money(1000), PaidAmount: money(0), Status: ledger.StatusOverdue}

	if err := ledger.CheckPayment(o, money(1000)); err != nil {
		t.Errorf("payment on overdue obligation should be admissible, got %v", err)
	}
}
