package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atrium/property-ledger/ledger"
)

func rate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeImpact_RentSplitsCommission(t *testing.T) {
	// GIVEN: Rent of 300000 with a 10% commission rate
	// WHEN: Computing the impact
	// THEN: Commission 30000, owner amount 270000, both positions credited

	got := ledger.ComputeImpact(ledger.TypeRent, ledger.PartyTenant, money(300000), rate("0.10"))

	if !got.CommissionAmount.Equal(money(30000)) {
		t.Errorf("commission = %v, want 30000", got.CommissionAmount)
	}
	if !got.OwnerAmount.Equal(money(270000)) {
		t.Errorf("owner amount = %v, want 270000", got.OwnerAmount)
	}
	if !got.OwnerImpact.Equal(money(270000)) {
		t.Errorf("owner impact = %v, want +270000", got.OwnerImpact)
	}
	if !got.AgencyImpact.Equal(money(30000)) {
		t.Errorf("agency impact = %v, want +30000", got.AgencyImpact)
	}
}

func TestComputeImpact_RentCommissionRounding(t *testing.T) {
	// GIVEN: Rent of 333.33 at 10%: raw commission 33.333
	// WHEN: Computing the impact
	// THEN: Commission rounds to 33.33 and the owner share absorbs the
	//       remainder, so the two always sum back to the rent

	got := ledger.ComputeImpact(ledger.TypeRent, ledger.PartyTenant, moneyStr("333.33"), rate("0.10"))

	if !got.CommissionAmount.Equal(moneyStr("33.33")) {
		t.Errorf("commission = %v, want 33.33", got.CommissionAmount)
	}
	if !got.OwnerAmount.Equal(moneyStr("300.00")) {
		t.Errorf("owner amount = %v, want 300.00", got.OwnerAmount)
	}
	if sum := got.CommissionAmount.Add(got.OwnerAmount); !sum.Equal(moneyStr("333.33")) {
		t.Errorf("commission + owner amount = %v, want the full rent 333.33", sum)
	}
}

func TestComputeImpact_RentRoundsHalfAwayFromZero(t *testing.T) {
	// 250.25 * 0.10 = 25.025, which must round up to 25.03.
	got := ledger.ComputeImpact(ledger.TypeRent, ledger.PartyTenant, moneyStr("250.25"), rate("0.10"))

	if !got.CommissionAmount.Equal(moneyStr("25.03")) {
		t.Errorf("commission = %v, want 25.03", got.CommissionAmount)
	}
	if !got.OwnerAmount.Equal(moneyStr("225.22")) {
		t.Errorf("owner amount = %v, want 225.22", got.OwnerAmount)
	}
}

func TestComputeImpact_ZeroRate(t *testing.T) {
	got := ledger.ComputeImpact(ledger.TypeRent, ledger.PartyTenant, money(1000), decimal.Zero)

	if !got.CommissionAmount.IsZero() {
		t.Errorf("commission = %v, want 0", got.CommissionAmount)
	}
	if !got.OwnerAmount.Equal(money(1000)) {
		t.Errorf("owner amount = %v, want the full rent", got.OwnerAmount)
	}
}

func TestComputeImpact_OwnerChargedExpense(t *testing.T) {
	// GIVEN: A 500 maintenance bill charged to the owner
	// THEN: Owner position debited, agency untouched, no commission

	got := ledger.ComputeImpact(ledger.TypeMaintenance, ledger.PartyOwner, money(500), rate("0.10"))

	if !got.OwnerImpact.Equal(money(-500)) {
		t.Errorf("owner impact = %v, want -500", got.OwnerImpact)
	}
	if !got.AgencyImpact.IsZero() {
		t.Errorf("agency impact = %v, want 0", got.AgencyImpact)
	}
	if !got.CommissionAmount.IsZero() || !got.OwnerAmount.IsZero() {
		t.Errorf("non-rent obligations carry no commission split, got %+v", got)
	}
}

func TestComputeImpact_AgencyChargedExpense(t *testing.T) {
	got := ledger.ComputeImpact(ledger.TypeService, ledger.PartyAgency, money(120), rate("0.10"))

	if !got.AgencyImpact.Equal(money(-120)) {
		t.Errorf("agency impact = %v, want -120", got.AgencyImpact)
	}
	if !got.OwnerImpact.IsZero() {
		t.Errorf("owner impact = %v, want 0", got.OwnerImpact)
	}
}

func TestComputeImpact_TenantChargedNonRentIsPassThrough(t *testing.T) {
	// Utilities billed to the tenant move neither the owner's nor the
	// agency's position.
	got := ledger.ComputeImpact(ledger.TypeService, ledger.PartyTenant, money(80), rate("0.10"))

	if !got.OwnerImpact.IsZero() || !got.AgencyImpact.IsZero() {
		t.Errorf("tenant-charged non-rent must be pass-through, got %+v", got)
	}
}

func TestComputeImpact_DebtCreditsOwnerAgainstAgency(t *testing.T) {
	// GIVEN: A 250 debt adjustment, under every responsible party
	// THEN: The agency grants credit to the owner: owner +250, agency -250,
	//       independent of who is named responsible

	for _, party := range []ledger.Party{ledger.PartyTenant, ledger.PartyOwner, ledger.PartyAgency} {
		got := ledger.ComputeImpact(ledger.TypeDebt, party, money(250), rate("0.10"))

		if !got.OwnerImpact.Equal(money(250)) {
			t.Errorf("paidBy=%s: owner impact = %v, want +250", party, got.OwnerImpact)
		}
		if !got.AgencyImpact.Equal(money(-250)) {
			t.Errorf("paidBy=%s: agency impact = %v, want -250", party, got.AgencyImpact)
		}
		if !got.CommissionAmount.IsZero() || !got.OwnerAmount.IsZero() {
			t.Errorf("paidBy=%s: debt carries no commission split, got %+v", party, got)
		}
	}
}
