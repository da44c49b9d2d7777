/*
impact.go - Financial impact stamping at obligation creation

PURPOSE:
  Computes how an obligation, once fully paid, moves the owner's and the
  agency's positions, and carves the agency commission out of rent. The
  figures are stamped on the obligation at creation and never recomputed:
  a later change to an owner's commission rate must not silently reprice
  history.

MAPPING (per obligation type and responsible party):
  rent                   ownerImpact = +ownerAmount, agencyImpact = +commission
  debt (any party)       ownerImpact = +amount,      agencyImpact = -amount
                         (the agency grants credit to the owner)
  owner-charged non-rent ownerImpact = -amount,      agencyImpact = 0
  agency-charged         ownerImpact = 0,            agencyImpact = -amount
  tenant-charged non-rent pass-through: both impacts 0

ROUNDING:
  commission = round(amount * rate) to 2 decimal places, half away from
  zero. The owner share is the exact remainder (amount - commission), so
  commission + ownerAmount == amount always holds.
*/
package ledger

import "github.com/shopspring/decimal"

// Impact holds the four frozen figures stamped on an obligation.
type Impact struct {
	OwnerImpact      Money
	AgencyImpact     Money
	CommissionAmount Money
	OwnerAmount      Money
}

// ComputeImpact derives the impact figures for a new obligation.
// rate is the owner's commission fraction at creation time (e.g. 0.10).
func ComputeImpact(typ ObligationType, paidBy Party, amount Money, rate decimal.Decimal) Impact {
	if typ == TypeRent {
		commission := amount.Mul(rate).RoundCurrency()
		ownerShare := amount.Sub(commission)
		return Impact{
			OwnerImpact:      ownerShare,
			AgencyImpact:     commission,
			CommissionAmount: commission,
			OwnerAmount:      ownerShare,
		}
	}

	// Debt adjustments move credit from the agency to the owner regardless
	// of who is named responsible.
	if typ == TypeDebt {
		return Impact{
			OwnerImpact:  amount,
			AgencyImpact: amount.Neg(),
		}
	}

	switch paidBy {
	case PartyOwner:
		return Impact{OwnerImpact: amount.Neg()}
	case PartyAgency:
		return Impact{AgencyImpact: amount.Neg()}
	default:
		// Tenant-charged non-rent obligations (utilities, service fees) are
		// pass-through: they move neither position.
		return Impact{}
	}
}
