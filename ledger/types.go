/*
Package ledger implements the financial obligations core of a property
management system.

PURPOSE:
  Tracks what each party (tenant, owner, agency) owes or is owed, how partial
  and full payments are applied, how an owner's running balance is debited and
  credited, and how a periodic settlement (net amount payable to an owner,
  net of commission) is computed from paid obligations.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: a decimal amount (no floats anywhere in the domain model)
  - Obligation: the unit of debt, with frozen impact figures
  - Payment: an immutable record of money applied to one obligation
  - Owner: only its running balance is owned by this core
  - Settlement: a recorded per-(owner, period) reconciliation

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all monetary values
  2. Immutability: payments and balance entries are never edited, only added
  3. Frozen impacts: ownerImpact/agencyImpact/commission are computed once at
     obligation creation and never recomputed from a later commission rate
  4. One status function: status is derived, never set ad hoc (see status.go)

SEE ALSO:
  - status.go: the status state machine
  - impact.go: impact and commission computation
  - recorder.go: payment application
  - settlement.go: per-period reconciliation
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amount in the agency's single operating currency
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

func NewMoneyFromFloat(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

// ParseMoney parses a decimal string like "1234.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d}, nil
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money            { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money            { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money                   { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money                   { return Money{Value: m.Value.Abs()} }
func (m Money) Mul(rate decimal.Decimal) Money { return Money{Value: m.Value.Mul(rate)} }
func (m Money) IsZero() bool                 { return m.Value.IsZero() }
func (m Money) IsPositive() bool             { return m.Value.IsPositive() }
func (m Money) IsNegative() bool             { return m.Value.IsNegative() }
func (m Money) Equal(o Money) bool           { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool     { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool        { return m.Value.LessThan(o.Value) }
func (m Money) GreaterThanOrEqual(o Money) bool { return m.Value.GreaterThanOrEqual(o.Value) }
func (m Money) String() string               { return m.Value.String() }

// RoundCurrency rounds to the currency's minor unit (2 decimal places),
// half away from zero. This is the single rounding mode of the ledger.
func (m Money) RoundCurrency() Money { return Money{Value: m.Value.Round(2)} }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	ObligationID string
	PaymentID    string
	OwnerID      string
	SettlementID string
	ContractID   string
	ApartmentID  string
)

// =============================================================================
// CLOSED ENUMS
// =============================================================================

// ObligationType classifies what the debt is for.
type ObligationType string

const (
	TypeRent        ObligationType = "rent"
	TypeExpenses    ObligationType = "expenses"
	TypeService     ObligationType = "service"
	TypeTax         ObligationType = "tax"
	TypeInsurance   ObligationType = "insurance"
	TypeMaintenance ObligationType = "maintenance"
	TypeDebt        ObligationType = "debt" // manual debt/credit adjustment
)

func (t ObligationType) Valid() bool {
	switch t {
	case TypeRent, TypeExpenses, TypeService, TypeTax, TypeInsurance, TypeMaintenance, TypeDebt:
		return true
	}
	return false
}

// ObligationStatus is derived from paidAmount and dueDate; callers never set
// it directly, the state machine in status.go does.
type ObligationStatus string

const (
	StatusPending ObligationStatus = "pending"
	StatusPartial ObligationStatus = "partial"
	StatusPaid    ObligationStatus = "paid"
	StatusOverdue ObligationStatus = "overdue"
)

// Party identifies who is financially responsible for an obligation.
// Distinct from who physically pays: an owner-charged maintenance bill can be
// satisfied from the owner's standing balance by the agency.
type Party string

const (
	PartyTenant Party = "tenant"
	PartyOwner  Party = "owner"
	PartyAgency Party = "agency"
)

func (p Party) Valid() bool {
	return p == PartyTenant || p == PartyOwner || p == PartyAgency
}

// PaymentMethod records how money moved.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodTransfer     PaymentMethod = "transfer"
	MethodCheck        PaymentMethod = "check"
	MethodCard         PaymentMethod = "card"
	MethodOwnerBalance PaymentMethod = "owner_balance" // drawn from the owner's standing credit
	MethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodCheck, MethodCard, MethodOwnerBalance, MethodOther:
		return true
	}
	return false
}

// BalanceReason tags every owner-balance mutation for auditability.
// All balance changes funnel through ApplyBalanceChange (balance.go).
type BalanceReason string

const (
	ReasonPaymentApplied     BalanceReason = "payment_applied"
	ReasonSettlementCredited BalanceReason = "settlement_credited"
	ReasonSettlementPaidOut  BalanceReason = "settlement_paid_out"
)

// SettlementStatus: a recorded settlement starts pending and the only
// transition is pending -> settled.
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementSettled SettlementStatus = "settled"
)

// PayoutDisposition makes the settlement/balance interaction an explicit
// caller decision rather than an inferred one.
type PayoutDisposition string

const (
	// DispositionBankTransfer pays the net amount out externally; the owner
	// balance is untouched.
	DispositionBankTransfer PayoutDisposition = "bank_transfer"

	// DispositionCreditBalance adds the net amount to the owner balance as a
	// credit instead of paying it out.
	DispositionCreditBalance PayoutDisposition = "credit_balance"

	// DispositionTransferWithBalance folds the carried balance into the
	// payout (payout = net + balance) and zeroes the balance.
	DispositionTransferWithBalance PayoutDisposition = "bank_transfer_with_balance"
)

func (d PayoutDisposition) Valid() bool {
	return d == DispositionBankTransfer || d == DispositionCreditBalance || d == DispositionTransferWithBalance
}

// =============================================================================
// OBLIGATION - The unit of debt
// =============================================================================

// Obligation is a single debt record anchored to one apartment (which
// resolves to one owner), optionally tied to a contract.
//
// INVARIANTS:
//   - 0 <= PaidAmount <= Amount, after every recorded payment
//   - Status == paid  <=>  PaidAmount == Amount
//   - Impact fields are frozen at creation time
//
// Mutated only by the payment recorder (PaidAmount, Status) and the overdue
// sweeper (Status). Never deleted once a payment exists against it.
type Obligation struct {
	ID          ObligationID
	Type        ObligationType
	Amount      Money
	PaidAmount  Money
	Status      ObligationStatus
	DueDate     time.Time
	Period      Period
	PaidBy      Party
	ContractID  ContractID // empty when not tied to a lease
	ApartmentID ApartmentID
	OwnerID     OwnerID // resolved from the apartment at creation time

	// Impact figures, stamped once at creation (see impact.go).
	// Positive = the party receives, negative = the party is charged.
	OwnerImpact      Money
	AgencyImpact     Money
	CommissionAmount Money // rent only
	OwnerAmount      Money // rent only: Amount - CommissionAmount

	Notes string

	// Version drives optimistic concurrency on updates.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Remaining returns the unpaid part of the obligation.
func (o Obligation) Remaining() Money {
	return o.Amount.Sub(o.PaidAmount)
}

// =============================================================================
// PAYMENT - Immutable child of exactly one obligation
// =============================================================================

// Payment records a single transfer of money against one obligation.
// Created once, never edited: corrections are new payments, so the audit
// trail is preserved.
type Payment struct {
	ID           PaymentID
	ObligationID ObligationID
	Amount       Money
	PaymentDate  time.Time
	Method       PaymentMethod
	Reference    string
	Notes        string
	CreatedAt    time.Time
}

// =============================================================================
// OWNER - External entity; only the balance is owned by this core
// =============================================================================

// Owner carries the running balance held on behalf of a property owner.
// Positive = the agency owes the owner, negative = the owner owes the agency.
type Owner struct {
	ID             OwnerID
	Balance        Money
	CommissionRate decimal.Decimal // fraction, e.g. 0.10 for 10%
	Version        int
	UpdatedAt      time.Time
}

// BalanceEntry is one append-only audit record of a balance mutation.
type BalanceEntry struct {
	ID        string
	OwnerID   OwnerID
	Delta     Money
	Reason    BalanceReason
	Reference string // payment or settlement id that caused the change
	CreatedAt time.Time
}

// =============================================================================
// SETTLEMENT - Per-(owner, period) reconciliation
// =============================================================================

// SettlementSummary is the computed, not-yet-recorded reconciliation of all
// paid obligations for one owner in one period. Computing it is read-only and
// idempotent; OwnerBalance is surfaced for display but never folded into
// NetAmount automatically.
type SettlementSummary struct {
	OwnerID          OwnerID
	Period           Period
	TotalIncome      Money // gross credits to the owner (rent counted gross)
	TotalExpenses    Money // owner-charged amounts
	CommissionAmount Money
	NetAmount        Money // TotalIncome - TotalExpenses - CommissionAmount
	OwnerBalance     Money // carried balance at computation time, display only
	ObligationCount  int
}

// Settlement is a recorded summary. Once recorded it is immutable except for
// the pending -> settled transition.
type Settlement struct {
	ID               SettlementID
	OwnerID          OwnerID
	Period           Period
	TotalIncome      Money
	TotalExpenses    Money
	CommissionAmount Money
	NetAmount        Money

	Status       SettlementStatus
	Disposition  PayoutDisposition // set when settled
	PayoutAmount Money             // set when settled
	Method       PaymentMethod
	Reference    string
	SettledAt    *time.Time
	CreatedAt    time.Time
}
