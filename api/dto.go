/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  All monetary values cross the wire as decimal strings ("1234.50"), never
  as JSON numbers, so clients cannot lose precision to float64.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model behind them
*/
package api

import (
	"github.com/atrium/property-ledger/ledger"
)

// =============================================================================
// OBLIGATIONS
// =============================================================================

// ObligationDTO represents an obligation in API responses.
type ObligationDTO struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	Amount           string `json:"amount"`
	PaidAmount       string `json:"paid_amount"`
	Remaining        string `json:"remaining"`
	Status           string `json:"status"`
	DueDate          string `json:"due_date"`
	Period           string `json:"period"`
	PaidBy           string `json:"paid_by"`
	ContractID       string `json:"contract_id,omitempty"`
	ApartmentID      string `json:"apartment_id"`
	OwnerID          string `json:"owner_id"`
	OwnerImpact      string `json:"owner_impact"`
	AgencyImpact     string `json:"agency_impact"`
	CommissionAmount string `json:"commission_amount"`
	OwnerAmount      string `json:"owner_amount"`
	Notes            string `json:"notes,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// CreateObligationRequest is the request to create an obligation.
type CreateObligationRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"` // YYYY-MM-DD
	Period      string `json:"period,omitempty"`
	PaidBy      string `json:"paid_by"`
	ContractID  string `json:"contract_id,omitempty"`
	ApartmentID string `json:"apartment_id"`
	Notes       string `json:"notes,omitempty"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentDTO represents a payment in API responses.
type PaymentDTO struct {
	ID           string `json:"id"`
	ObligationID string `json:"obligation_id"`
	Amount       string `json:"amount"`
	PaymentDate  string `json:"payment_date"`
	Method       string `json:"method"`
	Reference    string `json:"reference,omitempty"`
	Notes        string `json:"notes,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// RecordPaymentRequest is the request to record a payment.
type RecordPaymentRequest struct {
	Amount      string `json:"amount"`
	PaymentDate string `json:"payment_date,omitempty"` // YYYY-MM-DD, defaults to today
	Method      string `json:"method"`
	Reference   string `json:"reference,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// =============================================================================
// OWNERS AND BALANCES
// =============================================================================

// OwnerBalanceDTO is the balance view with its audit trail.
type OwnerBalanceDTO struct {
	OwnerID string            `json:"owner_id"`
	Balance string            `json:"balance"`
	Entries []BalanceEntryDTO `json:"entries"`
}

// BalanceEntryDTO is one audit entry.
type BalanceEntryDTO struct {
	ID        string `json:"id"`
	Delta     string `json:"delta"`
	Reason    string `json:"reason"`
	Reference string `json:"reference,omitempty"`
	CreatedAt string `json:"created_at"`
}

// RegisterOwnerRequest registers or updates an owner record.
type RegisterOwnerRequest struct {
	ID             string `json:"id"`
	CommissionRate string `json:"commission_rate"` // fraction, e.g. "0.10"
}

// RegisterApartmentRequest maps an apartment to its owner.
type RegisterApartmentRequest struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

// SettlementSummaryDTO is a computed (not yet recorded) settlement preview.
type SettlementSummaryDTO struct {
	OwnerID          string `json:"owner_id"`
	Period           string `json:"period"`
	TotalIncome      string `json:"total_income"`
	TotalExpenses    string `json:"total_expenses"`
	CommissionAmount string `json:"commission_amount"`
	NetAmount        string `json:"net_amount"`
	OwnerBalance     string `json:"owner_balance"`
	ObligationCount  int    `json:"obligation_count"`
}

// SettlementDTO represents a recorded settlement.
type SettlementDTO struct {
	ID               string `json:"id"`
	OwnerID          string `json:"owner_id"`
	Period           string `json:"period"`
	TotalIncome      string `json:"total_income"`
	TotalExpenses    string `json:"total_expenses"`
	CommissionAmount string `json:"commission_amount"`
	NetAmount        string `json:"net_amount"`
	PayoutAmount     string `json:"payout_amount"`
	Status           string `json:"status"`
	Disposition      string `json:"disposition,omitempty"`
	Method           string `json:"method,omitempty"`
	Reference        string `json:"reference,omitempty"`
	SettledAt        string `json:"settled_at,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// RecordSettlementRequest records the current summary for (owner, period).
type RecordSettlementRequest struct {
	OwnerID string `json:"owner_id"`
	Period  string `json:"period"`
}

// SettleRequest marks a recorded settlement as settled.
type SettleRequest struct {
	Disposition string `json:"disposition"`
	Method      string `json:"method,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// =============================================================================
// SWEEP
// =============================================================================

// SweepResponse reports one overdue sweep run.
type SweepResponse struct {
	Examined int      `json:"examined"`
	Promoted int      `json:"promoted"`
	Errors   []string `json:"errors,omitempty"`
}

// =============================================================================
// MAPPING HELPERS
// =============================================================================

const dateLayout = "2006-01-02"

func toObligationDTO(o ledger.Obligation) ObligationDTO {
	return ObligationDTO{
		ID:               string(o.ID),
		Type:             string(o.Type),
		Amount:           o.Amount.String(),
		PaidAmount:       o.PaidAmount.String(),
		Remaining:        o.Remaining().String(),
		Status:           string(o.Status),
		DueDate:          o.DueDate.UTC().Format(dateLayout),
		Period:           o.Period.String(),
		PaidBy:           string(o.PaidBy),
		ContractID:       string(o.ContractID),
		ApartmentID:      string(o.ApartmentID),
		OwnerID:          string(o.OwnerID),
		OwnerImpact:      o.OwnerImpact.String(),
		AgencyImpact:     o.AgencyImpact.String(),
		CommissionAmount: o.CommissionAmount.String(),
		OwnerAmount:      o.OwnerAmount.String(),
		Notes:            o.Notes,
		CreatedAt:        o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:        o.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toPaymentDTO(p ledger.Payment) PaymentDTO {
	return PaymentDTO{
		ID:           string(p.ID),
		ObligationID: string(p.ObligationID),
		Amount:       p.Amount.String(),
		PaymentDate:  p.PaymentDate.UTC().Format(dateLayout),
		Method:       string(p.Method),
		Reference:    p.Reference,
		Notes:        p.Notes,
		CreatedAt:    p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toSettlementDTO(s ledger.Settlement) SettlementDTO {
	dto := SettlementDTO{
		ID:               string(s.ID),
		OwnerID:          string(s.OwnerID),
		Period:           s.Period.String(),
		TotalIncome:      s.TotalIncome.String(),
		TotalExpenses:    s.TotalExpenses.String(),
		CommissionAmount: s.CommissionAmount.String(),
		NetAmount:        s.NetAmount.String(),
		PayoutAmount:     s.PayoutAmount.String(),
		Status:           string(s.Status),
		Disposition:      string(s.Disposition),
		Method:           string(s.Method),
		Reference:        s.Reference,
		CreatedAt:        s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if s.SettledAt != nil {
		dto.SettledAt = s.SettledAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return dto
}

func toSummaryDTO(s ledger.SettlementSummary) SettlementSummaryDTO {
	return SettlementSummaryDTO{
		OwnerID:          string(s.OwnerID),
		Period:           s.Period.String(),
		TotalIncome:      s.TotalIncome.String(),
		TotalExpenses:    s.TotalExpenses.String(),
		CommissionAmount: s.CommissionAmount.String(),
		NetAmount:        s.NetAmount.String(),
		OwnerBalance:     s.OwnerBalance.String(),
		ObligationCount:  s.ObligationCount,
	}
}
