/*
handlers.go - HTTP API handlers for the obligations ledger

PURPOSE:
  Exposes the ledger core via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Obligations:
    POST   /api/obligations                 Create obligation
    GET    /api/obligations                 List (filter: owner, period, status)
    GET    /api/obligations/{id}            Detail
    GET    /api/obligations/{id}/payments   Payment history
    POST   /api/obligations/{id}/payments   Record payment

  Owners:
    GET    /api/owners/{id}/balance         Balance + audit entries
    GET    /api/owners/{id}/settlement      Settlement preview (?period=YYYY-MM)
    GET    /api/owners/{id}/settlements     Recorded settlements

  Settlements:
    POST   /api/settlements                 Record the current summary
    GET    /api/settlements/{id}            Detail
    POST   /api/settlements/{id}/settle     Mark as settled

  Admin:
    POST   /api/admin/owners                Register owner (commission rate)
    POST   /api/admin/apartments            Map apartment to owner
    POST   /api/admin/sweep                 Run overdue sweep now

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (insufficient funds, concurrent write, duplicate settlement)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atrium/property-ledger/ledger"
	"github.com/atrium/property-ledger/metrics"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    ledger.TxStore
	Manager  *ledger.Manager
	Recorder *ledger.Recorder
	Settler  *ledger.Settler
	Sweeper  *ledger.Sweeper
}

// NewHandler creates a new handler wired to the given store.
func NewHandler(store ledger.TxStore) *Handler {
	return &Handler{
		Store:    store,
		Manager:  ledger.NewManager(store, store),
		Recorder: ledger.NewRecorder(store),
		Settler:  ledger.NewSettler(store),
		Sweeper:  ledger.NewSweeper(store),
	}
}

// =============================================================================
// OBLIGATION HANDLERS
// =============================================================================

// CreateObligation creates a new obligation.
func (h *Handler) CreateObligation(w http.ResponseWriter, r *http.Request) {
	var req CreateObligationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := ledger.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	dueDate, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid due_date (want YYYY-MM-DD)", err)
		return
	}

	spec := ledger.ObligationSpec{
		Type:        ledger.ObligationType(req.Type),
		Amount:      amount,
		DueDate:     dueDate,
		PaidBy:      ledger.Party(req.PaidBy),
		ContractID:  ledger.ContractID(req.ContractID),
		ApartmentID: ledger.ApartmentID(req.ApartmentID),
		Notes:       req.Notes,
	}
	if req.Period != "" {
		period, err := ledger.ParsePeriod(req.Period)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period", err)
			return
		}
		spec.Period = period
	}

	o, err := h.Manager.CreateObligation(r.Context(), spec)
	if err != nil {
		writeLedgerError(w, "Failed to create obligation", err)
		return
	}

	writeJSON(w, http.StatusCreated, toObligationDTO(o))
}

// ListObligations lists obligations, optionally filtered by owner, period,
// and status query parameters.
func (h *Handler) ListObligations(w http.ResponseWriter, r *http.Request) {
	var f ledger.ObligationFilter
	if owner := r.URL.Query().Get("owner"); owner != "" {
		f.OwnerID = ledger.OwnerID(owner)
	}
	if p := r.URL.Query().Get("period"); p != "" {
		period, err := ledger.ParsePeriod(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period", err)
			return
		}
		f.Period = &period
	}
	if st := r.URL.Query().Get("status"); st != "" {
		f.Statuses = []ledger.ObligationStatus{ledger.ObligationStatus(st)}
	}

	obligations, err := h.Store.ListObligations(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list obligations", err)
		return
	}

	dtos := make([]ObligationDTO, len(obligations))
	for i, o := range obligations {
		dtos[i] = toObligationDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetObligation returns one obligation.
func (h *Handler) GetObligation(w http.ResponseWriter, r *http.Request) {
	id := ledger.ObligationID(chi.URLParam(r, "id"))
	o, err := h.Store.GetObligation(r.Context(), id)
	if err != nil {
		writeLedgerError(w, "Failed to get obligation", err)
		return
	}
	writeJSON(w, http.StatusOK, toObligationDTO(o))
}

// ListObligationPayments returns the payment history of an obligation.
func (h *Handler) ListObligationPayments(w http.ResponseWriter, r *http.Request) {
	id := ledger.ObligationID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetObligation(r.Context(), id); err != nil {
		writeLedgerError(w, "Failed to get obligation", err)
		return
	}

	payments, err := h.Store.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment applies a payment to an obligation.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.ObligationID(chi.URLParam(r, "id"))

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := ledger.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	in := ledger.PaymentInput{
		ObligationID: id,
		Amount:       amount,
		Method:       ledger.PaymentMethod(req.Method),
		Reference:    req.Reference,
		Notes:        req.Notes,
	}
	if req.PaymentDate != "" {
		d, err := time.Parse(dateLayout, req.PaymentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid payment_date (want YYYY-MM-DD)", err)
			return
		}
		in.PaymentDate = d
	}

	p, err := h.Recorder.RecordPayment(r.Context(), in)
	if err != nil {
		if ledger.IsClientError(err) {
			metrics.PaymentsRejected.WithLabelValues("validation").Inc()
		} else if ledger.IsConflict(err) {
			metrics.PaymentsRejected.WithLabelValues("conflict").Inc()
		}
		writeLedgerError(w, "Failed to record payment", err)
		return
	}

	metrics.PaymentsRecorded.WithLabelValues(string(p.Method)).Inc()
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// =============================================================================
// OWNER HANDLERS
// =============================================================================

// GetOwnerBalance returns the owner's balance and its audit entries.
func (h *Handler) GetOwnerBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.OwnerID(chi.URLParam(r, "id"))

	owner, err := h.Store.GetOwner(r.Context(), id)
	if err != nil {
		writeLedgerError(w, "Failed to get owner", err)
		return
	}
	entries, err := h.Store.ListBalanceEntries(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list balance entries", err)
		return
	}

	dto := OwnerBalanceDTO{
		OwnerID: string(owner.ID),
		Balance: owner.Balance.String(),
		Entries: make([]BalanceEntryDTO, len(entries)),
	}
	for i, e := range entries {
		dto.Entries[i] = BalanceEntryDTO{
			ID:        e.ID,
			Delta:     e.Delta.String(),
			Reason:    string(e.Reason),
			Reference: e.Reference,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// ComputeSettlement returns the settlement preview for ?period=YYYY-MM.
func (h *Handler) ComputeSettlement(w http.ResponseWriter, r *http.Request) {
	id := ledger.OwnerID(chi.URLParam(r, "id"))

	period, err := ledger.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing period (want ?period=YYYY-MM)", err)
		return
	}

	sum, err := h.Settler.Compute(r.Context(), id, period)
	if err != nil {
		writeLedgerError(w, "Failed to compute settlement", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(sum))
}

// ListOwnerSettlements returns all recorded settlements for an owner.
func (h *Handler) ListOwnerSettlements(w http.ResponseWriter, r *http.Request) {
	id := ledger.OwnerID(chi.URLParam(r, "id"))

	settlements, err := h.Store.ListSettlements(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settlements", err)
		return
	}

	dtos := make([]SettlementDTO, len(settlements))
	for i, s := range settlements {
		dtos[i] = toSettlementDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SETTLEMENT HANDLERS
// =============================================================================

// RecordSettlement persists the current summary as a pending settlement.
func (h *Handler) RecordSettlement(w http.ResponseWriter, r *http.Request) {
	var req RecordSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	period, err := ledger.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	s, err := h.Settler.Record(r.Context(), ledger.OwnerID(req.OwnerID), period)
	if err != nil {
		writeLedgerError(w, "Failed to record settlement", err)
		return
	}

	metrics.SettlementsRecorded.Inc()
	writeJSON(w, http.StatusCreated, toSettlementDTO(s))
}

// GetSettlement returns one settlement.
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	id := ledger.SettlementID(chi.URLParam(r, "id"))
	s, err := h.Store.GetSettlement(r.Context(), id)
	if err != nil {
		writeLedgerError(w, "Failed to get settlement", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementDTO(s))
}

// Settle marks a settlement as settled with the chosen payout disposition.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	id := ledger.SettlementID(chi.URLParam(r, "id"))

	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Settler.MarkSettled(r.Context(), ledger.SettleInput{
		SettlementID: id,
		Disposition:  ledger.PayoutDisposition(req.Disposition),
		Method:       ledger.PaymentMethod(req.Method),
		Reference:    req.Reference,
	})
	if err != nil {
		writeLedgerError(w, "Failed to settle", err)
		return
	}

	metrics.SettlementsSettled.WithLabelValues(string(s.Disposition)).Inc()
	writeJSON(w, http.StatusOK, toSettlementDTO(s))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RegisterOwner creates or updates an owner record.
func (h *Handler) RegisterOwner(w http.ResponseWriter, r *http.Request) {
	var req RegisterOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Owner id is required", nil)
		return
	}
	rate, err := decimal.NewFromString(req.CommissionRate)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		writeError(w, http.StatusBadRequest, "Invalid commission_rate (want a fraction between 0 and 1)", err)
		return
	}

	owner := ledger.Owner{
		ID:             ledger.OwnerID(req.ID),
		Balance:        ledger.ZeroMoney(),
		CommissionRate: rate,
	}
	if err := h.Store.SaveOwner(r.Context(), owner); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save owner", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// RegisterApartment maps an apartment to its owner.
func (h *Handler) RegisterApartment(w http.ResponseWriter, r *http.Request) {
	var req RegisterApartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "Apartment id and owner_id are required", nil)
		return
	}
	if _, err := h.Store.GetOwner(r.Context(), ledger.OwnerID(req.OwnerID)); err != nil {
		writeLedgerError(w, "Unknown owner", err)
		return
	}

	if err := h.Store.RegisterApartment(r.Context(), ledger.ApartmentID(req.ID), ledger.OwnerID(req.OwnerID)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to register apartment", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID, "owner_id": req.OwnerID})
}

// TriggerSweep runs the overdue sweep immediately.
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sweeper.Sweep(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}

	metrics.SweepRuns.Inc()
	metrics.ObligationsPromoted.Add(float64(res.Promoted))

	resp := SweepResponse{Examined: res.Examined, Promoted: res.Promoted}
	for _, e := range res.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	writeJSON(w, status, body)
}

// writeLedgerError maps domain errors onto HTTP status codes.
func writeLedgerError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
