// Package store provides the in-memory Store implementation, used by tests
// and the dev profile.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/atrium/property-ledger/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type settlementKey struct {
	Owner  ledger.OwnerID
	Period string
}

type Memory struct {
	mu             sync.RWMutex
	obligations    map[ledger.ObligationID]ledger.Obligation
	payments       map[ledger.ObligationID][]ledger.Payment
	owners         map[ledger.OwnerID]ledger.Owner
	entries        map[ledger.OwnerID][]ledger.BalanceEntry
	settlements    map[ledger.SettlementID]ledger.Settlement
	settlementKeys map[settlementKey]ledger.SettlementID
	apartments     map[ledger.ApartmentID]ledger.OwnerID
}

func NewMemory() *Memory {
	return &Memory{
		obligations:    make(map[ledger.ObligationID]ledger.Obligation),
		payments:       make(map[ledger.ObligationID][]ledger.Payment),
		owners:         make(map[ledger.OwnerID]ledger.Owner),
		entries:        make(map[ledger.OwnerID][]ledger.BalanceEntry),
		settlements:    make(map[ledger.SettlementID]ledger.Settlement),
		settlementKeys: make(map[settlementKey]ledger.SettlementID),
		apartments:     make(map[ledger.ApartmentID]ledger.OwnerID),
	}
}

// -----------------------------------------------------------------------------
// Obligations
// -----------------------------------------------------------------------------

func (m *Memory) InsertObligation(_ context.Context, o ledger.Obligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertObligationLocked(o)
}

func (m *Memory) insertObligationLocked(o ledger.Obligation) error {
	m.obligations[o.ID] = o
	return nil
}

func (m *Memory) GetObligation(_ context.Context, id ledger.ObligationID) (ledger.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getObligationLocked(id)
}

func (m *Memory) getObligationLocked(id ledger.ObligationID) (ledger.Obligation, error) {
	o, ok := m.obligations[id]
	if !ok {
		return ledger.Obligation{}, ledger.ErrObligationNotFound
	}
	return o, nil
}

func (m *Memory) UpdateObligation(_ context.Context, o ledger.Obligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateObligationLocked(o)
}

func (m *Memory) updateObligationLocked(o ledger.Obligation) error {
	stored, ok := m.obligations[o.ID]
	if !ok {
		return ledger.ErrObligationNotFound
	}
	if stored.Version != o.Version {
		return ledger.ErrConcurrentModification
	}
	o.Version++
	m.obligations[o.ID] = o
	return nil
}

func (m *Memory) ListObligations(_ context.Context, f ledger.ObligationFilter) ([]ledger.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listObligationsLocked(f)
}

func (m *Memory) listObligationsLocked(f ledger.ObligationFilter) ([]ledger.Obligation, error) {
	var result []ledger.Obligation
	for _, o := range m.obligations {
		if matches(o, f) {
			result = append(result, o)
		}
	}
	// Deterministic order for callers and tests.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func matches(o ledger.Obligation, f ledger.ObligationFilter) bool {
	if f.OwnerID != "" && o.OwnerID != f.OwnerID {
		return false
	}
	if f.Period != nil && o.Period != *f.Period {
		return false
	}
	if f.DueBefore != nil && !o.DueDate.Before(*f.DueBefore) {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if o.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Payments (append-only)
// -----------------------------------------------------------------------------

func (m *Memory) AppendPayment(_ context.Context, p ledger.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendPaymentLocked(p)
}

func (m *Memory) appendPaymentLocked(p ledger.Payment) error {
	m.payments[p.ObligationID] = append(m.payments[p.ObligationID], p)
	return nil
}

func (m *Memory) ListPayments(_ context.Context, id ledger.ObligationID) ([]ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listPaymentsLocked(id)
}

func (m *Memory) listPaymentsLocked(id ledger.ObligationID) ([]ledger.Payment, error) {
	result := make([]ledger.Payment, len(m.payments[id]))
	copy(result, m.payments[id])
	return result, nil
}

// -----------------------------------------------------------------------------
// Owners and balance entries
// -----------------------------------------------------------------------------

func (m *Memory) GetOwner(_ context.Context, id ledger.OwnerID) (ledger.Owner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getOwnerLocked(id)
}

func (m *Memory) getOwnerLocked(id ledger.OwnerID) (ledger.Owner, error) {
	o, ok := m.owners[id]
	if !ok {
		return ledger.Owner{}, ledger.ErrOwnerNotFound
	}
	return o, nil
}

func (m *Memory) SaveOwner(_ context.Context, o ledger.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveOwnerLocked(o)
}

func (m *Memory) saveOwnerLocked(o ledger.Owner) error {
	if existing, ok := m.owners[o.ID]; ok {
		o.Version = existing.Version
		o.Balance = existing.Balance
	} else if o.Version == 0 {
		o.Version = 1
	}
	m.owners[o.ID] = o
	return nil
}

func (m *Memory) UpdateOwnerBalance(_ context.Context, id ledger.OwnerID, balance ledger.Money, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateOwnerBalanceLocked(id, balance, expectedVersion)
}

func (m *Memory) updateOwnerBalanceLocked(id ledger.OwnerID, balance ledger.Money, expectedVersion int) error {
	o, ok := m.owners[id]
	if !ok {
		return ledger.ErrOwnerNotFound
	}
	if o.Version != expectedVersion {
		return ledger.ErrConcurrentModification
	}
	o.Balance = balance
	o.Version++
	m.owners[id] = o
	return nil
}

func (m *Memory) AppendBalanceEntry(_ context.Context, e ledger.BalanceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendBalanceEntryLocked(e)
}

func (m *Memory) appendBalanceEntryLocked(e ledger.BalanceEntry) error {
	m.entries[e.OwnerID] = append(m.entries[e.OwnerID], e)
	return nil
}

func (m *Memory) ListBalanceEntries(_ context.Context, id ledger.OwnerID) ([]ledger.BalanceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listBalanceEntriesLocked(id)
}

func (m *Memory) listBalanceEntriesLocked(id ledger.OwnerID) ([]ledger.BalanceEntry, error) {
	result := make([]ledger.BalanceEntry, len(m.entries[id]))
	copy(result, m.entries[id])
	return result, nil
}

// -----------------------------------------------------------------------------
// Apartment directory
// -----------------------------------------------------------------------------

func (m *Memory) RegisterApartment(_ context.Context, apartmentID ledger.ApartmentID, ownerID ledger.OwnerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apartments[apartmentID] = ownerID
	return nil
}

func (m *Memory) ResolveOwner(_ context.Context, apartmentID ledger.ApartmentID) (ledger.OwnerID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolveOwnerLocked(apartmentID)
}

func (m *Memory) resolveOwnerLocked(apartmentID ledger.ApartmentID) (ledger.OwnerID, error) {
	id, ok := m.apartments[apartmentID]
	if !ok {
		return "", ledger.ErrOwnerNotFound
	}
	return id, nil
}

// -----------------------------------------------------------------------------
// Settlements
// -----------------------------------------------------------------------------

func (m *Memory) InsertSettlement(_ context.Context, s ledger.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertSettlementLocked(s)
}

func (m *Memory) insertSettlementLocked(s ledger.Settlement) error {
	k := settlementKey{Owner: s.OwnerID, Period: s.Period.String()}
	if _, exists := m.settlementKeys[k]; exists {
		return ledger.ErrDuplicateSettlement
	}
	m.settlements[s.ID] = s
	m.settlementKeys[k] = s.ID
	return nil
}

func (m *Memory) GetSettlement(_ context.Context, id ledger.SettlementID) (ledger.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSettlementLocked(id)
}

func (m *Memory) getSettlementLocked(id ledger.SettlementID) (ledger.Settlement, error) {
	s, ok := m.settlements[id]
	if !ok {
		return ledger.Settlement{}, ledger.ErrSettlementNotFound
	}
	return s, nil
}

func (m *Memory) ListSettlements(_ context.Context, ownerID ledger.OwnerID) ([]ledger.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listSettlementsLocked(ownerID)
}

func (m *Memory) listSettlementsLocked(ownerID ledger.OwnerID) ([]ledger.Settlement, error) {
	var result []ledger.Settlement
	for _, s := range m.settlements {
		if s.OwnerID == ownerID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Period.String() < result[j].Period.String()
	})
	return result, nil
}

func (m *Memory) UpdateSettlement(_ context.Context, s ledger.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateSettlementLocked(s)
}

func (m *Memory) updateSettlementLocked(s ledger.Settlement) error {
	if _, ok := m.settlements[s.ID]; !ok {
		return ledger.ErrSettlementNotFound
	}
	m.settlements[s.ID] = s
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot + rollback on error; the store lock is held for
// the duration, so transactions serialize.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	obligations    map[ledger.ObligationID]ledger.Obligation
	payments       map[ledger.ObligationID][]ledger.Payment
	owners         map[ledger.OwnerID]ledger.Owner
	entries        map[ledger.OwnerID][]ledger.BalanceEntry
	settlements    map[ledger.SettlementID]ledger.Settlement
	settlementKeys map[settlementKey]ledger.SettlementID
	apartments     map[ledger.ApartmentID]ledger.OwnerID
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		obligations:    make(map[ledger.ObligationID]ledger.Obligation, len(tm.obligations)),
		payments:       make(map[ledger.ObligationID][]ledger.Payment, len(tm.payments)),
		owners:         make(map[ledger.OwnerID]ledger.Owner, len(tm.owners)),
		entries:        make(map[ledger.OwnerID][]ledger.BalanceEntry, len(tm.entries)),
		settlements:    make(map[ledger.SettlementID]ledger.Settlement, len(tm.settlements)),
		settlementKeys: make(map[settlementKey]ledger.SettlementID, len(tm.settlementKeys)),
		apartments:     make(map[ledger.ApartmentID]ledger.OwnerID, len(tm.apartments)),
	}
	for k, v := range tm.obligations {
		s.obligations[k] = v
	}
	for k, v := range tm.payments {
		s.payments[k] = append([]ledger.Payment{}, v...)
	}
	for k, v := range tm.owners {
		s.owners[k] = v
	}
	for k, v := range tm.entries {
		s.entries[k] = append([]ledger.BalanceEntry{}, v...)
	}
	for k, v := range tm.settlements {
		s.settlements[k] = v
	}
	for k, v := range tm.settlementKeys {
		s.settlementKeys[k] = v
	}
	for k, v := range tm.apartments {
		s.apartments[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.obligations = s.obligations
	tm.payments = s.payments
	tm.owners = s.owners
	tm.entries = s.entries
	tm.settlements = s.settlements
	tm.settlementKeys = s.settlementKeys
	tm.apartments = s.apartments
}

// txMemoryView forwards to the parent's locked internals; the parent lock is
// already held by WithTx.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) InsertObligation(_ context.Context, o ledger.Obligation) error {
	return tv.parent.insertObligationLocked(o)
}

func (tv *txMemoryView) GetObligation(_ context.Context, id ledger.ObligationID) (ledger.Obligation, error) {
	return tv.parent.getObligationLocked(id)
}

func (tv *txMemoryView) UpdateObligation(_ context.Context, o ledger.Obligation) error {
	return tv.parent.updateObligationLocked(o)
}

func (tv *txMemoryView) ListObligations(_ context.Context, f ledger.ObligationFilter) ([]ledger.Obligation, error) {
	return tv.parent.listObligationsLocked(f)
}

func (tv *txMemoryView) AppendPayment(_ context.Context, p ledger.Payment) error {
	return tv.parent.appendPaymentLocked(p)
}

func (tv *txMemoryView) ListPayments(_ context.Context, id ledger.ObligationID) ([]ledger.Payment, error) {
	return tv.parent.listPaymentsLocked(id)
}

func (tv *txMemoryView) GetOwner(_ context.Context, id ledger.OwnerID) (ledger.Owner, error) {
	return tv.parent.getOwnerLocked(id)
}

func (tv *txMemoryView) SaveOwner(_ context.Context, o ledger.Owner) error {
	return tv.parent.saveOwnerLocked(o)
}

func (tv *txMemoryView) UpdateOwnerBalance(_ context.Context, id ledger.OwnerID, balance ledger.Money, expectedVersion int) error {
	return tv.parent.updateOwnerBalanceLocked(id, balance, expectedVersion)
}

func (tv *txMemoryView) AppendBalanceEntry(_ context.Context, e ledger.BalanceEntry) error {
	return tv.parent.appendBalanceEntryLocked(e)
}

func (tv *txMemoryView) ListBalanceEntries(_ context.Context, id ledger.OwnerID) ([]ledger.BalanceEntry, error) {
	return tv.parent.listBalanceEntriesLocked(id)
}

func (tv *txMemoryView) RegisterApartment(_ context.Context, apartmentID ledger.ApartmentID, ownerID ledger.OwnerID) error {
	tv.parent.apartments[apartmentID] = ownerID
	return nil
}

func (tv *txMemoryView) ResolveOwner(_ context.Context, apartmentID ledger.ApartmentID) (ledger.OwnerID, error) {
	return tv.parent.resolveOwnerLocked(apartmentID)
}

func (tv *txMemoryView) InsertSettlement(_ context.Context, s ledger.Settlement) error {
	return tv.parent.insertSettlementLocked(s)
}

func (tv *txMemoryView) GetSettlement(_ context.Context, id ledger.SettlementID) (ledger.Settlement, error) {
	return tv.parent.getSettlementLocked(id)
}

func (tv *txMemoryView) ListSettlements(_ context.Context, ownerID ledger.OwnerID) ([]ledger.Settlement, error) {
	return tv.parent.listSettlementsLocked(ownerID)
}

func (tv *txMemoryView) UpdateSettlement(_ context.Context, s ledger.Settlement) error {
	return tv.parent.updateSettlementLocked(s)
}
