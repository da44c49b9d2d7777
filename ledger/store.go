/*
store.go - Persistence interfaces for the obligations ledger

PURPOSE:
  Defines what the core needs from storage, not how storage works.
  Two implementations exist:
    - ledger/store (memory.go): in-memory, snapshot/rollback transactions
    - store/sqlite: SQLite with WAL and sql.Tx transactions

CONTRACTS:
  - Payments and balance entries are append-only: no update or delete.
  - UpdateObligation and UpdateOwnerBalance enforce optimistic concurrency
    on the record's version and return ErrConcurrentModification when the
    stored version differs from the caller's.
  - InsertSettlement enforces UNIQUE(owner, period) and returns
    ErrDuplicateSettlement on violation.
  - WithTx runs fn against a transactional view; all writes commit or roll
    back as one unit. The payment recorder and the settlement committer
    depend on this for their multi-effect operations.
*/
package ledger

import (
	"context"
	"time"
)

// ObligationFilter narrows ListObligations. Zero-valued fields are ignored.
type ObligationFilter struct {
	OwnerID   OwnerID
	Period    *Period
	Statuses  []ObligationStatus
	DueBefore *time.Time
}

// Store is the synchronous persistence surface of the ledger.
type Store interface {
	// Obligations
	InsertObligation(ctx context.Context, o Obligation) error
	GetObligation(ctx context.Context, id ObligationID) (Obligation, error)
	// UpdateObligation persists o if the stored version matches o.Version,
	// bumping the version; otherwise ErrConcurrentModification.
	UpdateObligation(ctx context.Context, o Obligation) error
	ListObligations(ctx context.Context, f ObligationFilter) ([]Obligation, error)

	// Payments (append-only)
	AppendPayment(ctx context.Context, p Payment) error
	ListPayments(ctx context.Context, obligationID ObligationID) ([]Payment, error)

	// Owners
	GetOwner(ctx context.Context, id OwnerID) (Owner, error)
	// SaveOwner inserts or replaces the owner record (registration path;
	// balance mutations go through UpdateOwnerBalance).
	SaveOwner(ctx context.Context, o Owner) error
	// UpdateOwnerBalance sets the balance if the stored version matches
	// expectedVersion; otherwise ErrConcurrentModification.
	UpdateOwnerBalance(ctx context.Context, id OwnerID, balance Money, expectedVersion int) error

	// Apartment directory (registration + resolution)
	RegisterApartment(ctx context.Context, apartmentID ApartmentID, ownerID OwnerID) error
	ResolveOwner(ctx context.Context, apartmentID ApartmentID) (OwnerID, error)

	// Balance audit trail (append-only)
	AppendBalanceEntry(ctx context.Context, e BalanceEntry) error
	ListBalanceEntries(ctx context.Context, ownerID OwnerID) ([]BalanceEntry, error)

	// Settlements
	InsertSettlement(ctx context.Context, s Settlement) error
	GetSettlement(ctx context.Context, id SettlementID) (Settlement, error)
	ListSettlements(ctx context.Context, ownerID OwnerID) ([]Settlement, error)
	UpdateSettlement(ctx context.Context, s Settlement) error
}

// TxStore extends Store with transactional execution.
type TxStore interface {
	Store

	// WithTx runs fn against a transactional Store. If fn returns an error
	// every write inside it is rolled back; otherwise all commit together.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// OwnerDirectory resolves the read-only facts obligation creation needs about
// the world around it: which owner an apartment belongs to, and that owner's
// commission rate. Both stores satisfy it; a larger system would back it with
// its property registry instead.
type OwnerDirectory interface {
	ResolveOwner(ctx context.Context, apartmentID ApartmentID) (OwnerID, error)
	GetOwner(ctx context.Context, id OwnerID) (Owner, error)
}
