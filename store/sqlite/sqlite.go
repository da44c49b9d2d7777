/*
Package sqlite provides the SQLite-backed implementation of the ledger store.

PURPOSE:
  Implements ledger.TxStore using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on payments
  - No UPDATE or DELETE statements on balance_entries
  Corrections happen as new rows; history never changes.

OPTIMISTIC CONCURRENCY:
  obligations and owners carry a version column. Updates run
  `... WHERE id = ? AND version = ?`; a zero-row update means another
  writer got there first and surfaces ledger.ErrConcurrentModification.

KEY TABLES:
  obligations:     Debt records with frozen impact figures
  payments:        Immutable payment history per obligation
  owners:          Running balance + commission rate per owner
  balance_entries: Append-only audit trail of balance mutations
  settlements:     One per (owner, period), UNIQUE-enforced
  apartments:      Apartment-to-owner directory

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/atrium/property-ledger/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite allows a single writer anyway, and a ":memory:"
	// database exists per connection, so a pool would see different databases.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Obligations (versioned for optimistic concurrency)
	CREATE TABLE IF NOT EXISTS obligations (
		id TEXT PRIMARY KEY,
		obligation_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		due_date TEXT NOT NULL,
		period TEXT NOT NULL,
		paid_by TEXT NOT NULL,
		contract_id TEXT,
		apartment_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		owner_impact TEXT NOT NULL,
		agency_impact TEXT NOT NULL,
		commission_amount TEXT NOT NULL,
		owner_amount TEXT NOT NULL,
		notes TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_obligations_owner_period
		ON obligations(owner_id, period);
	CREATE INDEX IF NOT EXISTS idx_obligations_status_due
		ON obligations(status, due_date);

	-- Payments (append-only)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		obligation_id TEXT NOT NULL REFERENCES obligations(id),
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		method TEXT NOT NULL,
		reference TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_obligation
		ON payments(obligation_id);

	-- Owners (balance + commission rate; versioned)
	CREATE TABLE IF NOT EXISTS owners (
		id TEXT PRIMARY KEY,
		balance TEXT NOT NULL DEFAULT '0',
		commission_rate TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	);

	-- Balance entries (append-only audit trail)
	CREATE TABLE IF NOT EXISTS balance_entries (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES owners(id),
		delta TEXT NOT NULL,
		reason TEXT NOT NULL,
		reference TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_balance_entries_owner
		ON balance_entries(owner_id, created_at);

	-- Settlements (one per owner and period)
	CREATE TABLE IF NOT EXISTS settlements (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		period TEXT NOT NULL,
		total_income TEXT NOT NULL,
		total_expenses TEXT NOT NULL,
		commission_amount TEXT NOT NULL,
		net_amount TEXT NOT NULL,
		payout_amount TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'pending',
		disposition TEXT,
		method TEXT,
		reference TEXT,
		settled_at TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(owner_id, period)
	);

	CREATE INDEX IF NOT EXISTS idx_settlements_owner
		ON settlements(owner_id);

	-- Apartment directory
	CREATE TABLE IF NOT EXISTS apartments (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES owners(id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx, so every operation can
// run standalone or inside WithTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// OBLIGATIONS
// =============================================================================

func (s *Store) InsertObligation(ctx context.Context, o ledger.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertObligation(ctx, s.db, o)
}

func insertObligation(ctx context.Context, q querier, o ledger.Obligation) error {
	query := `
		INSERT INTO obligations
		(id, obligation_type, amount, paid_amount, status, due_date, period, paid_by,
		 contract_id, apartment_id, owner_id, owner_impact, agency_impact,
		 commission_amount, owner_amount, notes, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		o.ID,
		o.Type,
		o.Amount.String(),
		o.PaidAmount.String(),
		o.Status,
		o.DueDate.UTC().Format(time.RFC3339),
		o.Period.String(),
		o.PaidBy,
		nullString(string(o.ContractID)),
		o.ApartmentID,
		o.OwnerID,
		o.OwnerImpact.String(),
		o.AgencyImpact.String(),
		o.CommissionAmount.String(),
		o.OwnerAmount.String(),
		nullString(o.Notes),
		o.Version,
		o.CreatedAt.UTC().Format(time.RFC3339),
		o.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert obligation: %w", err)
	}
	return nil
}

func (s *Store) GetObligation(ctx context.Context, id ledger.ObligationID) (ledger.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getObligation(ctx, s.db, id)
}

const obligationColumns = `id, obligation_type, amount, paid_amount, status, due_date, period,
	paid_by, contract_id, apartment_id, owner_id, owner_impact, agency_impact,
	commission_amount, owner_amount, notes, version, created_at, updated_at`

func getObligation(ctx context.Context, q querier, id ledger.ObligationID) (ledger.Obligation, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+obligationColumns+` FROM obligations WHERE id = ?`, id)
	o, err := scanObligation(row)
	if err == sql.ErrNoRows {
		return ledger.Obligation{}, ledger.ErrObligationNotFound
	}
	return o, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObligation(row rowScanner) (ledger.Obligation, error) {
	var (
		o                ledger.Obligation
		amount           string
		paidAmount       string
		dueDate          string
		period           string
		contractID       sql.NullString
		ownerImpact      string
		agencyImpact     string
		commissionAmount string
		ownerAmount      string
		notes            sql.NullString
		createdAt        string
		updatedAt        string
	)

	err := row.Scan(
		&o.ID, &o.Type, &amount, &paidAmount, &o.Status, &dueDate, &period,
		&o.PaidBy, &contractID, &o.ApartmentID, &o.OwnerID, &ownerImpact,
		&agencyImpact, &commissionAmount, &ownerAmount, &notes, &o.Version,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return o, err
	}

	o.Amount = mustMoney(amount)
	o.PaidAmount = mustMoney(paidAmount)
	if o.DueDate, err = parseTime("due_date", dueDate); err != nil {
		return o, err
	}
	if o.Period, err = ledger.ParsePeriod(period); err != nil {
		return o, fmt.Errorf("corrupt period %q: %w", period, err)
	}
	o.ContractID = ledger.ContractID(contractID.String)
	o.OwnerImpact = mustMoney(ownerImpact)
	o.AgencyImpact = mustMoney(agencyImpact)
	o.CommissionAmount = mustMoney(commissionAmount)
	o.OwnerAmount = mustMoney(ownerAmount)
	o.Notes = notes.String
	if o.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return o, err
	}
	if o.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return o, err
	}
	return o, nil
}

func (s *Store) UpdateObligation(ctx context.Context, o ledger.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateObligation(ctx, s.db, o)
}

func updateObligation(ctx context.Context, q querier, o ledger.Obligation) error {
	query := `
		UPDATE obligations
		SET paid_amount = ?, status = ?, notes = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	res, err := q.ExecContext(ctx, query,
		o.PaidAmount.String(),
		o.Status,
		nullString(o.Notes),
		o.UpdatedAt.UTC().Format(time.RFC3339),
		o.ID,
		o.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update obligation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the row is gone or another writer bumped the version.
		var exists int
		if err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM obligations WHERE id = ?", o.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ledger.ErrObligationNotFound
		}
		return ledger.ErrConcurrentModification
	}
	return nil
}

func (s *Store) ListObligations(ctx context.Context, f ledger.ObligationFilter) ([]ledger.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listObligations(ctx, s.db, f)
}

func listObligations(ctx context.Context, q querier, f ledger.ObligationFilter) ([]ledger.Obligation, error) {
	var (
		where []string
		args  []any
	)
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Period != nil {
		where = append(where, "period = ?")
		args = append(args, f.Period.String())
	}
	if f.DueBefore != nil {
		where = append(where, "due_date < ?")
		args = append(args, f.DueBefore.UTC().Format(time.RFC3339))
	}
	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			placeholders[i] = "?"
			args = append(args, st)
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT ` + obligationColumns + ` FROM obligations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query obligations: %w", err)
	}
	defer rows.Close()

	var result []ledger.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// =============================================================================
// PAYMENTS (append-only)
// =============================================================================

func (s *Store) AppendPayment(ctx context.Context, p ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendPayment(ctx, s.db, p)
}

func appendPayment(ctx context.Context, q querier, p ledger.Payment) error {
	query := `
		INSERT INTO payments (id, obligation_id, amount, payment_date, method, reference, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		p.ID,
		p.ObligationID,
		p.Amount.String(),
		p.PaymentDate.UTC().Format(time.RFC3339),
		p.Method,
		nullString(p.Reference),
		nullString(p.Notes),
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, obligationID ledger.ObligationID) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPayments(ctx, s.db, obligationID)
}

func listPayments(ctx context.Context, q querier, obligationID ledger.ObligationID) ([]ledger.Payment, error) {
	query := `
		SELECT id, obligation_id, amount, payment_date, method, reference, notes, created_at
		FROM payments
		WHERE obligation_id = ?
		ORDER BY payment_date ASC, created_at ASC
	`

	rows, err := q.QueryContext(ctx, query, obligationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var result []ledger.Payment
	for rows.Next() {
		var (
			p           ledger.Payment
			amount      string
			paymentDate string
			reference   sql.NullString
			notes       sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&p.ID, &p.ObligationID, &amount, &paymentDate,
			&p.Method, &reference, &notes, &createdAt); err != nil {
			return nil, err
		}
		p.Amount = mustMoney(amount)
		if p.PaymentDate, err = parseTime("payment_date", paymentDate); err != nil {
			return nil, err
		}
		p.Reference = reference.String
		p.Notes = notes.String
		if p.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// OWNERS AND BALANCE ENTRIES
// =============================================================================

func (s *Store) GetOwner(ctx context.Context, id ledger.OwnerID) (ledger.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getOwner(ctx, s.db, id)
}

func getOwner(ctx context.Context, q querier, id ledger.OwnerID) (ledger.Owner, error) {
	var (
		o         ledger.Owner
		balance   string
		rate      string
		updatedAt string
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, balance, commission_rate, version, updated_at FROM owners WHERE id = ?",
		id,
	).Scan(&o.ID, &balance, &rate, &o.Version, &updatedAt)
	if err == sql.ErrNoRows {
		return ledger.Owner{}, ledger.ErrOwnerNotFound
	}
	if err != nil {
		return ledger.Owner{}, err
	}

	o.Balance = mustMoney(balance)
	if o.CommissionRate, err = decimal.NewFromString(rate); err != nil {
		return ledger.Owner{}, fmt.Errorf("corrupt commission rate %q: %w", rate, err)
	}
	if o.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return ledger.Owner{}, err
	}
	return o, nil
}

func (s *Store) SaveOwner(ctx context.Context, o ledger.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveOwner(ctx, s.db, o)
}

func saveOwner(ctx context.Context, q querier, o ledger.Owner) error {
	// Registration path: balance and version are preserved on conflict,
	// only the commission rate is updatable here.
	query := `
		INSERT INTO owners (id, balance, commission_rate, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			commission_rate = excluded.commission_rate,
			updated_at = excluded.updated_at
	`

	_, err := q.ExecContext(ctx, query,
		o.ID,
		o.Balance.String(),
		o.CommissionRate.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) UpdateOwnerBalance(ctx context.Context, id ledger.OwnerID, balance ledger.Money, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateOwnerBalance(ctx, s.db, id, balance, expectedVersion)
}

func updateOwnerBalance(ctx context.Context, q querier, id ledger.OwnerID, balance ledger.Money, expectedVersion int) error {
	res, err := q.ExecContext(ctx,
		"UPDATE owners SET balance = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?",
		balance.String(),
		time.Now().UTC().Format(time.RFC3339),
		id,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update owner balance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM owners WHERE id = ?", id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ledger.ErrOwnerNotFound
		}
		return ledger.ErrConcurrentModification
	}
	return nil
}

func (s *Store) AppendBalanceEntry(ctx context.Context, e ledger.BalanceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendBalanceEntry(ctx, s.db, e)
}

func appendBalanceEntry(ctx context.Context, q querier, e ledger.BalanceEntry) error {
	query := `
		INSERT INTO balance_entries (id, owner_id, delta, reason, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		e.ID,
		e.OwnerID,
		e.Delta.String(),
		e.Reason,
		nullString(e.Reference),
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append balance entry: %w", err)
	}
	return nil
}

func (s *Store) ListBalanceEntries(ctx context.Context, ownerID ledger.OwnerID) ([]ledger.BalanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBalanceEntries(ctx, s.db, ownerID)
}

func listBalanceEntries(ctx context.Context, q querier, ownerID ledger.OwnerID) ([]ledger.BalanceEntry, error) {
	query := `
		SELECT id, owner_id, delta, reason, reference, created_at
		FROM balance_entries
		WHERE owner_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance entries: %w", err)
	}
	defer rows.Close()

	var result []ledger.BalanceEntry
	for rows.Next() {
		var (
			e         ledger.BalanceEntry
			delta     string
			reference sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &delta, &e.Reason, &reference, &createdAt); err != nil {
			return nil, err
		}
		e.Delta = mustMoney(delta)
		e.Reference = reference.String
		if e.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// =============================================================================
// APARTMENT DIRECTORY
// =============================================================================

func (s *Store) RegisterApartment(ctx context.Context, apartmentID ledger.ApartmentID, ownerID ledger.OwnerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return registerApartment(ctx, s.db, apartmentID, ownerID)
}

func registerApartment(ctx context.Context, q querier, apartmentID ledger.ApartmentID, ownerID ledger.OwnerID) error {
	query := `
		INSERT INTO apartments (id, owner_id)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id
	`
	_, err := q.ExecContext(ctx, query, apartmentID, ownerID)
	return err
}

func (s *Store) ResolveOwner(ctx context.Context, apartmentID ledger.ApartmentID) (ledger.OwnerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return resolveOwner(ctx, s.db, apartmentID)
}

func resolveOwner(ctx context.Context, q querier, apartmentID ledger.ApartmentID) (ledger.OwnerID, error) {
	var ownerID ledger.OwnerID
	err := q.QueryRowContext(ctx,
		"SELECT owner_id FROM apartments WHERE id = ?", apartmentID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return "", ledger.ErrOwnerNotFound
	}
	return ownerID, err
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

func (s *Store) InsertSettlement(ctx context.Context, sm ledger.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertSettlement(ctx, s.db, sm)
}

func insertSettlement(ctx context.Context, q querier, sm ledger.Settlement) error {
	query := `
		INSERT INTO settlements
		(id, owner_id, period, total_income, total_expenses, commission_amount,
		 net_amount, payout_amount, status, disposition, method, reference,
		 settled_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var settledAt *string
	if sm.SettledAt != nil {
		t := sm.SettledAt.UTC().Format(time.RFC3339)
		settledAt = &t
	}

	_, err := q.ExecContext(ctx, query,
		sm.ID,
		sm.OwnerID,
		sm.Period.String(),
		sm.TotalIncome.String(),
		sm.TotalExpenses.String(),
		sm.CommissionAmount.String(),
		sm.NetAmount.String(),
		sm.PayoutAmount.String(),
		sm.Status,
		nullString(string(sm.Disposition)),
		nullString(string(sm.Method)),
		nullString(sm.Reference),
		settledAt,
		sm.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateSettlement
		}
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

const settlementColumns = `id, owner_id, period, total_income, total_expenses,
	commission_amount, net_amount, payout_amount, status, disposition, method,
	reference, settled_at, created_at`

func (s *Store) GetSettlement(ctx context.Context, id ledger.SettlementID) (ledger.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSettlement(ctx, s.db, id)
}

func getSettlement(ctx context.Context, q querier, id ledger.SettlementID) (ledger.Settlement, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE id = ?`, id)
	sm, err := scanSettlement(row)
	if err == sql.ErrNoRows {
		return ledger.Settlement{}, ledger.ErrSettlementNotFound
	}
	return sm, err
}

func scanSettlement(row rowScanner) (ledger.Settlement, error) {
	var (
		sm               ledger.Settlement
		period           string
		totalIncome      string
		totalExpenses    string
		commissionAmount string
		netAmount        string
		payoutAmount     string
		disposition      sql.NullString
		method           sql.NullString
		reference        sql.NullString
		settledAt        sql.NullString
		createdAt        string
	)

	err := row.Scan(
		&sm.ID, &sm.OwnerID, &period, &totalIncome, &totalExpenses,
		&commissionAmount, &netAmount, &payoutAmount, &sm.Status,
		&disposition, &method, &reference, &settledAt, &createdAt,
	)
	if err != nil {
		return sm, err
	}

	if sm.Period, err = ledger.ParsePeriod(period); err != nil {
		return sm, fmt.Errorf("corrupt period %q: %w", period, err)
	}
	sm.TotalIncome = mustMoney(totalIncome)
	sm.TotalExpenses = mustMoney(totalExpenses)
	sm.CommissionAmount = mustMoney(commissionAmount)
	sm.NetAmount = mustMoney(netAmount)
	sm.PayoutAmount = mustMoney(payoutAmount)
	sm.Disposition = ledger.PayoutDisposition(disposition.String)
	sm.Method = ledger.PaymentMethod(method.String)
	sm.Reference = reference.String
	if settledAt.Valid {
		t, terr := parseTime("settled_at", settledAt.String)
		if terr != nil {
			return sm, terr
		}
		sm.SettledAt = &t
	}
	if sm.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return sm, err
	}
	return sm, nil
}

func (s *Store) ListSettlements(ctx context.Context, ownerID ledger.OwnerID) ([]ledger.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listSettlements(ctx, s.db, ownerID)
}

func listSettlements(ctx context.Context, q querier, ownerID ledger.OwnerID) ([]ledger.Settlement, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE owner_id = ? ORDER BY period ASC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	var result []ledger.Settlement
	for rows.Next() {
		sm, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sm)
	}
	return result, rows.Err()
}

func (s *Store) UpdateSettlement(ctx context.Context, sm ledger.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateSettlement(ctx, s.db, sm)
}

func updateSettlement(ctx context.Context, q querier, sm ledger.Settlement) error {
	var settledAt *string
	if sm.SettledAt != nil {
		t := sm.SettledAt.UTC().Format(time.RFC3339)
		settledAt = &t
	}

	res, err := q.ExecContext(ctx, `
		UPDATE settlements
		SET status = ?, disposition = ?, payout_amount = ?, method = ?, reference = ?, settled_at = ?
		WHERE id = ?
	`,
		sm.Status,
		nullString(string(sm.Disposition)),
		sm.PayoutAmount.String(),
		nullString(string(sm.Method)),
		nullString(sm.Reference),
		settledAt,
		sm.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update settlement: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrSettlementNotFound
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. All reads inside
// fn go through the transaction, so fn sees its own writes.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) InsertObligation(ctx context.Context, o ledger.Obligation) error {
	return insertObligation(ctx, ts.tx, o)
}

func (ts *txStore) GetObligation(ctx context.Context, id ledger.ObligationID) (ledger.Obligation, error) {
	return getObligation(ctx, ts.tx, id)
}

func (ts *txStore) UpdateObligation(ctx context.Context, o ledger.Obligation) error {
	return updateObligation(ctx, ts.tx, o)
}

func (ts *txStore) ListObligations(ctx context.Context, f ledger.ObligationFilter) ([]ledger.Obligation, error) {
	return listObligations(ctx, ts.tx, f)
}

func (ts *txStore) AppendPayment(ctx context.Context, p ledger.Payment) error {
	return appendPayment(ctx, ts.tx, p)
}

func (ts *txStore) ListPayments(ctx context.Context, id ledger.ObligationID) ([]ledger.Payment, error) {
	return listPayments(ctx, ts.tx, id)
}

func (ts *txStore) GetOwner(ctx context.Context, id ledger.OwnerID) (ledger.Owner, error) {
	return getOwner(ctx, ts.tx, id)
}

func (ts *txStore) SaveOwner(ctx context.Context, o ledger.Owner) error {
	return saveOwner(ctx, ts.tx, o)
}

func (ts *txStore) UpdateOwnerBalance(ctx context.Context, id ledger.OwnerID, balance ledger.Money, expectedVersion int) error {
	return updateOwnerBalance(ctx, ts.tx, id, balance, expectedVersion)
}

func (ts *txStore) AppendBalanceEntry(ctx context.Context, e ledger.BalanceEntry) error {
	return appendBalanceEntry(ctx, ts.tx, e)
}

func (ts *txStore) ListBalanceEntries(ctx context.Context, ownerID ledger.OwnerID) ([]ledger.BalanceEntry, error) {
	return listBalanceEntries(ctx, ts.tx, ownerID)
}

func (ts *txStore) RegisterApartment(ctx context.Context, apartmentID ledger.ApartmentID, ownerID ledger.OwnerID) error {
	return registerApartment(ctx, ts.tx, apartmentID, ownerID)
}

func (ts *txStore) ResolveOwner(ctx context.Context, apartmentID ledger.ApartmentID) (ledger.OwnerID, error) {
	return resolveOwner(ctx, ts.tx, apartmentID)
}

func (ts *txStore) InsertSettlement(ctx context.Context, sm ledger.Settlement) error {
	return insertSettlement(ctx, ts.tx, sm)
}

func (ts *txStore) GetSettlement(ctx context.Context, id ledger.SettlementID) (ledger.Settlement, error) {
	return getSettlement(ctx, ts.tx, id)
}

func (ts *txStore) ListSettlements(ctx context.Context, ownerID ledger.OwnerID) ([]ledger.Settlement, error) {
	return listSettlements(ctx, ts.tx, ownerID)
}

func (ts *txStore) UpdateSettlement(ctx context.Context, sm ledger.Settlement) error {
	return updateSettlement(ctx, ts.tx, sm)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payments", "balance_entries", "settlements", "obligations", "apartments", "owners"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func mustMoney(s string) ledger.Money {
	m, err := ledger.ParseMoney(s)
	if err != nil {
		// Stored values were written by Money.String; a parse failure means
		// the database was corrupted outside this process.
		panic(fmt.Sprintf("corrupt money value %q: %v", s, err))
	}
	return m
}

// parseTime decodes a stored RFC3339 timestamp. Stored values were written by
// this package; a failure means the database was corrupted outside it.
func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt %s timestamp %q: %w", field, value, err)
	}
	return t, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
