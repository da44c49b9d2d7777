/*
manager.go - Obligation creation

PURPOSE:
  Validates a new obligation, resolves the owning party from the apartment,
  freezes the impact figures at the owner's current commission rate, and
  persists the record in pending (or overdue, if created already past due)
  state.

SEE ALSO:
  - impact.go: the frozen figures
  - status.go: initial status derivation
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ObligationSpec is the input to CreateObligation.
type ObligationSpec struct {
	Type        ObligationType
	Amount      Money
	DueDate     time.Time
	Period      Period
	PaidBy      Party
	ContractID  ContractID // optional
	ApartmentID ApartmentID
	Notes       string
}

// Manager creates obligations.
type Manager struct {
	store     Store
	directory OwnerDirectory
	clock     func() time.Time
}

func NewManager(store Store, directory OwnerDirectory) *Manager {
	return &Manager{store: store, directory: directory, clock: time.Now}
}

// WithClock overrides the time source. Used by tests.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// CreateObligation validates the spec, stamps impact figures, and persists.
func (m *Manager) CreateObligation(ctx context.Context, spec ObligationSpec) (Obligation, error) {
	if !spec.Type.Valid() {
		return Obligation{}, fmt.Errorf("%w: unknown obligation type %q", ErrInvalidInput, spec.Type)
	}
	if !spec.PaidBy.Valid() {
		return Obligation{}, fmt.Errorf("%w: unknown party %q", ErrInvalidInput, spec.PaidBy)
	}
	if !spec.Amount.IsPositive() {
		return Obligation{}, fmt.Errorf("%w: obligation amount must be positive", ErrAmountNotPositive)
	}
	if spec.ApartmentID == "" {
		return Obligation{}, fmt.Errorf("%w: apartment id is required", ErrInvalidInput)
	}
	if spec.DueDate.IsZero() {
		return Obligation{}, fmt.Errorf("%w: due date is required", ErrInvalidInput)
	}
	if spec.Period.IsZero() {
		spec.Period = PeriodOf(spec.DueDate)
	}

	ownerID, err := m.directory.ResolveOwner(ctx, spec.ApartmentID)
	if err != nil {
		return Obligation{}, fmt.Errorf("resolving owner for apartment %s: %w", spec.ApartmentID, err)
	}
	owner, err := m.directory.GetOwner(ctx, ownerID)
	if err != nil {
		return Obligation{}, err
	}

	now := m.clock()
	impact := ComputeImpact(spec.Type, spec.PaidBy, spec.Amount, owner.CommissionRate)

	o := Obligation{
		ID:          ObligationID(uuid.NewString()),
		Type:        spec.Type,
		Amount:      spec.Amount,
		PaidAmount:  ZeroMoney(),
		Status:      StatusOf(spec.Amount, ZeroMoney(), spec.DueDate, now),
		DueDate:     spec.DueDate,
		Period:      spec.Period,
		PaidBy:      spec.PaidBy,
		ContractID:  spec.ContractID,
		ApartmentID: spec.ApartmentID,
		OwnerID:     ownerID,

		OwnerImpact:      impact.OwnerImpact,
		AgencyImpact:     impact.AgencyImpact,
		CommissionAmount: impact.CommissionAmount,
		OwnerAmount:      impact.OwnerAmount,

		Notes:     spec.Notes,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.InsertObligation(ctx, o); err != nil {
		return Obligation{}, err
	}
	return o, nil
}
