package ledger

import (
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryDirection represents the direction of a financial movement
type EntryDirection string

const (
	DirectionInflow  EntryDirection = "INFLOW"  // Money entering the account
	DirectionOutflow EntryDirection = "OUTFLOW" // Money leaving the account
)

// IsValid checks if the direction is a valid EntryDirection
func (d EntryDirection) IsValid() bool {
	return d == DirectionInflow || d == DirectionOutflow
}

// String returns the string representation of EntryDirection
func (d EntryDirection) String() string {
	return string(d)
}

// EntryStatus represents the status of an entry
type EntryStatus string

const (
	EntryStatusPending     EntryStatus = "PENDING"     // Created, no balance effect yet
	EntryStatusEffectuated EntryStatus = "EFFECTUATED" // Balance effect applied exactly once
	EntryStatusCancelled   EntryStatus = "CANCELLED"   // Terminal; any balance effect reversed
)

// IsValid checks if the status is a valid EntryStatus
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusPending, EntryStatusEffectuated, EntryStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of EntryStatus
func (s EntryStatus) String() string {
	return string(s)
}

// CounterpartType identifies the kind of counterpart an entry is tied to
type CounterpartType string

const (
	CounterpartClient   CounterpartType = "CLIENT"
	CounterpartSupplier CounterpartType = "SUPPLIER"
)

// IsValid checks if the counterpart type is valid
func (c CounterpartType) IsValid() bool {
	return c == CounterpartClient || c == CounterpartSupplier
}

// Entry represents a single financial movement aggregate root. It is tied to
// exactly one account, optionally to a counterpart (client or supplier) and to
// a parent sale. Status is mutated only through the state machine below;
// direct field edits are forbidden.
type Entry struct {
	shared.TenantAggregateRoot
	EntryNumber     string           `json:"entry_number"`
	Description     string           `json:"description"`
	Direction       EntryDirection   `json:"direction"`
	Amount          decimal.Decimal  `json:"amount"`
	DueDate         time.Time        `json:"due_date"`
	EffectuatedAt   *time.Time       `json:"effectuated_at"` // Set if and only if status is EFFECTUATED
	AccountID       uuid.UUID        `json:"account_id"`
	CounterpartType *CounterpartType `json:"counterpart_type,omitempty"`
	CounterpartID   *uuid.UUID       `json:"counterpart_id,omitempty"`
	SaleID          *uuid.UUID       `json:"sale_id,omitempty"`
	Category        string           `json:"category"`
	Status          EntryStatus      `json:"status"`
	CancelledAt     *time.Time       `json:"cancelled_at"`
}

// NewEntry creates a new entry in PENDING status.
func NewEntry(
	tenantID uuid.UUID,
	entryNumber string,
	direction EntryDirection,
	amount valueobject.Money,
	dueDate time.Time,
	accountID uuid.UUID,
	description string,
) (*Entry, error) {
	if entryNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Entry number cannot be empty")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Entry direction is not valid")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Entry amount must be positive")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Entry due date is required")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Entry account cannot be empty")
	}

	e := &Entry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		EntryNumber:         entryNumber,
		Description:         description,
		Direction:           direction,
		Amount:              amount.Amount(),
		DueDate:             dueDate,
		AccountID:           accountID,
		Status:              EntryStatusPending,
	}

	e.AddDomainEvent(NewEntryCreatedEvent(e))

	return e, nil
}

// WithCounterpart links the entry to a client or supplier
func (e *Entry) WithCounterpart(counterpartType CounterpartType, counterpartID uuid.UUID) error {
	if !counterpartType.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Counterpart type is not valid")
	}
	if counterpartID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Counterpart ID cannot be empty")
	}
	e.CounterpartType = &counterpartType
	e.CounterpartID = &counterpartID
	return nil
}

// WithSale links the entry to a parent sale
func (e *Entry) WithSale(saleID uuid.UUID) *Entry {
	e.SaleID = &saleID
	return e
}

// WithCategory sets a free-form category label
func (e *Entry) WithCategory(category string) *Entry {
	e.Category = category
	return e
}

// Effectuate transitions the entry from PENDING to EFFECTUATED. The caller
// applies the matching balance effect (credit for inflow, debit for outflow)
// to the referenced account in the same transaction. A second effectuation is
// an explicit error, never a silent no-op, so callers stay aware of retries.
func (e *Entry) Effectuate(effectuationDate time.Time) error {
	switch e.Status {
	case EntryStatusEffectuated:
		return shared.NewDomainError(shared.CodeAlreadyEffectuated,
			fmt.Sprintf("Entry %s has already been effectuated", e.EntryNumber))
	case EntryStatusCancelled:
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot effectuate entry %s in %s status", e.EntryNumber, e.Status))
	}
	if effectuationDate.IsZero() {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Effectuation date is required")
	}

	e.Status = EntryStatusEffectuated
	e.EffectuatedAt = &effectuationDate
	e.Touch()
	e.IncrementVersion()

	e.AddDomainEvent(NewEntryEffectuatedEvent(e))

	return nil
}

// Cancel transitions the entry to CANCELLED. It returns true when the entry
// was effectuated, meaning the caller must reverse the balance effect on the
// account before persisting. Cancelling an already cancelled entry is an
// idempotent no-op.
func (e *Entry) Cancel() (reversalRequired bool, err error) {
	if e.Status == EntryStatusCancelled {
		return false, nil
	}

	reversalRequired = e.Status == EntryStatusEffectuated

	now := time.Now()
	previousStatus := e.Status
	e.Status = EntryStatusCancelled
	e.EffectuatedAt = nil
	e.CancelledAt = &now
	e.UpdatedAt = now
	e.IncrementVersion()

	e.AddDomainEvent(NewEntryCancelledEvent(e, previousStatus, reversalRequired))

	return reversalRequired, nil
}

// EntryUpdate is the explicit allow-list of fields that may be changed on a
// pending entry. Nil fields are left untouched.
type EntryUpdate struct {
	Description     *string
	Amount          *valueobject.Money
	DueDate         *time.Time
	Category        *string
	CounterpartType *CounterpartType
	CounterpartID   *uuid.UUID
}

// Update applies an allow-listed field update. Permitted on PENDING entries
// only; effectuated and cancelled entries are immutable apart from the state
// machine transitions.
func (e *Entry) Update(update EntryUpdate) error {
	if e.Status != EntryStatusPending {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot update entry %s in %s status", e.EntryNumber, e.Status))
	}

	if update.Amount != nil {
		if !update.Amount.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidArgument, "Entry amount must be positive")
		}
		e.Amount = update.Amount.Amount()
	}
	if update.DueDate != nil {
		if update.DueDate.IsZero() {
			return shared.NewDomainError(shared.CodeInvalidArgument, "Entry due date is required")
		}
		e.DueDate = *update.DueDate
	}
	if update.Description != nil {
		e.Description = *update.Description
	}
	if update.Category != nil {
		e.Category = *update.Category
	}
	if update.CounterpartType != nil && update.CounterpartID != nil {
		if err := e.WithCounterpart(*update.CounterpartType, *update.CounterpartID); err != nil {
			return err
		}
	}

	e.Touch()
	e.IncrementVersion()

	return nil
}

// ChangeAccount rebinds the entry to another account. For effectuated entries
// the caller reverses the balance effect on the old account and re-applies it
// on the new one, both inside one transaction; the balance must never reflect
// zero or two accounts at once.
func (e *Entry) ChangeAccount(newAccountID uuid.UUID) error {
	if newAccountID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Entry account cannot be empty")
	}
	if e.Status == EntryStatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot change account of entry %s in %s status", e.EntryNumber, e.Status))
	}
	if e.AccountID == newAccountID {
		return nil
	}

	oldAccountID := e.AccountID
	e.AccountID = newAccountID
	e.Touch()
	e.IncrementVersion()

	e.AddDomainEvent(NewEntryAccountChangedEvent(e, oldAccountID))

	return nil
}

// GetAmountMoney returns the entry amount as Money
func (e *Entry) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(e.Amount)
}

// IsPending returns true if the entry is pending
func (e *Entry) IsPending() bool {
	return e.Status == EntryStatusPending
}

// IsEffectuated returns true if the entry has been effectuated
func (e *Entry) IsEffectuated() bool {
	return e.Status == EntryStatusEffectuated
}

// IsCancelled returns true if the entry is cancelled
func (e *Entry) IsCancelled() bool {
	return e.Status == EntryStatusCancelled
}

// SignedAmount returns the amount with the sign of its balance effect:
// positive for inflows, negative for outflows.
func (e *Entry) SignedAmount() decimal.Decimal {
	if e.Direction == DirectionOutflow {
		return e.Amount.Neg()
	}
	return e.Amount
}
