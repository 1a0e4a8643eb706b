package ledger

import (
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryCreatedEvent is raised when a new entry is created
type EntryCreatedEvent struct {
	shared.BaseDomainEvent
	EntryID     uuid.UUID       `json:"entry_id"`
	EntryNumber string          `json:"entry_number"`
	Direction   EntryDirection  `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	AccountID   uuid.UUID       `json:"account_id"`
}

// EventType returns the event type name
func (e *EntryCreatedEvent) EventType() string {
	return "EntryCreated"
}

// NewEntryCreatedEvent creates a new EntryCreatedEvent
func NewEntryCreatedEvent(entry *Entry) *EntryCreatedEvent {
	return &EntryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("EntryCreated", "Entry", entry.ID, entry.TenantID),
		EntryID:         entry.ID,
		EntryNumber:     entry.EntryNumber,
		Direction:       entry.Direction,
		Amount:          entry.Amount,
		DueDate:         entry.DueDate,
		AccountID:       entry.AccountID,
	}
}

// EntryEffectuatedEvent is raised when an entry's balance effect is applied
type EntryEffectuatedEvent struct {
	shared.BaseDomainEvent
	EntryID       uuid.UUID       `json:"entry_id"`
	EntryNumber   string          `json:"entry_number"`
	Direction     EntryDirection  `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	AccountID     uuid.UUID       `json:"account_id"`
	EffectuatedAt time.Time       `json:"effectuated_at"`
}

// EventType returns the event type name
func (e *EntryEffectuatedEvent) EventType() string {
	return "EntryEffectuated"
}

// NewEntryEffectuatedEvent creates a new EntryEffectuatedEvent
func NewEntryEffectuatedEvent(entry *Entry) *EntryEffectuatedEvent {
	effectuatedAt := time.Now()
	if entry.EffectuatedAt != nil {
		effectuatedAt = *entry.EffectuatedAt
	}
	return &EntryEffectuatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("EntryEffectuated", "Entry", entry.ID, entry.TenantID),
		EntryID:         entry.ID,
		EntryNumber:     entry.EntryNumber,
		Direction:       entry.Direction,
		Amount:          entry.Amount,
		AccountID:       entry.AccountID,
		EffectuatedAt:   effectuatedAt,
	}
}

// EntryCancelledEvent is raised when an entry is cancelled
type EntryCancelledEvent struct {
	shared.BaseDomainEvent
	EntryID         uuid.UUID       `json:"entry_id"`
	EntryNumber     string          `json:"entry_number"`
	Direction       EntryDirection  `json:"direction"`
	Amount          decimal.Decimal `json:"amount"`
	AccountID       uuid.UUID       `json:"account_id"`
	PreviousStatus  EntryStatus     `json:"previous_status"`
	BalanceReversed bool            `json:"balance_reversed"`
	CancelledAt     time.Time       `json:"cancelled_at"`
}

// EventType returns the event type name
func (e *EntryCancelledEvent) EventType() string {
	return "EntryCancelled"
}

// NewEntryCancelledEvent creates a new EntryCancelledEvent
func NewEntryCancelledEvent(entry *Entry, previousStatus EntryStatus, reversed bool) *EntryCancelledEvent {
	cancelledAt := time.Now()
	if entry.CancelledAt != nil {
		cancelledAt = *entry.CancelledAt
	}
	return &EntryCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("EntryCancelled", "Entry", entry.ID, entry.TenantID),
		EntryID:         entry.ID,
		EntryNumber:     entry.EntryNumber,
		Direction:       entry.Direction,
		Amount:          entry.Amount,
		AccountID:       entry.AccountID,
		PreviousStatus:  previousStatus,
		BalanceReversed: reversed,
		CancelledAt:     cancelledAt,
	}
}

// EntryAccountChangedEvent is raised when an entry is rebound to another account
type EntryAccountChangedEvent struct {
	shared.BaseDomainEvent
	EntryID      uuid.UUID       `json:"entry_id"`
	EntryNumber  string          `json:"entry_number"`
	Amount       decimal.Decimal `json:"amount"`
	OldAccountID uuid.UUID       `json:"old_account_id"`
	NewAccountID uuid.UUID       `json:"new_account_id"`
	Status       EntryStatus     `json:"status"`
}

// EventType returns the event type name
func (e *EntryAccountChangedEvent) EventType() string {
	return "EntryAccountChanged"
}

// NewEntryAccountChangedEvent creates a new EntryAccountChangedEvent
func NewEntryAccountChangedEvent(entry *Entry, oldAccountID uuid.UUID) *EntryAccountChangedEvent {
	return &EntryAccountChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("EntryAccountChanged", "Entry", entry.ID, entry.TenantID),
		EntryID:         entry.ID,
		EntryNumber:     entry.EntryNumber,
		Amount:          entry.Amount,
		OldAccountID:    oldAccountID,
		NewAccountID:    entry.AccountID,
		Status:          entry.Status,
	}
}
