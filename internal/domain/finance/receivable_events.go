package finance

import (
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableCreatedEvent is raised when a receivable is created
type ReceivableCreatedEvent struct {
	shared.BaseDomainEvent
	ReceivableNumber string          `json:"receivable_number"`
	ClientID         uuid.UUID       `json:"client_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	DueDate          time.Time       `json:"due_date"`
}

// NewReceivableCreatedEvent creates a new receivable created event
func NewReceivableCreatedEvent(r *Receivable) *ReceivableCreatedEvent {
	return &ReceivableCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("ReceivableCreated", "Receivable", r.ID, r.TenantID),
		ReceivableNumber: r.ReceivableNumber,
		ClientID:         r.ClientID,
		TotalAmount:      r.TotalAmount,
		DueDate:          r.DueDate,
	}
}

// ReceivableSettledEvent is raised when a receivable becomes fully received
type ReceivableSettledEvent struct {
	shared.BaseDomainEvent
	ReceivableNumber string          `json:"receivable_number"`
	SettlementDate   time.Time       `json:"settlement_date"`
	FinalAmount      decimal.Decimal `json:"final_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

// NewReceivableSettledEvent creates a new receivable settled event
func NewReceivableSettledEvent(r *Receivable, date time.Time, finalAmount decimal.Decimal) *ReceivableSettledEvent {
	return &ReceivableSettledEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("ReceivableSettled", "Receivable", r.ID, r.TenantID),
		ReceivableNumber: r.ReceivableNumber,
		SettlementDate:   date,
		FinalAmount:      finalAmount,
		TotalAmount:      r.TotalAmount,
	}
}

// ReceivableCancelledEvent is raised when a receivable is cancelled
type ReceivableCancelledEvent struct {
	shared.BaseDomainEvent
	ReceivableNumber string           `json:"receivable_number"`
	PreviousStatus   ReceivableStatus `json:"previous_status"`
	Reason           string           `json:"reason"`
}

// NewReceivableCancelledEvent creates a new receivable cancelled event
func NewReceivableCancelledEvent(r *Receivable, previousStatus ReceivableStatus, reason string) *ReceivableCancelledEvent {
	return &ReceivableCancelledEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("ReceivableCancelled", "Receivable", r.ID, r.TenantID),
		ReceivableNumber: r.ReceivableNumber,
		PreviousStatus:   previousStatus,
		Reason:           reason,
	}
}

// ReceivableStatusChangedEvent is raised on any other receivable status change
type ReceivableStatusChangedEvent struct {
	shared.BaseDomainEvent
	ReceivableNumber string           `json:"receivable_number"`
	PreviousStatus   ReceivableStatus `json:"previous_status"`
	NewStatus        ReceivableStatus `json:"new_status"`
}

// NewReceivableStatusChangedEvent creates a new receivable status changed event
func NewReceivableStatusChangedEvent(r *Receivable, previousStatus ReceivableStatus) *ReceivableStatusChangedEvent {
	return &ReceivableStatusChangedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("ReceivableStatusChanged", "Receivable", r.ID, r.TenantID),
		ReceivableNumber: r.ReceivableNumber,
		PreviousStatus:   previousStatus,
		NewStatus:        r.Status,
	}
}
