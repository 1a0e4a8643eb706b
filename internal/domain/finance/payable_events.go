package finance

import (
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayableCreatedEvent is raised when a payable is created
type PayableCreatedEvent struct {
	shared.BaseDomainEvent
	PayableNumber string          `json:"payable_number"`
	SupplierID    uuid.UUID       `json:"supplier_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       time.Time       `json:"due_date"`
}

// NewPayableCreatedEvent creates a new payable created event
func NewPayableCreatedEvent(p *Payable) *PayableCreatedEvent {
	return &PayableCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PayableCreated", "Payable", p.ID, p.TenantID),
		PayableNumber:   p.PayableNumber,
		SupplierID:      p.SupplierID,
		TotalAmount:     p.TotalAmount,
		DueDate:         p.DueDate,
	}
}

// PayableSettledEvent is raised when a payable becomes fully settled
type PayableSettledEvent struct {
	shared.BaseDomainEvent
	PayableNumber  string          `json:"payable_number"`
	SettlementDate time.Time       `json:"settlement_date"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// NewPayableSettledEvent creates a new payable settled event
func NewPayableSettledEvent(p *Payable, date time.Time, finalAmount decimal.Decimal) *PayableSettledEvent {
	return &PayableSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PayableSettled", "Payable", p.ID, p.TenantID),
		PayableNumber:   p.PayableNumber,
		SettlementDate:  date,
		FinalAmount:     finalAmount,
		TotalAmount:     p.TotalAmount,
	}
}

// PayableCancelledEvent is raised when a payable is cancelled
type PayableCancelledEvent struct {
	shared.BaseDomainEvent
	PayableNumber  string        `json:"payable_number"`
	PreviousStatus PayableStatus `json:"previous_status"`
	Reason         string        `json:"reason"`
}

// NewPayableCancelledEvent creates a new payable cancelled event
func NewPayableCancelledEvent(p *Payable, previousStatus PayableStatus, reason string) *PayableCancelledEvent {
	return &PayableCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PayableCancelled", "Payable", p.ID, p.TenantID),
		PayableNumber:   p.PayableNumber,
		PreviousStatus:  previousStatus,
		Reason:          reason,
	}
}

// PayableStatusChangedEvent is raised on any other payable status change
type PayableStatusChangedEvent struct {
	shared.BaseDomainEvent
	PayableNumber  string        `json:"payable_number"`
	PreviousStatus PayableStatus `json:"previous_status"`
	NewStatus      PayableStatus `json:"new_status"`
}

// NewPayableStatusChangedEvent creates a new payable status changed event
func NewPayableStatusChangedEvent(p *Payable, previousStatus PayableStatus) *PayableStatusChangedEvent {
	return &PayableStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PayableStatusChanged", "Payable", p.ID, p.TenantID),
		PayableNumber:   p.PayableNumber,
		PreviousStatus:  previousStatus,
		NewStatus:       p.Status,
	}
}
