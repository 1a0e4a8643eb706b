package installment

import (
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentPlanGeneratedEvent is raised when a plan is generated for a parent document
type InstallmentPlanGeneratedEvent struct {
	shared.BaseDomainEvent
	ParentType ParentType      `json:"parent_type"`
	ParentID   uuid.UUID       `json:"parent_id"`
	Count      int             `json:"count"`
	Total      decimal.Decimal `json:"total"`
	FirstDue   time.Time       `json:"first_due"`
}

// NewInstallmentPlanGeneratedEvent creates a new plan generated event
func NewInstallmentPlanGeneratedEvent(tenantID uuid.UUID, parentType ParentType, parentID uuid.UUID, count int, total decimal.Decimal, firstDue time.Time) *InstallmentPlanGeneratedEvent {
	return &InstallmentPlanGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InstallmentPlanGenerated", "Installment", parentID, tenantID),
		ParentType:      parentType,
		ParentID:        parentID,
		Count:           count,
		Total:           total,
		FirstDue:        firstDue,
	}
}

// ParentStatusDerivedEvent is raised when a plan recomputation produces an
// aggregated status for a parent document that lives outside this engine
type ParentStatusDerivedEvent struct {
	shared.BaseDomainEvent
	ParentType ParentType   `json:"parent_type"`
	ParentID   uuid.UUID    `json:"parent_id"`
	Status     ParentStatus `json:"status"`
	SettledAt  *time.Time   `json:"settled_at,omitempty"`
}

// NewParentStatusDerivedEvent creates a new parent status derived event
func NewParentStatusDerivedEvent(tenantID uuid.UUID, parentType ParentType, parentID uuid.UUID, agg Aggregation) *ParentStatusDerivedEvent {
	return &ParentStatusDerivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ParentStatusDerived", "Installment", parentID, tenantID),
		ParentType:      parentType,
		ParentID:        parentID,
		Status:          agg.Status,
		SettledAt:       agg.SettledAt,
	}
}

// InstallmentPaidEvent is raised when an installment is marked as paid
type InstallmentPaidEvent struct {
	shared.BaseDomainEvent
	ParentType  ParentType      `json:"parent_type"`
	ParentID    uuid.UUID       `json:"parent_id"`
	Ordinal     int             `json:"ordinal"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
}

// NewInstallmentPaidEvent creates a new installment paid event
func NewInstallmentPaidEvent(inst *Installment) *InstallmentPaidEvent {
	var paymentDate time.Time
	if inst.PaymentDate != nil {
		paymentDate = *inst.PaymentDate
	}
	return &InstallmentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InstallmentPaid", "Installment", inst.ID, inst.TenantID),
		ParentType:      inst.ParentType,
		ParentID:        inst.ParentID,
		Ordinal:         inst.Ordinal,
		Amount:          inst.Amount,
		PaymentDate:     paymentDate,
	}
}

// InstallmentCancelledEvent is raised when an installment is cancelled
type InstallmentCancelledEvent struct {
	shared.BaseDomainEvent
	ParentType     ParentType `json:"parent_type"`
	ParentID       uuid.UUID  `json:"parent_id"`
	Ordinal        int        `json:"ordinal"`
	PreviousStatus Status     `json:"previous_status"`
}

// NewInstallmentCancelledEvent creates a new installment cancelled event
func NewInstallmentCancelledEvent(inst *Installment, previousStatus Status) *InstallmentCancelledEvent {
	return &InstallmentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InstallmentCancelled", "Installment", inst.ID, inst.TenantID),
		ParentType:      inst.ParentType,
		ParentID:        inst.ParentID,
		Ordinal:         inst.Ordinal,
		PreviousStatus:  previousStatus,
	}
}
