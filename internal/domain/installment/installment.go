package installment

import (
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ParentType identifies the kind of document that owns an installment plan
type ParentType string

const (
	ParentTypeSale       ParentType = "SALE"
	ParentTypePayable    ParentType = "PAYABLE"
	ParentTypeReceivable ParentType = "RECEIVABLE"
)

// IsValid checks if the parent type is valid
func (p ParentType) IsValid() bool {
	switch p {
	case ParentTypeSale, ParentTypePayable, ParentTypeReceivable:
		return true
	}
	return false
}

// Status represents the status of a single installment
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// IsValid checks if the status is a valid installment Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// cadenceDays is the fixed spacing between consecutive due dates. The plan is
// not calendar-month aware: ordinal k falls (k-1)*30 days after the first due
// date regardless of month length.
const cadenceDays = 30

// Installment is one scheduled portion of a parent document's total. The
// ordered amounts of one plan always sum exactly to the parent total, and
// ordinals are contiguous starting at 1.
type Installment struct {
	shared.TenantAggregateRoot
	ParentType  ParentType      `json:"parent_type"`
	ParentID    uuid.UUID       `json:"parent_id"`
	Ordinal     int             `json:"ordinal"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	PaymentDate *time.Time      `json:"payment_date"` // Set if and only if status is PAID
	Status      Status          `json:"status"`
}

// GeneratePlan splits a parent document's total into count ordered
// installments. Amounts come from Money.Split so the plan sums exactly to the
// total; due dates follow the fixed 30-day cadence from firstDue.
func GeneratePlan(
	tenantID uuid.UUID,
	parentType ParentType,
	parentID uuid.UUID,
	total valueobject.Money,
	firstDue time.Time,
	count int,
) ([]*Installment, error) {
	if !parentType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Parent type is not valid")
	}
	if parentID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Parent ID cannot be empty")
	}
	if count <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Installment count must be positive")
	}
	if !total.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Installment total must be positive")
	}
	if firstDue.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "First due date is required")
	}

	amounts, err := total.Split(count)
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, err.Error())
	}

	plan := make([]*Installment, count)
	for i, amount := range amounts {
		plan[i] = &Installment{
			TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
			ParentType:          parentType,
			ParentID:            parentID,
			Ordinal:             i + 1,
			Amount:              amount.Amount(),
			DueDate:             firstDue.AddDate(0, 0, i*cadenceDays),
			Status:              StatusPending,
		}
	}

	return plan, nil
}

// MarkPaid transitions the installment to PAID and records the payment date.
// A zero paymentDate defaults to now. Marking an already paid installment is
// an idempotent no-op; a cancelled installment cannot be paid.
func (i *Installment) MarkPaid(paymentDate time.Time) error {
	switch i.Status {
	case StatusPaid:
		return nil
	case StatusCancelled:
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot pay installment %d in %s status", i.Ordinal, i.Status))
	}

	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	i.Status = StatusPaid
	i.PaymentDate = &paymentDate
	i.Touch()
	i.IncrementVersion()

	i.AddDomainEvent(NewInstallmentPaidEvent(i))

	return nil
}

// Cancel transitions the installment to CANCELLED. Idempotent. Cancelling an
// installment has no balance effect of its own; any balance effect is driven
// by a separately linked entry.
func (i *Installment) Cancel() error {
	if i.Status == StatusCancelled {
		return nil
	}

	previousStatus := i.Status
	i.Status = StatusCancelled
	i.PaymentDate = nil
	i.Touch()
	i.IncrementVersion()

	i.AddDomainEvent(NewInstallmentCancelledEvent(i, previousStatus))

	return nil
}

// GetAmountMoney returns the installment amount as Money
func (i *Installment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(i.Amount)
}

// IsPaid returns true if the installment is paid
func (i *Installment) IsPaid() bool {
	return i.Status == StatusPaid
}

// IsCancelled returns true if the installment is cancelled
func (i *Installment) IsCancelled() bool {
	return i.Status == StatusCancelled
}

// IsOverdue returns true if the installment is past due and still pending
func (i *Installment) IsOverdue() bool {
	return i.Status == StatusPending && time.Now().After(i.DueDate)
}
