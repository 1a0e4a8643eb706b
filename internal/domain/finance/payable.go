package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/finbooks/backend/internal/domain/installment"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayableStatus represents the status of a payable document
type PayableStatus string

const (
	PayableStatusPending   PayableStatus = "PENDING"   // Unpaid, outstanding balance > 0
	PayableStatusPartial   PayableStatus = "PARTIAL"   // Partially settled, 0 < outstanding < total
	PayableStatusPaid      PayableStatus = "PAID"      // Fully settled, outstanding = 0
	PayableStatusCancelled PayableStatus = "CANCELLED" // Cancelled before full settlement
)

// IsValid checks if the status is a valid PayableStatus
func (s PayableStatus) IsValid() bool {
	switch s {
	case PayableStatusPending, PayableStatusPartial, PayableStatusPaid, PayableStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PayableStatus
func (s PayableStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the payable is in a terminal state
func (s PayableStatus) IsTerminal() bool {
	return s == PayableStatusPaid || s == PayableStatusCancelled
}

// CanSettle returns true if settlements can be registered in this status
func (s PayableStatus) CanSettle() bool {
	return s == PayableStatusPending || s == PayableStatusPartial
}

// Payable represents money owed to a supplier. Overdue is always derived at
// read time from the due date, never stored as a status.
type Payable struct {
	shared.TenantAggregateRoot
	PayableNumber    string          `json:"payable_number"`
	SupplierID       uuid.UUID       `json:"supplier_id"`
	SupplierName     string          `json:"supplier_name"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	SettledAmount    decimal.Decimal `json:"settled_amount"`
	Status           PayableStatus   `json:"status"`
	DueDate          time.Time       `json:"due_date"`
	SettlementDate   *time.Time      `json:"settlement_date"` // Set when fully settled
	InstallmentBased bool            `json:"installment_based"`
	InstallmentCount int             `json:"installment_count"`
	PurchaseID       *uuid.UUID      `json:"purchase_id"` // Optional source purchase document
	Observation      string          `json:"observation"`
	CancelledAt      *time.Time      `json:"cancelled_at"`
}

// NewPayable creates a new payable document
func NewPayable(
	tenantID uuid.UUID,
	payableNumber string,
	supplierID uuid.UUID,
	supplierName string,
	description string,
	totalAmount valueobject.Money,
	dueDate time.Time,
) (*Payable, error) {
	if payableNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Payable number cannot be empty")
	}
	if len(payableNumber) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Payable number cannot exceed 50 characters")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Supplier ID cannot be empty")
	}
	if supplierName == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Supplier name cannot be empty")
	}
	if description == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Description cannot be empty")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Total amount must be positive")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Due date is required")
	}

	p := &Payable{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PayableNumber:       payableNumber,
		SupplierID:          supplierID,
		SupplierName:        supplierName,
		Description:         description,
		TotalAmount:         totalAmount.Amount(),
		SettledAmount:       decimal.Zero,
		Status:              PayableStatusPending,
		DueDate:             dueDate,
	}

	p.AddDomainEvent(NewPayableCreatedEvent(p))

	return p, nil
}

// WithPurchase links the payable to its source purchase document
func (p *Payable) WithPurchase(purchaseID uuid.UUID) *Payable {
	if purchaseID != uuid.Nil {
		p.PurchaseID = &purchaseID
	}
	return p
}

// WithCategory sets the expense category
func (p *Payable) WithCategory(category string) *Payable {
	p.Category = category
	return p
}

// MarkInstallmentBased records that settlement happens through an installment
// plan of the given size. Direct settlements are rejected afterwards; status
// changes arrive through ApplyInstallmentStatus instead.
func (p *Payable) MarkInstallmentBased(count int) error {
	if count <= 0 {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Installment count must be positive")
	}
	if !p.Status.CanSettle() || p.SettledAmount.GreaterThan(decimal.Zero) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot convert payable %s to installments after settlement started", p.PayableNumber))
	}
	if p.InstallmentBased {
		return shared.NewDomainError(shared.CodeAlreadySplit,
			fmt.Sprintf("Payable %s already has an installment plan", p.PayableNumber))
	}

	p.InstallmentBased = true
	p.InstallmentCount = count
	p.Touch()
	p.IncrementVersion()

	return nil
}

// RegisterSettlement records a payment toward the payable. A fully settled
// payable rejects further settlements with ALREADY_SETTLED; a cancelled one
// rejects them as an invalid transition. A zero date defaults to now.
func (p *Payable) RegisterSettlement(date time.Time, amount valueobject.Money) error {
	if p.Status == PayableStatusPaid {
		return shared.NewDomainError(shared.CodeAlreadySettled,
			fmt.Sprintf("Payable %s is already fully settled", p.PayableNumber))
	}
	if p.Status == PayableStatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot settle payable in %s status", p.Status))
	}
	if p.InstallmentBased {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Payable %s is installment based, settle its installments", p.PayableNumber))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Settlement amount must be positive")
	}

	outstanding := p.TotalAmount.Sub(p.SettledAmount)
	if amount.Amount().GreaterThan(outstanding) {
		return shared.NewDomainError(shared.CodeInvalidArgument,
			fmt.Sprintf("Settlement amount %s exceeds outstanding amount %s",
				amount.Amount().StringFixed(2), outstanding.StringFixed(2)))
	}

	if date.IsZero() {
		date = time.Now()
	}

	previousStatus := p.Status
	p.SettledAmount = p.SettledAmount.Add(amount.Amount())

	if p.SettledAmount.Equal(p.TotalAmount) {
		p.Status = PayableStatusPaid
		p.SettlementDate = &date
		p.AddDomainEvent(NewPayableSettledEvent(p, date, amount.Amount()))
	} else {
		p.Status = PayableStatusPartial
		p.AddDomainEvent(NewPayableStatusChangedEvent(p, previousStatus))
	}

	p.Touch()
	p.IncrementVersion()

	return nil
}

// Cancel cancels the payable. A fully settled payable cannot be cancelled.
// The reason is appended to the observation log.
func (p *Payable) Cancel(reason string) error {
	if p.Status == PayableStatusCancelled {
		return nil
	}
	if p.Status == PayableStatusPaid {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot cancel payable in %s status", p.Status))
	}
	if reason == "" {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Cancel reason is required")
	}

	now := time.Now()
	previousStatus := p.Status
	p.Status = PayableStatusCancelled
	p.CancelledAt = &now
	p.appendObservation(fmt.Sprintf("Cancelled: %s", reason))
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPayableCancelledEvent(p, previousStatus, reason))

	return nil
}

// ApplyInstallmentStatus updates the payable with the aggregated status of its
// installment plan. Only valid for installment based payables.
func (p *Payable) ApplyInstallmentStatus(agg installment.Aggregation) error {
	if !p.InstallmentBased {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Payable %s has no installment plan", p.PayableNumber))
	}

	newStatus := payableStatusFromAggregation(agg.Status)
	if newStatus == p.Status {
		return nil
	}

	previousStatus := p.Status
	p.Status = newStatus

	switch newStatus {
	case PayableStatusPaid:
		p.SettledAmount = p.TotalAmount
		if p.SettlementDate == nil {
			p.SettlementDate = agg.SettledAt
		}
	case PayableStatusCancelled:
		now := time.Now()
		p.CancelledAt = &now
		p.appendObservation("Cancelled: all installments cancelled")
	}

	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewPayableStatusChangedEvent(p, previousStatus))

	return nil
}

func payableStatusFromAggregation(status installment.ParentStatus) PayableStatus {
	switch status {
	case installment.ParentStatusPaid:
		return PayableStatusPaid
	case installment.ParentStatusPartiallyPaid:
		return PayableStatusPartial
	case installment.ParentStatusCancelled:
		return PayableStatusCancelled
	default:
		return PayableStatusPending
	}
}

// SetObservation replaces the free-form observation text
func (p *Payable) SetObservation(observation string) {
	p.Observation = observation
	p.Touch()
	p.IncrementVersion()
}

func (p *Payable) appendObservation(line string) {
	if p.Observation == "" {
		p.Observation = line
		return
	}
	p.Observation = strings.TrimRight(p.Observation, "\n") + "\n" + line
}

// GetTotalAmountMoney returns the total amount as Money
func (p *Payable) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(p.TotalAmount)
}

// GetOutstandingAmountMoney returns the outstanding amount as Money
func (p *Payable) GetOutstandingAmountMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(p.TotalAmount.Sub(p.SettledAmount))
}

// IsSettled returns true if the payable is fully settled
func (p *Payable) IsSettled() bool {
	return p.Status == PayableStatusPaid
}

// IsCancelled returns true if the payable is cancelled
func (p *Payable) IsCancelled() bool {
	return p.Status == PayableStatusCancelled
}

// IsOverdue returns true if the payable is past its due date and not settled
func (p *Payable) IsOverdue() bool {
	if p.Status.IsTerminal() {
		return false
	}
	return time.Now().After(p.DueDate)
}

// DaysOverdue returns the number of days past due (0 if not overdue)
func (p *Payable) DaysOverdue() int {
	if !p.IsOverdue() {
		return 0
	}
	return int(time.Since(p.DueDate).Hours() / 24)
}
