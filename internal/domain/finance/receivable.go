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

// ReceivableStatus represents the status of a receivable document
type ReceivableStatus string

const (
	ReceivableStatusPending   ReceivableStatus = "PENDING"
	ReceivableStatusPartial   ReceivableStatus = "PARTIAL"
	ReceivableStatusReceived  ReceivableStatus = "RECEIVED"
	ReceivableStatusCancelled ReceivableStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ReceivableStatus
func (s ReceivableStatus) IsValid() bool {
	switch s {
	case ReceivableStatusPending, ReceivableStatusPartial, ReceivableStatusReceived, ReceivableStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ReceivableStatus
func (s ReceivableStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the receivable is in a terminal state
func (s ReceivableStatus) IsTerminal() bool {
	return s == ReceivableStatusReceived || s == ReceivableStatusCancelled
}

// CanSettle returns true if settlements can be registered in this status
func (s ReceivableStatus) CanSettle() bool {
	return s == ReceivableStatusPending || s == ReceivableStatusPartial
}

// Receivable represents money owed by a client. It mirrors Payable with the
// receiving vocabulary; overdue is derived at read time, never stored.
type Receivable struct {
	shared.TenantAggregateRoot
	ReceivableNumber string           `json:"receivable_number"`
	ClientID         uuid.UUID        `json:"client_id"`
	ClientName       string           `json:"client_name"`
	Description      string           `json:"description"`
	Category         string           `json:"category"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	SettledAmount    decimal.Decimal  `json:"settled_amount"`
	Status           ReceivableStatus `json:"status"`
	DueDate          time.Time        `json:"due_date"`
	SettlementDate   *time.Time       `json:"settlement_date"` // Set when fully received
	InstallmentBased bool             `json:"installment_based"`
	InstallmentCount int              `json:"installment_count"`
	SaleID           *uuid.UUID       `json:"sale_id"` // Optional source sale document
	Observation      string           `json:"observation"`
	CancelledAt      *time.Time       `json:"cancelled_at"`
}

// NewReceivable creates a new receivable document
func NewReceivable(
	tenantID uuid.UUID,
	receivableNumber string,
	clientID uuid.UUID,
	clientName string,
	description string,
	totalAmount valueobject.Money,
	dueDate time.Time,
) (*Receivable, error) {
	if receivableNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Receivable number cannot be empty")
	}
	if len(receivableNumber) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Receivable number cannot exceed 50 characters")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Client ID cannot be empty")
	}
	if clientName == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Client name cannot be empty")
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

	r := &Receivable{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ReceivableNumber:    receivableNumber,
		ClientID:            clientID,
		ClientName:          clientName,
		Description:         description,
		TotalAmount:         totalAmount.Amount(),
		SettledAmount:       decimal.Zero,
		Status:              ReceivableStatusPending,
		DueDate:             dueDate,
	}

	r.AddDomainEvent(NewReceivableCreatedEvent(r))

	return r, nil
}

// WithSale links the receivable to its source sale document
func (r *Receivable) WithSale(saleID uuid.UUID) *Receivable {
	if saleID != uuid.Nil {
		r.SaleID = &saleID
	}
	return r
}

// WithCategory sets the income category
func (r *Receivable) WithCategory(category string) *Receivable {
	r.Category = category
	return r
}

// MarkInstallmentBased records that settlement happens through an installment
// plan of the given size
func (r *Receivable) MarkInstallmentBased(count int) error {
	if count <= 0 {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Installment count must be positive")
	}
	if !r.Status.CanSettle() || r.SettledAmount.GreaterThan(decimal.Zero) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot convert receivable %s to installments after settlement started", r.ReceivableNumber))
	}
	if r.InstallmentBased {
		return shared.NewDomainError(shared.CodeAlreadySplit,
			fmt.Sprintf("Receivable %s already has an installment plan", r.ReceivableNumber))
	}

	r.InstallmentBased = true
	r.InstallmentCount = count
	r.Touch()
	r.IncrementVersion()

	return nil
}

// RegisterSettlement records a receipt toward the receivable. A fully received
// receivable rejects further settlements with ALREADY_SETTLED; a cancelled one
// rejects them as an invalid transition. A zero date defaults to now.
func (r *Receivable) RegisterSettlement(date time.Time, amount valueobject.Money) error {
	if r.Status == ReceivableStatusReceived {
		return shared.NewDomainError(shared.CodeAlreadySettled,
			fmt.Sprintf("Receivable %s is already fully settled", r.ReceivableNumber))
	}
	if r.Status == ReceivableStatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot settle receivable in %s status", r.Status))
	}
	if r.InstallmentBased {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Receivable %s is installment based, settle its installments", r.ReceivableNumber))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Settlement amount must be positive")
	}

	outstanding := r.TotalAmount.Sub(r.SettledAmount)
	if amount.Amount().GreaterThan(outstanding) {
		return shared.NewDomainError(shared.CodeInvalidArgument,
			fmt.Sprintf("Settlement amount %s exceeds outstanding amount %s",
				amount.Amount().StringFixed(2), outstanding.StringFixed(2)))
	}

	if date.IsZero() {
		date = time.Now()
	}

	previousStatus := r.Status
	r.SettledAmount = r.SettledAmount.Add(amount.Amount())

	if r.SettledAmount.Equal(r.TotalAmount) {
		r.Status = ReceivableStatusReceived
		r.SettlementDate = &date
		r.AddDomainEvent(NewReceivableSettledEvent(r, date, amount.Amount()))
	} else {
		r.Status = ReceivableStatusPartial
		r.AddDomainEvent(NewReceivableStatusChangedEvent(r, previousStatus))
	}

	r.Touch()
	r.IncrementVersion()

	return nil
}

// Cancel cancels the receivable. A fully received receivable cannot be
// cancelled. The reason is appended to the observation log.
func (r *Receivable) Cancel(reason string) error {
	if r.Status == ReceivableStatusCancelled {
		return nil
	}
	if r.Status == ReceivableStatusReceived {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot cancel receivable in %s status", r.Status))
	}
	if reason == "" {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Cancel reason is required")
	}

	now := time.Now()
	previousStatus := r.Status
	r.Status = ReceivableStatusCancelled
	r.CancelledAt = &now
	r.appendObservation(fmt.Sprintf("Cancelled: %s", reason))
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReceivableCancelledEvent(r, previousStatus, reason))

	return nil
}

// ApplyInstallmentStatus updates the receivable with the aggregated status of
// its installment plan. Only valid for installment based receivables.
func (r *Receivable) ApplyInstallmentStatus(agg installment.Aggregation) error {
	if !r.InstallmentBased {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Receivable %s has no installment plan", r.ReceivableNumber))
	}

	newStatus := receivableStatusFromAggregation(agg.Status)
	if newStatus == r.Status {
		return nil
	}

	previousStatus := r.Status
	r.Status = newStatus

	switch newStatus {
	case ReceivableStatusReceived:
		r.SettledAmount = r.TotalAmount
		if r.SettlementDate == nil {
			r.SettlementDate = agg.SettledAt
		}
	case ReceivableStatusCancelled:
		now := time.Now()
		r.CancelledAt = &now
		r.appendObservation("Cancelled: all installments cancelled")
	}

	r.Touch()
	r.IncrementVersion()

	r.AddDomainEvent(NewReceivableStatusChangedEvent(r, previousStatus))

	return nil
}

func receivableStatusFromAggregation(status installment.ParentStatus) ReceivableStatus {
	switch status {
	case installment.ParentStatusPaid:
		return ReceivableStatusReceived
	case installment.ParentStatusPartiallyPaid:
		return ReceivableStatusPartial
	case installment.ParentStatusCancelled:
		return ReceivableStatusCancelled
	default:
		return ReceivableStatusPending
	}
}

// SetObservation replaces the free-form observation text
func (r *Receivable) SetObservation(observation string) {
	r.Observation = observation
	r.Touch()
	r.IncrementVersion()
}

func (r *Receivable) appendObservation(line string) {
	if r.Observation == "" {
		r.Observation = line
		return
	}
	r.Observation = strings.TrimRight(r.Observation, "\n") + "\n" + line
}

// GetTotalAmountMoney returns the total amount as Money
func (r *Receivable) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(r.TotalAmount)
}

// GetOutstandingAmountMoney returns the outstanding amount as Money
func (r *Receivable) GetOutstandingAmountMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(r.TotalAmount.Sub(r.SettledAmount))
}

// IsSettled returns true if the receivable is fully received
func (r *Receivable) IsSettled() bool {
	return r.Status == ReceivableStatusReceived
}

// IsCancelled returns true if the receivable is cancelled
func (r *Receivable) IsCancelled() bool {
	return r.Status == ReceivableStatusCancelled
}

// IsOverdue returns true if the receivable is past its due date and not settled
func (r *Receivable) IsOverdue() bool {
	if r.Status.IsTerminal() {
		return false
	}
	return time.Now().After(r.DueDate)
}

// DaysOverdue returns the number of days past due (0 if not overdue)
func (r *Receivable) DaysOverdue() int {
	if !r.IsOverdue() {
		return 0
	}
	return int(time.Since(r.DueDate).Hours() / 24)
}
