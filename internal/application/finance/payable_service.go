package finance

import (
	"context"
	"fmt"
	"time"

	appinstallment "github.com/finbooks/backend/internal/application/installment"
	"github.com/finbooks/backend/internal/domain/finance"
	"github.com/finbooks/backend/internal/domain/installment"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/finbooks/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayableService provides application-level payable operations
type PayableService struct {
	payableRepo     finance.PayableRepository
	installmentRepo installment.Repository
	installmentSvc  *appinstallment.InstallmentService
	eventPublisher  shared.EventPublisher
	txManager       shared.TransactionManager
}

// PayableServiceOption configures optional collaborators of the service
type PayableServiceOption func(*PayableService)

// WithPayableTransactions makes the installment split run as one storage
// transaction covering both the plan insert and the parent update
func WithPayableTransactions(txManager shared.TransactionManager) PayableServiceOption {
	return func(s *PayableService) {
		s.txManager = txManager
	}
}

// NewPayableService creates a new PayableService
func NewPayableService(
	payableRepo finance.PayableRepository,
	installmentRepo installment.Repository,
	installmentSvc *appinstallment.InstallmentService,
	eventPublisher shared.EventPublisher,
	opts ...PayableServiceOption,
) *PayableService {
	s := &PayableService{
		payableRepo:     payableRepo,
		installmentRepo: installmentRepo,
		installmentSvc:  installmentSvc,
		eventPublisher:  eventPublisher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PayableResponse represents a payable in API responses
type PayableResponse struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	PayableNumber    string          `json:"payable_number"`
	SupplierID       uuid.UUID       `json:"supplier_id"`
	SupplierName     string          `json:"supplier_name"`
	Description      string          `json:"description"`
	Category         string          `json:"category,omitempty"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	SettledAmount    decimal.Decimal `json:"settled_amount"`
	OutstandingAmt   decimal.Decimal `json:"outstanding_amount"`
	Status           string          `json:"status"`
	DueDate          time.Time       `json:"due_date"`
	SettlementDate   *time.Time      `json:"settlement_date,omitempty"`
	InstallmentBased bool            `json:"installment_based"`
	InstallmentCount int             `json:"installment_count,omitempty"`
	PurchaseID       *uuid.UUID      `json:"purchase_id,omitempty"`
	Observation      string          `json:"observation,omitempty"`
	Overdue          bool            `json:"overdue"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

func toPayableResponse(p *finance.Payable) *PayableResponse {
	return &PayableResponse{
		ID:               p.ID,
		TenantID:         p.TenantID,
		PayableNumber:    p.PayableNumber,
		SupplierID:       p.SupplierID,
		SupplierName:     p.SupplierName,
		Description:      p.Description,
		Category:         p.Category,
		TotalAmount:      p.TotalAmount,
		SettledAmount:    p.SettledAmount,
		OutstandingAmt:   p.TotalAmount.Sub(p.SettledAmount),
		Status:           p.Status.String(),
		DueDate:          p.DueDate,
		SettlementDate:   p.SettlementDate,
		InstallmentBased: p.InstallmentBased,
		InstallmentCount: p.InstallmentCount,
		PurchaseID:       p.PurchaseID,
		Observation:      p.Observation,
		Overdue:          p.IsOverdue(),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		Version:          p.Version,
	}
}

// CreatePayableRequest represents a request to create a payable
type CreatePayableRequest struct {
	TenantID     uuid.UUID       `json:"tenant_id" binding:"required"`
	SupplierID   uuid.UUID       `json:"supplier_id" binding:"required"`
	SupplierName string          `json:"supplier_name" binding:"required"`
	Description  string          `json:"description" binding:"required"`
	Category     string          `json:"category"`
	TotalAmount  decimal.Decimal `json:"total_amount" binding:"required"`
	DueDate      time.Time       `json:"due_date" binding:"required"`
	PurchaseID   *uuid.UUID      `json:"purchase_id"`
}

// CreatePayable creates a new payable document
func (s *PayableService) CreatePayable(ctx context.Context, req CreatePayableRequest) (*PayableResponse, error) {
	number, err := s.payableRepo.GeneratePayableNumber(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate payable number: %w", err)
	}

	payable, err := finance.NewPayable(req.TenantID, number, req.SupplierID, req.SupplierName,
		req.Description, valueobject.NewMoneyBRL(req.TotalAmount), req.DueDate)
	if err != nil {
		return nil, err
	}

	if req.PurchaseID != nil {
		payable.WithPurchase(*req.PurchaseID)
	}
	if req.Category != "" {
		payable.WithCategory(req.Category)
	}

	if err := s.payableRepo.Save(ctx, payable); err != nil {
		return nil, fmt.Errorf("failed to save payable: %w", err)
	}

	s.publishDomainEvents(ctx, payable)

	return toPayableResponse(payable), nil
}

// GetPayable retrieves a payable by ID
func (s *PayableService) GetPayable(ctx context.Context, tenantID, payableID uuid.UUID) (*PayableResponse, error) {
	payable, err := s.findPayable(ctx, tenantID, payableID)
	if err != nil {
		return nil, err
	}
	return toPayableResponse(payable), nil
}

// ListPayables lists payables for a tenant with filtering
func (s *PayableService) ListPayables(ctx context.Context, tenantID uuid.UUID, filter finance.PayableFilter) (*shared.Paginated[*PayableResponse], error) {
	page, err := s.payableRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*PayableResponse, len(page.Items))
	for i, p := range page.Items {
		items[i] = toPayableResponse(p)
	}

	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// RegisterSettlement registers a payment toward the payable
func (s *PayableService) RegisterSettlement(ctx context.Context, tenantID, payableID uuid.UUID, date time.Time, amount decimal.Decimal) (*PayableResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "finance", "settle_payable")
	defer span.End()

	payable, err := s.findPayable(ctx, tenantID, payableID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := payable.RegisterSettlement(date, valueobject.NewMoneyBRL(amount)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.payableRepo.SaveWithLock(ctx, payable); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payable: %w", err)
	}

	s.publishDomainEvents(ctx, payable)

	return toPayableResponse(payable), nil
}

// SplitIntoInstallments converts the payable into an installment based
// document and generates its plan. The first due date defaults to the payable
// due date.
func (s *PayableService) SplitIntoInstallments(ctx context.Context, tenantID, payableID uuid.UUID, count int, firstDue time.Time) (*PayableResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "finance", "split_payable")
	defer span.End()

	payable, err := s.findPayable(ctx, tenantID, payableID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := payable.MarkInstallmentBased(count); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if firstDue.IsZero() {
		firstDue = payable.DueDate
	}

	// The plan insert and the parent flip are one unit: a committed plan on a
	// payable that is not installment based would be directly settleable
	// alongside its own installments.
	if err := s.withinTx(ctx, func(ctx context.Context) error {
		if _, err := s.installmentSvc.GeneratePlan(ctx, appinstallment.GeneratePlanRequest{
			TenantID:   tenantID,
			ParentType: string(installment.ParentTypePayable),
			ParentID:   payableID,
			Total:      payable.TotalAmount,
			FirstDue:   firstDue,
			Count:      count,
		}); err != nil {
			return err
		}
		if err := s.payableRepo.SaveWithLock(ctx, payable); err != nil {
			return fmt.Errorf("failed to save payable: %w", err)
		}
		return nil
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishDomainEvents(ctx, payable)

	return toPayableResponse(payable), nil
}

// CancelPayable cancels the payable and any non-cancelled installments of its
// plan
func (s *PayableService) CancelPayable(ctx context.Context, tenantID, payableID uuid.UUID, reason string) (*PayableResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "finance", "cancel_payable")
	defer span.End()

	payable, err := s.findPayable(ctx, tenantID, payableID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := payable.Cancel(reason); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.withinTx(ctx, func(ctx context.Context) error {
		if err := s.payableRepo.SaveWithLock(ctx, payable); err != nil {
			return fmt.Errorf("failed to save payable: %w", err)
		}
		if payable.InstallmentBased {
			return s.cancelPlan(ctx, tenantID, payableID)
		}
		return nil
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishDomainEvents(ctx, payable)

	return toPayableResponse(payable), nil
}

// DeletePayable removes a payable. Settled payables must be cancelled first;
// payables with non-cancelled installments are protected.
func (s *PayableService) DeletePayable(ctx context.Context, tenantID, payableID uuid.UUID) error {
	payable, err := s.findPayable(ctx, tenantID, payableID)
	if err != nil {
		return err
	}

	if payable.IsSettled() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot delete a settled payable, cancel it first")
	}

	if payable.InstallmentBased {
		count, err := s.installmentRepo.CountNonCancelledByParent(ctx, tenantID,
			installment.ParentTypePayable, payableID)
		if err != nil {
			return fmt.Errorf("failed to count installments: %w", err)
		}
		if count > 0 {
			return shared.NewDomainError(shared.CodeLockedInvariant,
				fmt.Sprintf("Cannot delete payable: %d installments are not cancelled", count))
		}
	}

	// Ledger entries reference sales only, so no entry can pin a payable the
	// way effectuated entries pin a receivable through its sale.
	return s.payableRepo.DeleteForTenant(ctx, payableID, tenantID)
}

// PayableSummary aggregates open payables for a tenant
type PayableSummary struct {
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	OverdueCount     int64           `json:"overdue_count"`
}

// GetSummary returns outstanding and overdue aggregates for a tenant
func (s *PayableService) GetSummary(ctx context.Context, tenantID uuid.UUID) (*PayableSummary, error) {
	outstanding, err := s.payableRepo.SumOutstandingForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	overdueCount, err := s.payableRepo.CountOverdueForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &PayableSummary{
		TotalOutstanding: outstanding,
		OverdueCount:     overdueCount,
	}, nil
}

func (s *PayableService) cancelPlan(ctx context.Context, tenantID, payableID uuid.UUID) error {
	plan, err := s.installmentRepo.FindByParent(ctx, tenantID, installment.ParentTypePayable, payableID)
	if err != nil {
		return fmt.Errorf("failed to load installment plan: %w", err)
	}
	for _, inst := range plan {
		if inst.IsCancelled() {
			continue
		}
		if err := inst.Cancel(); err != nil {
			return err
		}
		if err := s.installmentRepo.SaveWithLock(ctx, inst); err != nil {
			return fmt.Errorf("failed to save installment: %w", err)
		}
	}
	return nil
}

func (s *PayableService) withinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txManager == nil {
		return fn(ctx)
	}
	return s.txManager.WithinTransaction(ctx, fn)
}

func (s *PayableService) findPayable(ctx context.Context, tenantID, payableID uuid.UUID) (*finance.Payable, error) {
	payable, err := s.payableRepo.FindByIDForTenant(ctx, payableID, tenantID)
	if err != nil {
		return nil, err
	}
	if payable == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Payable not found")
	}
	return payable, nil
}

func (s *PayableService) publishDomainEvents(ctx context.Context, payable *finance.Payable) {
	if s.eventPublisher == nil {
		return
	}
	events := payable.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	payable.ClearDomainEvents()
}

// PayableStatusApplier propagates aggregated installment plan statuses back to
// payable documents
type PayableStatusApplier struct {
	payableRepo    finance.PayableRepository
	eventPublisher shared.EventPublisher
}

// NewPayableStatusApplier creates a new PayableStatusApplier
func NewPayableStatusApplier(payableRepo finance.PayableRepository, eventPublisher shared.EventPublisher) *PayableStatusApplier {
	return &PayableStatusApplier{payableRepo: payableRepo, eventPublisher: eventPublisher}
}

// ParentType returns the parent type this applier handles
func (a *PayableStatusApplier) ParentType() installment.ParentType {
	return installment.ParentTypePayable
}

// ApplyStatus updates the payable with the derived aggregation
func (a *PayableStatusApplier) ApplyStatus(ctx context.Context, tenantID, parentID uuid.UUID, agg installment.Aggregation) error {
	payable, err := a.payableRepo.FindByIDForTenant(ctx, parentID, tenantID)
	if err != nil {
		return err
	}
	if payable == nil {
		return shared.NewDomainError(shared.CodeNotFound, "Payable not found")
	}

	version := payable.Version
	if err := payable.ApplyInstallmentStatus(agg); err != nil {
		return err
	}
	if payable.Version == version {
		return nil
	}

	if err := a.payableRepo.SaveWithLock(ctx, payable); err != nil {
		return fmt.Errorf("failed to save payable: %w", err)
	}

	if a.eventPublisher != nil {
		events := payable.GetDomainEvents()
		if len(events) > 0 {
			_ = a.eventPublisher.Publish(ctx, events...)
			payable.ClearDomainEvents()
		}
	}
	return nil
}
