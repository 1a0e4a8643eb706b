package finance

import (
	"context"
	"fmt"
	"time"

	appinstallment "github.com/finbooks/backend/internal/application/installment"
	"github.com/finbooks/backend/internal/domain/finance"
	"github.com/finbooks/backend/internal/domain/installment"
	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/finbooks/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableService provides application-level receivable operations
type ReceivableService struct {
	receivableRepo  finance.ReceivableRepository
	installmentRepo installment.Repository
	entryRepo       ledger.EntryRepository
	installmentSvc  *appinstallment.InstallmentService
	eventPublisher  shared.EventPublisher
	txManager       shared.TransactionManager
}

// ReceivableServiceOption configures optional collaborators of the service
type ReceivableServiceOption func(*ReceivableService)

// WithReceivableTransactions makes the installment split run as one storage
// transaction covering both the plan insert and the parent update
func WithReceivableTransactions(txManager shared.TransactionManager) ReceivableServiceOption {
	return func(s *ReceivableService) {
		s.txManager = txManager
	}
}

// NewReceivableService creates a new ReceivableService
func NewReceivableService(
	receivableRepo finance.ReceivableRepository,
	installmentRepo installment.Repository,
	entryRepo ledger.EntryRepository,
	installmentSvc *appinstallment.InstallmentService,
	eventPublisher shared.EventPublisher,
	opts ...ReceivableServiceOption,
) *ReceivableService {
	s := &ReceivableService{
		receivableRepo:  receivableRepo,
		installmentRepo: installmentRepo,
		entryRepo:       entryRepo,
		installmentSvc:  installmentSvc,
		eventPublisher:  eventPublisher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReceivableResponse represents a receivable in API responses
type ReceivableResponse struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	ReceivableNumber string          `json:"receivable_number"`
	ClientID         uuid.UUID       `json:"client_id"`
	ClientName       string          `json:"client_name"`
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
	SaleID           *uuid.UUID      `json:"sale_id,omitempty"`
	Observation      string          `json:"observation,omitempty"`
	Overdue          bool            `json:"overdue"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

func toReceivableResponse(r *finance.Receivable) *ReceivableResponse {
	return &ReceivableResponse{
		ID:               r.ID,
		TenantID:         r.TenantID,
		ReceivableNumber: r.ReceivableNumber,
		ClientID:         r.ClientID,
		ClientName:       r.ClientName,
		Description:      r.Description,
		Category:         r.Category,
		TotalAmount:      r.TotalAmount,
		SettledAmount:    r.SettledAmount,
		OutstandingAmt:   r.TotalAmount.Sub(r.SettledAmount),
		Status:           r.Status.String(),
		DueDate:          r.DueDate,
		SettlementDate:   r.SettlementDate,
		InstallmentBased: r.InstallmentBased,
		InstallmentCount: r.InstallmentCount,
		SaleID:           r.SaleID,
		Observation:      r.Observation,
		Overdue:          r.IsOverdue(),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		Version:          r.Version,
	}
}

// CreateReceivableRequest represents a request to create a receivable
type CreateReceivableRequest struct {
	TenantID    uuid.UUID       `json:"tenant_id" binding:"required"`
	ClientID    uuid.UUID       `json:"client_id" binding:"required"`
	ClientName  string          `json:"client_name" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Category    string          `json:"category"`
	TotalAmount decimal.Decimal `json:"total_amount" binding:"required"`
	DueDate     time.Time       `json:"due_date" binding:"required"`
	SaleID      *uuid.UUID      `json:"sale_id"`
}

// CreateReceivable creates a new receivable document
func (s *ReceivableService) CreateReceivable(ctx context.Context, req CreateReceivableRequest) (*ReceivableResponse, error) {
	number, err := s.receivableRepo.GenerateReceivableNumber(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate receivable number: %w", err)
	}

	receivable, err := finance.NewReceivable(req.TenantID, number, req.ClientID, req.ClientName,
		req.Description, valueobject.NewMoneyBRL(req.TotalAmount), req.DueDate)
	if err != nil {
		return nil, err
	}

	if req.SaleID != nil {
		receivable.WithSale(*req.SaleID)
	}
	if req.Category != "" {
		receivable.WithCategory(req.Category)
	}

	if err := s.receivableRepo.Save(ctx, receivable); err != nil {
		return nil, fmt.Errorf("failed to save receivable: %w", err)
	}

	s.publishDomainEvents(ctx, receivable)

	return toReceivableResponse(receivable), nil
}

// GetReceivable retrieves a receivable by ID
func (s *ReceivableService) GetReceivable(ctx context.Context, tenantID, receivableID uuid.UUID) (*ReceivableResponse, error) {
	receivable, err := s.findReceivable(ctx, tenantID, receivableID)
	if err != nil {
		return nil, err
	}
	return toReceivableResponse(receivable), nil
}

// ListReceivables lists receivables for a tenant with filtering
func (s *ReceivableService) ListReceivables(ctx context.Context, tenantID uuid.UUID, filter finance.ReceivableFilter) (*shared.Paginated[*ReceivableResponse], error) {
	page, err := s.receivableRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*ReceivableResponse, len(page.Items))
	for i, r := range page.Items {
		items[i] = toReceivableResponse(r)
	}

	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// RegisterSettlement registers a receipt toward the receivable
func (s *ReceivableService) RegisterSettlement(ctx context.Context, tenantID, receivableID uuid.UUID, date time.Time, amount decimal.Decimal) (*ReceivableResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "finance", "settle_receivable")
	defer span.End()

	receivable, err := s.findReceivable(ctx, tenantID, receivableID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := receivable.RegisterSettlement(date, valueobject.NewMoneyBRL(amount)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.receivableRepo.SaveWithLock(ctx, receivable); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save receivable: %w", err)
	}

	s.publishDomainEvents(ctx, receivable)

	return toReceivableResponse(receivable), nil
}

// SplitIntoInstallments converts the receivable into an installment based
// document and generates its plan. The first due date defaults to the
// receivable due date.
func (s *ReceivableService) SplitIntoInstallments(ctx context.Context, tenantID, receivableID uuid.UUID, count int, firstDue time.Time) (*ReceivableResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "finance", "split_receivable")
	defer span.End()

	receivable, err := s.findReceivable(ctx, tenantID, receivableID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := receivable.MarkInstallmentBased(count); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if firstDue.IsZero() {
		firstDue = receivable.DueDate
	}

	// The plan insert and the parent flip are one unit: a committed plan on a
	// receivable that is not installment based would be directly settleable
	// alongside its own installments.
	if err := s.withinTx(ctx, func(ctx context.Context) error {
		if _, err := s.installmentSvc.GeneratePlan(ctx, appinstallment.GeneratePlanRequest{
			TenantID:   tenantID,
			ParentType: string(installment.ParentTypeReceivable),
			ParentID:   receivableID,
			Total:      receivable.TotalAmount,
			FirstDue:   firstDue,
			Count:      count,
		}); err != nil {
			return err
		}
		if err := s.receivableRepo.SaveWithLock(ctx, receivable); err != nil {
			return fmt.Errorf("failed to save receivable: %w", err)
		}
		return nil
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishDomainEvents(ctx, receivable)

	return toReceivableResponse(receivable), nil
}

// CancelReceivable cancels the receivable and any non-cancelled installments
// of its plan
func (s *ReceivableService) CancelReceivable(ctx context.Context, tenantID, receivableID uuid.UUID, reason string) (*ReceivableResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "finance", "cancel_receivable")
	defer span.End()

	receivable, err := s.findReceivable(ctx, tenantID, receivableID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := receivable.Cancel(reason); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.withinTx(ctx, func(ctx context.Context) error {
		if err := s.receivableRepo.SaveWithLock(ctx, receivable); err != nil {
			return fmt.Errorf("failed to save receivable: %w", err)
		}
		if receivable.InstallmentBased {
			return s.cancelPlan(ctx, tenantID, receivableID)
		}
		return nil
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishDomainEvents(ctx, receivable)

	return toReceivableResponse(receivable), nil
}

// DeleteReceivable removes a receivable. Settled receivables must be cancelled
// first; receivables with non-cancelled installments or effectuated ledger
// entries on the linked sale are protected.
func (s *ReceivableService) DeleteReceivable(ctx context.Context, tenantID, receivableID uuid.UUID) error {
	receivable, err := s.findReceivable(ctx, tenantID, receivableID)
	if err != nil {
		return err
	}

	if receivable.IsSettled() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot delete a settled receivable, cancel it first")
	}

	if receivable.InstallmentBased {
		count, err := s.installmentRepo.CountNonCancelledByParent(ctx, tenantID,
			installment.ParentTypeReceivable, receivableID)
		if err != nil {
			return fmt.Errorf("failed to count installments: %w", err)
		}
		if count > 0 {
			return shared.NewDomainError(shared.CodeLockedInvariant,
				fmt.Sprintf("Cannot delete receivable: %d installments are not cancelled", count))
		}
	}

	if receivable.SaleID != nil {
		status := ledger.EntryStatusEffectuated
		posted, err := s.entryRepo.CountForTenant(ctx, tenantID, ledger.EntryFilter{
			SaleID: receivable.SaleID,
			Status: &status,
		})
		if err != nil {
			return fmt.Errorf("failed to count entries: %w", err)
		}
		if posted > 0 {
			return shared.NewDomainError(shared.CodeLockedInvariant,
				fmt.Sprintf("Cannot delete receivable: %d effectuated entries reference its sale", posted))
		}
	}

	return s.receivableRepo.DeleteForTenant(ctx, receivableID, tenantID)
}

// ReceivableSummary aggregates open receivables for a tenant
type ReceivableSummary struct {
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	OverdueCount     int64           `json:"overdue_count"`
}

// GetSummary returns outstanding and overdue aggregates for a tenant
func (s *ReceivableService) GetSummary(ctx context.Context, tenantID uuid.UUID) (*ReceivableSummary, error) {
	outstanding, err := s.receivableRepo.SumOutstandingForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	overdueCount, err := s.receivableRepo.CountOverdueForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &ReceivableSummary{
		TotalOutstanding: outstanding,
		OverdueCount:     overdueCount,
	}, nil
}

func (s *ReceivableService) cancelPlan(ctx context.Context, tenantID, receivableID uuid.UUID) error {
	plan, err := s.installmentRepo.FindByParent(ctx, tenantID, installment.ParentTypeReceivable, receivableID)
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

func (s *ReceivableService) withinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txManager == nil {
		return fn(ctx)
	}
	return s.txManager.WithinTransaction(ctx, fn)
}

func (s *ReceivableService) findReceivable(ctx context.Context, tenantID, receivableID uuid.UUID) (*finance.Receivable, error) {
	receivable, err := s.receivableRepo.FindByIDForTenant(ctx, receivableID, tenantID)
	if err != nil {
		return nil, err
	}
	if receivable == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Receivable not found")
	}
	return receivable, nil
}

func (s *ReceivableService) publishDomainEvents(ctx context.Context, receivable *finance.Receivable) {
	if s.eventPublisher == nil {
		return
	}
	events := receivable.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	receivable.ClearDomainEvents()
}

// ReceivableStatusApplier propagates aggregated installment plan statuses back
// to receivable documents
type ReceivableStatusApplier struct {
	receivableRepo finance.ReceivableRepository
	eventPublisher shared.EventPublisher
}

// NewReceivableStatusApplier creates a new ReceivableStatusApplier
func NewReceivableStatusApplier(receivableRepo finance.ReceivableRepository, eventPublisher shared.EventPublisher) *ReceivableStatusApplier {
	return &ReceivableStatusApplier{receivableRepo: receivableRepo, eventPublisher: eventPublisher}
}

// ParentType returns the parent type this applier handles
func (a *ReceivableStatusApplier) ParentType() installment.ParentType {
	return installment.ParentTypeReceivable
}

// ApplyStatus updates the receivable with the derived aggregation
func (a *ReceivableStatusApplier) ApplyStatus(ctx context.Context, tenantID, parentID uuid.UUID, agg installment.Aggregation) error {
	receivable, err := a.receivableRepo.FindByIDForTenant(ctx, parentID, tenantID)
	if err != nil {
		return err
	}
	if receivable == nil {
		return shared.NewDomainError(shared.CodeNotFound, "Receivable not found")
	}

	version := receivable.Version
	if err := receivable.ApplyInstallmentStatus(agg); err != nil {
		return err
	}
	if receivable.Version == version {
		return nil
	}

	if err := a.receivableRepo.SaveWithLock(ctx, receivable); err != nil {
		return fmt.Errorf("failed to save receivable: %w", err)
	}

	if a.eventPublisher != nil {
		events := receivable.GetDomainEvents()
		if len(events) > 0 {
			_ = a.eventPublisher.Publish(ctx, events...)
			receivable.ClearDomainEvents()
		}
	}
	return nil
}
