package installment

import (
	"context"
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/installment"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/finbooks/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentService provides application-level installment plan operations.
// It stays parent-agnostic: parent documents are updated through registered
// ParentStatusAppliers, never imported directly.
type InstallmentService struct {
	installmentRepo installment.Repository
	eventPublisher  shared.EventPublisher
	txManager       shared.TransactionManager
	appliers        map[installment.ParentType]installment.ParentStatusApplier
}

// InstallmentServiceOption configures optional collaborators of the service
type InstallmentServiceOption func(*InstallmentService)

// WithTransactionManager makes member transitions and the parent status write
// run in one storage transaction
func WithTransactionManager(txManager shared.TransactionManager) InstallmentServiceOption {
	return func(s *InstallmentService) {
		s.txManager = txManager
	}
}

// NewInstallmentService creates a new InstallmentService
func NewInstallmentService(
	installmentRepo installment.Repository,
	eventPublisher shared.EventPublisher,
	opts ...InstallmentServiceOption,
) *InstallmentService {
	s := &InstallmentService{
		installmentRepo: installmentRepo,
		eventPublisher:  eventPublisher,
		appliers:        make(map[installment.ParentType]installment.ParentStatusApplier),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterApplier registers the status applier for one parent document type.
// Registering a second applier for the same type replaces the first.
func (s *InstallmentService) RegisterApplier(applier installment.ParentStatusApplier) {
	s.appliers[applier.ParentType()] = applier
}

// InstallmentResponse represents an installment in API responses
type InstallmentResponse struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	ParentType  string          `json:"parent_type"`
	ParentID    uuid.UUID       `json:"parent_id"`
	Ordinal     int             `json:"ordinal"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	PaymentDate *time.Time      `json:"payment_date,omitempty"`
	Status      string          `json:"status"`
	Overdue     bool            `json:"overdue"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

func toInstallmentResponse(inst *installment.Installment) *InstallmentResponse {
	return &InstallmentResponse{
		ID:          inst.ID,
		TenantID:    inst.TenantID,
		ParentType:  string(inst.ParentType),
		ParentID:    inst.ParentID,
		Ordinal:     inst.Ordinal,
		Amount:      inst.Amount,
		DueDate:     inst.DueDate,
		PaymentDate: inst.PaymentDate,
		Status:      inst.Status.String(),
		Overdue:     inst.IsOverdue(),
		CreatedAt:   inst.CreatedAt,
		UpdatedAt:   inst.UpdatedAt,
		Version:     inst.Version,
	}
}

// GeneratePlanRequest represents a request to generate an installment plan
type GeneratePlanRequest struct {
	TenantID   uuid.UUID       `json:"tenant_id" binding:"required"`
	ParentType string          `json:"parent_type" binding:"required"`
	ParentID   uuid.UUID       `json:"parent_id" binding:"required"`
	Total      decimal.Decimal `json:"total" binding:"required"`
	FirstDue   time.Time       `json:"first_due" binding:"required"`
	Count      int             `json:"count" binding:"required"`
}

// GeneratePlan splits the parent total into a new installment plan. A parent
// that already has a plan is rejected with ALREADY_SPLIT; the batch insert is
// atomic so a plan is never persisted half-way.
func (s *InstallmentService) GeneratePlan(ctx context.Context, req GeneratePlanRequest) ([]InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "generate_plan")
	defer span.End()

	parentType := installment.ParentType(req.ParentType)

	exists, err := s.installmentRepo.ExistsByParent(ctx, req.TenantID, parentType, req.ParentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check existing plan: %w", err)
	}
	if exists {
		err := shared.NewDomainError(shared.CodeAlreadySplit,
			fmt.Sprintf("Parent %s already has an installment plan", req.ParentID))
		telemetry.RecordError(span, err)
		return nil, err
	}

	plan, err := installment.GeneratePlan(
		req.TenantID,
		parentType,
		req.ParentID,
		valueobject.NewMoneyBRL(req.Total),
		req.FirstDue,
		req.Count,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.installmentRepo.SaveAll(ctx, plan); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save installment plan: %w", err)
	}

	if s.eventPublisher != nil {
		event := installment.NewInstallmentPlanGeneratedEvent(
			req.TenantID, parentType, req.ParentID, req.Count, req.Total, req.FirstDue)
		_ = s.eventPublisher.Publish(ctx, event)
	}

	telemetry.AddEvent(span, "plan_generated",
		"parent_id", req.ParentID.String(),
		"count", fmt.Sprintf("%d", req.Count),
	)

	responses := make([]InstallmentResponse, len(plan))
	for i, inst := range plan {
		responses[i] = *toInstallmentResponse(inst)
	}
	return responses, nil
}

// GetPlan retrieves the full installment plan of a parent document ordered by
// ordinal
func (s *InstallmentService) GetPlan(ctx context.Context, tenantID uuid.UUID, parentType string, parentID uuid.UUID) ([]InstallmentResponse, error) {
	plan, err := s.installmentRepo.FindByParent(ctx, tenantID, installment.ParentType(parentType), parentID)
	if err != nil {
		return nil, err
	}

	responses := make([]InstallmentResponse, len(plan))
	for i, inst := range plan {
		responses[i] = *toInstallmentResponse(inst)
	}
	return responses, nil
}

// MarkPaid marks one installment as paid and propagates the recomputed
// aggregate status to the parent document
func (s *InstallmentService) MarkPaid(ctx context.Context, tenantID, installmentID uuid.UUID, paymentDate time.Time) (*InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "mark_paid")
	defer span.End()

	inst, err := s.findInstallment(ctx, tenantID, installmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := inst.MarkPaid(paymentDate); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	applier, err := s.applierFor(inst.ParentType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.withinTx(ctx, func(ctx context.Context) error {
		if err := s.installmentRepo.SaveWithLock(ctx, inst); err != nil {
			return fmt.Errorf("failed to save installment: %w", err)
		}
		return s.propagateToParent(ctx, applier, inst)
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishDomainEvents(ctx, inst)

	return toInstallmentResponse(inst), nil
}

// Cancel cancels one installment and propagates the recomputed aggregate
// status to the parent document. Idempotent.
func (s *InstallmentService) Cancel(ctx context.Context, tenantID, installmentID uuid.UUID) (*InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "cancel")
	defer span.End()

	inst, err := s.findInstallment(ctx, tenantID, installmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	wasCancelled := inst.IsCancelled()
	if err := inst.Cancel(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if wasCancelled {
		return toInstallmentResponse(inst), nil
	}

	applier, err := s.applierFor(inst.ParentType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.withinTx(ctx, func(ctx context.Context) error {
		if err := s.installmentRepo.SaveWithLock(ctx, inst); err != nil {
			return fmt.Errorf("failed to save installment: %w", err)
		}
		return s.propagateToParent(ctx, applier, inst)
	}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishDomainEvents(ctx, inst)

	return toInstallmentResponse(inst), nil
}

// ListOverdue lists pending installments past their due date for a tenant
func (s *InstallmentService) ListOverdue(ctx context.Context, tenantID uuid.UUID) ([]InstallmentResponse, error) {
	overdue, err := s.installmentRepo.FindOverdue(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	responses := make([]InstallmentResponse, len(overdue))
	for i, inst := range overdue {
		responses[i] = *toInstallmentResponse(inst)
	}
	return responses, nil
}

// applierFor resolves the registered status applier before any write so a
// member transition is never persisted when its parent cannot be updated
func (s *InstallmentService) applierFor(parentType installment.ParentType) (installment.ParentStatusApplier, error) {
	applier, ok := s.appliers[parentType]
	if !ok {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument,
			fmt.Sprintf("No status applier registered for parent type %s", parentType))
	}
	return applier, nil
}

// propagateToParent derives the parent status from the full plan and hands it
// to the applier. Runs inside the same transaction as the member save.
func (s *InstallmentService) propagateToParent(ctx context.Context, applier installment.ParentStatusApplier, inst *installment.Installment) error {
	plan, err := s.installmentRepo.FindByParent(ctx, inst.TenantID, inst.ParentType, inst.ParentID)
	if err != nil {
		return fmt.Errorf("failed to load installment plan: %w", err)
	}

	agg := installment.RecomputeParentStatus(plan)
	if err := applier.ApplyStatus(ctx, inst.TenantID, inst.ParentID, agg); err != nil {
		return fmt.Errorf("failed to apply parent status: %w", err)
	}
	return nil
}

func (s *InstallmentService) withinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txManager == nil {
		return fn(ctx)
	}
	return s.txManager.WithinTransaction(ctx, fn)
}

func (s *InstallmentService) findInstallment(ctx context.Context, tenantID, installmentID uuid.UUID) (*installment.Installment, error) {
	inst, err := s.installmentRepo.FindByIDForTenant(ctx, installmentID, tenantID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Installment not found")
	}
	return inst, nil
}

func (s *InstallmentService) publishDomainEvents(ctx context.Context, inst *installment.Installment) {
	if s.eventPublisher == nil {
		return
	}
	events := inst.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	inst.ClearDomainEvents()
}
