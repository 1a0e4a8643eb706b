package installment

import (
	"context"
	"testing"
	"time"

	"github.com/finbooks/backend/internal/domain/installment"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mocks
// =============================================================================

type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*installment.Installment, error) {
	args := m.Called(ctx, id, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) FindByParent(ctx context.Context, tenantID uuid.UUID, parentType installment.ParentType, parentID uuid.UUID) ([]*installment.Installment, error) {
	args := m.Called(ctx, tenantID, parentType, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) ExistsByParent(ctx context.Context, tenantID uuid.UUID, parentType installment.ParentType, parentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, parentType, parentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInstallmentRepository) CountNonCancelledByParent(ctx context.Context, tenantID uuid.UUID, parentType installment.ParentType, parentID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, parentType, parentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInstallmentRepository) SaveAll(ctx context.Context, installments []*installment.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) Save(ctx context.Context, inst *installment.Installment) error {
	args := m.Called(ctx, inst)
	return args.Error(0)
}

func (m *MockInstallmentRepository) SaveWithLock(ctx context.Context, inst *installment.Installment) error {
	args := m.Called(ctx, inst)
	return args.Error(0)
}

func (m *MockInstallmentRepository) FindOverdue(ctx context.Context, tenantID uuid.UUID) ([]*installment.Installment, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*installment.Installment), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// recordingApplier captures the aggregation handed down by the service
type recordingApplier struct {
	parentType installment.ParentType
	applied    []installment.Aggregation
	err        error
}

func (r *recordingApplier) ParentType() installment.ParentType { return r.parentType }

func (r *recordingApplier) ApplyStatus(_ context.Context, _, _ uuid.UUID, agg installment.Aggregation) error {
	r.applied = append(r.applied, agg)
	return r.err
}

// =============================================================================
// Fixtures
// =============================================================================

func testPlan(t *testing.T, tenantID, parentID uuid.UUID, total string, count int) []*installment.Installment {
	t.Helper()
	m, err := valueobject.NewMoneyBRLFromString(total)
	require.NoError(t, err)
	plan, err := installment.GeneratePlan(tenantID, installment.ParentTypePayable, parentID,
		m, time.Now().AddDate(0, 0, 30), count)
	require.NoError(t, err)
	for _, inst := range plan {
		inst.ClearDomainEvents()
	}
	return plan
}

// =============================================================================
// Tests
// =============================================================================

func TestInstallmentService_GeneratePlan(t *testing.T) {
	tenantID := uuid.New()
	parentID := uuid.New()
	ctx := context.Background()

	t.Run("generates and saves a full plan atomically", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		publisher := new(MockEventPublisher)
		svc := NewInstallmentService(repo, publisher)

		repo.On("ExistsByParent", ctx, tenantID, installment.ParentTypePayable, parentID).Return(false, nil)
		repo.On("SaveAll", ctx, mock.AnythingOfType("[]*installment.Installment")).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.GeneratePlan(ctx, GeneratePlanRequest{
			TenantID:   tenantID,
			ParentType: "PAYABLE",
			ParentID:   parentID,
			Total:      decimal.RequireFromString("100.00"),
			FirstDue:   time.Now().AddDate(0, 0, 30),
			Count:      3,
		})

		require.NoError(t, err)
		require.Len(t, resp, 3)
		assert.Equal(t, "33.33", resp[0].Amount.StringFixed(2))
		assert.Equal(t, "33.33", resp[1].Amount.StringFixed(2))
		assert.Equal(t, "33.34", resp[2].Amount.StringFixed(2))
		assert.Equal(t, 1, resp[0].Ordinal)
		assert.Equal(t, 3, resp[2].Ordinal)
		repo.AssertExpectations(t)
	})

	t.Run("second plan for the same parent is rejected", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		svc := NewInstallmentService(repo, nil)

		repo.On("ExistsByParent", ctx, tenantID, installment.ParentTypePayable, parentID).Return(true, nil)

		_, err := svc.GeneratePlan(ctx, GeneratePlanRequest{
			TenantID:   tenantID,
			ParentType: "PAYABLE",
			ParentID:   parentID,
			Total:      decimal.RequireFromString("100.00"),
			FirstDue:   time.Now(),
			Count:      3,
		})

		assert.True(t, shared.IsCode(err, shared.CodeAlreadySplit))
		repo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
	})

	t.Run("invalid count is rejected before touching the repository", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		svc := NewInstallmentService(repo, nil)

		repo.On("ExistsByParent", ctx, tenantID, installment.ParentTypePayable, parentID).Return(false, nil)

		_, err := svc.GeneratePlan(ctx, GeneratePlanRequest{
			TenantID:   tenantID,
			ParentType: "PAYABLE",
			ParentID:   parentID,
			Total:      decimal.RequireFromString("100.00"),
			FirstDue:   time.Now(),
			Count:      0,
		})

		assert.True(t, shared.IsCode(err, shared.CodeInvalidArgument))
		repo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
	})
}

func TestInstallmentService_MarkPaid(t *testing.T) {
	tenantID := uuid.New()
	parentID := uuid.New()
	ctx := context.Background()

	t.Run("marks paid and propagates partial status to the parent", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		publisher := new(MockEventPublisher)
		svc := NewInstallmentService(repo, publisher)
		applier := &recordingApplier{parentType: installment.ParentTypePayable}
		svc.RegisterApplier(applier)

		plan := testPlan(t, tenantID, parentID, "300.00", 3)
		target := plan[0]

		repo.On("FindByIDForTenant", ctx, target.ID, tenantID).Return(target, nil)
		repo.On("SaveWithLock", ctx, target).Return(nil)
		repo.On("FindByParent", ctx, tenantID, installment.ParentTypePayable, parentID).Return(plan, nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.MarkPaid(ctx, tenantID, target.ID, time.Now())

		require.NoError(t, err)
		assert.Equal(t, "PAID", resp.Status)
		require.Len(t, applier.applied, 1)
		assert.Equal(t, installment.ParentStatusPartiallyPaid, applier.applied[0].Status)
	})

	t.Run("paying the last pending installment settles the parent", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		publisher := new(MockEventPublisher)
		svc := NewInstallmentService(repo, publisher)
		applier := &recordingApplier{parentType: installment.ParentTypePayable}
		svc.RegisterApplier(applier)

		plan := testPlan(t, tenantID, parentID, "200.00", 2)
		require.NoError(t, plan[0].MarkPaid(time.Now().AddDate(0, 0, -1)))
		plan[0].ClearDomainEvents()
		target := plan[1]

		repo.On("FindByIDForTenant", ctx, target.ID, tenantID).Return(target, nil)
		repo.On("SaveWithLock", ctx, target).Return(nil)
		repo.On("FindByParent", ctx, tenantID, installment.ParentTypePayable, parentID).Return(plan, nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		_, err := svc.MarkPaid(ctx, tenantID, target.ID, time.Now())

		require.NoError(t, err)
		require.Len(t, applier.applied, 1)
		assert.Equal(t, installment.ParentStatusPaid, applier.applied[0].Status)
		require.NotNil(t, applier.applied[0].SettledAt)
	})

	t.Run("missing applier rejects the transition before any write", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		svc := NewInstallmentService(repo, nil)

		plan := testPlan(t, tenantID, parentID, "300.00", 3)
		target := plan[0]

		repo.On("FindByIDForTenant", ctx, target.ID, tenantID).Return(target, nil)

		_, err := svc.MarkPaid(ctx, tenantID, target.ID, time.Now())

		assert.True(t, shared.IsCode(err, shared.CodeInvalidArgument))
		repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("sale plan installments settle through the sale applier", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		publisher := new(MockEventPublisher)
		svc := NewInstallmentService(repo, publisher)
		svc.RegisterApplier(NewSaleStatusApplier(publisher))

		m, err := valueobject.NewMoneyBRLFromString("300.00")
		require.NoError(t, err)
		plan, err := installment.GeneratePlan(tenantID, installment.ParentTypeSale, parentID,
			m, time.Now().AddDate(0, 0, 30), 3)
		require.NoError(t, err)
		for _, inst := range plan {
			inst.ClearDomainEvents()
		}
		target := plan[0]

		repo.On("FindByIDForTenant", ctx, target.ID, tenantID).Return(target, nil)
		repo.On("SaveWithLock", ctx, target).Return(nil)
		repo.On("FindByParent", ctx, tenantID, installment.ParentTypeSale, parentID).Return(plan, nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.MarkPaid(ctx, tenantID, target.ID, time.Now())

		require.NoError(t, err)
		assert.Equal(t, "PAID", resp.Status)
		repo.AssertExpectations(t)
	})

	t.Run("cancelled installment cannot be paid", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		svc := NewInstallmentService(repo, nil)

		plan := testPlan(t, tenantID, parentID, "300.00", 3)
		target := plan[0]
		require.NoError(t, target.Cancel())
		target.ClearDomainEvents()

		repo.On("FindByIDForTenant", ctx, target.ID, tenantID).Return(target, nil)

		_, err := svc.MarkPaid(ctx, tenantID, target.ID, time.Now())

		assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
		repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("unknown installment returns not found", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		svc := NewInstallmentService(repo, nil)

		missingID := uuid.New()
		repo.On("FindByIDForTenant", ctx, missingID, tenantID).Return(nil, nil)

		_, err := svc.MarkPaid(ctx, tenantID, missingID, time.Now())

		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})
}

func TestInstallmentService_Cancel(t *testing.T) {
	tenantID := uuid.New()
	parentID := uuid.New()
	ctx := context.Background()

	t.Run("cancelling the whole plan cancels the parent", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		publisher := new(MockEventPublisher)
		svc := NewInstallmentService(repo, publisher)
		applier := &recordingApplier{parentType: installment.ParentTypePayable}
		svc.RegisterApplier(applier)

		plan := testPlan(t, tenantID, parentID, "200.00", 2)
		require.NoError(t, plan[0].Cancel())
		plan[0].ClearDomainEvents()
		target := plan[1]

		repo.On("FindByIDForTenant", ctx, target.ID, tenantID).Return(target, nil)
		repo.On("SaveWithLock", ctx, target).Return(nil)
		repo.On("FindByParent", ctx, tenantID, installment.ParentTypePayable, parentID).Return(plan, nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.Cancel(ctx, tenantID, target.ID)

		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", resp.Status)
		require.Len(t, applier.applied, 1)
		assert.Equal(t, installment.ParentStatusCancelled, applier.applied[0].Status)
	})

	t.Run("cancelling an already cancelled installment is a silent no-op", func(t *testing.T) {
		repo := new(MockInstallmentRepository)
		svc := NewInstallmentService(repo, nil)
		applier := &recordingApplier{parentType: installment.ParentTypePayable}
		svc.RegisterApplier(applier)

		plan := testPlan(t, tenantID, parentID, "200.00", 2)
		target := plan[0]
		require.NoError(t, target.Cancel())
		target.ClearDomainEvents()

		repo.On("FindByIDForTenant", ctx, target.ID, tenantID).Return(target, nil)

		resp, err := svc.Cancel(ctx, tenantID, target.ID)

		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", resp.Status)
		assert.Empty(t, applier.applied)
		repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}
