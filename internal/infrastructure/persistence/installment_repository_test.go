package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/finbooks/backend/internal/domain/installment"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/finbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupInstallmentTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.InstallmentModel{})
	require.NoError(t, err)

	return db
}

func newTestPlan(t *testing.T, tenantID, parentID uuid.UUID, total string, count int) []*installment.Installment {
	t.Helper()
	money := valueobject.NewMoneyBRL(decimal.RequireFromString(total))
	plan, err := installment.GeneratePlan(tenantID, installment.ParentTypePayable, parentID, money, time.Now().AddDate(0, 0, 30), count)
	require.NoError(t, err)
	return plan
}

func TestInstallmentRepository_SaveAllAndFindByParent(t *testing.T) {
	db := setupInstallmentTestDB(t)
	repo := NewGormInstallmentRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	parentID := uuid.New()

	t.Run("persists a plan and reads it back in ordinal order", func(t *testing.T) {
		plan := newTestPlan(t, tenantID, parentID, "100.00", 3)
		require.NoError(t, repo.SaveAll(ctx, plan))

		found, err := repo.FindByParent(ctx, tenantID, installment.ParentTypePayable, parentID)
		require.NoError(t, err)
		require.Len(t, found, 3)

		assert.Equal(t, 1, found[0].Ordinal)
		assert.Equal(t, 2, found[1].Ordinal)
		assert.Equal(t, 3, found[2].Ordinal)
		assert.True(t, found[0].Amount.Equal(decimal.RequireFromString("33.33")))
		assert.True(t, found[1].Amount.Equal(decimal.RequireFromString("33.33")))
		assert.True(t, found[2].Amount.Equal(decimal.RequireFromString("33.34")))
	})

	t.Run("reports plan existence by parent", func(t *testing.T) {
		exists, err := repo.ExistsByParent(ctx, tenantID, installment.ParentTypePayable, parentID)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByParent(ctx, tenantID, installment.ParentTypePayable, uuid.New())
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("ignores an empty plan", func(t *testing.T) {
		require.NoError(t, repo.SaveAll(ctx, nil))
	})
}

func TestInstallmentRepository_SaveWithLock(t *testing.T) {
	db := setupInstallmentTestDB(t)
	repo := NewGormInstallmentRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	parentID := uuid.New()

	plan := newTestPlan(t, tenantID, parentID, "300.00", 2)
	require.NoError(t, repo.SaveAll(ctx, plan))

	t.Run("persists a paid installment", func(t *testing.T) {
		inst := plan[0]
		require.NoError(t, inst.MarkPaid(time.Now()))
		require.NoError(t, repo.SaveWithLock(ctx, inst))

		found, err := repo.FindByIDForTenant(ctx, inst.ID, tenantID)
		require.NoError(t, err)
		assert.Equal(t, installment.StatusPaid, found.Status)
		require.NotNil(t, found.PaymentDate)
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		inst := plan[1]
		stale := *inst

		require.NoError(t, inst.Cancel())
		require.NoError(t, repo.SaveWithLock(ctx, inst))

		require.NoError(t, stale.MarkPaid(time.Now()))
		err := repo.SaveWithLock(ctx, &stale)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeConcurrencyConflict))
	})
}

func TestInstallmentRepository_CountNonCancelledByParent(t *testing.T) {
	db := setupInstallmentTestDB(t)
	repo := NewGormInstallmentRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	parentID := uuid.New()

	plan := newTestPlan(t, tenantID, parentID, "90.00", 3)
	require.NoError(t, plan[2].Cancel())
	require.NoError(t, repo.SaveAll(ctx, plan))

	count, err := repo.CountNonCancelledByParent(ctx, tenantID, installment.ParentTypePayable, parentID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestInstallmentRepository_FindOverdue(t *testing.T) {
	db := setupInstallmentTestDB(t)
	repo := NewGormInstallmentRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	overdue := newTestPlan(t, tenantID, uuid.New(), "50.00", 1)[0]
	overdue.DueDate = time.Now().AddDate(0, 0, -5)
	require.NoError(t, repo.Save(ctx, overdue))

	future := newTestPlan(t, tenantID, uuid.New(), "50.00", 1)[0]
	require.NoError(t, repo.Save(ctx, future))

	paid := newTestPlan(t, tenantID, uuid.New(), "50.00", 1)[0]
	paid.DueDate = time.Now().AddDate(0, 0, -5)
	require.NoError(t, paid.MarkPaid(time.Now()))
	require.NoError(t, repo.Save(ctx, paid))

	found, err := repo.FindOverdue(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, overdue.ID, found[0].ID)
}
