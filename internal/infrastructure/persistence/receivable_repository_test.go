package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/finbooks/backend/internal/domain/finance"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReceivableDoc(t *testing.T, tenantID uuid.UUID, number, total string, dueDate time.Time) *finance.Receivable {
	t.Helper()
	money := valueobject.NewMoneyBRL(decimal.RequireFromString(total))
	receivable, err := finance.NewReceivable(tenantID, number, uuid.New(), "Cliente Norte", "Consulting services", money, dueDate)
	require.NoError(t, err)
	return receivable
}

func TestReceivableRepository_SaveAndFind(t *testing.T) {
	db := setupFinanceTestDB(t)
	repo := NewGormReceivableRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	t.Run("saves and retrieves a receivable", func(t *testing.T) {
		receivable := newTestReceivableDoc(t, tenantID, "AR-20260115-00001", "800.00", time.Now().AddDate(0, 0, 30))
		saleID := uuid.New()
		receivable.WithSale(saleID)
		require.NoError(t, repo.Save(ctx, receivable))

		found, err := repo.FindByIDForTenant(ctx, receivable.ID, tenantID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "AR-20260115-00001", found.ReceivableNumber)
		assert.Equal(t, finance.ReceivableStatusPending, found.Status)
		require.NotNil(t, found.SaleID)
		assert.Equal(t, saleID, *found.SaleID)
	})

	t.Run("does not leak receivables across tenants", func(t *testing.T) {
		receivable := newTestReceivableDoc(t, tenantID, "AR-20260115-00002", "100.00", time.Now().AddDate(0, 0, 30))
		require.NoError(t, repo.Save(ctx, receivable))

		found, err := repo.FindByIDForTenant(ctx, receivable.ID, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestReceivableRepository_SaveWithLock(t *testing.T) {
	db := setupFinanceTestDB(t)
	repo := NewGormReceivableRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	t.Run("persists a full settlement", func(t *testing.T) {
		receivable := newTestReceivableDoc(t, tenantID, "AR-20260115-00010", "600.00", time.Now().AddDate(0, 0, 30))
		require.NoError(t, repo.Save(ctx, receivable))

		err := receivable.RegisterSettlement(time.Now(), valueobject.NewMoneyBRL(decimal.RequireFromString("600.00")))
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, receivable))

		found, err := repo.FindByIDForTenant(ctx, receivable.ID, tenantID)
		require.NoError(t, err)
		assert.Equal(t, finance.ReceivableStatusReceived, found.Status)
		require.NotNil(t, found.SettlementDate)
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		receivable := newTestReceivableDoc(t, tenantID, "AR-20260115-00011", "500.00", time.Now().AddDate(0, 0, 30))
		require.NoError(t, repo.Save(ctx, receivable))

		stale := *receivable
		require.NoError(t, receivable.RegisterSettlement(time.Now(), valueobject.NewMoneyBRL(decimal.RequireFromString("100.00"))))
		require.NoError(t, repo.SaveWithLock(ctx, receivable))

		require.NoError(t, stale.RegisterSettlement(time.Now(), valueobject.NewMoneyBRL(decimal.RequireFromString("50.00"))))
		err := repo.SaveWithLock(ctx, &stale)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeConcurrencyConflict))
	})
}

func TestReceivableRepository_Aggregations(t *testing.T) {
	db := setupFinanceTestDB(t)
	repo := NewGormReceivableRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	open := newTestReceivableDoc(t, tenantID, "AR-20260115-00020", "900.00", time.Now().AddDate(0, 0, -2))
	require.NoError(t, repo.Save(ctx, open))

	received := newTestReceivableDoc(t, tenantID, "AR-20260115-00021", "400.00", time.Now().AddDate(0, 0, -2))
	require.NoError(t, received.RegisterSettlement(time.Now(), valueobject.NewMoneyBRL(decimal.RequireFromString("400.00"))))
	require.NoError(t, repo.Save(ctx, received))

	t.Run("sums outstanding over open documents", func(t *testing.T) {
		total, err := repo.SumOutstandingForTenant(ctx, tenantID)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.RequireFromString("900.00")))
	})

	t.Run("counts overdue open documents", func(t *testing.T) {
		count, err := repo.CountOverdueForTenant(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestReceivableRepository_GenerateReceivableNumber(t *testing.T) {
	db := setupFinanceTestDB(t)
	repo := NewGormReceivableRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	date := time.Now().Format("20060102")

	number, err := repo.GenerateReceivableNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("AR-%s-00001", date), number)

	receivable := newTestReceivableDoc(t, tenantID, number, "100.00", time.Now().AddDate(0, 0, 30))
	require.NoError(t, repo.Save(ctx, receivable))

	number, err = repo.GenerateReceivableNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("AR-%s-00002", date), number)
}

func TestReceivableRepository_FindAllForTenant(t *testing.T) {
	db := setupFinanceTestDB(t)
	repo := NewGormReceivableRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	clientID := uuid.New()

	for i := 1; i <= 3; i++ {
		receivable := newTestReceivableDoc(t, tenantID,
			fmt.Sprintf("AR-20260115-%05d", i), "100.00", time.Now().AddDate(0, 0, i))
		require.NoError(t, repo.Save(ctx, receivable))
	}
	targeted, err := finance.NewReceivable(tenantID, "AR-20260115-00030", clientID, "Cliente Sul", "Maintenance",
		valueobject.NewMoneyBRL(decimal.RequireFromString("250.00")), time.Now().AddDate(0, 0, 15))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, targeted))

	t.Run("filters by client", func(t *testing.T) {
		result, err := repo.FindAllForTenant(ctx, tenantID, finance.ReceivableFilter{ClientID: &clientID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
		require.Len(t, result.Items, 1)
		assert.Equal(t, targeted.ID, result.Items[0].ID)
	})

	t.Run("orders by due date by default", func(t *testing.T) {
		result, err := repo.FindAllForTenant(ctx, tenantID, finance.ReceivableFilter{
			Filter: shared.Filter{Page: 1, PageSize: 10},
		})
		require.NoError(t, err)
		require.Len(t, result.Items, 4)
		for i := 1; i < len(result.Items); i++ {
			assert.False(t, result.Items[i].DueDate.Before(result.Items[i-1].DueDate))
		}
	})
}
