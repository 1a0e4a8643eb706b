package persistence

import (
	"context"
	"testing"

	"github.com/finbooks/backend/internal/domain/ledger"
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

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.AccountModel{}, &models.EntryModel{})
	require.NoError(t, err)

	return db
}

func newTestAccount(t *testing.T, tenantID uuid.UUID, balance string) *ledger.Account {
	t.Helper()
	opening := valueobject.NewMoneyBRL(decimal.RequireFromString(balance))
	account, err := ledger.NewAccount(tenantID, "Conta Corrente", "Banco Azul", opening)
	require.NoError(t, err)
	return account
}

func TestAccountRepository_SaveAndFind(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	t.Run("saves and retrieves an account", func(t *testing.T) {
		account := newTestAccount(t, tenantID, "1000.00")

		err := repo.Save(ctx, account)
		require.NoError(t, err)

		found, err := repo.FindByIDForTenant(ctx, tenantID, account.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, account.ID, found.ID)
		assert.Equal(t, "Conta Corrente", found.Name)
		assert.True(t, found.OpeningBalance.Equal(decimal.RequireFromString("1000.00")))
		assert.True(t, found.CurrentBalance.Equal(decimal.RequireFromString("1000.00")))
		assert.True(t, found.Active)
	})

	t.Run("returns nil for unknown account", func(t *testing.T) {
		found, err := repo.FindByIDForTenant(ctx, tenantID, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("does not leak accounts across tenants", func(t *testing.T) {
		account := newTestAccount(t, tenantID, "500.00")
		require.NoError(t, repo.Save(ctx, account))

		found, err := repo.FindByIDForTenant(ctx, uuid.New(), account.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestAccountRepository_SaveWithLock(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	t.Run("persists a version-checked update", func(t *testing.T) {
		account := newTestAccount(t, tenantID, "1000.00")
		require.NoError(t, repo.Save(ctx, account))

		err := account.Credit(valueobject.NewMoneyBRL(decimal.RequireFromString("250.00")))
		require.NoError(t, err)

		err = repo.SaveWithLock(ctx, account)
		require.NoError(t, err)

		found, err := repo.FindByIDForTenant(ctx, tenantID, account.ID)
		require.NoError(t, err)
		assert.True(t, found.CurrentBalance.Equal(decimal.RequireFromString("1250.00")))
		assert.Equal(t, 2, found.Version)
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		account := newTestAccount(t, tenantID, "1000.00")
		require.NoError(t, repo.Save(ctx, account))

		stale := *account
		require.NoError(t, account.Credit(valueobject.NewMoneyBRL(decimal.RequireFromString("100.00"))))
		require.NoError(t, repo.SaveWithLock(ctx, account))

		require.NoError(t, stale.Credit(valueobject.NewMoneyBRL(decimal.RequireFromString("50.00"))))
		err := repo.SaveWithLock(ctx, &stale)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeConcurrencyConflict))

		found, err := repo.FindByIDForTenant(ctx, tenantID, account.ID)
		require.NoError(t, err)
		assert.True(t, found.CurrentBalance.Equal(decimal.RequireFromString("1100.00")))
	})

	t.Run("persists zero-valued fields", func(t *testing.T) {
		account := newTestAccount(t, tenantID, "300.00")
		require.NoError(t, repo.Save(ctx, account))

		account.Deactivate()
		require.NoError(t, repo.SaveWithLock(ctx, account))

		found, err := repo.FindByIDForTenant(ctx, tenantID, account.ID)
		require.NoError(t, err)
		assert.False(t, found.Active)
	})
}

func TestAccountRepository_FindAllForTenant(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	otherTenant := uuid.New()

	for _, balance := range []string{"100.00", "200.00", "300.00"} {
		require.NoError(t, repo.Save(ctx, newTestAccount(t, tenantID, balance)))
	}
	require.NoError(t, repo.Save(ctx, newTestAccount(t, otherTenant, "999.00")))

	inactive := newTestAccount(t, tenantID, "0.00")
	inactive.Deactivate()
	require.NoError(t, repo.Save(ctx, inactive))

	t.Run("returns only the tenant's accounts", func(t *testing.T) {
		accounts, err := repo.FindAllForTenant(ctx, tenantID, ledger.AccountFilter{})
		require.NoError(t, err)
		assert.Len(t, accounts, 4)
	})

	t.Run("filters by active flag", func(t *testing.T) {
		active := true
		accounts, err := repo.FindAllForTenant(ctx, tenantID, ledger.AccountFilter{Active: &active})
		require.NoError(t, err)
		assert.Len(t, accounts, 3)
	})

	t.Run("counts with filter", func(t *testing.T) {
		active := false
		count, err := repo.CountForTenant(ctx, tenantID, ledger.AccountFilter{Active: &active})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestAccountRepository_DeleteForTenant(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	t.Run("deletes an existing account", func(t *testing.T) {
		account := newTestAccount(t, tenantID, "100.00")
		require.NoError(t, repo.Save(ctx, account))

		err := repo.DeleteForTenant(ctx, tenantID, account.ID)
		require.NoError(t, err)

		found, err := repo.FindByIDForTenant(ctx, tenantID, account.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("reports not found for unknown account", func(t *testing.T) {
		err := repo.DeleteForTenant(ctx, tenantID, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})

	t.Run("refuses cross-tenant deletes", func(t *testing.T) {
		account := newTestAccount(t, tenantID, "100.00")
		require.NoError(t, repo.Save(ctx, account))

		err := repo.DeleteForTenant(ctx, uuid.New(), account.ID)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})
}
