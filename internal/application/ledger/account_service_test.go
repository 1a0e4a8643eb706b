package ledger

import (
	"context"
	"testing"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func moneyBRL(t *testing.T, s string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyBRLFromString(s)
	require.NoError(t, err)
	return m
}

func TestAccountService_CreateAccount(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("creates account with opening balance", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		publisher := new(MockEventPublisher)
		svc := NewAccountService(accountRepo, new(MockEntryRepository), publisher)

		accountRepo.On("Save", ctx, mock.AnythingOfType("*ledger.Account")).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.CreateAccount(ctx, CreateAccountRequest{
			TenantID:       tenantID,
			Name:           "Conta Corrente",
			Institution:    "Banco Azul",
			OpeningBalance: dec("1500.00"),
		})

		require.NoError(t, err)
		assert.Equal(t, "1500.00", resp.CurrentBalance.StringFixed(2))
		assert.True(t, resp.Active)
		accountRepo.AssertExpectations(t)
	})

	t.Run("rejects negative opening balance", func(t *testing.T) {
		svc := NewAccountService(new(MockAccountRepository), new(MockEntryRepository), nil)

		_, err := svc.CreateAccount(ctx, CreateAccountRequest{
			TenantID:       tenantID,
			Name:           "Conta Corrente",
			OpeningBalance: dec("-10.00"),
		})

		assert.True(t, shared.IsCode(err, shared.CodeInvalidArgument))
	})
}

func TestAccountService_CreditAndDebit(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("credit increases balance and persists with lock", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		publisher := new(MockEventPublisher)
		svc := NewAccountService(accountRepo, new(MockEntryRepository), publisher)

		account := newAccount(t, tenantID, "1000.00")
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)
		accountRepo.On("SaveWithLock", ctx, account).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.Credit(ctx, tenantID, account.ID, dec("250.00"))

		require.NoError(t, err)
		assert.Equal(t, "1250.00", resp.CurrentBalance.StringFixed(2))
	})

	t.Run("debit beyond balance fails without persisting", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		svc := NewAccountService(accountRepo, new(MockEntryRepository), nil)

		account := newAccount(t, tenantID, "100.00")
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)

		_, err := svc.Debit(ctx, tenantID, account.ID, dec("250.00"))

		assert.True(t, shared.IsCode(err, shared.CodeInsufficientFunds))
		accountRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("unknown account returns not found", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		svc := NewAccountService(accountRepo, new(MockEntryRepository), nil)

		missingID := uuid.New()
		accountRepo.On("FindByIDForTenant", ctx, tenantID, missingID).Return(nil, nil)

		_, err := svc.Credit(ctx, tenantID, missingID, dec("10.00"))

		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})
}

func TestAccountService_AdjustBalance(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("adjustment sets the balance and requires a reason", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		publisher := new(MockEventPublisher)
		svc := NewAccountService(accountRepo, new(MockEntryRepository), publisher)

		account := newAccount(t, tenantID, "1000.00")
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)
		accountRepo.On("SaveWithLock", ctx, account).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.AdjustBalance(ctx, tenantID, account.ID, AdjustBalanceRequest{
			NewBalance: dec("842.17"),
			Reason:     "bank statement reconciliation",
		})

		require.NoError(t, err)
		assert.Equal(t, "842.17", resp.CurrentBalance.StringFixed(2))
		assert.Equal(t, "1000.00", resp.OpeningBalance.StringFixed(2))
	})

	t.Run("empty reason is rejected", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		svc := NewAccountService(accountRepo, new(MockEntryRepository), nil)

		account := newAccount(t, tenantID, "1000.00")
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)

		_, err := svc.AdjustBalance(ctx, tenantID, account.ID, AdjustBalanceRequest{
			NewBalance: dec("842.17"),
		})

		assert.True(t, shared.IsCode(err, shared.CodeInvalidArgument))
	})
}

func TestAccountService_SetOpeningBalance(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("rewrites opening and current balance when no entries exist", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		entryRepo := new(MockEntryRepository)
		publisher := new(MockEventPublisher)
		svc := NewAccountService(accountRepo, entryRepo, publisher)

		account := newAccount(t, tenantID, "1000.00")
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)
		entryRepo.On("CountByAccount", ctx, tenantID, account.ID).Return(int64(0), nil)
		accountRepo.On("SaveWithLock", ctx, account).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.SetOpeningBalance(ctx, tenantID, account.ID, dec("2000.00"))

		require.NoError(t, err)
		assert.Equal(t, "2000.00", resp.OpeningBalance.StringFixed(2))
		assert.Equal(t, "2000.00", resp.CurrentBalance.StringFixed(2))
	})

	t.Run("locked once the account has entries", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		entryRepo := new(MockEntryRepository)
		svc := NewAccountService(accountRepo, entryRepo, nil)

		account := newAccount(t, tenantID, "1000.00")
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)
		entryRepo.On("CountByAccount", ctx, tenantID, account.ID).Return(int64(3), nil)

		_, err := svc.SetOpeningBalance(ctx, tenantID, account.ID, dec("2000.00"))

		assert.True(t, shared.IsCode(err, shared.CodeLockedInvariant))
		accountRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestAccountService_DeleteAccount(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("deletes when no entries reference the account", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		entryRepo := new(MockEntryRepository)
		svc := NewAccountService(accountRepo, entryRepo, nil)

		account := newAccount(t, tenantID, "0.00")
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)
		entryRepo.On("CountByAccount", ctx, tenantID, account.ID).Return(int64(0), nil)
		accountRepo.On("DeleteForTenant", ctx, tenantID, account.ID).Return(nil)

		err := svc.DeleteAccount(ctx, tenantID, account.ID)

		require.NoError(t, err)
		accountRepo.AssertExpectations(t)
	})

	t.Run("refuses while entries exist", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		entryRepo := new(MockEntryRepository)
		svc := NewAccountService(accountRepo, entryRepo, nil)

		account := newAccount(t, tenantID, "0.00")
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)
		entryRepo.On("CountByAccount", ctx, tenantID, account.ID).Return(int64(5), nil)

		err := svc.DeleteAccount(ctx, tenantID, account.ID)

		assert.True(t, shared.IsCode(err, shared.CodeLockedInvariant))
		accountRepo.AssertNotCalled(t, "DeleteForTenant", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAccountService_VerifyBalance(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("consistent when current equals opening plus effectuated sum", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		entryRepo := new(MockEntryRepository)
		svc := NewAccountService(accountRepo, entryRepo, nil)

		account := newAccount(t, tenantID, "1000.00")
		require.NoError(t, account.Credit(moneyBRL(t, "250.00")))

		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)
		entryRepo.On("SumEffectuatedByAccount", ctx, tenantID, account.ID).Return(dec("250.00"), nil)

		ok, expected, err := svc.VerifyBalance(ctx, tenantID, account.ID)

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "1250.00", expected.StringFixed(2))
	})

	t.Run("reports drift", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		entryRepo := new(MockEntryRepository)
		svc := NewAccountService(accountRepo, entryRepo, nil)

		account := newAccount(t, tenantID, "1000.00")

		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)
		entryRepo.On("SumEffectuatedByAccount", ctx, tenantID, account.ID).Return(dec("250.00"), nil)

		ok, expected, err := svc.VerifyBalance(ctx, tenantID, account.ID)

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "1250.00", expected.StringFixed(2))
	})
}
