package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
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

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) ([]ledger.Account, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) SaveWithLock(ctx context.Context, account *ledger.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockAccountRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.Entry), args.Error(1)
}

func (m *MockEntryRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	args := m.Called(ctx, tenantID, accountID, filter)
	return args.Get(0).([]ledger.Entry), args.Error(1)
}

func (m *MockEntryRepository) Save(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) SaveWithLock(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockEntryRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.EntryFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEntryRepository) CountByAccount(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEntryRepository) SumEffectuatedByAccount(ctx context.Context, tenantID, accountID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockEntryRepository) GenerateEntryNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

func (m *MockEntryRepository) SaveWithAccounts(ctx context.Context, entry *ledger.Entry, accounts ...*ledger.Account) error {
	callArgs := make([]interface{}, 0, len(accounts)+2)
	callArgs = append(callArgs, ctx, entry)
	for _, a := range accounts {
		callArgs = append(callArgs, a)
	}
	args := m.Called(callArgs...)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// fakeIdempotencyStore is a minimal in-memory store for service tests
type fakeIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (f *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[key], nil
}

func (f *fakeIdempotencyStore) Close() error { return nil }

// =============================================================================
// Fixtures
// =============================================================================

func newAccount(t *testing.T, tenantID uuid.UUID, balance string) *ledger.Account {
	t.Helper()
	opening, err := valueobject.NewMoneyBRLFromString(balance)
	require.NoError(t, err)
	account, err := ledger.NewAccount(tenantID, "Conta Corrente", "Banco Azul", opening)
	require.NoError(t, err)
	account.ClearDomainEvents()
	return account
}

func newEntry(t *testing.T, tenantID, accountID uuid.UUID, direction ledger.EntryDirection, amount string) *ledger.Entry {
	t.Helper()
	m, err := valueobject.NewMoneyBRLFromString(amount)
	require.NoError(t, err)
	entry, err := ledger.NewEntry(tenantID, "EN-20260115-00001", direction, m,
		time.Now().AddDate(0, 0, 10), accountID, "test entry")
	require.NoError(t, err)
	entry.ClearDomainEvents()
	return entry
}

// =============================================================================
// Tests
// =============================================================================

func TestEntryService_EffectuateEntry(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("inflow credits the account atomically", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		publisher := new(MockEventPublisher)
		svc := NewEntryService(entryRepo, accountRepo, publisher)

		account := newAccount(t, tenantID, "1000.00")
		entry := newEntry(t, tenantID, account.ID, ledger.DirectionInflow, "250.00")

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)
		entryRepo.On("SaveWithAccounts", ctx, entry, account).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.EffectuateEntry(ctx, tenantID, entry.ID, time.Now(), "")

		require.NoError(t, err)
		assert.Equal(t, "EFFECTUATED", resp.Status)
		assert.Equal(t, "1250.00", account.CurrentBalance.StringFixed(2))
		entryRepo.AssertExpectations(t)
	})

	t.Run("outflow debit with insufficient funds fails before saving", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		svc := NewEntryService(entryRepo, accountRepo, nil)

		account := newAccount(t, tenantID, "100.00")
		entry := newEntry(t, tenantID, account.ID, ledger.DirectionOutflow, "250.00")

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)

		resp, err := svc.EffectuateEntry(ctx, tenantID, entry.ID, time.Now(), "")

		assert.Nil(t, resp)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientFunds))
		assert.Equal(t, "100.00", account.CurrentBalance.StringFixed(2))
		entryRepo.AssertNotCalled(t, "SaveWithAccounts", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("double effectuation surfaces already effectuated", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		svc := NewEntryService(entryRepo, accountRepo, nil)

		account := newAccount(t, tenantID, "1000.00")
		entry := newEntry(t, tenantID, account.ID, ledger.DirectionInflow, "250.00")
		require.NoError(t, entry.Effectuate(time.Now()))

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)

		_, err := svc.EffectuateEntry(ctx, tenantID, entry.ID, time.Now(), "")

		assert.True(t, shared.IsCode(err, shared.CodeAlreadyEffectuated))
	})

	t.Run("repeated idempotency key is rejected before any mutation", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		publisher := new(MockEventPublisher)
		store := newFakeIdempotencyStore()
		svc := NewEntryService(entryRepo, accountRepo, publisher,
			WithIdempotencyStore(store, shared.DefaultIdempotencyConfig()))

		account := newAccount(t, tenantID, "1000.00")
		entry := newEntry(t, tenantID, account.ID, ledger.DirectionInflow, "250.00")

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)
		entryRepo.On("SaveWithAccounts", ctx, entry, account).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		_, err := svc.EffectuateEntry(ctx, tenantID, entry.ID, time.Now(), "retry-key-1")
		require.NoError(t, err)

		_, err = svc.EffectuateEntry(ctx, tenantID, entry.ID, time.Now(), "retry-key-1")
		assert.True(t, shared.IsCode(err, shared.CodeInvalidArgument))
		entryRepo.AssertNumberOfCalls(t, "SaveWithAccounts", 1)
	})

	t.Run("unknown entry returns not found", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		svc := NewEntryService(entryRepo, accountRepo, nil)

		missingID := uuid.New()
		entryRepo.On("FindByIDForTenant", ctx, tenantID, missingID).Return(nil, nil)

		_, err := svc.EffectuateEntry(ctx, tenantID, missingID, time.Now(), "")

		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})
}

func TestEntryService_CancelEntry(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("cancelling a pending entry skips balance work", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		publisher := new(MockEventPublisher)
		svc := NewEntryService(entryRepo, accountRepo, publisher)

		entry := newEntry(t, tenantID, uuid.New(), ledger.DirectionInflow, "250.00")

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)
		entryRepo.On("SaveWithLock", ctx, entry).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.CancelEntry(ctx, tenantID, entry.ID, "")

		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", resp.Status)
		accountRepo.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelling an effectuated inflow reverses the credit", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		publisher := new(MockEventPublisher)
		svc := NewEntryService(entryRepo, accountRepo, publisher)

		account := newAccount(t, tenantID, "1000.00")
		entry := newEntry(t, tenantID, account.ID, ledger.DirectionInflow, "250.00")
		require.NoError(t, entry.Effectuate(time.Now()))
		require.NoError(t, account.Credit(entry.GetAmountMoney()))
		entry.ClearDomainEvents()
		account.ClearDomainEvents()

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)
		accountRepo.On("FindByIDForTenant", ctx, tenantID, account.ID).Return(account, nil)
		entryRepo.On("SaveWithAccounts", ctx, entry, account).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.CancelEntry(ctx, tenantID, entry.ID, "")

		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", resp.Status)
		assert.Nil(t, resp.EffectuatedAt)
		assert.Equal(t, "1000.00", account.CurrentBalance.StringFixed(2))
	})

	t.Run("cancelling a cancelled entry is a no-op", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		svc := NewEntryService(entryRepo, accountRepo, nil)

		entry := newEntry(t, tenantID, uuid.New(), ledger.DirectionInflow, "250.00")
		_, err := entry.Cancel()
		require.NoError(t, err)
		entry.ClearDomainEvents()

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)
		entryRepo.On("SaveWithLock", ctx, entry).Return(nil)

		resp, err := svc.CancelEntry(ctx, tenantID, entry.ID, "")

		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", resp.Status)
	})
}

func TestEntryService_ChangeEntryAccount(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("pending entry is a plain field change", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		publisher := new(MockEventPublisher)
		svc := NewEntryService(entryRepo, accountRepo, publisher)

		oldAccount := newAccount(t, tenantID, "1000.00")
		newAcct := newAccount(t, tenantID, "500.00")
		entry := newEntry(t, tenantID, oldAccount.ID, ledger.DirectionInflow, "250.00")

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)
		accountRepo.On("FindByIDForTenant", ctx, tenantID, newAcct.ID).Return(newAcct, nil)
		entryRepo.On("SaveWithLock", ctx, entry).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.ChangeEntryAccount(ctx, tenantID, entry.ID, newAcct.ID)

		require.NoError(t, err)
		assert.Equal(t, newAcct.ID, resp.AccountID)
		assert.Equal(t, "1000.00", oldAccount.CurrentBalance.StringFixed(2))
		assert.Equal(t, "500.00", newAcct.CurrentBalance.StringFixed(2))
	})

	t.Run("effectuated entry reverses old and charges new atomically", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		publisher := new(MockEventPublisher)
		svc := NewEntryService(entryRepo, accountRepo, publisher)

		oldAccount := newAccount(t, tenantID, "1000.00")
		newAcct := newAccount(t, tenantID, "500.00")
		entry := newEntry(t, tenantID, oldAccount.ID, ledger.DirectionInflow, "250.00")
		require.NoError(t, entry.Effectuate(time.Now()))
		require.NoError(t, oldAccount.Credit(entry.GetAmountMoney()))
		entry.ClearDomainEvents()
		oldAccount.ClearDomainEvents()

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)
		accountRepo.On("FindByIDForTenant", ctx, tenantID, newAcct.ID).Return(newAcct, nil)
		accountRepo.On("FindByIDForTenant", ctx, tenantID, oldAccount.ID).Return(oldAccount, nil)
		entryRepo.On("SaveWithAccounts", ctx, entry, oldAccount, newAcct).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.ChangeEntryAccount(ctx, tenantID, entry.ID, newAcct.ID)

		require.NoError(t, err)
		assert.Equal(t, newAcct.ID, resp.AccountID)
		assert.Equal(t, "1000.00", oldAccount.CurrentBalance.StringFixed(2))
		assert.Equal(t, "750.00", newAcct.CurrentBalance.StringFixed(2))
	})

	t.Run("unknown target account returns not found", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		svc := NewEntryService(entryRepo, accountRepo, nil)

		entry := newEntry(t, tenantID, uuid.New(), ledger.DirectionInflow, "250.00")
		missingID := uuid.New()

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)
		accountRepo.On("FindByIDForTenant", ctx, tenantID, missingID).Return(nil, nil)

		_, err := svc.ChangeEntryAccount(ctx, tenantID, entry.ID, missingID)

		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})
}

func TestEntryService_DeleteEntry(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("effectuated entry cannot be deleted", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		svc := NewEntryService(entryRepo, accountRepo, nil)

		entry := newEntry(t, tenantID, uuid.New(), ledger.DirectionInflow, "250.00")
		require.NoError(t, entry.Effectuate(time.Now()))

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)

		err := svc.DeleteEntry(ctx, tenantID, entry.ID)

		assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
		entryRepo.AssertNotCalled(t, "DeleteForTenant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("pending entry is deleted", func(t *testing.T) {
		entryRepo := new(MockEntryRepository)
		accountRepo := new(MockAccountRepository)
		svc := NewEntryService(entryRepo, accountRepo, nil)

		entry := newEntry(t, tenantID, uuid.New(), ledger.DirectionInflow, "250.00")

		entryRepo.On("FindByIDForTenant", ctx, tenantID, entry.ID).Return(entry, nil)
		entryRepo.On("DeleteForTenant", ctx, tenantID, entry.ID).Return(nil)

		err := svc.DeleteEntry(ctx, tenantID, entry.ID)

		require.NoError(t, err)
		entryRepo.AssertExpectations(t)
	})
}
