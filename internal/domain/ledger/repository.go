package ledger

import (
	"context"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountFilter defines filtering options for account queries
type AccountFilter struct {
	shared.Filter
	Active *bool // Filter by active flag
}

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	// FindByID finds an account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByIDForTenant finds an account by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)

	// FindAllForTenant finds all accounts for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) ([]Account, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, account *Account) error

	// DeleteForTenant soft deletes an account for a tenant.
	// Accounts referenced by entries must never be deleted.
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts accounts for a tenant
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) (int64, error)
}

// EntryFilter defines filtering options for entry queries
type EntryFilter struct {
	shared.Filter
	AccountID     *uuid.UUID       // Filter by account
	Status        *EntryStatus     // Filter by status
	Direction     *EntryDirection  // Filter by direction
	CounterpartID *uuid.UUID       // Filter by counterpart
	SaleID        *uuid.UUID       // Filter by parent sale
	DueFrom       *time.Time       // Filter by due date range start
	DueTo         *time.Time       // Filter by due date range end
	MinAmount     *decimal.Decimal // Filter by minimum amount
	MaxAmount     *decimal.Decimal // Filter by maximum amount
}

// EntryRepository defines the interface for entry persistence
type EntryRepository interface {
	// FindByID finds an entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// FindByIDForTenant finds an entry by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Entry, error)

	// FindAllForTenant finds all entries for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter EntryFilter) ([]Entry, error)

	// FindByAccount finds entries posted against an account
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter EntryFilter) ([]Entry, error)

	// Save creates or updates an entry
	Save(ctx context.Context, entry *Entry) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, entry *Entry) error

	// DeleteForTenant soft deletes an entry for a tenant
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts entries for a tenant
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter EntryFilter) (int64, error)

	// CountByAccount counts entries referencing an account, any status.
	// Used to lock the opening balance once movements exist.
	CountByAccount(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error)

	// SumEffectuatedByAccount sums the signed amounts of effectuated entries
	// for an account (inflows positive, outflows negative)
	SumEffectuatedByAccount(ctx context.Context, tenantID, accountID uuid.UUID) (decimal.Decimal, error)

	// GenerateEntryNumber generates a unique entry number for a tenant
	GenerateEntryNumber(ctx context.Context, tenantID uuid.UUID) (string, error)

	// SaveWithAccounts saves the entry together with the given accounts in a
	// single transaction, all with optimistic locking. Used when a status
	// transition and its balance effect must land atomically.
	SaveWithAccounts(ctx context.Context, entry *Entry, accounts ...*Account) error
}
