package finance

import (
	"context"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayableFilter defines filter options for payable queries
type PayableFilter struct {
	shared.Filter
	Status     *PayableStatus
	SupplierID *uuid.UUID
	PurchaseID *uuid.UUID
	DueFrom    *time.Time
	DueTo      *time.Time
	Overdue    *bool
}

// ReceivableFilter defines filter options for receivable queries
type ReceivableFilter struct {
	shared.Filter
	Status   *ReceivableStatus
	ClientID *uuid.UUID
	SaleID   *uuid.UUID
	DueFrom  *time.Time
	DueTo    *time.Time
	Overdue  *bool
}

// PayableRepository defines the interface for payable persistence
type PayableRepository interface {
	// FindByIDForTenant retrieves a payable scoped to a tenant
	FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*Payable, error)

	// FindAllForTenant retrieves payables matching the filter
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PayableFilter) (*shared.Paginated[*Payable], error)

	// Save persists a payable
	Save(ctx context.Context, p *Payable) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, p *Payable) error

	// DeleteForTenant removes a payable scoped to a tenant
	DeleteForTenant(ctx context.Context, id, tenantID uuid.UUID) error

	// SumOutstandingForTenant sums outstanding amounts of open payables
	SumOutstandingForTenant(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)

	// CountOverdueForTenant counts open payables past their due date
	CountOverdueForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GeneratePayableNumber generates a unique payable number (AP-YYYYMMDD-XXXXX)
	GeneratePayableNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// ReceivableRepository defines the interface for receivable persistence
type ReceivableRepository interface {
	// FindByIDForTenant retrieves a receivable scoped to a tenant
	FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*Receivable, error)

	// FindAllForTenant retrieves receivables matching the filter
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ReceivableFilter) (*shared.Paginated[*Receivable], error)

	// Save persists a receivable
	Save(ctx context.Context, r *Receivable) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, r *Receivable) error

	// DeleteForTenant removes a receivable scoped to a tenant
	DeleteForTenant(ctx context.Context, id, tenantID uuid.UUID) error

	// SumOutstandingForTenant sums outstanding amounts of open receivables
	SumOutstandingForTenant(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)

	// CountOverdueForTenant counts open receivables past their due date
	CountOverdueForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GenerateReceivableNumber generates a unique receivable number (AR-YYYYMMDD-XXXXX)
	GenerateReceivableNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}
