package installment

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for installment persistence
type Repository interface {
	// FindByIDForTenant retrieves an installment scoped to a tenant
	FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*Installment, error)

	// FindByParent retrieves all installments of a parent document ordered by ordinal
	FindByParent(ctx context.Context, tenantID uuid.UUID, parentType ParentType, parentID uuid.UUID) ([]*Installment, error)

	// ExistsByParent reports whether a parent document already has a plan
	ExistsByParent(ctx context.Context, tenantID uuid.UUID, parentType ParentType, parentID uuid.UUID) (bool, error)

	// CountNonCancelledByParent counts installments of a parent that are not cancelled
	CountNonCancelledByParent(ctx context.Context, tenantID uuid.UUID, parentType ParentType, parentID uuid.UUID) (int64, error)

	// SaveAll persists a full plan atomically
	SaveAll(ctx context.Context, installments []*Installment) error

	// Save persists a single installment
	Save(ctx context.Context, inst *Installment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, inst *Installment) error

	// FindOverdue retrieves pending installments past their due date for a tenant
	FindOverdue(ctx context.Context, tenantID uuid.UUID) ([]*Installment, error)
}
