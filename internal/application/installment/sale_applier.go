package installment

import (
	"context"

	"github.com/finbooks/backend/internal/domain/installment"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleStatusApplier handles plans whose parent is a sale. Sales are not
// documents of this engine, so there is no row to update; the derived status
// is published as an event for the sales context to consume.
type SaleStatusApplier struct {
	eventPublisher shared.EventPublisher
}

// NewSaleStatusApplier creates a new SaleStatusApplier
func NewSaleStatusApplier(eventPublisher shared.EventPublisher) *SaleStatusApplier {
	return &SaleStatusApplier{eventPublisher: eventPublisher}
}

// ParentType returns the parent type this applier handles
func (a *SaleStatusApplier) ParentType() installment.ParentType {
	return installment.ParentTypeSale
}

// ApplyStatus publishes the derived aggregation for the sale
func (a *SaleStatusApplier) ApplyStatus(ctx context.Context, tenantID, parentID uuid.UUID, agg installment.Aggregation) error {
	if a.eventPublisher == nil {
		return nil
	}
	return a.eventPublisher.Publish(ctx,
		installment.NewParentStatusDerivedEvent(tenantID, installment.ParentTypeSale, parentID, agg))
}

// Ensure SaleStatusApplier implements installment.ParentStatusApplier
var _ installment.ParentStatusApplier = (*SaleStatusApplier)(nil)
