package installment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ParentStatus is the aggregated payment status a plan derives for its parent
// document. It is written back to the parent after any installment changes.
type ParentStatus string

const (
	ParentStatusPending       ParentStatus = "PENDING"
	ParentStatusPartiallyPaid ParentStatus = "PARTIALLY_PAID"
	ParentStatusPaid          ParentStatus = "PAID"
	ParentStatusCancelled     ParentStatus = "CANCELLED"
)

// Aggregation is the result of deriving a parent status from a plan. SettledAt
// carries the latest payment date and is only set when the plan is fully paid.
type Aggregation struct {
	Status    ParentStatus
	SettledAt *time.Time
}

// RecomputeParentStatus derives the parent document status from the full set
// of its installments. The rules, in order of precedence:
//
//	all cancelled            -> CANCELLED
//	all paid                 -> PAID, settled at the latest payment date
//	at least one paid        -> PARTIALLY_PAID
//	otherwise                -> PENDING
//
// The function is pure: it never mutates the installments and has no side
// effects, so callers can run it inside or outside a transaction.
func RecomputeParentStatus(installments []*Installment) Aggregation {
	if len(installments) == 0 {
		return Aggregation{Status: ParentStatusPending}
	}

	var paid, cancelled int
	var latestPayment *time.Time
	for _, inst := range installments {
		switch inst.Status {
		case StatusPaid:
			paid++
			if inst.PaymentDate != nil {
				if latestPayment == nil || inst.PaymentDate.After(*latestPayment) {
					latestPayment = inst.PaymentDate
				}
			}
		case StatusCancelled:
			cancelled++
		}
	}

	total := len(installments)
	switch {
	case cancelled == total:
		return Aggregation{Status: ParentStatusCancelled}
	case paid == total:
		return Aggregation{Status: ParentStatusPaid, SettledAt: latestPayment}
	case paid > 0:
		return Aggregation{Status: ParentStatusPartiallyPaid}
	default:
		return Aggregation{Status: ParentStatusPending}
	}
}

// ParentStatusApplier writes an aggregated plan status back to a specific kind
// of parent document. Each parent context registers one applier so the
// installment service never imports parent aggregates directly.
type ParentStatusApplier interface {
	// ParentType returns the kind of document this applier handles
	ParentType() ParentType
	// ApplyStatus updates the parent document with the derived aggregation
	ApplyStatus(ctx context.Context, tenantID, parentID uuid.UUID, aggregation Aggregation) error
}
