package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finbooks/backend/internal/domain/finance"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPayableRepository implements PayableRepository using GORM
type GormPayableRepository struct {
	db *gorm.DB
}

// NewGormPayableRepository creates a new GormPayableRepository
func NewGormPayableRepository(db *gorm.DB) *GormPayableRepository {
	return &GormPayableRepository{db: db}
}

// FindByIDForTenant retrieves a payable scoped to a tenant
func (r *GormPayableRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*finance.Payable, error) {
	var model models.PayableModel
	if err := session(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant retrieves payables matching the filter with pagination
func (r *GormPayableRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.PayableFilter) (*shared.Paginated[*finance.Payable], error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	base := session(ctx, r.db).Model(&models.PayableModel{}).
		Where("tenant_id = ?", tenantID)
	base = r.applyFilterWithoutPagination(base, filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	query := base.Session(&gorm.Session{}).
		Offset((page - 1) * pageSize).
		Limit(pageSize)
	query = r.applyOrdering(query, filter)

	var payableModels []models.PayableModel
	if err := query.Find(&payableModels).Error; err != nil {
		return nil, err
	}

	payables := make([]*finance.Payable, len(payableModels))
	for i, model := range payableModels {
		payables[i] = model.ToDomain()
	}
	result := shared.NewPaginated(payables, total, page, pageSize)
	return &result, nil
}

// Save persists a payable
func (r *GormPayableRepository) Save(ctx context.Context, p *finance.Payable) error {
	return session(ctx, r.db).Save(models.PayableModelFromDomain(p)).Error
}

// SaveWithLock saves with optimistic locking.
// Updates with a struct skips zero values; select all columns explicitly.
func (r *GormPayableRepository) SaveWithLock(ctx context.Context, p *finance.Payable) error {
	model := models.PayableModelFromDomain(p)
	result := session(ctx, r.db).
		Model(model).
		Select("*").
		Where("id = ? AND version = ?", p.ID, p.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "The payable has been modified by another transaction")
	}
	return nil
}

// DeleteForTenant removes a payable scoped to a tenant
func (r *GormPayableRepository) DeleteForTenant(ctx context.Context, id, tenantID uuid.UUID) error {
	result := session(ctx, r.db).Delete(&models.PayableModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Payable not found")
	}
	return nil
}

// SumOutstandingForTenant sums outstanding amounts of open payables
func (r *GormPayableRepository) SumOutstandingForTenant(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := session(ctx, r.db).
		Model(&models.PayableModel{}).
		Select("COALESCE(SUM(total_amount - settled_amount), 0) as total").
		Where("tenant_id = ? AND status IN ?", tenantID,
			[]finance.PayableStatus{finance.PayableStatusPending, finance.PayableStatusPartial}).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// CountOverdueForTenant counts open payables past their due date
func (r *GormPayableRepository) CountOverdueForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.PayableModel{}).
		Where("tenant_id = ? AND due_date < ? AND status IN ?", tenantID, time.Now(),
			[]finance.PayableStatus{finance.PayableStatusPending, finance.PayableStatusPartial}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GeneratePayableNumber generates a unique payable number
func (r *GormPayableRepository) GeneratePayableNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	// Format: AP-YYYYMMDD-XXXXX
	date := time.Now().Format("20060102")
	prefix := fmt.Sprintf("AP-%s-", date)

	var maxNumber string
	if err := session(ctx, r.db).
		Model(&models.PayableModel{}).
		Select("payable_number").
		Where("tenant_id = ? AND payable_number LIKE ?", tenantID, prefix+"%").
		Order("payable_number DESC").
		Limit(1).
		Pluck("payable_number", &maxNumber).Error; err != nil {
		return "", err
	}

	var nextNum int
	if maxNumber != "" {
		parts := strings.Split(maxNumber, "-")
		if len(parts) == 3 {
			fmt.Sscanf(parts[2], "%d", &nextNum)
		}
	}
	nextNum++

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}

// applyOrdering applies ordering options to the query
func (r *GormPayableRepository) applyOrdering(query *gorm.DB, filter finance.PayableFilter) *gorm.DB {
	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		return query.Order(filter.OrderBy + " " + orderDir)
	}
	return query.Order("due_date ASC")
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPayableRepository) applyFilterWithoutPagination(query *gorm.DB, filter finance.PayableFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("payable_number ILIKE ? OR supplier_name ILIKE ?", searchPattern, searchPattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.PurchaseID != nil {
		query = query.Where("purchase_id = ?", *filter.PurchaseID)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Overdue != nil && *filter.Overdue {
		query = query.Where("due_date < ? AND status IN ?", time.Now(),
			[]finance.PayableStatus{finance.PayableStatusPending, finance.PayableStatusPartial})
	}

	return query
}

// Ensure GormPayableRepository implements PayableRepository
var _ finance.PayableRepository = (*GormPayableRepository)(nil)
