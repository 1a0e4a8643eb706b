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

// GormReceivableRepository implements ReceivableRepository using GORM
type GormReceivableRepository struct {
	db *gorm.DB
}

// NewGormReceivableRepository creates a new GormReceivableRepository
func NewGormReceivableRepository(db *gorm.DB) *GormReceivableRepository {
	return &GormReceivableRepository{db: db}
}

// FindByIDForTenant retrieves a receivable scoped to a tenant
func (r *GormReceivableRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*finance.Receivable, error) {
	var model models.ReceivableModel
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

// FindAllForTenant retrieves receivables matching the filter with pagination
func (r *GormReceivableRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.ReceivableFilter) (*shared.Paginated[*finance.Receivable], error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	base := session(ctx, r.db).Model(&models.ReceivableModel{}).
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

	var receivableModels []models.ReceivableModel
	if err := query.Find(&receivableModels).Error; err != nil {
		return nil, err
	}

	receivables := make([]*finance.Receivable, len(receivableModels))
	for i, model := range receivableModels {
		receivables[i] = model.ToDomain()
	}
	result := shared.NewPaginated(receivables, total, page, pageSize)
	return &result, nil
}

// Save persists a receivable
func (r *GormReceivableRepository) Save(ctx context.Context, rec *finance.Receivable) error {
	return session(ctx, r.db).Save(models.ReceivableModelFromDomain(rec)).Error
}

// SaveWithLock saves with optimistic locking.
// Updates with a struct skips zero values; select all columns explicitly.
func (r *GormReceivableRepository) SaveWithLock(ctx context.Context, rec *finance.Receivable) error {
	model := models.ReceivableModelFromDomain(rec)
	result := session(ctx, r.db).
		Model(model).
		Select("*").
		Where("id = ? AND version = ?", rec.ID, rec.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "The receivable has been modified by another transaction")
	}
	return nil
}

// DeleteForTenant removes a receivable scoped to a tenant
func (r *GormReceivableRepository) DeleteForTenant(ctx context.Context, id, tenantID uuid.UUID) error {
	result := session(ctx, r.db).Delete(&models.ReceivableModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Receivable not found")
	}
	return nil
}

// SumOutstandingForTenant sums outstanding amounts of open receivables
func (r *GormReceivableRepository) SumOutstandingForTenant(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := session(ctx, r.db).
		Model(&models.ReceivableModel{}).
		Select("COALESCE(SUM(total_amount - settled_amount), 0) as total").
		Where("tenant_id = ? AND status IN ?", tenantID,
			[]finance.ReceivableStatus{finance.ReceivableStatusPending, finance.ReceivableStatusPartial}).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// CountOverdueForTenant counts open receivables past their due date
func (r *GormReceivableRepository) CountOverdueForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.ReceivableModel{}).
		Where("tenant_id = ? AND due_date < ? AND status IN ?", tenantID, time.Now(),
			[]finance.ReceivableStatus{finance.ReceivableStatusPending, finance.ReceivableStatusPartial}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GenerateReceivableNumber generates a unique receivable number
func (r *GormReceivableRepository) GenerateReceivableNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	// Format: AR-YYYYMMDD-XXXXX
	date := time.Now().Format("20060102")
	prefix := fmt.Sprintf("AR-%s-", date)

	var maxNumber string
	if err := session(ctx, r.db).
		Model(&models.ReceivableModel{}).
		Select("receivable_number").
		Where("tenant_id = ? AND receivable_number LIKE ?", tenantID, prefix+"%").
		Order("receivable_number DESC").
		Limit(1).
		Pluck("receivable_number", &maxNumber).Error; err != nil {
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
func (r *GormReceivableRepository) applyOrdering(query *gorm.DB, filter finance.ReceivableFilter) *gorm.DB {
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
func (r *GormReceivableRepository) applyFilterWithoutPagination(query *gorm.DB, filter finance.ReceivableFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("receivable_number ILIKE ? OR client_name ILIKE ?", searchPattern, searchPattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.SaleID != nil {
		query = query.Where("sale_id = ?", *filter.SaleID)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Overdue != nil && *filter.Overdue {
		query = query.Where("due_date < ? AND status IN ?", time.Now(),
			[]finance.ReceivableStatus{finance.ReceivableStatusPending, finance.ReceivableStatusPartial})
	}

	return query
}

// Ensure GormReceivableRepository implements ReceivableRepository
var _ finance.ReceivableRepository = (*GormReceivableRepository)(nil)
