package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormEntryRepository implements EntryRepository using GORM
type GormEntryRepository struct {
	db *gorm.DB
}

// NewGormEntryRepository creates a new GormEntryRepository
func NewGormEntryRepository(db *gorm.DB) *GormEntryRepository {
	return &GormEntryRepository{db: db}
}

// FindByID finds an entry by its ID
func (r *GormEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	var model models.EntryModel
	if err := session(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds an entry by ID for a specific tenant
func (r *GormEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Entry, error) {
	var model models.EntryModel
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

// FindAllForTenant finds all entries for a tenant with filtering
func (r *GormEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	var entryModels []models.EntryModel
	query := session(ctx, r.db).Model(&models.EntryModel{}).
		Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]ledger.Entry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// FindByAccount finds entries posted against an account
func (r *GormEntryRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	var entryModels []models.EntryModel
	query := session(ctx, r.db).Model(&models.EntryModel{}).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]ledger.Entry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Save creates or updates an entry
func (r *GormEntryRepository) Save(ctx context.Context, entry *ledger.Entry) error {
	model := models.EntryModelFromDomain(entry)
	return session(ctx, r.db).Save(model).Error
}

// SaveWithLock saves with optimistic locking.
// Updates with a struct skips zero values; select all columns explicitly.
func (r *GormEntryRepository) SaveWithLock(ctx context.Context, entry *ledger.Entry) error {
	return saveEntryWithLock(session(ctx, r.db), entry)
}

// SaveWithAccounts saves the entry together with the given accounts in a
// single transaction, all version-checked. A conflict on any aggregate rolls
// back the whole write.
func (r *GormEntryRepository) SaveWithAccounts(ctx context.Context, entry *ledger.Entry, accounts ...*ledger.Account) error {
	return session(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := saveEntryWithLock(tx, entry); err != nil {
			return err
		}
		for _, account := range accounts {
			model := models.AccountModelFromDomain(account)
			result := tx.Model(model).
				Select("*").
				Where("id = ? AND version = ?", account.ID, account.Version-1).
				Updates(model)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.NewDomainError(shared.CodeConcurrencyConflict, "The account has been modified by another transaction")
			}
		}
		return nil
	})
}

func saveEntryWithLock(tx *gorm.DB, entry *ledger.Entry) error {
	model := models.EntryModelFromDomain(entry)
	result := tx.Model(model).
		Select("*").
		Where("id = ? AND version = ?", entry.ID, entry.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "The entry has been modified by another transaction")
	}
	return nil
}

// DeleteForTenant deletes an entry for a tenant
func (r *GormEntryRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := session(ctx, r.db).Delete(&models.EntryModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Entry not found")
	}
	return nil
}

// CountForTenant counts entries for a tenant
func (r *GormEntryRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.EntryFilter) (int64, error) {
	var count int64
	query := session(ctx, r.db).Model(&models.EntryModel{}).
		Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByAccount counts entries referencing an account, any status
func (r *GormEntryRepository) CountByAccount(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.EntryModel{}).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumEffectuatedByAccount sums the signed amounts of effectuated entries for
// an account. Inflows count positive, outflows negative.
func (r *GormEntryRepository) SumEffectuatedByAccount(ctx context.Context, tenantID, accountID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := session(ctx, r.db).
		Model(&models.EntryModel{}).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE -amount END), 0) as total", ledger.DirectionInflow).
		Where("tenant_id = ? AND account_id = ? AND status = ?", tenantID, accountID, ledger.EntryStatusEffectuated).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// GenerateEntryNumber generates a unique entry number
func (r *GormEntryRepository) GenerateEntryNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	// Format: EN-YYYYMMDD-XXXXX
	date := time.Now().Format("20060102")
	prefix := fmt.Sprintf("EN-%s-", date)

	var maxNumber string
	if err := session(ctx, r.db).
		Model(&models.EntryModel{}).
		Select("entry_number").
		Where("tenant_id = ? AND entry_number LIKE ?", tenantID, prefix+"%").
		Order("entry_number DESC").
		Limit(1).
		Pluck("entry_number", &maxNumber).Error; err != nil {
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

// applyFilter applies filter options to the query
func (r *GormEntryRepository) applyFilter(query *gorm.DB, filter ledger.EntryFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("due_date DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormEntryRepository) applyFilterWithoutPagination(query *gorm.DB, filter ledger.EntryFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("entry_number ILIKE ? OR description ILIKE ?", searchPattern, searchPattern)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.CounterpartID != nil {
		query = query.Where("counterpart_id = ?", *filter.CounterpartID)
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
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}

	return query
}

// Ensure GormEntryRepository implements EntryRepository
var _ ledger.EntryRepository = (*GormEntryRepository)(nil)
