package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/finbooks/backend/internal/domain/installment"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInstallmentRepository implements installment.Repository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByIDForTenant retrieves an installment scoped to a tenant
func (r *GormInstallmentRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*installment.Installment, error) {
	var model models.InstallmentModel
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

// FindByParent retrieves all installments of a parent document ordered by ordinal
func (r *GormInstallmentRepository) FindByParent(ctx context.Context, tenantID uuid.UUID, parentType installment.ParentType, parentID uuid.UUID) ([]*installment.Installment, error) {
	var installmentModels []models.InstallmentModel
	if err := session(ctx, r.db).
		Where("tenant_id = ? AND parent_type = ? AND parent_id = ?", tenantID, parentType, parentID).
		Order("ordinal ASC").
		Find(&installmentModels).Error; err != nil {
		return nil, err
	}
	installments := make([]*installment.Installment, len(installmentModels))
	for i, model := range installmentModels {
		installments[i] = model.ToDomain()
	}
	return installments, nil
}

// ExistsByParent reports whether a parent document already has a plan
func (r *GormInstallmentRepository) ExistsByParent(ctx context.Context, tenantID uuid.UUID, parentType installment.ParentType, parentID uuid.UUID) (bool, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.InstallmentModel{}).
		Where("tenant_id = ? AND parent_type = ? AND parent_id = ?", tenantID, parentType, parentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountNonCancelledByParent counts installments of a parent that are not cancelled
func (r *GormInstallmentRepository) CountNonCancelledByParent(ctx context.Context, tenantID uuid.UUID, parentType installment.ParentType, parentID uuid.UUID) (int64, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.InstallmentModel{}).
		Where("tenant_id = ? AND parent_type = ? AND parent_id = ? AND status <> ?",
			tenantID, parentType, parentID, installment.StatusCancelled).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SaveAll persists a full plan in a single transaction
func (r *GormInstallmentRepository) SaveAll(ctx context.Context, installments []*installment.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	return session(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		for _, inst := range installments {
			if err := tx.Save(models.InstallmentModelFromDomain(inst)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Save persists a single installment
func (r *GormInstallmentRepository) Save(ctx context.Context, inst *installment.Installment) error {
	return session(ctx, r.db).Save(models.InstallmentModelFromDomain(inst)).Error
}

// SaveWithLock saves with optimistic locking.
// Updates with a struct skips zero values; select all columns explicitly.
func (r *GormInstallmentRepository) SaveWithLock(ctx context.Context, inst *installment.Installment) error {
	model := models.InstallmentModelFromDomain(inst)
	result := session(ctx, r.db).
		Model(model).
		Select("*").
		Where("id = ? AND version = ?", inst.ID, inst.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "The installment has been modified by another transaction")
	}
	return nil
}

// FindOverdue retrieves pending installments past their due date for a tenant
func (r *GormInstallmentRepository) FindOverdue(ctx context.Context, tenantID uuid.UUID) ([]*installment.Installment, error) {
	var installmentModels []models.InstallmentModel
	if err := session(ctx, r.db).
		Where("tenant_id = ? AND status = ? AND due_date < ?", tenantID, installment.StatusPending, time.Now()).
		Order("due_date ASC").
		Find(&installmentModels).Error; err != nil {
		return nil, err
	}
	installments := make([]*installment.Installment, len(installmentModels))
	for i, model := range installmentModels {
		installments[i] = model.ToDomain()
	}
	return installments, nil
}

// Ensure GormInstallmentRepository implements installment.Repository
var _ installment.Repository = (*GormInstallmentRepository)(nil)
