package models

import (
	"time"

	"github.com/finbooks/backend/internal/domain/installment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentModel is the GORM model for installments
type InstallmentModel struct {
	TenantAggregateModel
	ParentType  string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_installment_parent_ordinal,priority:1"`
	ParentID    uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_installment_parent_ordinal,priority:2"`
	Ordinal     int             `gorm:"not null;uniqueIndex:idx_installment_parent_ordinal,priority:3"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DueDate     time.Time       `gorm:"not null;index"`
	PaymentDate *time.Time
	Status      string `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for InstallmentModel
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts InstallmentModel to domain Installment
func (m *InstallmentModel) ToDomain() *installment.Installment {
	return &installment.Installment{
		TenantAggregateRoot: m.tenantAggregateRoot(),
		ParentType:          installment.ParentType(m.ParentType),
		ParentID:            m.ParentID,
		Ordinal:             m.Ordinal,
		Amount:              m.Amount,
		DueDate:             m.DueDate,
		PaymentDate:         m.PaymentDate,
		Status:              installment.Status(m.Status),
	}
}

// FromDomain updates InstallmentModel from domain Installment
func (m *InstallmentModel) FromDomain(i *installment.Installment) {
	m.FromDomainTenantAggregateRoot(i.TenantAggregateRoot)
	m.ParentType = string(i.ParentType)
	m.ParentID = i.ParentID
	m.Ordinal = i.Ordinal
	m.Amount = i.Amount
	m.DueDate = i.DueDate
	m.PaymentDate = i.PaymentDate
	m.Status = string(i.Status)
}

// InstallmentModelFromDomain creates InstallmentModel from domain Installment
func InstallmentModelFromDomain(i *installment.Installment) *InstallmentModel {
	m := &InstallmentModel{}
	m.FromDomain(i)
	return m
}
