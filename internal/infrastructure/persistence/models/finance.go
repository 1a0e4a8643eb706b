package models

import (
	"time"

	"github.com/finbooks/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayableModel is the GORM model for accounts payable
type PayableModel struct {
	TenantAggregateModel
	PayableNumber    string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_payable_tenant_number,priority:2"`
	SupplierID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierName     string          `gorm:"type:varchar(255);not null"`
	Description      string          `gorm:"type:varchar(500)"`
	Category         string          `gorm:"type:varchar(50)"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SettledAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status           string          `gorm:"type:varchar(20);not null;index"`
	DueDate          time.Time       `gorm:"not null;index"`
	SettlementDate   *time.Time
	InstallmentBased bool       `gorm:"not null;default:false"`
	InstallmentCount int        `gorm:"not null;default:0"`
	PurchaseID       *uuid.UUID `gorm:"type:uuid;index"`
	Observation      string     `gorm:"type:text"`
	CancelledAt      *time.Time
}

// TableName returns the table name for PayableModel
func (PayableModel) TableName() string {
	return "account_payables"
}

// ToDomain converts PayableModel to domain Payable
func (m *PayableModel) ToDomain() *finance.Payable {
	return &finance.Payable{
		TenantAggregateRoot: m.tenantAggregateRoot(),
		PayableNumber:       m.PayableNumber,
		SupplierID:          m.SupplierID,
		SupplierName:        m.SupplierName,
		Description:         m.Description,
		Category:            m.Category,
		TotalAmount:         m.TotalAmount,
		SettledAmount:       m.SettledAmount,
		Status:              finance.PayableStatus(m.Status),
		DueDate:             m.DueDate,
		SettlementDate:      m.SettlementDate,
		InstallmentBased:    m.InstallmentBased,
		InstallmentCount:    m.InstallmentCount,
		PurchaseID:          m.PurchaseID,
		Observation:         m.Observation,
		CancelledAt:         m.CancelledAt,
	}
}

// FromDomain updates PayableModel from domain Payable
func (m *PayableModel) FromDomain(p *finance.Payable) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.PayableNumber = p.PayableNumber
	m.SupplierID = p.SupplierID
	m.SupplierName = p.SupplierName
	m.Description = p.Description
	m.Category = p.Category
	m.TotalAmount = p.TotalAmount
	m.SettledAmount = p.SettledAmount
	m.Status = string(p.Status)
	m.DueDate = p.DueDate
	m.SettlementDate = p.SettlementDate
	m.InstallmentBased = p.InstallmentBased
	m.InstallmentCount = p.InstallmentCount
	m.PurchaseID = p.PurchaseID
	m.Observation = p.Observation
	m.CancelledAt = p.CancelledAt
}

// PayableModelFromDomain creates PayableModel from domain Payable
func PayableModelFromDomain(p *finance.Payable) *PayableModel {
	m := &PayableModel{}
	m.FromDomain(p)
	return m
}

// ReceivableModel is the GORM model for accounts receivable
type ReceivableModel struct {
	TenantAggregateModel
	ReceivableNumber string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_receivable_tenant_number,priority:2"`
	ClientID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientName       string          `gorm:"type:varchar(255);not null"`
	Description      string          `gorm:"type:varchar(500)"`
	Category         string          `gorm:"type:varchar(50)"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SettledAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status           string          `gorm:"type:varchar(20);not null;index"`
	DueDate          time.Time       `gorm:"not null;index"`
	SettlementDate   *time.Time
	InstallmentBased bool       `gorm:"not null;default:false"`
	InstallmentCount int        `gorm:"not null;default:0"`
	SaleID           *uuid.UUID `gorm:"type:uuid;index"`
	Observation      string     `gorm:"type:text"`
	CancelledAt      *time.Time
}

// TableName returns the table name for ReceivableModel
func (ReceivableModel) TableName() string {
	return "account_receivables"
}

// ToDomain converts ReceivableModel to domain Receivable
func (m *ReceivableModel) ToDomain() *finance.Receivable {
	return &finance.Receivable{
		TenantAggregateRoot: m.tenantAggregateRoot(),
		ReceivableNumber:    m.ReceivableNumber,
		ClientID:            m.ClientID,
		ClientName:          m.ClientName,
		Description:         m.Description,
		Category:            m.Category,
		TotalAmount:         m.TotalAmount,
		SettledAmount:       m.SettledAmount,
		Status:              finance.ReceivableStatus(m.Status),
		DueDate:             m.DueDate,
		SettlementDate:      m.SettlementDate,
		InstallmentBased:    m.InstallmentBased,
		InstallmentCount:    m.InstallmentCount,
		SaleID:              m.SaleID,
		Observation:         m.Observation,
		CancelledAt:         m.CancelledAt,
	}
}

// FromDomain updates ReceivableModel from domain Receivable
func (m *ReceivableModel) FromDomain(r *finance.Receivable) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.ReceivableNumber = r.ReceivableNumber
	m.ClientID = r.ClientID
	m.ClientName = r.ClientName
	m.Description = r.Description
	m.Category = r.Category
	m.TotalAmount = r.TotalAmount
	m.SettledAmount = r.SettledAmount
	m.Status = string(r.Status)
	m.DueDate = r.DueDate
	m.SettlementDate = r.SettlementDate
	m.InstallmentBased = r.InstallmentBased
	m.InstallmentCount = r.InstallmentCount
	m.SaleID = r.SaleID
	m.Observation = r.Observation
	m.CancelledAt = r.CancelledAt
}

// ReceivableModelFromDomain creates ReceivableModel from domain Receivable
func ReceivableModelFromDomain(r *finance.Receivable) *ReceivableModel {
	m := &ReceivableModel{}
	m.FromDomain(r)
	return m
}
