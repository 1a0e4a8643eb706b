package models

import (
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the GORM model for ledger accounts
type AccountModel struct {
	TenantAggregateModel
	Name           string          `gorm:"type:varchar(100);not null"`
	Institution    string          `gorm:"type:varchar(100)"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Active         bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for AccountModel
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts AccountModel to domain Account
func (m *AccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		TenantAggregateRoot: m.tenantAggregateRoot(),
		Name:                m.Name,
		Institution:         m.Institution,
		OpeningBalance:      m.OpeningBalance,
		CurrentBalance:      m.CurrentBalance,
		Active:              m.Active,
	}
}

// FromDomain updates AccountModel from domain Account
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Name = a.Name
	m.Institution = a.Institution
	m.OpeningBalance = a.OpeningBalance
	m.CurrentBalance = a.CurrentBalance
	m.Active = a.Active
}

// AccountModelFromDomain creates AccountModel from domain Account
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// EntryModel is the GORM model for ledger entries
type EntryModel struct {
	TenantAggregateModel
	EntryNumber     string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_entry_tenant_number,priority:2"`
	Description     string          `gorm:"type:varchar(255);not null"`
	Direction       string          `gorm:"type:varchar(10);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DueDate         time.Time       `gorm:"not null"`
	EffectuatedAt   *time.Time
	AccountID       uuid.UUID `gorm:"type:uuid;not null;index"`
	CounterpartType *string   `gorm:"type:varchar(20)"`
	CounterpartID   *uuid.UUID `gorm:"type:uuid;index"`
	SaleID          *uuid.UUID `gorm:"type:uuid;index"`
	Category        string     `gorm:"type:varchar(50)"`
	Status          string     `gorm:"type:varchar(20);not null;index"`
	CancelledAt     *time.Time
}

// TableName returns the table name for EntryModel
func (EntryModel) TableName() string {
	return "entries"
}

// ToDomain converts EntryModel to domain Entry
func (m *EntryModel) ToDomain() *ledger.Entry {
	var counterpartType *ledger.CounterpartType
	if m.CounterpartType != nil {
		ct := ledger.CounterpartType(*m.CounterpartType)
		counterpartType = &ct
	}

	return &ledger.Entry{
		TenantAggregateRoot: m.tenantAggregateRoot(),
		EntryNumber:         m.EntryNumber,
		Description:         m.Description,
		Direction:           ledger.EntryDirection(m.Direction),
		Amount:              m.Amount,
		DueDate:             m.DueDate,
		EffectuatedAt:       m.EffectuatedAt,
		AccountID:           m.AccountID,
		CounterpartType:     counterpartType,
		CounterpartID:       m.CounterpartID,
		SaleID:              m.SaleID,
		Category:            m.Category,
		Status:              ledger.EntryStatus(m.Status),
		CancelledAt:         m.CancelledAt,
	}
}

// FromDomain updates EntryModel from domain Entry
func (m *EntryModel) FromDomain(e *ledger.Entry) {
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	m.EntryNumber = e.EntryNumber
	m.Description = e.Description
	m.Direction = string(e.Direction)
	m.Amount = e.Amount
	m.DueDate = e.DueDate
	m.EffectuatedAt = e.EffectuatedAt
	m.AccountID = e.AccountID
	if e.CounterpartType != nil {
		ct := string(*e.CounterpartType)
		m.CounterpartType = &ct
	} else {
		m.CounterpartType = nil
	}
	m.CounterpartID = e.CounterpartID
	m.SaleID = e.SaleID
	m.Category = e.Category
	m.Status = string(e.Status)
	m.CancelledAt = e.CancelledAt
}

// EntryModelFromDomain creates EntryModel from domain Entry
func EntryModelFromDomain(e *ledger.Entry) *EntryModel {
	m := &EntryModel{}
	m.FromDomain(e)
	return m
}
