package ledger

import (
	"fmt"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a bank-account-like balance-holding aggregate root.
// The current balance is a materialized view of history: it equals the opening
// balance plus the signed sum of all effectuated, non-reversed entries, and is
// only mutated through the operations defined here.
type Account struct {
	shared.TenantAggregateRoot
	Name           string          `json:"name"`
	Institution    string          `json:"institution"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Active         bool            `json:"active"`
}

// NewAccount creates a new account with the given opening balance.
// The current balance starts equal to the opening balance.
func NewAccount(tenantID uuid.UUID, name, institution string, openingBalance valueobject.Money) (*Account, error) {
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Account name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Account name cannot exceed 100 characters")
	}

	acc := &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Institution:         institution,
		OpeningBalance:      openingBalance.Amount(),
		CurrentBalance:      openingBalance.Amount(),
		Active:              true,
	}

	acc.AddDomainEvent(NewAccountCreatedEvent(acc))

	return acc, nil
}

// Credit increases the current balance. There is no upper bound.
func (a *Account) Credit(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Credit amount must be positive")
	}

	before := a.CurrentBalance
	a.CurrentBalance = a.CurrentBalance.Add(amount.Amount())
	a.Touch()
	a.IncrementVersion()

	a.AddDomainEvent(NewAccountCreditedEvent(a, amount.Amount(), before))

	return nil
}

// Debit decreases the current balance. Fails without touching the balance when
// the current balance cannot cover the amount.
func (a *Account) Debit(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Debit amount must be positive")
	}
	if a.CurrentBalance.LessThan(amount.Amount()) {
		return shared.NewDomainError(shared.CodeInsufficientFunds,
			fmt.Sprintf("Insufficient funds: available %s, required %s",
				a.CurrentBalance.StringFixed(2), amount.Amount().StringFixed(2)))
	}

	before := a.CurrentBalance
	a.CurrentBalance = a.CurrentBalance.Sub(amount.Amount())
	a.Touch()
	a.IncrementVersion()

	a.AddDomainEvent(NewAccountDebitedEvent(a, amount.Amount(), before))

	return nil
}

// Adjust sets the current balance directly. Used only for manual corrections;
// the reason is mandatory and travels with the event so the audit trail stays
// reconstructible. The opening balance is never touched.
func (a *Account) Adjust(newBalance valueobject.Money, reason string) error {
	if reason == "" {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Adjustment reason is required")
	}

	before := a.CurrentBalance
	a.CurrentBalance = newBalance.Amount()
	a.Touch()
	a.IncrementVersion()

	a.AddDomainEvent(NewAccountAdjustedEvent(a, before, reason))

	return nil
}

// SetOpeningBalance rewrites the opening balance and resets the current balance
// to match. The caller must ensure the account has no entries; changing history
// retroactively once movements exist is disallowed and guarded at the service
// layer with the entry count.
func (a *Account) SetOpeningBalance(openingBalance valueobject.Money) error {
	before := a.OpeningBalance
	a.OpeningBalance = openingBalance.Amount()
	a.CurrentBalance = openingBalance.Amount()
	a.Touch()
	a.IncrementVersion()

	a.AddDomainEvent(NewAccountOpeningBalanceSetEvent(a, before))

	return nil
}

// Deactivate marks the account inactive. Inactive accounts keep their balance
// and history; new entries against them are rejected at the service layer.
func (a *Account) Deactivate() {
	if !a.Active {
		return
	}
	a.Active = false
	a.Touch()
	a.IncrementVersion()
}

// Activate marks the account active again.
func (a *Account) Activate() {
	if a.Active {
		return
	}
	a.Active = true
	a.Touch()
	a.IncrementVersion()
}

// GetCurrentBalanceMoney returns the current balance as Money
func (a *Account) GetCurrentBalanceMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(a.CurrentBalance)
}

// GetOpeningBalanceMoney returns the opening balance as Money
func (a *Account) GetOpeningBalanceMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(a.OpeningBalance)
}
