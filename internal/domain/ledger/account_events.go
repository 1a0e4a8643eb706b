package ledger

import (
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountCreatedEvent is raised when a new account is created
type AccountCreatedEvent struct {
	shared.BaseDomainEvent
	AccountID      uuid.UUID       `json:"account_id"`
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// EventType returns the event type name
func (e *AccountCreatedEvent) EventType() string {
	return "AccountCreated"
}

// NewAccountCreatedEvent creates a new AccountCreatedEvent
func NewAccountCreatedEvent(a *Account) *AccountCreatedEvent {
	return &AccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountCreated", "Account", a.ID, a.TenantID),
		AccountID:       a.ID,
		Name:            a.Name,
		OpeningBalance:  a.OpeningBalance,
	}
}

// AccountCreditedEvent is raised when an account balance is increased
type AccountCreditedEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// EventType returns the event type name
func (e *AccountCreditedEvent) EventType() string {
	return "AccountCredited"
}

// NewAccountCreditedEvent creates a new AccountCreditedEvent
func NewAccountCreditedEvent(a *Account, amount, before decimal.Decimal) *AccountCreditedEvent {
	return &AccountCreditedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountCredited", "Account", a.ID, a.TenantID),
		AccountID:       a.ID,
		Amount:          amount,
		BalanceBefore:   before,
		BalanceAfter:    a.CurrentBalance,
	}
}

// AccountDebitedEvent is raised when an account balance is decreased
type AccountDebitedEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// EventType returns the event type name
func (e *AccountDebitedEvent) EventType() string {
	return "AccountDebited"
}

// NewAccountDebitedEvent creates a new AccountDebitedEvent
func NewAccountDebitedEvent(a *Account, amount, before decimal.Decimal) *AccountDebitedEvent {
	return &AccountDebitedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountDebited", "Account", a.ID, a.TenantID),
		AccountID:       a.ID,
		Amount:          amount,
		BalanceBefore:   before,
		BalanceAfter:    a.CurrentBalance,
	}
}

// AccountAdjustedEvent is raised when a balance is manually corrected
type AccountAdjustedEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID       `json:"account_id"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reason        string          `json:"reason"`
}

// EventType returns the event type name
func (e *AccountAdjustedEvent) EventType() string {
	return "AccountAdjusted"
}

// NewAccountAdjustedEvent creates a new AccountAdjustedEvent
func NewAccountAdjustedEvent(a *Account, before decimal.Decimal, reason string) *AccountAdjustedEvent {
	return &AccountAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountAdjusted", "Account", a.ID, a.TenantID),
		AccountID:       a.ID,
		BalanceBefore:   before,
		BalanceAfter:    a.CurrentBalance,
		Reason:          reason,
	}
}

// AccountOpeningBalanceSetEvent is raised when the opening balance is rewritten
// on an account that has no entries yet
type AccountOpeningBalanceSetEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID       `json:"account_id"`
	OpeningBefore decimal.Decimal `json:"opening_before"`
	OpeningAfter  decimal.Decimal `json:"opening_after"`
}

// EventType returns the event type name
func (e *AccountOpeningBalanceSetEvent) EventType() string {
	return "AccountOpeningBalanceSet"
}

// NewAccountOpeningBalanceSetEvent creates a new AccountOpeningBalanceSetEvent
func NewAccountOpeningBalanceSetEvent(a *Account, before decimal.Decimal) *AccountOpeningBalanceSetEvent {
	return &AccountOpeningBalanceSetEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountOpeningBalanceSet", "Account", a.ID, a.TenantID),
		AccountID:       a.ID,
		OpeningBefore:   before,
		OpeningAfter:    a.OpeningBalance,
	}
}
