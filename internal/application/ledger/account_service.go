package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/shared/valueobject"
	"github.com/finbooks/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountService provides application-level account operations
type AccountService struct {
	accountRepo    ledger.AccountRepository
	entryRepo      ledger.EntryRepository
	eventPublisher shared.EventPublisher
}

// NewAccountService creates a new AccountService
func NewAccountService(
	accountRepo ledger.AccountRepository,
	entryRepo ledger.EntryRepository,
	eventPublisher shared.EventPublisher,
) *AccountService {
	return &AccountService{
		accountRepo:    accountRepo,
		entryRepo:      entryRepo,
		eventPublisher: eventPublisher,
	}
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	Name           string          `json:"name"`
	Institution    string          `json:"institution"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

func toAccountResponse(a *ledger.Account) *AccountResponse {
	return &AccountResponse{
		ID:             a.ID,
		TenantID:       a.TenantID,
		Name:           a.Name,
		Institution:    a.Institution,
		OpeningBalance: a.OpeningBalance,
		CurrentBalance: a.CurrentBalance,
		Active:         a.Active,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		Version:        a.Version,
	}
}

// CreateAccountRequest represents a request to create an account
type CreateAccountRequest struct {
	TenantID       uuid.UUID       `json:"tenant_id" binding:"required"`
	Name           string          `json:"name" binding:"required"`
	Institution    string          `json:"institution"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// CreateAccount creates a new account with its opening balance
func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*AccountResponse, error) {
	account, err := ledger.NewAccount(req.TenantID, req.Name, req.Institution,
		valueobject.NewMoneyBRL(req.OpeningBalance))
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.publishDomainEvents(ctx, account)

	return toAccountResponse(account), nil
}

// GetAccount retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*AccountResponse, error) {
	account, err := s.findAccount(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

// ListAccounts lists accounts for a tenant with filtering
func (s *AccountService) ListAccounts(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) ([]AccountResponse, int64, error) {
	accounts, err := s.accountRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.accountRepo.CountForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]AccountResponse, len(accounts))
	for i := range accounts {
		responses[i] = *toAccountResponse(&accounts[i])
	}

	return responses, total, nil
}

// Credit credits the account with a manual movement
func (s *AccountService) Credit(ctx context.Context, tenantID, accountID uuid.UUID, amount decimal.Decimal) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "credit_account")
	defer span.End()

	account, err := s.findAccount(ctx, tenantID, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := account.Credit(valueobject.NewMoneyBRL(amount)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.publishDomainEvents(ctx, account)
	telemetry.SetAttribute(span, "balance_after", account.CurrentBalance.String())

	return toAccountResponse(account), nil
}

// Debit debits the account with a manual movement. Fails with
// INSUFFICIENT_FUNDS when the balance does not cover the amount.
func (s *AccountService) Debit(ctx context.Context, tenantID, accountID uuid.UUID, amount decimal.Decimal) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "debit_account")
	defer span.End()

	account, err := s.findAccount(ctx, tenantID, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := account.Debit(valueobject.NewMoneyBRL(amount)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.publishDomainEvents(ctx, account)
	telemetry.SetAttribute(span, "balance_after", account.CurrentBalance.String())

	return toAccountResponse(account), nil
}

// AdjustBalanceRequest represents a request to adjust an account balance
type AdjustBalanceRequest struct {
	NewBalance decimal.Decimal `json:"new_balance" binding:"required"`
	Reason     string          `json:"reason" binding:"required"`
}

// AdjustBalance forces the current balance to a new value. The adjustment is
// recorded through an AccountAdjusted event; the opening balance is untouched.
func (s *AccountService) AdjustBalance(ctx context.Context, tenantID, accountID uuid.UUID, req AdjustBalanceRequest) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "adjust_balance")
	defer span.End()

	account, err := s.findAccount(ctx, tenantID, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := account.Adjust(valueobject.NewMoneyBRL(req.NewBalance), req.Reason); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.publishDomainEvents(ctx, account)

	return toAccountResponse(account), nil
}

// SetOpeningBalance changes the opening balance and resets the current balance
// to it. Only allowed while no entries reference the account; once movements
// exist the opening balance is locked to protect recorded history.
func (s *AccountService) SetOpeningBalance(ctx context.Context, tenantID, accountID uuid.UUID, openingBalance decimal.Decimal) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "set_opening_balance")
	defer span.End()

	account, err := s.findAccount(ctx, tenantID, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	entryCount, err := s.entryRepo.CountByAccount(ctx, tenantID, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	if entryCount > 0 {
		err := shared.NewDomainError(shared.CodeLockedInvariant,
			fmt.Sprintf("Cannot change opening balance: account has %d entries", entryCount))
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := account.SetOpeningBalance(valueobject.NewMoneyBRL(openingBalance)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.publishDomainEvents(ctx, account)

	return toAccountResponse(account), nil
}

// DeactivateAccount deactivates an account
func (s *AccountService) DeactivateAccount(ctx context.Context, tenantID, accountID uuid.UUID) error {
	account, err := s.findAccount(ctx, tenantID, accountID)
	if err != nil {
		return err
	}

	account.Deactivate()

	if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// ActivateAccount activates an account
func (s *AccountService) ActivateAccount(ctx context.Context, tenantID, accountID uuid.UUID) error {
	account, err := s.findAccount(ctx, tenantID, accountID)
	if err != nil {
		return err
	}

	account.Activate()

	if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// DeleteAccount removes an account. Accounts referenced by entries cannot be
// deleted, only deactivated.
func (s *AccountService) DeleteAccount(ctx context.Context, tenantID, accountID uuid.UUID) error {
	if _, err := s.findAccount(ctx, tenantID, accountID); err != nil {
		return err
	}

	entryCount, err := s.entryRepo.CountByAccount(ctx, tenantID, accountID)
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	if entryCount > 0 {
		return shared.NewDomainError(shared.CodeLockedInvariant,
			fmt.Sprintf("Cannot delete account: %d entries reference it", entryCount))
	}

	return s.accountRepo.DeleteForTenant(ctx, tenantID, accountID)
}

// VerifyBalance recomputes the current balance from effectuated entries and
// reports whether the stored balance matches. Intended for consistency checks;
// adjustments shift the expected value away from the pure entry sum.
func (s *AccountService) VerifyBalance(ctx context.Context, tenantID, accountID uuid.UUID) (bool, decimal.Decimal, error) {
	account, err := s.findAccount(ctx, tenantID, accountID)
	if err != nil {
		return false, decimal.Zero, err
	}

	sum, err := s.entryRepo.SumEffectuatedByAccount(ctx, tenantID, accountID)
	if err != nil {
		return false, decimal.Zero, fmt.Errorf("failed to sum entries: %w", err)
	}

	expected := account.OpeningBalance.Add(sum)
	return account.CurrentBalance.Equal(expected), expected, nil
}

func (s *AccountService) findAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*ledger.Account, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Account not found")
	}
	return account, nil
}

func (s *AccountService) publishDomainEvents(ctx context.Context, account *ledger.Account) {
	if s.eventPublisher == nil {
		return
	}
	events := account.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	account.ClearDomainEvents()
}
