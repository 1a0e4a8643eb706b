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

// EntryService provides application-level entry operations. Status transitions
// and their balance effects land in a single transaction through the
// repository; events are published only after the write succeeds.
type EntryService struct {
	entryRepo         ledger.EntryRepository
	accountRepo       ledger.AccountRepository
	eventPublisher    shared.EventPublisher
	idempotencyStore  shared.IdempotencyStore
	idempotencyConfig shared.IdempotencyConfig
}

// EntryServiceOption is a functional option for configuring EntryService
type EntryServiceOption func(*EntryService)

// WithIdempotencyStore enables idempotency-key checking on effectuate and
// cancel operations
func WithIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) EntryServiceOption {
	return func(s *EntryService) {
		s.idempotencyStore = store
		s.idempotencyConfig = cfg
	}
}

// NewEntryService creates a new EntryService
func NewEntryService(
	entryRepo ledger.EntryRepository,
	accountRepo ledger.AccountRepository,
	eventPublisher shared.EventPublisher,
	opts ...EntryServiceOption,
) *EntryService {
	s := &EntryService{
		entryRepo:         entryRepo,
		accountRepo:       accountRepo,
		eventPublisher:    eventPublisher,
		idempotencyConfig: shared.DefaultIdempotencyConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EntryResponse represents an entry in API responses
type EntryResponse struct {
	ID              uuid.UUID       `json:"id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	EntryNumber     string          `json:"entry_number"`
	Description     string          `json:"description"`
	Direction       string          `json:"direction"`
	Amount          decimal.Decimal `json:"amount"`
	DueDate         time.Time       `json:"due_date"`
	EffectuatedAt   *time.Time      `json:"effectuated_at,omitempty"`
	AccountID       uuid.UUID       `json:"account_id"`
	CounterpartType *string         `json:"counterpart_type,omitempty"`
	CounterpartID   *uuid.UUID      `json:"counterpart_id,omitempty"`
	SaleID          *uuid.UUID      `json:"sale_id,omitempty"`
	Category        string          `json:"category,omitempty"`
	Status          string          `json:"status"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
}

func toEntryResponse(e *ledger.Entry) *EntryResponse {
	resp := &EntryResponse{
		ID:            e.ID,
		TenantID:      e.TenantID,
		EntryNumber:   e.EntryNumber,
		Description:   e.Description,
		Direction:     e.Direction.String(),
		Amount:        e.Amount,
		DueDate:       e.DueDate,
		EffectuatedAt: e.EffectuatedAt,
		AccountID:     e.AccountID,
		CounterpartID: e.CounterpartID,
		SaleID:        e.SaleID,
		Category:      e.Category,
		Status:        e.Status.String(),
		CancelledAt:   e.CancelledAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		Version:       e.Version,
	}
	if e.CounterpartType != nil {
		ct := string(*e.CounterpartType)
		resp.CounterpartType = &ct
	}
	return resp
}

// CreateEntryRequest represents a request to create an entry
type CreateEntryRequest struct {
	TenantID        uuid.UUID       `json:"tenant_id" binding:"required"`
	Description     string          `json:"description" binding:"required"`
	Direction       string          `json:"direction" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	DueDate         time.Time       `json:"due_date" binding:"required"`
	AccountID       uuid.UUID       `json:"account_id" binding:"required"`
	CounterpartType string          `json:"counterpart_type"`
	CounterpartID   *uuid.UUID      `json:"counterpart_id"`
	SaleID          *uuid.UUID      `json:"sale_id"`
	Category        string          `json:"category"`
}

// CreateEntry creates a new pending entry. The referenced account and
// counterpart must exist in the same tenant.
func (s *EntryService) CreateEntry(ctx context.Context, req CreateEntryRequest) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_entry")
	defer span.End()

	if _, err := s.findAccount(ctx, req.TenantID, req.AccountID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	entryNumber, err := s.entryRepo.GenerateEntryNumber(ctx, req.TenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to generate entry number: %w", err)
	}

	entry, err := ledger.NewEntry(
		req.TenantID,
		entryNumber,
		ledger.EntryDirection(req.Direction),
		valueobject.NewMoneyBRL(req.Amount),
		req.DueDate,
		req.AccountID,
		req.Description,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.CounterpartID != nil {
		if err := entry.WithCounterpart(ledger.CounterpartType(req.CounterpartType), *req.CounterpartID); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	if req.SaleID != nil {
		entry.WithSale(*req.SaleID)
	}
	if req.Category != "" {
		entry.WithCategory(req.Category)
	}

	if err := s.entryRepo.Save(ctx, entry); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}

	s.publishDomainEvents(ctx, entry)

	return toEntryResponse(entry), nil
}

// GetEntry retrieves an entry by ID
func (s *EntryService) GetEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*EntryResponse, error) {
	entry, err := s.findEntry(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	return toEntryResponse(entry), nil
}

// ListEntries lists entries for a tenant with filtering
func (s *EntryService) ListEntries(ctx context.Context, tenantID uuid.UUID, filter ledger.EntryFilter) ([]EntryResponse, int64, error) {
	entries, err := s.entryRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.entryRepo.CountForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]EntryResponse, len(entries))
	for i := range entries {
		responses[i] = *toEntryResponse(&entries[i])
	}

	return responses, total, nil
}

// EffectuateEntry effectuates a pending entry and applies its balance effect
// to the account: credit for inflows, debit for outflows. Entry and account
// are saved in one transaction. When an idempotency key is provided, a
// repeated call with the same key is rejected before any balance mutation.
func (s *EntryService) EffectuateEntry(ctx context.Context, tenantID, entryID uuid.UUID, effectuationDate time.Time, idempotencyKey string) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "effectuate_entry")
	defer span.End()

	if err := s.checkIdempotency(ctx, "effectuate", idempotencyKey); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	entry, err := s.findEntry(ctx, tenantID, entryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	account, err := s.findAccount(ctx, tenantID, entry.AccountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := entry.Effectuate(effectuationDate); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.applyBalanceEffect(account, entry); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.entryRepo.SaveWithAccounts(ctx, entry, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save entry with account: %w", err)
	}

	s.markIdempotencyProcessed(ctx, "effectuate", idempotencyKey)
	s.publishDomainEvents(ctx, entry)
	s.publishAccountEvents(ctx, account)

	telemetry.AddEvent(span, "entry_effectuated",
		"entry_number", entry.EntryNumber,
		"balance_after", account.CurrentBalance.String(),
	)

	return toEntryResponse(entry), nil
}

// CancelEntry cancels an entry. Cancelling an effectuated entry reverses its
// balance effect in the same transaction; cancelling a pending entry is a
// plain status change, and cancelling a cancelled entry is a no-op.
func (s *EntryService) CancelEntry(ctx context.Context, tenantID, entryID uuid.UUID, idempotencyKey string) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "cancel_entry")
	defer span.End()

	if err := s.checkIdempotency(ctx, "cancel", idempotencyKey); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	entry, err := s.findEntry(ctx, tenantID, entryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	reversalRequired, err := entry.Cancel()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !reversalRequired {
		if err := s.entryRepo.SaveWithLock(ctx, entry); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save entry: %w", err)
		}
		s.markIdempotencyProcessed(ctx, "cancel", idempotencyKey)
		s.publishDomainEvents(ctx, entry)
		return toEntryResponse(entry), nil
	}

	account, err := s.findAccount(ctx, tenantID, entry.AccountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.reverseBalanceEffect(account, entry); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.entryRepo.SaveWithAccounts(ctx, entry, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save entry with account: %w", err)
	}

	s.markIdempotencyProcessed(ctx, "cancel", idempotencyKey)
	s.publishDomainEvents(ctx, entry)
	s.publishAccountEvents(ctx, account)

	return toEntryResponse(entry), nil
}

// UpdateEntryRequest carries the allow-listed updatable fields. Nil pointers
// leave the field unchanged.
type UpdateEntryRequest struct {
	Description     *string          `json:"description"`
	Amount          *decimal.Decimal `json:"amount"`
	DueDate         *time.Time       `json:"due_date"`
	Category        *string          `json:"category"`
	CounterpartType *string          `json:"counterpart_type"`
	CounterpartID   *uuid.UUID       `json:"counterpart_id"`
}

// UpdateEntry updates a pending entry's allow-listed fields
func (s *EntryService) UpdateEntry(ctx context.Context, tenantID, entryID uuid.UUID, req UpdateEntryRequest) (*EntryResponse, error) {
	entry, err := s.findEntry(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}

	update := ledger.EntryUpdate{
		Description:   req.Description,
		DueDate:       req.DueDate,
		Category:      req.Category,
		CounterpartID: req.CounterpartID,
	}
	if req.Amount != nil {
		amount := valueobject.NewMoneyBRL(*req.Amount)
		update.Amount = &amount
	}
	if req.CounterpartType != nil {
		ct := ledger.CounterpartType(*req.CounterpartType)
		update.CounterpartType = &ct
	}

	if err := entry.Update(update); err != nil {
		return nil, err
	}

	if err := s.entryRepo.SaveWithLock(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}

	s.publishDomainEvents(ctx, entry)

	return toEntryResponse(entry), nil
}

// ChangeEntryAccount moves an entry to another account. For an effectuated
// entry the old account is reversed and the new one charged, all three rows in
// one transaction so a failure on the second leg rolls back the first.
func (s *EntryService) ChangeEntryAccount(ctx context.Context, tenantID, entryID, newAccountID uuid.UUID) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "change_entry_account")
	defer span.End()

	entry, err := s.findEntry(ctx, tenantID, entryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	newAccount, err := s.findAccount(ctx, tenantID, newAccountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	oldAccountID := entry.AccountID
	if oldAccountID == newAccountID {
		return toEntryResponse(entry), nil
	}

	wasEffectuated := entry.IsEffectuated()

	if err := entry.ChangeAccount(newAccountID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !wasEffectuated {
		if err := s.entryRepo.SaveWithLock(ctx, entry); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save entry: %w", err)
		}
		s.publishDomainEvents(ctx, entry)
		return toEntryResponse(entry), nil
	}

	oldAccount, err := s.findAccount(ctx, tenantID, oldAccountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.reverseBalanceEffect(oldAccount, entry); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.applyBalanceEffect(newAccount, entry); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.entryRepo.SaveWithAccounts(ctx, entry, oldAccount, newAccount); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save entry with accounts: %w", err)
	}

	s.publishDomainEvents(ctx, entry)
	s.publishAccountEvents(ctx, oldAccount)
	s.publishAccountEvents(ctx, newAccount)

	return toEntryResponse(entry), nil
}

// DeleteEntry removes a pending entry. Effectuated entries must be cancelled
// first so their balance effect is reversed through the state machine.
func (s *EntryService) DeleteEntry(ctx context.Context, tenantID, entryID uuid.UUID) error {
	entry, err := s.findEntry(ctx, tenantID, entryID)
	if err != nil {
		return err
	}

	if entry.IsEffectuated() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot delete an effectuated entry, cancel it first")
	}

	return s.entryRepo.DeleteForTenant(ctx, tenantID, entryID)
}

// applyBalanceEffect applies the entry's signed amount to the account:
// inflows credit, outflows debit
func (s *EntryService) applyBalanceEffect(account *ledger.Account, entry *ledger.Entry) error {
	amount := entry.GetAmountMoney()
	if entry.Direction == ledger.DirectionInflow {
		return account.Credit(amount)
	}
	return account.Debit(amount)
}

// reverseBalanceEffect applies the inverse operation of applyBalanceEffect
func (s *EntryService) reverseBalanceEffect(account *ledger.Account, entry *ledger.Entry) error {
	amount := entry.GetAmountMoney()
	if entry.Direction == ledger.DirectionInflow {
		return account.Debit(amount)
	}
	return account.Credit(amount)
}

func (s *EntryService) checkIdempotency(ctx context.Context, operation, key string) error {
	if s.idempotencyStore == nil || !s.idempotencyConfig.Enabled || key == "" {
		return nil
	}
	processed, err := s.idempotencyStore.IsProcessed(ctx, operation+":"+key)
	if err != nil {
		return fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if processed {
		return shared.NewDomainError(shared.CodeInvalidArgument,
			fmt.Sprintf("Operation with idempotency key %s was already processed", key))
	}
	return nil
}

func (s *EntryService) markIdempotencyProcessed(ctx context.Context, operation, key string) {
	if s.idempotencyStore == nil || !s.idempotencyConfig.Enabled || key == "" {
		return
	}
	// Best effort: a failed mark only weakens retry protection
	_, _ = s.idempotencyStore.MarkProcessed(ctx, operation+":"+key, s.idempotencyConfig.TTL)
}

func (s *EntryService) findEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*ledger.Entry, error) {
	entry, err := s.entryRepo.FindByIDForTenant(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Entry not found")
	}
	return entry, nil
}

func (s *EntryService) findAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*ledger.Account, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Account not found")
	}
	return account, nil
}

func (s *EntryService) publishDomainEvents(ctx context.Context, entry *ledger.Entry) {
	if s.eventPublisher == nil {
		return
	}
	events := entry.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	entry.ClearDomainEvents()
}

func (s *EntryService) publishAccountEvents(ctx context.Context, account *ledger.Account) {
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
