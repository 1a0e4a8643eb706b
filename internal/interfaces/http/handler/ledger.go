package handler

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appledger "github.com/finbooks/backend/internal/application/ledger"
	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/interfaces/http/dto"
)

// IdempotencyKeyHeader carries the client-supplied key that guards entry
// state transitions against duplicate submission.
const IdempotencyKeyHeader = "Idempotency-Key"

// LedgerHandler handles account and entry API endpoints
type LedgerHandler struct {
	BaseHandler
	accountService *appledger.AccountService
	entryService   *appledger.EntryService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(accountService *appledger.AccountService, entryService *appledger.EntryService) *LedgerHandler {
	return &LedgerHandler{
		accountService: accountService,
		entryService:   entryService,
	}
}

// RegisterRoutes registers ledger routes on the given group
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.CreateAccount)
		accounts.GET("", h.ListAccounts)
		accounts.GET("/:id", h.GetAccount)
		accounts.GET("/:id/verify-balance", h.VerifyBalance)
		accounts.POST("/:id/credit", h.Credit)
		accounts.POST("/:id/debit", h.Debit)
		accounts.POST("/:id/adjust", h.AdjustBalance)
		accounts.PUT("/:id/opening-balance", h.SetOpeningBalance)
		accounts.POST("/:id/deactivate", h.DeactivateAccount)
		accounts.POST("/:id/activate", h.ActivateAccount)
		accounts.DELETE("/:id", h.DeleteAccount)
	}

	entries := rg.Group("/entries")
	{
		entries.POST("", h.CreateEntry)
		entries.GET("", h.ListEntries)
		entries.GET("/:id", h.GetEntry)
		entries.PUT("/:id", h.UpdateEntry)
		entries.POST("/:id/effectuate", h.EffectuateEntry)
		entries.POST("/:id/cancel", h.CancelEntry)
		entries.POST("/:id/change-account", h.ChangeEntryAccount)
		entries.DELETE("/:id", h.DeleteEntry)
	}
}

// ===================== Accounts =====================

type createAccountRequest struct {
	Name           string          `json:"name" binding:"required"`
	Institution    string          `json:"institution"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type openingBalanceRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type listAccountsRequest struct {
	dto.ListRequest
	Active *bool `form:"active"`
}

type verifyBalanceResponse struct {
	AccountID       uuid.UUID       `json:"account_id"`
	Consistent      bool            `json:"consistent"`
	ExpectedBalance decimal.Decimal `json:"expected_balance"`
}

// CreateAccount creates a new account with its opening balance
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), appledger.CreateAccountRequest{
		TenantID:       tenantID,
		Name:           req.Name,
		Institution:    req.Institution,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, account)
}

// ListAccounts lists accounts for the tenant
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req listAccountsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	accounts, total, err := h.accountService.ListAccounts(c.Request.Context(), tenantID, ledger.AccountFilter{
		Filter: req.Filter(),
		Active: req.Active,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, accounts, total, req.Page, req.PageSize)
}

// GetAccount retrieves an account by ID
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), tenantID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// VerifyBalance recomputes the account balance from effectuated entries and
// reports whether the stored balance matches
func (h *LedgerHandler) VerifyBalance(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	consistent, expected, err := h.accountService.VerifyBalance(c.Request.Context(), tenantID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, verifyBalanceResponse{
		AccountID:       accountID,
		Consistent:      consistent,
		ExpectedBalance: expected,
	})
}

// Credit adds funds to an account
func (h *LedgerHandler) Credit(c *gin.Context) {
	h.applyAmountOperation(c, h.accountService.Credit)
}

// Debit removes funds from an account
func (h *LedgerHandler) Debit(c *gin.Context) {
	h.applyAmountOperation(c, h.accountService.Debit)
}

func (h *LedgerHandler) applyAmountOperation(c *gin.Context,
	op func(ctx context.Context, tenantID, accountID uuid.UUID, amount decimal.Decimal) (*appledger.AccountResponse, error)) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	account, err := op(c.Request.Context(), tenantID, accountID, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// AdjustBalance forces the current balance to a new value
func (h *LedgerHandler) AdjustBalance(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	var req appledger.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	account, err := h.accountService.AdjustBalance(c.Request.Context(), tenantID, accountID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// SetOpeningBalance replaces the opening balance of an account
func (h *LedgerHandler) SetOpeningBalance(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	var req openingBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	account, err := h.accountService.SetOpeningBalance(c.Request.Context(), tenantID, accountID, req.OpeningBalance)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// DeactivateAccount deactivates an account
func (h *LedgerHandler) DeactivateAccount(c *gin.Context) {
	h.applyAccountTransition(c, h.accountService.DeactivateAccount)
}

// ActivateAccount reactivates an account
func (h *LedgerHandler) ActivateAccount(c *gin.Context) {
	h.applyAccountTransition(c, h.accountService.ActivateAccount)
}

// DeleteAccount deletes an account without entries
func (h *LedgerHandler) DeleteAccount(c *gin.Context) {
	h.applyAccountTransition(c, h.accountService.DeleteAccount)
}

func (h *LedgerHandler) applyAccountTransition(c *gin.Context,
	op func(ctx context.Context, tenantID, accountID uuid.UUID) error) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	if err := op(c.Request.Context(), tenantID, accountID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ===================== Entries =====================

type createEntryRequest struct {
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

type effectuateEntryRequest struct {
	EffectuationDate *time.Time `json:"effectuation_date"`
}

type changeAccountRequest struct {
	AccountID uuid.UUID `json:"account_id" binding:"required"`
}

type listEntriesRequest struct {
	dto.ListRequest
	AccountID string `form:"account_id" binding:"omitempty,uuid"`
	Status    string `form:"status"`
	Direction string `form:"direction"`
	SaleID    string `form:"sale_id" binding:"omitempty,uuid"`
}

// CreateEntry creates a new pending entry
func (h *LedgerHandler) CreateEntry(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entry, err := h.entryService.CreateEntry(c.Request.Context(), appledger.CreateEntryRequest{
		TenantID:        tenantID,
		Description:     req.Description,
		Direction:       req.Direction,
		Amount:          req.Amount,
		DueDate:         req.DueDate,
		AccountID:       req.AccountID,
		CounterpartType: req.CounterpartType,
		CounterpartID:   req.CounterpartID,
		SaleID:          req.SaleID,
		Category:        req.Category,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, entry)
}

// ListEntries lists entries for the tenant
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req listEntriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	filter := ledger.EntryFilter{Filter: req.Filter()}
	if req.AccountID != "" {
		accountID := uuid.MustParse(req.AccountID)
		filter.AccountID = &accountID
	}
	if req.SaleID != "" {
		saleID := uuid.MustParse(req.SaleID)
		filter.SaleID = &saleID
	}
	if req.Status != "" {
		status := ledger.EntryStatus(req.Status)
		filter.Status = &status
	}
	if req.Direction != "" {
		direction := ledger.EntryDirection(req.Direction)
		filter.Direction = &direction
	}

	entries, total, err := h.entryService.ListEntries(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, entries, total, req.Page, req.PageSize)
}

// GetEntry retrieves an entry by ID
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID format")
		return
	}

	entry, err := h.entryService.GetEntry(c.Request.Context(), tenantID, entryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// UpdateEntry updates a pending entry's editable fields
func (h *LedgerHandler) UpdateEntry(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID format")
		return
	}

	var req appledger.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entry, err := h.entryService.UpdateEntry(c.Request.Context(), tenantID, entryID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// EffectuateEntry effectuates a pending entry and applies its balance effect.
// The Idempotency-Key header guards against duplicate submission.
func (h *LedgerHandler) EffectuateEntry(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID format")
		return
	}

	// The body is optional; an absent date means effectuate now.
	var req effectuateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}

	effectuationDate := time.Now()
	if req.EffectuationDate != nil {
		effectuationDate = *req.EffectuationDate
	}

	entry, err := h.entryService.EffectuateEntry(c.Request.Context(), tenantID, entryID,
		effectuationDate, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// CancelEntry cancels an entry, reversing its balance effect when it was
// already effectuated
func (h *LedgerHandler) CancelEntry(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID format")
		return
	}

	entry, err := h.entryService.CancelEntry(c.Request.Context(), tenantID, entryID,
		c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// ChangeEntryAccount moves an entry to another account, shifting the balance
// effect when the entry is effectuated
func (h *LedgerHandler) ChangeEntryAccount(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID format")
		return
	}

	var req changeAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entry, err := h.entryService.ChangeEntryAccount(c.Request.Context(), tenantID, entryID, req.AccountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// DeleteEntry deletes a pending entry
func (h *LedgerHandler) DeleteEntry(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID format")
		return
	}

	if err := h.entryService.DeleteEntry(c.Request.Context(), tenantID, entryID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
