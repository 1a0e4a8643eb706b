package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appfinance "github.com/finbooks/backend/internal/application/finance"
	"github.com/finbooks/backend/internal/domain/finance"
	"github.com/finbooks/backend/internal/interfaces/http/dto"
)

// FinanceHandler handles payable and receivable API endpoints
type FinanceHandler struct {
	BaseHandler
	payableService    *appfinance.PayableService
	receivableService *appfinance.ReceivableService
}

// NewFinanceHandler creates a new FinanceHandler
func NewFinanceHandler(payableService *appfinance.PayableService, receivableService *appfinance.ReceivableService) *FinanceHandler {
	return &FinanceHandler{
		payableService:    payableService,
		receivableService: receivableService,
	}
}

// RegisterRoutes registers finance routes on the given group
func (h *FinanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payables := rg.Group("/payables")
	{
		payables.POST("", h.CreatePayable)
		payables.GET("", h.ListPayables)
		payables.GET("/summary", h.GetPayableSummary)
		payables.GET("/:id", h.GetPayable)
		payables.POST("/:id/settlements", h.SettlePayable)
		payables.POST("/:id/installments", h.SplitPayable)
		payables.POST("/:id/cancel", h.CancelPayable)
		payables.DELETE("/:id", h.DeletePayable)
	}

	receivables := rg.Group("/receivables")
	{
		receivables.POST("", h.CreateReceivable)
		receivables.GET("", h.ListReceivables)
		receivables.GET("/summary", h.GetReceivableSummary)
		receivables.GET("/:id", h.GetReceivable)
		receivables.POST("/:id/settlements", h.SettleReceivable)
		receivables.POST("/:id/installments", h.SplitReceivable)
		receivables.POST("/:id/cancel", h.CancelReceivable)
		receivables.DELETE("/:id", h.DeleteReceivable)
	}
}

// ===================== Request DTOs =====================

type createPayableRequest struct {
	SupplierID   uuid.UUID       `json:"supplier_id" binding:"required"`
	SupplierName string          `json:"supplier_name" binding:"required"`
	Description  string          `json:"description" binding:"required"`
	Category     string          `json:"category"`
	TotalAmount  decimal.Decimal `json:"total_amount" binding:"required"`
	DueDate      time.Time       `json:"due_date" binding:"required"`
	PurchaseID   *uuid.UUID      `json:"purchase_id"`
}

type createReceivableRequest struct {
	ClientID    uuid.UUID       `json:"client_id" binding:"required"`
	ClientName  string          `json:"client_name" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Category    string          `json:"category"`
	TotalAmount decimal.Decimal `json:"total_amount" binding:"required"`
	DueDate     time.Time       `json:"due_date" binding:"required"`
	SaleID      *uuid.UUID      `json:"sale_id"`
}

type settlementRequest struct {
	Date   time.Time       `json:"date" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type splitRequest struct {
	Count        int       `json:"count" binding:"required,min=2"`
	FirstDueDate time.Time `json:"first_due_date" binding:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type listPayablesRequest struct {
	dto.ListRequest
	Status     string `form:"status"`
	SupplierID string `form:"supplier_id" binding:"omitempty,uuid"`
	Overdue    *bool  `form:"overdue"`
}

type listReceivablesRequest struct {
	dto.ListRequest
	Status   string `form:"status"`
	ClientID string `form:"client_id" binding:"omitempty,uuid"`
	Overdue  *bool  `form:"overdue"`
}

// ===================== Payables =====================

// CreatePayable creates a new payable document
func (h *FinanceHandler) CreatePayable(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req createPayableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	payable, err := h.payableService.CreatePayable(c.Request.Context(), appfinance.CreatePayableRequest{
		TenantID:     tenantID,
		SupplierID:   req.SupplierID,
		SupplierName: req.SupplierName,
		Description:  req.Description,
		Category:     req.Category,
		TotalAmount:  req.TotalAmount,
		DueDate:      req.DueDate,
		PurchaseID:   req.PurchaseID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, payable)
}

// ListPayables lists payables for the tenant
func (h *FinanceHandler) ListPayables(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req listPayablesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	filter := finance.PayableFilter{
		Filter:  req.Filter(),
		Overdue: req.Overdue,
	}
	if req.SupplierID != "" {
		supplierID := uuid.MustParse(req.SupplierID)
		filter.SupplierID = &supplierID
	}
	if req.Status != "" {
		status := finance.PayableStatus(req.Status)
		filter.Status = &status
	}

	page, err := h.payableService.ListPayables(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetPayableSummary returns outstanding and overdue aggregates
func (h *FinanceHandler) GetPayableSummary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	summary, err := h.payableService.GetSummary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// GetPayable retrieves a payable by ID
func (h *FinanceHandler) GetPayable(c *gin.Context) {
	tenantID, payableID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	payable, err := h.payableService.GetPayable(c.Request.Context(), tenantID, payableID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payable)
}

// SettlePayable registers a settlement against a payable
func (h *FinanceHandler) SettlePayable(c *gin.Context) {
	tenantID, payableID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req settlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	payable, err := h.payableService.RegisterSettlement(c.Request.Context(), tenantID, payableID, req.Date, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payable)
}

// SplitPayable splits a payable into an installment plan
func (h *FinanceHandler) SplitPayable(c *gin.Context) {
	tenantID, payableID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req splitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	payable, err := h.payableService.SplitIntoInstallments(c.Request.Context(), tenantID, payableID, req.Count, req.FirstDueDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payable)
}

// CancelPayable cancels a payable and its open installments
func (h *FinanceHandler) CancelPayable(c *gin.Context) {
	h.applyCancel(c, func(ctx context.Context, tenantID, id uuid.UUID, reason string) (any, error) {
		return h.payableService.CancelPayable(ctx, tenantID, id, reason)
	})
}

// DeletePayable deletes a payable without settlements
func (h *FinanceHandler) DeletePayable(c *gin.Context) {
	tenantID, payableID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	if err := h.payableService.DeletePayable(c.Request.Context(), tenantID, payableID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ===================== Receivables =====================

// CreateReceivable creates a new receivable document
func (h *FinanceHandler) CreateReceivable(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req createReceivableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	receivable, err := h.receivableService.CreateReceivable(c.Request.Context(), appfinance.CreateReceivableRequest{
		TenantID:    tenantID,
		ClientID:    req.ClientID,
		ClientName:  req.ClientName,
		Description: req.Description,
		Category:    req.Category,
		TotalAmount: req.TotalAmount,
		DueDate:     req.DueDate,
		SaleID:      req.SaleID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, receivable)
}

// ListReceivables lists receivables for the tenant
func (h *FinanceHandler) ListReceivables(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req listReceivablesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	filter := finance.ReceivableFilter{
		Filter:  req.Filter(),
		Overdue: req.Overdue,
	}
	if req.ClientID != "" {
		clientID := uuid.MustParse(req.ClientID)
		filter.ClientID = &clientID
	}
	if req.Status != "" {
		status := finance.ReceivableStatus(req.Status)
		filter.Status = &status
	}

	page, err := h.receivableService.ListReceivables(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetReceivableSummary returns outstanding and overdue aggregates
func (h *FinanceHandler) GetReceivableSummary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	summary, err := h.receivableService.GetSummary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// GetReceivable retrieves a receivable by ID
func (h *FinanceHandler) GetReceivable(c *gin.Context) {
	tenantID, receivableID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	receivable, err := h.receivableService.GetReceivable(c.Request.Context(), tenantID, receivableID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, receivable)
}

// SettleReceivable registers a settlement against a receivable
func (h *FinanceHandler) SettleReceivable(c *gin.Context) {
	tenantID, receivableID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req settlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	receivable, err := h.receivableService.RegisterSettlement(c.Request.Context(), tenantID, receivableID, req.Date, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, receivable)
}

// SplitReceivable splits a receivable into an installment plan
func (h *FinanceHandler) SplitReceivable(c *gin.Context) {
	tenantID, receivableID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req splitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	receivable, err := h.receivableService.SplitIntoInstallments(c.Request.Context(), tenantID, receivableID, req.Count, req.FirstDueDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, receivable)
}

// CancelReceivable cancels a receivable and its open installments
func (h *FinanceHandler) CancelReceivable(c *gin.Context) {
	h.applyCancel(c, func(ctx context.Context, tenantID, id uuid.UUID, reason string) (any, error) {
		return h.receivableService.CancelReceivable(ctx, tenantID, id, reason)
	})
}

// DeleteReceivable deletes a receivable without settlements
func (h *FinanceHandler) DeleteReceivable(c *gin.Context) {
	tenantID, receivableID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	if err := h.receivableService.DeleteReceivable(c.Request.Context(), tenantID, receivableID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ===================== Helpers =====================

func (h *FinanceHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ID format")
		return uuid.Nil, uuid.Nil, false
	}

	return tenantID, id, true
}

func (h *FinanceHandler) applyCancel(c *gin.Context,
	op func(ctx context.Context, tenantID, id uuid.UUID, reason string) (any, error)) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := op(c.Request.Context(), tenantID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, doc)
}
