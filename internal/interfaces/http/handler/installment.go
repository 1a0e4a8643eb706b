package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinstallment "github.com/finbooks/backend/internal/application/installment"
)

// InstallmentHandler handles installment API endpoints
type InstallmentHandler struct {
	BaseHandler
	installmentService *appinstallment.InstallmentService
}

// NewInstallmentHandler creates a new InstallmentHandler
func NewInstallmentHandler(installmentService *appinstallment.InstallmentService) *InstallmentHandler {
	return &InstallmentHandler{installmentService: installmentService}
}

// RegisterRoutes registers installment routes on the given group
func (h *InstallmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	installments := rg.Group("/installments")
	{
		installments.POST("/plans", h.GeneratePlan)
		installments.GET("/plans/:parentType/:parentId", h.GetPlan)
		installments.GET("/overdue", h.ListOverdue)
		installments.POST("/:id/pay", h.MarkPaid)
		installments.POST("/:id/cancel", h.Cancel)
	}
}

type generatePlanRequest struct {
	ParentType string          `json:"parent_type" binding:"required"`
	ParentID   uuid.UUID       `json:"parent_id" binding:"required"`
	Total      decimal.Decimal `json:"total" binding:"required"`
	FirstDue   time.Time       `json:"first_due" binding:"required"`
	Count      int             `json:"count" binding:"required,min=2"`
}

type markPaidRequest struct {
	PaymentDate *time.Time `json:"payment_date"`
}

// GeneratePlan splits a parent total into a new installment plan. Payables
// and receivables normally split through their own endpoints; this one
// serves standalone parents such as sales.
func (h *InstallmentHandler) GeneratePlan(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req generatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	plan, err := h.installmentService.GeneratePlan(c.Request.Context(), appinstallment.GeneratePlanRequest{
		TenantID:   tenantID,
		ParentType: req.ParentType,
		ParentID:   req.ParentID,
		Total:      req.Total,
		FirstDue:   req.FirstDue,
		Count:      req.Count,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, plan)
}

// GetPlan retrieves the installment plan of a parent document
func (h *InstallmentHandler) GetPlan(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	parentID, err := uuid.Parse(c.Param("parentId"))
	if err != nil {
		h.BadRequest(c, "Invalid parent ID format")
		return
	}

	plan, err := h.installmentService.GetPlan(c.Request.Context(), tenantID, c.Param("parentType"), parentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, plan)
}

// ListOverdue lists pending installments past their due date
func (h *InstallmentHandler) ListOverdue(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	overdue, err := h.installmentService.ListOverdue(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, overdue)
}

// MarkPaid marks an installment as paid and recomputes the parent status
func (h *InstallmentHandler) MarkPaid(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid installment ID format")
		return
	}

	// The body is optional; an absent date means paid now.
	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}

	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	inst, err := h.installmentService.MarkPaid(c.Request.Context(), tenantID, installmentID, paymentDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, inst)
}

// Cancel cancels a pending installment and recomputes the parent status
func (h *InstallmentHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid installment ID format")
		return
	}

	inst, err := h.installmentService.Cancel(c.Request.Context(), tenantID, installmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, inst)
}
