package handlers

import (
	"context"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type PayrollHandler struct {
	payrollService PayrollServiceInterface
}

func NewPayrollHandler(payrollService PayrollServiceInterface) *PayrollHandler {
	return &PayrollHandler{payrollService: payrollService}
}

func (h *PayrollHandler) Generate(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	var req dto.GeneratePayrollRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() {
		c.BadRequest("period_start and period_end are required")
		return
	}

	batch, err := h.payrollService.Generate(c.Request.Context(), actor, req.PeriodStart.Time, req.PeriodEnd.Time)
	if err != nil {
		respondError(c, err, "failed to generate payroll")
		return
	}

	_ = c.JSON(201, batch)
}

func (h *PayrollHandler) List(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	status := c.QueryParam("status")
	switch status {
	case "", models.PayrollDraft, models.PayrollApproved, models.PayrollPaid:
	default:
		c.BadRequest("invalid status filter")
		return
	}

	page := pageFromQuery(c)
	batches, total, err := h.payrollService.List(c.Request.Context(), actor.TenantID, status, page)
	if err != nil {
		respondError(c, err, "failed to list payroll batches")
		return
	}

	_ = c.JSON(200, listResponse(batches, page, total))
}

func (h *PayrollHandler) Get(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "payroll batch")
	if !ok {
		return
	}

	batch, err := h.payrollService.Get(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		respondError(c, err, "failed to load payroll batch")
		return
	}

	_ = c.JSON(200, batch)
}

func (h *PayrollHandler) Approve(c *drift.Context) {
	h.advance(c, "failed to approve payroll batch", h.payrollService.Approve)
}

func (h *PayrollHandler) MarkPaid(c *drift.Context) {
	h.advance(c, "failed to mark payroll batch paid", h.payrollService.MarkPaid)
}

func (h *PayrollHandler) advance(c *drift.Context, fallback string,
	step func(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.PayrollBatch, error),
) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "payroll batch")
	if !ok {
		return
	}

	batch, err := step(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, fallback)
		return
	}

	_ = c.JSON(200, batch)
}
