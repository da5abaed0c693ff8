package handlers

import (
	"bytes"
	"strconv"
	"time"

	"github.com/dimitrije/agency-api/internal/middleware"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type InvoiceHandler struct {
	invoiceService InvoiceServiceInterface
	paymentService PaymentServiceInterface
}

func NewInvoiceHandler(invoiceService InvoiceServiceInterface, paymentService PaymentServiceInterface) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, paymentService: paymentService}
}

func (h *InvoiceHandler) Generate(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	var req dto.GenerateInvoiceRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() {
		c.BadRequest("period_start and period_end are required")
		return
	}
	if req.TaxRate < 0 || req.TaxRate > 100 {
		c.BadRequest("tax_rate must be between 0 and 100")
		return
	}

	due := req.DueDate.Time
	if due.IsZero() {
		due = req.PeriodEnd.AddDate(0, 0, 30)
	}

	inv, err := h.invoiceService.Generate(c.Request.Context(), actor, services.GenerateInvoiceInput{
		ProjectID:   req.ProjectID,
		PeriodStart: req.PeriodStart.Time,
		PeriodEnd:   req.PeriodEnd.Time,
		DueDate:     due,
		TaxRate:     req.TaxRate,
		Currency:    req.Currency,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err, "failed to generate invoice")
		return
	}

	_ = c.JSON(201, inv)
}

func (h *InvoiceHandler) List(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	var f services.InvoiceFilter
	f.Status = c.QueryParam("status")
	if f.Status != "" && !models.ValidInvoiceStatus(f.Status) {
		c.BadRequest("invalid status filter")
		return
	}
	if f.ProjectID, ok = queryUUID(c, "project_id"); !ok {
		return
	}

	page := pageFromQuery(c)
	invoices, total, err := h.invoiceService.List(c.Request.Context(), actor.TenantID, f, page)
	if err != nil {
		respondError(c, err, "failed to list invoices")
		return
	}

	_ = c.JSON(200, listResponse(invoices, page, total))
}

func (h *InvoiceHandler) Get(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	inv, err := h.invoiceService.Get(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		respondError(c, err, "failed to load invoice")
		return
	}

	_ = c.JSON(200, inv)
}

func (h *InvoiceHandler) UpdateStatus(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	var req dto.UpdateInvoiceStatusRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if !models.ValidInvoiceStatus(req.Status) {
		c.BadRequest("status must be one of draft, sent, paid, void")
		return
	}

	inv, err := h.invoiceService.UpdateStatus(c.Request.Context(), actor.TenantID, id, req.Status)
	if err != nil {
		respondError(c, err, "failed to update invoice")
		return
	}

	_ = c.JSON(200, inv)
}

// PDF streams the rendered invoice as application/pdf.
func (h *InvoiceHandler) PDF(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	inv, err := h.invoiceService.Get(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		respondError(c, err, "failed to load invoice")
		return
	}

	issuer := ""
	if t := middleware.GetTenant(c); t != nil {
		issuer = t.Name
	}

	var buf bytes.Buffer
	if err := services.RenderInvoicePDF(&buf, inv, issuer); err != nil {
		respondError(c, err, "failed to render invoice")
		return
	}

	header := c.Response.Header()
	header.Set("Content-Type", "application/pdf")
	header.Set("Content-Disposition", `attachment; filename="`+inv.Number+`.pdf"`)
	header.Set("Content-Length", strconv.Itoa(buf.Len()))
	c.Response.WriteHeader(200)
	_, _ = c.Response.Write(buf.Bytes())
	c.Abort()
}

func (h *InvoiceHandler) RecordPayment(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.PaidAt != nil && req.PaidAt.After(time.Now().Add(24*time.Hour)) {
		c.BadRequest("paid_at must not be in the future")
		return
	}

	payment, err := h.paymentService.Record(c.Request.Context(), actor, id, services.PaymentInput{
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		PaidAt:    req.PaidAt,
	})
	if err != nil {
		respondError(c, err, "failed to record payment")
		return
	}

	_ = c.JSON(201, payment)
}

func (h *InvoiceHandler) ListPayments(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "invoice")
	if !ok {
		return
	}

	payments, err := h.paymentService.List(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		respondError(c, err, "failed to list payments")
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}

	_ = c.JSON(200, payments)
}
