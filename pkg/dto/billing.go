package dto

import (
	"time"

	"github.com/google/uuid"
)

type GenerateInvoiceRequest struct {
	ProjectID   uuid.UUID `json:"project_id"`
	PeriodStart Date      `json:"period_start"`
	PeriodEnd   Date      `json:"period_end"`
	DueDate     Date      `json:"due_date"`
	TaxRate     float64   `json:"tax_rate"`
	Currency    string    `json:"currency"`
	Notes       string    `json:"notes"`
}

type UpdateInvoiceStatusRequest struct {
	Status string `json:"status"`
}

type RecordPaymentRequest struct {
	Amount    float64    `json:"amount"`
	Method    string     `json:"method"`
	Reference string     `json:"reference"`
	PaidAt    *time.Time `json:"paid_at"`
}

type GeneratePayrollRequest struct {
	PeriodStart Date `json:"period_start"`
	PeriodEnd   Date `json:"period_end"`
}
