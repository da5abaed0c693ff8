package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvoiceDraft = "draft"
	InvoiceSent  = "sent"
	InvoicePaid  = "paid"
	InvoiceVoid  = "void"
)

type Invoice struct {
	ID          uuid.UUID     `json:"id"`
	TenantID    uuid.UUID     `json:"tenant_id"`
	ProjectID   uuid.UUID     `json:"project_id"`
	Number      string        `json:"number"`
	ClientName  string        `json:"client_name"`
	Status      string        `json:"status"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
	IssueDate   time.Time     `json:"issue_date"`
	DueDate     time.Time     `json:"due_date"`
	Subtotal    float64       `json:"subtotal"`
	TaxRate     float64       `json:"tax_rate"`
	TaxAmount   float64       `json:"tax_amount"`
	Total       float64       `json:"total"`
	Currency    string        `json:"currency"`
	Notes       string        `json:"notes"`
	CreatedBy   uuid.UUID     `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Items       []InvoiceItem `json:"items,omitempty"`
}

type InvoiceItem struct {
	ID          uuid.UUID  `json:"id"`
	InvoiceID   uuid.UUID  `json:"invoice_id"`
	TaskID      *uuid.UUID `json:"task_id,omitempty"`
	Description string     `json:"description"`
	Quantity    float64    `json:"quantity"`
	UnitPrice   float64    `json:"unit_price"`
	Amount      float64    `json:"amount"`
}

type Payment struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	InvoiceID  uuid.UUID `json:"invoice_id"`
	Number     string    `json:"number"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"`
	Reference  string    `json:"reference"`
	PaidAt     time.Time `json:"paid_at"`
	RecordedBy uuid.UUID `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func ValidInvoiceStatus(s string) bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceVoid:
		return true
	}
	return false
}

// RoundMoney rounds to cents.
func RoundMoney(v float64) float64 {
	if v < 0 {
		return -RoundMoney(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
