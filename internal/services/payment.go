package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, tenant_id, invoice_id, number, amount, method, reference, paid_at, recorded_by, created_at`

const defaultPaymentMethod = "bank_transfer"

type PaymentInput struct {
	Amount    float64
	Method    string
	Reference string
	PaidAt    *time.Time
}

type PaymentService struct {
	db       *database.DB
	notifier Notifier
	now      func() time.Time
}

func NewPaymentService(db *database.DB, notifier Notifier) *PaymentService {
	return &PaymentService{db: db, notifier: notifier, now: time.Now}
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.TenantID, &p.InvoiceID, &p.Number, &p.Amount, &p.Method, &p.Reference,
		&p.PaidAt, &p.RecordedBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Record stores a payment against the invoice and marks the invoice paid once
// the payments cover its total.
func (s *PaymentService) Record(ctx context.Context, actor *models.TenantUser, invoiceID uuid.UUID, in PaymentInput) (*models.Payment, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if in.Method == "" {
		in.Method = defaultPaymentMethod
	}
	paidAt := s.now()
	if in.PaidAt != nil {
		paidAt = *in.PaidAt
	}

	var payment *models.Payment
	var inv struct {
		number    string
		total     float64
		status    string
		createdBy uuid.UUID
		currency  string
	}
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT number, total, status, created_by, currency FROM invoices
			WHERE id = $1 AND tenant_id = $2 FOR UPDATE
		`, invoiceID, actor.TenantID).Scan(&inv.number, &inv.total, &inv.status, &inv.createdBy, &inv.currency)
		if err != nil {
			return notFound(err, ErrInvoiceNotFound)
		}
		if inv.status == models.InvoicePaid || inv.status == models.InvoiceVoid {
			return ErrInvalidTransition
		}

		number, err := nextNumber(ctx, tx, actor.TenantID, SeqPayment)
		if err != nil {
			return err
		}

		payment, err = scanPayment(tx.QueryRow(ctx, `
			INSERT INTO payments (tenant_id, invoice_id, number, amount, method, reference, paid_at, recorded_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+paymentColumns,
			actor.TenantID, invoiceID, number, models.RoundMoney(in.Amount), in.Method, in.Reference, paidAt, actor.UserID))
		if err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		var paid float64
		err = tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`, invoiceID).Scan(&paid)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}
		if paid >= inv.total {
			_, err = tx.Exec(ctx, `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`, models.InvoicePaid, invoiceID)
			if err != nil {
				return fmt.Errorf("failed to mark invoice paid: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyBestEffort(ctx, NotifyParams{
		TenantID:    actor.TenantID,
		RecipientID: inv.createdBy,
		ActorID:     actor.UserID,
		Type:        models.NotificationPaymentReceived,
		Title:       "Payment received",
		Message:     fmt.Sprintf("%s received for %s", FormatMoney(inv.currency, payment.Amount), inv.number),
		ActionURL:   fmt.Sprintf("/invoices/%s", invoiceID),
	})
	return payment, nil
}

func (s *PaymentService) List(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]models.Payment, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE invoice_id = $1 AND tenant_id = $2
		ORDER BY paid_at
	`, invoiceID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var list []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}
