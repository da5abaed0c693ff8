package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/text/currency"
)

const invoiceColumns = `id, tenant_id, project_id, number, client_name, status, period_start, period_end,
	issue_date, due_date, subtotal, tax_rate, tax_amount, total, currency, notes, created_by, created_at, updated_at`

const defaultCurrency = "USD"

type GenerateInvoiceInput struct {
	ProjectID   uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	DueDate     time.Time
	TaxRate     float64
	Currency    string
	Notes       string
}

type InvoiceFilter struct {
	Status    string
	ProjectID *uuid.UUID
}

// invoiceTransitions lists the statuses reachable from each status through a
// manual update. Paid and void are terminal.
var invoiceTransitions = map[string][]string{
	models.InvoiceDraft: {models.InvoiceSent, models.InvoicePaid, models.InvoiceVoid},
	models.InvoiceSent:  {models.InvoiceDraft, models.InvoicePaid, models.InvoiceVoid},
}

func canTransitionInvoice(from, to string) bool {
	for _, s := range invoiceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type InvoiceService struct {
	db  *database.DB
	now func() time.Time
}

func NewInvoiceService(db *database.DB) *InvoiceService {
	return &InvoiceService{db: db, now: time.Now}
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.ProjectID, &inv.Number, &inv.ClientName, &inv.Status,
		&inv.PeriodStart, &inv.PeriodEnd, &inv.IssueDate, &inv.DueDate, &inv.Subtotal, &inv.TaxRate,
		&inv.TaxAmount, &inv.Total, &inv.Currency, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

type invoiceLine struct {
	taskID  *uuid.UUID
	title   string
	minutes int
}

// groupInvoiceLines sums minutes per task, keeping the order in which tasks
// first appear. Entries without a task share one line.
func groupInvoiceLines(claimed []invoiceLine) []invoiceLine {
	index := make(map[uuid.UUID]int)
	var lines []invoiceLine
	for _, c := range claimed {
		key := uuid.Nil
		if c.taskID != nil {
			key = *c.taskID
		}
		if i, ok := index[key]; ok {
			lines[i].minutes += c.minutes
			continue
		}
		index[key] = len(lines)
		if c.taskID == nil {
			c.title = "General work"
		}
		lines = append(lines, c)
	}
	return lines
}

// Generate bills the project's billable, finished and uninvoiced entries that
// started inside the period. The entries are claimed by the same statement
// that marks them invoiced, so concurrent runs never bill an entry twice.
func (s *InvoiceService) Generate(ctx context.Context, actor *models.TenantUser, in GenerateInvoiceInput) (*models.Invoice, error) {
	if in.PeriodEnd.Before(in.PeriodStart) {
		return nil, ErrInvalidPeriod
	}
	code := strings.ToUpper(in.Currency)
	if code == "" {
		code = defaultCurrency
	}
	if _, err := currency.ParseISO(code); err != nil {
		return nil, ErrInvalidCurrency
	}

	var invoice *models.Invoice
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var clientName string
		var rate float64
		err := tx.QueryRow(ctx, `
			SELECT client_name, hourly_rate FROM projects WHERE id = $1 AND tenant_id = $2
		`, in.ProjectID, actor.TenantID).Scan(&clientName, &rate)
		if err != nil {
			return notFound(err, ErrProjectNotFound)
		}

		number, err := nextNumber(ctx, tx, actor.TenantID, SeqInvoice)
		if err != nil {
			return err
		}

		var invoiceID uuid.UUID
		err = tx.QueryRow(ctx, `
			INSERT INTO invoices (tenant_id, project_id, number, client_name, status, period_start, period_end,
				issue_date, due_date, tax_rate, currency, notes, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		`, actor.TenantID, in.ProjectID, number, clientName, models.InvoiceDraft, in.PeriodStart, in.PeriodEnd,
			s.now(), in.DueDate, in.TaxRate, code, in.Notes, actor.UserID).Scan(&invoiceID)
		if err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		rows, err := tx.Query(ctx, `
			UPDATE time_entries SET invoice_id = $1, updated_at = NOW()
			WHERE tenant_id = $2 AND project_id = $3 AND billable AND ended_at IS NOT NULL
			  AND invoice_id IS NULL AND started_at >= $4 AND started_at < $5
			RETURNING task_id, COALESCE((SELECT t.title FROM tasks t WHERE t.id = time_entries.task_id), ''), duration_minutes
		`, invoiceID, actor.TenantID, in.ProjectID, in.PeriodStart, in.PeriodEnd.AddDate(0, 0, 1))
		if err != nil {
			return fmt.Errorf("failed to claim time entries: %w", err)
		}
		var claimed []invoiceLine
		for rows.Next() {
			var l invoiceLine
			if err := rows.Scan(&l.taskID, &l.title, &l.minutes); err != nil {
				rows.Close()
				return err
			}
			claimed = append(claimed, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(claimed) == 0 {
			return ErrNothingToInvoice
		}

		var subtotal float64
		var items []models.InvoiceItem
		for _, l := range groupInvoiceLines(claimed) {
			item := models.InvoiceItem{
				InvoiceID:   invoiceID,
				TaskID:      l.taskID,
				Description: l.title,
				Quantity:    models.MinutesToHours(l.minutes),
				UnitPrice:   rate,
			}
			item.Amount = models.RoundMoney(item.Quantity * item.UnitPrice)
			err := tx.QueryRow(ctx, `
				INSERT INTO invoice_items (invoice_id, task_id, description, quantity, unit_price, amount)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, invoiceID, item.TaskID, item.Description, item.Quantity, item.UnitPrice, item.Amount).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("failed to create invoice item: %w", err)
			}
			subtotal += item.Amount
			items = append(items, item)
		}

		subtotal = models.RoundMoney(subtotal)
		tax := models.RoundMoney(subtotal * in.TaxRate / 100)
		invoice, err = scanInvoice(tx.QueryRow(ctx, `
			UPDATE invoices SET subtotal = $1, tax_amount = $2, total = $3, updated_at = NOW()
			WHERE id = $4
			RETURNING `+invoiceColumns,
			subtotal, tax, models.RoundMoney(subtotal+tax), invoiceID))
		if err != nil {
			return fmt.Errorf("failed to total invoice: %w", err)
		}
		invoice.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *InvoiceService) List(ctx context.Context, tenantID uuid.UUID, f InvoiceFilter, page models.Page) ([]models.Invoice, int, error) {
	const where = `
		WHERE tenant_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3::uuid IS NULL OR project_id = $3)`

	var total int
	err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, tenantID, f.Status, f.ProjectID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices`+where+`
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, tenantID, f.Status, f.ProjectID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var list []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *inv)
	}
	return list, total, rows.Err()
}

// Get loads the invoice with its items.
func (s *InvoiceService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error) {
	inv, err := scanInvoice(s.db.Pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, invoice_id, task_id, description, quantity, unit_price, amount
		FROM invoice_items WHERE invoice_id = $1 ORDER BY description
	`, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.TaskID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, it)
	}
	return inv, rows.Err()
}

// UpdateStatus applies a manual status change. Voiding releases the billed
// entries so they can be invoiced again.
func (s *InvoiceService) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string) (*models.Invoice, error) {
	if !models.ValidInvoiceStatus(status) {
		return nil, ErrInvalidStatus
	}

	var inv *models.Invoice
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `
			SELECT status FROM invoices WHERE id = $1 AND tenant_id = $2 FOR UPDATE
		`, id, tenantID).Scan(&current)
		if err != nil {
			return notFound(err, ErrInvoiceNotFound)
		}
		if !canTransitionInvoice(current, status) {
			return ErrInvalidTransition
		}

		if status == models.InvoiceVoid {
			if _, err := tx.Exec(ctx, `UPDATE time_entries SET invoice_id = NULL, updated_at = NOW() WHERE invoice_id = $1`, id); err != nil {
				return fmt.Errorf("failed to release time entries: %w", err)
			}
		}

		inv, err = scanInvoice(tx.QueryRow(ctx, `
			UPDATE invoices SET status = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING `+invoiceColumns,
			status, id))
		if err != nil {
			return fmt.Errorf("failed to update invoice status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}
