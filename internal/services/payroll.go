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

const payrollColumns = `id, tenant_id, number, period_start, period_end, status, total_hours, total_amount,
	created_by, approved_by, approved_at, paid_at, created_at, updated_at`

type PayrollService struct {
	db  *database.DB
	now func() time.Time
}

func NewPayrollService(db *database.DB) *PayrollService {
	return &PayrollService{db: db, now: time.Now}
}

func scanPayroll(row pgx.Row) (*models.PayrollBatch, error) {
	var b models.PayrollBatch
	err := row.Scan(&b.ID, &b.TenantID, &b.Number, &b.PeriodStart, &b.PeriodEnd, &b.Status, &b.TotalHours,
		&b.TotalAmount, &b.CreatedBy, &b.ApprovedBy, &b.ApprovedAt, &b.PaidAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func payrollLockKey(tenantID uuid.UUID) string {
	return "payroll:" + tenantID.String()
}

// Generate creates a draft batch paying every member's billable finished time
// in the period at the member's hourly rate. The overlap check runs under a
// transaction-scoped advisory lock on the tenant, so concurrent generations
// for overlapping periods cannot both insert a batch.
func (s *PayrollService) Generate(ctx context.Context, actor *models.TenantUser, periodStart, periodEnd time.Time) (*models.PayrollBatch, error) {
	if periodEnd.Before(periodStart) {
		return nil, ErrInvalidPeriod
	}

	var batch *models.PayrollBatch
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, payrollLockKey(actor.TenantID))
		if err != nil {
			return fmt.Errorf("failed to lock payroll: %w", err)
		}

		var overlap bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM payroll_batches
				WHERE tenant_id = $1 AND period_start <= $3 AND period_end >= $2
			)
		`, actor.TenantID, periodStart, periodEnd).Scan(&overlap)
		if err != nil {
			return fmt.Errorf("failed to check payroll periods: %w", err)
		}
		if overlap {
			return ErrPayrollOverlap
		}

		rows, err := tx.Query(ctx, `
			SELECT e.user_id, SUM(e.duration_minutes), tu.hourly_rate
			FROM time_entries e
			INNER JOIN tenant_users tu ON tu.tenant_id = e.tenant_id AND tu.user_id = e.user_id
			WHERE e.tenant_id = $1 AND e.billable AND e.ended_at IS NOT NULL
			  AND e.started_at >= $2 AND e.started_at < $3
			GROUP BY e.user_id, tu.hourly_rate
			ORDER BY e.user_id
		`, actor.TenantID, periodStart, periodEnd.AddDate(0, 0, 1))
		if err != nil {
			return fmt.Errorf("failed to aggregate hours: %w", err)
		}
		var items []models.PayrollItem
		for rows.Next() {
			var it models.PayrollItem
			var minutes int
			if err := rows.Scan(&it.UserID, &minutes, &it.HourlyRate); err != nil {
				rows.Close()
				return err
			}
			it.Hours = models.MinutesToHours(minutes)
			it.Amount = models.RoundMoney(it.Hours * it.HourlyRate)
			items = append(items, it)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrNothingToPay
		}

		number, err := nextNumber(ctx, tx, actor.TenantID, SeqPayroll)
		if err != nil {
			return err
		}

		var batchID uuid.UUID
		err = tx.QueryRow(ctx, `
			INSERT INTO payroll_batches (tenant_id, number, period_start, period_end, status, created_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, actor.TenantID, number, periodStart, periodEnd, models.PayrollDraft, actor.UserID).Scan(&batchID)
		if err != nil {
			return fmt.Errorf("failed to create payroll batch: %w", err)
		}

		var hours, amount float64
		for i := range items {
			items[i].BatchID = batchID
			err := tx.QueryRow(ctx, `
				INSERT INTO payroll_items (batch_id, user_id, hours, hourly_rate, amount)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, batchID, items[i].UserID, items[i].Hours, items[i].HourlyRate, items[i].Amount).Scan(&items[i].ID)
			if err != nil {
				return fmt.Errorf("failed to create payroll item: %w", err)
			}
			hours += items[i].Hours
			amount += items[i].Amount
		}

		batch, err = scanPayroll(tx.QueryRow(ctx, `
			UPDATE payroll_batches SET total_hours = $1, total_amount = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING `+payrollColumns,
			models.RoundMoney(hours), models.RoundMoney(amount), batchID))
		if err != nil {
			return fmt.Errorf("failed to total payroll batch: %w", err)
		}
		batch.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *PayrollService) List(ctx context.Context, tenantID uuid.UUID, status string, page models.Page) ([]models.PayrollBatch, int, error) {
	var total int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM payroll_batches WHERE tenant_id = $1 AND ($2 = '' OR status = $2)
	`, tenantID, status).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll batches: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+payrollColumns+` FROM payroll_batches
		WHERE tenant_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY period_start DESC
		LIMIT $3 OFFSET $4
	`, tenantID, status, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll batches: %w", err)
	}
	defer rows.Close()

	var list []models.PayrollBatch
	for rows.Next() {
		b, err := scanPayroll(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *b)
	}
	return list, total, rows.Err()
}

func (s *PayrollService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.PayrollBatch, error) {
	b, err := scanPayroll(s.db.Pool.QueryRow(ctx, `
		SELECT `+payrollColumns+` FROM payroll_batches WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
	if err != nil {
		return nil, notFound(err, ErrPayrollNotFound)
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, batch_id, user_id, hours, hourly_rate, amount
		FROM payroll_items WHERE batch_id = $1 ORDER BY amount DESC
	`, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.PayrollItem
		if err := rows.Scan(&it.ID, &it.BatchID, &it.UserID, &it.Hours, &it.HourlyRate, &it.Amount); err != nil {
			return nil, err
		}
		b.Items = append(b.Items, it)
	}
	return b, rows.Err()
}

func (s *PayrollService) Approve(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.PayrollBatch, error) {
	return s.advance(ctx, actor.TenantID, id, models.PayrollDraft, `
		UPDATE payroll_batches SET status = $1, approved_by = $2, approved_at = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+payrollColumns,
		models.PayrollApproved, actor.UserID, s.now(), id)
}

func (s *PayrollService) MarkPaid(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.PayrollBatch, error) {
	return s.advance(ctx, actor.TenantID, id, models.PayrollApproved, `
		UPDATE payroll_batches SET status = $1, paid_at = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+payrollColumns,
		models.PayrollPaid, s.now(), id)
}

// advance runs update on the locked batch when it is in the from status.
func (s *PayrollService) advance(ctx context.Context, tenantID, id uuid.UUID, from, update string, args ...any) (*models.PayrollBatch, error) {
	var batch *models.PayrollBatch
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `
			SELECT status FROM payroll_batches WHERE id = $1 AND tenant_id = $2 FOR UPDATE
		`, id, tenantID).Scan(&status)
		if err != nil {
			return notFound(err, ErrPayrollNotFound)
		}
		if status != from {
			return ErrInvalidTransition
		}
		batch, err = scanPayroll(tx.QueryRow(ctx, update, args...))
		if err != nil {
			return fmt.Errorf("failed to update payroll batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}
