package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentCols = []string{"id", "tenant_id", "invoice_id", "number", "amount", "method", "reference", "paid_at", "recorded_by", "created_at"}

func setupPaymentService(t *testing.T) (*PaymentService, *recordingNotifier, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	n := &recordingNotifier{}
	svc := NewPaymentService(&database.DB{Pool: mock}, n)
	svc.now = func() time.Time { return fixedNow }
	return svc, n, mock
}

func expectPayment(mock pgxmock.PgxPoolIface, actor *models.TenantUser, invoiceID, creator uuid.UUID, amount, paidSoFar float64) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT number, total, status, created_by, currency FROM invoices`).
		WithArgs(invoiceID, actor.TenantID).
		WillReturnRows(pgxmock.NewRows([]string{"number", "total", "status", "created_by", "currency"}).
			AddRow("INV-00003", 330.0, models.InvoiceSent, creator, "USD"))
	mock.ExpectQuery(`INSERT INTO document_counters`).
		WithArgs(actor.TenantID, SeqPayment).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(2)))
	mock.ExpectQuery(`INSERT INTO payments`).
		WithArgs(actor.TenantID, invoiceID, "PMT-00002", amount, defaultPaymentMethod, "", fixedNow, actor.UserID).
		WillReturnRows(pgxmock.NewRows(paymentCols).
			AddRow(uuid.New(), actor.TenantID, invoiceID, "PMT-00002", amount, defaultPaymentMethod, "", fixedNow, actor.UserID, fixedNow))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM payments`).
		WithArgs(invoiceID).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(paidSoFar))
}

func TestPaymentService_Record_SettlesInvoice(t *testing.T) {
	svc, notifier, mock := setupPaymentService(t)
	actor := member(uuid.New(), models.RoleAdmin)
	invoiceID, creator := uuid.New(), uuid.New()

	expectPayment(mock, actor, invoiceID, creator, 130, 330)
	mock.ExpectExec(`UPDATE invoices SET status = \$1`).
		WithArgs(models.InvoicePaid, invoiceID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	p, err := svc.Record(context.Background(), actor, invoiceID, PaymentInput{Amount: 130})

	require.NoError(t, err)
	assert.Equal(t, "PMT-00002", p.Number)
	assert.Equal(t, []string{models.NotificationPaymentReceived}, notifier.types())
	assert.Equal(t, creator, notifier.calls[0].RecipientID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentService_Record_PartialPayment(t *testing.T) {
	svc, _, mock := setupPaymentService(t)
	actor := member(uuid.New(), models.RoleAdmin)
	invoiceID := uuid.New()

	expectPayment(mock, actor, invoiceID, uuid.New(), 100, 100)
	mock.ExpectCommit()

	_, err := svc.Record(context.Background(), actor, invoiceID, PaymentInput{Amount: 100})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentService_Record_Validation(t *testing.T) {
	svc, _, mock := setupPaymentService(t)
	actor := member(uuid.New(), models.RoleAdmin)
	invoiceID := uuid.New()

	_, err := svc.Record(context.Background(), actor, invoiceID, PaymentInput{Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM invoices`).
		WithArgs(invoiceID, actor.TenantID).
		WillReturnRows(pgxmock.NewRows([]string{"number", "total", "status", "created_by", "currency"}).
			AddRow("INV-00003", 330.0, models.InvoiceVoid, uuid.New(), "USD"))
	mock.ExpectRollback()

	_, err = svc.Record(context.Background(), actor, invoiceID, PaymentInput{Amount: 10})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}
