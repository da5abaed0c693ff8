package services

import (
	"context"
	"fmt"

	"github.com/dimitrije/agency-api/internal/database"
	"github.com/google/uuid"
)

// Document kinds and the prefixes of their human-readable numbers.
const (
	SeqInvoice = "invoice"
	SeqPayment = "payment"
	SeqPayroll = "payroll"
)

var seqPrefixes = map[string]string{
	SeqInvoice: "INV",
	SeqPayment: "PMT",
	SeqPayroll: "PAY",
}

// nextNumber increments the tenant's counter for kind and returns the
// formatted number. The upsert holds the row lock until the surrounding
// transaction ends, so concurrent callers are serialized.
func nextNumber(ctx context.Context, q database.Querier, tenantID uuid.UUID, kind string) (string, error) {
	prefix, ok := seqPrefixes[kind]
	if !ok {
		return "", fmt.Errorf("unknown document kind %q", kind)
	}

	var value int64
	err := q.QueryRow(ctx, `
		INSERT INTO document_counters (tenant_id, kind, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, kind) DO UPDATE SET value = document_counters.value + 1
		RETURNING value
	`, tenantID, kind).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("failed to allocate %s number: %w", kind, err)
	}

	return FormatNumber(prefix, value), nil
}

func FormatNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%05d", prefix, n)
}
