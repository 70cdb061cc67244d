package pgsql

import (
	"testing"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptFilterQuery(t *testing.T) {
	ds := dialect.From("transaction_logs").Select(logColumns...).
		Where(
			goqu.C("action_type").Eq(string(domain.ActionFinePaid)),
			receiptExpr.Eq("RCP-1"),
		)
	query, args, err := ds.Prepared(true).ToSQL()
	require.NoError(t, err)

	assert.Contains(t, query, `details ->> $`)
	assert.Contains(t, query, `"action_type" = $`)
	assert.ElementsMatch(t, []any{"FINE_PAID", domain.DetailReceiptID, "RCP-1"}, args)
}
