package mapping

import (
	"testing"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionLogDetails(t *testing.T) {
	student := "stu-1"
	entry := domain.TransactionLogEntry{
		EntryID:    "e-1",
		ActionType: domain.ActionFinePaid,
		StudentID:  &student,
		Timestamp:  time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
		Details: map[string]any{
			domain.DetailReceiptID: "RCP-20260302-0A1B2C3D",
			domain.DetailAmount:    "3.00",
			"renewal_count":        2,
		},
	}

	m, err := ToModelTransactionLog(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"receipt_id":"RCP-20260302-0A1B2C3D","amount":"3.00","renewal_count":2}`, string(m.Details))

	back, err := ToDomainTransactionLog(m)
	require.NoError(t, err)
	assert.Equal(t, "RCP-20260302-0A1B2C3D", back.DetailString(domain.DetailReceiptID))
	assert.Equal(t, float64(2), back.Details["renewal_count"])
	assert.Equal(t, entry.Timestamp, back.Timestamp)
	assert.Equal(t, "stu-1", *back.StudentID)
}

func TestTransactionLogNilDetails(t *testing.T) {
	m, err := ToModelTransactionLog(domain.TransactionLogEntry{EntryID: "e-2"})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(m.Details))

	back, err := ToDomainTransactionLog(m)
	require.NoError(t, err)
	assert.NotNil(t, back.Details)
	assert.Empty(t, back.Details)
}

func TestTransactionLogCorruptDetails(t *testing.T) {
	m, err := ToModelTransactionLog(domain.TransactionLogEntry{EntryID: "e-3"})
	require.NoError(t, err)
	m.Details = []byte("{not json")
	_, err = ToDomainTransactionLog(m)
	assert.ErrorContains(t, err, "e-3")
}

func TestToModelFineRoundsAmount(t *testing.T) {
	m := ToModelFine(domain.Fine{FineID: "f-1", Amount: decimal.RequireFromString("10.005"), Status: domain.FineUnpaid})
	assert.Equal(t, "10.01", m.Amount.StringFixed(2))
	assert.Equal(t, "Unpaid", m.Status)
	assert.Equal(t, domain.FineUnpaid, ToDomainFine(m).Status)
}
