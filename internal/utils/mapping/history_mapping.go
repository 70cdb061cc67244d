package mapping

import (
	"fmt"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/SscSPs/library_circulation_app/internal/models"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToModelTransactionLog converts a history entry to its row form, encoding Details
// as JSON. Nil details are stored as an empty object.
func ToModelTransactionLog(d domain.TransactionLogEntry) (models.TransactionLog, error) {
	details := d.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return models.TransactionLog{}, fmt.Errorf("encode details of entry %s: %w", d.EntryID, err)
	}
	return models.TransactionLog{
		EntryID:              d.EntryID,
		SessionID:            d.SessionID,
		ActionType:           string(d.ActionType),
		StudentID:            d.StudentID,
		StudentNameSnapshot:  d.StudentNameSnapshot,
		StudentRegNoSnapshot: d.StudentRegNoSnapshot,
		CopyID:               d.CopyID,
		BookTitleSnapshot:    d.BookTitleSnapshot,
		BookISBNSnapshot:     d.BookISBNSnapshot,
		PerformedBy:          d.PerformedBy,
		LoggedAt:             d.Timestamp,
		Details:              raw,
	}, nil
}

// ToDomainTransactionLog converts a row back into a history entry. JSON numbers in
// Details decode as float64.
func ToDomainTransactionLog(m models.TransactionLog) (domain.TransactionLogEntry, error) {
	details := map[string]any{}
	if len(m.Details) > 0 {
		if err := json.Unmarshal(m.Details, &details); err != nil {
			return domain.TransactionLogEntry{}, fmt.Errorf("decode details of entry %s: %w", m.EntryID, err)
		}
	}
	return domain.TransactionLogEntry{
		EntryID:              m.EntryID,
		SessionID:            m.SessionID,
		ActionType:           domain.ActionType(m.ActionType),
		StudentID:            m.StudentID,
		StudentNameSnapshot:  m.StudentNameSnapshot,
		StudentRegNoSnapshot: m.StudentRegNoSnapshot,
		CopyID:               m.CopyID,
		BookTitleSnapshot:    m.BookTitleSnapshot,
		BookISBNSnapshot:     m.BookISBNSnapshot,
		PerformedBy:          m.PerformedBy,
		Timestamp:            m.LoggedAt,
		Details:              details,
	}, nil
}

// ToModelAuditLog converts an audit entry to its row form.
func ToModelAuditLog(d domain.AuditEntry) (models.AuditLog, error) {
	var raw []byte
	if d.Metadata != nil {
		var err error
		if raw, err = json.Marshal(d.Metadata); err != nil {
			return models.AuditLog{}, fmt.Errorf("encode audit metadata: %w", err)
		}
	}
	return models.AuditLog{
		AuditID:     d.AuditID,
		ActorID:     d.ActorID,
		ActionType:  d.ActionType,
		Module:      d.Module,
		Description: d.Description,
		Metadata:    raw,
		CreatedAt:   d.CreatedAt,
	}, nil
}
