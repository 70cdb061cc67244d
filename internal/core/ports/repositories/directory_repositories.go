package repositories

import (
	"context"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
)

// BorrowerReader is the read-only borrower directory.
type BorrowerReader interface {
	// FindBorrowerByID retrieves a borrower record.
	FindBorrowerByID(ctx context.Context, borrowerID string) (*domain.Borrower, error)
}

// SettingsReader is the read-only key/value settings source backing policies.
type SettingsReader interface {
	// GetSetting returns the raw value for key and whether it was set.
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// AuditRepository stores audit records produced by the audit sink.
type AuditRepository interface {
	SaveAuditEntry(ctx context.Context, entry domain.AuditEntry) error
}
