package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
)

// TransactionLogReader defines read operations over the append-only history
type TransactionLogReader interface {
	// FindEntryByID retrieves a single history entry.
	FindEntryByID(ctx context.Context, entryID string) (*domain.TransactionLogEntry, error)

	// ListEntries searches history newest first using token-based pagination.
	ListEntries(ctx context.Context, filter domain.HistoryFilter, limit int, nextToken *string) ([]domain.TransactionLogEntry, *string, error)

	// FindEntriesByReceiptID returns the FINE_PAID entries carrying a receipt id, oldest first.
	FindEntriesByReceiptID(ctx context.Context, receiptID string) ([]domain.TransactionLogEntry, error)

	// CountEntries counts entries of one action type for a (student, copy) pair after since.
	CountEntries(ctx context.Context, action domain.ActionType, studentID, copyID string, since time.Time) (int, error)
}

// TransactionLogWriter appends to history. Entries are never updated or deleted.
type TransactionLogWriter interface {
	// AppendEntry writes a new immutable entry.
	AppendEntry(ctx context.Context, entry domain.TransactionLogEntry) error
}

// TransactionLogRepositoryFacade combines all history repository interfaces
type TransactionLogRepositoryFacade interface {
	TransactionLogReader
	TransactionLogWriter
}
