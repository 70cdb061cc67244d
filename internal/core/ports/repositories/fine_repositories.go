package repositories

import (
	"context"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// FineReader defines read operations for fines
type FineReader interface {
	// FindFineByID retrieves a fine by its identifier.
	FindFineByID(ctx context.Context, fineID string) (*domain.Fine, error)

	// SumUnpaidFinesByStudent totals the Unpaid fines of one borrower.
	SumUnpaidFinesByStudent(ctx context.Context, studentID string) (decimal.Decimal, error)

	// ListFines returns fines newest first using token-based pagination.
	ListFines(ctx context.Context, filter domain.FineFilter, limit int, nextToken *string) ([]domain.Fine, *string, error)
}

// FineWriter defines write operations for fines
type FineWriter interface {
	// FindFineByIDForUpdate retrieves and locks a fine for the rest of the unit of work.
	FindFineByIDForUpdate(ctx context.Context, fineID string) (*domain.Fine, error)

	// SaveFine inserts a new fine.
	SaveFine(ctx context.Context, fine domain.Fine) error

	// UpdateFine persists status, payment, amount and remark fields of an existing fine.
	UpdateFine(ctx context.Context, fine domain.Fine) error

	// DetachStudent nulls the borrower reference on every fine of studentID and marks the
	// name snapshot as deleted. It returns the number of fines touched.
	DetachStudent(ctx context.Context, studentID string) (int64, error)
}

// FineRepositoryFacade combines all fine-related repository interfaces
type FineRepositoryFacade interface {
	FineReader
	FineWriter
}
