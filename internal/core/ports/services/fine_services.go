package services

import (
	"context"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/SscSPs/library_circulation_app/internal/dto"
)

// FineReaderSvc defines read operations for fines
type FineReaderSvc interface {
	GetFine(ctx context.Context, fineID string) (*domain.Fine, error)
	ListFines(ctx context.Context, params dto.ListFinesParams) (*dto.ListFinesResponse, error)
}

// FineWriterSvc defines the fine lifecycle operations
type FineWriterSvc interface {
	// CollectFines pays every Unpaid fine in the batch under one shared receipt.
	CollectFines(ctx context.Context, req dto.CollectFinesRequest, actorID string) (*domain.CollectionResult, error)

	// WaiveFine waives a fine with a reason.
	WaiveFine(ctx context.Context, fineID string, req dto.WaiveFineRequest, actorID string) (*domain.Fine, error)

	// EditFine changes a fine's amount.
	EditFine(ctx context.Context, fineID string, req dto.EditFineRequest, actorID string) (*domain.Fine, error)

	// DetachBorrower keeps a removed borrower's fines while dropping the reference.
	DetachBorrower(ctx context.Context, borrowerID string, actorID string) (int64, error)
}

// FineSvcFacade combines all fine service interfaces
type FineSvcFacade interface {
	FineReaderSvc
	FineWriterSvc
}
