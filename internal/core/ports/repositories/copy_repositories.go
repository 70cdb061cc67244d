package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
)

// CopyReader resolves scan codes and catalog metadata.
type CopyReader interface {
	// FindCopyByID retrieves a copy by its identifier.
	FindCopyByID(ctx context.Context, copyID string) (*domain.Copy, error)

	// FindCopyByAccession retrieves a copy by its accession number.
	FindCopyByAccession(ctx context.Context, accession string) (*domain.Copy, error)

	// FindAvailableCopyByCatalogRef returns any Available copy of a title.
	FindAvailableCopyByCatalogRef(ctx context.Context, catalogRef string) (*domain.Copy, error)

	// GetCatalogMeta returns title-level metadata for a catalog reference.
	GetCatalogMeta(ctx context.Context, catalogRef string) (*domain.CatalogMeta, error)
}

// CopyWriter changes copy state. Writers are expected to run inside a unit of work.
type CopyWriter interface {
	// FindCopyByAccessionForUpdate retrieves and locks a copy by accession number.
	FindCopyByAccessionForUpdate(ctx context.Context, accession string) (*domain.Copy, error)

	// FindAvailableCopyByCatalogRefForUpdate locks the first Available copy of a title,
	// skipping copies already locked by other units of work.
	FindAvailableCopyByCatalogRefForUpdate(ctx context.Context, catalogRef string) (*domain.Copy, error)

	// UpdateCopyStatus moves a copy from one status to another. If the stored status is
	// no longer from, apperrors.ErrConflict is returned.
	UpdateCopyStatus(ctx context.Context, copyID string, from, to domain.CopyStatus, updatedBy string, updatedAt time.Time) error

	// SaveCopy inserts a new copy. A duplicate accession returns apperrors.ErrDuplicate.
	SaveCopy(ctx context.Context, copy domain.Copy) error
}

// CopyRepositoryFacade combines all copy-related repository interfaces
type CopyRepositoryFacade interface {
	CopyReader
	CopyWriter
}
