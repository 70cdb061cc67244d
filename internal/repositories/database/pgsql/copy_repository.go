package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	"github.com/SscSPs/library_circulation_app/internal/models"
	"github.com/SscSPs/library_circulation_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5/pgxpool"
)

const copyColumns = `copy_id, catalog_ref, accession_number, status, created_at, created_by, last_updated_at, last_updated_by`

type PgxCopyRepository struct {
	BaseRepository
}

func newPgxCopyRepository(pool *pgxpool.Pool) *PgxCopyRepository {
	return &PgxCopyRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CopyRepositoryFacade = (*PgxCopyRepository)(nil)

func (r *PgxCopyRepository) queryCopy(ctx context.Context, subject, where string, args ...any) (*domain.Copy, error) {
	query := `SELECT ` + copyColumns + ` FROM copies WHERE ` + where
	var m models.Copy
	err := r.db().QueryRow(ctx, query, args...).Scan(
		&m.CopyID, &m.CatalogRef, &m.AccessionNumber, &m.Status,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	if err != nil {
		return nil, mapError(err, subject)
	}
	c := mapping.ToDomainCopy(m)
	return &c, nil
}

func (r *PgxCopyRepository) FindCopyByID(ctx context.Context, copyID string) (*domain.Copy, error) {
	return r.queryCopy(ctx, "copy with ID "+copyID, `copy_id = $1`, copyID)
}

func (r *PgxCopyRepository) FindCopyByAccession(ctx context.Context, accession string) (*domain.Copy, error) {
	return r.queryCopy(ctx, "copy with accession "+accession, `accession_number = $1`, accession)
}

func (r *PgxCopyRepository) FindAvailableCopyByCatalogRef(ctx context.Context, catalogRef string) (*domain.Copy, error) {
	return r.queryCopy(ctx, "available copy for catalog reference "+catalogRef,
		`catalog_ref = $1 AND status = $2 ORDER BY accession_number LIMIT 1`,
		catalogRef, string(domain.CopyAvailable))
}

func (r *PgxCopyRepository) FindCopyByAccessionForUpdate(ctx context.Context, accession string) (*domain.Copy, error) {
	return r.queryCopy(ctx, "copy with accession "+accession, `accession_number = $1 FOR UPDATE`, accession)
}

// FindAvailableCopyByCatalogRefForUpdate skips copies another transaction is
// already issuing, so concurrent scans of one title pick different copies.
func (r *PgxCopyRepository) FindAvailableCopyByCatalogRefForUpdate(ctx context.Context, catalogRef string) (*domain.Copy, error) {
	return r.queryCopy(ctx, "available copy for catalog reference "+catalogRef,
		`catalog_ref = $1 AND status = $2 ORDER BY accession_number LIMIT 1 FOR UPDATE SKIP LOCKED`,
		catalogRef, string(domain.CopyAvailable))
}

func (r *PgxCopyRepository) GetCatalogMeta(ctx context.Context, catalogRef string) (*domain.CatalogMeta, error) {
	query := `SELECT catalog_ref, title, isbn, author, publisher FROM catalog_entries WHERE catalog_ref = $1`
	var meta domain.CatalogMeta
	err := r.db().QueryRow(ctx, query, catalogRef).Scan(&meta.CatalogRef, &meta.Title, &meta.ISBN, &meta.Author, &meta.Publisher)
	if err != nil {
		return nil, mapError(err, "catalog entry "+catalogRef)
	}
	return &meta, nil
}

// UpdateCopyStatus is a conditional update on the current status.
func (r *PgxCopyRepository) UpdateCopyStatus(ctx context.Context, copyID string, from, to domain.CopyStatus, updatedBy string, updatedAt time.Time) error {
	query := `
		UPDATE copies
		SET status = $3, last_updated_at = $4, last_updated_by = $5
		WHERE copy_id = $1 AND status = $2;
	`
	tag, err := r.db().Exec(ctx, query, copyID, string(from), string(to), updatedAt, updatedBy)
	if err != nil {
		return mapError(err, "copy with ID "+copyID)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.FindCopyByID(ctx, copyID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: copy %s is %s, expected %s", apperrors.ErrConflict, current.AccessionNumber, current.Status, from)
	}
	return nil
}

func (r *PgxCopyRepository) SaveCopy(ctx context.Context, copy domain.Copy) error {
	m := mapping.ToModelCopy(copy)
	query := `INSERT INTO copies (` + copyColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	_, err := r.db().Exec(ctx, query, m.CopyID, m.CatalogRef, m.AccessionNumber, m.Status,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		return mapError(err, "accession number "+m.AccessionNumber)
	}
	return nil
}
