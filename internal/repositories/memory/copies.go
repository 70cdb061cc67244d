package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
)

func (r *repo) FindCopyByID(ctx context.Context, copyID string) (*domain.Copy, error) {
	var out *domain.Copy
	err := r.read(func(st *state) error {
		c, ok := st.copies[copyID]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("copy with ID %s not found", copyID))
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *repo) FindCopyByAccession(ctx context.Context, accession string) (*domain.Copy, error) {
	var out *domain.Copy
	err := r.read(func(st *state) error {
		for _, c := range st.copies {
			if c.AccessionNumber == accession {
				out = &c
				return nil
			}
		}
		return apperrors.NewNotFoundError(fmt.Sprintf("copy with accession %s not found", accession))
	})
	return out, err
}

func (r *repo) FindAvailableCopyByCatalogRef(ctx context.Context, catalogRef string) (*domain.Copy, error) {
	var out *domain.Copy
	err := r.read(func(st *state) error {
		var candidates []domain.Copy
		for _, c := range st.copies {
			if c.CatalogRef == catalogRef && c.IsAvailable() {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) == 0 {
			return apperrors.NewNotFoundError(fmt.Sprintf("no available copy for catalog reference %s", catalogRef))
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].AccessionNumber < candidates[j].AccessionNumber
		})
		out = &candidates[0]
		return nil
	})
	return out, err
}

func (r *repo) GetCatalogMeta(ctx context.Context, catalogRef string) (*domain.CatalogMeta, error) {
	var out *domain.CatalogMeta
	err := r.read(func(st *state) error {
		m, ok := st.catalog[catalogRef]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("catalog entry %s not found", catalogRef))
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *repo) FindCopyByAccessionForUpdate(ctx context.Context, accession string) (*domain.Copy, error) {
	return r.FindCopyByAccession(ctx, accession)
}

func (r *repo) FindAvailableCopyByCatalogRefForUpdate(ctx context.Context, catalogRef string) (*domain.Copy, error) {
	return r.FindAvailableCopyByCatalogRef(ctx, catalogRef)
}

func (r *repo) UpdateCopyStatus(ctx context.Context, copyID string, from, to domain.CopyStatus, updatedBy string, updatedAt time.Time) error {
	return r.write(func(st *state) error {
		c, ok := st.copies[copyID]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("copy with ID %s not found", copyID))
		}
		if c.Status != from {
			return fmt.Errorf("%w: copy %s is %s, expected %s", apperrors.ErrConflict, c.AccessionNumber, c.Status, from)
		}
		c.Status = to
		c.LastUpdatedAt = updatedAt
		c.LastUpdatedBy = updatedBy
		st.copies[copyID] = c
		return nil
	})
}

func (r *repo) SaveCopy(ctx context.Context, c domain.Copy) error {
	return r.write(func(st *state) error {
		return insertCopy(st, c)
	})
}
