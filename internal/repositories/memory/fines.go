package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

func fineNotFound(fineID string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("fine with ID %s not found", fineID))
}

func (r *repo) FindFineByID(ctx context.Context, fineID string) (*domain.Fine, error) {
	var out *domain.Fine
	err := r.read(func(st *state) error {
		f, ok := st.fines[fineID]
		if !ok {
			return fineNotFound(fineID)
		}
		out = &f
		return nil
	})
	return out, err
}

func (r *repo) SumUnpaidFinesByStudent(ctx context.Context, studentID string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.read(func(st *state) error {
		for _, f := range st.fines {
			if f.StudentID != nil && *f.StudentID == studentID && f.IsUnpaid() {
				total = total.Add(f.Amount)
			}
		}
		return nil
	})
	return total, err
}

func (r *repo) ListFines(ctx context.Context, filter domain.FineFilter, limit int, nextToken *string) ([]domain.Fine, *string, error) {
	var matched []domain.Fine
	_ = r.read(func(st *state) error {
		for _, f := range st.fines {
			if filter.StudentID != "" && (f.StudentID == nil || *f.StudentID != filter.StudentID) {
				continue
			}
			if filter.Status != "" && f.Status != filter.Status {
				continue
			}
			matched = append(matched, f)
		}
		return nil
	})
	return newestFirst(matched, func(f domain.Fine) (time.Time, string) { return f.CreatedAt, f.FineID }, limit, nextToken)
}

func (r *repo) FindFineByIDForUpdate(ctx context.Context, fineID string) (*domain.Fine, error) {
	return r.FindFineByID(ctx, fineID)
}

func (r *repo) SaveFine(ctx context.Context, fine domain.Fine) error {
	return r.write(func(st *state) error {
		if _, ok := st.fines[fine.FineID]; ok {
			return fmt.Errorf("%w: fine %s", apperrors.ErrDuplicate, fine.FineID)
		}
		st.fines[fine.FineID] = fine
		return nil
	})
}

func (r *repo) UpdateFine(ctx context.Context, fine domain.Fine) error {
	return r.write(func(st *state) error {
		if _, ok := st.fines[fine.FineID]; !ok {
			return fineNotFound(fine.FineID)
		}
		st.fines[fine.FineID] = fine
		return nil
	})
}

func (r *repo) DetachStudent(ctx context.Context, studentID string) (int64, error) {
	var n int64
	err := r.write(func(st *state) error {
		for id, f := range st.fines {
			if f.StudentID == nil || *f.StudentID != studentID {
				continue
			}
			f.StudentID = nil
			f.StudentNameSnapshot += domain.DeletedSuffix
			st.fines[id] = f
			n++
		}
		return nil
	})
	return n, err
}
