package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
)

func loanNotFound(loanID string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("loan with ID %s not found", loanID))
}

func (r *repo) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	var out *domain.Loan
	err := r.read(func(st *state) error {
		l, ok := st.loans[loanID]
		if !ok {
			return loanNotFound(loanID)
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *repo) CountActiveLoansByStudent(ctx context.Context, studentID string) (int, error) {
	n := 0
	err := r.read(func(st *state) error {
		for _, l := range st.loans {
			if l.StudentID == studentID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *repo) ListLoansByStudent(ctx context.Context, studentID string) ([]domain.Loan, error) {
	var out []domain.Loan
	err := r.read(func(st *state) error {
		for _, l := range st.loans {
			if l.StudentID == studentID {
				out = append(out, l)
			}
		}
		return nil
	})
	sortLoans(out, func(l domain.Loan) domain.Loan { return l })
	return out, err
}

func (r *repo) ListActiveLoans(ctx context.Context, filter domain.LoanFilter) ([]domain.ActiveLoan, error) {
	var out []domain.ActiveLoan
	err := r.read(func(st *state) error {
		for _, l := range st.loans {
			if filter.StudentID != "" && l.StudentID != filter.StudentID {
				continue
			}
			if filter.CopyID != "" && l.CopyID != filter.CopyID {
				continue
			}
			if filter.OverdueOnly && l.DueDate.After(filter.OverdueCutoff()) {
				continue
			}
			c := st.copies[l.CopyID]
			if filter.CatalogRef != "" && c.CatalogRef != filter.CatalogRef {
				continue
			}
			b := st.borrowers[l.StudentID]
			out = append(out, domain.ActiveLoan{
				Loan:          l,
				Copy:          c,
				Catalog:       st.catalog[c.CatalogRef],
				BorrowerName:  b.Name,
				BorrowerRegNo: b.RegNo,
			})
		}
		return nil
	})
	sortLoans(out, func(a domain.ActiveLoan) domain.Loan { return a.Loan })
	return out, err
}

// LockStudentLoans is a no-op: units of work are already serialized.
func (r *repo) LockStudentLoans(ctx context.Context, studentID string) error {
	return nil
}

func (r *repo) FindLoanByIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	return r.FindLoanByID(ctx, loanID)
}

func (r *repo) SaveLoan(ctx context.Context, loan domain.Loan) error {
	return r.write(func(st *state) error {
		if _, ok := st.loans[loan.LoanID]; ok {
			return fmt.Errorf("%w: loan %s", apperrors.ErrDuplicate, loan.LoanID)
		}
		for _, l := range st.loans {
			if l.CopyID == loan.CopyID {
				return fmt.Errorf("%w: copy %s already has an open loan", apperrors.ErrDuplicate, loan.CopyID)
			}
		}
		st.loans[loan.LoanID] = loan
		return nil
	})
}

func (r *repo) UpdateLoanRenewal(ctx context.Context, loanID string, newDueDate, renewedAt time.Time, expectedCount int) error {
	return r.write(func(st *state) error {
		l, ok := st.loans[loanID]
		if !ok {
			return loanNotFound(loanID)
		}
		if l.RenewalCount != expectedCount {
			return fmt.Errorf("%w: loan %s was renewed concurrently", apperrors.ErrConflict, loanID)
		}
		l.DueDate = newDueDate
		l.LastRenewedDate = &renewedAt
		l.RenewalCount++
		st.loans[loanID] = l
		return nil
	})
}

func (r *repo) DeleteLoan(ctx context.Context, loanID string) error {
	return r.write(func(st *state) error {
		if _, ok := st.loans[loanID]; !ok {
			return loanNotFound(loanID)
		}
		delete(st.loans, loanID)
		return nil
	})
}

func sortLoans[T any](items []T, loan func(T) domain.Loan) {
	sort.Slice(items, func(i, j int) bool {
		a, b := loan(items[i]), loan(items[j])
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.LoanID < b.LoanID
	})
}
