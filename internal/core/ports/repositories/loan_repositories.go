package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
)

// LoanReader defines read operations for active loans
type LoanReader interface {
	// FindLoanByID retrieves an open loan by its identifier.
	FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error)

	// CountActiveLoansByStudent returns the number of open loans held by a borrower.
	CountActiveLoansByStudent(ctx context.Context, studentID string) (int, error)

	// ListLoansByStudent returns every open loan held by a borrower, oldest due date first.
	ListLoansByStudent(ctx context.Context, studentID string) ([]domain.Loan, error)

	// ListActiveLoans returns open loans joined with copy, title and borrower snapshot data.
	ListActiveLoans(ctx context.Context, filter domain.LoanFilter) ([]domain.ActiveLoan, error)
}

// LoanWriter defines write operations for active loans. Writers are expected to run
// inside a unit of work.
type LoanWriter interface {
	// LockStudentLoans serializes loan-count changes for one borrower until the unit of work ends.
	LockStudentLoans(ctx context.Context, studentID string) error

	// FindLoanByIDForUpdate retrieves an open loan and locks it for the rest of the unit of work.
	FindLoanByIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error)

	// SaveLoan inserts a new open loan.
	SaveLoan(ctx context.Context, loan domain.Loan) error

	// UpdateLoanRenewal moves the due date and bumps the renewal counter, provided the
	// stored counter still equals expectedCount. A mismatch returns apperrors.ErrConflict.
	UpdateLoanRenewal(ctx context.Context, loanID string, newDueDate, renewedAt time.Time, expectedCount int) error

	// DeleteLoan removes an open loan. Removing an absent loan returns apperrors.ErrNotFound.
	DeleteLoan(ctx context.Context, loanID string) error
}

// LoanRepositoryFacade combines all loan-related repository interfaces
type LoanRepositoryFacade interface {
	LoanReader
	LoanWriter
}
