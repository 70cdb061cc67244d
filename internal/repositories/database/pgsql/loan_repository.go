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

const loanColumns = `l.loan_id, l.student_id, l.copy_id, l.issued_by, l.issue_date, l.due_date,
	l.last_renewed_date, l.renewal_count`

type PgxLoanRepository struct {
	BaseRepository
}

func newPgxLoanRepository(pool *pgxpool.Pool) *PgxLoanRepository {
	return &PgxLoanRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LoanRepositoryFacade = (*PgxLoanRepository)(nil)

func scanLoan(row rowScanner, m *models.Loan) error {
	return row.Scan(&m.LoanID, &m.StudentID, &m.CopyID, &m.IssuedBy, &m.IssueDate, &m.DueDate,
		&m.LastRenewedDate, &m.RenewalCount)
}

func (r *PgxLoanRepository) findLoan(ctx context.Context, loanID, suffix string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans l WHERE l.loan_id = $1` + suffix
	var m models.Loan
	if err := scanLoan(r.db().QueryRow(ctx, query, loanID), &m); err != nil {
		return nil, mapError(err, fmt.Sprintf("loan with ID %s", loanID))
	}
	loan := mapping.ToDomainLoan(m)
	return &loan, nil
}

// FindLoanByID retrieves an open loan by its identifier.
func (r *PgxLoanRepository) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	return r.findLoan(ctx, loanID, "")
}

// FindLoanByIDForUpdate retrieves an open loan and holds a row lock until the transaction ends.
func (r *PgxLoanRepository) FindLoanByIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	return r.findLoan(ctx, loanID, " FOR UPDATE")
}

func (r *PgxLoanRepository) CountActiveLoansByStudent(ctx context.Context, studentID string) (int, error) {
	var n int
	err := r.db().QueryRow(ctx, `SELECT COUNT(*) FROM loans WHERE student_id = $1`, studentID).Scan(&n)
	if err != nil {
		return 0, mapError(err, "loans of student "+studentID)
	}
	return n, nil
}

func (r *PgxLoanRepository) ListLoansByStudent(ctx context.Context, studentID string) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans l WHERE l.student_id = $1 ORDER BY l.due_date ASC, l.loan_id ASC`
	rows, err := r.db().Query(ctx, query, studentID)
	if err != nil {
		return nil, mapError(err, "loans of student "+studentID)
	}
	defer rows.Close()

	loans := []domain.Loan{}
	for rows.Next() {
		var m models.Loan
		if err := scanLoan(rows, &m); err != nil {
			return nil, mapError(err, "loans of student "+studentID)
		}
		loans = append(loans, mapping.ToDomainLoan(m))
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "loans of student "+studentID)
	}
	return loans, nil
}

// ListActiveLoans joins open loans with their copy, title and borrower. A borrower
// removed from the directory yields empty name fields.
func (r *PgxLoanRepository) ListActiveLoans(ctx context.Context, filter domain.LoanFilter) ([]domain.ActiveLoan, error) {
	query := `
		SELECT ` + loanColumns + `,
		       c.copy_id, c.catalog_ref, c.accession_number, c.status,
		       c.created_at, c.created_by, c.last_updated_at, c.last_updated_by,
		       ce.title, ce.isbn, ce.author, ce.publisher,
		       COALESCE(b.name, ''), COALESCE(b.reg_no, '')
		FROM loans l
		JOIN copies c ON c.copy_id = l.copy_id
		JOIN catalog_entries ce ON ce.catalog_ref = c.catalog_ref
		LEFT JOIN borrowers b ON b.borrower_id = l.student_id
		WHERE ($1 = '' OR l.student_id = $1)
		  AND ($2 = '' OR l.copy_id = $2)
		  AND ($3 = '' OR c.catalog_ref = $3)
		  AND (NOT $4 OR l.due_date <= $5)
		ORDER BY l.due_date ASC, l.loan_id ASC;
	`
	if filter.AsOf.IsZero() {
		filter.AsOf = time.Now()
	}
	rows, err := r.db().Query(ctx, query, filter.StudentID, filter.CopyID, filter.CatalogRef, filter.OverdueOnly, filter.OverdueCutoff())
	if err != nil {
		return nil, mapError(err, "active loans")
	}
	defer rows.Close()

	out := []domain.ActiveLoan{}
	for rows.Next() {
		var (
			ml models.Loan
			mc models.Copy
			al domain.ActiveLoan
		)
		err := rows.Scan(&ml.LoanID, &ml.StudentID, &ml.CopyID, &ml.IssuedBy, &ml.IssueDate, &ml.DueDate,
			&ml.LastRenewedDate, &ml.RenewalCount,
			&mc.CopyID, &mc.CatalogRef, &mc.AccessionNumber, &mc.Status,
			&mc.CreatedAt, &mc.CreatedBy, &mc.LastUpdatedAt, &mc.LastUpdatedBy,
			&al.Catalog.Title, &al.Catalog.ISBN, &al.Catalog.Author, &al.Catalog.Publisher,
			&al.BorrowerName, &al.BorrowerRegNo)
		if err != nil {
			return nil, mapError(err, "active loans")
		}
		al.Loan = mapping.ToDomainLoan(ml)
		al.Copy = mapping.ToDomainCopy(mc)
		al.Catalog.CatalogRef = mc.CatalogRef
		out = append(out, al)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "active loans")
	}
	return out, nil
}

// LockStudentLoans takes a transaction-scoped advisory lock keyed on the student, so
// concurrent issues for one borrower count loans one at a time.
func (r *PgxLoanRepository) LockStudentLoans(ctx context.Context, studentID string) error {
	if _, err := r.db().Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, studentID); err != nil {
		return mapError(err, "loan lock for student "+studentID)
	}
	return nil
}

func (r *PgxLoanRepository) SaveLoan(ctx context.Context, loan domain.Loan) error {
	m := mapping.ToModelLoan(loan)
	query := `
		INSERT INTO loans (loan_id, student_id, copy_id, issued_by, issue_date, due_date, last_renewed_date, renewal_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.db().Exec(ctx, query, m.LoanID, m.StudentID, m.CopyID, m.IssuedBy, m.IssueDate, m.DueDate,
		m.LastRenewedDate, m.RenewalCount)
	if err != nil {
		return mapError(err, fmt.Sprintf("loan for copy %s", m.CopyID))
	}
	return nil
}

// UpdateLoanRenewal applies a renewal only if the stored counter still equals expectedCount.
func (r *PgxLoanRepository) UpdateLoanRenewal(ctx context.Context, loanID string, newDueDate, renewedAt time.Time, expectedCount int) error {
	query := `
		UPDATE loans
		SET due_date = $2, last_renewed_date = $3, renewal_count = renewal_count + 1
		WHERE loan_id = $1 AND renewal_count = $4;
	`
	tag, err := r.db().Exec(ctx, query, loanID, newDueDate, renewedAt, expectedCount)
	if err != nil {
		return mapError(err, "loan with ID "+loanID)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindLoanByID(ctx, loanID); err != nil {
			return err
		}
		return fmt.Errorf("%w: loan %s was renewed concurrently", apperrors.ErrConflict, loanID)
	}
	return nil
}

func (r *PgxLoanRepository) DeleteLoan(ctx context.Context, loanID string) error {
	tag, err := r.db().Exec(ctx, `DELETE FROM loans WHERE loan_id = $1`, loanID)
	if err != nil {
		return mapError(err, "loan with ID "+loanID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("loan with ID %s not found", loanID))
	}
	return nil
}
