package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	"github.com/SscSPs/library_circulation_app/internal/models"
	"github.com/SscSPs/library_circulation_app/internal/utils/mapping"
	"github.com/SscSPs/library_circulation_app/internal/utils/pagination"
	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var fineColumns = []any{
	"fine_id", "receipt_number", "transaction_id", "student_id", "student_name_snapshot",
	"student_reg_no_snapshot", "amount", "status", "is_paid", "payment_date", "collected_by",
	"payment_method", "remark", "created_at",
}

type PgxFineRepository struct {
	BaseRepository
}

func newPgxFineRepository(pool *pgxpool.Pool) *PgxFineRepository {
	return &PgxFineRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.FineRepositoryFacade = (*PgxFineRepository)(nil)

func scanFine(row rowScanner, m *models.Fine) error {
	return row.Scan(&m.FineID, &m.ReceiptNumber, &m.TransactionID, &m.StudentID, &m.StudentNameSnapshot,
		&m.StudentRegNoSnapshot, &m.Amount, &m.Status, &m.IsPaid, &m.PaymentDate, &m.CollectedBy,
		&m.PaymentMethod, &m.Remark, &m.CreatedAt)
}

func (r *PgxFineRepository) findFine(ctx context.Context, fineID string, forUpdate bool) (*domain.Fine, error) {
	ds := dialect.From("fines").Select(fineColumns...).Where(goqu.C("fine_id").Eq(fineID))
	if forUpdate {
		ds = ds.ForUpdate(goqu.Wait)
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to build fine query", err)
	}
	var m models.Fine
	if err := scanFine(r.db().QueryRow(ctx, query, args...), &m); err != nil {
		return nil, mapError(err, fmt.Sprintf("fine with ID %s", fineID))
	}
	fine := mapping.ToDomainFine(m)
	return &fine, nil
}

func (r *PgxFineRepository) FindFineByID(ctx context.Context, fineID string) (*domain.Fine, error) {
	return r.findFine(ctx, fineID, false)
}

func (r *PgxFineRepository) FindFineByIDForUpdate(ctx context.Context, fineID string) (*domain.Fine, error) {
	return r.findFine(ctx, fineID, true)
}

func (r *PgxFineRepository) SumUnpaidFinesByStudent(ctx context.Context, studentID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM fines WHERE student_id = $1 AND status = $2`
	if err := r.db().QueryRow(ctx, query, studentID, string(domain.FineUnpaid)).Scan(&total); err != nil {
		return decimal.Zero, mapError(err, "unpaid fines of student "+studentID)
	}
	return total, nil
}

// ListFines returns fines newest first, keyset-paginated on (created_at, fine_id).
func (r *PgxFineRepository) ListFines(ctx context.Context, filter domain.FineFilter, limit int, nextToken *string) ([]domain.Fine, *string, error) {
	ds := dialect.From("fines").Select(fineColumns...)
	if filter.StudentID != "" {
		ds = ds.Where(goqu.C("student_id").Eq(filter.StudentID))
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(filter.Status)))
	}
	if nextToken != nil && *nextToken != "" {
		ts, id, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		ds = ds.Where(goqu.Or(
			goqu.C("created_at").Lt(ts),
			goqu.And(goqu.C("created_at").Eq(ts), goqu.C("fine_id").Lt(id)),
		))
	}
	ds = ds.Order(goqu.C("created_at").Desc(), goqu.C("fine_id").Desc()).Limit(uint(limit + 1))

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to build fines query", err)
	}
	rows, err := r.db().Query(ctx, query, args...)
	if err != nil {
		return nil, nil, mapError(err, "fines")
	}
	defer rows.Close()

	var ms []models.Fine
	for rows.Next() {
		var m models.Fine
		if err := scanFine(rows, &m); err != nil {
			return nil, nil, mapError(err, "fines")
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapError(err, "fines")
	}

	var token *string
	if len(ms) > limit {
		ms = ms[:limit]
		last := ms[len(ms)-1]
		t := pagination.EncodeToken(last.CreatedAt, last.FineID)
		token = &t
	}
	return mapping.ToDomainFineSlice(ms), token, nil
}

func (r *PgxFineRepository) SaveFine(ctx context.Context, fine domain.Fine) error {
	m := mapping.ToModelFine(fine)
	query := `
		INSERT INTO fines (fine_id, receipt_number, transaction_id, student_id, student_name_snapshot,
			student_reg_no_snapshot, amount, status, is_paid, payment_date, collected_by,
			payment_method, remark, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.db().Exec(ctx, query, m.FineID, m.ReceiptNumber, m.TransactionID, m.StudentID, m.StudentNameSnapshot,
		m.StudentRegNoSnapshot, m.Amount, m.Status, m.IsPaid, m.PaymentDate, m.CollectedBy,
		m.PaymentMethod, m.Remark, m.CreatedAt)
	if err != nil {
		return mapError(err, "fine "+m.FineID)
	}
	return nil
}

func (r *PgxFineRepository) UpdateFine(ctx context.Context, fine domain.Fine) error {
	m := mapping.ToModelFine(fine)
	query := `
		UPDATE fines
		SET receipt_number = $2, amount = $3, status = $4, is_paid = $5, payment_date = $6,
		    collected_by = $7, payment_method = $8, remark = $9
		WHERE fine_id = $1;
	`
	tag, err := r.db().Exec(ctx, query, m.FineID, m.ReceiptNumber, m.Amount, m.Status, m.IsPaid, m.PaymentDate,
		m.CollectedBy, m.PaymentMethod, m.Remark)
	if err != nil {
		return mapError(err, "fine "+m.FineID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("fine with ID %s not found", m.FineID))
	}
	return nil
}

// DetachStudent keeps the fines but drops the borrower reference and marks the name snapshot.
func (r *PgxFineRepository) DetachStudent(ctx context.Context, studentID string) (int64, error) {
	query := `
		UPDATE fines
		SET student_id = NULL, student_name_snapshot = student_name_snapshot || $2
		WHERE student_id = $1;
	`
	tag, err := r.db().Exec(ctx, query, studentID, domain.DeletedSuffix)
	if err != nil {
		return 0, mapError(err, "fines of student "+studentID)
	}
	return tag.RowsAffected(), nil
}
