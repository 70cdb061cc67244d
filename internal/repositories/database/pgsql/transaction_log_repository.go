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
	"github.com/SscSPs/library_circulation_app/internal/utils/pagination"
	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgxpool"
)

var logColumns = []any{
	"entry_id", "session_id", "action_type", "student_id", "student_name_snapshot",
	"student_reg_no_snapshot", "copy_id", "book_title_snapshot", "book_isbn_snapshot",
	"performed_by", "logged_at", "details",
}

// receiptExpr extracts the receipt id stored in the details blob.
var receiptExpr = goqu.L("details ->> ?", domain.DetailReceiptID)

type PgxTransactionLogRepository struct {
	BaseRepository
}

func newPgxTransactionLogRepository(pool *pgxpool.Pool) *PgxTransactionLogRepository {
	return &PgxTransactionLogRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionLogRepositoryFacade = (*PgxTransactionLogRepository)(nil)

func scanLogEntry(row rowScanner) (domain.TransactionLogEntry, error) {
	var m models.TransactionLog
	err := row.Scan(&m.EntryID, &m.SessionID, &m.ActionType, &m.StudentID, &m.StudentNameSnapshot,
		&m.StudentRegNoSnapshot, &m.CopyID, &m.BookTitleSnapshot, &m.BookISBNSnapshot,
		&m.PerformedBy, &m.LoggedAt, &m.Details)
	if err != nil {
		return domain.TransactionLogEntry{}, err
	}
	return mapping.ToDomainTransactionLog(m)
}

func (r *PgxTransactionLogRepository) queryEntries(ctx context.Context, ds *goqu.SelectDataset, subject string) ([]domain.TransactionLogEntry, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to build history query", err)
	}
	rows, err := r.db().Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, subject)
	}
	defer rows.Close()

	entries := []domain.TransactionLogEntry{}
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, mapError(err, subject)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, subject)
	}
	return entries, nil
}

func (r *PgxTransactionLogRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.TransactionLogEntry, error) {
	ds := dialect.From("transaction_logs").Select(logColumns...).Where(goqu.C("entry_id").Eq(entryID))
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to build history query", err)
	}
	e, err := scanLogEntry(r.db().QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "history entry "+entryID)
	}
	return &e, nil
}

// ListEntries builds the search dynamically; every filter field is optional.
func (r *PgxTransactionLogRepository) ListEntries(ctx context.Context, filter domain.HistoryFilter, limit int, nextToken *string) ([]domain.TransactionLogEntry, *string, error) {
	ds := dialect.From("transaction_logs").Select(logColumns...)

	if len(filter.ActionTypes) > 0 {
		actions := make([]string, len(filter.ActionTypes))
		for i, a := range filter.ActionTypes {
			actions[i] = string(a)
		}
		ds = ds.Where(goqu.C("action_type").In(actions))
	}
	if filter.StudentID != "" {
		ds = ds.Where(goqu.C("student_id").Eq(filter.StudentID))
	}
	if filter.CopyID != "" {
		ds = ds.Where(goqu.C("copy_id").Eq(filter.CopyID))
	}
	if filter.PerformedBy != "" {
		ds = ds.Where(goqu.C("performed_by").Eq(filter.PerformedBy))
	}
	if filter.SessionID != "" {
		ds = ds.Where(goqu.C("session_id").Eq(filter.SessionID))
	}
	if filter.ReceiptID != "" {
		ds = ds.Where(receiptExpr.Eq(filter.ReceiptID))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("student_name_snapshot").ILike(pattern),
			goqu.C("student_reg_no_snapshot").ILike(pattern),
			goqu.C("book_title_snapshot").ILike(pattern),
			goqu.C("book_isbn_snapshot").ILike(pattern),
		))
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("logged_at").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("logged_at").Lte(*filter.To))
	}
	if nextToken != nil && *nextToken != "" {
		ts, id, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		ds = ds.Where(goqu.Or(
			goqu.C("logged_at").Lt(ts),
			goqu.And(goqu.C("logged_at").Eq(ts), goqu.C("entry_id").Lt(id)),
		))
	}
	ds = ds.Order(goqu.C("logged_at").Desc(), goqu.C("entry_id").Desc()).Limit(uint(limit + 1))

	entries, err := r.queryEntries(ctx, ds, "history")
	if err != nil {
		return nil, nil, err
	}

	var token *string
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		t := pagination.EncodeToken(last.Timestamp, last.EntryID)
		token = &t
	}
	return entries, token, nil
}

func (r *PgxTransactionLogRepository) FindEntriesByReceiptID(ctx context.Context, receiptID string) ([]domain.TransactionLogEntry, error) {
	ds := dialect.From("transaction_logs").Select(logColumns...).
		Where(
			goqu.C("action_type").Eq(string(domain.ActionFinePaid)),
			receiptExpr.Eq(receiptID),
		).
		Order(goqu.C("logged_at").Asc(), goqu.C("entry_id").Asc())
	return r.queryEntries(ctx, ds, "receipt "+receiptID)
}

// CountEntries counts strictly after since.
func (r *PgxTransactionLogRepository) CountEntries(ctx context.Context, action domain.ActionType, studentID, copyID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM transaction_logs
		WHERE action_type = $1 AND student_id = $2 AND copy_id = $3 AND logged_at > $4;
	`
	var n int
	if err := r.db().QueryRow(ctx, query, string(action), studentID, copyID, since).Scan(&n); err != nil {
		return 0, mapError(err, "history count")
	}
	return n, nil
}

func (r *PgxTransactionLogRepository) AppendEntry(ctx context.Context, entry domain.TransactionLogEntry) error {
	m, err := mapping.ToModelTransactionLog(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	query := `
		INSERT INTO transaction_logs (entry_id, session_id, action_type, student_id, student_name_snapshot,
			student_reg_no_snapshot, copy_id, book_title_snapshot, book_isbn_snapshot,
			performed_by, logged_at, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = r.db().Exec(ctx, query, m.EntryID, m.SessionID, m.ActionType, m.StudentID, m.StudentNameSnapshot,
		m.StudentRegNoSnapshot, m.CopyID, m.BookTitleSnapshot, m.BookISBNSnapshot,
		m.PerformedBy, m.LoggedAt, string(m.Details))
	if err != nil {
		return mapError(err, "history entry "+m.EntryID)
	}
	return nil
}
