package pgsql

import (
	"context"
	"errors"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	"github.com/SscSPs/library_circulation_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxDirectoryRepository reads borrowers and settings and writes audit records.
type PgxDirectoryRepository struct {
	BaseRepository
}

func newPgxDirectoryRepository(pool *pgxpool.Pool) *PgxDirectoryRepository {
	return &PgxDirectoryRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var (
	_ portsrepo.BorrowerReader  = (*PgxDirectoryRepository)(nil)
	_ portsrepo.SettingsReader  = (*PgxDirectoryRepository)(nil)
	_ portsrepo.AuditRepository = (*PgxDirectoryRepository)(nil)
)

func (r *PgxDirectoryRepository) FindBorrowerByID(ctx context.Context, borrowerID string) (*domain.Borrower, error) {
	query := `
		SELECT borrower_id, name, reg_no, dept_name, email, status, policy_class
		FROM borrowers
		WHERE borrower_id = $1;
	`
	var (
		b      domain.Borrower
		status string
	)
	err := r.db().QueryRow(ctx, query, borrowerID).Scan(&b.BorrowerID, &b.Name, &b.RegNo, &b.DeptName, &b.Email, &status, &b.PolicyClass)
	if err != nil {
		return nil, mapError(err, "borrower with ID "+borrowerID)
	}
	b.Status = domain.BorrowerStatus(status)
	return &b, nil
}

func (r *PgxDirectoryRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db().QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, mapError(err, "setting "+key)
	}
	return value, true, nil
}

func (r *PgxDirectoryRepository) SaveAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	m, err := mapping.ToModelAuditLog(entry)
	if err != nil {
		return err
	}
	var metadata any
	if m.Metadata != nil {
		metadata = string(m.Metadata)
	}
	query := `
		INSERT INTO audit_logs (audit_id, actor_id, action_type, module, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err = r.db().Exec(ctx, query, m.AuditID, m.ActorID, m.ActionType, m.Module, m.Description, metadata, m.CreatedAt)
	if err != nil {
		return mapError(err, "audit entry "+m.AuditID)
	}
	return nil
}
