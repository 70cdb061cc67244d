package memory

import (
	"context"
	"fmt"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
)

func (r *repo) FindBorrowerByID(ctx context.Context, borrowerID string) (*domain.Borrower, error) {
	var out *domain.Borrower
	err := r.read(func(st *state) error {
		b, ok := st.borrowers[borrowerID]
		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("borrower with ID %s not found", borrowerID))
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *repo) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := r.read(func(st *state) error {
		value, ok = st.settings[key]
		return nil
	})
	return value, ok, err
}

func (r *repo) SaveAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	return r.write(func(st *state) error {
		st.audit = append(st.audit, entry)
		return nil
	})
}
