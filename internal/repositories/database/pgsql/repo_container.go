package pgsql

import (
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	directoryRepo := newPgxDirectoryRepository(dbPool)

	return portsrepo.RepositoryProvider{
		LoanRepo:     newPgxLoanRepository(dbPool),
		CopyRepo:     newPgxCopyRepository(dbPool),
		FineRepo:     newPgxFineRepository(dbPool),
		HistoryRepo:  newPgxTransactionLogRepository(dbPool),
		BorrowerRepo: directoryRepo,
		SettingsRepo: directoryRepo,
		AuditRepo:    directoryRepo,
		TxManager:    NewTxManager(dbPool),
	}
}
