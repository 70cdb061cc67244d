package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	LoanRepo     LoanReader
	CopyRepo     CopyReader
	FineRepo     FineReader
	HistoryRepo  TransactionLogReader
	BorrowerRepo BorrowerReader
	SettingsRepo SettingsReader
	AuditRepo    AuditRepository
	TxManager    TransactionManager
}
