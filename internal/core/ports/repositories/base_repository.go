package repositories

import "context"

// TxRepositories bundles the repositories bound to a single unit of work.
// Every write made through them commits or rolls back together.
type TxRepositories struct {
	Loans     LoanRepositoryFacade
	Copies    CopyRepositoryFacade
	Fines     FineRepositoryFacade
	History   TransactionLogRepositoryFacade
	Borrowers BorrowerReader
}

// TransactionManager defines methods for transaction management
type TransactionManager interface {
	// WithTransaction runs fn inside one unit of work. A non-nil error from fn
	// rolls back every write made through the supplied repositories.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
