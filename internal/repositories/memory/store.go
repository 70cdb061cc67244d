// Package memory is an in-process implementation of the repository ports. Units of
// work are serialized and applied copy-on-write, so readers only ever observe
// committed state.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
)

type state struct {
	borrowers map[string]domain.Borrower
	catalog   map[string]domain.CatalogMeta
	copies    map[string]domain.Copy
	loans     map[string]domain.Loan
	fines     map[string]domain.Fine
	history   []domain.TransactionLogEntry
	settings  map[string]string
	audit     []domain.AuditEntry
}

func newState() *state {
	return &state{
		borrowers: make(map[string]domain.Borrower),
		catalog:   make(map[string]domain.CatalogMeta),
		copies:    make(map[string]domain.Copy),
		loans:     make(map[string]domain.Loan),
		fines:     make(map[string]domain.Fine),
		settings:  make(map[string]string),
	}
}

// clone copies every table. Rows are values and history entries are never mutated,
// so a shallow copy per table is enough.
func (s *state) clone() *state {
	return &state{
		borrowers: maps.Clone(s.borrowers),
		catalog:   maps.Clone(s.catalog),
		copies:    maps.Clone(s.copies),
		loans:     maps.Clone(s.loans),
		fines:     maps.Clone(s.fines),
		history:   slices.Clone(s.history),
		settings:  maps.Clone(s.settings),
		audit:     slices.Clone(s.audit),
	}
}

// Store holds the committed state.
type Store struct {
	mu   sync.RWMutex // guards st
	txMu sync.Mutex   // serializes writers
	st   *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

// repo implements every repository port. Inside a unit of work tx points at the
// private working copy; outside it reads and writes go to the committed state.
type repo struct {
	store *Store
	tx    *state
}

func (r *repo) read(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return fn(r.store.st)
}

func (r *repo) write(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.st)
}

func (r *repo) txRepositories() portsrepo.TxRepositories {
	return portsrepo.TxRepositories{
		Loans:     r,
		Copies:    r,
		Fines:     r,
		History:   r,
		Borrowers: r,
	}
}

// WithTransaction runs fn against a private copy of the state and publishes it only
// when fn succeeds. Units of work never interleave.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos portsrepo.TxRepositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	working := s.st.clone()
	s.mu.RUnlock()

	r := &repo{store: s, tx: working}
	if err := fn(ctx, r.txRepositories()); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = working
	s.mu.Unlock()
	return nil
}

// Repositories exposes the store through the repository ports.
func (s *Store) Repositories() portsrepo.RepositoryProvider {
	r := &repo{store: s}
	return portsrepo.RepositoryProvider{
		LoanRepo:     r,
		CopyRepo:     r,
		FineRepo:     r,
		HistoryRepo:  r,
		BorrowerRepo: r,
		SettingsRepo: r,
		AuditRepo:    r,
		TxManager:    s,
	}
}

var (
	_ portsrepo.LoanRepositoryFacade           = (*repo)(nil)
	_ portsrepo.CopyRepositoryFacade           = (*repo)(nil)
	_ portsrepo.FineRepositoryFacade           = (*repo)(nil)
	_ portsrepo.TransactionLogRepositoryFacade = (*repo)(nil)
	_ portsrepo.BorrowerReader                 = (*repo)(nil)
	_ portsrepo.SettingsReader                 = (*repo)(nil)
	_ portsrepo.AuditRepository                = (*repo)(nil)
	_ portsrepo.TransactionManager             = (*Store)(nil)
)
