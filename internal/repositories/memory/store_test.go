package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	"github.com/SscSPs/library_circulation_app/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	s.PutCatalogEntry(domain.CatalogMeta{CatalogRef: "cat-1", Title: "Dune", ISBN: "9780441013593"})
	require.NoError(t, s.PutCopy(domain.Copy{CopyID: "copy-1", CatalogRef: "cat-1", AccessionNumber: "ACC-1", Status: domain.CopyAvailable}))
	require.NoError(t, s.PutCopy(domain.Copy{CopyID: "copy-2", CatalogRef: "cat-1", AccessionNumber: "ACC-2", Status: domain.CopyAvailable}))
	return s
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	repos := s.Repositories()
	boom := errors.New("boom")

	err := s.WithTransaction(ctx, func(ctx context.Context, tx portsrepo.TxRepositories) error {
		require.NoError(t, tx.Copies.UpdateCopyStatus(ctx, "copy-1", domain.CopyAvailable, domain.CopyIssued, "staff", time.Now()))
		require.NoError(t, tx.Loans.SaveLoan(ctx, domain.Loan{LoanID: "loan-1", StudentID: "s-1", CopyID: "copy-1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := repos.CopyRepo.FindCopyByID(ctx, "copy-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CopyAvailable, c.Status)
	_, err = repos.LoanRepo.FindLoanByID(ctx, "loan-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestWithTransaction_UncommittedWritesAreInvisible(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	repos := s.Repositories()

	err := s.WithTransaction(ctx, func(ctx context.Context, tx portsrepo.TxRepositories) error {
		require.NoError(t, tx.Loans.SaveLoan(ctx, domain.Loan{LoanID: "loan-1", StudentID: "s-1", CopyID: "copy-1"}))

		n, err := repos.LoanRepo.CountActiveLoansByStudent(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, 0, n, "outside reader must not see the working copy")

		n, err = tx.Loans.CountActiveLoansByStudent(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return nil
	})
	require.NoError(t, err)

	n, err := repos.LoanRepo.CountActiveLoansByStudent(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCopyStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	err := s.WithTransaction(ctx, func(ctx context.Context, tx portsrepo.TxRepositories) error {
		return tx.Copies.UpdateCopyStatus(ctx, "copy-1", domain.CopyIssued, domain.CopyAvailable, "staff", time.Now())
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSaveLoan_RejectsSecondOpenLoanOnCopy(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	repos := s.Repositories()
	loans := repos.LoanRepo.(portsrepo.LoanRepositoryFacade)

	require.NoError(t, loans.SaveLoan(ctx, domain.Loan{LoanID: "loan-1", StudentID: "s-1", CopyID: "copy-1"}))
	err := loans.SaveLoan(ctx, domain.Loan{LoanID: "loan-2", StudentID: "s-2", CopyID: "copy-1"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestPutCopy_DuplicateAccession(t *testing.T) {
	s := seededStore(t)
	err := s.PutCopy(domain.Copy{CopyID: "copy-9", CatalogRef: "cat-1", AccessionNumber: "ACC-1", Status: domain.CopyAvailable})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestListEntries_PagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	history := s.Repositories().HistoryRepo.(portsrepo.TransactionLogRepositoryFacade)
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, history.AppendEntry(ctx, domain.TransactionLogEntry{
			EntryID:             fmt.Sprintf("e-%d", i),
			ActionType:          domain.ActionIssue,
			StudentNameSnapshot: "Asha Verma",
			Timestamp:           base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page1, next, err := history.ListEntries(ctx, domain.HistoryFilter{Search: "asha"}, 2, nil)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "e-4", page1[0].EntryID)
	assert.Equal(t, "e-3", page1[1].EntryID)

	page2, next, err := history.ListEntries(ctx, domain.HistoryFilter{}, 2, next)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, []string{"e-2", "e-1"}, []string{page2[0].EntryID, page2[1].EntryID})

	page3, next, err := history.ListEntries(ctx, domain.HistoryFilter{}, 2, next)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, page3, 1)
	assert.Equal(t, "e-0", page3[0].EntryID)

	bad := "%%%"
	_, _, err = history.ListEntries(ctx, domain.HistoryFilter{}, 2, &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	require.NoError(t, s.SeedDemo())
	repos := s.Repositories()

	c, err := repos.CopyRepo.FindCopyByAccession(ctx, "ACC-00004")
	require.NoError(t, err)
	assert.Equal(t, "cat-0002", c.CatalogRef)

	b, err := repos.BorrowerRepo.FindBorrowerByID(ctx, "fac-2001")
	require.NoError(t, err)
	assert.Equal(t, "faculty", b.Class())

	raw, ok, err := repos.SettingsRepo.GetSetting(ctx, "policy:faculty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, raw, `"maxBooks":10`)

	// a second seed collides on copy IDs
	assert.ErrorIs(t, s.SeedDemo(), apperrors.ErrDuplicate)
}

func TestListActiveLoans_OverdueNeedsAWholeDay(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	due := time.Date(2026, time.March, 16, 23, 59, 59, 0, time.UTC)
	require.NoError(t, s.Repositories().TxManager.WithTransaction(ctx, func(ctx context.Context, tx portsrepo.TxRepositories) error {
		return tx.Loans.SaveLoan(ctx, domain.Loan{LoanID: "loan-1", StudentID: "s-1", CopyID: "copy-1", IssueDate: due.AddDate(0, 0, -14), DueDate: due})
	}))
	loans := s.Repositories().LoanRepo

	got, err := loans.ListActiveLoans(ctx, domain.LoanFilter{OverdueOnly: true, AsOf: due.Add(23 * time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = loans.ListActiveLoans(ctx, domain.LoanFilter{OverdueOnly: true, AsOf: due.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "loan-1", got[0].LoanID)
}
