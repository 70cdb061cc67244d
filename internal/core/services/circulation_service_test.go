package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/SscSPs/library_circulation_app/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CirculationServiceTestSuite struct {
	suite.Suite
	fx  *fixture
	ctx context.Context
}

func (suite *CirculationServiceTestSuite) SetupTest() {
	suite.fx = newFixture(suite.T())
	suite.ctx = context.Background()
}

func (suite *CirculationServiceTestSuite) issue(codes ...string) *domain.IssueResult {
	res, err := suite.fx.container.Circulation.Issue(suite.ctx, dto.IssueRequest{
		BorrowerID: testStudentID,
		ScanCodes:  codes,
	}, testStaffID)
	suite.Require().NoError(err)
	return res
}

func (suite *CirculationServiceTestSuite) TestIssue_TwoAccessionsThenCeiling() {
	suite.fx.setPolicy(suite.T(), "student", `{"maxBooks":2,"loanDays":15}`)

	res := suite.issue("ACC-001", "ACC-002")

	suite.Require().Len(res.Items, 2)
	suite.NotEmpty(res.SessionID)
	wantDue := time.Date(2026, time.March, 17, 23, 59, 59, 0, time.UTC)
	for _, item := range res.Items {
		suite.Equal(domain.IssueSuccess, item.Status)
		suite.Require().NotNil(item.DueDate)
		suite.True(wantDue.Equal(*item.DueDate), "due date %s", item.DueDate)
		suite.NotEmpty(item.LoanID)
	}
	suite.Equal(domain.CopyIssued, suite.fx.copyStatus(suite.T(), "copy-ACC-001"))

	elig, err := suite.fx.container.Eligibility.Evaluate(suite.ctx, testStudentID)
	suite.Require().NoError(err)
	suite.Equal(2, elig.ActiveLoans)
	suite.False(elig.Eligible)
	suite.Contains(elig.BlockingReasons, domain.ReasonLoanLimit)

	_, err = suite.fx.container.Circulation.Issue(suite.ctx, dto.IssueRequest{
		BorrowerID: testStudentID,
		ScanCodes:  []string{"ACC-003"},
	}, testStaffID)
	suite.ErrorIs(err, apperrors.ErrPolicyViolation)
	suite.Equal(domain.CopyAvailable, suite.fx.copyStatus(suite.T(), "copy-ACC-003"))
	suite.fx.assertLoanCopyInvariant(suite.T(), allCopyIDs()...)
}

func (suite *CirculationServiceTestSuite) TestIssue_PartialFailureDoesNotAbortBatch() {
	res := suite.issue("ACC-001", "NOPE-999", "ACC-002")

	suite.Require().Len(res.Items, 3)
	suite.Equal(2, res.SuccessCount())
	suite.Equal(domain.IssueFailed, res.Items[1].Status)
	suite.Contains(res.Items[1].Reason, "no available copy")
	suite.Nil(res.Items[1].DueDate)
	suite.Equal(domain.IssueSuccess, res.Items[2].Status)

	history, err := suite.fx.container.History.ListHistory(suite.ctx, dto.ListHistoryParams{SessionID: res.SessionID})
	suite.Require().NoError(err)
	suite.Len(history.Entries, 2)
	for _, e := range history.Entries {
		suite.Equal(string(domain.ActionIssue), e.ActionType)
		suite.Equal("Asha Rao", e.StudentName)
		suite.Equal("The Go Programming Language", e.BookTitle)
	}
	suite.Equal([]domain.EventType{domain.EventLoanIssued}, suite.fx.events.Types())
	suite.NotNil(suite.fx.events.Last().Recipient)
}

func (suite *CirculationServiceTestSuite) TestIssue_CatalogRefPicksAvailableCopy() {
	res := suite.issue(testCatalogRef)

	suite.Require().Len(res.Items, 1)
	suite.Equal(domain.IssueSuccess, res.Items[0].Status)
	suite.Contains(res.Items[0].Accession, "ACC-")
	suite.Equal(domain.CopyIssued, suite.fx.copyStatus(suite.T(), res.Items[0].CopyID))
}

func (suite *CirculationServiceTestSuite) TestIssue_CopyAlreadyIssuedFailsItem() {
	suite.issue("ACC-001")

	res := suite.issue("ACC-001")
	suite.Require().Len(res.Items, 1)
	suite.Equal(domain.IssueFailed, res.Items[0].Status)
	suite.Contains(res.Items[0].Reason, "Issued")
	suite.fx.assertLoanCopyInvariant(suite.T(), allCopyIDs()...)
}

func (suite *CirculationServiceTestSuite) TestIssue_InactiveBorrowerRejected() {
	suite.fx.store.PutBorrower(domain.Borrower{BorrowerID: "stu-2", Name: "Gone", Status: domain.BorrowerSuspended})

	_, err := suite.fx.container.Circulation.Issue(suite.ctx, dto.IssueRequest{
		BorrowerID: "stu-2",
		ScanCodes:  []string{"ACC-001"},
	}, testStaffID)
	suite.ErrorIs(err, apperrors.ErrPolicyViolation)
}

func (suite *CirculationServiceTestSuite) TestIssue_UnknownBorrower() {
	_, err := suite.fx.container.Circulation.Issue(suite.ctx, dto.IssueRequest{
		BorrowerID: "missing",
		ScanCodes:  []string{"ACC-001"},
	}, testStaffID)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *CirculationServiceTestSuite) TestIssue_FineThresholdIsAdvisory() {
	suite.fx.setPolicy(suite.T(), "student", `{"blockFineThreshold":5}`)
	res := suite.issue("ACC-001")
	suite.fx.clock.Advance(24 * 24 * time.Hour) // nine days past due
	_, err := suite.fx.container.Circulation.Return(suite.ctx, res.Items[0].LoanID, dto.ReturnRequest{Condition: domain.ConditionGood}, testStaffID)
	suite.Require().NoError(err)

	res = suite.issue("ACC-002")
	suite.Equal(1, res.SuccessCount())
	suite.Require().Len(res.Warnings, 1)
	suite.Contains(res.Warnings[0], "exceeds threshold")
}

func (suite *CirculationServiceTestSuite) TestReturn_GoodOnTimeRoundTrip() {
	res := suite.issue("ACC-001")
	loanID := res.Items[0].LoanID
	suite.fx.clock.Advance(3 * 24 * time.Hour)

	out, err := suite.fx.container.Circulation.Return(suite.ctx, loanID, dto.ReturnRequest{Condition: domain.ConditionGood}, testStaffID)
	suite.Require().NoError(err)
	suite.False(out.FineGenerated)
	suite.True(out.FineAmount.IsZero())
	suite.Equal(domain.CopyAvailable, suite.fx.copyStatus(suite.T(), "copy-ACC-001"))

	_, err = suite.fx.store.Repositories().LoanRepo.FindLoanByID(suite.ctx, loanID)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	fines, err := suite.fx.container.Fine.ListFines(suite.ctx, dto.ListFinesParams{StudentID: testStudentID})
	suite.Require().NoError(err)
	suite.Empty(fines.Fines)
}

func (suite *CirculationServiceTestSuite) TestReturn_OverdueGoodCreatesFine() {
	suite.fx.setFinePolicy(suite.T(), `{"dailyFineRate":"1.00"}`)
	res := suite.issue("ACC-001")
	due := *res.Items[0].DueDate
	suite.fx.clock.Set(due.Add(10*24*time.Hour + time.Hour))

	out, err := suite.fx.container.Circulation.Return(suite.ctx, res.Items[0].LoanID, dto.ReturnRequest{Condition: domain.ConditionGood}, testStaffID)
	suite.Require().NoError(err)
	suite.True(out.FineGenerated)
	suite.Equal(10, out.OverdueDays)
	suite.Equal("10.00", out.FineAmount.StringFixed(2))
	suite.Equal(domain.CopyAvailable, suite.fx.copyStatus(suite.T(), "copy-ACC-001"))

	fine, err := suite.fx.container.Fine.GetFine(suite.ctx, out.FineID)
	suite.Require().NoError(err)
	suite.Equal(domain.FineUnpaid, fine.Status)
	suite.False(fine.IsPaid)
	suite.Equal("10.00", fine.Amount.StringFixed(2))
	suite.Require().NotNil(fine.ReceiptNumber)
	suite.Contains(*fine.ReceiptNumber, "FIN-")
	suite.Equal("REG-001", fine.StudentRegNoSnapshot)

	origin, err := suite.fx.store.Repositories().HistoryRepo.FindEntryByID(suite.ctx, fine.TransactionID)
	suite.Require().NoError(err)
	suite.Equal(domain.ActionReturn, origin.ActionType)
	suite.Equal("10.00", origin.DetailString("fine_amount"))
}

func (suite *CirculationServiceTestSuite) TestReturn_LostWithReplacement() {
	res := suite.issue("ACC-001")
	due := *res.Items[0].DueDate
	suite.fx.clock.Set(due.Add(5*24*time.Hour + time.Minute))

	out, err := suite.fx.container.Circulation.Return(suite.ctx, res.Items[0].LoanID, dto.ReturnRequest{
		Condition:            domain.ConditionLost,
		ReplacementGiven:     true,
		ReplacementAccession: "ACC-900",
	}, testStaffID)
	suite.Require().NoError(err)
	suite.Equal("505.00", out.FineAmount.StringFixed(2))
	suite.Equal(domain.CopyLost, out.CopyStatus)
	suite.Equal(domain.CopyLost, suite.fx.copyStatus(suite.T(), "copy-ACC-001"))
	suite.Require().NotEmpty(out.ReplacementCopyID)
	suite.NotEqual("copy-ACC-001", out.ReplacementCopyID)

	replacement, err := suite.fx.store.Repositories().CopyRepo.FindCopyByAccession(suite.ctx, "ACC-900")
	suite.Require().NoError(err)
	suite.Equal(domain.CopyAvailable, replacement.Status)
	suite.Equal(testCatalogRef, replacement.CatalogRef)
}

func (suite *CirculationServiceTestSuite) TestReturn_DamagedOverrideAndRemark() {
	res := suite.issue("ACC-001")
	override := decimal.RequireFromString("42.50")

	out, err := suite.fx.container.Circulation.Return(suite.ctx, res.Items[0].LoanID, dto.ReturnRequest{
		Condition:    domain.ConditionDamaged,
		FineOverride: &override,
	}, testStaffID)
	suite.Require().NoError(err)
	suite.Equal("42.50", out.FineAmount.StringFixed(2))
	suite.Equal(domain.CopyMaintenance, suite.fx.copyStatus(suite.T(), "copy-ACC-001"))

	fine, err := suite.fx.container.Fine.GetFine(suite.ctx, out.FineID)
	suite.Require().NoError(err)
	suite.Contains(fine.Remark, "Damaged")
}

func (suite *CirculationServiceTestSuite) TestReturn_ReplacementRequiresLost() {
	res := suite.issue("ACC-001")

	_, err := suite.fx.container.Circulation.Return(suite.ctx, res.Items[0].LoanID, dto.ReturnRequest{
		Condition:            domain.ConditionGood,
		ReplacementAccession: "ACC-900",
	}, testStaffID)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Equal(domain.CopyIssued, suite.fx.copyStatus(suite.T(), "copy-ACC-001"))
}

func (suite *CirculationServiceTestSuite) TestReturn_DuplicateReplacementRollsBack() {
	res := suite.issue("ACC-001")

	_, err := suite.fx.container.Circulation.Return(suite.ctx, res.Items[0].LoanID, dto.ReturnRequest{
		Condition:            domain.ConditionLost,
		ReplacementGiven:     true,
		ReplacementAccession: "ACC-002",
	}, testStaffID)
	suite.ErrorIs(err, apperrors.ErrDuplicate)

	suite.Equal(domain.CopyIssued, suite.fx.copyStatus(suite.T(), "copy-ACC-001"))
	_, err = suite.fx.store.Repositories().LoanRepo.FindLoanByID(suite.ctx, res.Items[0].LoanID)
	suite.NoError(err)
	suite.fx.assertLoanCopyInvariant(suite.T(), allCopyIDs()...)
}

func (suite *CirculationServiceTestSuite) TestReturn_TwiceIsNotFoundWithoutSecondFine() {
	res := suite.issue("ACC-001")
	suite.fx.clock.Set(res.Items[0].DueDate.Add(3 * 24 * time.Hour))
	loanID := res.Items[0].LoanID

	first, err := suite.fx.container.Circulation.Return(suite.ctx, loanID, dto.ReturnRequest{Condition: domain.ConditionGood}, testStaffID)
	suite.Require().NoError(err)
	suite.True(first.FineGenerated)

	_, err = suite.fx.container.Circulation.Return(suite.ctx, loanID, dto.ReturnRequest{Condition: domain.ConditionGood}, testStaffID)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	fines, err := suite.fx.container.Fine.ListFines(suite.ctx, dto.ListFinesParams{StudentID: testStudentID})
	suite.Require().NoError(err)
	suite.Len(fines.Fines, 1)
}

func (suite *CirculationServiceTestSuite) TestReturn_DeletedBorrowerStillCloses() {
	res := suite.issue("ACC-001")
	suite.fx.store.DeleteBorrower(testStudentID)

	out, err := suite.fx.container.Circulation.Return(suite.ctx, res.Items[0].LoanID, dto.ReturnRequest{Condition: domain.ConditionGood}, testStaffID)
	suite.Require().NoError(err)
	suite.Equal(domain.CopyAvailable, out.CopyStatus)
}

func (suite *CirculationServiceTestSuite) TestRenew_CeilingReached() {
	suite.fx.setPolicy(suite.T(), "student", `{"maxRenewals":1,"renewalDays":7}`)
	res := suite.issue("ACC-001")
	loanID := res.Items[0].LoanID
	oldDue := *res.Items[0].DueDate
	suite.fx.clock.Advance(time.Hour)

	first, err := suite.fx.container.Circulation.Renew(suite.ctx, loanID, dto.RenewRequest{}, testStaffID)
	suite.Require().NoError(err)
	suite.Equal(1, first.RenewalsUsed)
	suite.Equal(1, first.MaxRenewals)
	suite.True(oldDue.AddDate(0, 0, 7).Equal(first.NewDueDate))

	_, err = suite.fx.container.Circulation.Renew(suite.ctx, loanID, dto.RenewRequest{}, testStaffID)
	suite.Require().ErrorIs(err, apperrors.ErrPolicyViolation)
	suite.Contains(err.Error(), "max renewals reached (1/1)")

	loan, err := suite.fx.store.Repositories().LoanRepo.FindLoanByID(suite.ctx, loanID)
	suite.Require().NoError(err)
	suite.Equal(1, loan.RenewalCount)
	suite.LessOrEqual(loan.RenewalCount, 1)

	rec, err := suite.fx.container.History.ReconcileRenewals(suite.ctx, loanID)
	suite.Require().NoError(err)
	suite.True(rec.Consistent)
	suite.Equal(1, rec.HistoryCount)
}

func (suite *CirculationServiceTestSuite) TestRenew_ExplicitDueDate() {
	res := suite.issue("ACC-001")
	loanID := res.Items[0].LoanID
	target := res.Items[0].DueDate.AddDate(0, 0, 10)

	out, err := suite.fx.container.Circulation.Renew(suite.ctx, loanID, dto.RenewRequest{NewDueDate: &target}, testStaffID)
	suite.Require().NoError(err)
	suite.Equal(target.Format("2006-01-02"), out.NewDueDate.Format("2006-01-02"))
	suite.Equal(23, out.NewDueDate.Hour())

	earlier := res.Items[0].DueDate.AddDate(0, 0, -1)
	_, err = suite.fx.container.Circulation.Renew(suite.ctx, loanID, dto.RenewRequest{NewDueDate: &earlier}, testStaffID)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *CirculationServiceTestSuite) TestRenew_BothInputsRejected() {
	res := suite.issue("ACC-001")
	days := 3
	target := time.Now().AddDate(0, 1, 0)

	_, err := suite.fx.container.Circulation.Renew(suite.ctx, res.Items[0].LoanID, dto.RenewRequest{ExtendDays: &days, NewDueDate: &target}, testStaffID)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *CirculationServiceTestSuite) TestListActiveLoans_ProjectsOverdueFine() {
	res := suite.issue("ACC-001", "ACC-002")
	suite.fx.clock.Set(res.Items[0].DueDate.Add(4*24*time.Hour + time.Hour))

	loans, err := suite.fx.container.Circulation.ListActiveLoans(suite.ctx, dto.ListLoansParams{StudentID: testStudentID, Overdue: true})
	suite.Require().NoError(err)
	suite.Require().Len(loans, 2)
	for _, l := range loans {
		suite.Equal(4, l.OverdueDays)
		suite.Equal("4.00", l.ProjectedFine.StringFixed(2))
		suite.Equal("Asha Rao", l.BorrowerName)
		suite.Equal("The Go Programming Language", l.Catalog.Title)
	}

	none, err := suite.fx.container.Circulation.ListActiveLoans(suite.ctx, dto.ListLoansParams{StudentID: "nobody"})
	suite.Require().NoError(err)
	suite.NotNil(none)
	suite.Empty(none)
}

func (suite *CirculationServiceTestSuite) TestConcurrentIssueAndReturnKeepInvariant() {
	suite.fx.setPolicy(suite.T(), "student", `{"maxBooks":5}`)
	res := suite.issue("ACC-001", "ACC-002")

	var wg sync.WaitGroup
	for _, item := range res.Items {
		wg.Add(1)
		go func(loanID string) {
			defer wg.Done()
			_, _ = suite.fx.container.Circulation.Return(suite.ctx, loanID, dto.ReturnRequest{Condition: domain.ConditionGood}, testStaffID)
		}(item.LoanID)
	}
	for _, code := range []string{"ACC-003", "ACC-004", "ACC-001"} {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			_, _ = suite.fx.container.Circulation.Issue(suite.ctx, dto.IssueRequest{BorrowerID: testStudentID, ScanCodes: []string{code}}, testStaffID)
		}(code)
	}
	wg.Wait()

	suite.fx.assertLoanCopyInvariant(suite.T(), allCopyIDs()...)
	count, err := suite.fx.store.Repositories().LoanRepo.CountActiveLoansByStudent(suite.ctx, testStudentID)
	suite.Require().NoError(err)
	suite.LessOrEqual(count, 5)
}

func (suite *CirculationServiceTestSuite) TestConcurrentIssueRespectsCeiling() {
	suite.fx.setPolicy(suite.T(), "student", `{"maxBooks":2}`)

	var wg sync.WaitGroup
	for _, code := range []string{"ACC-001", "ACC-002", "ACC-003", "ACC-004"} {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			_, _ = suite.fx.container.Circulation.Issue(suite.ctx, dto.IssueRequest{BorrowerID: testStudentID, ScanCodes: []string{code}}, testStaffID)
		}(code)
	}
	wg.Wait()

	count, err := suite.fx.store.Repositories().LoanRepo.CountActiveLoansByStudent(suite.ctx, testStudentID)
	suite.Require().NoError(err)
	suite.Equal(2, count)
	suite.fx.assertLoanCopyInvariant(suite.T(), allCopyIDs()...)
}

func TestCirculationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CirculationServiceTestSuite))
}
