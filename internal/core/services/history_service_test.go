package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/SscSPs/library_circulation_app/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryService_FilterValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		params dto.ListHistoryParams
	}{
		{"unknown action", dto.ListHistoryParams{ActionTypes: []string{"ISSUE,BORROW"}}},
		{"bad from", dto.ListHistoryParams{From: "yesterday"}},
		{"inverted range", dto.ListHistoryParams{From: "2026-03-02T00:00:00Z", To: "2026-03-01T00:00:00Z"}},
		{"bad token", dto.ListHistoryParams{NextToken: strPtr("%%%")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.container.History.ListHistory(ctx, tt.params)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestHistoryService_DateRangeAndActions(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	res, err := fx.container.Circulation.Issue(ctx, dto.IssueRequest{BorrowerID: testStudentID, ScanCodes: []string{"ACC-001"}}, testStaffID)
	require.NoError(t, err)
	fx.clock.Advance(48 * time.Hour)
	_, err = fx.container.Circulation.Renew(ctx, res.Items[0].LoanID, dto.RenewRequest{}, testStaffID)
	require.NoError(t, err)
	fx.clock.Advance(48 * time.Hour)
	_, err = fx.container.Circulation.Return(ctx, res.Items[0].LoanID, dto.ReturnRequest{Condition: domain.ConditionGood}, testStaffID)
	require.NoError(t, err)

	all, err := fx.container.History.ListHistory(ctx, dto.ListHistoryParams{})
	require.NoError(t, err)
	require.Len(t, all.Entries, 3)
	assert.Equal(t, "RETURN", all.Entries[0].ActionType)
	assert.Equal(t, "ISSUE", all.Entries[2].ActionType)

	from := fixtureStart.Add(24 * time.Hour).Format(time.RFC3339)
	to := fixtureStart.Add(72 * time.Hour).Format(time.RFC3339)
	window, err := fx.container.History.ListHistory(ctx, dto.ListHistoryParams{From: from, To: to})
	require.NoError(t, err)
	require.Len(t, window.Entries, 1)
	assert.Equal(t, "RENEW", window.Entries[0].ActionType)

	issuesAndReturns, err := fx.container.History.ListHistory(ctx, dto.ListHistoryParams{ActionTypes: []string{"ISSUE", "RETURN"}})
	require.NoError(t, err)
	assert.Len(t, issuesAndReturns.Entries, 2)
}

func TestHistoryService_GetReceiptNotFound(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.container.History.GetReceipt(context.Background(), "RCP-20260101-DEADBEEF")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHistoryService_ReconcileUnknownLoan(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.container.History.ReconcileRenewals(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEligibilityService_ProjectsOverdueLiability(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.setPolicy(t, "student", `{"blockFineThreshold":"2.00"}`)

	res, err := fx.container.Circulation.Issue(ctx, dto.IssueRequest{BorrowerID: testStudentID, ScanCodes: []string{"ACC-001"}}, testStaffID)
	require.NoError(t, err)

	elig, err := fx.container.Eligibility.Evaluate(ctx, testStudentID)
	require.NoError(t, err)
	assert.True(t, elig.Eligible)
	assert.Empty(t, elig.BlockingReasons)

	fx.clock.Set(res.Items[0].DueDate.Add(3*24*time.Hour + time.Hour))
	elig, err = fx.container.Eligibility.Evaluate(ctx, testStudentID)
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
	assert.Equal(t, "3.00", elig.ProjectedOverdueFines.StringFixed(2))
	assert.True(t, elig.UnpaidFines.IsZero())
	assert.Equal(t, []string{domain.ReasonFineThreshold}, elig.BlockingReasons)

	// projections are never persisted
	fines, err := fx.container.Fine.ListFines(ctx, dto.ListFinesParams{})
	require.NoError(t, err)
	assert.Empty(t, fines.Fines)
}

func TestEligibilityService_InactiveBorrower(t *testing.T) {
	fx := newFixture(t)
	fx.store.PutBorrower(domain.Borrower{BorrowerID: "stu-9", Name: "Left", Status: domain.BorrowerInactive})

	elig, err := fx.container.Eligibility.Evaluate(context.Background(), "stu-9")
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
	assert.Equal(t, []string{domain.ReasonStatus}, elig.BlockingReasons)
}

func strPtr(s string) *string {
	return &s
}
