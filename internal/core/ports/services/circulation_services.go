package services

import (
	"context"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/SscSPs/library_circulation_app/internal/dto"
)

// PolicySvc resolves the policy for one operation.
type PolicySvc interface {
	// Resolve reads the class and global fine policy once. Values are never cached, so a
	// settings change applies to the next operation.
	Resolve(ctx context.Context, policyClass string) (domain.PolicySnapshot, error)
}

// EligibilitySvc evaluates whether a borrower may receive more loans.
type EligibilitySvc interface {
	// Evaluate returns the advisory eligibility figures for a borrower.
	Evaluate(ctx context.Context, borrowerID string) (*domain.Eligibility, error)
}

// CirculationReaderSvc defines read operations over active loans
type CirculationReaderSvc interface {
	// ListActiveLoans lists open loans with computed overdue figures.
	ListActiveLoans(ctx context.Context, params dto.ListLoansParams) ([]domain.ActiveLoan, error)
}

// CirculationWriterSvc defines the loan state machine
type CirculationWriterSvc interface {
	// Issue issues each scan code independently and reports per-item outcomes.
	Issue(ctx context.Context, req dto.IssueRequest, actorID string) (*domain.IssueResult, error)

	// Return closes a loan, computes fines and updates the copy.
	Return(ctx context.Context, loanID string, req dto.ReturnRequest, actorID string) (*domain.ReturnResult, error)

	// Renew extends a loan's due date within the renewal ceiling.
	Renew(ctx context.Context, loanID string, req dto.RenewRequest, actorID string) (*domain.RenewResult, error)
}

// CirculationSvcFacade combines all circulation service interfaces
type CirculationSvcFacade interface {
	CirculationReaderSvc
	CirculationWriterSvc
}
