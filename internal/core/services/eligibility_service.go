package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/library_circulation_app/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

type eligibilityService struct {
	BaseService
	borrowers portsrepo.BorrowerReader
	loans     portsrepo.LoanReader
	fines     portsrepo.FineReader
	policies  portssvc.PolicySvc
}

// NewEligibilityService creates the advisory borrower evaluator.
func NewEligibilityService(
	borrowers portsrepo.BorrowerReader,
	loans portsrepo.LoanReader,
	fines portsrepo.FineReader,
	policies portssvc.PolicySvc,
	options ...ServiceOption,
) portssvc.EligibilitySvc {
	svc := &eligibilityService{
		borrowers: borrowers,
		loans:     loans,
		fines:     fines,
		policies:  policies,
	}
	svc.apply(options)
	return svc
}

var _ portssvc.EligibilitySvc = (*eligibilityService)(nil)

func (s *eligibilityService) Evaluate(ctx context.Context, borrowerID string) (*domain.Eligibility, error) {
	borrower, err := s.borrowers.FindBorrowerByID(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policies.Resolve(ctx, borrower.Class())
	if err != nil {
		return nil, err
	}
	loans, err := s.loans.ListLoansByStudent(ctx, borrowerID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list loans for eligibility", slog.String("borrower_id", borrowerID))
		return nil, err
	}
	unpaid, err := s.fines.SumUnpaidFinesByStudent(ctx, borrowerID)
	if err != nil {
		s.LogError(ctx, err, "Failed to sum unpaid fines for eligibility", slog.String("borrower_id", borrowerID))
		return nil, err
	}

	result := assessEligibility(borrower, policy, loans, unpaid, s.now())
	s.LogDebug(ctx, "Borrower evaluated",
		slog.String("borrower_id", borrowerID),
		slog.Bool("eligible", result.Eligible),
		slog.Any("blocking_reasons", result.BlockingReasons))
	return result, nil
}

// assessEligibility is the pure evaluation shared by Evaluate and Issue. Projected
// accrual is an estimate only and is never persisted.
func assessEligibility(b *domain.Borrower, policy domain.PolicySnapshot, loans []domain.Loan, unpaid decimal.Decimal, now time.Time) *domain.Eligibility {
	projected := decimal.Zero
	for _, l := range loans {
		projected = projected.Add(policy.OverdueFine(l.OverdueDays(now)))
	}
	total := unpaid.Add(projected)

	result := &domain.Eligibility{
		BorrowerID:            b.BorrowerID,
		ActiveLoans:           len(loans),
		MaxBooks:              policy.Borrower.MaxBooks,
		UnpaidFines:           unpaid,
		ProjectedOverdueFines: projected,
		TotalLiability:        total,
		BlockFineThreshold:    policy.Borrower.BlockFineThreshold,
		BlockingReasons:       []string{},
	}
	if !b.IsActive() {
		result.BlockingReasons = append(result.BlockingReasons, domain.ReasonStatus)
	}
	if len(loans) >= policy.Borrower.MaxBooks {
		result.BlockingReasons = append(result.BlockingReasons, domain.ReasonLoanLimit)
	}
	if total.GreaterThan(policy.Borrower.BlockFineThreshold) {
		result.BlockingReasons = append(result.BlockingReasons, domain.ReasonFineThreshold)
	}
	result.Eligible = len(result.BlockingReasons) == 0
	return result
}
