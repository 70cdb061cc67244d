package domain

import "github.com/shopspring/decimal"

// BorrowerPolicy holds the per-class circulation limits.
type BorrowerPolicy struct {
	MaxBooks           int             `json:"maxBooks"`
	LoanDays           int             `json:"loanDays"`
	RenewalDays        int             `json:"renewalDays"`
	MaxRenewals        int             `json:"maxRenewals"`
	GracePeriod        int             `json:"gracePeriod"`
	BlockFineThreshold decimal.Decimal `json:"blockFineThreshold"`
}

// FinePolicy holds the global fine rules.
type FinePolicy struct {
	DailyFineRate     decimal.Decimal `json:"dailyFineRate"`
	DamagedFineAmount decimal.Decimal `json:"damagedFineAmount"`
	LostFineAmount    decimal.Decimal `json:"lostFineAmount"`
	// MaxFinePerStudent caps the overdue component of a single return, despite its name.
	// It is not a ceiling on a student's total outstanding fines: every return is capped
	// on its own and condition fines are never capped. Zero disables the cap.
	MaxFinePerStudent decimal.Decimal `json:"maxFinePerStudent"`
	// ApplyGracePeriod subtracts the class grace period from overdue days when set.
	ApplyGracePeriod bool `json:"applyGracePeriod"`
}

// DefaultBorrowerPolicy is used when no class policy is configured.
func DefaultBorrowerPolicy() BorrowerPolicy {
	return BorrowerPolicy{
		MaxBooks:           3,
		LoanDays:           14,
		RenewalDays:        7,
		MaxRenewals:        2,
		GracePeriod:        0,
		BlockFineThreshold: decimal.NewFromInt(100),
	}
}

// DefaultFinePolicy is used when no fine policy is configured.
func DefaultFinePolicy() FinePolicy {
	return FinePolicy{
		DailyFineRate:     decimal.NewFromInt(1),
		DamagedFineAmount: decimal.NewFromInt(100),
		LostFineAmount:    decimal.NewFromInt(500),
		MaxFinePerStudent: decimal.Zero,
	}
}

// PolicySnapshot is the single policy read used for the whole of one operation.
type PolicySnapshot struct {
	Class    string         `json:"class"`
	Borrower BorrowerPolicy `json:"borrower"`
	Fines    FinePolicy     `json:"fines"`
}

// RenewalExtension is the default number of days a renewal adds.
func (p PolicySnapshot) RenewalExtension() int {
	if p.Borrower.RenewalDays > 0 {
		return p.Borrower.RenewalDays
	}
	return p.Borrower.LoanDays
}

// ChargeableDays applies the grace period (when enabled) to raw overdue days.
func (p PolicySnapshot) ChargeableDays(overdueDays int) int {
	if overdueDays <= 0 {
		return 0
	}
	if p.Fines.ApplyGracePeriod && p.Borrower.GracePeriod > 0 {
		overdueDays -= p.Borrower.GracePeriod
		if overdueDays < 0 {
			return 0
		}
	}
	return overdueDays
}

// OverdueFine computes the overdue component for the given raw overdue days.
func (p PolicySnapshot) OverdueFine(overdueDays int) decimal.Decimal {
	days := p.ChargeableDays(overdueDays)
	if days == 0 {
		return decimal.Zero
	}
	fine := p.Fines.DailyFineRate.Mul(decimal.NewFromInt(int64(days)))
	if p.Fines.MaxFinePerStudent.IsPositive() && fine.GreaterThan(p.Fines.MaxFinePerStudent) {
		return p.Fines.MaxFinePerStudent
	}
	return fine
}

// ConditionFine returns the fine for a return condition, preferring override when given.
func (p PolicySnapshot) ConditionFine(cond ReturnCondition, override *decimal.Decimal) decimal.Decimal {
	switch cond {
	case ConditionDamaged:
		if override != nil {
			return *override
		}
		return p.Fines.DamagedFineAmount
	case ConditionLost:
		if override != nil {
			return *override
		}
		return p.Fines.LostFineAmount
	default:
		return decimal.Zero
	}
}
