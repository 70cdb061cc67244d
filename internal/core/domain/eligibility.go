package domain

import "github.com/shopspring/decimal"

// Blocking reasons reported by an eligibility evaluation.
const (
	ReasonStatus        = "status"
	ReasonLoanLimit     = "max_books"
	ReasonFineThreshold = "fine_threshold"
)

// Eligibility is the advisory result of evaluating a borrower.
type Eligibility struct {
	BorrowerID            string          `json:"borrowerID"`
	Eligible              bool            `json:"eligible"`
	ActiveLoans           int             `json:"activeLoans"`
	MaxBooks              int             `json:"maxBooks"`
	UnpaidFines           decimal.Decimal `json:"unpaidFines"`
	ProjectedOverdueFines decimal.Decimal `json:"projectedOverdueFines"`
	TotalLiability        decimal.Decimal `json:"totalLiability"`
	BlockFineThreshold    decimal.Decimal `json:"blockFineThreshold"`
	BlockingReasons       []string        `json:"blockingReasons"`
}
