package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan is an open circulation record. Its existence means the copy is out.
type Loan struct {
	LoanID          string     `json:"loanID"`
	StudentID       string     `json:"studentID"`
	CopyID          string     `json:"copyID"`
	IssuedBy        string     `json:"issuedBy"`
	IssueDate       time.Time  `json:"issueDate"`
	DueDate         time.Time  `json:"dueDate"`
	LastRenewedDate *time.Time `json:"lastRenewedDate,omitempty"`
	RenewalCount    int        `json:"renewalCount"`
}

// OverdueDays returns the number of whole days the loan is past due at now.
func (l Loan) OverdueDays(now time.Time) int {
	return OverdueDays(l.DueDate, now)
}

// ReturnCondition is the state a copy is handed back in.
type ReturnCondition string

const (
	ConditionGood    ReturnCondition = "Good"
	ConditionDamaged ReturnCondition = "Damaged"
	ConditionLost    ReturnCondition = "Lost"
)

// IsValid reports whether c is one of the known conditions.
func (c ReturnCondition) IsValid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionLost:
		return true
	}
	return false
}

// ResultingCopyStatus maps a return condition onto the copy's next status.
func (c ReturnCondition) ResultingCopyStatus() CopyStatus {
	switch c {
	case ConditionDamaged:
		return CopyMaintenance
	case ConditionLost:
		return CopyLost
	default:
		return CopyAvailable
	}
}

// ActiveLoan is a loan joined with its copy, title and borrower for display.
type ActiveLoan struct {
	Loan
	Copy          Copy            `json:"copy"`
	Catalog       CatalogMeta     `json:"catalog"`
	BorrowerName  string          `json:"borrowerName"`
	BorrowerRegNo string          `json:"borrowerRegNo"`
	OverdueDays   int             `json:"overdueDays"`
	ProjectedFine decimal.Decimal `json:"projectedFine"`
}

// LoanFilter narrows active-loan queries. Empty fields are ignored.
type LoanFilter struct {
	StudentID   string
	CopyID      string
	CatalogRef  string
	OverdueOnly bool
	AsOf        time.Time
}

// OverdueCutoff is the latest due date that is at least one whole day overdue at AsOf,
// the point from which OverdueDays reports a non-zero count.
func (f LoanFilter) OverdueCutoff() time.Time {
	return f.AsOf.Add(-day)
}
