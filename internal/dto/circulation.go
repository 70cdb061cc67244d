package dto

import (
	"time"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// IssueRequest issues one or more copies to a borrower in a single session.
type IssueRequest struct {
	BorrowerID string   `json:"borrowerID" binding:"required"`
	ScanCodes  []string `json:"scanCodes" binding:"required,min=1,max=20,dive,required"` // accession numbers or catalog refs
}

// ReturnRequest closes a loan.
type ReturnRequest struct {
	Condition            domain.ReturnCondition `json:"condition" binding:"required,returncondition"`
	Remarks              string                 `json:"remarks"`
	FineOverride         *decimal.Decimal       `json:"fineOverride,omitempty"`
	ReplacementGiven     bool                   `json:"replacementGiven"`
	ReplacementAccession string                 `json:"replacementAccession,omitempty"`
}

// RenewRequest extends a loan. At most one of ExtendDays and NewDueDate may be set;
// with neither, the class renewal period applies.
type RenewRequest struct {
	ExtendDays *int       `json:"extendDays,omitempty" binding:"omitempty,min=1,max=365"`
	NewDueDate *time.Time `json:"newDueDate,omitempty"`
}

// ListLoansParams filters active-loan queries.
type ListLoansParams struct {
	StudentID  string `form:"studentID"`
	CopyID     string `form:"copyID"`
	CatalogRef string `form:"catalogRef"`
	Overdue    bool   `form:"overdue"`
}

// ListActiveLoansResponse wraps the list of active loans.
type ListActiveLoansResponse struct {
	Loans []domain.ActiveLoan `json:"loans"`
}
