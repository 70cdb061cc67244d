package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// IssueItemStatus is the outcome of one scan code in an issue batch.
type IssueItemStatus string

const (
	IssueSuccess IssueItemStatus = "Success"
	IssueFailed  IssueItemStatus = "Failed"
)

// IssueItemResult reports one scan code of an issue batch.
type IssueItemResult struct {
	Accession string          `json:"accession"`
	Status    IssueItemStatus `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	DueDate   *time.Time      `json:"dueDate,omitempty"`
	LoanID    string          `json:"loanID,omitempty"`
	CopyID    string          `json:"copyID,omitempty"`
}

// IssueResult is the per-item outcome of an issue call sharing one session.
type IssueResult struct {
	SessionID  string            `json:"sessionID"`
	BorrowerID string            `json:"borrowerID"`
	Items      []IssueItemResult `json:"items"`
	// Warnings carries advisory eligibility findings that did not block the issue.
	Warnings []string `json:"warnings"`
}

// SuccessCount returns how many items were issued.
func (r IssueResult) SuccessCount() int {
	n := 0
	for _, it := range r.Items {
		if it.Status == IssueSuccess {
			n++
		}
	}
	return n
}

// ReturnResult reports a completed return.
type ReturnResult struct {
	LoanID            string          `json:"loanID"`
	CopyStatus        CopyStatus      `json:"copyStatus"`
	OverdueDays       int             `json:"overdueDays"`
	FineGenerated     bool            `json:"fineGenerated"`
	FineAmount        decimal.Decimal `json:"fineAmount"`
	FineID            string          `json:"fineID,omitempty"`
	ReplacementCopyID string          `json:"replacementCopyID,omitempty"`
}

// RenewResult reports a completed renewal.
type RenewResult struct {
	LoanID       string    `json:"loanID"`
	NewDueDate   time.Time `json:"newDueDate"`
	RenewalsUsed int       `json:"renewalsUsed"`
	MaxRenewals  int       `json:"maxRenewals"`
}

// CollectionResult reports a batch fine payment.
type CollectionResult struct {
	ReceiptID      string          `json:"receiptID"`
	PaidFineIDs    []string        `json:"paidFineIDs"`
	SkippedFineIDs []string        `json:"skippedFineIDs"`
	TotalCollected decimal.Decimal `json:"totalCollected"`
}

// ReceiptLine is one paid fine reconstructed from history.
type ReceiptLine struct {
	EntryID     string          `json:"entryID"`
	FineID      string          `json:"fineID"`
	StudentName string          `json:"studentName"`
	RegNo       string          `json:"regNo"`
	BookTitle   string          `json:"bookTitle"`
	Amount      decimal.Decimal `json:"amount"`
}

// Receipt is a printable payment receipt rebuilt from FINE_PAID history entries.
type Receipt struct {
	ReceiptID     string          `json:"receiptID"`
	CollectedBy   string          `json:"collectedBy"`
	PaymentMethod string          `json:"paymentMethod"`
	PaidAt        time.Time       `json:"paidAt"`
	Lines         []ReceiptLine   `json:"lines"`
	Total         decimal.Decimal `json:"total"`
}

// RenewalReconciliation compares the stored renewal counter with the history scan.
type RenewalReconciliation struct {
	LoanID       string `json:"loanID"`
	Counter      int    `json:"counter"`
	HistoryCount int    `json:"historyCount"`
	Consistent   bool   `json:"consistent"`
}
