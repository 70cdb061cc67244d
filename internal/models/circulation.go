package models

import "time"

// Copy is the copies row.
type Copy struct {
	CopyID          string `json:"copyID"`
	CatalogRef      string `json:"catalogRef"`
	AccessionNumber string `json:"accessionNumber"`
	Status          string `json:"status"`
	AuditFields
}

// Loan is the loans row. A row exists only while the copy is out.
type Loan struct {
	LoanID          string     `json:"loanID"`
	StudentID       string     `json:"studentID"`
	CopyID          string     `json:"copyID"`
	IssuedBy        string     `json:"issuedBy"`
	IssueDate       time.Time  `json:"issueDate"`
	DueDate         time.Time  `json:"dueDate"`
	LastRenewedDate *time.Time `json:"lastRenewedDate"` // Nullable
	RenewalCount    int        `json:"renewalCount"`
}
