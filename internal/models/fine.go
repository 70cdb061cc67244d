package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fine is the fines row. StudentID is nulled when the borrower is detached.
type Fine struct {
	FineID               string          `json:"fineID"`
	ReceiptNumber        *string         `json:"receiptNumber"` // Nullable
	TransactionID        string          `json:"transactionID"`
	StudentID            *string         `json:"studentID"` // Nullable
	StudentNameSnapshot  string          `json:"studentNameSnapshot"`
	StudentRegNoSnapshot string          `json:"studentRegNoSnapshot"`
	Amount               decimal.Decimal `json:"amount"` // NUMERIC(12,2)
	Status               string          `json:"status"`
	IsPaid               bool            `json:"isPaid"`
	PaymentDate          *time.Time      `json:"paymentDate"`
	CollectedBy          *string         `json:"collectedBy"`
	PaymentMethod        *string         `json:"paymentMethod"`
	Remark               string          `json:"remark"`
	CreatedAt            time.Time       `json:"createdAt"`
}
