package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FineStatus is the settlement state of a fine.
type FineStatus string

const (
	FineUnpaid FineStatus = "Unpaid"
	FinePaid   FineStatus = "Paid"
	FineWaived FineStatus = "Waived"
)

// IsValid reports whether s is one of the known statuses.
func (s FineStatus) IsValid() bool {
	switch s {
	case FineUnpaid, FinePaid, FineWaived:
		return true
	}
	return false
}

// Fine is a financial liability raised by a return. Fines are never deleted.
type Fine struct {
	FineID               string          `json:"fineID"`
	ReceiptNumber        *string         `json:"receiptNumber,omitempty"`
	TransactionID        string          `json:"transactionID"` // originating history entry
	StudentID            *string         `json:"studentID,omitempty"`
	StudentNameSnapshot  string          `json:"studentNameSnapshot"`
	StudentRegNoSnapshot string          `json:"studentRegNoSnapshot"`
	Amount               decimal.Decimal `json:"amount"`
	Status               FineStatus      `json:"status"`
	IsPaid               bool            `json:"isPaid"`
	PaymentDate          *time.Time      `json:"paymentDate,omitempty"`
	CollectedBy          *string         `json:"collectedBy,omitempty"`
	PaymentMethod        *string         `json:"paymentMethod,omitempty"`
	Remark               string          `json:"remark"`
	CreatedAt            time.Time       `json:"createdAt"`
}

// IsUnpaid reports whether the fine is still collectible.
func (f Fine) IsUnpaid() bool {
	return f.Status == FineUnpaid
}

// FineFilter narrows fine listings. Empty fields are ignored.
type FineFilter struct {
	StudentID string
	Status    FineStatus
}
