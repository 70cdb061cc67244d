package dto

import (
	"time"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CollectFinesRequest pays a batch of fines under one receipt.
type CollectFinesRequest struct {
	FineIDs       []string `json:"fineIDs" binding:"required,min=1,dive,required"`
	PaymentMethod string   `json:"paymentMethod" binding:"required,max=30"`
}

// WaiveFineRequest waives a fine.
type WaiveFineRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// EditFineRequest changes a fine's amount.
type EditFineRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

// ListFinesParams filters and pages fine listings.
type ListFinesParams struct {
	StudentID string  `form:"studentID"`
	Status    string  `form:"status" binding:"omitempty,oneof=Unpaid Paid Waived"`
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"nextToken"`
}

// FineResponse defines the data returned for a fine.
type FineResponse struct {
	FineID        string          `json:"fineID"`
	ReceiptNumber *string         `json:"receiptNumber,omitempty"`
	TransactionID string          `json:"transactionID"`
	StudentID     *string         `json:"studentID,omitempty"`
	StudentName   string          `json:"studentName"`
	StudentRegNo  string          `json:"studentRegNo"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	IsPaid        bool            `json:"isPaid"`
	PaymentDate   *time.Time      `json:"paymentDate,omitempty"`
	CollectedBy   *string         `json:"collectedBy,omitempty"`
	PaymentMethod *string         `json:"paymentMethod,omitempty"`
	Remark        string          `json:"remark"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ListFinesResponse wraps a page of fines.
type ListFinesResponse struct {
	Fines     []FineResponse `json:"fines"`
	NextToken *string        `json:"nextToken,omitempty"`
}

// DetachBorrowerResponse reports how many fines were detached from a deleted borrower.
type DetachBorrowerResponse struct {
	BorrowerID    string `json:"borrowerID"`
	FinesDetached int64  `json:"finesDetached"`
}

// ToFineResponse converts a domain.Fine to FineResponse DTO.
func ToFineResponse(f *domain.Fine) FineResponse {
	return FineResponse{
		FineID:        f.FineID,
		ReceiptNumber: f.ReceiptNumber,
		TransactionID: f.TransactionID,
		StudentID:     f.StudentID,
		StudentName:   f.StudentNameSnapshot,
		StudentRegNo:  f.StudentRegNoSnapshot,
		Amount:        f.Amount,
		Status:        string(f.Status),
		IsPaid:        f.IsPaid,
		PaymentDate:   f.PaymentDate,
		CollectedBy:   f.CollectedBy,
		PaymentMethod: f.PaymentMethod,
		Remark:        f.Remark,
		CreatedAt:     f.CreatedAt,
	}
}

// ToFineResponses converts a slice of domain.Fine to []FineResponse.
func ToFineResponses(fines []domain.Fine) []FineResponse {
	responses := make([]FineResponse, len(fines))
	for i, f := range fines {
		responses[i] = ToFineResponse(&f)
	}
	return responses
}
