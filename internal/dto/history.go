package dto

import (
	"time"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
)

// ListHistoryParams filters and pages the transaction history.
type ListHistoryParams struct {
	ActionTypes []string `form:"actionType"`
	StudentID   string   `form:"studentID"`
	CopyID      string   `form:"copyID"`
	PerformedBy string   `form:"performedBy"`
	SessionID   string   `form:"sessionID"`
	ReceiptID   string   `form:"receiptID"`
	Search      string   `form:"q"`
	From        string   `form:"from"` // RFC3339
	To          string   `form:"to"`   // RFC3339
	Limit       int      `form:"limit,default=20"`
	NextToken   *string  `form:"nextToken"`
}

// HistoryEntryResponse defines the data returned for a history entry.
type HistoryEntryResponse struct {
	EntryID      string         `json:"entryID"`
	SessionID    string         `json:"sessionID"`
	ActionType   string         `json:"actionType"`
	StudentID    *string        `json:"studentID,omitempty"`
	StudentName  string         `json:"studentName"`
	StudentRegNo string         `json:"studentRegNo"`
	CopyID       *string        `json:"copyID,omitempty"`
	BookTitle    string         `json:"bookTitle"`
	BookISBN     string         `json:"bookISBN"`
	PerformedBy  string         `json:"performedBy"`
	Timestamp    time.Time      `json:"timestamp"`
	Details      map[string]any `json:"details"`
}

// ListHistoryResponse wraps a page of history entries.
type ListHistoryResponse struct {
	Entries   []HistoryEntryResponse `json:"entries"`
	NextToken *string                `json:"nextToken,omitempty"`
}

// ToHistoryEntryResponse converts a domain.TransactionLogEntry to its DTO.
func ToHistoryEntryResponse(e *domain.TransactionLogEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		EntryID:      e.EntryID,
		SessionID:    e.SessionID,
		ActionType:   string(e.ActionType),
		StudentID:    e.StudentID,
		StudentName:  e.StudentNameSnapshot,
		StudentRegNo: e.StudentRegNoSnapshot,
		CopyID:       e.CopyID,
		BookTitle:    e.BookTitleSnapshot,
		BookISBN:     e.BookISBNSnapshot,
		PerformedBy:  e.PerformedBy,
		Timestamp:    e.Timestamp,
		Details:      e.Details,
	}
}

// ToHistoryEntryResponses converts a slice of entries to DTOs.
func ToHistoryEntryResponses(entries []domain.TransactionLogEntry) []HistoryEntryResponse {
	responses := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = ToHistoryEntryResponse(&e)
	}
	return responses
}
