package models

import "time"

// TransactionLog is the transaction_logs row. Details is the raw JSONB payload.
type TransactionLog struct {
	EntryID              string    `json:"entryID"`
	SessionID            string    `json:"sessionID"`
	ActionType           string    `json:"actionType"`
	StudentID            *string   `json:"studentID"` // soft reference
	StudentNameSnapshot  string    `json:"studentNameSnapshot"`
	StudentRegNoSnapshot string    `json:"studentRegNoSnapshot"`
	CopyID               *string   `json:"copyID"` // soft reference
	BookTitleSnapshot    string    `json:"bookTitleSnapshot"`
	BookISBNSnapshot     string    `json:"bookISBNSnapshot"`
	PerformedBy          string    `json:"performedBy"`
	LoggedAt             time.Time `json:"loggedAt"`
	Details              []byte    `json:"details"`
}

// AuditLog is the audit_logs row.
type AuditLog struct {
	AuditID     string    `json:"auditID"`
	ActorID     string    `json:"actorID"`
	ActionType  string    `json:"actionType"`
	Module      string    `json:"module"`
	Description string    `json:"description"`
	Metadata    []byte    `json:"metadata"`
	CreatedAt   time.Time `json:"createdAt"`
}
