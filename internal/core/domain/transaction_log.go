package domain

import "time"

// ActionType identifies the kind of circulation or financial action recorded in history.
type ActionType string

const (
	ActionIssue      ActionType = "ISSUE"
	ActionReturn     ActionType = "RETURN"
	ActionRenew      ActionType = "RENEW"
	ActionFinePaid   ActionType = "FINE_PAID"
	ActionFineWaived ActionType = "FINE_WAIVED"
	ActionFineEdited ActionType = "FINE_EDITED"
)

// IsValid reports whether a is one of the known action types.
func (a ActionType) IsValid() bool {
	switch a {
	case ActionIssue, ActionReturn, ActionRenew, ActionFinePaid, ActionFineWaived, ActionFineEdited:
		return true
	}
	return false
}

// Details keys shared by writers and readers of history entries.
const (
	DetailReceiptID     = "receipt_id"
	DetailFineID        = "fine_id"
	DetailAmount        = "amount"
	DetailPaymentMethod = "payment_method"
)

// TransactionLogEntry is an immutable history record. StudentID and CopyID are soft
// references; the snapshot fields stay authoritative after the entity is deleted.
type TransactionLogEntry struct {
	EntryID              string         `json:"entryID"`
	SessionID            string         `json:"sessionID"`
	ActionType           ActionType     `json:"actionType"`
	StudentID            *string        `json:"studentID,omitempty"`
	StudentNameSnapshot  string         `json:"studentNameSnapshot"`
	StudentRegNoSnapshot string         `json:"studentRegNoSnapshot"`
	CopyID               *string        `json:"copyID,omitempty"`
	BookTitleSnapshot    string         `json:"bookTitleSnapshot"`
	BookISBNSnapshot     string         `json:"bookISBNSnapshot"`
	PerformedBy          string         `json:"performedBy"`
	Timestamp            time.Time      `json:"timestamp"`
	Details              map[string]any `json:"details"`
}

// DetailString returns a string-valued detail, or "" when absent.
func (e TransactionLogEntry) DetailString(key string) string {
	if e.Details == nil {
		return ""
	}
	if v, ok := e.Details[key].(string); ok {
		return v
	}
	return ""
}

// HistoryFilter narrows history searches. Empty fields are ignored.
type HistoryFilter struct {
	ActionTypes []ActionType
	StudentID   string
	CopyID      string
	PerformedBy string
	SessionID   string
	ReceiptID   string
	Search      string // matched against name, reg no, title and ISBN snapshots
	From        *time.Time
	To          *time.Time
}
