package domain

import "time"

// EventType names a post-commit circulation event.
type EventType string

const (
	EventLoanIssued       EventType = "loan.issued"
	EventLoanReturned     EventType = "loan.returned"
	EventLoanRenewed      EventType = "loan.renewed"
	EventFinesCollected   EventType = "fine.collected"
	EventFineWaived       EventType = "fine.waived"
	EventFineEdited       EventType = "fine.edited"
	EventBorrowerDetached EventType = "borrower.detached"
)

// Modules used for audit records.
const (
	ModuleCirculation = "circulation"
	ModuleFines       = "fines"
)

// CirculationEvent is emitted after a unit of work commits. Subscribers (audit,
// notifications, realtime) consume it asynchronously.
type CirculationEvent struct {
	Type        EventType      `json:"type"`
	Module      string         `json:"module"`
	ActorID     string         `json:"actorID"`
	StudentID   string         `json:"studentID,omitempty"`
	Description string         `json:"description"`
	Payload     map[string]any `json:"payload,omitempty"`
	OccurredAt  time.Time      `json:"occurredAt"`
	// Recipient is set when the event should produce a borrower-facing receipt.
	Recipient *Borrower `json:"-"`
}

// AuditEntry is one record written by the audit sink.
type AuditEntry struct {
	AuditID     string         `json:"auditID"`
	ActorID     string         `json:"actorID"`
	ActionType  string         `json:"actionType"`
	Module      string         `json:"module"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
