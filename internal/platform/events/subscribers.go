package events

import (
	"context"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	"github.com/SscSPs/library_circulation_app/internal/platform/notify"
	"github.com/google/uuid"
)

// AuditSubscriber writes one audit record per event.
type AuditSubscriber struct {
	Repo portsrepo.AuditRepository
}

func (s AuditSubscriber) Name() string { return "audit" }

func (s AuditSubscriber) Handle(ctx context.Context, event domain.CirculationEvent) error {
	return s.Repo.SaveAuditEntry(ctx, domain.AuditEntry{
		AuditID:     uuid.NewString(),
		ActorID:     event.ActorID,
		ActionType:  string(event.Type),
		Module:      event.Module,
		Description: event.Description,
		Metadata:    event.Payload,
		CreatedAt:   event.OccurredAt,
	})
}

// Broadcaster pushes a frame to connected consoles.
type Broadcaster interface {
	Broadcast(ctx context.Context, eventType string, payload any) error
}

// RealtimeSubscriber forwards every event to the consoles.
type RealtimeSubscriber struct {
	Hub Broadcaster
}

func (s RealtimeSubscriber) Name() string { return "realtime" }

func (s RealtimeSubscriber) Handle(ctx context.Context, event domain.CirculationEvent) error {
	return s.Hub.Broadcast(ctx, string(event.Type), event)
}

// ReceiptSender queues borrower-facing receipts.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, kind notify.Kind, borrower *domain.Borrower, details map[string]any) error
}

// ReceiptSubscriber sends a receipt for events that name a recipient.
type ReceiptSubscriber struct {
	Notifier ReceiptSender
}

func (s ReceiptSubscriber) Name() string { return "receipts" }

func (s ReceiptSubscriber) Handle(ctx context.Context, event domain.CirculationEvent) error {
	if event.Recipient == nil {
		return nil
	}
	var kind notify.Kind
	switch event.Type {
	case domain.EventLoanIssued:
		kind = notify.KindIssue
	case domain.EventLoanReturned:
		kind = notify.KindReturn
	case domain.EventFinesCollected:
		kind = notify.KindPayment
	default:
		return nil
	}
	return s.Notifier.SendReceipt(ctx, kind, event.Recipient, event.Payload)
}
