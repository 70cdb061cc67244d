package services

import (
	"context"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/SscSPs/library_circulation_app/internal/dto"
)

// HistorySvc exposes the transaction history.
type HistorySvc interface {
	// ListHistory searches history newest first.
	ListHistory(ctx context.Context, params dto.ListHistoryParams) (*dto.ListHistoryResponse, error)

	// GetReceipt rebuilds a payment receipt from FINE_PAID entries.
	GetReceipt(ctx context.Context, receiptID string) (*domain.Receipt, error)

	// ReconcileRenewals compares a loan's renewal counter with the RENEW entries in history.
	ReconcileRenewals(ctx context.Context, loanID string) (*domain.RenewalReconciliation, error)
}

// EventPublisher hands post-commit events to asynchronous subscribers. Publish must
// not block the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.CirculationEvent)
}
