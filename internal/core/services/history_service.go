package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/library_circulation_app/internal/core/ports/services"
	"github.com/SscSPs/library_circulation_app/internal/dto"
	"github.com/SscSPs/library_circulation_app/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

type historyService struct {
	BaseService
	history portsrepo.TransactionLogReader
	loans   portsrepo.LoanReader
}

// NewHistoryService creates the read side of the transaction history.
func NewHistoryService(history portsrepo.TransactionLogReader, loans portsrepo.LoanReader, options ...ServiceOption) portssvc.HistorySvc {
	svc := &historyService{history: history, loans: loans}
	svc.apply(options)
	return svc
}

var _ portssvc.HistorySvc = (*historyService)(nil)

func (s *historyService) ListHistory(ctx context.Context, params dto.ListHistoryParams) (*dto.ListHistoryResponse, error) {
	filter, err := historyFilter(params)
	if err != nil {
		return nil, err
	}

	entries, next, err := s.history.ListEntries(ctx, filter, pagination.ClampLimit(params.Limit), params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list history")
		return nil, err
	}
	return &dto.ListHistoryResponse{
		Entries:   dto.ToHistoryEntryResponses(entries),
		NextToken: next,
	}, nil
}

func historyFilter(params dto.ListHistoryParams) (domain.HistoryFilter, error) {
	filter := domain.HistoryFilter{
		StudentID:   strings.TrimSpace(params.StudentID),
		CopyID:      strings.TrimSpace(params.CopyID),
		PerformedBy: strings.TrimSpace(params.PerformedBy),
		SessionID:   strings.TrimSpace(params.SessionID),
		ReceiptID:   strings.TrimSpace(params.ReceiptID),
		Search:      strings.TrimSpace(params.Search),
	}
	for _, raw := range params.ActionTypes {
		// accepts repeated params as well as a comma separated list
		for _, a := range strings.Split(raw, ",") {
			a = strings.ToUpper(strings.TrimSpace(a))
			if a == "" {
				continue
			}
			action := domain.ActionType(a)
			if !action.IsValid() {
				return filter, fmt.Errorf("%w: unknown action type %q", apperrors.ErrValidation, a)
			}
			filter.ActionTypes = append(filter.ActionTypes, action)
		}
	}

	var err error
	if filter.From, err = parseBound("from", params.From); err != nil {
		return filter, err
	}
	if filter.To, err = parseBound("to", params.To); err != nil {
		return filter, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, fmt.Errorf("%w: 'to' must not be before 'from'", apperrors.ErrValidation)
	}
	return filter, nil
}

func parseBound(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s' must be an RFC3339 timestamp", apperrors.ErrValidation, name)
	}
	return &t, nil
}

// GetReceipt rebuilds a receipt from the FINE_PAID entries sharing its id. There is
// no receipts table.
func (s *historyService) GetReceipt(ctx context.Context, receiptID string) (*domain.Receipt, error) {
	receiptID = strings.TrimSpace(receiptID)
	if receiptID == "" {
		return nil, fmt.Errorf("%w: receipt ID is required", apperrors.ErrValidation)
	}

	entries, err := s.history.FindEntriesByReceiptID(ctx, receiptID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load receipt entries", slog.String("receipt_id", receiptID))
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("receipt %s not found", receiptID))
	}

	receipt := &domain.Receipt{
		ReceiptID:     receiptID,
		CollectedBy:   entries[0].PerformedBy,
		PaymentMethod: entries[0].DetailString(domain.DetailPaymentMethod),
		PaidAt:        entries[0].Timestamp,
		Lines:         make([]domain.ReceiptLine, 0, len(entries)),
		Total:         decimal.Zero,
	}
	for _, e := range entries {
		amount, err := detailDecimal(e, domain.DetailAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: history entry %s has a malformed amount: %v", apperrors.ErrInternal, e.EntryID, err)
		}
		receipt.Lines = append(receipt.Lines, domain.ReceiptLine{
			EntryID:     e.EntryID,
			FineID:      e.DetailString(domain.DetailFineID),
			StudentName: e.StudentNameSnapshot,
			RegNo:       e.StudentRegNoSnapshot,
			BookTitle:   e.BookTitleSnapshot,
			Amount:      amount,
		})
		receipt.Total = receipt.Total.Add(amount)
	}
	return receipt, nil
}

// detailDecimal reads an amount stored either as a string or a JSON number.
func detailDecimal(e domain.TransactionLogEntry, key string) (decimal.Decimal, error) {
	switch v := e.Details[key].(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected type %T", v)
	}
}

// ReconcileRenewals counts RENEW entries for the loan's borrower and copy since the
// issue date. The stored counter stays authoritative; this only reports drift.
func (s *historyService) ReconcileRenewals(ctx context.Context, loanID string) (*domain.RenewalReconciliation, error) {
	loan, err := s.loans.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	count, err := s.history.CountEntries(ctx, domain.ActionRenew, loan.StudentID, loan.CopyID, loan.IssueDate)
	if err != nil {
		s.LogError(ctx, err, "Failed to count renewals", slog.String("loan_id", loanID))
		return nil, err
	}

	result := &domain.RenewalReconciliation{
		LoanID:       loanID,
		Counter:      loan.RenewalCount,
		HistoryCount: count,
		Consistent:   count == loan.RenewalCount,
	}
	if !result.Consistent {
		s.GetLogger(ctx).Warn("Renewal counter drift detected",
			slog.String("loan_id", loanID),
			slog.Int("counter", result.Counter),
			slog.Int("history_count", result.HistoryCount))
	}
	return result, nil
}
