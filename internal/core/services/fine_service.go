package services

import (
	"context"
	"errors"
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
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// collectionReceiptPrefix prefixes the receipt shared by every fine paid in one batch.
const collectionReceiptPrefix = "RCP"

type fineService struct {
	BaseService
	txManager portsrepo.TransactionManager
	fines     portsrepo.FineReader
	borrowers portsrepo.BorrowerReader
}

// NewFineService creates the fine ledger.
func NewFineService(txManager portsrepo.TransactionManager, fines portsrepo.FineReader, borrowers portsrepo.BorrowerReader, options ...ServiceOption) portssvc.FineSvcFacade {
	svc := &fineService{txManager: txManager, fines: fines, borrowers: borrowers}
	svc.apply(options)
	return svc
}

var _ portssvc.FineSvcFacade = (*fineService)(nil)

func (s *fineService) GetFine(ctx context.Context, fineID string) (*domain.Fine, error) {
	fine, err := s.fines.FindFineByID(ctx, fineID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to get fine", slog.String("fine_id", fineID))
		}
		return nil, err
	}
	return fine, nil
}

func (s *fineService) ListFines(ctx context.Context, params dto.ListFinesParams) (*dto.ListFinesResponse, error) {
	filter := domain.FineFilter{
		StudentID: strings.TrimSpace(params.StudentID),
		Status:    domain.FineStatus(params.Status),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown fine status %q", apperrors.ErrValidation, params.Status)
	}

	fines, next, err := s.fines.ListFines(ctx, filter, pagination.ClampLimit(params.Limit), params.NextToken)
	if err != nil {
		if !errors.Is(err, apperrors.ErrValidation) {
			s.LogError(ctx, err, "Failed to list fines", slog.String("student_id", filter.StudentID))
		}
		return nil, err
	}
	return &dto.ListFinesResponse{
		Fines:     dto.ToFineResponses(fines),
		NextToken: next,
	}, nil
}

// CollectFines pays the batch in one unit of work. Fines that are missing or no longer
// Unpaid are skipped, so resubmitting a batch is harmless.
func (s *fineService) CollectFines(ctx context.Context, req dto.CollectFinesRequest, actorID string) (*domain.CollectionResult, error) {
	logger := s.GetLogger(ctx)

	ids := normalizeIDs(req.FineIDs)
	method := strings.TrimSpace(req.PaymentMethod)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one fine ID is required", apperrors.ErrValidation)
	}
	if method == "" {
		return nil, fmt.Errorf("%w: payment method is required", apperrors.ErrValidation)
	}
	if actorID == "" {
		return nil, fmt.Errorf("%w: collecting staff ID is required", apperrors.ErrValidation)
	}

	now := s.now()
	receiptID, err := newReceiptNumber(collectionReceiptPrefix, now)
	if err != nil {
		return nil, err
	}
	sessionID := uuid.NewString()

	var result *domain.CollectionResult
	var paid []domain.Fine
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		result = &domain.CollectionResult{
			PaidFineIDs:    []string{},
			SkippedFineIDs: []string{},
			TotalCollected: decimal.Zero,
		}
		paid = paid[:0]
		for _, id := range ids {
			fine, err := repos.Fines.FindFineByIDForUpdate(ctx, id)
			if errors.Is(err, apperrors.ErrNotFound) {
				result.SkippedFineIDs = append(result.SkippedFineIDs, id)
				continue
			}
			if err != nil {
				return err
			}
			if !fine.IsUnpaid() {
				result.SkippedFineIDs = append(result.SkippedFineIDs, id)
				continue
			}

			origin, err := originEntry(ctx, repos.History, fine)
			if err != nil {
				return err
			}

			fine.Status = domain.FinePaid
			fine.IsPaid = true
			fine.PaymentDate = &now
			fine.ReceiptNumber = strPtr(receiptID)
			fine.CollectedBy = strPtr(actorID)
			fine.PaymentMethod = strPtr(method)
			if err := repos.Fines.UpdateFine(ctx, *fine); err != nil {
				return err
			}

			entry := fineEntry(sessionID, domain.ActionFinePaid, fine, origin, actorID, now, map[string]any{
				domain.DetailReceiptID:     receiptID,
				domain.DetailAmount:        fine.Amount.StringFixed(2),
				domain.DetailPaymentMethod: method,
			})
			if err := repos.History.AppendEntry(ctx, entry); err != nil {
				return err
			}

			paid = append(paid, *fine)
			result.PaidFineIDs = append(result.PaidFineIDs, fine.FineID)
			result.TotalCollected = result.TotalCollected.Add(fine.Amount)
		}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Fine collection failed", slog.Int("fine_count", len(ids)))
		return nil, err
	}

	if len(result.PaidFineIDs) == 0 {
		logger.Info("Fine collection paid nothing", slog.Int("skipped", len(result.SkippedFineIDs)))
		return result, nil
	}
	result.ReceiptID = receiptID

	logger.Info("Fines collected successfully",
		slog.String("receipt_id", receiptID),
		slog.Int("paid", len(result.PaidFineIDs)),
		slog.Int("skipped", len(result.SkippedFineIDs)),
		slog.String("total", result.TotalCollected.StringFixed(2)))

	s.publishCollection(ctx, receiptID, method, actorID, paid, now)
	return result, nil
}

// publishCollection emits one event per borrower in the batch so each can be sent a
// payment receipt. Fines detached from their borrower are reported without a recipient.
func (s *fineService) publishCollection(ctx context.Context, receiptID, method, actorID string, paid []domain.Fine, now time.Time) {
	var order []string
	byStudent := make(map[string][]domain.Fine)
	for _, f := range paid {
		studentID := ""
		if f.StudentID != nil {
			studentID = *f.StudentID
		}
		if _, ok := byStudent[studentID]; !ok {
			order = append(order, studentID)
		}
		byStudent[studentID] = append(byStudent[studentID], f)
	}

	for _, studentID := range order {
		fines := byStudent[studentID]
		ids := make([]string, 0, len(fines))
		total := decimal.Zero
		for _, f := range fines {
			ids = append(ids, f.FineID)
			total = total.Add(f.Amount)
		}

		var recipient *domain.Borrower
		name := fines[0].StudentNameSnapshot
		if studentID != "" && s.borrowers != nil {
			b, err := s.borrowers.FindBorrowerByID(ctx, studentID)
			switch {
			case err == nil:
				recipient = b
				name = b.Name
			case errors.Is(err, apperrors.ErrNotFound):
				s.LogDebug(ctx, "Borrower gone, payment receipt skipped", slog.String("student_id", studentID))
			default:
				s.LogError(ctx, err, "Failed to load borrower for payment receipt", slog.String("student_id", studentID))
			}
		}

		s.publish(ctx, domain.CirculationEvent{
			Type:        domain.EventFinesCollected,
			Module:      domain.ModuleFines,
			ActorID:     actorID,
			StudentID:   studentID,
			Description: fmt.Sprintf("Collected %s from %s across %d fine(s), receipt %s", total.StringFixed(2), name, len(ids), receiptID),
			Payload: map[string]any{
				"receipt_id":     receiptID,
				"fine_ids":       ids,
				"fine_count":     len(ids),
				"total":          total.StringFixed(2),
				"payment_method": method,
			},
			OccurredAt: now,
			Recipient:  recipient,
		})
	}
}

// WaiveFine does not re-validate status; a Paid fine can be waived.
func (s *fineService) WaiveFine(ctx context.Context, fineID string, req dto.WaiveFineRequest, actorID string) (*domain.Fine, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: waiver reason is required", apperrors.ErrValidation)
	}
	if actorID == "" {
		return nil, fmt.Errorf("%w: acting staff ID is required", apperrors.ErrValidation)
	}

	now := s.now()
	fine, err := s.mutate(ctx, fineID, func(f *domain.Fine) (domain.ActionType, map[string]any) {
		details := map[string]any{
			"old_status": string(f.Status),
			"old_remark": f.Remark,
			"amount":     f.Amount.StringFixed(2),
			"reason":     reason,
		}
		f.Status = domain.FineWaived
		f.IsPaid = true
		f.Remark = reason
		return domain.ActionFineWaived, details
	}, actorID, now)
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Fine waived", slog.String("fine_id", fineID))
	s.publish(ctx, domain.CirculationEvent{
		Type:        domain.EventFineWaived,
		Module:      domain.ModuleFines,
		ActorID:     actorID,
		StudentID:   derefOrEmpty(fine.StudentID),
		Description: fmt.Sprintf("Waived fine %s (%s): %s", fineID, fine.Amount.StringFixed(2), reason),
		Payload:     map[string]any{"fine_id": fineID, "amount": fine.Amount.StringFixed(2), "reason": reason},
		OccurredAt:  now,
	})
	return fine, nil
}

// EditFine changes the amount and remark only; status is left as it is.
func (s *fineService) EditFine(ctx context.Context, fineID string, req dto.EditFineRequest, actorID string) (*domain.Fine, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: edit reason is required", apperrors.ErrValidation)
	}
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: fine amount cannot be negative", apperrors.ErrValidation)
	}
	if actorID == "" {
		return nil, fmt.Errorf("%w: acting staff ID is required", apperrors.ErrValidation)
	}
	amount := req.Amount.Round(2)

	now := s.now()
	var oldAmount decimal.Decimal
	fine, err := s.mutate(ctx, fineID, func(f *domain.Fine) (domain.ActionType, map[string]any) {
		oldAmount = f.Amount
		details := map[string]any{
			"old_amount": f.Amount.StringFixed(2),
			"new_amount": amount.StringFixed(2),
			"old_remark": f.Remark,
			"reason":     reason,
			"status":     string(f.Status),
		}
		f.Amount = amount
		f.Remark = reason
		return domain.ActionFineEdited, details
	}, actorID, now)
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Fine edited",
		slog.String("fine_id", fineID),
		slog.String("old_amount", oldAmount.StringFixed(2)),
		slog.String("new_amount", amount.StringFixed(2)))
	s.publish(ctx, domain.CirculationEvent{
		Type:        domain.EventFineEdited,
		Module:      domain.ModuleFines,
		ActorID:     actorID,
		StudentID:   derefOrEmpty(fine.StudentID),
		Description: fmt.Sprintf("Edited fine %s from %s to %s: %s", fineID, oldAmount.StringFixed(2), amount.StringFixed(2), reason),
		Payload: map[string]any{
			"fine_id":    fineID,
			"old_amount": oldAmount.StringFixed(2),
			"new_amount": amount.StringFixed(2),
			"reason":     reason,
		},
		OccurredAt: now,
	})
	return fine, nil
}

// mutate locks a fine, applies change and appends the matching history entry in one
// unit of work.
func (s *fineService) mutate(ctx context.Context, fineID string, change func(f *domain.Fine) (domain.ActionType, map[string]any), actorID string, now time.Time) (*domain.Fine, error) {
	if strings.TrimSpace(fineID) == "" {
		return nil, fmt.Errorf("%w: fine ID is required", apperrors.ErrValidation)
	}

	var updated *domain.Fine
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		fine, err := repos.Fines.FindFineByIDForUpdate(ctx, fineID)
		if err != nil {
			return err
		}
		origin, err := originEntry(ctx, repos.History, fine)
		if err != nil {
			return err
		}

		action, details := change(fine)
		if err := repos.Fines.UpdateFine(ctx, *fine); err != nil {
			return err
		}
		if err := repos.History.AppendEntry(ctx, fineEntry(uuid.NewString(), action, fine, origin, actorID, now, details)); err != nil {
			return err
		}
		updated = fine
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Fine update failed", slog.String("fine_id", fineID))
		}
		return nil, err
	}
	return updated, nil
}

// DetachBorrower is called when a borrower is removed from the directory. Fines are
// kept as financial records with the reference cleared.
func (s *fineService) DetachBorrower(ctx context.Context, borrowerID string, actorID string) (int64, error) {
	borrowerID = strings.TrimSpace(borrowerID)
	if borrowerID == "" {
		return 0, fmt.Errorf("%w: borrower ID is required", apperrors.ErrValidation)
	}

	var detached int64
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		n, err := repos.Fines.DetachStudent(ctx, borrowerID)
		if err != nil {
			return err
		}
		detached = n
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to detach borrower from fines", slog.String("borrower_id", borrowerID))
		return 0, err
	}

	s.LogInfo(ctx, "Borrower detached from fines", slog.String("borrower_id", borrowerID), slog.Int64("fines", detached))
	if detached > 0 {
		s.publish(ctx, domain.CirculationEvent{
			Type:        domain.EventBorrowerDetached,
			Module:      domain.ModuleFines,
			ActorID:     actorID,
			StudentID:   borrowerID,
			Description: fmt.Sprintf("Detached %d fine(s) from removed borrower %s", detached, borrowerID),
			Payload:     map[string]any{"borrower_id": borrowerID, "fines_detached": detached},
			OccurredAt:  s.now(),
		})
	}
	return detached, nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
