package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	"github.com/SscSPs/library_circulation_app/internal/utils"
	"github.com/google/uuid"
)

const historyTimeFormat = time.RFC3339

// circulationEntry builds a history entry snapshotting borrower and title fields.
func circulationEntry(sessionID string, action domain.ActionType, b *domain.Borrower, c *domain.Copy, meta *domain.CatalogMeta, actorID string, at time.Time, details map[string]any) domain.TransactionLogEntry {
	entry := domain.TransactionLogEntry{
		EntryID:     uuid.NewString(),
		SessionID:   sessionID,
		ActionType:  action,
		PerformedBy: actorID,
		Timestamp:   at,
		Details:     details,
	}
	if b != nil {
		entry.StudentID = strPtr(b.BorrowerID)
		entry.StudentNameSnapshot = b.Name
		entry.StudentRegNoSnapshot = b.RegNo
	}
	if c != nil {
		entry.CopyID = strPtr(c.CopyID)
	}
	if meta != nil {
		entry.BookTitleSnapshot = meta.Title
		entry.BookISBNSnapshot = meta.ISBN
	}
	return entry
}

// fineEntry builds a history entry for a fine mutation. Title fields are carried over
// from the originating RETURN entry when it can still be found.
func fineEntry(sessionID string, action domain.ActionType, f *domain.Fine, origin *domain.TransactionLogEntry, actorID string, at time.Time, details map[string]any) domain.TransactionLogEntry {
	entry := domain.TransactionLogEntry{
		EntryID:              uuid.NewString(),
		SessionID:            sessionID,
		ActionType:           action,
		StudentID:            f.StudentID,
		StudentNameSnapshot:  f.StudentNameSnapshot,
		StudentRegNoSnapshot: f.StudentRegNoSnapshot,
		PerformedBy:          actorID,
		Timestamp:            at,
		Details:              details,
	}
	if origin != nil {
		entry.CopyID = origin.CopyID
		entry.BookTitleSnapshot = origin.BookTitleSnapshot
		entry.BookISBNSnapshot = origin.BookISBNSnapshot
	}
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}
	entry.Details[domain.DetailFineID] = f.FineID
	return entry
}

// originEntry looks up the entry a fine was raised from. A missing entry is not an error.
func originEntry(ctx context.Context, history portsrepo.TransactionLogReader, f *domain.Fine) (*domain.TransactionLogEntry, error) {
	if f.TransactionID == "" {
		return nil, nil
	}
	entry, err := history.FindEntryByID(ctx, f.TransactionID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return entry, err
}

// catalogMeta returns title metadata, tolerating a title removed from the catalog.
func catalogMeta(ctx context.Context, copies portsrepo.CopyReader, c *domain.Copy) (*domain.CatalogMeta, error) {
	meta, err := copies.GetCatalogMeta(ctx, c.CatalogRef)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &domain.CatalogMeta{CatalogRef: c.CatalogRef}, nil
	}
	return meta, err
}

// newReceiptNumber produces e.g. RCP-20260514-9F2C61AB.
func newReceiptNumber(prefix string, at time.Time) (string, error) {
	suffix, err := utils.GenerateSecureRandomString(4)
	if err != nil {
		return "", fmt.Errorf("failed to generate receipt number: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), strings.ToUpper(suffix)), nil
}

// normalizeIDs trims, drops blanks and de-duplicates while keeping order.
func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func strPtr(s string) *string {
	return &s
}

// publicReason turns an error into a reason string safe to show to staff.
func publicReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrDuplicate),
		errors.Is(err, apperrors.ErrPolicyViolation):
		return err.Error()
	default:
		return "internal error"
	}
}
