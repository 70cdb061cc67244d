package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/core/domain"
)

func (r *repo) FindEntryByID(ctx context.Context, entryID string) (*domain.TransactionLogEntry, error) {
	var out *domain.TransactionLogEntry
	err := r.read(func(st *state) error {
		for _, e := range st.history {
			if e.EntryID == entryID {
				out = &e
				return nil
			}
		}
		return apperrors.NewNotFoundError(fmt.Sprintf("history entry %s not found", entryID))
	})
	return out, err
}

func (r *repo) ListEntries(ctx context.Context, filter domain.HistoryFilter, limit int, nextToken *string) ([]domain.TransactionLogEntry, *string, error) {
	var matched []domain.TransactionLogEntry
	_ = r.read(func(st *state) error {
		for _, e := range st.history {
			if matchesHistory(e, filter) {
				matched = append(matched, e)
			}
		}
		return nil
	})
	return newestFirst(matched, func(e domain.TransactionLogEntry) (time.Time, string) { return e.Timestamp, e.EntryID }, limit, nextToken)
}

func (r *repo) FindEntriesByReceiptID(ctx context.Context, receiptID string) ([]domain.TransactionLogEntry, error) {
	var out []domain.TransactionLogEntry
	err := r.read(func(st *state) error {
		for _, e := range st.history {
			if e.ActionType == domain.ActionFinePaid && e.DetailString(domain.DetailReceiptID) == receiptID {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, err
}

func (r *repo) CountEntries(ctx context.Context, action domain.ActionType, studentID, copyID string, since time.Time) (int, error) {
	n := 0
	err := r.read(func(st *state) error {
		for _, e := range st.history {
			if e.ActionType != action || !e.Timestamp.After(since) {
				continue
			}
			if e.StudentID == nil || *e.StudentID != studentID || e.CopyID == nil || *e.CopyID != copyID {
				continue
			}
			n++
		}
		return nil
	})
	return n, err
}

func (r *repo) AppendEntry(ctx context.Context, entry domain.TransactionLogEntry) error {
	return r.write(func(st *state) error {
		for _, e := range st.history {
			if e.EntryID == entry.EntryID {
				return fmt.Errorf("%w: history entry %s", apperrors.ErrDuplicate, entry.EntryID)
			}
		}
		st.history = append(st.history, entry)
		return nil
	})
}

func matchesHistory(e domain.TransactionLogEntry, f domain.HistoryFilter) bool {
	if len(f.ActionTypes) > 0 {
		found := false
		for _, a := range f.ActionTypes {
			if e.ActionType == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.StudentID != "" && (e.StudentID == nil || *e.StudentID != f.StudentID) {
		return false
	}
	if f.CopyID != "" && (e.CopyID == nil || *e.CopyID != f.CopyID) {
		return false
	}
	if f.PerformedBy != "" && e.PerformedBy != f.PerformedBy {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.ReceiptID != "" && e.DetailString(domain.DetailReceiptID) != f.ReceiptID {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystack := strings.ToLower(strings.Join([]string{
			e.StudentNameSnapshot, e.StudentRegNoSnapshot, e.BookTitleSnapshot, e.BookISBNSnapshot,
		}, "\x00"))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
