package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/apperrors"
	"github.com/SscSPs/library_circulation_app/internal/utils/pagination"
)

// newestFirst sorts items by (timestamp, id) descending and returns one keyset page.
func newestFirst[T any](items []T, key func(T) (time.Time, string), limit int, nextToken *string) ([]T, *string, error) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})

	start := 0
	if nextToken != nil && *nextToken != "" {
		cursorTS, cursorID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		start = len(items)
		for i, it := range items {
			ts, id := key(it)
			if ts.Before(cursorTS) || (ts.Equal(cursorTS) && id < cursorID) {
				start = i
				break
			}
		}
	}

	page := items[start:]
	if len(page) <= limit {
		return page, nil, nil
	}
	page = page[:limit]
	ts, id := key(page[len(page)-1])
	token := pagination.EncodeToken(ts, id)
	return page, &token, nil
}
