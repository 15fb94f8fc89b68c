package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytmix/internal/services"
	"github.com/desertthunder/ytmix/internal/shared"
)

const defaultPageSize = 50

// PageFunc requests one page of a cursor-paginated collection.
type PageFunc[T any] func(ctx context.Context, cursor string, pageSize int) (*services.Page[T], error)

// FetchOptions bounds a [FetchAll].
type FetchOptions struct {
	PageSize int // defaults to 50
	Limit    int // 0 means no cap
}

// FetchAll follows cursors until the collection is exhausted or Limit items are collected.
//
// An empty page ends the fetch even when a cursor was returned. Cancellation
// is checked before every page and yields no partial result.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], opts FetchOptions) ([]T, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var (
		items  []T
		cursor string
	)
	for page := 1; ; page++ {
		if ctx.Err() != nil {
			return nil, shared.CancelledError(ctx)
		}

		size := pageSize
		if opts.Limit > 0 {
			size = min(size, opts.Limit-len(items))
		}

		resp, err := fetch(ctx, cursor, size)
		if err != nil {
			if shared.IsCancelled(err) {
				return nil, err
			}
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		items = append(items, resp.Items...)

		if opts.Limit > 0 && len(items) >= opts.Limit {
			return items[:opts.Limit], nil
		}
		if len(resp.Items) == 0 || resp.NextPageToken == "" {
			return items, nil
		}
		cursor = resp.NextPageToken
	}
}
