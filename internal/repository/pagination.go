package repository

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
)

var ErrScanConsumed = errors.New("scan already consumed")

// Paginate turns a page fetcher into a lazy single-use sequence. fetch loads
// the page after cursor and reports whether another page may follow. A fetch
// error is yielded once and ends the sequence; so does a cancelled context.
func Paginate[T any, C any](ctx context.Context, start C, fetch func(ctx context.Context, cursor C) (items []T, next C, more bool, err error)) iter.Seq2[T, error] {
	var used atomic.Bool
	return func(yield func(T, error) bool) {
		var zero T
		if !used.CompareAndSwap(false, true) {
			yield(zero, ErrScanConsumed)
			return
		}

		cursor := start
		for {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}
			items, next, more, err := fetch(ctx, cursor)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if !more {
				return
			}
			cursor = next
		}
	}
}
