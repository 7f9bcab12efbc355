// Package batch runs independent operations against an external store in
// fixed-size concurrent chunks, collecting a per-item outcome instead of
// aborting on individual failures.
package batch

import (
	"context"
	"fmt"
	"sync"
)

// DefaultSize is the chunk size used when the caller passes a non-positive one.
const DefaultSize = 20

// Result holds the outcome of a single operation from a Run call. Exactly one
// of Value or Err is meaningful.
type Result[R any] struct {
	Value R
	Err   error
}

// Ok reports whether the operation succeeded.
func (r Result[R]) Ok() bool {
	return r.Err == nil
}

// Run partitions items into consecutive chunks of size and executes op on every
// item of a chunk concurrently, waiting for the whole chunk to settle before the
// next chunk starts. Peak concurrency therefore never exceeds size.
//
// The returned slice is index-aligned with items. An op error is captured in the
// corresponding Result and never interrupts the rest of the batch.
func Run[T, R any](ctx context.Context, items []T, size int, op func(context.Context, T) (R, error)) []Result[R] {
	if size <= 0 {
		size = DefaultSize
	}

	results := make([]Result[R], len(items))

	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				// A panicking op must surface as that item's failure, not
				// take down the process.
				defer func() {
					if rec := recover(); rec != nil {
						results[idx].Err = fmt.Errorf("operation panicked: %v", rec)
					}
				}()
				value, err := op(ctx, items[idx])
				results[idx] = Result[R]{Value: value, Err: err}
			}(i)
		}
		wg.Wait()
	}

	return results
}
