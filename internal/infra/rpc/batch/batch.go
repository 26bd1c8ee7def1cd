// Package batch runs an operation over many inputs with bounded concurrency
// and returns partitioned success/failure results instead of failing the
// whole batch on the first error.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/callcore/internal/infra/rpc"
	"github.com/vietddude/callcore/internal/infra/rpc/classify"
)

// Options controls chunking and early exit.
type Options struct {
	// Concurrency is the chunk size, and therefore the peak number of
	// in-flight operations.
	Concurrency int
	// StopOnFirstError skips the remaining chunks once a chunk has a failure.
	StopOnFirstError bool
}

// DefaultOptions provides sensible defaults.
var DefaultOptions = Options{
	Concurrency:      5,
	StopOnFirstError: false,
}

// Failure pairs a failed input with its classified error.
type Failure[T any] struct {
	Item T
	Err  *classify.Error
}

// Result is the partitioned outcome of a batch. Both lists keep input order.
type Result[T, R any] struct {
	Succeeded []R
	Failed    []Failure[T]
	HasErrors bool
}

// Processed returns how many inputs were dispatched and settled.
func (r Result[T, R]) Processed() int {
	return len(r.Succeeded) + len(r.Failed)
}

type slot[R any] struct {
	value R
	err   error
}

// Run dispatches fn over inputs in consecutive chunks of opts.Concurrency.
// Every item of a chunk runs concurrently; the next chunk starts only after
// the whole chunk has settled. Run never retries; pass a function wrapped by
// retry.WrapFunc for per-item retry.
func Run[T, R any](ctx context.Context, inputs []T, fn rpc.Func[T, R], opts Options) Result[T, R] {
	size := opts.Concurrency
	if size < 1 {
		size = 1
	}

	res := Result[T, R]{
		Succeeded: make([]R, 0, len(inputs)),
		Failed:    []Failure[T]{},
	}

	for start := 0; start < len(inputs); start += size {
		end := min(start+size, len(inputs))
		chunk := inputs[start:end]

		slots, chunkErr := runChunk(ctx, chunk, fn)

		for i, s := range slots {
			if s.err != nil {
				res.Failed = append(res.Failed, Failure[T]{Item: chunk[i], Err: classify.Classify(s.err)})
				continue
			}
			res.Succeeded = append(res.Succeeded, s.value)
		}

		if chunkErr != nil && opts.StopOnFirstError {
			break
		}
	}

	res.HasErrors = len(res.Failed) > 0
	return res
}

// runChunk runs fn for every item and waits for all of them. Each goroutine
// writes only its own slot. The returned error is the first item failure of
// the chunk, or nil when every item succeeded. A failing item never cancels
// its siblings.
func runChunk[T, R any](ctx context.Context, chunk []T, fn rpc.Func[T, R]) ([]slot[R], error) {
	slots := make([]slot[R], len(chunk))

	var g errgroup.Group
	g.SetLimit(len(chunk))
	for i, item := range chunk {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("batch item panicked: %v", r)
				}
				slots[i].err = err
			}()
			slots[i].value, err = fn(ctx, item)
			return err
		})
	}
	err := g.Wait()

	return slots, err
}
