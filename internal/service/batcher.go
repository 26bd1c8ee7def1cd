package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/callcore/internal/core/domain"
	"github.com/vietddude/callcore/internal/infra/rpc"
	"github.com/vietddude/callcore/internal/infra/rpc/batch"
	"github.com/vietddude/callcore/internal/infra/rpc/classify"
	"github.com/vietddude/callcore/internal/infra/rpc/retry"
	"github.com/vietddude/callcore/internal/infra/storage"
	"github.com/vietddude/callcore/internal/metrics"
)

// Batcher runs batches with shared options and queues their failed items.
type Batcher struct {
	failed    storage.FailedItemRepository
	opts      batch.Options
	itemRetry *retry.Policy
	log       *slog.Logger
}

// NewBatcher creates a batcher. A non-nil itemRetry wraps every item in the
// retry executor; a nil failed repository disables failure queueing.
func NewBatcher(
	failed storage.FailedItemRepository,
	opts batch.Options,
	itemRetry *retry.Policy,
	log *slog.Logger,
) *Batcher {
	if log == nil {
		log = slog.Default()
	}
	return &Batcher{
		failed:    failed,
		opts:      opts,
		itemRetry: itemRetry,
		log:       log,
	}
}

// Options returns the batch options in use.
func (b *Batcher) Options() batch.Options {
	return b.opts
}

// RunBatch runs fn over inputs and queues every failed item under name.
func RunBatch[T, R any](ctx context.Context, b *Batcher, name string, inputs []T, fn rpc.Func[T, R]) batch.Result[T, R] {
	start := time.Now()

	res := batch.Run(ctx, inputs, wrapItem(b, name, fn), b.opts)

	b.observe(name, len(inputs), len(res.Succeeded), len(res.Failed), time.Since(start))
	for _, f := range res.Failed {
		recordItem(ctx, b, name, f.Item, f.Err)
	}
	return res
}

// Replay re-runs the queued failures of a batch. Items that now succeed are
// removed from the queue; items that fail again stay queued.
func Replay[T, R any](ctx context.Context, b *Batcher, name string, fn rpc.Func[T, R]) (batch.Result[T, R], error) {
	pending, err := b.Pending(ctx, name)
	if err != nil {
		return batch.Result[T, R]{}, err
	}

	type entry struct {
		id   string
		item T
	}
	entries := make([]entry, 0, len(pending))
	for _, p := range pending {
		if len(p.Payload) == 0 || string(p.Payload) == "null" {
			b.log.Warn("Skipping failed item without payload", "batch", name, "id", p.ID)
			continue
		}
		var item T
		if err := json.Unmarshal(p.Payload, &item); err != nil {
			b.log.Warn("Skipping undecodable failed item", "batch", name, "id", p.ID, "error", err)
			continue
		}
		entries = append(entries, entry{id: p.ID, item: item})
	}

	wrapped := wrapItem(b, name, fn)
	start := time.Now()
	res := batch.Run(ctx, entries, func(ctx context.Context, e entry) (R, error) {
		out, err := wrapped(ctx, e.item)
		if err != nil {
			return out, err
		}
		if rerr := b.Resolve(ctx, name, e.id); rerr != nil && !errors.Is(rerr, storage.ErrNotFound) {
			b.log.Error("Failed to resolve replayed item", "batch", name, "id", e.id, "error", rerr)
		}
		return out, nil
	}, b.opts)

	b.observe(name, len(entries), len(res.Succeeded), len(res.Failed), time.Since(start))

	out := batch.Result[T, R]{
		Succeeded: res.Succeeded,
		Failed:    make([]batch.Failure[T], 0, len(res.Failed)),
		HasErrors: res.HasErrors,
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, batch.Failure[T]{Item: f.Item.item, Err: f.Err})
	}
	return out, nil
}

// Pending lists the queued failures of a batch.
func (b *Batcher) Pending(ctx context.Context, name string) ([]*domain.FailedItem, error) {
	if b.failed == nil {
		return nil, nil
	}
	items, err := b.failed.List(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed items: %w", err)
	}
	return items, nil
}

// Resolve removes a queued failure.
func (b *Batcher) Resolve(ctx context.Context, name, id string) error {
	if b.failed == nil {
		return storage.ErrNotFound
	}
	return b.failed.Remove(ctx, name, id)
}

func (b *Batcher) observe(name string, total, succeeded, failed int, took time.Duration) {
	metrics.BatchItemsTotal.WithLabelValues(name, "succeeded").Add(float64(succeeded))
	metrics.BatchItemsTotal.WithLabelValues(name, "failed").Add(float64(failed))
	metrics.BatchItemsTotal.WithLabelValues(name, "skipped").Add(float64(total - succeeded - failed))
	metrics.BatchDuration.WithLabelValues(name).Observe(took.Seconds())

	b.log.Info("Batch finished",
		"name", name,
		"succeeded", succeeded,
		"failed", failed,
		"skipped", total-succeeded-failed,
		"duration", took,
	)
}

func wrapItem[T, R any](b *Batcher, name string, fn rpc.Func[T, R]) rpc.Func[T, R] {
	if b.itemRetry == nil {
		return fn
	}
	p := *b.itemRetry
	p.OnRetry = retryObserver(b.log, name)
	return retry.WrapFunc(fn, p)
}

func recordItem[T any](ctx context.Context, b *Batcher, name string, item T, cerr *classify.Error) {
	if b.failed == nil {
		return
	}

	payload, err := json.Marshal(item)
	if err != nil {
		// Replay could only rebuild a zero value, so the item is not queued.
		b.log.Error("Dropping unencodable failed batch item", "batch", name, "kind", cerr.Kind(), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	fi := &domain.FailedItem{
		ID:         uuid.NewString(),
		Batch:      name,
		Payload:    payload,
		Kind:       string(cerr.Kind()),
		Error:      cerr.InternalMessage(),
		HTTPStatus: cerr.HTTPStatus(),
		Retryable:  cerr.Retryable(),
		CreatedAt:  time.Now(),
	}
	if err := b.failed.Add(ctx, fi); err != nil {
		b.log.Error("Failed to queue failed batch item", "batch", name, "error", err)
	}
}
