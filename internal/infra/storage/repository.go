package storage

import (
	"context"
	"errors"

	"github.com/vietddude/callcore/internal/core/domain"
)

var (
	// ErrNotFound is returned when a record doesn't exist
	ErrNotFound = errors.New("record not found")
)

// OutcomeRepository journals settled call invocations
type OutcomeRepository interface {
	// Save appends an outcome
	Save(ctx context.Context, outcome *domain.OutcomeRecord) error

	// Recent returns up to limit outcomes, newest first, optionally
	// restricted to the given failure kinds
	Recent(ctx context.Context, limit int, kinds ...string) ([]*domain.OutcomeRecord, error)
}

// FailedItemRepository handles the failed batch item queue
type FailedItemRepository interface {
	// Add records a failed item
	Add(ctx context.Context, item *domain.FailedItem) error

	// List returns the pending items of a batch, oldest first
	List(ctx context.Context, batch string) ([]*domain.FailedItem, error)

	// Remove drops an item (successfully replayed or discarded)
	Remove(ctx context.Context, batch, id string) error

	// Count returns the number of pending items of a batch
	Count(ctx context.Context, batch string) (int, error)
}
