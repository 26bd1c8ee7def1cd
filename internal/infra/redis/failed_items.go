package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/callcore/internal/core/domain"
	"github.com/vietddude/callcore/internal/infra/storage"
)

// DefaultItemTTL is how long a failed item's payload is kept.
const DefaultItemTTL = 7 * 24 * time.Hour

// FailedItemRepo implements storage.FailedItemRepository using Redis.
// Each batch has a sorted set of item IDs scored by creation time; the item
// itself is stored as JSON under its own key with a TTL.
type FailedItemRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFailedItemRepo creates a new Redis-backed failed item repository.
func NewFailedItemRepo(client *Client, ttl time.Duration) *FailedItemRepo {
	if ttl <= 0 {
		ttl = DefaultItemTTL
	}
	return &FailedItemRepo{
		rdb: client.rdb,
		ttl: ttl,
	}
}

// Key helpers
func queueKey(batch string) string {
	return fmt.Sprintf("failed_items:%s", batch)
}

func itemKey(batch, id string) string {
	return fmt.Sprintf("failed_item:%s:%s", batch, id)
}

// Add adds a failed item to its batch queue.
func (r *FailedItemRepo) Add(ctx context.Context, item *domain.FailedItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal failed item: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, itemKey(item.Batch, item.ID), data, r.ttl)
		pipe.ZAdd(ctx, queueKey(item.Batch), redis.Z{
			Score:  float64(item.CreatedAt.UnixNano()),
			Member: item.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add failed item: %w", err)
	}
	return nil
}

// List returns the pending items of a batch, oldest first.
func (r *FailedItemRepo) List(ctx context.Context, batch string) ([]*domain.FailedItem, error) {
	ids, err := r.rdb.ZRange(ctx, queueKey(batch), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	items := make([]*domain.FailedItem, 0, len(ids))
	for _, id := range ids {
		data, err := r.rdb.Get(ctx, itemKey(batch, id)).Bytes()
		if errors.Is(err, redis.Nil) {
			// Payload expired but ID still queued, drop it
			if err := r.rdb.ZRem(ctx, queueKey(batch), id).Err(); err != nil {
				slog.Warn("Failed to drop expired failed item", "batch", batch, "id", id, "error", err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get failed item: %w", err)
		}

		var item domain.FailedItem
		if err := json.Unmarshal(data, &item); err != nil {
			slog.Warn("Skipping corrupt failed item", "batch", batch, "id", id, "error", err)
			continue
		}
		items = append(items, &item)
	}
	return items, nil
}

// Remove drops an item from its batch queue.
func (r *FailedItemRepo) Remove(ctx context.Context, batch, id string) error {
	removed, err := r.rdb.ZRem(ctx, queueKey(batch), id).Result()
	if err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	if err := r.rdb.Del(ctx, itemKey(batch, id)).Err(); err != nil {
		return fmt.Errorf("failed to delete failed item: %w", err)
	}
	if removed == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Count returns the number of queued items of a batch.
func (r *FailedItemRepo) Count(ctx context.Context, batch string) (int, error) {
	count, err := r.rdb.ZCard(ctx, queueKey(batch)).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
