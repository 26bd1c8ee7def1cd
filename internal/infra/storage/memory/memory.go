package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/vietddude/callcore/internal/core/domain"
	"github.com/vietddude/callcore/internal/infra/storage"
)

type MemoryStorage struct {
	outcomes []*domain.OutcomeRecord
	failed   map[string][]*domain.FailedItem
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		failed: make(map[string][]*domain.FailedItem),
	}
}

// -----------------------------------------------------------------------------
// Outcome Repository
// -----------------------------------------------------------------------------

type OutcomeRepo struct {
	store *MemoryStorage
}

func NewOutcomeRepo(store *MemoryStorage) *OutcomeRepo {
	return &OutcomeRepo{store: store}
}

func (r *OutcomeRepo) Save(ctx context.Context, o *domain.OutcomeRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *o
	r.store.outcomes = append(r.store.outcomes, &cp)
	return nil
}

func (r *OutcomeRepo) Recent(ctx context.Context, limit int, kinds ...string) ([]*domain.OutcomeRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var res []*domain.OutcomeRecord
	for i := len(r.store.outcomes) - 1; i >= 0; i-- {
		if limit > 0 && len(res) >= limit {
			break
		}
		o := r.store.outcomes[i]
		if len(kinds) > 0 && !slices.Contains(kinds, o.Kind) {
			continue
		}
		cp := *o
		res = append(res, &cp)
	}
	return res, nil
}

// -----------------------------------------------------------------------------
// Failed Item Repository
// -----------------------------------------------------------------------------

type FailedItemRepo struct {
	store *MemoryStorage
}

func NewFailedItemRepo(store *MemoryStorage) *FailedItemRepo {
	return &FailedItemRepo{store: store}
}

func (r *FailedItemRepo) Add(ctx context.Context, item *domain.FailedItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *item
	r.store.failed[item.Batch] = append(r.store.failed[item.Batch], &cp)
	return nil
}

func (r *FailedItemRepo) List(ctx context.Context, batch string) ([]*domain.FailedItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	res := make([]*domain.FailedItem, 0, len(r.store.failed[batch]))
	for _, item := range r.store.failed[batch] {
		cp := *item
		res = append(res, &cp)
	}
	return res, nil
}

func (r *FailedItemRepo) Remove(ctx context.Context, batch, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	items := r.store.failed[batch]
	for i, item := range items {
		if item.ID == id {
			r.store.failed[batch] = slices.Delete(items, i, i+1)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r *FailedItemRepo) Count(ctx context.Context, batch string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.failed[batch]), nil
}
