package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/callcore/internal/core/domain"
	"github.com/vietddude/callcore/internal/infra/storage"
)

// FailedItemRepo implements storage.FailedItemRepository using PostgreSQL.
type FailedItemRepo struct {
	db *DB
}

// NewFailedItemRepo creates a new PostgreSQL failed item repository.
func NewFailedItemRepo(db *DB) *FailedItemRepo {
	return &FailedItemRepo{db: db}
}

type failedItemRow struct {
	ID         string    `db:"id"`
	Batch      string    `db:"batch"`
	Payload    []byte    `db:"payload"`
	Kind       string    `db:"kind"`
	ErrorMsg   string    `db:"error_msg"`
	HTTPStatus int       `db:"http_status"`
	Retryable  bool      `db:"retryable"`
	CreatedAt  time.Time `db:"created_at"`
}

// Add records a failed item.
func (r *FailedItemRepo) Add(ctx context.Context, item *domain.FailedItem) error {
	query := `
		INSERT INTO failed_items (id, batch, payload, kind, error_msg, http_status, retryable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	payload := []byte(item.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.Batch,
		payload,
		item.Kind,
		item.Error,
		item.HTTPStatus,
		item.Retryable,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add failed item: %w", err)
	}
	return nil
}

// List returns the pending items of a batch, oldest first.
func (r *FailedItemRepo) List(ctx context.Context, batch string) ([]*domain.FailedItem, error) {
	query := `
		SELECT id, batch, payload, kind, error_msg, http_status, retryable, created_at
		FROM failed_items
		WHERE batch = $1
		ORDER BY created_at ASC
	`

	var rows []failedItemRow
	if err := r.db.SelectContext(ctx, &rows, query, batch); err != nil {
		return nil, fmt.Errorf("failed to list failed items: %w", err)
	}

	items := make([]*domain.FailedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, &domain.FailedItem{
			ID:         row.ID,
			Batch:      row.Batch,
			Payload:    row.Payload,
			Kind:       row.Kind,
			Error:      row.ErrorMsg,
			HTTPStatus: row.HTTPStatus,
			Retryable:  row.Retryable,
			CreatedAt:  row.CreatedAt,
		})
	}
	return items, nil
}

// Remove deletes a failed item.
func (r *FailedItemRepo) Remove(ctx context.Context, batch, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM failed_items WHERE batch = $1 AND id = $2`, batch, id)
	if err != nil {
		return fmt.Errorf("failed to remove failed item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove failed item: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Count returns the number of pending items of a batch.
func (r *FailedItemRepo) Count(ctx context.Context, batch string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM failed_items WHERE batch = $1`, batch); err != nil {
		return 0, fmt.Errorf("failed to count failed items: %w", err)
	}
	return count, nil
}
