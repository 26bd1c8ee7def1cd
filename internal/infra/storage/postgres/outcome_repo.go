package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/vietddude/callcore/internal/core/domain"
)

// OutcomeRepo implements storage.OutcomeRepository using PostgreSQL.
type OutcomeRepo struct {
	db *DB
}

// NewOutcomeRepo creates a new PostgreSQL outcome repository.
func NewOutcomeRepo(db *DB) *OutcomeRepo {
	return &OutcomeRepo{db: db}
}

// Save appends an outcome to the journal.
func (r *OutcomeRepo) Save(ctx context.Context, o *domain.OutcomeRecord) error {
	query := `
		INSERT INTO call_outcomes (
			invocation_id, name, status, disposition, kind, message,
			http_status, attempts, started_at, duration_ms
		) VALUES (
			:invocation_id, :name, :status, :disposition, :kind, :message,
			:http_status, :attempts, :started_at, :duration_ms
		)
		ON CONFLICT (invocation_id) DO NOTHING
	`
	if _, err := r.db.NamedExecContext(ctx, query, o); err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}
	return nil
}

// Recent returns the newest outcomes, optionally filtered by failure kind.
func (r *OutcomeRepo) Recent(
	ctx context.Context,
	limit int,
	kinds ...string,
) ([]*domain.OutcomeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	if kinds == nil {
		kinds = []string{}
	}

	query := `
		SELECT invocation_id, name, status, disposition, kind, message,
		       http_status, attempts, started_at, duration_ms
		FROM call_outcomes
		WHERE COALESCE(cardinality($1::text[]), 0) = 0 OR kind = ANY($1::text[])
		ORDER BY started_at DESC
		LIMIT $2
	`

	var rows []*domain.OutcomeRecord
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(kinds), limit); err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	return rows, nil
}
