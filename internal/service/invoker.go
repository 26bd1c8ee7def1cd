// Package service exposes the call core to the rest of the application:
// managed single calls whose outcomes are logged, measured and journaled,
// and batches whose failures are queued for replay.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/callcore/internal/core/domain"
	"github.com/vietddude/callcore/internal/infra/rpc"
	"github.com/vietddude/callcore/internal/infra/rpc/call"
	"github.com/vietddude/callcore/internal/infra/rpc/classify"
	"github.com/vietddude/callcore/internal/infra/rpc/retry"
	"github.com/vietddude/callcore/internal/infra/storage"
	"github.com/vietddude/callcore/internal/metrics"
)

// journalTimeout bounds how long saving one outcome may take.
const journalTimeout = 5 * time.Second

// Invoker builds call managers that share one retry policy and one outcome
// journal.
type Invoker struct {
	outcomes storage.OutcomeRepository
	policy   *retry.Policy
	log      *slog.Logger
}

// NewInvoker creates an invoker. A nil policy disables retry; a nil outcomes
// repository disables journaling.
func NewInvoker(outcomes storage.OutcomeRepository, policy *retry.Policy, log *slog.Logger) *Invoker {
	if log == nil {
		log = slog.Default()
	}
	return &Invoker{
		outcomes: outcomes,
		policy:   policy,
		log:      log,
	}
}

// NewCall creates a manager for fn whose outcomes flow into logs, metrics
// and the journal. opts are applied after the invoker's own, so a WithRetry
// here replaces the shared policy.
func NewCall[A, R any](inv *Invoker, name string, fn rpc.Func[A, R], opts ...call.Option) *call.Manager[A, R] {
	base := []call.Option{call.WithSettled(inv.settled)}
	if inv.policy != nil {
		p := *inv.policy
		p.OnRetry = retryObserver(inv.log, name)
		base = append(base, call.WithRetry(p))
	}
	return call.New(name, fn, append(base, opts...)...)
}

// Recent lists journaled outcomes, newest first.
func (inv *Invoker) Recent(ctx context.Context, limit int, kinds ...string) ([]*domain.OutcomeRecord, error) {
	if inv.outcomes == nil {
		return nil, nil
	}
	return inv.outcomes.Recent(ctx, limit, kinds...)
}

func (inv *Invoker) settled(o call.Outcome) {
	metrics.CallsTotal.WithLabelValues(o.Name, o.Status.String(), string(o.Disposition)).Inc()
	metrics.CallLatency.WithLabelValues(o.Name).Observe(o.Duration.Seconds())

	if o.Err != nil {
		metrics.CallErrorsTotal.WithLabelValues(o.Name, string(o.Err.Kind())).Inc()
		if o.Disposition == call.Committed {
			inv.log.Warn("Call failed",
				"name", o.Name,
				"kind", o.Err.Kind(),
				"attempts", o.Attempts,
				"error", o.Err.InternalMessage(),
			)
		}
	}
	if o.Disposition != call.Committed {
		inv.log.Debug("Call outcome discarded", "name", o.Name, "reason", o.Disposition)
	}

	if inv.outcomes == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := inv.outcomes.Save(ctx, toRecord(o)); err != nil {
		inv.log.Error("Failed to journal call outcome", "name", o.Name, "error", err)
	}
}

func toRecord(o call.Outcome) *domain.OutcomeRecord {
	rec := &domain.OutcomeRecord{
		InvocationID: o.InvocationID,
		Name:         o.Name,
		Status:       o.Status.String(),
		Disposition:  string(o.Disposition),
		Attempts:     o.Attempts,
		StartedAt:    o.StartedAt,
		DurationMs:   o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		rec.Kind = string(o.Err.Kind())
		rec.Message = o.Err.InternalMessage()
		rec.HTTPStatus = o.Err.HTTPStatus()
	}
	return rec
}

func retryObserver(log *slog.Logger, name string) func(int, *classify.Error, time.Duration) {
	return func(attempt int, err *classify.Error, delay time.Duration) {
		metrics.RetriesTotal.WithLabelValues(name, string(err.Kind())).Inc()
		log.Debug("Retrying call",
			"name", name,
			"attempt", attempt+1,
			"kind", err.Kind(),
			"delay", delay,
		)
	}
}
