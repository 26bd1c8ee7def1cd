// Package call provides the caller-facing lifecycle manager for remote calls.
//
// A Manager wraps one named operation and exposes an observable State. Only
// the most recently started invocation may commit its outcome: starting a new
// invocation cancels the previous one, and a stale result that still arrives
// is dropped. Close tears the manager down for good; nothing that completes
// afterwards can touch its state.
package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/callcore/internal/infra/rpc"
	"github.com/vietddude/callcore/internal/infra/rpc/classify"
	"github.com/vietddude/callcore/internal/infra/rpc/retry"
)

// ErrClosed is the cause reported for invocations started after Close.
var ErrClosed = errors.New("call manager closed")

// Option configures a Manager.
type Option func(*options)

type options struct {
	retry *retry.Policy

	onSuccess      func(message string)
	successMessage string

	onFailure       func(message string)
	failureOverride string

	onSettled []func(Outcome)
}

// WithRetry wraps every invocation in the retry executor.
func WithRetry(p retry.Policy) Option {
	return func(o *options) {
		o.retry = &p
	}
}

// WithSuccessNotice calls fn with message whenever a success is committed.
func WithSuccessNotice(fn func(message string), message string) Option {
	return func(o *options) {
		o.onSuccess = fn
		o.successMessage = message
	}
}

// WithFailureNotice calls fn whenever a failure is committed. The message is
// override when non-empty, otherwise the error's user message.
func WithFailureNotice(fn func(message string), override string) Option {
	return func(o *options) {
		o.onFailure = fn
		o.failureOverride = override
	}
}

// WithSettled calls fn exactly once per invocation, whatever its outcome.
// Hooks from repeated WithSettled options run in the order given.
func WithSettled(fn func(Outcome)) Option {
	return func(o *options) {
		o.onSettled = append(o.onSettled, fn)
	}
}

// Manager runs a named operation with supersession-safe state tracking.
// It is safe for concurrent use.
type Manager[A, R any] struct {
	name string
	fn   rpc.Func[A, R]
	opts options

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	closed bool
	state  State[R]
}

// New creates an idle manager for fn.
func New[A, R any](name string, fn rpc.Func[A, R], opts ...Option) *Manager[A, R] {
	m := &Manager[A, R]{
		name:  name,
		fn:    fn,
		state: State[R]{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(&m.opts)
	}
	return m
}

// Name returns the operation name.
func (m *Manager[A, R]) Name() string {
	return m.name
}

// State returns a snapshot of the current state.
func (m *Manager[A, R]) State() State[R] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Execute runs the operation with arg, cancelling any invocation still in
// flight. It never panics and never returns an error: ok is false when the
// call failed or its outcome was discarded, and State carries the details.
func (m *Manager[A, R]) Execute(ctx context.Context, arg A) (result R, ok bool) {
	out := Outcome{
		InvocationID: uuid.NewString(),
		Name:         m.name,
		StartedAt:    time.Now(),
		Status:       StatusFailed,
	}
	defer func() {
		out.Duration = time.Since(out.StartedAt)
		m.settled(out)
	}()

	gen, runCtx, cancel, started := m.begin(ctx)
	if !started {
		out.Disposition = TornDown
		out.Err = classify.New(classify.KindUnknown, ErrClosed.Error(), ErrClosed)
		return result, false
	}
	defer cancel()

	value, err := m.run(runCtx, arg, &out.Attempts)
	if err == nil {
		out.Status = StatusSucceeded
		out.Disposition = m.commit(gen, State[R]{Status: StatusSucceeded, Result: value})
		if out.Disposition != Committed {
			slog.Debug("Discarding stale call result", "name", m.name, "reason", out.Disposition)
			return result, false
		}
		if m.opts.onSuccess != nil {
			m.notify(m.opts.onSuccess, m.opts.successMessage)
		}
		return value, true
	}

	cerr := classify.Classify(err)
	out.Err = cerr
	out.Disposition = m.commit(gen, State[R]{Status: StatusFailed, Err: cerr})
	if out.Disposition != Committed {
		slog.Debug("Discarding stale call failure", "name", m.name, "reason", out.Disposition, "kind", cerr.Kind())
		return result, false
	}
	if m.opts.onFailure != nil {
		msg := m.opts.failureOverride
		if msg == "" {
			msg = cerr.UserMessage()
		}
		m.notify(m.opts.onFailure, msg)
	}
	return result, false
}

// ClearError drops a committed failure, returning the manager to idle.
func (m *Manager[A, R]) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state.Status != StatusFailed {
		return
	}
	m.state = State[R]{Status: StatusIdle}
}

// Reset forces the manager back to idle. An invocation still in flight is
// cancelled and can no longer commit.
func (m *Manager[A, R]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.supersede()
	m.state = State[R]{Status: StatusIdle}
}

// Close tears the manager down. The in-flight invocation is cancelled and no
// later outcome mutates state. Close is idempotent.
func (m *Manager[A, R]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.supersede()
}

// begin claims a new generation and moves the manager to loading.
func (m *Manager[A, R]) begin(ctx context.Context) (uint64, context.Context, context.CancelFunc, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, nil, nil, false
	}
	m.supersede()

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.state = State[R]{Status: StatusLoading}
	return m.gen, runCtx, cancel, true
}

// supersede invalidates the current generation. Callers hold mu.
func (m *Manager[A, R]) supersede() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
}

// commit writes next only if gen is still current and the manager is open.
func (m *Manager[A, R]) commit(gen uint64, next State[R]) Disposition {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return TornDown
	}
	if gen != m.gen {
		return Superseded
	}
	m.state = next
	m.cancel = nil
	return Committed
}

func (m *Manager[A, R]) run(ctx context.Context, arg A, attempts *int) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation %s panicked: %v", m.name, r)
		}
	}()

	op := func(ctx context.Context) (R, error) {
		*attempts++
		return m.fn(ctx, arg)
	}
	if m.opts.retry != nil {
		return retry.Do(ctx, op, *m.opts.retry)
	}
	return op(ctx)
}

func (m *Manager[A, R]) notify(fn func(string), message string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Call notification hook panicked", "name", m.name, "panic", r)
		}
	}()
	fn(message)
}

func (m *Manager[A, R]) settled(out Outcome) {
	for _, fn := range m.opts.onSettled {
		m.runSettled(fn, out)
	}
}

func (m *Manager[A, R]) runSettled(fn func(Outcome), out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Call settled hook panicked", "name", m.name, "panic", r)
		}
	}()
	fn(out)
}
