// Package retry re-runs failed operations with exponential backoff when the
// classified failure is retryable.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/vietddude/callcore/internal/infra/rpc"
	"github.com/vietddude/callcore/internal/infra/rpc/classify"
)

// Policy defines retry behavior.
type Policy struct {
	// MaxRetries is the number of re-attempts after the first failure.
	MaxRetries int
	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration
	// UseBackoff doubles the delay on every retry; otherwise it stays flat.
	UseBackoff bool

	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt int, err *classify.Error, delay time.Duration)
}

// DefaultPolicy provides sensible defaults.
var DefaultPolicy = Policy{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	UseBackoff: true,
}

// Do runs op until it succeeds, fails with a non-retryable kind, or the
// retry budget is spent. The returned error is always a *classify.Error
// describing the final attempt.
//
// A done ctx stops further attempts; the last attempt's error is returned.
func Do[R any](ctx context.Context, op rpc.Operation[R], p Policy) (R, error) {
	p = p.normalize()

	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		cerr := classify.Classify(err)
		if !cerr.Retryable() || attempt >= p.MaxRetries {
			var zero R
			return zero, cerr
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, cerr, delay)
		}

		if !sleep(ctx, delay) {
			var zero R
			return zero, cerr
		}
	}
}

// Wrap returns op pre-wrapped with the policy.
func Wrap[R any](op rpc.Operation[R], p Policy) rpc.Operation[R] {
	return func(ctx context.Context) (R, error) {
		return Do(ctx, op, p)
	}
}

// WrapFunc returns fn pre-wrapped with the policy, for per-item batch retry.
func WrapFunc[A, R any](fn rpc.Func[A, R], p Policy) rpc.Func[A, R] {
	return func(ctx context.Context, arg A) (R, error) {
		return Do(ctx, rpc.Bind(fn, arg), p)
	}
}

// Delay returns the wait before retry number attempt+1. MaxRetries is the
// cap on growth; a delay that would overflow saturates at the largest
// representable duration.
func (p Policy) Delay(attempt int) time.Duration {
	if !p.UseBackoff || attempt <= 0 {
		return p.BaseDelay
	}
	if p.BaseDelay <= 0 {
		return 0
	}
	if attempt >= 63 || p.BaseDelay > math.MaxInt64>>uint(attempt) {
		return math.MaxInt64
	}
	return p.BaseDelay << uint(attempt)
}

func (p Policy) normalize() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPolicy.BaseDelay
	}
	return p
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
