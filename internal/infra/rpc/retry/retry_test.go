package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/callcore/internal/infra/rpc/classify"
)

func fastPolicy(maxRetries int) Policy {
	return Policy{MaxRetries: maxRetries, BaseDelay: time.Millisecond, UseBackoff: true}
}

func TestDo_RetryBound(t *testing.T) {
	var attempts atomic.Int32
	op := func(ctx context.Context) (string, error) {
		n := attempts.Add(1)
		return "", &classify.ResponseError{StatusCode: 500, Message: fmt.Sprintf("attempt %d", n)}
	}

	_, err := Do(context.Background(), op, fastPolicy(2))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}

	var cerr *classify.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *classify.Error, got %T", err)
	}
	if cerr.Kind() != classify.KindServer {
		t.Errorf("got kind %s", cerr.Kind())
	}
	if cerr.UserMessage() != "attempt 3" {
		t.Errorf("expected final attempt's error, got %q", cerr.UserMessage())
	}
}

func TestDo_NonRetryableShortCircuit(t *testing.T) {
	var attempts atomic.Int32
	op := func(ctx context.Context) (int, error) {
		attempts.Add(1)
		return 0, &classify.ResponseError{StatusCode: 422}
	}

	_, err := Do(context.Background(), op, fastPolicy(10))
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
	if !classify.IsKind(err, classify.KindValidation) {
		t.Errorf("expected VALIDATION, got %v", err)
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	op := func(ctx context.Context) (string, error) {
		if attempts.Add(1) < 3 {
			return "", &classify.ResponseError{StatusCode: 503}
		}
		return "ok", nil
	}

	got, err := Do(context.Background(), op, fastPolicy(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || attempts.Load() != 3 {
		t.Errorf("got %q after %d attempts", got, attempts.Load())
	}
}

func TestDo_ZeroRetries(t *testing.T) {
	var attempts atomic.Int32
	op := func(ctx context.Context) (int, error) {
		attempts.Add(1)
		return 0, classify.ErrNoResponse
	}

	_, err := Do(context.Background(), op, fastPolicy(0))
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
	if !classify.IsKind(err, classify.KindNetwork) {
		t.Errorf("expected NETWORK, got %v", err)
	}
}

func TestDo_BackoffDelays(t *testing.T) {
	var delays []time.Duration
	p := Policy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		UseBackoff: true,
		OnRetry: func(attempt int, err *classify.Error, delay time.Duration) {
			delays = append(delays, delay)
		},
	}
	op := func(ctx context.Context) (int, error) {
		return 0, context.DeadlineExceeded
	}

	_, _ = Do(context.Background(), op, p)

	want := []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("got %d delays, want %d", len(delays), len(want))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestPolicy_Delay(t *testing.T) {
	flat := Policy{BaseDelay: time.Second}
	for attempt := 0; attempt < 4; attempt++ {
		if d := flat.Delay(attempt); d != time.Second {
			t.Errorf("flat delay %d = %v", attempt, d)
		}
	}

	exp := Policy{BaseDelay: time.Second, UseBackoff: true}
	if d := exp.Delay(3); d != 8*time.Second {
		t.Errorf("backoff delay 3 = %v, want 8s", d)
	}
}

func TestPolicy_DelaySaturates(t *testing.T) {
	p := Policy{BaseDelay: time.Second, UseBackoff: true}

	prev := p.Delay(0)
	for attempt := 1; attempt < 100; attempt++ {
		d := p.Delay(attempt)
		if d <= 0 {
			t.Fatalf("attempt %d: delay %v wrapped negative", attempt, d)
		}
		if d < prev {
			t.Fatalf("attempt %d: delay %v shrank from %v", attempt, d, prev)
		}
		prev = d
	}
	if d := p.Delay(34); d != math.MaxInt64 {
		t.Errorf("attempt 34: got %v, want saturation", d)
	}
	if d := p.Delay(33); d != time.Second<<33 {
		t.Errorf("attempt 33: got %v", d)
	}
}

func TestDo_ContextCancelStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var attempts atomic.Int32
	op := func(ctx context.Context) (int, error) {
		if attempts.Add(1) == 1 {
			cancel()
		}
		return 0, &classify.ResponseError{StatusCode: 502}
	}

	start := time.Now()
	_, err := Do(ctx, op, Policy{MaxRetries: 5, BaseDelay: time.Minute, UseBackoff: true})
	if time.Since(start) > 5*time.Second {
		t.Fatal("Do did not return promptly after cancellation")
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
	if !classify.IsKind(err, classify.KindServer) {
		t.Errorf("expected last attempt's SERVER error, got %v", err)
	}
}

func TestWrapFunc(t *testing.T) {
	var attempts atomic.Int32
	fn := func(ctx context.Context, n int) (int, error) {
		if attempts.Add(1) == 1 {
			return 0, &classify.ResponseError{StatusCode: 429}
		}
		return n * 2, nil
	}

	got, err := WrapFunc(fn, fastPolicy(1))(context.Background(), 21)
	if err != nil || got != 42 {
		t.Errorf("got %d, %v", got, err)
	}
}
