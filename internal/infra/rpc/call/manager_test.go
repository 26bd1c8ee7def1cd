package call

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/vietddude/callcore/internal/infra/rpc/classify"
	"github.com/vietddude/callcore/internal/infra/rpc/retry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gate is an operation that blocks until released, so tests control the
// completion order of concurrent invocations.
type gate struct {
	started chan string
	release map[string]chan struct{}
	ctxErr  map[string]error
	mu      sync.Mutex
}

func newGate(names ...string) *gate {
	g := &gate{
		started: make(chan string, len(names)),
		release: make(map[string]chan struct{}),
		ctxErr:  make(map[string]error),
	}
	for _, n := range names {
		g.release[n] = make(chan struct{})
	}
	return g
}

func (g *gate) fn(ctx context.Context, name string) (string, error) {
	g.started <- name
	<-g.release[name]
	g.mu.Lock()
	g.ctxErr[name] = ctx.Err()
	g.mu.Unlock()
	return "result-" + name, nil
}

func (g *gate) waitStarted(t *testing.T, name string) {
	t.Helper()
	select {
	case got := <-g.started:
		if got != name {
			t.Fatalf("expected %s to start, got %s", name, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("%s never started", name)
	}
}

func TestExecute_Success(t *testing.T) {
	var notices []string
	m := New("orders.get", func(ctx context.Context, id int) (string, error) {
		return "order", nil
	}, WithSuccessNotice(func(msg string) { notices = append(notices, msg) }, "Saved"))
	defer m.Close()

	if st := m.State(); st.Status != StatusIdle || st.Err != nil {
		t.Fatalf("new manager not idle: %+v", st)
	}

	got, ok := m.Execute(context.Background(), 1)
	if !ok || got != "order" {
		t.Fatalf("Execute = %q, %v", got, ok)
	}

	st := m.State()
	if st.Status != StatusSucceeded || st.Result != "order" || st.Err != nil {
		t.Errorf("unexpected state: %+v", st)
	}
	if len(notices) != 1 || notices[0] != "Saved" {
		t.Errorf("unexpected notices: %v", notices)
	}
}

func TestExecute_Failure(t *testing.T) {
	var notices []string
	notify := func(msg string) { notices = append(notices, msg) }

	m := New("orders.save", func(ctx context.Context, _ struct{}) (int, error) {
		return 0, &classify.ResponseError{StatusCode: 422, Message: "Quantity must be positive"}
	}, WithFailureNotice(notify, ""))
	defer m.Close()

	if _, ok := m.Execute(context.Background(), struct{}{}); ok {
		t.Fatal("expected failure")
	}

	st := m.State()
	if st.Status != StatusFailed || st.Err == nil {
		t.Fatalf("unexpected state: %+v", st)
	}
	if st.Err.Kind() != classify.KindValidation {
		t.Errorf("got kind %s", st.Err.Kind())
	}
	if st.Result != 0 {
		t.Errorf("result should be zero in failed state, got %d", st.Result)
	}
	if len(notices) != 1 || notices[0] != "Quantity must be positive" {
		t.Errorf("unexpected notices: %v", notices)
	}
}

func TestExecute_FailureOverrideMessage(t *testing.T) {
	var got string
	m := New("inbox.list", func(ctx context.Context, _ struct{}) (int, error) {
		return 0, classify.ErrNoResponse
	}, WithFailureNotice(func(msg string) { got = msg }, "Could not load inbox"))
	defer m.Close()

	m.Execute(context.Background(), struct{}{})
	if got != "Could not load inbox" {
		t.Errorf("override not used, got %q", got)
	}
}

func TestExecute_Supersession(t *testing.T) {
	g := newGate("A", "B")
	var outcomes []Outcome
	var mu sync.Mutex
	m := New("search", g.fn, WithSettled(func(o Outcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	}))
	defer m.Close()

	type ret struct {
		value string
		ok    bool
	}
	doneA := make(chan ret, 1)
	go func() {
		v, ok := m.Execute(context.Background(), "A")
		doneA <- ret{v, ok}
	}()
	g.waitStarted(t, "A")

	doneB := make(chan ret, 1)
	go func() {
		v, ok := m.Execute(context.Background(), "B")
		doneB <- ret{v, ok}
	}()
	g.waitStarted(t, "B")

	// B finishes first, then the stale A resolves.
	close(g.release["B"])
	b := <-doneB
	close(g.release["A"])
	a := <-doneA

	if !b.ok || b.value != "result-B" {
		t.Errorf("B = %+v", b)
	}
	if a.ok {
		t.Errorf("superseded A should report not ok, got %+v", a)
	}

	st := m.State()
	if st.Status != StatusSucceeded || st.Result != "result-B" {
		t.Errorf("state should reflect only B: %+v", st)
	}

	g.mu.Lock()
	if g.ctxErr["A"] == nil {
		t.Error("A's context should have been cancelled when B started")
	}
	g.mu.Unlock()

	mu.Lock()
	defer mu.Unlock()
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 settled outcomes, got %d", len(outcomes))
	}
	dispositions := map[Disposition]int{}
	for _, o := range outcomes {
		dispositions[o.Disposition]++
	}
	if dispositions[Committed] != 1 || dispositions[Superseded] != 1 {
		t.Errorf("unexpected dispositions: %v", dispositions)
	}
}

func TestExecute_SupersededFailureDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var notices int
	m := New("profile", func(ctx context.Context, slow bool) (string, error) {
		if slow {
			started <- struct{}{}
			<-release
			return "", &classify.ResponseError{StatusCode: 500}
		}
		return "fresh", nil
	}, WithFailureNotice(func(string) { notices++ }, ""))
	defer m.Close()

	done := make(chan struct{})
	go func() {
		m.Execute(context.Background(), true)
		close(done)
	}()
	<-started

	if _, ok := m.Execute(context.Background(), false); !ok {
		t.Fatal("fresh call failed")
	}
	close(release)
	<-done

	if st := m.State(); st.Status != StatusSucceeded || st.Result != "fresh" {
		t.Errorf("stale failure leaked into state: %+v", st)
	}
	if notices != 0 {
		t.Errorf("failure notice fired for a superseded call")
	}
}

func TestClose_TeardownSafety(t *testing.T) {
	g := newGate("A")
	var outcome Outcome
	var successNotices int
	m := New("dashboard", g.fn,
		WithSuccessNotice(func(string) { successNotices++ }, "done"),
		WithSettled(func(o Outcome) { outcome = o }),
	)

	done := make(chan bool, 1)
	go func() {
		_, ok := m.Execute(context.Background(), "A")
		done <- ok
	}()
	g.waitStarted(t, "A")

	before := m.State()
	m.Close()
	close(g.release["A"])

	if ok := <-done; ok {
		t.Error("result committed after teardown")
	}
	if after := m.State(); after != before {
		t.Errorf("state mutated after teardown: before %+v, after %+v", before, after)
	}
	if successNotices != 0 {
		t.Error("success notice fired after teardown")
	}
	if outcome.Disposition != TornDown {
		t.Errorf("disposition = %s, want %s", outcome.Disposition, TornDown)
	}

	g.mu.Lock()
	if g.ctxErr["A"] == nil {
		t.Error("Close should cancel the in-flight invocation")
	}
	g.mu.Unlock()
}

func TestExecute_AfterClose(t *testing.T) {
	called := false
	var outcome Outcome
	m := New("noop", func(ctx context.Context, _ struct{}) (int, error) {
		called = true
		return 1, nil
	}, WithSettled(func(o Outcome) { outcome = o }))
	m.Close()
	m.Close()

	if _, ok := m.Execute(context.Background(), struct{}{}); ok {
		t.Error("Execute after Close should not succeed")
	}
	if called {
		t.Error("operation ran after Close")
	}
	if outcome.Disposition != TornDown || !errors.Is(outcome.Err, ErrClosed) {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if m.State().Status != StatusIdle {
		t.Errorf("state changed after Close: %+v", m.State())
	}
}

func TestExecute_WithRetry(t *testing.T) {
	calls := 0
	var outcome Outcome
	m := New("reports.fetch", func(ctx context.Context, _ struct{}) (string, error) {
		calls++
		if calls < 3 {
			return "", &classify.ResponseError{StatusCode: 503}
		}
		return "report", nil
	},
		WithRetry(retry.Policy{MaxRetries: 3, BaseDelay: time.Millisecond, UseBackoff: true}),
		WithSettled(func(o Outcome) { outcome = o }),
	)
	defer m.Close()

	got, ok := m.Execute(context.Background(), struct{}{})
	if !ok || got != "report" {
		t.Fatalf("Execute = %q, %v", got, ok)
	}
	if outcome.Attempts != 3 || outcome.Status != StatusSucceeded || outcome.Disposition != Committed {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if outcome.InvocationID == "" || outcome.Name != "reports.fetch" {
		t.Errorf("outcome missing identity: %+v", outcome)
	}
}

func TestExecute_ReentrantAndClearError(t *testing.T) {
	fail := true
	m := New("toggle", func(ctx context.Context, _ struct{}) (string, error) {
		if fail {
			return "", &classify.ResponseError{StatusCode: 404}
		}
		return "found", nil
	})
	defer m.Close()

	m.Execute(context.Background(), struct{}{})
	if m.State().Status != StatusFailed {
		t.Fatalf("expected failed, got %s", m.State().Status)
	}

	m.ClearError()
	if st := m.State(); st.Status != StatusIdle || st.Err != nil {
		t.Errorf("ClearError left %+v", st)
	}

	m.Execute(context.Background(), struct{}{})
	fail = false
	m.Execute(context.Background(), struct{}{})
	if st := m.State(); st.Status != StatusSucceeded || st.Err != nil || st.Result != "found" {
		t.Errorf("re-entrant execute left %+v", st)
	}

	m.ClearError()
	if m.State().Status != StatusSucceeded {
		t.Error("ClearError should not touch a succeeded state")
	}

	m.Reset()
	if st := m.State(); st.Status != StatusIdle || st.Result != "" {
		t.Errorf("Reset left %+v", st)
	}
}

func TestReset_DropsInFlight(t *testing.T) {
	g := newGate("A")
	m := New("feed", g.fn)
	defer m.Close()

	done := make(chan bool, 1)
	go func() {
		_, ok := m.Execute(context.Background(), "A")
		done <- ok
	}()
	g.waitStarted(t, "A")

	m.Reset()
	close(g.release["A"])

	if <-done {
		t.Error("in-flight call committed after Reset")
	}
	if st := m.State(); st.Status != StatusIdle {
		t.Errorf("expected idle after Reset, got %+v", st)
	}
}

func TestExecute_PanicIsClassified(t *testing.T) {
	m := New("fragile", func(ctx context.Context, _ struct{}) (int, error) {
		panic("nil map")
	})
	defer m.Close()

	if _, ok := m.Execute(context.Background(), struct{}{}); ok {
		t.Fatal("expected failure")
	}
	if st := m.State(); st.Status != StatusFailed || st.Err.Kind() != classify.KindUnknown {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestExecute_NilClassifiedError(t *testing.T) {
	var settled Outcome
	m := New("typed-nil", func(ctx context.Context, _ struct{}) (int, error) {
		var cerr *classify.Error
		return 0, cerr
	},
		WithRetry(retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond}),
		WithSettled(func(o Outcome) { settled = o }),
	)
	defer m.Close()

	if _, ok := m.Execute(context.Background(), struct{}{}); ok {
		t.Fatal("expected failure")
	}
	st := m.State()
	if st.Status != StatusFailed || st.Err == nil || st.Err.Kind() != classify.KindUnknown {
		t.Errorf("unexpected state: %+v", st)
	}
	if settled.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", settled.Attempts)
	}
}

func TestSettled_HooksRunInOrder(t *testing.T) {
	var order []string
	m := New("hooks", func(ctx context.Context, _ struct{}) (int, error) {
		return 1, nil
	},
		WithSettled(func(Outcome) { order = append(order, "first") }),
		WithSettled(func(Outcome) { panic("broken hook") }),
		WithSettled(func(Outcome) { order = append(order, "third") }),
	)
	defer m.Close()

	if _, ok := m.Execute(context.Background(), struct{}{}); !ok {
		t.Fatal("a panicking hook must not fail the call")
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "third" {
		t.Errorf("unexpected hook order: %v", order)
	}
}
