// Package rpc provides the resilient remote-call execution core.
//
// The core is built from four layers, each depending on the one below:
//
//   - classify/ - maps any failure to a closed Kind plus retryability
//   - retry/    - re-runs an operation with exponential backoff on retryable kinds
//   - batch/    - runs an operation over many inputs in bounded chunks
//   - call/     - caller-facing manager with observable state and supersession
//
// Transport adapters that produce classifiable failures live in provider/.
//
// # Quick Start
//
//	fetch := func(ctx context.Context, id string) (Order, error) {
//	    return api.GetOrder(ctx, id)
//	}
//
//	m := call.New("orders.get", fetch, call.WithRetry(retry.DefaultPolicy))
//	defer m.Close()
//
//	if order, ok := m.Execute(ctx, "42"); ok {
//	    render(order)
//	} else if st := m.State(); st.Err != nil {
//	    show(st.Err.UserMessage())
//	}
package rpc

import "context"

// Operation is a repeatable unit of remote work. It must be safe to invoke
// more than once and should abandon promptly once ctx is done.
type Operation[R any] func(ctx context.Context) (R, error)

// Func is an Operation that takes an argument, such as a batch input item.
type Func[A, R any] func(ctx context.Context, arg A) (R, error)

// Bind fixes the argument of fn, producing an Operation.
func Bind[A, R any](fn Func[A, R], arg A) Operation[R] {
	return func(ctx context.Context) (R, error) {
		return fn(ctx, arg)
	}
}

// Lift turns an Operation into a Func that ignores its argument.
func Lift[R any](op Operation[R]) Func[struct{}, R] {
	return func(ctx context.Context, _ struct{}) (R, error) {
		return op(ctx)
	}
}
