package future

import "context"

// Executor runs continuations. Implementations decide on which goroutine.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Execute calls f(fn).
func (f ExecutorFunc) Execute(fn func()) {
	f(fn)
}

// Background runs every continuation on a new goroutine.
var Background Executor = ExecutorFunc(func(fn func()) { go fn() })

// Inline runs continuations on the goroutine that resolves the future.
// Never use it for futures resolved from native callback threads.
var Inline Executor = ExecutorFunc(func(fn func()) { fn() })

type executorKey struct{}

// WithExecutor returns a context carrying ex. Futures created for operations
// submitted with that context resume on ex.
func WithExecutor(ctx context.Context, ex Executor) context.Context {
	return context.WithValue(ctx, executorKey{}, ex)
}

// ExecutorFrom returns the executor carried by ctx, or Background.
func ExecutorFrom(ctx context.Context) Executor {
	if ctx == nil {
		return Background
	}
	if ex, ok := ctx.Value(executorKey{}).(Executor); ok && ex != nil {
		return ex
	}
	return Background
}
