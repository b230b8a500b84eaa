package future

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/gltf2image/errors"
)

type state[T any] struct {
	ex       Executor
	err      error
	done     chan struct{}
	value    T
	thens    []func(T, error)
	mu       sync.Mutex
	settled  bool // a Fulfill/Fail call won
	resolved bool // result published, done closed
}

// Pending is the producer side of a Future. Exactly one of Fulfill or Fail
// takes effect.
type Pending[T any] struct {
	s *state[T]
}

// Future is the consumer side: an awaitable result.
type Future[T any] struct {
	s *state[T]
}

// New creates a linked Pending and Future. Resolution is posted to ex, so the
// goroutine that fulfills (possibly a native callback thread) never runs
// continuations itself. A nil ex means Background.
func New[T any](ex Executor) (*Pending[T], *Future[T]) {
	if ex == nil {
		ex = Background
	}
	s := &state[T]{
		ex:   ex,
		done: make(chan struct{}),
	}
	return &Pending[T]{s: s}, &Future[T]{s: s}
}

// Resolved returns an already fulfilled future.
func Resolved[T any](v T) *Future[T] {
	s := &state[T]{
		ex:       Background,
		done:     make(chan struct{}),
		value:    v,
		settled:  true,
		resolved: true,
	}
	close(s.done)
	return &Future[T]{s: s}
}

// Failed returns an already failed future.
func Failed[T any](err error) *Future[T] {
	s := &state[T]{
		ex:       Background,
		done:     make(chan struct{}),
		err:      err,
		settled:  true,
		resolved: true,
	}
	close(s.done)
	return &Future[T]{s: s}
}

// Fulfill completes the future with v. It reports whether this call won;
// later calls are ignored and logged.
func (p *Pending[T]) Fulfill(v T) bool {
	return p.s.settle(v, nil)
}

// Fail completes the future with err. It reports whether this call won;
// later calls are ignored and logged.
func (p *Pending[T]) Fail(err error) bool {
	if err == nil {
		err = errors.Unknown(errors.PhaseQueue, "operation failed without an error")
	}
	var zero T
	return p.s.settle(zero, err)
}

// Future returns the consumer side of p.
func (p *Pending[T]) Future() *Future[T] {
	return &Future[T]{s: p.s}
}

func (s *state[T]) settle(v T, err error) bool {
	s.mu.Lock()
	if s.settled {
		s.mu.Unlock()
		Logger().Warn("duplicate completion ignored",
			zap.Bool("failure", err != nil),
			zap.Error(err))
		return false
	}
	s.settled = true
	s.value = v
	s.err = err
	s.mu.Unlock()

	s.ex.Execute(s.publish)
	return true
}

func (s *state[T]) publish() {
	s.mu.Lock()
	s.resolved = true
	thens := s.thens
	s.thens = nil
	close(s.done)
	s.mu.Unlock()

	for _, fn := range thens {
		fn(s.value, s.err)
	}
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.s.done
}

// Await blocks until the result is available or ctx is done. Giving up on
// ctx does not cancel the underlying operation; it still runs to completion.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.s.done:
		return f.s.value, f.s.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Ready reports whether the result is available.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.s.done:
		return true
	default:
		return false
	}
}

// Then registers fn to run on the future's executor once it resolves.
// If the future already resolved, fn is scheduled immediately.
func (f *Future[T]) Then(fn func(T, error)) {
	s := f.s
	s.mu.Lock()
	if !s.resolved {
		s.thens = append(s.thens, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.ex.Execute(func() { fn(s.value, s.err) })
}
