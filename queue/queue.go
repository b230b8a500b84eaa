package queue

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/gltf2image/errors"
	"github.com/wippyai/gltf2image/future"
)

// Lane selects the FIFO an item is queued on.
type Lane uint8

const (
	LaneNormal Lane = iota
	LanePriority
)

func (l Lane) String() string {
	switch l {
	case LaneNormal:
		return "normal"
	case LanePriority:
		return "priority"
	default:
		return "unknown"
	}
}

// Observer receives queue activity, typically for metrics.
// Calls happen outside the queue lock.
type Observer interface {
	// OnEnqueue is called after an item was added; depth is the lane length.
	OnEnqueue(lane Lane, depth int)
	// OnExecute is called after an item ran; depth is the lane length left.
	OnExecute(lane Lane, depth int, wait, run time.Duration)
}

type item struct {
	fn       func()
	enqueued time.Time
	stop     bool
}

// Queue runs submitted actions one at a time on a single goroutine that is
// locked to its OS thread for its whole life. Every native engine call is
// funneled through it.
type Queue struct {
	observer Observer
	log      *zap.Logger
	wake     chan struct{}
	done     chan struct{}
	name     string
	lanes    [2][]item
	mu       sync.Mutex
	closed   bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithObserver installs an activity observer.
func WithObserver(o Observer) Option {
	return func(q *Queue) { q.observer = o }
}

// WithLogger overrides the package logger for this queue.
func WithLogger(l *zap.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// New starts a queue. name appears in logs.
func New(name string, opts ...Option) *Queue {
	q := &Queue{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.log == nil {
		q.log = Logger()
	}
	q.log = q.log.With(zap.String("queue", name))

	go q.loop()
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Submit enqueues fn on the normal lane and returns immediately.
func (q *Queue) Submit(fn func()) error {
	return q.Enqueue(LaneNormal, fn)
}

// SubmitPriority enqueues fn on the priority lane and returns immediately.
func (q *Queue) SubmitPriority(fn func()) error {
	return q.Enqueue(LanePriority, fn)
}

// Enqueue adds fn to lane. It fails with a closed error once Close has been
// called; nothing accepted is ever dropped.
func (q *Queue) Enqueue(lane Lane, fn func()) error {
	if lane > LanePriority {
		return errors.InvalidInput(errors.PhaseQueue, "unknown lane")
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.Closed(errors.PhaseQueue, "work queue "+q.name)
	}
	q.lanes[lane] = append(q.lanes[lane], item{fn: fn, enqueued: time.Now()})
	depth := len(q.lanes[lane])
	q.mu.Unlock()

	q.signal()
	if q.observer != nil {
		q.observer.OnEnqueue(lane, depth)
	}
	return nil
}

// Close enqueues the stop sentinel on the normal lane and returns without
// waiting. Items already queued still run; later submissions fail.
// Calling Close more than once is a no-op.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.lanes[LaneNormal] = append(q.lanes[LaneNormal], item{stop: true, enqueued: time.Now()})
	q.mu.Unlock()

	q.signal()
}

// Done is closed when the queue goroutine has exited.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Wait blocks until the queue goroutine exits or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) loop() {
	// The goroutine never unlocks: when it exits, its thread exits with it,
	// taking any thread-local engine state along.
	runtime.LockOSThread()
	defer close(q.done)

	q.log.Debug("work queue started")
	for range q.wake {
		for {
			it, lane, depth, ok := q.next()
			if !ok {
				break
			}
			if it.stop {
				q.log.Debug("work queue stopped")
				return
			}
			q.execute(lane, depth, it)
		}
	}
}

// next pops the oldest priority item, or the oldest normal item when the
// priority lane is empty.
func (q *Queue) next() (item, Lane, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, lane := range [...]Lane{LanePriority, LaneNormal} {
		items := q.lanes[lane]
		if len(items) == 0 {
			continue
		}
		it := items[0]
		items[0] = item{}
		q.lanes[lane] = items[1:]
		return it, lane, len(q.lanes[lane]), true
	}
	return item{}, 0, 0, false
}

func (q *Queue) execute(lane Lane, depth int, it item) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("queued action panicked",
				zap.Stringer("lane", lane),
				zap.Any("panic", r))
		}
		if q.observer != nil {
			q.observer.OnExecute(lane, depth, start.Sub(it.enqueued), time.Since(start))
		}
	}()
	it.fn()
}

// Call runs fn on q and returns a future for its result. The future resumes
// on the executor carried by ctx. A panic in fn fails the future instead of
// reaching the queue.
func Call[T any](ctx context.Context, q *Queue, lane Lane, fn func() (T, error)) *future.Future[T] {
	p, f := future.New[T](future.ExecutorFrom(ctx))

	err := q.Enqueue(lane, func() {
		defer func() {
			if r := recover(); r != nil {
				p.Fail(errors.Panicked(errors.PhaseQueue, r))
			}
		}()
		v, err := fn()
		if err != nil {
			p.Fail(err)
			return
		}
		p.Fulfill(v)
	})
	if err != nil {
		p.Fail(err)
	}
	return f
}

// Run is Call for actions without a result.
func Run(ctx context.Context, q *Queue, lane Lane, fn func() error) *future.Future[struct{}] {
	return Call(ctx, q, lane, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}
