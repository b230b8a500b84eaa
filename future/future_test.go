package future

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/gltf2image/errors"
)

// manualExecutor queues work until the test drains it, standing in for a
// caller-owned event loop.
type manualExecutor struct {
	mu    sync.Mutex
	queue []func()
}

func (m *manualExecutor) Execute(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

func (m *manualExecutor) drain() int {
	m.mu.Lock()
	q := m.queue
	m.queue = nil
	m.mu.Unlock()
	for _, fn := range q {
		fn()
	}
	return len(q)
}

func TestFuture_FulfillAwait(t *testing.T) {
	p, f := New[int](nil)
	go p.Fulfill(42)

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, f.Ready())
}

func TestFuture_Fail(t *testing.T) {
	p, f := New[string](Background)
	want := errors.InvalidScene(errors.PhaseRender, "no camera")
	require.True(t, p.Fail(want))

	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, errors.ErrInvalidScene)
}

func TestFuture_FailNilError(t *testing.T) {
	p, f := New[int](Inline)
	p.Fail(nil)

	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, errors.ErrUnknown)
}

func TestFuture_FirstCompletionWins(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	p, f := New[int](Inline)
	assert.True(t, p.Fulfill(1))
	assert.False(t, p.Fulfill(2))
	assert.False(t, p.Fail(errors.Unknown(errors.PhaseRender, "late")))

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, logs.FilterMessage("duplicate completion ignored").Len())
}

func TestFuture_ConcurrentCompletionExactlyOnce(t *testing.T) {
	p, f := New[int](Inline)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				if p.Fulfill(i) {
					wins.Add(1)
				}
			} else if p.Fail(errors.Unknown(errors.PhaseRender, "x")) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.True(t, f.Ready())
}

func TestFuture_ResolvesOnCapturedExecutor(t *testing.T) {
	ex := &manualExecutor{}
	p, f := New[int](ex)

	var got int
	f.Then(func(v int, err error) { got = v })

	require.True(t, p.Fulfill(7))
	assert.False(t, f.Ready(), "must not resolve on the fulfilling goroutine")
	assert.Equal(t, 0, got)

	assert.Equal(t, 1, ex.drain())
	assert.True(t, f.Ready())
	assert.Equal(t, 7, got)
}

func TestFuture_ThenAfterResolve(t *testing.T) {
	ex := &manualExecutor{}
	p, f := New[int](ex)
	p.Fulfill(3)
	ex.drain()

	var got int
	f.Then(func(v int, err error) { got = v })
	assert.Equal(t, 0, got, "late continuation still goes through the executor")
	ex.drain()
	assert.Equal(t, 3, got)
}

func TestFuture_AwaitContextExpires(t *testing.T) {
	p, f := New[int](nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The operation is not cancelled: it can still complete.
	assert.True(t, p.Fulfill(1))
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestResolvedFailed(t *testing.T) {
	v, err := Resolved("ok").Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	_, err = Failed[int](errors.ErrClosed).Await(context.Background())
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestExecutorFrom(t *testing.T) {
	ex := &manualExecutor{}
	ctx := WithExecutor(context.Background(), ex)
	assert.Same(t, ex, ExecutorFrom(ctx))
	assert.NotNil(t, ExecutorFrom(context.Background()))
	assert.NotNil(t, ExecutorFrom(nil)) //nolint:staticcheck
}
