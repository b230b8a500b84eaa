package logrelay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/gltf2image/errors"
	"github.com/wippyai/gltf2image/native"
	"github.com/wippyai/gltf2image/native/sim"
)

type entry struct {
	level native.LogLevel
	msg   string
}

type recorder struct {
	entries []entry
	mu      sync.Mutex
}

func (r *recorder) Log(level native.LogLevel, msg string) {
	r.mu.Lock()
	r.entries = append(r.entries, entry{level, msg})
	r.mu.Unlock()
}

func (r *recorder) all() []entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entry(nil), r.entries...)
}

func TestFor_SameEngineSameRelay(t *testing.T) {
	e := sim.New()
	assert.Same(t, For(e), For(e))
	assert.NotSame(t, For(e), For(sim.New()))
}

func TestSet_NativeCallsOnlyOnEdges(t *testing.T) {
	e := sim.New()
	r := For(e)
	a, b := &recorder{}, &recorder{}

	require.NoError(t, r.Set(a))
	require.NoError(t, r.Set(a))
	require.NoError(t, r.Set(b))
	assert.Equal(t, int64(1), e.Calls().SetLogCallback)
	assert.True(t, r.Registered())
	assert.Same(t, b, r.Sink())

	e.Emit(native.LogInfo, "hello")
	assert.Empty(t, a.all())
	assert.Equal(t, []entry{{native.LogInfo, "hello"}}, b.all())

	require.NoError(t, r.Set(nil))
	require.NoError(t, r.Set(nil))
	assert.Equal(t, int64(2), e.Calls().SetLogCallback)
	assert.False(t, r.Registered())
	assert.Nil(t, r.Sink())

	e.Emit(native.LogInfo, "dropped")
	assert.Len(t, b.all(), 1)

	require.NoError(t, r.Set(a))
	assert.Equal(t, int64(3), e.Calls().SetLogCallback)
	e.Emit(native.LogError, "again")
	assert.Equal(t, []entry{{native.LogError, "again"}}, a.all())
}

// rejecting fails every log callback change.
type rejecting struct {
	*sim.Engine
	calls int
}

func (r *rejecting) Name() string { return "rejecting/" + r.Engine.Name() }

func (r *rejecting) SetLogCallback(native.LogCallback, uintptr) native.Status {
	r.calls++
	return native.StatusUnknownError
}

func TestSet_FailureKeepsPreviousState(t *testing.T) {
	e := &rejecting{Engine: sim.New()}
	r := For(e)

	err := r.Set(&recorder{})
	require.ErrorIs(t, err, errors.ErrUnknown)
	assert.False(t, r.Registered())
	assert.Nil(t, r.Sink())
	assert.Equal(t, 1, e.calls)
}

func TestDispatch_CleansPayload(t *testing.T) {
	rec := &recorder{}
	r := &Relay{engine: sim.New()}
	r.sink.Store(&sinkBox{s: rec})

	r.dispatch(native.LogWarning, []byte("trimmed\x00\x00"), 0)
	r.dispatch(native.LogDebug, []byte{'b', 'a', 0xff, 'd', 0}, 0)
	r.dispatch(native.LogVerbose, nil, 0)

	assert.Equal(t, []entry{
		{native.LogWarning, "trimmed"},
		{native.LogDebug, "ba�d"},
		{native.LogVerbose, ""},
	}, rec.all())
}

func TestDispatch_SinkPanicIsContained(t *testing.T) {
	r := &Relay{engine: sim.New()}
	r.sink.Store(&sinkBox{s: SinkFunc(func(native.LogLevel, string) { panic("boom") })})

	assert.NotPanics(t, func() { r.dispatch(native.LogInfo, []byte("x"), 0) })
}

func TestZapSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := sim.New()
	r := For(e)
	require.NoError(t, r.Set(ZapSink(zap.New(core))))
	t.Cleanup(func() { _ = r.Set(nil) })

	e.Emit(native.LogVerbose, "v")
	e.Emit(native.LogDebug, "d")
	e.Emit(native.LogInfo, "i")
	e.Emit(native.LogWarning, "w")
	e.Emit(native.LogError, "e")

	all := logs.All()
	require.Len(t, all, 5)
	want := []zapcore.Level{
		zapcore.DebugLevel,
		zapcore.DebugLevel,
		zapcore.InfoLevel,
		zapcore.WarnLevel,
		zapcore.ErrorLevel,
	}
	for i, l := range want {
		assert.Equal(t, l, all[i].Level, all[i].Message)
	}
	assert.Equal(t, "engine", all[0].ContextMap()["source"])
}
