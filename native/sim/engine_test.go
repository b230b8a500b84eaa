package sim

import (
	"bytes"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/gltf2image/native"
)

const oneCamera = `{
  "asset": {"version": "2.0"},
  "scenes": [{"nodes": [0, 1]}],
  "nodes": [{"mesh": 0}, {"camera": 0}],
  "cameras": [{"type": "perspective", "perspective": {"yfov": 0.8, "znear": 0.1}}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "material": 0}]}],
  "materials": [{"pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 1]}}]
}`

const noCamera = `{"asset": {"version": "2.0"}, "nodes": [{"mesh": 0}], "meshes": [{}]}`

const twoCameras = `{
  "asset": {"version": "2.0"},
  "nodes": [{"camera": 0}, {"camera": 1}],
  "cameras": [{"type": "orthographic"}, {"type": "orthographic"}]
}`

// glb re-encodes a glTF JSON document as a binary container.
func glb(t *testing.T, doc string) []byte {
	t.Helper()
	var d gltf.Document
	require.NoError(t, gltf.NewDecoder(strings.NewReader(doc)).Decode(&d))
	var b bytes.Buffer
	enc := gltf.NewEncoder(&b)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(&d))
	return b.Bytes()
}

// onThread pins the test goroutine so the thread affinity check passes.
func onThread(t *testing.T) {
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)
}

func TestLoadAsset(t *testing.T) {
	onThread(t)
	e := New()
	ctx, st := e.CreateContext()
	require.Equal(t, native.StatusSuccess, st)

	tests := []struct {
		name string
		data []byte
		want native.Status
	}{
		{"json", []byte(oneCamera), native.StatusSuccess},
		{"glb", glb(t, oneCamera), native.StatusSuccess},
		{"empty", nil, native.StatusInvalidSceneCouldNotLoadAsset},
		{"not json", []byte("solid cube\nendsolid"), native.StatusInvalidSceneCouldNotLoadAsset},
		{"json array", []byte(`[1,2,3]`), native.StatusInvalidSceneCouldNotLoadAsset},
		{"missing asset", []byte(`{"nodes": []}`), native.StatusInvalidSceneCouldNotLoadAsset},
		{"truncated glb", glb(t, oneCamera)[:16], native.StatusInvalidSceneCouldNotLoadAsset},
		{"bad camera ref", []byte(`{"asset":{"version":"2.0"},"nodes":[{"camera":3}]}`), native.StatusInvalidSceneCouldNotLoadAsset},
	}
	// Subtests would run on other goroutines and fail the thread check.
	for _, tt := range tests {
		_, st := e.LoadAsset(ctx, tt.data)
		assert.Equal(t, tt.want, st, tt.name)
	}
	assert.Equal(t, 2, e.LiveAssets())
}

func TestRender_Cameras(t *testing.T) {
	onThread(t)
	e := New()
	ctx, _ := e.CreateContext()
	buf := make([]byte, 4*2*2)
	p := unsafe.Pointer(&buf[0])

	none, st := e.LoadAsset(ctx, []byte(noCamera))
	require.Equal(t, native.StatusSuccess, st)
	two, st := e.LoadAsset(ctx, []byte(twoCameras))
	require.Equal(t, native.StatusSuccess, st)
	one, st := e.LoadAsset(ctx, []byte(oneCamera))
	require.Equal(t, native.StatusSuccess, st)

	cb := func(native.Status, native.UserToken) { t.Error("callback must not fire on immediate failure") }
	assert.Equal(t, native.StatusInvalidSceneNoCamerasFound, e.Render(ctx, 2, 2, []native.AssetToken{none}, p, len(buf), cb, 1))
	assert.Equal(t, native.StatusInvalidSceneNoCamerasFound, e.Render(ctx, 2, 2, nil, p, len(buf), cb, 1))
	assert.Equal(t, native.StatusInvalidSceneTooManyCameras, e.Render(ctx, 2, 2, []native.AssetToken{two}, p, len(buf), cb, 1))
	assert.Equal(t, native.StatusInvalidSceneTooManyCameras, e.Render(ctx, 2, 2, []native.AssetToken{one, one}, p, len(buf), cb, 1))
	assert.Equal(t, native.StatusPixelBufferWrongSize, e.Render(ctx, 2, 2, []native.AssetToken{one}, p, len(buf)-1, cb, 1))
}

func TestRender_AsyncCompletion(t *testing.T) {
	onThread(t)
	e := New()
	ctx, _ := e.CreateContext()
	a, _ := e.LoadAsset(ctx, []byte(oneCamera))

	buf := make([]byte, 4*3*2)
	var pin runtime.Pinner
	pin.Pin(&buf[0])
	defer pin.Unpin()

	done := make(chan native.UserToken, 1)
	st := e.Render(ctx, 3, 2, []native.AssetToken{a}, unsafe.Pointer(&buf[0]), len(buf),
		func(st native.Status, user native.UserToken) {
			assert.Equal(t, native.StatusSuccess, st)
			done <- user
		}, 77)
	require.Equal(t, native.StatusSuccess, st)
	assert.Equal(t, native.UserToken(77), <-done)

	for i := 0; i < len(buf); i += 4 {
		assert.Equal(t, []byte{255, 0, 0, 255}, buf[i:i+4])
	}
}

func TestRender_SnapshotSurvivesDestroy(t *testing.T) {
	onThread(t)
	gate := make(chan struct{})
	e := New(WithCompletionHook(func(native.UserToken) { <-gate }))
	ctx, _ := e.CreateContext()
	a, _ := e.LoadAsset(ctx, []byte(oneCamera))

	buf := make([]byte, 4)
	var pin runtime.Pinner
	pin.Pin(&buf[0])
	defer pin.Unpin()

	done := make(chan native.Status, 1)
	require.Equal(t, native.StatusSuccess, e.Render(ctx, 1, 1, []native.AssetToken{a},
		unsafe.Pointer(&buf[0]), len(buf), func(st native.Status, _ native.UserToken) { done <- st }, 1))

	require.Equal(t, native.StatusSuccess, e.DestroyAsset(ctx, a))
	close(gate)
	assert.Equal(t, native.StatusSuccess, <-done)
	assert.Equal(t, []byte{255, 0, 0, 255}, buf)
}

func TestDestroyContext_WaitsAndReleases(t *testing.T) {
	onThread(t)
	gate := make(chan struct{})
	e := New(WithCompletionHook(func(native.UserToken) { <-gate }))
	ctx, _ := e.CreateContext()
	a, _ := e.LoadAsset(ctx, []byte(oneCamera))
	_, _ = e.LoadAsset(ctx, []byte(noCamera))

	buf := make([]byte, 4)
	var pin runtime.Pinner
	pin.Pin(&buf[0])
	defer pin.Unpin()

	completed := make(chan struct{}, 1)
	require.Equal(t, native.StatusSuccess, e.Render(ctx, 1, 1, []native.AssetToken{a},
		unsafe.Pointer(&buf[0]), len(buf), func(native.Status, native.UserToken) { completed <- struct{}{} }, 1))

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(gate)
	}()
	assert.Equal(t, native.StatusSuccess, e.DestroyContext(ctx))
	select {
	case <-completed:
	default:
		t.Fatal("DestroyContext returned before the in-flight render completed")
	}
	assert.Equal(t, 0, e.LiveContexts())
	assert.Equal(t, 0, e.LiveAssets())

	_, st := e.LoadAsset(ctx, []byte(oneCamera))
	assert.Equal(t, native.StatusUnknownError, st, "destroyed context token is dead")
}

func TestWrongThread(t *testing.T) {
	if !threadCheckSupported {
		t.Skip("no thread id on this platform")
	}
	onThread(t)
	e := New()
	ctx, _ := e.CreateContext()

	got := make(chan native.Status, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		_, st := e.LoadAsset(ctx, []byte(oneCamera))
		got <- st
	}()
	assert.Equal(t, native.StatusWrongThread, <-got)

	relaxed := New(WithoutThreadCheck())
	rctx, _ := relaxed.CreateContext()
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		_, st := relaxed.LoadAsset(rctx, []byte(oneCamera))
		got <- st
	}()
	assert.Equal(t, native.StatusSuccess, <-got)
}

func TestLogCallback(t *testing.T) {
	onThread(t)
	e := New()

	type entry struct {
		level native.LogLevel
		msg   []byte
		user  uintptr
	}
	var mu sync.Mutex
	var got []entry
	require.Equal(t, native.StatusSuccess, e.SetLogCallback(func(l native.LogLevel, m []byte, u uintptr) {
		mu.Lock()
		got = append(got, entry{l, append([]byte(nil), m...), u})
		mu.Unlock()
	}, 5))

	_, _ = e.CreateContext()
	e.Emit(native.LogWarning, "hello")

	mu.Lock()
	require.Len(t, got, 2)
	assert.Equal(t, native.LogWarning, got[1].level)
	assert.Equal(t, []byte("hello\x00"), got[1].msg)
	assert.Equal(t, uintptr(5), got[1].user)
	mu.Unlock()

	require.Equal(t, native.StatusSuccess, e.SetLogCallback(nil, 0))
	e.Emit(native.LogError, "dropped")
	mu.Lock()
	assert.Len(t, got, 2)
	mu.Unlock()

	assert.Equal(t, int64(2), e.Calls().SetLogCallback)
}
