package sim

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/gltf2image/native"
)

// Calls counts engine entry point invocations.
type Calls struct {
	CreateContext  int64
	DestroyContext int64
	LoadAsset      int64
	DestroyAsset   int64
	Render         int64
	SetLogCallback int64
}

// Total returns the number of calls of any kind.
func (c Calls) Total() int64 {
	return c.CreateContext + c.DestroyContext + c.LoadAsset + c.DestroyAsset + c.Render + c.SetLogCallback
}

type counters struct {
	createContext  atomic.Int64
	destroyContext atomic.Int64
	loadAsset      atomic.Int64
	destroyAsset   atomic.Int64
	render         atomic.Int64
	setLogCallback atomic.Int64
}

type logBinding struct {
	cb   native.LogCallback
	user uintptr
}

type engineContext struct {
	assets   map[native.AssetToken]*scene
	inflight sync.WaitGroup
	tid      int
}

// Engine is a software implementation of native.Engine. It renders a flat
// fill of the scene's first material color, which is enough to observe the
// bridge: thread affinity, asynchronous completion from a foreign
// goroutine, writes through a raw output pointer and per-handle lifetimes.
type Engine struct {
	log        atomic.Pointer[logBinding]
	contexts   map[native.ContextToken]*engineContext
	hook       func(native.UserToken)
	calls      counters
	latency    time.Duration
	liveAssets atomic.Int64
	next       uintptr
	mu         sync.Mutex
	anyThread  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLatency delays every render completion by d.
func WithLatency(d time.Duration) Option {
	return func(e *Engine) { e.latency = d }
}

// WithCompletionHook runs fn on the completion goroutine before pixels are
// written. Blocking in fn holds the render in flight.
func WithCompletionHook(fn func(native.UserToken)) Option {
	return func(e *Engine) { e.hook = fn }
}

// WithoutThreadCheck accepts calls from any thread.
func WithoutThreadCheck() Option {
	return func(e *Engine) { e.anyThread = true }
}

// New returns a software engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		contexts: make(map[native.ContextToken]*engineContext),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ native.Engine = (*Engine)(nil)

// Name implements native.Engine.
func (e *Engine) Name() string {
	return fmt.Sprintf("sim/%p", e)
}

// CreateContext implements native.Engine.
func (e *Engine) CreateContext() (native.ContextToken, native.Status) {
	e.calls.createContext.Add(1)

	e.mu.Lock()
	e.next++
	tok := native.ContextToken(e.next)
	e.contexts[tok] = &engineContext{
		assets: make(map[native.AssetToken]*scene),
		tid:    threadID(),
	}
	e.mu.Unlock()

	e.emit(native.LogInfo, fmt.Sprintf("context %d created", tok))
	return tok, native.StatusSuccess
}

// DestroyContext implements native.Engine. It waits for the context's
// in-flight renders and frees any assets it still owns.
func (e *Engine) DestroyContext(tok native.ContextToken) native.Status {
	e.calls.destroyContext.Add(1)

	c, st := e.lookup(tok)
	if st != native.StatusSuccess {
		return st
	}
	c.inflight.Wait()

	e.mu.Lock()
	leaked := len(c.assets)
	e.liveAssets.Add(-int64(leaked))
	delete(e.contexts, tok)
	e.mu.Unlock()

	if leaked > 0 {
		e.emit(native.LogWarning, fmt.Sprintf("context %d destroyed with %d assets", tok, leaked))
	}
	return native.StatusSuccess
}

// LoadAsset implements native.Engine.
func (e *Engine) LoadAsset(tok native.ContextToken, data []byte) (native.AssetToken, native.Status) {
	e.calls.loadAsset.Add(1)

	c, st := e.lookup(tok)
	if st != native.StatusSuccess {
		return 0, st
	}
	s, err := parseScene(data)
	if err != nil {
		e.emit(native.LogError, "could not load asset: "+err.Error())
		return 0, native.StatusInvalidSceneCouldNotLoadAsset
	}

	e.mu.Lock()
	e.next++
	a := native.AssetToken(e.next)
	c.assets[a] = s
	e.mu.Unlock()
	e.liveAssets.Add(1)

	e.emit(native.LogDebug, fmt.Sprintf("asset %d loaded: %d nodes, %d cameras", a, s.nodes, s.cameras))
	return a, native.StatusSuccess
}

// DestroyAsset implements native.Engine.
func (e *Engine) DestroyAsset(tok native.ContextToken, asset native.AssetToken) native.Status {
	e.calls.destroyAsset.Add(1)

	c, st := e.lookup(tok)
	if st != native.StatusSuccess {
		return st
	}

	e.mu.Lock()
	_, ok := c.assets[asset]
	delete(c.assets, asset)
	e.mu.Unlock()

	if !ok {
		return native.StatusUnknownError
	}
	e.liveAssets.Add(-1)
	return native.StatusSuccess
}

// Render implements native.Engine. Camera validation happens before the call
// returns; pixels are written and cb invoked from another goroutine.
func (e *Engine) Render(tok native.ContextToken, width, height uint32, assets []native.AssetToken,
	out unsafe.Pointer, outLen int, cb native.RenderCallback, user native.UserToken,
) native.Status {
	e.calls.render.Add(1)

	c, st := e.lookup(tok)
	if st != native.StatusSuccess {
		return st
	}
	if out == nil || uint64(outLen) != 4*uint64(width)*uint64(height) {
		return native.StatusPixelBufferWrongSize
	}

	e.mu.Lock()
	snapshot := make([]scene, 0, len(assets))
	cameras := 0
	for _, a := range assets {
		s, ok := c.assets[a]
		if !ok {
			e.mu.Unlock()
			return native.StatusUnknownError
		}
		snapshot = append(snapshot, *s)
		cameras += s.cameras
	}
	e.mu.Unlock()

	switch {
	case cameras == 0:
		return native.StatusInvalidSceneNoCamerasFound
	case cameras > 1:
		return native.StatusInvalidSceneTooManyCameras
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if e.latency > 0 {
			time.Sleep(e.latency)
		}
		if e.hook != nil {
			e.hook(user)
		}
		fill(unsafe.Slice((*byte)(out), outLen), snapshot)
		e.emit(native.LogVerbose, fmt.Sprintf("render %dx%d complete", width, height))
		cb(native.StatusSuccess, user)
	}()
	return native.StatusSuccess
}

// SetLogCallback implements native.Engine.
func (e *Engine) SetLogCallback(cb native.LogCallback, user uintptr) native.Status {
	e.calls.setLogCallback.Add(1)
	if cb == nil {
		e.log.Store(nil)
		return native.StatusSuccess
	}
	e.log.Store(&logBinding{cb: cb, user: user})
	return native.StatusSuccess
}

// Calls returns a snapshot of the call counters.
func (e *Engine) Calls() Calls {
	return Calls{
		CreateContext:  e.calls.createContext.Load(),
		DestroyContext: e.calls.destroyContext.Load(),
		LoadAsset:      e.calls.loadAsset.Load(),
		DestroyAsset:   e.calls.destroyAsset.Load(),
		Render:         e.calls.render.Load(),
		SetLogCallback: e.calls.setLogCallback.Load(),
	}
}

// LiveContexts returns the number of contexts not yet destroyed.
func (e *Engine) LiveContexts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.contexts)
}

// LiveAssets returns the number of assets not yet destroyed.
func (e *Engine) LiveAssets() int {
	return int(e.liveAssets.Load())
}

// Emit sends a message through the registered log callback, as the engine
// does from its own threads.
func (e *Engine) Emit(level native.LogLevel, msg string) {
	e.emit(level, msg)
}

func (e *Engine) lookup(tok native.ContextToken) (*engineContext, native.Status) {
	e.mu.Lock()
	c, ok := e.contexts[tok]
	e.mu.Unlock()
	if !ok {
		return nil, native.StatusUnknownError
	}
	if !e.anyThread && threadCheckSupported && threadID() != c.tid {
		Logger().Debug("call from wrong thread",
			zap.Uintptr("context", uintptr(tok)),
			zap.Int("owner", c.tid),
			zap.Int("caller", threadID()))
		return nil, native.StatusWrongThread
	}
	return c, native.StatusSuccess
}

// emit passes a NUL-terminated payload, matching the C string the real
// engine hands over.
func (e *Engine) emit(level native.LogLevel, msg string) {
	b := e.log.Load()
	if b == nil {
		return
	}
	payload := make([]byte, len(msg)+1)
	copy(payload, msg)
	b.cb(level, payload, b.user)
}

// fill paints the first scene with a mesh in its material color, or leaves
// transparent black when nothing is drawable.
func fill(px []byte, scenes []scene) {
	color := [4]byte{}
	for _, s := range scenes {
		if s.meshes > 0 {
			color = s.color
			break
		}
	}
	for i := 0; i+3 < len(px); i += 4 {
		copy(px[i:i+4], color[:])
	}
}
