package render

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/gltf2image/errors"
	"github.com/wippyai/gltf2image/future"
	"github.com/wippyai/gltf2image/native"
	"github.com/wippyai/gltf2image/queue"
)

// AssetState is the lifecycle state of an Asset.
type AssetState int32

const (
	// AssetUnloaded holds only the source bytes.
	AssetUnloaded AssetState = iota
	// AssetLoaded holds a native token.
	AssetLoaded
	// AssetDestroyed is terminal.
	AssetDestroyed
)

func (s AssetState) String() string {
	switch s {
	case AssetUnloaded:
		return "unloaded"
	case AssetLoaded:
		return "loaded"
	case AssetDestroyed:
		return "destroyed"
	default:
		return "invalid"
	}
}

// Asset is a glTF scene bound to one Renderer. It is loaded lazily by the
// first render that uses it. Assets created with retain=false are unloaded
// again after each render; they keep their bytes and reload on demand.
type Asset struct {
	*assetState
	cleanup runtime.Cleanup
}

type assetState struct {
	owner  *core
	data   []byte
	closeF *future.Future[struct{}]

	token native.AssetToken // queue goroutine only

	state     atomic.Int32
	closeOnce sync.Once
	closing   atomic.Bool
	retain    bool
}

// NewAsset wraps glTF (JSON or GLB) bytes as an unloaded asset. data is used
// in place and must not be modified afterwards.
func (r *Renderer) NewAsset(data []byte, retain bool) (*Asset, error) {
	if r.closing.Load() {
		return nil, errors.Closed(errors.PhaseLoad, "renderer")
	}
	if len(data) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "empty asset data")
	}

	s := &assetState{owner: r.core, data: data, retain: retain}
	a := &Asset{assetState: s}
	a.cleanup = runtime.AddCleanup(a, (*assetState).collected, s)
	return a, nil
}

// LoadAsset creates a retained asset and loads it right away.
func (r *Renderer) LoadAsset(ctx context.Context, data []byte) *future.Future[*Asset] {
	a, err := r.NewAsset(data, true)
	if err != nil {
		return future.Failed[*Asset](err)
	}
	c := r.core
	return queue.Call(ctx, c.queue, queue.LaneNormal, func() (*Asset, error) {
		if err := c.load(a.assetState); err != nil {
			return nil, err
		}
		return a, nil
	})
}

// State returns the asset's current state as last set on the renderer's
// queue. A pending Close does not change it until the destroy has run. Once
// the renderer's teardown has run, every asset reports AssetDestroyed,
// including those that were never loaded.
func (s *assetState) State() AssetState {
	if s.owner.released.Load() {
		return AssetDestroyed
	}
	return AssetState(s.state.Load())
}

// Retain reports whether the asset stays loaded between renders.
func (s *assetState) Retain() bool {
	return s.retain
}

// Close destroys the asset and waits for the native call. Renders already
// queued ahead of it still use it. If the renderer is closing, its teardown
// destroys the asset and Close returns nil at once. Close is idempotent.
func (a *Asset) Close(ctx context.Context) error {
	_, err := a.CloseAsync(ctx).Await(ctx)
	return err
}

// CloseAsync is Close without waiting.
func (a *Asset) CloseAsync(ctx context.Context) *future.Future[struct{}] {
	a.cleanup.Stop()
	return a.destroy(ctx)
}

func (s *assetState) destroy(ctx context.Context) *future.Future[struct{}] {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		c := s.owner
		if c.closing.Load() {
			// Renderer teardown releases everything still loaded.
			s.closeF = future.Resolved(struct{}{})
			return
		}

		p, f := future.New[struct{}](future.ExecutorFrom(ctx))
		err := c.queue.Enqueue(queue.LaneNormal, func() {
			defer func() {
				if r := recover(); r != nil {
					p.Fail(errors.Panicked(errors.PhaseDestroy, r))
				}
			}()
			if c.torndown {
				p.Fulfill(struct{}{})
				return
			}
			if err := c.unload(s, AssetDestroyed); err != nil {
				p.Fail(err)
				return
			}
			p.Fulfill(struct{}{})
		})
		switch {
		case err == nil:
		case errors.KindOf(err) == errors.KindClosed:
			// The renderer closed after the check above; its teardown
			// released the asset.
			p.Fulfill(struct{}{})
		default:
			p.Fail(err)
		}
		s.closeF = f
	})
	return s.closeF
}

// collected runs after an unclosed Asset became unreachable. It only
// enqueues the destroy.
func (s *assetState) collected() {
	if s.closing.Load() || s.owner.closing.Load() {
		return
	}
	s.destroy(context.Background()).Then(func(_ struct{}, err error) {
		if err != nil {
			s.owner.log.Warn("background asset destroy failed", zap.Error(err))
		}
	})
}

// usable reports why the asset cannot be used by a render on c, or nil.
func (s *assetState) usable(c *core, phase errors.Phase) error {
	if s.owner != c {
		return errors.APIMisuse(phase, "asset belongs to another renderer")
	}
	if s.closing.Load() || s.State() == AssetDestroyed {
		return errors.Disposed(phase, "asset")
	}
	return nil
}

// load and unload run on the queue goroutine.

func (c *core) load(s *assetState) error {
	if c.torndown {
		return errors.Closed(errors.PhaseLoad, "renderer")
	}
	switch AssetState(s.state.Load()) {
	case AssetLoaded:
		return nil
	case AssetDestroyed:
		return errors.Disposed(errors.PhaseLoad, "asset")
	}

	tok, st := c.engine.LoadAsset(c.token, s.data)
	if err := st.Err(errors.PhaseLoad); err != nil {
		return err
	}
	s.token = tok
	s.state.Store(int32(AssetLoaded))
	c.loaded[s] = struct{}{}
	c.nloaded.Add(1)
	c.metrics.AssetLoaded()
	return nil
}

func (c *core) unload(s *assetState, to AssetState) error {
	if AssetState(s.state.Load()) != AssetLoaded {
		if to == AssetDestroyed {
			s.state.Store(int32(AssetDestroyed))
		}
		return nil
	}

	st := c.engine.DestroyAsset(c.token, s.token)
	delete(c.loaded, s)
	s.token = 0
	s.state.Store(int32(to))
	c.nloaded.Add(-1)
	c.metrics.AssetUnloaded()
	return st.Err(errors.PhaseDestroy)
}

// evict unloads the assets of a finished render that are not retained.
func (c *core) evict(assets []*assetState) {
	if c.torndown {
		return
	}
	for _, s := range assets {
		if s.retain {
			continue
		}
		if err := c.unload(s, AssetUnloaded); err != nil {
			c.log.Warn("asset eviction failed", zap.Error(err))
		}
	}
}
