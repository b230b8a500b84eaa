package render

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/gltf2image/errors"
	"github.com/wippyai/gltf2image/future"
	"github.com/wippyai/gltf2image/metrics"
	"github.com/wippyai/gltf2image/native"
	"github.com/wippyai/gltf2image/queue"
	"github.com/wippyai/gltf2image/resource"
)

// Stats is a point-in-time view of a renderer.
type Stats struct {
	InFlight     int  // renders accepted and not yet finished
	LoadedAssets int  // assets holding a native token
	Closed       bool // Close has been requested
}

// Renderer owns one native engine context and the work queue that every call
// against it goes through.
type Renderer struct {
	*core
	cleanup runtime.Cleanup
}

// core is the state shared with queued actions and native callbacks. It must
// never point back at the Renderer, so that an abandoned Renderer can be
// collected and its cleanup run.
type core struct {
	engine  native.Engine
	queue   *queue.Queue
	pending *resource.Table[*renderOp]
	log     *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	closeF  *future.Future[struct{}]
	id      string

	// Owned by the queue goroutine.
	loaded   map[*assetState]struct{}
	token    native.ContextToken
	created  bool
	torndown bool

	inflight  atomic.Int64
	nloaded   atomic.Int64
	closeOnce sync.Once
	closing   atomic.Bool
	released  atomic.Bool // set by teardown on the queue goroutine
}

// New creates a renderer and its engine context. The context is created on
// the renderer's queue; New returns once that call finished or ctx is done.
func New(ctx context.Context, engine native.Engine, opts ...Option) (*Renderer, error) {
	if engine == nil {
		return nil, errors.InvalidInput(errors.PhaseCreate, "nil engine")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	if o.tracer == nil {
		o.tracer = otel.GetTracerProvider()
	}

	id := uuid.NewString()
	if o.queueName == "" {
		o.queueName = "gltf2image-" + id[:8]
	}

	c := &core{
		engine:  engine,
		pending: resource.NewTable[*renderOp](),
		log:     o.logger.With(zap.String("renderer", id)),
		metrics: o.metrics,
		tracer:  o.tracer.Tracer(instrumentationName),
		loaded:  make(map[*assetState]struct{}),
		id:      id,
	}

	qopts := []queue.Option{queue.WithLogger(c.log)}
	if o.metrics != nil {
		qopts = append(qopts, queue.WithObserver(o.metrics))
		c.pending.Subscribe(o.metrics)
	}
	c.queue = queue.New(o.queueName, qopts...)

	_, err := queue.Run(ctx, c.queue, queue.LaneNormal, func() error {
		tok, st := engine.CreateContext()
		if err := st.Err(errors.PhaseCreate); err != nil {
			return err
		}
		c.token = tok
		c.created = true
		return nil
	}).Await(ctx)
	if err != nil {
		// The create may still run. Teardown goes on the normal lane so it
		// runs after the create and destroys whatever context it made.
		c.closeAsync(context.Background(), queue.LaneNormal)
		return nil, err
	}

	r := &Renderer{core: c}
	r.cleanup = runtime.AddCleanup(r, (*core).collected, c)

	c.log.Debug("renderer created", zap.String("engine", engine.Name()))
	return r, nil
}

// ID returns the renderer's unique identifier.
func (r *Renderer) ID() string {
	return r.id
}

// Stats returns current counters.
func (r *Renderer) Stats() Stats {
	return Stats{
		InFlight:     int(r.inflight.Load()),
		LoadedAssets: int(r.nloaded.Load()),
		Closed:       r.closing.Load(),
	}
}

// Flush waits until every action queued before it has run. Renders that were
// submitted to the engine may still be in flight.
func (r *Renderer) Flush(ctx context.Context) error {
	_, err := queue.Run(ctx, r.queue, queue.LaneNormal, func() error { return nil }).Await(ctx)
	return err
}

// Close tears the renderer down on the priority lane: loaded assets are
// destroyed, then the engine context, then the queue is stopped. Renders
// still waiting in the queue fail with a closed error. Close is idempotent;
// every call observes the result of the first.
func (r *Renderer) Close(ctx context.Context) error {
	_, err := r.CloseAsync(ctx).Await(ctx)
	return err
}

// CloseAsync is Close without waiting.
func (r *Renderer) CloseAsync(ctx context.Context) *future.Future[struct{}] {
	r.cleanup.Stop()
	return r.closeAsync(ctx, queue.LanePriority)
}

func (c *core) closeAsync(ctx context.Context, lane queue.Lane) *future.Future[struct{}] {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.closeF = queue.Run(ctx, c.queue, lane, c.teardown)
	})
	return c.closeF
}

// collected runs after an unclosed Renderer became unreachable. It only
// enqueues the teardown.
func (c *core) collected() {
	if c.closing.Load() {
		return
	}
	c.log.Warn("renderer collected without Close; releasing engine context")
	c.closeAsync(context.Background(), queue.LanePriority).Then(func(_ struct{}, err error) {
		if err != nil {
			c.log.Error("background renderer teardown failed", zap.Error(err))
		}
	})
}

func (c *core) teardown() error {
	defer c.queue.Close()
	if c.torndown {
		return nil
	}
	c.torndown = true

	var first error
	note := func(err error) {
		if err == nil {
			return
		}
		if first == nil {
			first = err
		} else {
			c.log.Error("renderer teardown", zap.Error(err))
		}
	}

	for s := range c.loaded {
		note(c.unload(s, AssetDestroyed))
	}
	if c.created {
		note(c.engine.DestroyContext(c.token).Err(errors.PhaseDestroy))
		c.created = false
		c.token = 0
	}
	if err := c.pending.Close(); err != nil {
		note(errors.Wrap(errors.PhaseDestroy, errors.KindUnknown, err, "close pending table"))
	}
	c.released.Store(true)

	c.log.Debug("renderer closed", zap.Error(first))
	return first
}
