package render

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/gltf2image/errors"
	"github.com/wippyai/gltf2image/future"
	"github.com/wippyai/gltf2image/metrics"
	"github.com/wippyai/gltf2image/native"
	"github.com/wippyai/gltf2image/pinned"
	"github.com/wippyai/gltf2image/resource"
)

// JobState is the lifecycle state of a Job.
type JobState int32

const (
	JobCreated JobState = iota
	JobSubmitted
	JobDone
)

func (s JobState) String() string {
	switch s {
	case JobCreated:
		return "created"
	case JobSubmitted:
		return "submitted"
	case JobDone:
		return "done"
	default:
		return "invalid"
	}
}

// Job describes one render: output size, the assets composing the scene and
// the buffer receiving RGBA8 pixels. A Job is submitted at most once.
type Job struct {
	c      *core
	out    *pinned.Buffer
	outErr error
	assets []*Asset
	state  atomic.Int32
	width  uint32
	height uint32
}

// NewJob starts describing a width x height render.
func (r *Renderer) NewJob(width, height uint32) *Job {
	return &Job{c: r.core, width: width, height: height}
}

// Add appends assets to the scene, in order.
func (j *Job) Add(assets ...*Asset) *Job {
	j.assets = append(j.assets, assets...)
	return j
}

// SetOutput renders into buf instead of a freshly allocated buffer. buf must
// be exactly 4*width*height bytes; the result aliases it.
func (j *Job) SetOutput(buf []byte) error {
	b, err := pinned.Wrap(buf, j.width, j.height)
	if err != nil {
		j.outErr = err
		return err
	}
	j.out, j.outErr = b, nil
	return nil
}

// State returns the job's current state.
func (j *Job) State() JobState {
	return JobState(j.state.Load())
}

// renderOp is a render accepted by Submit. Its handle in the pending table
// is the correlation token given to the engine.
type renderOp struct {
	state   *atomic.Int32
	pending *future.Pending[[]byte]
	out     *pinned.Buffer
	span    trace.Span
	start   time.Time
	assets  []*assetState
	width   uint32
	height  uint32
}

// Submit validates the job and queues it. Validation failures (wrong buffer
// size, disposed or foreign assets, closed renderer) are returned on the
// future without any native call. The future resumes on the executor carried
// by ctx.
func (j *Job) Submit(ctx context.Context) *future.Future[[]byte] {
	if !j.state.CompareAndSwap(int32(JobCreated), int32(JobSubmitted)) {
		return future.Failed[[]byte](errors.APIMisuse(errors.PhaseValidate, "job already submitted"))
	}
	c := j.c

	op, err := j.prepare(c)
	if err != nil {
		j.state.Store(int32(JobDone))
		return future.Failed[[]byte](err)
	}

	p, f := future.New[[]byte](future.ExecutorFrom(ctx))
	op.pending = p
	op.start = time.Now()
	_, op.span = c.tracer.Start(ctx, "gltf2image.render",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("gltf2image.renderer", c.id),
			attribute.Int("gltf2image.width", int(j.width)),
			attribute.Int("gltf2image.height", int(j.height)),
			attribute.Int("gltf2image.assets", len(op.assets)),
			attribute.Bool("gltf2image.caller_buffer", !op.out.Owned()),
		))

	c.inflight.Add(1)
	c.metrics.RenderStarted()
	if err := c.queue.Submit(func() { c.execRender(op) }); err != nil {
		c.finish(op, err)
	}
	return f
}

func (j *Job) prepare(c *core) (*renderOp, error) {
	if j.outErr != nil {
		return nil, j.outErr
	}
	out := j.out
	if out == nil {
		var err error
		if out, err = pinned.New(j.width, j.height); err != nil {
			return nil, err
		}
	}
	if c.closing.Load() {
		return nil, errors.Closed(errors.PhaseValidate, "renderer")
	}

	states := make([]*assetState, len(j.assets))
	for i, a := range j.assets {
		if a == nil {
			return nil, errors.InvalidInput(errors.PhaseValidate, "nil asset")
		}
		if err := a.usable(c, errors.PhaseValidate); err != nil {
			return nil, err
		}
		states[i] = a.assetState
	}
	return &renderOp{
		state:  &j.state,
		out:    out,
		assets: states,
		width:  j.width,
		height: j.height,
	}, nil
}

// execRender runs on the queue goroutine.
func (c *core) execRender(op *renderOp) {
	if c.torndown {
		c.finish(op, errors.Closed(errors.PhaseRender, "renderer"))
		return
	}

	tokens := make([]native.AssetToken, 0, len(op.assets))
	for _, s := range op.assets {
		if err := c.load(s); err != nil {
			c.evict(op.assets)
			c.finish(op, err)
			return
		}
		tokens = append(tokens, s.token)
	}

	ptr := op.out.Pin()
	h := c.pending.Insert(op)
	st := c.engine.Render(c.token, op.width, op.height, tokens,
		ptr, op.out.Len(), c.onComplete, native.UserToken(h))
	if err := st.Err(errors.PhaseRender); err != nil {
		c.pending.Remove(h)
		op.out.Release()
		c.evict(op.assets)
		c.finish(op, err)
	}
}

// onComplete is the engine's completion callback. It runs on an engine
// thread: it resolves the correlation token, unpins, queues eviction and
// settles the future, nothing else.
func (c *core) onComplete(status native.Status, user native.UserToken) {
	op, ok := c.pending.Remove(resource.Handle(user))
	if !ok {
		c.log.Warn("render completion with unknown correlation token",
			zap.Uint64("token", uint64(user)),
			zap.Stringer("status", status))
		return
	}
	op.out.Release()

	for _, s := range op.assets {
		if s.retain {
			continue
		}
		if err := c.queue.Submit(func() { c.evict(op.assets) }); err != nil {
			c.log.Debug("asset eviction skipped", zap.Error(err))
		}
		break
	}

	c.finish(op, status.Err(errors.PhaseRender))
}

func (c *core) finish(op *renderOp, err error) {
	c.inflight.Add(-1)
	op.state.Store(int32(JobDone))
	c.metrics.RenderFinished(metrics.Outcome(err), time.Since(op.start))

	if err != nil {
		op.span.RecordError(err)
		op.span.SetStatus(codes.Error, err.Error())
		op.span.End()
		op.pending.Fail(err)
		return
	}
	op.span.SetStatus(codes.Ok, "")
	op.span.End()
	op.pending.Fulfill(op.out.Bytes())
}

// Render renders assets into a new buffer.
func (r *Renderer) Render(ctx context.Context, width, height uint32, assets ...*Asset) *future.Future[[]byte] {
	return r.NewJob(width, height).Add(assets...).Submit(ctx)
}

// RenderInto renders assets into out, which must be exactly 4*width*height
// bytes. The returned slice is out itself.
func (r *Renderer) RenderInto(ctx context.Context, out []byte, width, height uint32, assets ...*Asset) *future.Future[[]byte] {
	j := r.NewJob(width, height).Add(assets...)
	if err := j.SetOutput(out); err != nil {
		j.state.Store(int32(JobDone))
		return future.Failed[[]byte](err)
	}
	return j.Submit(ctx)
}
