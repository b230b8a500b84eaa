package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/gltf2image/errors"
	"github.com/wippyai/gltf2image/queue"
	"github.com/wippyai/gltf2image/resource"
)

// Render outcomes used as the "outcome" label.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeInvalidScene = "invalid_scene"
	OutcomeAPIMisuse    = "api_misuse"
	OutcomeClosed       = "closed"
	OutcomeError        = "error"
)

// Outcome maps a render result to its outcome label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	switch errors.KindOf(err) {
	case errors.KindInvalidInput:
		return OutcomeInvalidInput
	case errors.KindInvalidScene:
		return OutcomeInvalidScene
	case errors.KindAPIMisuse:
		return OutcomeAPIMisuse
	case errors.KindClosed:
		return OutcomeClosed
	default:
		return OutcomeError
	}
}

// Metrics collects Prometheus metrics for renderers. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Queue metrics
	queueDepth    *prometheus.GaugeVec
	queueExecuted *prometheus.CounterVec
	queueWait     *prometheus.HistogramVec
	queueRun      *prometheus.HistogramVec

	// Render metrics
	pendingRenders prometheus.Gauge
	rendersStarted prometheus.Counter
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram

	// Asset metrics
	loadedAssets prometheus.Gauge
	assetLoads   prometheus.Counter
	assetUnloads prometheus.Counter
}

var (
	_ queue.Observer    = (*Metrics)(nil)
	_ resource.Observer = (*Metrics)(nil)
)

// New creates the collectors and registers them with reg. A nil reg
// registers with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Items waiting on the work queue",
			},
			[]string{"lane"},
		),
		queueExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "executed_total",
				Help:      "Items executed by the work queue",
			},
			[]string{"lane"},
		),
		queueWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "wait_seconds",
				Help:      "Time items spent queued before running",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"lane"},
		),
		queueRun: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "run_seconds",
				Help:      "Time spent executing queued items",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"lane"},
		),

		pendingRenders: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_renders",
				Help:      "Renders submitted to the engine and awaiting completion",
			},
		),
		rendersStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_started_total",
				Help:      "Render requests accepted",
			},
		),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Render requests finished, by outcome",
			},
			[]string{"outcome"},
		),
		renderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Time from render submission to result",
				Buckets:   prometheus.DefBuckets,
			},
		),

		loadedAssets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "loaded_assets",
				Help:      "Assets currently loaded into engine contexts",
			},
		),
		assetLoads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "asset_loads_total",
				Help:      "Native asset loads",
			},
		),
		assetUnloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "asset_unloads_total",
				Help:      "Native asset destroys, including evictions",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.queueDepth,
		m.queueExecuted,
		m.queueWait,
		m.queueRun,
		m.pendingRenders,
		m.rendersStarted,
		m.renders,
		m.renderDuration,
		m.loadedAssets,
		m.assetLoads,
		m.assetUnloads,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Queue metrics

// OnEnqueue implements queue.Observer.
func (m *Metrics) OnEnqueue(lane queue.Lane, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(lane.String()).Set(float64(depth))
}

// OnExecute implements queue.Observer.
func (m *Metrics) OnExecute(lane queue.Lane, depth int, wait, run time.Duration) {
	if m == nil {
		return
	}
	l := lane.String()
	m.queueDepth.WithLabelValues(l).Set(float64(depth))
	m.queueExecuted.WithLabelValues(l).Inc()
	m.queueWait.WithLabelValues(l).Observe(wait.Seconds())
	m.queueRun.WithLabelValues(l).Observe(run.Seconds())
}

// Pending render table

// OnResourceEvent implements resource.Observer for the pending render table.
func (m *Metrics) OnResourceEvent(e resource.Event) {
	if m == nil {
		return
	}
	m.pendingRenders.Set(float64(e.Live))
}

// Render metrics

// RenderStarted counts an accepted render request.
func (m *Metrics) RenderStarted() {
	if m == nil {
		return
	}
	m.rendersStarted.Inc()
}

// RenderFinished records a finished render with its outcome and latency.
func (m *Metrics) RenderFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(outcome).Inc()
	m.renderDuration.Observe(d.Seconds())
}

// Asset metrics

// AssetLoaded records a native asset load.
func (m *Metrics) AssetLoaded() {
	if m == nil {
		return
	}
	m.assetLoads.Inc()
	m.loadedAssets.Inc()
}

// AssetUnloaded records a native asset destroy.
func (m *Metrics) AssetUnloaded() {
	if m == nil {
		return
	}
	m.assetUnloads.Inc()
	m.loadedAssets.Dec()
}
