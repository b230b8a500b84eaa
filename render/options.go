package render

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/gltf2image/metrics"
)

const instrumentationName = "github.com/wippyai/gltf2image/render"

type options struct {
	logger    *zap.Logger
	metrics   *metrics.Metrics
	tracer    trace.TracerProvider
	queueName string
}

// Option configures a Renderer.
type Option func(*options)

// WithLogger sets the renderer's logger. The renderer adds its ID to every
// entry.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records queue, render and asset metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the provider used for render spans. The global provider is
// used by default.
func WithTracer(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// WithQueueName names the renderer's work queue in logs.
func WithQueueName(name string) Option {
	return func(o *options) { o.queueName = name }
}
