package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/gltf2image/errors"
	"github.com/wippyai/gltf2image/queue"
	"github.com/wippyai/gltf2image/resource"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OnEnqueue(queue.LaneNormal, 1)
		m.OnExecute(queue.LanePriority, 0, time.Millisecond, time.Millisecond)
		m.OnResourceEvent(resource.Event{Live: 3})
		m.RenderStarted()
		m.RenderFinished(OutcomeSuccess, time.Second)
		m.AssetLoaded()
		m.AssetUnloaded()
	})
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "gltf2image")
	require.NoError(t, err)

	m.OnEnqueue(queue.LanePriority, 2)
	m.OnExecute(queue.LanePriority, 1, time.Millisecond, time.Millisecond)
	m.OnExecute(queue.LaneNormal, 0, time.Millisecond, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queueDepth.WithLabelValues("priority")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queueExecuted.WithLabelValues("normal")))

	m.OnResourceEvent(resource.Event{Type: resource.EventCreated, Live: 4})
	assert.Equal(t, 4.0, testutil.ToFloat64(m.pendingRenders))

	m.RenderStarted()
	m.RenderFinished(Outcome(nil), 10*time.Millisecond)
	m.RenderFinished(Outcome(errors.InvalidScene(errors.PhaseRender, "no camera")), time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rendersStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues(OutcomeInvalidScene)))

	m.AssetLoaded()
	m.AssetLoaded()
	m.AssetUnloaded()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadedAssets))

	expected := `
		# HELP gltf2image_asset_loads_total Native asset loads
		# TYPE gltf2image_asset_loads_total counter
		gltf2image_asset_loads_total 2
	`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "gltf2image_asset_loads_total"))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "dup")
	require.NoError(t, err)
	_, err = New(reg, "dup")
	assert.Error(t, err)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil))
	assert.Equal(t, OutcomeInvalidInput, Outcome(errors.ErrInvalidInput))
	assert.Equal(t, OutcomeAPIMisuse, Outcome(errors.ErrAPIMisuse))
	assert.Equal(t, OutcomeClosed, Outcome(errors.ErrClosed))
	assert.Equal(t, OutcomeError, Outcome(errors.ErrUnknown))
}
