package testbed

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/gltf2image/config"
	"github.com/wippyai/gltf2image/errors"
	"github.com/wippyai/gltf2image/logrelay"
	"github.com/wippyai/gltf2image/native"
	"github.com/wippyai/gltf2image/native/sim"
	"github.com/wippyai/gltf2image/render"
)

const cameraJSON = `{
  "asset": {"version": "2.0"},
  "nodes": [{"camera": 0}],
  "cameras": [{"type": "orthographic", "orthographic": {"xmag": 1, "ymag": 1, "znear": 0.1, "zfar": 10}}]
}`

const meshJSON = `{
  "asset": {"version": "2.0"},
  "nodes": [{"mesh": 0}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "material": 0}]}],
  "materials": [{"pbrMetallicRoughness": {"baseColorFactor": [0, 1, 0, 1]}}]
}`

// glb re-encodes a glTF JSON document as a binary container.
func glb(t *testing.T, doc string) []byte {
	t.Helper()
	var d gltf.Document
	if err := gltf.NewDecoder(strings.NewReader(doc)).Decode(&d); err != nil {
		t.Fatalf("decode %q: %v", doc, err)
	}
	var b bytes.Buffer
	enc := gltf.NewEncoder(&b)
	enc.AsBinary = true
	if err := enc.Encode(&d); err != nil {
		t.Fatalf("encode glb: %v", err)
	}
	return b.Bytes()
}

func TestGLBThroughRenderer(t *testing.T) {
	ctx := context.Background()

	r, err := render.New(ctx, sim.New())
	if err != nil {
		t.Fatalf("create renderer: %v", err)
	}
	defer r.Close(ctx)

	camera, err := r.LoadAsset(ctx, glb(t, cameraJSON)).Await(ctx)
	if err != nil {
		t.Fatalf("load camera: %v", err)
	}
	mesh, err := r.NewAsset(glb(t, meshJSON), false)
	if err != nil {
		t.Fatalf("new mesh: %v", err)
	}

	px, err := r.Render(ctx, 16, 9, camera, mesh).Await(ctx)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(px) != 4*16*9 {
		t.Fatalf("got %d bytes, want %d", len(px), 4*16*9)
	}
	if want := []byte{0, 255, 0, 255}; !bytes.Equal(px[:4], want) {
		t.Errorf("first pixel = %v, want %v", px[:4], want)
	}
}

func TestTruncatedGLBIsInvalidInput(t *testing.T) {
	ctx := context.Background()

	r, err := render.New(ctx, sim.New())
	if err != nil {
		t.Fatalf("create renderer: %v", err)
	}
	defer r.Close(ctx)

	data := glb(t, cameraJSON)
	_, err = r.LoadAsset(ctx, data[:len(data)/2]).Await(ctx)
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("got %v, want invalid input", err)
	}
}

// TestEngineLogsReachZap wires the engine log relay, a configured renderer
// and metrics together the way the command does.
func TestEngineLogsReachZap(t *testing.T) {
	ctx := context.Background()
	engine := sim.New()

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	relay := logrelay.For(engine)
	if err := relay.Set(logrelay.ZapSink(log)); err != nil {
		t.Fatalf("set sink: %v", err)
	}
	defer relay.Set(nil)

	cfg, err := config.Parse([]byte("renderer: {metrics: true, metrics_namespace: testbed, queue_name: testbed}"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	reg := prometheus.NewRegistry()
	opts, err := cfg.Renderer.Options(log, reg)
	if err != nil {
		t.Fatalf("options: %v", err)
	}

	r, err := render.New(ctx, engine, opts...)
	if err != nil {
		t.Fatalf("create renderer: %v", err)
	}

	_, err = r.LoadAsset(ctx, []byte(`{"asset": {"version": "2.0"}, "nodes": [{"camera": 3}]}`)).Await(ctx)
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("got %v, want invalid input", err)
	}
	if err := r.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	var engineErrors int
	for _, e := range logs.FilterField(zap.String("source", "engine")).All() {
		if e.Level == zapcore.ErrorLevel {
			engineErrors++
		}
	}
	if engineErrors != 1 {
		t.Errorf("engine error entries = %d, want 1", engineErrors)
	}

	n, err := testutil.GatherAndCount(reg, "testbed_queue_executed_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n == 0 {
		t.Error("queue metrics not recorded")
	}
}

// TestRenderersShareEngine runs independent renderers, each with its own
// context and thread, against one engine.
func TestRenderersShareEngine(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	engine := sim.New()
	camera := []byte(cameraJSON)
	mesh := []byte(meshJSON)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := render.New(ctx, engine)
			if err != nil {
				errs <- err
				return
			}
			defer r.Close(ctx)

			cam, err := r.LoadAsset(ctx, camera).Await(ctx)
			if err != nil {
				errs <- err
				return
			}
			for j := 0; j < 25; j++ {
				m, err := r.NewAsset(mesh, false)
				if err != nil {
					errs <- err
					return
				}
				if _, err := r.Render(ctx, 8, 8, cam, m).Await(ctx); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if n := engine.LiveContexts(); n != 0 {
		t.Errorf("live contexts = %d, want 0", n)
	}
	if n := engine.LiveAssets(); n != 0 {
		t.Errorf("live assets = %d, want 0", n)
	}
	if got := engine.Calls().Render; got != 8*25 {
		t.Errorf("render calls = %d, want %d", got, 8*25)
	}
}

var _ native.Engine = (*sim.Engine)(nil)
