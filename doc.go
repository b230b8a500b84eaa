// Package gltf2image renders glTF 2.0 scenes into RGBA8 pixel buffers through
// a native rendering engine.
//
// The engine is single-threaded per context, reports completion through C
// callbacks on its own threads and logs through a process-wide callback. This
// module wraps it in a Go API built from futures and work queues.
//
// # Architecture Overview
//
//	gltf2image/
//	├── render/          Renderer, Asset and Job: the public API
//	├── queue/           Single-goroutine work queue with a priority lane
//	├── future/          Results that resume on the caller's executor
//	├── pinned/          Output buffers pinned across native calls
//	├── resource/        Generation-checked handle table for correlation tokens
//	├── native/          Engine ABI: status codes, tokens, Engine interface
//	│   ├── cgoengine/   cgo binding to libgltf2image_native
//	│   └── sim/         Software engine used by tests and the CLI default
//	├── logrelay/        Engine log callback routing
//	├── metrics/         Prometheus collectors
//	├── config/          YAML configuration
//	├── errors/          Structured error types
//	└── cmd/gltf2image/  Command-line renderer
//
// # Quick Start
//
//	r, err := render.New(ctx, engine)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close(ctx)
//
//	asset, err := r.LoadAsset(ctx, gltfBytes).Await(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pixels, err := r.Render(ctx, 800, 600, asset).Await(ctx)
//	// len(pixels) == 4*800*600
//
// # Threading
//
// Renderer, Asset and Job methods are safe for concurrent use. Every engine
// call for a renderer's context runs on that renderer's queue goroutine, which
// is locked to one OS thread for its whole life. Completions arrive on engine
// threads and are handed to the executor captured from the submitting
// context; future.Background runs them on a fresh goroutine.
//
// # Native engine
//
// Build with the gltf2image_native tag and cgo enabled to link the real
// engine through native/cgoengine. Without it, native/sim provides a software
// engine that honors the same ABI, including thread checks and asynchronous
// completion.
package gltf2image
