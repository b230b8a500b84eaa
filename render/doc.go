// Package render turns glTF assets into RGBA8 pixel buffers through a native
// engine.
//
// A Renderer owns one engine context and a work queue. Every engine call for
// that context runs on the queue goroutine; results come back as futures that
// resume on the executor carried by the caller's context.
//
//	r, err := render.New(ctx, engine)
//	if err != nil {
//	    return err
//	}
//	defer r.Close(ctx)
//
//	camera, err := r.LoadAsset(ctx, cameraGLTF).Await(ctx)
//	model, _ := r.NewAsset(modelGLB, false)
//	pixels, err := r.Render(ctx, 512, 512, camera, model).Await(ctx)
//
// # Assets
//
// Assets load lazily on their first render. Assets created with retain=false
// are unloaded again once the render that used them finishes, successfully
// or not, and reload from their bytes on the next use. Closing an asset while
// a render that uses it is in flight is safe; the engine keeps its own copy
// of the scene for that render.
//
// # Output
//
// The result is exactly 4*width*height bytes, row-major RGBA8. RenderInto and
// Job.SetOutput accept a caller buffer of that size, which is pinned for the
// duration of the native render and returned as the result.
//
// # Errors
//
// Failures carry the kinds of package errors: invalid input for unparsable
// assets and wrong buffer sizes, invalid scene for camera count violations,
// API misuse for destroyed or foreign assets, closed after Close.
//
// # Cleanup
//
// Renderers and assets that are dropped without Close are released after
// garbage collection. The release is only queued from the collector; it never
// blocks it. Close remains the supported way to free engine resources.
package render
