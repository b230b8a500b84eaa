// Package future turns a single completion event into an awaitable result.
//
// Native completion callbacks arrive on threads owned by the engine. Those
// threads must never run caller code, so a Future does not resolve on the
// thread that fulfills it. Instead the resolution is posted to the Executor
// captured when the Future was created:
//
//	ctx = future.WithExecutor(ctx, uiLoop)     // optional
//	p, f := future.New[[]byte](future.ExecutorFrom(ctx))
//
//	// later, on any thread
//	p.Fulfill(pixels)
//
//	// caller
//	pixels, err := f.Await(ctx)
//	f.Then(func(pixels []byte, err error) { ... }) // runs on uiLoop
//
// Only the first Fulfill or Fail takes effect. Later calls return false and
// are logged at warn level; they never panic.
package future
