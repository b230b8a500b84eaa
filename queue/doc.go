// Package queue provides the single-threaded executor that owns every call
// into the native engine.
//
// The engine is not reentrant and checks that each call for a context comes
// from the thread that created it. A Queue runs one goroutine, locked to its
// OS thread with runtime.LockOSThread, that executes queued actions one at a
// time:
//
//	q := queue.New("renderer")
//	defer q.Close()
//
//	q.Submit(func() { ... })                 // fire and forget
//	f := queue.Call(ctx, q, queue.LaneNormal, func() (Token, error) {
//	    return engine.CreateContext()
//	})
//	tok, err := f.Await(ctx)
//
// # Lanes
//
// Each lane is FIFO. Whenever the goroutine picks its next item it takes the
// oldest priority item first, so teardown can overtake queued renders
// without cancelling them.
//
// # Shutdown
//
// Close queues a stop sentinel on the normal lane. Everything queued ahead of
// it runs; submissions after Close fail with a closed error. The goroutine
// exits only through the sentinel: panics in actions are recovered and, for
// Call and Run, delivered to that action's future.
package queue
