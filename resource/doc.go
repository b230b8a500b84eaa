// Package resource provides a generation-checked slot table.
//
// The bridge hands opaque integer tokens to native code and must map them
// back to Go values when a callback arrives on an arbitrary thread. Passing
// Go pointers is not allowed, so values live in a Table and the token is a
// Handle into it.
//
// # Handles
//
// A Handle packs a slot index and the slot's generation:
//
//	table := resource.NewTable[*op]()
//
//	h := table.Insert(myOp)      // executor thread
//	op, ok := table.Remove(h)    // native callback thread
//	_, ok = table.Remove(h)      // false: already removed
//
// Removing a slot bumps its generation. A stale handle never resolves, even
// after the slot has been reused for another value, so a late or duplicated
// callback cannot complete the wrong operation.
//
// # Observers
//
// Subscribe to track slot lifecycle events, for example to export the number
// of in-flight operations as a metric:
//
//	unsubscribe := table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    inflight.Set(float64(e.Live))
//	}))
//	defer unsubscribe()
package resource
