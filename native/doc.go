// Package native defines the C ABI of the glTF rendering engine as a Go
// interface, together with its status and log level enumerations.
//
// Two bindings implement Engine: native/cgoengine links the real library and
// native/sim is a software engine with the same observable contract. Nothing
// outside the queue goroutine may call an Engine, except SetLogCallback,
// which the log relay owns.
package native
