// Package cgoengine binds the native libgltf2image library through cgo.
//
// The binding is compiled only with the gltf2image_native build tag and a
// working cgo toolchain; otherwise Load returns an error and callers fall
// back to native/sim.
//
// Function pointers handed to C are static exported trampolines. Each render
// is correlated by a slot handle from a generation-checked table, passed as
// the C user pointer, so no Go pointer crosses the boundary except the
// pinned output buffer.
package cgoengine
