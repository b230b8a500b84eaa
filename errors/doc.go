// Package errors provides structured error types for the gltf2image bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// Kinds follow the engine's failure taxonomy:
//
//	invalid_input  - unparsable asset bytes, wrong-length output buffer
//	invalid_scene  - no camera or more than one camera in a render
//	api_misuse     - wrong-thread call, destroyed or foreign handle
//	unknown        - any unmapped native status
//
// plus the bridge-level kinds closed and panic.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRender, errors.KindInvalidScene).
//		Code(3).
//		Detail("scene has no camera").
//		Build()
//
// Match categories with the sentinels, which carry no phase:
//
//	if errors.Is(err, errors.ErrInvalidScene) { ... }
package errors
