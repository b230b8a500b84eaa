// Package sim is a software implementation of the engine ABI.
//
// It parses just enough of a glTF document (JSON or GLB) to count cameras and
// pick a fill color, and reproduces the native engine's contract at the
// boundary: status codes, per-context thread affinity, synchronous camera
// validation, asynchronous completion from a foreign goroutine writing
// through a raw pointer, and NUL-terminated log payloads. Call counters and
// live handle counts make leaks and unexpected native calls observable in
// tests. The gltf2image CLI uses it when the native library is not linked.
package sim
