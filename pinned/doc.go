// Package pinned provides the output buffer handed to native render calls.
//
// The engine writes pixels into the buffer from its own thread some time
// after the submitting call returned. A Buffer is pinned with a
// runtime.Pinner for that window, so the garbage collector neither moves nor
// frees it, and released from the completion callback.
package pinned
