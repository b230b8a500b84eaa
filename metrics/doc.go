// Package metrics exposes renderer activity as Prometheus metrics: work queue
// depth and latency per lane, pending renders, render outcomes and latency,
// and loaded assets.
package metrics
