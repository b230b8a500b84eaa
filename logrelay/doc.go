// Package logrelay routes native engine log messages to a Go sink.
//
// The engine accepts one log callback per process. A Relay tracks whether
// that callback is registered and swaps sinks without touching the engine:
//
//	relay := logrelay.For(engine)
//	relay.Set(logrelay.ZapSink(log)) // registers the native callback
//	relay.Set(otherSink)             // no native call
//	relay.Set(nil)                   // unregisters
//
// Messages arrive on engine threads. Trailing NUL bytes are dropped and
// invalid UTF-8 is replaced before the sink sees them.
package logrelay
