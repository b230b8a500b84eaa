package logrelay

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/gltf2image/errors"
	"github.com/wippyai/gltf2image/native"
)

// Sink receives engine log messages. Log is called from engine threads and
// must not block.
type Sink interface {
	Log(level native.LogLevel, msg string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(level native.LogLevel, msg string)

func (f SinkFunc) Log(level native.LogLevel, msg string) { f(level, msg) }

// Relay owns the log callback registration of one engine binding. The
// engine keeps a single process-wide callback, so there is one Relay per
// binding.
type Relay struct {
	engine     native.Engine
	sink       atomic.Pointer[sinkBox]
	mu         sync.Mutex
	registered bool
}

type sinkBox struct{ s Sink }

var relays sync.Map // engine name -> *Relay

// For returns the relay of e, creating it on first use.
func For(e native.Engine) *Relay {
	name := e.Name()
	if r, ok := relays.Load(name); ok {
		return r.(*Relay)
	}
	r, _ := relays.LoadOrStore(name, &Relay{engine: e})
	return r.(*Relay)
}

// Set installs s as the sink, or removes the sink when s is nil. The native
// callback is registered only when the first sink arrives and unregistered
// only when the last one leaves; replacing a sink makes no native call. If
// the engine rejects the change, the previous sink stays installed.
func (r *Relay) Set(s Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s == nil {
		if r.registered {
			if err := r.engine.SetLogCallback(nil, 0).Err(errors.PhaseLog); err != nil {
				return err
			}
			r.registered = false
			Logger().Debug("engine log callback unregistered", zap.String("engine", r.engine.Name()))
		}
		r.sink.Store(nil)
		return nil
	}

	prev := r.sink.Swap(&sinkBox{s: s})
	if !r.registered {
		if err := r.engine.SetLogCallback(r.dispatch, 0).Err(errors.PhaseLog); err != nil {
			r.sink.Store(prev)
			return err
		}
		r.registered = true
		Logger().Debug("engine log callback registered", zap.String("engine", r.engine.Name()))
	}
	return nil
}

// Sink returns the installed sink, or nil.
func (r *Relay) Sink() Sink {
	if b := r.sink.Load(); b != nil {
		return b.s
	}
	return nil
}

// Registered reports whether the native callback is currently registered.
func (r *Relay) Registered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

// dispatch is the native log callback.
func (r *Relay) dispatch(level native.LogLevel, payload []byte, _ uintptr) {
	b := r.sink.Load()
	if b == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			Logger().Error("log sink panicked", zap.Any("panic", p))
		}
	}()
	b.s.Log(level, message(payload))
}

func message(payload []byte) string {
	payload = bytes.TrimRight(payload, "\x00")
	return strings.ToValidUTF8(string(payload), "�")
}
