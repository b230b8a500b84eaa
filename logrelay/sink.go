package logrelay

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/gltf2image/native"
)

// ZapSink forwards engine messages to l.
func ZapSink(l *zap.Logger) Sink {
	l = l.With(zap.String("source", "engine"))
	return SinkFunc(func(level native.LogLevel, msg string) {
		if ce := l.Check(Level(level), msg); ce != nil {
			ce.Write()
		}
	})
}

// Level maps an engine log level to zap. Verbose has no zap counterpart and
// logs at debug.
func Level(level native.LogLevel) zapcore.Level {
	switch level {
	case native.LogVerbose, native.LogDebug:
		return zapcore.DebugLevel
	case native.LogInfo:
		return zapcore.InfoLevel
	case native.LogWarning:
		return zapcore.WarnLevel
	case native.LogError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
