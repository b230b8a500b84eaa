package native

import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/gltf2image/errors"
)

// Status is the result code every engine entry point returns.
type Status uint32

const (
	StatusSuccess                       Status = 0
	StatusUnknownError                  Status = 1
	StatusInvalidSceneCouldNotLoadAsset Status = 2
	StatusInvalidSceneNoCamerasFound    Status = 3
	StatusInvalidSceneTooManyCameras    Status = 4
	StatusWrongThread                   Status = 5
	StatusPixelBufferWrongSize          Status = 6
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnknownError:
		return "unknown error"
	case StatusInvalidSceneCouldNotLoadAsset:
		return "could not load asset"
	case StatusInvalidSceneNoCamerasFound:
		return "no cameras found"
	case StatusInvalidSceneTooManyCameras:
		return "too many cameras"
	case StatusWrongThread:
		return "wrong thread"
	case StatusPixelBufferWrongSize:
		return "pixel buffer wrong size"
	default:
		return fmt.Sprintf("status(%d)", uint32(s))
	}
}

// OK reports whether s is StatusSuccess.
func (s Status) OK() bool { return s == StatusSuccess }

// Err converts a status into a bridge error for the given phase, or nil on
// success. Statuses outside the known set map to an unknown error and are
// logged.
func (s Status) Err(phase errors.Phase) error {
	var kind errors.Kind
	switch s {
	case StatusSuccess:
		return nil
	case StatusInvalidSceneCouldNotLoadAsset, StatusPixelBufferWrongSize:
		kind = errors.KindInvalidInput
	case StatusInvalidSceneNoCamerasFound, StatusInvalidSceneTooManyCameras:
		kind = errors.KindInvalidScene
	case StatusWrongThread:
		kind = errors.KindAPIMisuse
	case StatusUnknownError:
		kind = errors.KindUnknown
	default:
		Logger().Warn("unmapped native status",
			zap.Uint32("status", uint32(s)),
			zap.String("phase", string(phase)))
		kind = errors.KindUnknown
	}
	return errors.New(phase, kind).Code(uint32(s)).Detail("%s", s).Build()
}

// LogLevel is the severity of a native log message.
type LogLevel uint32

const (
	LogVerbose LogLevel = iota
	LogDebug
	LogInfo
	LogWarning
	LogError
)

func (l LogLevel) String() string {
	switch l {
	case LogVerbose:
		return "verbose"
	case LogDebug:
		return "debug"
	case LogInfo:
		return "info"
	case LogWarning:
		return "warning"
	case LogError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", uint32(l))
	}
}

// ContextToken identifies a native engine context.
type ContextToken uintptr

// AssetToken identifies an asset loaded into a context.
type AssetToken uintptr

// UserToken is the correlation value passed through Render to its callback.
type UserToken uint64

// RenderCallback receives the final status of an accepted render. It runs on
// an engine-owned thread and must not block.
type RenderCallback func(status Status, user UserToken)

// LogCallback receives native log messages on an engine-owned thread. The
// message slice is only valid for the duration of the call.
type LogCallback func(level LogLevel, message []byte, user uintptr)

// Engine is the native ABI. Apart from SetLogCallback, every method must be
// called on the thread that created the context it refers to.
type Engine interface {
	// Name identifies the binding in logs and in the log relay registry.
	Name() string

	CreateContext() (ContextToken, Status)
	DestroyContext(ctx ContextToken) Status

	LoadAsset(ctx ContextToken, data []byte) (AssetToken, Status)
	DestroyAsset(ctx ContextToken, asset AssetToken) Status

	// Render submits a render of assets into the outLen bytes at out. On
	// StatusSuccess, cb is invoked exactly once later from an engine thread
	// and out must stay valid and pinned until then. On any other status cb
	// is never invoked.
	Render(ctx ContextToken, width, height uint32, assets []AssetToken,
		out unsafe.Pointer, outLen int, cb RenderCallback, user UserToken) Status

	// SetLogCallback installs cb as the process-wide log consumer, or removes
	// it when cb is nil.
	SetLogCallback(cb LogCallback, user uintptr) Status
}
