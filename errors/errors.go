package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in the bridge the error occurred
type Phase string

const (
	PhaseCreate   Phase = "create"   // engine context creation
	PhaseLoad     Phase = "load"     // asset loading
	PhaseRender   Phase = "render"   // render submission and completion
	PhaseDestroy  Phase = "destroy"  // asset or context teardown
	PhaseQueue    Phase = "queue"    // work queue submission/execution
	PhaseLog      Phase = "log"      // log callback registration
	PhaseValidate Phase = "validate" // caller input checks before any native call
)

// Kind categorizes the error
type Kind string

const (
	// KindInvalidInput covers malformed asset bytes and wrong-length output buffers.
	KindInvalidInput Kind = "invalid_input"
	// KindInvalidScene covers scenes the engine refuses to render (camera count).
	KindInvalidScene Kind = "invalid_scene"
	// KindAPIMisuse indicates a bridge bug or a use of a destroyed handle.
	KindAPIMisuse Kind = "api_misuse"
	// KindUnknown is any native failure without a more specific mapping.
	KindUnknown Kind = "unknown"
	// KindClosed is returned for work submitted after shutdown.
	KindClosed Kind = "closed"
	// KindPanic wraps a panic recovered from a queued action.
	KindPanic Kind = "panic"
)

// Sentinels for errors.Is. They carry no phase, so they match any phase.
var (
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrInvalidScene = &Error{Kind: KindInvalidScene}
	ErrAPIMisuse    = &Error{Kind: KindAPIMisuse}
	ErrUnknown      = &Error{Kind: KindUnknown}
	ErrClosed       = &Error{Kind: KindClosed}
	ErrPanic        = &Error{Kind: KindPanic}
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Code   uint32 // native status, 0 when the error did not come from the engine
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Code != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Code)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// Kind must match; Phase must match only when target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Phase == "" || e.Phase == t.Phase
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Code sets the native status code
func (b *Builder) Code(code uint32) *Builder {
	b.err.Code = code
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// BufferSize creates the error returned when a caller-supplied output buffer
// does not have exactly the required length.
func BufferSize(got, want int) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf("output buffer must be %d bytes, got %d", want, got),
	}
}

// InvalidScene creates an invalid scene error
func InvalidScene(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidScene,
		Detail: detail,
	}
}

// APIMisuse creates an API misuse error
func APIMisuse(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAPIMisuse,
		Detail: detail,
	}
}

// Disposed reports an operation against a destroyed handle
func Disposed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAPIMisuse,
		Detail: fmt.Sprintf("%s has been destroyed", what),
	}
}

// Unknown creates an unknown error
func Unknown(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknown,
		Detail: detail,
	}
}

// Closed reports work submitted after shutdown
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// Panicked wraps a value recovered from a panicking action
func Panicked(phase Phase, value any) *Error {
	e := &Error{
		Phase:  phase,
		Kind:   KindPanic,
		Detail: fmt.Sprintf("action panicked: %v", value),
	}
	if err, ok := value.(error); ok {
		e.Cause = err
	}
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
