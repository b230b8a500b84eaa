package pinned

import (
	"math"
	"runtime"
	"sync"
	"unsafe"

	"github.com/wippyai/gltf2image/errors"
)

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

// RequiredLength returns the exact output length for a width x height RGBA8
// image. Zero dimensions and sizes that do not fit in an int are rejected.
func RequiredLength(width, height uint32) (int, error) {
	if width == 0 || height == 0 {
		return 0, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Detail("image dimensions must be non-zero, got %dx%d", width, height).
			Build()
	}
	n := uint64(width) * uint64(height)
	if n > math.MaxInt/BytesPerPixel {
		return 0, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Detail("image %dx%d is too large", width, height).
			Build()
	}
	return int(n) * BytesPerPixel, nil
}

// Buffer is an RGBA8 output buffer whose backing array can be pinned while
// the engine writes into it from another thread.
type Buffer struct {
	pinner runtime.Pinner
	buf    []byte
	width  uint32
	height uint32
	mu     sync.Mutex
	pinned bool
	owned  bool
}

// New allocates a zeroed buffer for a width x height image.
func New(width, height uint32) (*Buffer, error) {
	n, err := RequiredLength(width, height)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		buf:    make([]byte, n),
		width:  width,
		height: height,
		owned:  true,
	}, nil
}

// Wrap uses a caller-supplied slice as the output. Its length must be exactly
// RequiredLength(width, height); the slice is used in place, never copied.
func Wrap(buf []byte, width, height uint32) (*Buffer, error) {
	n, err := RequiredLength(width, height)
	if err != nil {
		return nil, err
	}
	if len(buf) != n {
		return nil, errors.BufferSize(len(buf), n)
	}
	return &Buffer{
		buf:    buf,
		width:  width,
		height: height,
	}, nil
}

// Pin fixes the backing array in memory and returns its address. The address
// stays valid until Release. Pinning an already pinned buffer returns the
// same address.
func (b *Buffer) Pin() unsafe.Pointer {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := unsafe.Pointer(unsafe.SliceData(b.buf))
	if !b.pinned {
		b.pinner.Pin(p)
		b.pinned = true
	}
	return p
}

// Release unpins the buffer. Only the first call after Pin has an effect.
func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.pinned {
		return
	}
	b.pinner.Unpin()
	b.pinned = false
}

// Pinned reports whether the buffer is currently pinned.
func (b *Buffer) Pinned() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pinned
}

// Bytes returns the backing slice.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the buffer length in bytes.
func (b *Buffer) Len() int { return len(b.buf) }

// Width returns the image width in pixels.
func (b *Buffer) Width() uint32 { return b.width }

// Height returns the image height in pixels.
func (b *Buffer) Height() uint32 { return b.height }

// Owned reports whether the buffer was allocated by New rather than wrapped.
func (b *Buffer) Owned() bool { return b.owned }
