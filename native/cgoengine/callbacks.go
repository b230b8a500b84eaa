//go:build gltf2image_native && cgo

package cgoengine

/*
#include <stdint.h>
#include <string.h>
*/
import "C"

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/gltf2image/native"
	"github.com/wippyai/gltf2image/resource"
)

// The engine calls these from its own threads. They must not block.

//export gltf2imageRenderComplete
func gltf2imageRenderComplete(status C.uint32_t, user C.uintptr_t) {
	p, ok := linked.renders.Remove(resource.Handle(user))
	if !ok {
		Logger().Warn("render completion for unknown slot",
			zap.Uint64("slot", uint64(user)),
			zap.Uint32("status", uint32(status)))
		return
	}
	p.cb(native.Status(status), p.user)
}

//export gltf2imageLog
func gltf2imageLog(level C.uint32_t, message *C.char, user C.uintptr_t) {
	b := linked.log.Load()
	if b == nil || message == nil {
		return
	}
	n := C.strlen(message)
	b.cb(native.LogLevel(level), unsafe.Slice((*byte)(unsafe.Pointer(message)), int(n)), uintptr(user))
}
