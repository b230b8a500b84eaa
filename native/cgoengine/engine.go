//go:build gltf2image_native && cgo

package cgoengine

/*
#cgo LDFLAGS: -lgltf2image
#include <stdint.h>
#include <stddef.h>

typedef void (*gltf2image_render_cb)(uint32_t status, void* user);
typedef void (*gltf2image_log_cb)(uint32_t level, const char* message, void* user);

uint32_t createRenderManager(void** renderManager);
uint32_t destroyRenderManager(void* renderManager);
uint32_t loadGLTFAsset(void* renderManager, uint8_t* data, size_t size, void** asset);
uint32_t destroyGLTFAsset(void* renderManager, void* asset);
uint32_t render(void* renderManager, uint32_t width, uint32_t height,
                void** assets, uint32_t assetCount,
                uint8_t* out, size_t outLen,
                gltf2image_render_cb callback, void* user);
uint32_t setLogCallback(gltf2image_log_cb callback, void* user);

extern void gltf2imageRenderComplete(uint32_t status, uintptr_t user);
extern void gltf2imageLog(uint32_t level, char* message, uintptr_t user);

static void render_trampoline(uint32_t status, void* user) {
	gltf2imageRenderComplete(status, (uintptr_t)user);
}

static void log_trampoline(uint32_t level, const char* message, void* user) {
	gltf2imageLog(level, (char*)message, (uintptr_t)user);
}

static uint32_t g2i_create(uintptr_t* out) {
	void* rm = NULL;
	uint32_t st = createRenderManager(&rm);
	*out = (uintptr_t)rm;
	return st;
}

static uint32_t g2i_destroy(uintptr_t rm) {
	return destroyRenderManager((void*)rm);
}

static uint32_t g2i_load(uintptr_t rm, uint8_t* data, size_t size, uintptr_t* out) {
	void* asset = NULL;
	uint32_t st = loadGLTFAsset((void*)rm, data, size, &asset);
	*out = (uintptr_t)asset;
	return st;
}

static uint32_t g2i_destroy_asset(uintptr_t rm, uintptr_t asset) {
	return destroyGLTFAsset((void*)rm, (void*)asset);
}

static uint32_t g2i_render(uintptr_t rm, uint32_t width, uint32_t height,
                           uintptr_t* assets, uint32_t count,
                           uint8_t* out, size_t outLen, uintptr_t user) {
	return render((void*)rm, width, height, (void**)assets, count,
	              out, outLen, render_trampoline, (void*)user);
}

static uint32_t g2i_set_log(int enable, uintptr_t user) {
	return setLogCallback(enable ? log_trampoline : NULL, (void*)user);
}
*/
import "C"

import (
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/gltf2image/native"
	"github.com/wippyai/gltf2image/resource"
)

type pendingRender struct {
	cb   native.RenderCallback
	user native.UserToken
}

type logBinding struct {
	cb   native.LogCallback
	user uintptr
}

// Engine binds libgltf2image. The library keeps process-wide state, so there
// is exactly one Engine.
type Engine struct {
	renders *resource.Table[pendingRender]
	log     atomic.Pointer[logBinding]
}

var linked = &Engine{renders: resource.NewTable[pendingRender]()}

// Load returns the process-wide binding to the linked native library.
func Load() (native.Engine, error) {
	return linked, nil
}

var _ native.Engine = (*Engine)(nil)

// Name implements native.Engine.
func (e *Engine) Name() string { return "libgltf2image" }

// CreateContext implements native.Engine.
func (e *Engine) CreateContext() (native.ContextToken, native.Status) {
	var rm C.uintptr_t
	st := native.Status(C.g2i_create(&rm))
	return native.ContextToken(rm), st
}

// DestroyContext implements native.Engine.
func (e *Engine) DestroyContext(ctx native.ContextToken) native.Status {
	return native.Status(C.g2i_destroy(C.uintptr_t(ctx)))
}

// LoadAsset implements native.Engine. The engine parses data during the call
// and does not keep a reference to it.
func (e *Engine) LoadAsset(ctx native.ContextToken, data []byte) (native.AssetToken, native.Status) {
	var p *C.uint8_t
	if len(data) > 0 {
		p = (*C.uint8_t)(unsafe.Pointer(&data[0]))
	}
	var asset C.uintptr_t
	st := native.Status(C.g2i_load(C.uintptr_t(ctx), p, C.size_t(len(data)), &asset))
	return native.AssetToken(asset), st
}

// DestroyAsset implements native.Engine.
func (e *Engine) DestroyAsset(ctx native.ContextToken, asset native.AssetToken) native.Status {
	return native.Status(C.g2i_destroy_asset(C.uintptr_t(ctx), C.uintptr_t(asset)))
}

// Render implements native.Engine. out must be pinned by the caller. The C
// user pointer carries a slot handle from the pending render table.
func (e *Engine) Render(ctx native.ContextToken, width, height uint32, assets []native.AssetToken,
	out unsafe.Pointer, outLen int, cb native.RenderCallback, user native.UserToken,
) native.Status {
	slot := e.renders.Insert(pendingRender{cb: cb, user: user})

	var list *C.uintptr_t
	if len(assets) > 0 {
		list = (*C.uintptr_t)(unsafe.Pointer(&assets[0]))
	}
	st := native.Status(C.g2i_render(C.uintptr_t(ctx), C.uint32_t(width), C.uint32_t(height),
		list, C.uint32_t(len(assets)),
		(*C.uint8_t)(out), C.size_t(outLen), C.uintptr_t(slot)))
	if st != native.StatusSuccess {
		e.renders.Remove(slot)
	}
	return st
}

// SetLogCallback implements native.Engine.
func (e *Engine) SetLogCallback(cb native.LogCallback, user uintptr) native.Status {
	if cb == nil {
		st := native.Status(C.g2i_set_log(0, 0))
		if st.OK() {
			e.log.Store(nil)
		}
		return st
	}
	e.log.Store(&logBinding{cb: cb, user: user})
	return native.Status(C.g2i_set_log(1, C.uintptr_t(user)))
}
