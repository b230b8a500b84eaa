//go:build gltf2image_native && cgo

package main

import (
	"github.com/wippyai/gltf2image/native"
	"github.com/wippyai/gltf2image/native/cgoengine"
)

const engineKind = "native"

func openEngine() (native.Engine, error) {
	return cgoengine.Load()
}
