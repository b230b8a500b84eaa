//go:build !gltf2image_native || !cgo

package main

import (
	"github.com/wippyai/gltf2image/native"
	"github.com/wippyai/gltf2image/native/sim"
)

const engineKind = "sim"

func openEngine() (native.Engine, error) {
	return sim.New(), nil
}
