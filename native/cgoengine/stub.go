//go:build !gltf2image_native || !cgo

package cgoengine

import (
	"github.com/wippyai/gltf2image/errors"
	"github.com/wippyai/gltf2image/native"
)

// Load reports that the native library is not linked into this build.
func Load() (native.Engine, error) {
	return nil, errors.New(errors.PhaseCreate, errors.KindUnknown).
		Detail("native engine not linked: build with -tags gltf2image_native").
		Build()
}
