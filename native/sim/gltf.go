package sim

import (
	"bytes"
	"fmt"

	"github.com/qmuntal/gltf"
)

// scene is the part of a glTF document the software engine renders from.
type scene struct {
	color   [4]byte
	nodes   int
	cameras int
	meshes  int
}

// parseScene accepts glTF JSON or a binary GLB container.
func parseScene(data []byte) (*scene, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty asset")
	}

	var doc gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode glTF: %w", err)
	}
	if doc.Asset.Version == "" {
		return nil, fmt.Errorf("missing asset version")
	}

	s := &scene{
		nodes:  len(doc.Nodes),
		meshes: len(doc.Meshes),
		color:  [4]byte{255, 255, 255, 255},
	}
	for _, n := range doc.Nodes {
		if n == nil || n.Camera == nil {
			continue
		}
		if c := *n.Camera; c < 0 || c >= len(doc.Cameras) {
			return nil, fmt.Errorf("node references camera %d of %d", c, len(doc.Cameras))
		}
		s.cameras++
	}
	if len(doc.Materials) > 0 && doc.Materials[0] != nil {
		if pbr := doc.Materials[0].PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
			for i, f := range pbr.BaseColorFactor[:3] {
				s.color[i] = unorm8(f)
			}
		}
	}
	return s, nil
}

func unorm8(f float64) byte {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 255
	default:
		return byte(f*255 + 0.5)
	}
}
