// Package merge joins decoded points with their node transforms and emits
// the global-space render buffer.
package merge

import (
	"github.com/banshee-data/pcdview/internal/pcd"
)

// Apply transforms every point of cloud into the shared frame and encodes
// its colour, preserving cloud order.
//
// A point whose node has no transform fails the whole merge with
// UnresolvedNodeError; no partial buffer is returned.
func Apply(transforms pcd.TransformMap, cloud pcd.PointCloud) (*pcd.RenderBuffer, error) {
	buf := &pcd.RenderBuffer{
		Positions: make([][3]float32, 0, len(cloud)),
		Colors:    make([][4]float32, 0, len(cloud)),
	}

	// Points arrive grouped by node, so remember the last lookup.
	var (
		lastID string
		last   pcd.NodeTransform
		have   bool
	)
	for i, p := range cloud {
		if !have || p.NodeID != lastID {
			nt, ok := transforms[p.NodeID]
			if !ok {
				return nil, &pcd.UnresolvedNodeError{NodeID: p.NodeID, Index: i}
			}
			lastID, last, have = p.NodeID, nt, true
		}

		buf.Positions = append(buf.Positions, [3]float32(last.Apply(p.X, p.Y, p.Z)))
		buf.Colors = append(buf.Colors, EncodeColor(p.R, p.G, p.B))
	}

	pcd.Diagf("merged %d points from %d node transforms", buf.Len(), len(transforms))
	return buf, nil
}

// EncodeColor maps 8-bit RGB to normalized RGBA with alpha 1.
func EncodeColor(r, g, b uint8) [4]float32 {
	return [4]float32{float32(r) / 255, float32(g) / 255, float32(b) / 255, 1}
}
