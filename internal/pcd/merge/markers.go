package merge

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/banshee-data/pcdview/internal/pcd"
)

// SphereSpec shapes the marker drawn at each node origin.
type SphereSpec struct {
	Radius   float32
	Rings    int // latitude bands, at least 2
	Segments int // longitude slices, at least 3
}

// DefaultSphere matches the marker size used by the viewer.
func DefaultSphere() SphereSpec {
	return SphereSpec{Radius: 0.3, Rings: 8, Segments: 16}
}

// Marker is a small sphere mesh centred on a node's re-centered origin.
type Marker struct {
	NodeID    string
	Center    mgl32.Vec3
	Positions [][3]float32
	Indices   []uint32 // triangle list into Positions
}

// Markers builds one sphere per node, sorted by node id. It is a
// visualisation aid only and plays no part in the point buffer.
func Markers(transforms pcd.TransformMap, spec SphereSpec) []Marker {
	if spec.Rings < 2 {
		spec.Rings = 2
	}
	if spec.Segments < 3 {
		spec.Segments = 3
	}
	unit, indices := unitSphere(spec.Rings, spec.Segments)

	ids := make([]string, 0, len(transforms))
	for id := range transforms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Marker, 0, len(ids))
	for _, id := range ids {
		c := transforms[id].Translation()
		pos := make([][3]float32, len(unit))
		for i, u := range unit {
			pos[i] = [3]float32(c.Add(u.Mul(spec.Radius)))
		}
		out = append(out, Marker{NodeID: id, Center: c, Positions: pos, Indices: indices})
	}
	return out
}

// unitSphere returns UV-sphere vertices and a shared triangle index list.
// Vertex 0 is the north pole, the last vertex the south pole.
func unitSphere(rings, segments int) ([]mgl32.Vec3, []uint32) {
	verts := make([]mgl32.Vec3, 0, 2+(rings-1)*segments)
	verts = append(verts, mgl32.Vec3{0, 0, 1})
	for r := 1; r < rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		for s := 0; s < segments; s++ {
			theta := 2 * math.Pi * float64(s) / float64(segments)
			verts = append(verts, mgl32.Vec3{
				float32(math.Sin(phi) * math.Cos(theta)),
				float32(math.Sin(phi) * math.Sin(theta)),
				float32(math.Cos(phi)),
			})
		}
	}
	verts = append(verts, mgl32.Vec3{0, 0, -1})

	south := uint32(len(verts) - 1)
	ring := func(r, s int) uint32 { return uint32(1 + (r-1)*segments + s%segments) }

	var idx []uint32
	for s := 0; s < segments; s++ {
		idx = append(idx, 0, ring(1, s), ring(1, s+1))
	}
	for r := 1; r < rings-1; r++ {
		for s := 0; s < segments; s++ {
			a, b := ring(r, s), ring(r, s+1)
			c, d := ring(r+1, s), ring(r+1, s+1)
			idx = append(idx, a, c, b, b, c, d)
		}
	}
	for s := 0; s < segments; s++ {
		idx = append(idx, south, ring(rings-1, s+1), ring(rings-1, s))
	}
	return verts, idx
}
