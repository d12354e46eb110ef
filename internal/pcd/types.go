package pcd

import "github.com/go-gl/mathgl/mgl32"

// RawPose is one pose record as found in the pose document. Entries is the
// row-major flattening of a 4×4 matrix; it is kept in that form and only
// reinterpreted by pose.Matrix.
type RawPose struct {
	NodeID  string
	Entries [16]float64
}

// Translation returns the translation of the pose (row-major elements 3, 7, 11).
func (p RawPose) Translation() [3]float64 {
	return [3]float64{p.Entries[3], p.Entries[7], p.Entries[11]}
}

// NodeTransform is a node's pose after re-centering on the anchor, stored in
// single precision in the canonical column-major layout.
type NodeTransform struct {
	NodeID string
	Matrix mgl32.Mat4
}

// Translation returns the re-centered translation column.
func (t NodeTransform) Translation() mgl32.Vec3 {
	return t.Matrix.Col(3).Vec3()
}

// Apply maps a node-local position into the shared frame.
func (t NodeTransform) Apply(x, y, z float32) mgl32.Vec3 {
	return t.Matrix.Mul4x1(mgl32.Vec4{x, y, z, 1}).Vec3()
}

// TransformMap maps node id to its re-centered transform. It is built once
// per load and not modified afterwards.
type TransformMap map[string]NodeTransform

// Anchor is the node whose translation was subtracted from every pose.
type Anchor struct {
	NodeID      string
	Translation [3]float64
}

// RawPoint is one surviving row of the columnar point document.
type RawPoint struct {
	NodeID  string
	X, Y, Z float32
	R, G, B uint8
}

// PointCloud holds decoded points in batch order, then row order.
type PointCloud []RawPoint

// RenderBuffer is the final output. Positions[i] and Colors[i] describe the
// same source point; colours are RGBA in [0, 1] with alpha fixed at 1.
type RenderBuffer struct {
	Positions [][3]float32
	Colors    [][4]float32
}

// Len returns the number of points in the buffer.
func (b *RenderBuffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Positions)
}
