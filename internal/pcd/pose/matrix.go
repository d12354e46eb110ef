package pose

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/banshee-data/pcdview/internal/pcd"
)

// RigidTolerance bounds |det(R) - 1| for a pose to count as a proper rotation.
const RigidTolerance = 0.01

// Matrix reinterprets a pose's row-major entries as a column-major matrix.
// mgl64.Mat4 stores columns contiguously, so reading the row-major array as
// columns and transposing yields the natural layout: columns 0-2 are the
// x, y, z basis vectors and column 3 is the translation.
//
// This is the only place the document layout is converted.
func Matrix(p pcd.RawPose) mgl64.Mat4 {
	return mgl64.Mat4(p.Entries).Transpose()
}

// IsRigid reports whether the row-major entries describe a rigid transform:
// the 3×3 block has determinant ≈ 1 and the last row is [0 0 0 1].
// Non-rigid poses are still used; callers only log them.
func IsRigid(T [16]float64) bool {
	r00, r01, r02 := T[0], T[1], T[2]
	r10, r11, r12 := T[4], T[5], T[6]
	r20, r21, r22 := T[8], T[9], T[10]

	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1.0) > RigidTolerance {
		return false
	}

	if T[12] != 0 || T[13] != 0 || T[14] != 0 || math.Abs(T[15]-1.0) > 0.001 {
		return false
	}
	return true
}
