package pose

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/banshee-data/pcdview/internal/pcd"
)

// SelectAnchor returns the index of the pose with the smallest translation X,
// ties broken by the smallest Y. Z is not consulted. On a full (X, Y) tie the
// earliest pose wins.
func SelectAnchor(poses []pcd.RawPose) (int, error) {
	if len(poses) == 0 {
		return -1, pcd.ErrEmptyPoseSet
	}
	best := 0
	bt := poses[0].Translation()
	for i := 1; i < len(poses); i++ {
		t := poses[i].Translation()
		if t[0] < bt[0] || (t[0] == bt[0] && t[1] < bt[1]) {
			best, bt = i, t
		}
	}
	return best, nil
}

// Resolve re-centers every pose on the anchor and narrows the result to
// single precision.
//
// Translations are subtracted in float64 before narrowing: UTM-scale values
// such as 3620823.72 keep only about half a metre of resolution as float32,
// while their differences are small enough to keep millimetres.
func Resolve(poses []pcd.RawPose) (pcd.TransformMap, pcd.Anchor, error) {
	ai, err := SelectAnchor(poses)
	if err != nil {
		return nil, pcd.Anchor{}, err
	}
	anchor := pcd.Anchor{NodeID: poses[ai].NodeID, Translation: poses[ai].Translation()}
	at := mgl64.Vec3(anchor.Translation)
	pcd.Diagf("anchor node %s at (%.4f, %.4f, %.4f)", anchor.NodeID, at[0], at[1], at[2])

	out := make(pcd.TransformMap, len(poses))
	seen := make(map[string]int, len(poses))
	for i, p := range poses {
		if first, dup := seen[p.NodeID]; dup {
			return nil, pcd.Anchor{}, &pcd.DuplicateNodeError{NodeID: p.NodeID, First: first, Second: i}
		}
		seen[p.NodeID] = i

		if !IsRigid(p.Entries) {
			pcd.Diagf("pose %d (node %s) is not a rigid transform; using it as given", i, p.NodeID)
		}

		m := Matrix(p)
		w := m.Col(3)
		shifted := mgl64.Vec4{w[0] - at[0], w[1] - at[1], w[2] - at[2], w[3]}
		out[p.NodeID] = pcd.NodeTransform{
			NodeID: p.NodeID,
			Matrix: mgl32.Mat4FromCols(
				narrow(m.Col(0)), narrow(m.Col(1)), narrow(m.Col(2)), narrow(shifted),
			),
		}
		pcd.Tracef("node %s translation (%.4f, %.4f, %.4f)", p.NodeID, shifted[0], shifted[1], shifted[2])
	}

	pcd.Diagf("resolved %d node transforms", len(out))
	return out, anchor, nil
}

func narrow(v mgl64.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3])}
}
