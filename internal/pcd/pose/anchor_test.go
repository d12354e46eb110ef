package pose

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pcdview/internal/pcd"
)

// translated returns a pose with an identity rotation and the given translation.
func translated(id string, x, y, z float64) pcd.RawPose {
	return pcd.RawPose{NodeID: id, Entries: [16]float64{
		1, 0, 0, x,
		0, 1, 0, y,
		0, 0, 1, z,
		0, 0, 0, 1,
	}}
}

func TestMatrix_TransposesRowMajor(t *testing.T) {
	p := pcd.RawPose{Entries: [16]float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		0, 0, 0, 1,
	}}
	m := Matrix(p)

	assert.Equal(t, mgl64.Vec4{1, 5, 9, 0}, m.Col(0))
	assert.Equal(t, mgl64.Vec4{4, 8, 12, 1}, m.Col(3))
	assert.Equal(t, 7.0, m.At(1, 2))
}

func TestIsRigid(t *testing.T) {
	assert.True(t, IsRigid(translated("a", 5, 6, 7).Entries))
	assert.True(t, IsRigid([16]float64{0, -1, 0, 0, 1, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}))

	scaled := [16]float64{2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 1}
	assert.False(t, IsRigid(scaled))

	badLastRow := [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 1, 0, 0, 1}
	assert.False(t, IsRigid(badLastRow))
}

func TestSelectAnchor(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := SelectAnchor(nil)
		assert.ErrorIs(t, err, pcd.ErrEmptyPoseSet)
	})

	t.Run("minimum x", func(t *testing.T) {
		i, err := SelectAnchor([]pcd.RawPose{
			translated("a", 10, 0, 0),
			translated("b", -4, 100, 0),
			translated("c", 3, -50, 0),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, i)
	})

	t.Run("equal x breaks on y", func(t *testing.T) {
		i, err := SelectAnchor([]pcd.RawPose{
			translated("a", 5, 2, 0),
			translated("b", 5, 1, 0),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, i)
	})

	t.Run("z is ignored", func(t *testing.T) {
		i, err := SelectAnchor([]pcd.RawPose{
			translated("a", 5, 1, 9),
			translated("b", 5, 1, -9),
		})
		require.NoError(t, err)
		assert.Equal(t, 0, i, "full x/y tie keeps the first pose")
	})
}

func TestResolve_AnchorLandsAtOrigin(t *testing.T) {
	poses := []pcd.RawPose{
		translated("a", 3620830.5, 5612340.25, 12),
		translated("b", 3620823.7240922246, 5612345.5, 14.75),
		translated("c", 3620823.7240922246, 5612399, 1),
	}
	tm, anchor, err := Resolve(poses)
	require.NoError(t, err)

	assert.Equal(t, "b", anchor.NodeID)
	got := tm["b"].Translation()
	assert.Equal(t, float32(0), got[0])
	assert.Equal(t, float32(0), got[1])
	assert.Equal(t, float32(0), got[2], "z is shifted by subtraction too")
}

func TestResolve_PureTranslationOfFrame(t *testing.T) {
	rot := mgl64.HomogRotate3DZ(0.3).Mul4(mgl64.HomogRotate3DX(-0.1))
	withRotation := func(id string, x, y, z float64) pcd.RawPose {
		m := mgl64.Translate3D(x, y, z).Mul4(rot)
		// Row-major flattening of m.
		return pcd.RawPose{NodeID: id, Entries: [16]float64(m.Transpose())}
	}

	poses := []pcd.RawPose{
		withRotation("a", 500100.5, 4100000.25, 30),
		withRotation("b", 500000.75, 4100200.5, 31.5),
		withRotation("c", 500050, 4099990, 29),
	}
	tm, anchor, err := Resolve(poses)
	require.NoError(t, err)
	require.Len(t, tm, 3)
	assert.Equal(t, "b", anchor.NodeID)

	for _, p := range poses {
		nt := tm[p.NodeID]
		raw := p.Translation()
		want := [3]float64{raw[0] - anchor.Translation[0], raw[1] - anchor.Translation[1], raw[2] - anchor.Translation[2]}
		got := nt.Translation()
		for k := 0; k < 3; k++ {
			assert.InDelta(t, want[k], float64(got[k]), 1e-3, "node %s axis %d", p.NodeID, k)
		}

		m := Matrix(p)
		for c := 0; c < 3; c++ {
			col := m.Col(c)
			assert.Equal(t, mgl32.Vec4{float32(col[0]), float32(col[1]), float32(col[2]), float32(col[3])},
				nt.Matrix.Col(c), "node %s column %d unchanged", p.NodeID, c)
		}
		assert.Equal(t, float32(1), nt.Matrix.At(3, 3))
	}
}

func TestResolve_KeepsCentimetresAtUTMScale(t *testing.T) {
	poses := []pcd.RawPose{
		translated("a", 3620823.72, 5612345.50, 0),
		translated("b", 3620823.73, 5612345.51, 0),
	}
	tm, _, err := Resolve(poses)
	require.NoError(t, err)

	got := tm["b"].Translation()
	assert.InDelta(t, 0.01, float64(got[0]), 1e-5)
	assert.InDelta(t, 0.01, float64(got[1]), 1e-5)
}

func TestResolve_Errors(t *testing.T) {
	_, _, err := Resolve(nil)
	assert.ErrorIs(t, err, pcd.ErrEmptyPoseSet)

	_, _, err = Resolve([]pcd.RawPose{
		translated("a", 1, 1, 1),
		translated("b", 2, 2, 2),
		translated("a", 3, 3, 3),
	})
	require.ErrorIs(t, err, pcd.ErrDuplicateNode)
	var dup *pcd.DuplicateNodeError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.NodeID)
	assert.Equal(t, 0, dup.First)
	assert.Equal(t, 2, dup.Second)
}
