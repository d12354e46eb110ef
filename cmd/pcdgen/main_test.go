package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pcdview/internal/pcd/pipeline"
	"github.com/banshee-data/pcdview/internal/pcd/pose"
	"github.com/banshee-data/pcdview/internal/pcd/source"
)

func testParams() params {
	return params{
		Nodes:         4,
		PointsPerNode: 200,
		Easting:       500000,
		Northing:      4100000,
		Spacing:       12,
		Extent:        6,
		ZeroFraction:  0.1,
		Seed:          7,
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	posesA, cloudA := generate(testParams())
	posesB, cloudB := generate(testParams())
	assert.Equal(t, posesA, posesB)
	assert.Equal(t, cloudA, cloudB)

	require.Len(t, posesA, 4)
	require.Len(t, cloudA, 800)
	for _, p := range posesA {
		assert.True(t, pose.IsRigid(p.Entries), "pose %s should be rigid", p.NodeID)
	}
	assert.Equal(t, nodeID(7, 0), posesA[0].NodeID)
	assert.NotEqual(t, posesA[0].NodeID, posesA[1].NodeID)
}

func TestRun_WritesLoadableSurvey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := run([]string{"-out", dir, "-nodes", "3", "-points-per-node", "500", "-row-group", "256", "-seed", "3"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "wrote 3 poses")
	assert.Contains(t, stdout.String(), "wrote 1500 points")

	p := pipeline.New(nil)
	buf, err := p.Run(context.Background(), source.Dir{Root: dir}, "poses.json", "points.parquet")
	require.NoError(t, err)

	st := p.Stats()
	assert.Equal(t, 3, st.Poses)
	assert.Equal(t, nodeID(3, 0), st.Anchor.NodeID, "first node has the smallest easting")
	assert.Equal(t, int64(1500), st.Points.Rows)
	assert.Equal(t, 1500, st.Points.Kept+st.Points.Dropped)
	assert.Equal(t, st.Points.Kept, buf.Len())
}

func TestRun_BadFlags(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"-nodes", "0", "-out", filepath.Join(t.TempDir(), "x")}, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"-bogus"}, &stdout, &stderr))
}
