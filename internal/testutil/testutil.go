// Package testutil provides shared test utilities and fixtures.
//
// The fixtures build pose and point documents in memory so packages above
// the decoders can exercise the full load path without files on disk.
package testutil

import (
	"bytes"
	"testing"

	"github.com/banshee-data/pcdview/internal/pcd"
	"github.com/banshee-data/pcdview/internal/pcd/points"
	"github.com/banshee-data/pcdview/internal/pcd/pose"
	"github.com/banshee-data/pcdview/internal/pcd/source"
)

// Document names used by Documents.
const (
	PosesName  = "poses.json"
	PointsName = "points.parquet"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// TranslatedPose returns a pose with an identity rotation and the given
// translation, in the row-major layout the pose document uses.
func TranslatedPose(id string, x, y, z float64) pcd.RawPose {
	return pcd.RawPose{
		NodeID: id,
		Entries: [16]float64{
			1, 0, 0, x,
			0, 1, 0, y,
			0, 0, 1, z,
			0, 0, 0, 1,
		},
	}
}

// PoseDocument encodes poses as a pose document.
func PoseDocument(t testing.TB, poses []pcd.RawPose) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := pose.Encode(&buf, poses); err != nil {
		t.Fatalf("encode poses: %v", err)
	}
	return buf.Bytes()
}

// PointDocument encodes cloud as a Parquet point document with the default
// column names.
func PointDocument(t testing.TB, cloud pcd.PointCloud) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := points.WriteParquet(&buf, points.DefaultColumns(), cloud, 1024); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	return buf.Bytes()
}

// Documents returns an in-memory source holding both documents under
// PosesName and PointsName.
func Documents(t testing.TB, poses []pcd.RawPose, cloud pcd.PointCloud) *source.Memory {
	t.Helper()
	src := source.NewMemory()
	src.Put(PosesName, PoseDocument(t, poses))
	src.Put(PointsName, PointDocument(t, cloud))
	return src
}

// UTMScene returns two nodes at survey-scale easting and northing and three
// points, one of which lies on the exact-zero Y axis and is dropped on
// decode.
func UTMScene() ([]pcd.RawPose, pcd.PointCloud) {
	poses := []pcd.RawPose{
		TranslatedPose("a", 500000.25, 4100000.50, 12.0),
		TranslatedPose("b", 500010.75, 4100003.25, 13.5),
	}
	cloud := pcd.PointCloud{
		{NodeID: "a", X: 1, Y: 2, Z: 3, R: 255, G: 0, B: 0},
		{NodeID: "b", X: -1, Y: 0.5, Z: 0.25, R: 0, G: 128, B: 255},
		{NodeID: "b", X: 4, Y: 0, Z: 1, R: 10, G: 10, B: 10},
	}
	return poses, cloud
}
