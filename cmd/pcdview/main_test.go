package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pcdview/internal/pcd"
	"github.com/banshee-data/pcdview/internal/pcd/storage/sqlite"
	"github.com/banshee-data/pcdview/internal/testutil"
	"github.com/banshee-data/pcdview/internal/timeutil"
)

// writeScene writes the UTM fixture documents into dir.
func writeScene(t *testing.T, dir string, cloud pcd.PointCloud) (string, string) {
	t.Helper()
	poses, _ := testutil.UTMScene()
	posesPath := filepath.Join(dir, testutil.PosesName)
	pointsPath := filepath.Join(dir, testutil.PointsName)
	require.NoError(t, os.WriteFile(posesPath, testutil.PoseDocument(t, poses), 0o644))
	require.NoError(t, os.WriteFile(pointsPath, testutil.PointDocument(t, cloud), 0o644))
	return posesPath, pointsPath
}

func TestRun_Success(t *testing.T) {
	started := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	clock = timeutil.NewMockClock(started, 0)
	t.Cleanup(func() { clock = timeutil.RealClock{} })

	dir := t.TempDir()
	_, cloud := testutil.UTMScene()
	posesPath, pointsPath := writeScene(t, dir, cloud)
	dbPath := filepath.Join(dir, "history.db")
	pngPath := filepath.Join(dir, "preview.png")
	htmlPath := filepath.Join(dir, "preview.html")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-poses", posesPath, "-points", pointsPath,
		"-db", dbPath, "-png", pngPath, "-html", htmlPath,
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "anchor:  a at (500000.250, 4100000.500, 12.000)")
	assert.Contains(t, out, "nodes:   2")
	assert.Contains(t, out, "rows:    3 (kept 2, dropped 1)")
	assert.Contains(t, out, "points:  2")

	for _, p := range []string{pngPath, htmlPath} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	db, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	runs, err := sqlite.NewLoadRunStore(db).ListRecent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, sqlite.StatusOK, runs[0].Status)
	assert.Equal(t, "a", runs[0].AnchorNodeID)
	assert.Equal(t, 2, runs[0].KeptPoints)
	assert.Equal(t, 1, runs[0].DroppedPoints)
	assert.True(t, runs[0].StartedAt.Equal(started))
	assert.Equal(t, time.Duration(0), runs[0].Duration)
}

func TestRun_LoadFailureIsRecorded(t *testing.T) {
	dir := t.TempDir()
	_, cloud := testutil.UTMScene()
	cloud = append(cloud, pcd.RawPoint{NodeID: "ghost", X: 1, Y: 1, Z: 1})
	posesPath, pointsPath := writeScene(t, dir, cloud)
	dbPath := filepath.Join(dir, "history.db")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-poses", posesPath, "-points", pointsPath, "-db", dbPath}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unresolved node")
	assert.Empty(t, stdout.String())

	stdout.Reset()
	code = run(context.Background(), []string{"-db", dbPath, "-history", "5"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "failed")
	assert.Contains(t, stdout.String(), "ghost")
}

func TestRun_MissingDocument(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-poses", filepath.Join(dir, "absent.json"),
		"-points", filepath.Join(dir, "absent.parquet"),
	}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "io error")
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no documents", nil, 2},
		{"only poses", []string{"-poses", "p.json"}, 2},
		{"history without db", []string{"-history", "3"}, 2},
		{"unknown flag", []string{"-nope"}, 2},
		{"help", []string{"-h"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.want, run(context.Background(), tt.args, &stdout, &stderr))
		})
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), []string{"-version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "pcdview dev")
}

func TestRun_BadConfig(t *testing.T) {
	dir := t.TempDir()
	_, cloud := testutil.UTMScene()
	posesPath, pointsPath := writeScene(t, dir, cloud)
	cfgPath := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"parquet_batch_size": -1}`), 0o644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-poses", posesPath, "-points", pointsPath, "-config", cfgPath}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "parquet_batch_size")
}

func TestRun_RootConfinement(t *testing.T) {
	dir := t.TempDir()
	_, cloud := testutil.UTMScene()
	writeScene(t, dir, cloud)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-root", dir, "-poses", testutil.PosesName, "-points", testutil.PointsName,
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "points:  2")

	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	stdout.Reset()
	stderr.Reset()
	code = run(context.Background(), []string{
		"-root", nested, "-poses", "../" + testutil.PosesName, "-points", "../" + testutil.PointsName,
	}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "path traversal")
}
