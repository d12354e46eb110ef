package preview

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pcdview/internal/config"
	"github.com/banshee-data/pcdview/internal/pcd"
	"github.com/banshee-data/pcdview/internal/pcd/merge"
)

func bufferOf(n int) *pcd.RenderBuffer {
	buf := &pcd.RenderBuffer{
		Positions: make([][3]float32, n),
		Colors:    make([][4]float32, n),
	}
	for i := range n {
		f := float32(i)
		buf.Positions[i] = [3]float32{f, -f, f / 2}
		buf.Colors[i] = [4]float32{f / float32(n), 0.5, 1, 1}
	}
	return buf
}

func TestDecimate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		n, max     int
		wantLen    int
		wantStride int
	}{
		{"under limit", 10, 20, 10, 1},
		{"at limit", 10, 10, 10, 1},
		{"exact multiple", 100, 10, 10, 10},
		{"rounds stride up", 25, 10, 9, 3},
		{"no limit", 10, 0, 10, 1},
		{"empty", 0, 5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := bufferOf(tt.n)
			got, stride := Decimate(buf, tt.max)
			assert.Equal(t, tt.wantStride, stride)
			require.Equal(t, tt.wantLen, got.Len())
			require.Len(t, got.Colors, got.Len())
			for i := range got.Len() {
				assert.Equal(t, buf.Positions[i*stride], got.Positions[i])
				assert.Equal(t, buf.Colors[i*stride], got.Colors[i])
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	buf := &pcd.RenderBuffer{
		Positions: [][3]float32{{1, 10, -1}, {3, 10, 1}},
		Colors:    make([][4]float32, 2),
	}
	s := Summarize(buf)

	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 1.0, s.X.Min)
	assert.Equal(t, 3.0, s.X.Max)
	assert.InDelta(t, 2, s.X.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt2, s.X.StdDev, 1e-12)
	assert.Equal(t, Axis{Min: 10, Max: 10, Mean: 10, StdDev: 0}, s.Y)
	assert.InDelta(t, 0, s.Z.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt2, s.Z.StdDev, 1e-12)
}

func TestSummarize_Small(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Summary{}, Summarize(nil))
	assert.Equal(t, Summary{}, Summarize(&pcd.RenderBuffer{}))

	one := &pcd.RenderBuffer{Positions: [][3]float32{{4, 5, 6}}, Colors: make([][4]float32, 1)}
	s := Summarize(one)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, Axis{Min: 4, Max: 4, Mean: 4}, s.X)
	assert.Equal(t, Axis{Min: 6, Max: 6, Mean: 6}, s.Z)
}

func testMarkers() []merge.Marker {
	return []merge.Marker{
		{NodeID: "node-a", Center: mgl32.Vec3{0, 0, 1}},
		{NodeID: "node-b", Center: mgl32.Vec3{12, 4, 2}},
	}
}

func TestWritePNG(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preview.png")
	maxPoints := 50
	cfg := config.EmptyConfig()
	cfg.PreviewMaxPoints = &maxPoints

	require.NoError(t, WritePNG(path, bufferOf(500), testMarkers(), cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")), "expected PNG signature")
}

func TestWritePNG_NoMarkers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "points.png")
	require.NoError(t, WritePNG(path, bufferOf(10), nil, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, WriteHTML(&out, bufferOf(20), testMarkers(), nil))

	html := out.String()
	assert.Contains(t, html, "Point Cloud Preview")
	assert.Contains(t, html, "points=20 of 20 stride=1 nodes=2")
	assert.Contains(t, html, "node-b")
}

func TestWriteHTML_Decimates(t *testing.T) {
	t.Parallel()

	maxPoints := 100
	cfg := config.EmptyConfig()
	cfg.PreviewMaxPoints = &maxPoints

	var out bytes.Buffer
	require.NoError(t, WriteHTML(&out, bufferOf(1000), nil, cfg))
	assert.Contains(t, out.String(), "points=100 of 1000 stride=10 nodes=0")
}

func TestToNRGBA(t *testing.T) {
	t.Parallel()

	c := toNRGBA(merge.EncodeColor(255, 128, 0))
	assert.Equal(t, uint8(255), c.R)
	assert.Equal(t, uint8(128), c.G)
	assert.Equal(t, uint8(0), c.B)
	assert.Equal(t, uint8(255), c.A)
}
