// Package preview renders quick looks at a merged render buffer: summary
// statistics, a top-down PNG scatter and an interactive HTML scatter.
package preview

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pcdview/internal/pcd"
)

// Decimate keeps every stride-th point so that at most maxPoints remain.
// Positions and colours stay aligned. When no decimation is needed buf is
// returned unchanged with stride 1.
func Decimate(buf *pcd.RenderBuffer, maxPoints int) (*pcd.RenderBuffer, int) {
	n := buf.Len()
	if maxPoints <= 0 || n <= maxPoints {
		return buf, 1
	}

	stride := int(math.Ceil(float64(n) / float64(maxPoints)))
	out := &pcd.RenderBuffer{
		Positions: make([][3]float32, 0, n/stride+1),
		Colors:    make([][4]float32, 0, n/stride+1),
	}
	for i := 0; i < n; i += stride {
		out.Positions = append(out.Positions, buf.Positions[i])
		out.Colors = append(out.Colors, buf.Colors[i])
	}
	return out, stride
}

// Axis holds statistics for one coordinate axis.
type Axis struct {
	Min, Max     float64
	Mean, StdDev float64
}

// Summary describes the extent of a render buffer.
type Summary struct {
	Count int
	X     Axis
	Y     Axis
	Z     Axis
}

// Summarize computes per-axis statistics. The sample standard deviation is
// reported as 0 for fewer than two points.
func Summarize(buf *pcd.RenderBuffer) Summary {
	n := buf.Len()
	s := Summary{Count: n}
	if n == 0 {
		return s
	}

	axis := make([]float64, n)
	for k, dst := range []*Axis{&s.X, &s.Y, &s.Z} {
		for i, p := range buf.Positions {
			axis[i] = float64(p[k])
		}
		dst.Min = floats.Min(axis)
		dst.Max = floats.Max(axis)
		if n == 1 {
			dst.Mean = axis[0]
			continue
		}
		dst.Mean, dst.StdDev = stat.MeanStdDev(axis, nil)
	}
	return s
}
