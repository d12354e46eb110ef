package preview

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/pcdview/internal/config"
	"github.com/banshee-data/pcdview/internal/pcd"
	"github.com/banshee-data/pcdview/internal/pcd/merge"
)

// WritePNG saves a top-down X/Y scatter of buf to path, each point drawn in
// its own colour, with node marker centres overlaid as rings.
func WritePNG(path string, buf *pcd.RenderBuffer, markers []merge.Marker, cfg *config.PipelineConfig) error {
	if cfg == nil {
		cfg = config.EmptyConfig()
	}
	sample, stride := Decimate(buf, cfg.GetPreviewMaxPoints())

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Point cloud (%d of %d points, stride %d)", sample.Len(), buf.Len(), stride)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	if sample.Len() > 0 {
		pts := make(plotter.XYs, sample.Len())
		for i, pos := range sample.Positions {
			pts[i] = plotter.XY{X: float64(pos[0]), Y: float64(pos[1])}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("points scatter: %w", err)
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  toNRGBA(sample.Colors[i]),
				Radius: vg.Points(1),
				Shape:  draw.CircleGlyph{},
			}
		}
		p.Add(sc)
	}

	if len(markers) > 0 {
		centres := make(plotter.XYs, len(markers))
		for i, m := range markers {
			centres[i] = plotter.XY{X: float64(m.Center.X()), Y: float64(m.Center.Y())}
		}
		sc, err := plotter.NewScatter(centres)
		if err != nil {
			return fmt.Errorf("marker scatter: %w", err)
		}
		sc.GlyphStyle = draw.GlyphStyle{
			Color:  color.RGBA{R: 220, G: 20, B: 60, A: 255},
			Radius: vg.Points(4),
			Shape:  draw.RingGlyph{},
		}
		p.Add(sc)
		p.Legend.Add("nodes", sc)
	}

	size := vg.Length(cfg.GetPreviewSizeCm()) * vg.Centimeter
	if err := p.Save(size, size, path); err != nil {
		return fmt.Errorf("failed to save preview %s: %w", path, err)
	}
	pcd.Diagf("wrote PNG preview %s (%d points, stride %d)", path, sample.Len(), stride)
	return nil
}

func toNRGBA(c [4]float32) color.NRGBA {
	ch := func(v float32) uint8 {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.NRGBA{R: ch(c[0]), G: ch(c[1]), B: ch(c[2]), A: ch(c[3])}
}
