package preview

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pcdview/internal/config"
	"github.com/banshee-data/pcdview/internal/pcd"
	"github.com/banshee-data/pcdview/internal/pcd/merge"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// WriteHTML renders an interactive X/Y scatter of buf to w with height
// mapped to colour, plus a series of node marker centres.
func WriteHTML(w io.Writer, buf *pcd.RenderBuffer, markers []merge.Marker, cfg *config.PipelineConfig) error {
	if cfg == nil {
		cfg = config.EmptyConfig()
	}
	sample, stride := Decimate(buf, cfg.GetPreviewMaxPoints())

	data := make([]opts.ScatterData, 0, sample.Len())
	maxAbs := 0.0
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, p := range sample.Positions {
		x, y, z := float64(p[0]), float64(p[1]), float64(p[2])
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(x), math.Abs(y)))
		minZ = math.Min(minZ, z)
		maxZ = math.Max(maxZ, z)
		data = append(data, opts.ScatterData{Value: []interface{}{x, y, z}})
	}

	nodes := make([]opts.ScatterData, 0, len(markers))
	for _, m := range markers {
		x, y, z := float64(m.Center.X()), float64(m.Center.Y()), float64(m.Center.Z())
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(x), math.Abs(y)))
		nodes = append(nodes, opts.ScatterData{Name: m.NodeID, Value: []interface{}{x, y, z}})
	}

	// Pad so points at the edges stay visible.
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if math.IsInf(minZ, 0) {
		minZ, maxZ = 0, 1
	}
	if maxZ == minZ {
		maxZ = minZ + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Point Cloud Preview", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Point Cloud", Subtitle: fmt.Sprintf("points=%d of %d stride=%d nodes=%d", len(data), buf.Len(), stride, len(nodes))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minZ),
			Max:        float32(maxZ),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)

	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries("nodes", nodes,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#dc143c"}),
	)

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	pcd.Diagf("wrote HTML preview (%d points, stride %d)", len(data), stride)
	return nil
}
