// Command pcdview loads a pose document and a Parquet point document, merges
// them into a render buffer and reports what it built. It can also write
// PNG and HTML previews and record each load in a SQLite history database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/pcdview/internal/config"
	"github.com/banshee-data/pcdview/internal/pcd"
	"github.com/banshee-data/pcdview/internal/pcd/pipeline"
	"github.com/banshee-data/pcdview/internal/pcd/preview"
	"github.com/banshee-data/pcdview/internal/pcd/source"
	"github.com/banshee-data/pcdview/internal/pcd/storage/sqlite"
	"github.com/banshee-data/pcdview/internal/timeutil"
	"github.com/banshee-data/pcdview/internal/version"
)

// clock times each load; tests replace it.
var clock timeutil.Clock = timeutil.RealClock{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	poses      string
	points     string
	root       string
	configPath string
	dbPath     string
	pngPath    string
	htmlPath   string
	history    int
	verbose    bool
	trace      bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := flag.NewFlagSet("pcdview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.poses, "poses", "", "Pose document (JSON)")
	fs.StringVar(&o.points, "points", "", "Point document (Parquet)")
	fs.StringVar(&o.root, "root", "", "Resolve documents under this directory and refuse paths that escape it")
	fs.StringVar(&o.configPath, "config", "", "Pipeline config file (JSON)")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database recording load history (optional)")
	fs.StringVar(&o.pngPath, "png", "", "Write a top-down PNG preview to this path")
	fs.StringVar(&o.htmlPath, "html", "", "Write an interactive HTML preview to this path")
	fs.IntVar(&o.history, "history", 0, "List the N most recent loads from -db and exit")
	fs.BoolVar(&o.verbose, "v", false, "Enable diagnostic logging")
	fs.BoolVar(&o.trace, "trace", false, "Enable per-batch trace logging")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if o.version {
		return &o, nil
	}
	if o.history > 0 {
		if o.dbPath == "" {
			return nil, errors.New("-history requires -db")
		}
		return &o, nil
	}
	if o.poses == "" || o.points == "" {
		return nil, errors.New("both -poses and -points are required")
	}
	return &o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "pcdview: %v\n", err)
		return 2
	}

	if o.version {
		fmt.Fprintf(stdout, "pcdview %s\n", version.String())
		return 0
	}

	verbosity := pcd.Quiet
	switch {
	case o.trace:
		verbosity = pcd.Tracing
	case o.verbose:
		verbosity = pcd.Verbose
	}
	pcd.SetLogWriters(pcd.WritersFor(stderr, verbosity))

	if o.history > 0 {
		if err := printHistory(stdout, o.dbPath, o.history); err != nil {
			fmt.Fprintf(stderr, "pcdview: %v\n", err)
			return 1
		}
		return 0
	}

	cfg := config.EmptyConfig()
	if o.configPath != "" {
		cfg, err = config.LoadConfig(o.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "pcdview: %v\n", err)
			return 1
		}
	}

	src := source.Dir{Root: o.root, MaxBytes: cfg.GetMaxDocumentBytes(), Confine: o.root != ""}
	p := pipeline.New(cfg)
	p.SetClock(clock)

	started := clock.Now()
	pcd.Opsf("loading %s + %s", o.poses, o.points)
	buf, loadErr := p.Run(ctx, src, o.poses, o.points)
	elapsed := clock.Since(started)

	if o.dbPath != "" {
		if err := recordRun(o, p.Stats(), started, elapsed, loadErr); err != nil {
			pcd.Opsf("failed to record load run: %v", err)
		}
	}

	if loadErr != nil {
		fmt.Fprintf(stderr, "pcdview: %v\n", loadErr)
		return 1
	}
	pcd.Opsf("loaded %d points in %v", buf.Len(), elapsed)

	printSummary(stdout, p.Stats(), preview.Summarize(buf))

	if o.pngPath != "" {
		if err := preview.WritePNG(o.pngPath, buf, p.Markers(), cfg); err != nil {
			fmt.Fprintf(stderr, "pcdview: %v\n", err)
			return 1
		}
	}
	if o.htmlPath != "" {
		if err := writeHTML(o.htmlPath, buf, p, cfg); err != nil {
			fmt.Fprintf(stderr, "pcdview: %v\n", err)
			return 1
		}
	}
	return 0
}

func writeHTML(path string, buf *pcd.RenderBuffer, p *pipeline.Pipeline, cfg *config.PipelineConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := preview.WriteHTML(f, buf, p.Markers(), cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func recordRun(o *options, st pipeline.Stats, started time.Time, elapsed time.Duration, loadErr error) error {
	db, err := sqlite.Open(o.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	run := &sqlite.LoadRun{
		PosesDocument:  o.poses,
		PointsDocument: o.points,
		StartedAt:      started,
		Duration:       elapsed,
		PoseCount:      st.Poses,
		RowCount:       st.Points.Rows,
		KeptPoints:     st.Points.Kept,
		DroppedPoints:  st.Points.Dropped,
		AnchorNodeID:   st.Anchor.NodeID,
		Status:         sqlite.StatusOK,
		Version:        version.Version,
	}
	if loadErr != nil {
		run.Status = sqlite.StatusFailed
		run.Error = loadErr.Error()
	}
	if err := sqlite.NewLoadRunStore(db).Insert(run); err != nil {
		return err
	}
	pcd.Diagf("recorded load run %s (%s)", run.RunID, run.Status)
	return nil
}

func printSummary(w io.Writer, st pipeline.Stats, s preview.Summary) {
	a := st.Anchor
	fmt.Fprintf(w, "anchor:  %s at (%.3f, %.3f, %.3f)\n", a.NodeID, a.Translation[0], a.Translation[1], a.Translation[2])
	fmt.Fprintf(w, "nodes:   %d\n", st.Poses)
	fmt.Fprintf(w, "rows:    %d (kept %d, dropped %d)\n", st.Points.Rows, st.Points.Kept, st.Points.Dropped)
	fmt.Fprintf(w, "points:  %d\n", s.Count)
	for _, ax := range []struct {
		name string
		a    preview.Axis
	}{{"x", s.X}, {"y", s.Y}, {"z", s.Z}} {
		fmt.Fprintf(w, "%s:       min %.3f max %.3f mean %.3f sd %.3f\n", ax.name, ax.a.Min, ax.a.Max, ax.a.Mean, ax.a.StdDev)
	}
}

func printHistory(w io.Writer, dbPath string, limit int) error {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := sqlite.NewLoadRunStore(db).ListRecent(limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %-6s  %s + %s  kept=%d dropped=%d  %v",
			r.StartedAt.Format(time.RFC3339), r.RunID, r.Status,
			r.PosesDocument, r.PointsDocument, r.KeptPoints, r.DroppedPoints, r.Duration)
		if r.Error != "" {
			fmt.Fprintf(w, "  error=%q", r.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}
