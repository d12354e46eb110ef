// Package pipeline joins the pose and point load paths and hands the merged
// render buffer over exactly once.
//
// Each load path fills one slot. Merge is gated on both slots: before then it
// is a no-op, and once it has consumed the slots every later call is a no-op
// too, so callers may poll it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/pcdview/internal/config"
	"github.com/banshee-data/pcdview/internal/pcd"
	"github.com/banshee-data/pcdview/internal/pcd/merge"
	"github.com/banshee-data/pcdview/internal/pcd/points"
	"github.com/banshee-data/pcdview/internal/pcd/pose"
	"github.com/banshee-data/pcdview/internal/pcd/source"
	"github.com/banshee-data/pcdview/internal/timeutil"
)

var (
	// ErrAlreadyLoaded is returned when a load path runs a second time.
	ErrAlreadyLoaded = errors.New("slot already loaded")
	// ErrConsumed is returned by Run when the slots were merged before.
	ErrConsumed = errors.New("pipeline already merged")
)

// Stats summarises what the load paths produced and how long each stage
// took.
type Stats struct {
	Poses  int
	Anchor pcd.Anchor
	Points points.Stats

	PosesElapsed  time.Duration
	PointsElapsed time.Duration
	MergeElapsed  time.Duration
}

// Pipeline owns the two load slots and the one-shot merge.
type Pipeline struct {
	cfg     *config.PipelineConfig
	decoder *points.Decoder
	clock   timeutil.Clock

	mu sync.Mutex

	transforms  pcd.TransformMap
	posesReady  bool
	posesErr    error
	posesLoaded bool

	cloud        pcd.PointCloud
	pointsReady  bool
	pointsErr    error
	pointsLoaded bool

	consumed bool
	mergeErr error
	stats    Stats
	markers  []merge.Marker
}

// New returns an empty pipeline. A nil cfg uses the defaults.
func New(cfg *config.PipelineConfig) *Pipeline {
	if cfg == nil {
		cfg = config.EmptyConfig()
	}
	return &Pipeline{
		cfg:     cfg,
		decoder: points.NewDecoder(cfg.Columns()),
		clock:   timeutil.RealClock{},
	}
}

// SetClock replaces the clock used to time the stages.
func (p *Pipeline) SetClock(c timeutil.Clock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = c
}

func (p *Pipeline) now() time.Time {
	p.mu.Lock()
	c := p.clock
	p.mu.Unlock()
	return c.Now()
}

// LoadPoses reads the named pose document, resolves the anchor and fills
// the transform slot. A failure is kept and reported again by Merge.
func (p *Pipeline) LoadPoses(ctx context.Context, src source.Source, name string) error {
	if err := p.claim(&p.posesLoaded); err != nil {
		return err
	}

	start := p.now()
	transforms, anchor, err := loadPoses(ctx, src, name)
	elapsed := p.now().Sub(start)
	if err != nil {
		pcd.Opsf("pose load %q failed: %v", name, err)
		p.mu.Lock()
		p.posesErr = err
		p.mu.Unlock()
		return err
	}

	markers := merge.Markers(transforms, p.cfg.Sphere())
	pcd.Diagf("poses %q: %d nodes, anchor %s at (%.3f, %.3f, %.3f) in %v",
		name, len(transforms), anchor.NodeID,
		anchor.Translation[0], anchor.Translation[1], anchor.Translation[2],
		elapsed)

	p.mu.Lock()
	p.transforms = transforms
	p.posesReady = true
	p.stats.Poses = len(transforms)
	p.stats.Anchor = anchor
	p.stats.PosesElapsed = elapsed
	p.markers = markers
	p.mu.Unlock()
	return nil
}

func loadPoses(ctx context.Context, src source.Source, name string) (pcd.TransformMap, pcd.Anchor, error) {
	data, err := src.ReadDocument(ctx, name)
	if err != nil {
		return nil, pcd.Anchor{}, err
	}
	raw, err := pose.ParsePoses(data)
	if err != nil {
		return nil, pcd.Anchor{}, err
	}
	return pose.Resolve(raw)
}

// LoadPoints reads the named Parquet point document and fills the point
// slot. A failure is kept and reported again by Merge.
func (p *Pipeline) LoadPoints(ctx context.Context, src source.Source, name string) error {
	if err := p.claim(&p.pointsLoaded); err != nil {
		return err
	}

	start := p.now()
	cloud, stats, err := p.loadPoints(ctx, src, name)
	elapsed := p.now().Sub(start)
	if err != nil {
		pcd.Opsf("point load %q failed: %v", name, err)
		p.mu.Lock()
		p.pointsErr = err
		p.mu.Unlock()
		return err
	}

	pcd.Diagf("points %q: %d batches, %d rows, kept=%d dropped=%d nodes=%d in %v",
		name, stats.Batches, stats.Rows, stats.Kept, stats.Dropped, stats.Nodes,
		elapsed)

	p.mu.Lock()
	p.cloud = cloud
	p.pointsReady = true
	p.stats.Points = stats
	p.stats.PointsElapsed = elapsed
	p.mu.Unlock()
	return nil
}

func (p *Pipeline) loadPoints(ctx context.Context, src source.Source, name string) (pcd.PointCloud, points.Stats, error) {
	data, err := src.ReadDocument(ctx, name)
	if err != nil {
		return nil, points.Stats{}, err
	}
	batches, err := points.ReadParquet(ctx, data, p.cfg.GetParquetBatchSize())
	if err != nil {
		return nil, points.Stats{}, err
	}
	defer points.ReleaseAll(batches)
	return p.decoder.Decode(batches)
}

// claim marks a load path as started so it cannot run twice.
func (p *Pipeline) claim(flag *bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if *flag {
		return ErrAlreadyLoaded
	}
	*flag = true
	return nil
}

// Merge transforms the loaded points into a render buffer.
//
// It returns (nil, false, nil) while either slot is still empty and on every
// call after a merge that succeeded. A failed load or a failed merge is
// terminal: its error is returned on this and every later call.
func (p *Pipeline) Merge() (*pcd.RenderBuffer, bool, error) {
	p.mu.Lock()
	if p.consumed {
		err := p.mergeErr
		p.mu.Unlock()
		return nil, false, err
	}
	if p.posesErr != nil {
		err := p.posesErr
		p.mu.Unlock()
		return nil, false, err
	}
	if p.pointsErr != nil {
		err := p.pointsErr
		p.mu.Unlock()
		return nil, false, err
	}
	if !p.posesReady || !p.pointsReady {
		p.mu.Unlock()
		return nil, false, nil
	}
	transforms, cloud := p.transforms, p.cloud
	p.transforms, p.cloud = nil, nil
	p.consumed = true
	clock := p.clock
	p.mu.Unlock()

	start := clock.Now()
	buf, err := merge.Apply(transforms, cloud)
	if err != nil {
		pcd.Opsf("merge failed: %v", err)
		p.mu.Lock()
		p.mergeErr = err
		p.mu.Unlock()
		return nil, false, err
	}
	elapsed := clock.Since(start)
	p.mu.Lock()
	p.stats.MergeElapsed = elapsed
	p.mu.Unlock()
	pcd.Diagf("merged %d points in %v", buf.Len(), elapsed)
	return buf, true, nil
}

// Run loads both documents concurrently and merges them.
func (p *Pipeline) Run(ctx context.Context, src source.Source, posesName, pointsName string) (*pcd.RenderBuffer, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.LoadPoses(gctx, src, posesName) })
	g.Go(func() error { return p.LoadPoints(gctx, src, pointsName) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	buf, ok, err := p.Merge()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run: %w", ErrConsumed)
	}
	return buf, nil
}

// Stats returns the counts gathered by the load paths so far.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Markers returns the node marker spheres built when the poses loaded.
func (p *Pipeline) Markers() []merge.Marker {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.markers
}
