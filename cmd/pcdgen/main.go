// Command pcdgen writes a synthetic survey: a pose document with nodes at
// UTM-scale coordinates and a snappy-compressed Parquet point document.
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/banshee-data/pcdview/internal/pcd"
	"github.com/banshee-data/pcdview/internal/pcd/points"
	"github.com/banshee-data/pcdview/internal/pcd/pose"
)

// params controls the generated survey.
type params struct {
	Nodes         int
	PointsPerNode int
	Easting       float64
	Northing      float64
	Spacing       float64
	Extent        float64
	ZeroFraction  float64
	Seed          uint64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var p params
	var outDir string
	var rowGroup int

	fs := flag.NewFlagSet("pcdgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&outDir, "out", ".", "Output directory")
	fs.IntVar(&p.Nodes, "nodes", 8, "Number of survey nodes")
	fs.IntVar(&p.PointsPerNode, "points-per-node", 5000, "Points captured at each node")
	fs.Float64Var(&p.Easting, "easting", 500000, "Easting of the first node (m)")
	fs.Float64Var(&p.Northing, "northing", 4100000, "Northing of the first node (m)")
	fs.Float64Var(&p.Spacing, "spacing", 12, "Distance between consecutive nodes (m)")
	fs.Float64Var(&p.Extent, "extent", 6, "Half-width of each node's local point cube (m)")
	fs.Float64Var(&p.ZeroFraction, "zero-fraction", 0.01, "Fraction of points placed on a local zero plane")
	fs.Uint64Var(&p.Seed, "seed", 1, "Random seed")
	fs.IntVar(&rowGroup, "row-group", 10000, "Parquet rows per row group")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if p.Nodes <= 0 || p.PointsPerNode < 0 || rowGroup <= 0 {
		fmt.Fprintln(stderr, "pcdgen: -nodes and -row-group must be positive, -points-per-node non-negative")
		return 2
	}

	poses, cloud := generate(p)
	posesPath, pointsPath, err := writeSurvey(outDir, poses, cloud, rowGroup)
	if err != nil {
		fmt.Fprintf(stderr, "pcdgen: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %d poses to %s\n", len(poses), posesPath)
	fmt.Fprintf(stdout, "wrote %d points to %s\n", len(cloud), pointsPath)
	return 0
}

// nodeID derives a stable UUID for the i-th node.
func nodeID(seed uint64, i int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("pcdgen/%d/%d", seed, i))).String()
}

// generate lays nodes out along a gentle arc, each yawed a little further
// than the last, and scatters points in a cube around each node.
func generate(p params) ([]pcd.RawPose, pcd.PointCloud) {
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))

	poses := make([]pcd.RawPose, p.Nodes)
	for i := range poses {
		yaw := float64(i) * math.Pi / 12
		c, s := math.Cos(yaw), math.Sin(yaw)
		tx := p.Easting + p.Spacing*float64(i)
		ty := p.Northing + p.Spacing*0.25*float64(i*i)/float64(p.Nodes)
		tz := 10 + 0.5*float64(i)
		poses[i] = pcd.RawPose{
			NodeID: nodeID(p.Seed, i),
			Entries: [16]float64{
				c, -s, 0, tx,
				s, c, 0, ty,
				0, 0, 1, tz,
				0, 0, 0, 1,
			},
		}
	}

	cloud := make(pcd.PointCloud, 0, p.Nodes*p.PointsPerNode)
	for _, ps := range poses {
		for range p.PointsPerNode {
			x := float32((rng.Float64()*2 - 1) * p.Extent)
			y := float32((rng.Float64()*2 - 1) * p.Extent)
			z := float32(rng.Float64() * p.Extent)
			if rng.Float64() < p.ZeroFraction {
				switch rng.IntN(3) {
				case 0:
					x = 0
				case 1:
					y = 0
				default:
					z = 0
				}
			}
			shade := uint8(55 + 200*float64(z)/math.Max(p.Extent, 1e-9))
			cloud = append(cloud, pcd.RawPoint{
				NodeID: ps.NodeID,
				X:      x,
				Y:      y,
				Z:      z,
				R:      shade,
				G:      uint8(rng.IntN(256)),
				B:      255 - shade,
			})
		}
	}
	return poses, cloud
}

func writeSurvey(dir string, poses []pcd.RawPose, cloud pcd.PointCloud, rowGroup int) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output directory: %w", err)
	}

	posesPath := filepath.Join(dir, "poses.json")
	pf, err := os.Create(posesPath)
	if err != nil {
		return "", "", fmt.Errorf("create %s: %w", posesPath, err)
	}
	if err := pose.Encode(pf, poses); err != nil {
		pf.Close()
		return "", "", err
	}
	if err := pf.Close(); err != nil {
		return "", "", err
	}

	pointsPath := filepath.Join(dir, "points.parquet")
	qf, err := os.Create(pointsPath)
	if err != nil {
		return "", "", fmt.Errorf("create %s: %w", pointsPath, err)
	}
	if err := points.WriteParquet(qf, points.DefaultColumns(), cloud, rowGroup); err != nil {
		qf.Close()
		return "", "", err
	}
	if err := qf.Close(); err != nil {
		return "", "", err
	}
	return posesPath, pointsPath, nil
}
