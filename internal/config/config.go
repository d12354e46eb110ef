package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/pcdview/internal/pcd/merge"
	"github.com/banshee-data/pcdview/internal/pcd/points"
	"github.com/banshee-data/pcdview/internal/pcd/source"
)

// PipelineConfig holds the load and preview settings. Every field is
// optional; the Get* methods supply defaults for fields left unset, so a
// partial JSON file is safe.
type PipelineConfig struct {
	// Point document column names
	NodeIDColumn *string `json:"node_id_column,omitempty"`
	XColumn      *string `json:"x_column,omitempty"`
	YColumn      *string `json:"y_column,omitempty"`
	ZColumn      *string `json:"z_column,omitempty"`
	RColumn      *string `json:"r_column,omitempty"`
	GColumn      *string `json:"g_column,omitempty"`
	BColumn      *string `json:"b_column,omitempty"`

	// Reading
	ParquetBatchSize *int   `json:"parquet_batch_size,omitempty"`
	MaxDocumentBytes *int64 `json:"max_document_bytes,omitempty"`

	// Node markers
	MarkerRadius   *float64 `json:"marker_radius,omitempty"`
	MarkerRings    *int     `json:"marker_rings,omitempty"`
	MarkerSegments *int     `json:"marker_segments,omitempty"`

	// Preview output
	PreviewMaxPoints *int     `json:"preview_max_points,omitempty"`
	PreviewSizeCm    *float64 `json:"preview_size_cm,omitempty"`
}

// EmptyConfig returns a PipelineConfig with all fields unset.
func EmptyConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadConfig loads a PipelineConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *PipelineConfig) Validate() error {
	if err := c.Columns().Validate(); err != nil {
		return fmt.Errorf("columns: %w", err)
	}

	if c.ParquetBatchSize != nil && *c.ParquetBatchSize <= 0 {
		return fmt.Errorf("parquet_batch_size must be positive, got %d", *c.ParquetBatchSize)
	}
	if c.MaxDocumentBytes != nil && *c.MaxDocumentBytes <= 0 {
		return fmt.Errorf("max_document_bytes must be positive, got %d", *c.MaxDocumentBytes)
	}

	if c.MarkerRadius != nil && *c.MarkerRadius <= 0 {
		return fmt.Errorf("marker_radius must be positive, got %f", *c.MarkerRadius)
	}
	if c.MarkerRings != nil && *c.MarkerRings < 2 {
		return fmt.Errorf("marker_rings must be at least 2, got %d", *c.MarkerRings)
	}
	if c.MarkerSegments != nil && *c.MarkerSegments < 3 {
		return fmt.Errorf("marker_segments must be at least 3, got %d", *c.MarkerSegments)
	}

	if c.PreviewMaxPoints != nil && *c.PreviewMaxPoints <= 0 {
		return fmt.Errorf("preview_max_points must be positive, got %d", *c.PreviewMaxPoints)
	}
	if c.PreviewSizeCm != nil && *c.PreviewSizeCm <= 0 {
		return fmt.Errorf("preview_size_cm must be positive, got %f", *c.PreviewSizeCm)
	}

	return nil
}

// Columns returns the point document column names, falling back to
// points.DefaultColumns for any name left unset.
func (c *PipelineConfig) Columns() points.Columns {
	cols := points.DefaultColumns()
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cols.NodeID, c.NodeIDColumn)
	set(&cols.X, c.XColumn)
	set(&cols.Y, c.YColumn)
	set(&cols.Z, c.ZColumn)
	set(&cols.R, c.RColumn)
	set(&cols.G, c.GColumn)
	set(&cols.B, c.BColumn)
	return cols
}

// GetParquetBatchSize returns the parquet_batch_size value or the default.
func (c *PipelineConfig) GetParquetBatchSize() int {
	if c.ParquetBatchSize == nil {
		return points.DefaultBatchSize
	}
	return *c.ParquetBatchSize
}

// GetMaxDocumentBytes returns the max_document_bytes value or the default.
func (c *PipelineConfig) GetMaxDocumentBytes() int64 {
	if c.MaxDocumentBytes == nil {
		return source.DefaultMaxBytes
	}
	return *c.MaxDocumentBytes
}

// Sphere returns the node marker shape.
func (c *PipelineConfig) Sphere() merge.SphereSpec {
	s := merge.DefaultSphere()
	if c.MarkerRadius != nil {
		s.Radius = float32(*c.MarkerRadius)
	}
	if c.MarkerRings != nil {
		s.Rings = *c.MarkerRings
	}
	if c.MarkerSegments != nil {
		s.Segments = *c.MarkerSegments
	}
	return s
}

// GetPreviewMaxPoints returns the preview_max_points value or the default.
func (c *PipelineConfig) GetPreviewMaxPoints() int {
	if c.PreviewMaxPoints == nil {
		return 8000
	}
	return *c.PreviewMaxPoints
}

// GetPreviewSizeCm returns the preview_size_cm value or the default.
func (c *PipelineConfig) GetPreviewSizeCm() float64 {
	if c.PreviewSizeCm == nil {
		return 20
	}
	return *c.PreviewSizeCm
}
