// Package points decodes columnar point documents into a PointCloud.
package points

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Columns names the seven required columns of a point document.
type Columns struct {
	NodeID string
	X      string
	Y      string
	Z      string
	R      string
	G      string
	B      string
}

// DefaultColumns returns the column names written by the survey exporter.
func DefaultColumns() Columns {
	return Columns{
		NodeID: "node_uuid",
		X:      "point_x",
		Y:      "point_y",
		Z:      "point_z",
		R:      "r",
		G:      "g",
		B:      "b",
	}
}

// Names returns the column names in schema order.
func (c Columns) Names() []string {
	return []string{c.NodeID, c.X, c.Y, c.Z, c.R, c.G, c.B}
}

// Validate checks that every name is set and no two columns share a name.
func (c Columns) Validate() error {
	seen := make(map[string]bool, 7)
	for _, n := range c.Names() {
		if n == "" {
			return fmt.Errorf("column name must not be empty")
		}
		if seen[n] {
			return fmt.Errorf("column %q is mapped twice", n)
		}
		seen[n] = true
	}
	return nil
}

// Schema returns the Arrow schema that WriteParquet produces: a string node
// id, float32 coordinates and int32 colour channels.
func (c Columns) Schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: c.NodeID, Type: arrow.BinaryTypes.String},
		{Name: c.X, Type: arrow.PrimitiveTypes.Float32},
		{Name: c.Y, Type: arrow.PrimitiveTypes.Float32},
		{Name: c.Z, Type: arrow.PrimitiveTypes.Float32},
		{Name: c.R, Type: arrow.PrimitiveTypes.Int32},
		{Name: c.G, Type: arrow.PrimitiveTypes.Int32},
		{Name: c.B, Type: arrow.PrimitiveTypes.Int32},
	}, nil)
}
