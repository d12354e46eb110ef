package points

import (
	"fmt"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/banshee-data/pcdview/internal/pcd"
)

// Stats summarises one decode.
type Stats struct {
	Batches int
	Rows    int64 // rows read across all batches
	Kept    int   // rows that became points
	Dropped int   // rows removed by the zero-axis filter
	Nodes   int   // distinct node ids among kept rows
}

// Decoder turns Arrow record batches into a PointCloud.
type Decoder struct {
	cols Columns
}

// NewDecoder returns a decoder that locates columns by the given names.
func NewDecoder(cols Columns) *Decoder {
	return &Decoder{cols: cols}
}

// stringColumn is satisfied by *array.String and *array.LargeString.
type stringColumn interface {
	IsNull(i int) bool
	Value(i int) string
}

// intColumn reads one colour channel at its source width.
type intColumn struct {
	name string
	arr  arrow.Array
	at   func(i int) int64
}

type boundBatch struct {
	rows    int
	ids     stringColumn
	x, y, z *array.Float32
	r, g, b intColumn
}

// Decode reads every batch in order and returns the surviving points.
//
// A row is dropped when any of x, y or z is exactly 0.0 (or null). This is
// an exact comparison, not a tolerance: points lying exactly on a local
// coordinate plane are discarded too.
//
// Colour values are validated before the filter, so an out-of-range colour
// fails the decode even on a row that would have been dropped.
func (d *Decoder) Decode(batches []arrow.Record) (pcd.PointCloud, Stats, error) {
	var st Stats
	st.Batches = len(batches)
	for _, rec := range batches {
		st.Rows += rec.NumRows()
	}

	cloud := make(pcd.PointCloud, 0, st.Rows)
	intern := make(map[string]string)

	for bi, rec := range batches {
		bb, err := d.bind(bi, rec)
		if err != nil {
			return nil, Stats{}, err
		}

		before := len(cloud)
		for i := 0; i < bb.rows; i++ {
			r, err := narrowColor(bb.r, bi, i)
			if err != nil {
				return nil, Stats{}, err
			}
			g, err := narrowColor(bb.g, bi, i)
			if err != nil {
				return nil, Stats{}, err
			}
			b, err := narrowColor(bb.b, bi, i)
			if err != nil {
				return nil, Stats{}, err
			}
			if bb.ids.IsNull(i) {
				return nil, Stats{}, &pcd.SchemaError{Column: d.cols.NodeID, Batch: bi, Row: i, Reason: "null node id"}
			}

			x, okX := coord(bb.x, i)
			y, okY := coord(bb.y, i)
			z, okZ := coord(bb.z, i)
			if !okX || !okY || !okZ {
				st.Dropped++
				continue
			}

			raw := bb.ids.Value(i)
			id, ok := intern[raw]
			if !ok {
				id = strings.Clone(raw)
				intern[id] = id
			}
			cloud = append(cloud, pcd.RawPoint{NodeID: id, X: x, Y: y, Z: z, R: r, G: g, B: b})
		}
		pcd.Tracef("batch %d: %d rows, %d kept", bi, bb.rows, len(cloud)-before)
	}

	st.Kept = len(cloud)
	st.Nodes = len(intern)
	pcd.Diagf("decoded %d batches: %d rows, %d points kept, %d dropped, %d nodes",
		st.Batches, st.Rows, st.Kept, st.Dropped, st.Nodes)
	return cloud, st, nil
}

// coord returns the value and whether it survives the zero-axis filter.
func coord(a *array.Float32, i int) (float32, bool) {
	if a.IsNull(i) {
		return 0, false
	}
	v := a.Value(i)
	return v, v != 0
}

// narrowColor converts a colour value to uint8, failing rather than
// clamping or wrapping.
func narrowColor(c intColumn, batch, row int) (uint8, error) {
	if c.arr.IsNull(row) {
		return 0, &pcd.SchemaError{Column: c.name, Batch: batch, Row: row, Reason: "null colour value"}
	}
	v := c.at(row)
	if v < 0 || v > math.MaxUint8 {
		return 0, &pcd.ColorRangeError{Column: c.name, Batch: batch, Row: row, Value: v}
	}
	return uint8(v), nil
}

func (d *Decoder) bind(bi int, rec arrow.Record) (boundBatch, error) {
	bb := boundBatch{rows: int(rec.NumRows())}

	col := func(name string) (arrow.Array, error) {
		idx := rec.Schema().FieldIndices(name)
		if len(idx) == 0 {
			return nil, &pcd.SchemaError{Column: name, Batch: bi, Row: -1, Reason: "missing"}
		}
		return rec.Column(idx[0]), nil
	}

	ids, err := col(d.cols.NodeID)
	if err != nil {
		return bb, err
	}
	switch a := ids.(type) {
	case *array.String:
		bb.ids = a
	case *array.LargeString:
		bb.ids = a
	default:
		return bb, &pcd.SchemaError{Column: d.cols.NodeID, Batch: bi, Row: -1,
			Reason: fmt.Sprintf("type %s, want string", ids.DataType())}
	}

	for _, f := range []struct {
		name string
		dst  **array.Float32
	}{{d.cols.X, &bb.x}, {d.cols.Y, &bb.y}, {d.cols.Z, &bb.z}} {
		a, err := col(f.name)
		if err != nil {
			return bb, err
		}
		fa, ok := a.(*array.Float32)
		if !ok {
			return bb, &pcd.SchemaError{Column: f.name, Batch: bi, Row: -1,
				Reason: fmt.Sprintf("type %s, want float32", a.DataType())}
		}
		*f.dst = fa
	}

	for _, f := range []struct {
		name string
		dst  *intColumn
	}{{d.cols.R, &bb.r}, {d.cols.G, &bb.g}, {d.cols.B, &bb.b}} {
		a, err := col(f.name)
		if err != nil {
			return bb, err
		}
		at, ok := intAccessor(a)
		if !ok {
			return bb, &pcd.SchemaError{Column: f.name, Batch: bi, Row: -1,
				Reason: fmt.Sprintf("type %s, want integer", a.DataType())}
		}
		*f.dst = intColumn{name: f.name, arr: a, at: at}
	}
	return bb, nil
}

// intAccessor widens any Arrow integer array to int64. Unsigned 64-bit
// values beyond int64 saturate, which keeps them out of the colour range.
func intAccessor(a arrow.Array) (func(int) int64, bool) {
	switch a := a.(type) {
	case *array.Int8:
		return func(i int) int64 { return int64(a.Value(i)) }, true
	case *array.Int16:
		return func(i int) int64 { return int64(a.Value(i)) }, true
	case *array.Int32:
		return func(i int) int64 { return int64(a.Value(i)) }, true
	case *array.Int64:
		return a.Value, true
	case *array.Uint8:
		return func(i int) int64 { return int64(a.Value(i)) }, true
	case *array.Uint16:
		return func(i int) int64 { return int64(a.Value(i)) }, true
	case *array.Uint32:
		return func(i int) int64 { return int64(a.Value(i)) }, true
	case *array.Uint64:
		return func(i int) int64 {
			v := a.Value(i)
			if v > math.MaxInt64 {
				return math.MaxInt64
			}
			return int64(v)
		}, true
	}
	return nil, false
}
