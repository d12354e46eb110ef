package points

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/banshee-data/pcdview/internal/pcd"
)

// DefaultBatchSize is the number of rows per record batch read from Parquet.
const DefaultBatchSize = 10000

// ReadParquet reads a Parquet document into Arrow record batches, in file
// order. The caller owns the returned records and must ReleaseAll them.
func ReadParquet(ctx context.Context, data []byte, batchSize int) ([]arrow.Record, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open parquet: %w", pcd.ErrFormat, err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: int64(batchSize)}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("%w: parquet schema: %w", pcd.ErrFormat, err)
	}

	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: parquet record reader: %w", pcd.ErrFormat, err)
	}
	defer rr.Release()

	batches := make([]arrow.Record, 0, pf.NumRows()/int64(batchSize)+1)
	for rr.Next() {
		rec := rr.Record()
		rec.Retain()
		batches = append(batches, rec)
	}
	if err := rr.Err(); err != nil && !errors.Is(err, io.EOF) {
		ReleaseAll(batches)
		return nil, fmt.Errorf("%w: reading parquet rows: %w", pcd.ErrFormat, err)
	}

	pcd.Diagf("read parquet: %d rows in %d row groups, %d batches", pf.NumRows(), pf.NumRowGroups(), len(batches))
	return batches, nil
}

// ReleaseAll releases every record in batches.
func ReleaseAll(batches []arrow.Record) {
	for _, rec := range batches {
		if rec != nil {
			rec.Release()
		}
	}
}

// BuildRecord builds a single record batch from cloud using the schema of cols.
func BuildRecord(cols Columns, cloud pcd.PointCloud) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, cols.Schema())
	defer b.Release()

	ids := b.Field(0).(*array.StringBuilder)
	xs := b.Field(1).(*array.Float32Builder)
	ys := b.Field(2).(*array.Float32Builder)
	zs := b.Field(3).(*array.Float32Builder)
	rs := b.Field(4).(*array.Int32Builder)
	gs := b.Field(5).(*array.Int32Builder)
	bs := b.Field(6).(*array.Int32Builder)

	n := len(cloud)
	ids.Reserve(n)
	xs.Reserve(n)
	ys.Reserve(n)
	zs.Reserve(n)
	rs.Reserve(n)
	gs.Reserve(n)
	bs.Reserve(n)
	for _, p := range cloud {
		ids.Append(p.NodeID)
		xs.Append(p.X)
		ys.Append(p.Y)
		zs.Append(p.Z)
		rs.Append(int32(p.R))
		gs.Append(int32(p.G))
		bs.Append(int32(p.B))
	}
	return b.NewRecord()
}

// sink hides any Close method of the caller's writer; pqarrow closes sinks
// that implement io.Closer.
type sink struct{ w io.Writer }

func (s sink) Write(p []byte) (int, error) { return s.w.Write(p) }

// WriteParquet writes cloud as a snappy-compressed Parquet document with one
// row group per rowsPerGroup points. The caller owns w: it is never closed.
func WriteParquet(w io.Writer, cols Columns, cloud pcd.PointCloud, rowsPerGroup int) error {
	if rowsPerGroup <= 0 {
		rowsPerGroup = DefaultBatchSize
	}
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	fw, err := pqarrow.NewFileWriter(cols.Schema(), sink{w: w}, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}

	for start := 0; start < len(cloud); start += rowsPerGroup {
		end := min(start+rowsPerGroup, len(cloud))
		rec := BuildRecord(cols, cloud[start:end])
		err := fw.Write(rec)
		rec.Release()
		if err != nil {
			fw.Close()
			return fmt.Errorf("write parquet rows %d-%d: %w", start, end, err)
		}
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
