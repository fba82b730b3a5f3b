package engine

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

const batchSize = 64 * 1024

type kind int

const (
	kindFloat kind = iota
	kindInt
	kindString
)

// column is the engine-neutral form parquet data moves through between
// arrow buffers and the dataframe libraries.
type column struct {
	name    string
	kind    kind
	floats  []float64
	ints    []int64
	strings []string
}

// readParquetColumns reads a whole parquet file into flat columns.
// Float nulls come back as NaN, int nulls as zero; the operations never
// aggregate a nullable column, so neither placeholder skews a result.
func readParquetColumns(ctx context.Context, path string) ([]column, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rdr, err := file.NewParquetReader(f)
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	defer rdr.Close()

	arrRdr, err := pqarrow.NewFileReader(rdr,
		pqarrow.ArrowReadProperties{BatchSize: batchSize},
		memory.DefaultAllocator,
	)
	if err != nil {
		return nil, fmt.Errorf("arrow reader %s: %w", path, err)
	}

	tbl, err := arrRdr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	defer tbl.Release()

	cols := make([]column, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		cols[i] = decodeChunked(tbl.Schema().Field(i).Name, tbl.Column(i).Data())
	}

	return cols, nil
}

func decodeChunked(name string, chunked *arrow.Chunked) column {
	total := chunked.Len()

	switch chunked.DataType().ID() {
	case arrow.FLOAT64:
		vals := make([]float64, 0, total)
		for _, chunk := range chunked.Chunks() {
			a := chunk.(*array.Float64)
			for i := 0; i < a.Len(); i++ {
				if a.IsNull(i) {
					vals = append(vals, math.NaN())
					continue
				}
				vals = append(vals, a.Value(i))
			}
		}

		return column{name: name, kind: kindFloat, floats: vals}

	case arrow.INT64:
		vals := make([]int64, 0, total)
		for _, chunk := range chunked.Chunks() {
			a := chunk.(*array.Int64)
			for i := 0; i < a.Len(); i++ {
				vals = append(vals, a.Value(i))
			}
		}

		return column{name: name, kind: kindInt, ints: vals}

	case arrow.INT32:
		vals := make([]int64, 0, total)
		for _, chunk := range chunked.Chunks() {
			a := chunk.(*array.Int32)
			for i := 0; i < a.Len(); i++ {
				vals = append(vals, int64(a.Value(i)))
			}
		}

		return column{name: name, kind: kindInt, ints: vals}

	default:
		vals := make([]string, 0, total)
		for _, chunk := range chunked.Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				if chunk.IsNull(i) {
					vals = append(vals, "")
					continue
				}
				vals = append(vals, chunk.ValueStr(i))
			}
		}

		return column{name: name, kind: kindString, strings: vals}
	}
}

// writeParquetColumns writes flat columns as a snappy-compressed
// parquet file. NaN floats become nulls, the representation the
// dataframe libraries use for missing scores.
func writeParquetColumns(path string, cols []column) error {
	if len(cols) == 0 {
		return fmt.Errorf("write parquet %s: no columns", path)
	}

	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		var dt arrow.DataType

		switch c.kind {
		case kindFloat:
			dt = arrow.PrimitiveTypes.Float64
		case kindInt:
			dt = arrow.PrimitiveTypes.Int64
		default:
			dt = arrow.BinaryTypes.String
		}

		fields[i] = arrow.Field{Name: c.name, Type: dt, Nullable: true}
	}

	schema := arrow.NewSchema(fields, nil)

	bld := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bld.Release()

	for i, c := range cols {
		switch c.kind {
		case kindFloat:
			fb := bld.Field(i).(*array.Float64Builder)
			for _, v := range c.floats {
				if math.IsNaN(v) {
					fb.AppendNull()
					continue
				}
				fb.Append(v)
			}
		case kindInt:
			bld.Field(i).(*array.Int64Builder).AppendValues(c.ints, nil)
		default:
			bld.Field(i).(*array.StringBuilder).AppendValues(c.strings, nil)
		}
	}

	rec := bld.NewRecord()
	defer rec.Release()

	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))

	if err := pqarrow.WriteTable(tbl, f, batchSize, props, pqarrow.DefaultWriterProps()); err != nil {
		f.Close()

		return fmt.Errorf("write parquet %s: %w", path, err)
	}

	return f.Close()
}
