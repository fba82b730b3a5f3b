package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/gorilla"

	"github.com/etlbench/etlbench/dataset"
	"github.com/etlbench/etlbench/harness"
)

// gorilla builds deferred plans for filter and agg, so those strategies
// return Lazy outcomes whose Collect runs the plan; everything else is
// Eager. Frames are arrow-backed and released through the outcome.

// gorillaFrame loads a CSV into typed arrow-backed series. Integral
// columns become int64, numeric columns with blanks or decimals become
// float64 with NaN for blanks, the rest stay strings.
func gorillaFrame(path, encoding string) (*gorilla.DataFrame, error) {
	rc, err := dataset.Open(path, encoding)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	cr.Comma = dataset.Delimiter

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: empty file", path)
	}

	header := records[0]
	rows := records[1:]
	mem := memory.DefaultAllocator

	ss := make([]gorilla.ISeries, len(header))
	for c, name := range header {
		ss[c] = buildSeries(name, rows, c, mem)
	}

	return gorilla.NewDataFrame(ss...), nil
}

func buildSeries(name string, rows [][]string, c int, mem memory.Allocator) gorilla.ISeries {
	switch sniffKind(rows, c) {
	case kindInt:
		vals := make([]int64, len(rows))
		for i, rec := range rows {
			vals[i], _ = strconv.ParseInt(rec[c], 10, 64)
		}

		return gorilla.NewSeries(name, vals, mem)

	case kindFloat:
		vals := make([]float64, len(rows))
		for i, rec := range rows {
			v, err := strconv.ParseFloat(rec[c], 64)
			if rec[c] == "" || err != nil {
				v = math.NaN()
			}
			vals[i] = v
		}

		return gorilla.NewSeries(name, vals, mem)

	default:
		vals := make([]string, len(rows))
		for i, rec := range rows {
			vals[i] = rec[c]
		}

		return gorilla.NewSeries(name, vals, mem)
	}
}

// sniffKind classifies a column from its values. Blanks disqualify int
// (no null representation there) but not float, where they map to NaN.
func sniffKind(rows [][]string, c int) kind {
	sawValue := false
	isInt, isFloat := true, true

	for _, rec := range rows {
		v := rec[c]
		if v == "" {
			isInt = false

			continue
		}
		sawValue = true

		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}
			isInt = false
		}

		if _, err := strconv.ParseFloat(v, 64); err != nil {
			isFloat = false

			break
		}
	}

	switch {
	case !sawValue:
		return kindString
	case isInt:
		return kindInt
	case isFloat:
		return kindFloat
	default:
		return kindString
	}
}

func gorillaReadCSV(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	df, err := gorillaFrame(ds.CSVPath, ds.Encoding)
	if err != nil {
		return nil, err
	}

	return &harness.Eager{Rows: int64(df.Len()), Close: df.Release}, nil
}

func gorillaReadParquet(ctx context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	cols, err := readParquetColumns(ctx, ds.ParquetPath)
	if err != nil {
		return nil, err
	}

	df := gorillaFromColumns(cols)

	return &harness.Eager{Rows: int64(df.Len()), Close: df.Release}, nil
}

func gorillaFilter(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	df, err := gorillaFrame(ds.CSVPath, ds.Encoding)
	if err != nil {
		return nil, err
	}

	lf := df.Lazy().Filter(gorilla.Col("NU_NOTA_MT").Gt(gorilla.Lit(600.0)))

	var out *gorilla.DataFrame

	return &harness.Lazy{
		Collect: func() (int64, error) {
			res, err := lf.Collect()
			if err != nil {
				return 0, err
			}
			out = res

			return int64(res.Len()), nil
		},
		Close: func() {
			if out != nil {
				out.Release()
			}
			lf.Release()
			df.Release()
		},
	}, nil
}

func gorillaJoin(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	df, err := gorillaFrame(ds.CSVPath, ds.Encoding)
	if err != nil {
		return nil, err
	}

	itens, err := gorillaItems(ds)
	if err != nil {
		df.Release()

		return nil, err
	}

	joined, err := df.Join(itens, &gorilla.JoinOptions{
		Type:     gorilla.InnerJoin,
		LeftKey:  "CO_PROVA_MT",
		RightKey: "CO_PROVA",
	})
	if err != nil {
		itens.Release()
		df.Release()

		return nil, fmt.Errorf("join: %w", err)
	}

	return &harness.Eager{
		Rows: int64(joined.Len()),
		Close: func() {
			joined.Release()
			itens.Release()
			df.Release()
		},
	}, nil
}

func gorillaAgg(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	df, err := gorillaFrame(ds.CSVPath, ds.Encoding)
	if err != nil {
		return nil, err
	}

	lf := df.Lazy().
		GroupBy("CO_UF_ESC").
		Agg(gorilla.Mean(gorilla.Col("NU_NOTA_MT")).As("NU_NOTA_MT"))

	var out *gorilla.DataFrame

	return &harness.Lazy{
		Collect: func() (int64, error) {
			res, err := lf.Collect()
			if err != nil {
				return 0, err
			}
			out = res

			return int64(res.Len()), nil
		},
		Close: func() {
			if out != nil {
				out.Release()
			}
			lf.Release()
			df.Release()
		},
	}, nil
}

func gorillaWriteCSV(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	df, err := gorillaFrame(ds.CSVPath, ds.Encoding)
	if err != nil {
		return nil, err
	}

	if err := writeGorillaCSV(df, ds.OutputCSV()); err != nil {
		df.Release()

		return nil, err
	}

	return &harness.Eager{Rows: int64(df.Len()), Close: df.Release}, nil
}

func gorillaWriteParquet(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	df, err := gorillaFrame(ds.CSVPath, ds.Encoding)
	if err != nil {
		return nil, err
	}

	cols, err := gorillaColumns(df)
	if err != nil {
		df.Release()

		return nil, err
	}

	if err := writeParquetColumns(ds.OutputParquet(), cols); err != nil {
		df.Release()

		return nil, err
	}

	return &harness.Eager{Rows: int64(df.Len()), Close: df.Release}, nil
}

// gorillaItems loads the distinct (CO_PROVA, SG_AREA) pairs of the
// booklet lookup as a two-column frame, deduplicating while reading.
func gorillaItems(ds dataset.Dataset) (*gorilla.DataFrame, error) {
	rc, err := ds.OpenItems()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	cr.Comma = dataset.Delimiter

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ds.ItemsPath, err)
	}

	provaIdx, areaIdx := -1, -1
	for i, name := range header {
		switch name {
		case "CO_PROVA":
			provaIdx = i
		case "SG_AREA":
			areaIdx = i
		}
	}
	if provaIdx < 0 || areaIdx < 0 {
		return nil, fmt.Errorf("read %s: missing CO_PROVA or SG_AREA", ds.ItemsPath)
	}

	seen := make(map[string]struct{})

	var provas []int64
	var siglas []string

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", ds.ItemsPath, err)
		}

		k := rec[provaIdx] + "\x00" + rec[areaIdx]
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		prova, err := strconv.ParseInt(rec[provaIdx], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse CO_PROVA %q: %w", rec[provaIdx], err)
		}

		provas = append(provas, prova)
		siglas = append(siglas, rec[areaIdx])
	}

	mem := memory.DefaultAllocator

	return gorilla.NewDataFrame(
		gorilla.NewSeries("CO_PROVA", provas, mem),
		gorilla.NewSeries("SG_AREA", siglas, mem),
	), nil
}

func gorillaFromColumns(cols []column) *gorilla.DataFrame {
	mem := memory.DefaultAllocator

	ss := make([]gorilla.ISeries, len(cols))
	for i, c := range cols {
		switch c.kind {
		case kindFloat:
			ss[i] = gorilla.NewSeries(c.name, c.floats, mem)
		case kindInt:
			ss[i] = gorilla.NewSeries(c.name, c.ints, mem)
		default:
			ss[i] = gorilla.NewSeries(c.name, c.strings, mem)
		}
	}

	return gorilla.NewDataFrame(ss...)
}

func gorillaColumns(df *gorilla.DataFrame) ([]column, error) {
	names := df.Columns()
	cols := make([]column, 0, len(names))

	for _, name := range names {
		s, ok := df.Column(name)
		if !ok {
			return nil, fmt.Errorf("column %s not found", name)
		}

		switch arr := s.Array().(type) {
		case *array.Float64:
			vals := make([]float64, arr.Len())
			for i := range vals {
				if arr.IsNull(i) {
					vals[i] = math.NaN()

					continue
				}
				vals[i] = arr.Value(i)
			}
			cols = append(cols, column{name: name, kind: kindFloat, floats: vals})

		case *array.Int64:
			vals := make([]int64, arr.Len())
			for i := range vals {
				vals[i] = arr.Value(i)
			}
			cols = append(cols, column{name: name, kind: kindInt, ints: vals})

		case *array.String:
			vals := make([]string, arr.Len())
			for i := range vals {
				vals[i] = arr.Value(i)
			}
			cols = append(cols, column{name: name, kind: kindString, strings: vals})

		default:
			vals := make([]string, arr.Len())
			for i := range vals {
				vals[i] = arr.ValueStr(i)
			}
			cols = append(cols, column{name: name, kind: kindString, strings: vals})
		}
	}

	return cols, nil
}

// writeGorillaCSV renders a frame back to comma-separated text, blank
// cells for nulls and NaN.
func writeGorillaCSV(df *gorilla.DataFrame, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)

	names := df.Columns()
	if err := w.Write(names); err != nil {
		f.Close()

		return err
	}

	arrays := make([]arrow.Array, len(names))
	for i, name := range names {
		s, ok := df.Column(name)
		if !ok {
			f.Close()

			return fmt.Errorf("column %s not found", name)
		}
		arrays[i] = s.Array()
	}

	record := make([]string, len(arrays))
	for row := 0; row < df.Len(); row++ {
		for c, arr := range arrays {
			record[c] = cellString(arr, row)
		}
		if err := w.Write(record); err != nil {
			f.Close()

			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

func cellString(arr arrow.Array, i int) string {
	if arr.IsNull(i) {
		return ""
	}

	switch a := arr.(type) {
	case *array.Float64:
		v := a.Value(i)
		if math.IsNaN(v) {
			return ""
		}

		return strconv.FormatFloat(v, 'f', -1, 64)
	case *array.Int64:
		return strconv.FormatInt(a.Value(i), 10)
	case *array.String:
		return a.Value(i)
	default:
		return arr.ValueStr(i)
	}
}
