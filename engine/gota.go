package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/etlbench/etlbench/dataset"
	"github.com/etlbench/etlbench/harness"
)

// gota computes eagerly, so every strategy here returns an Eager
// outcome and leaves the frame to the collector.

func gotaFrame(ds dataset.Dataset) (dataframe.DataFrame, error) {
	rc, err := ds.OpenCSV()
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer rc.Close()

	df := dataframe.ReadCSV(rc,
		dataframe.WithDelimiter(dataset.Delimiter),
		dataframe.HasHeader(true),
	)
	if df.Err != nil {
		return df, fmt.Errorf("read %s: %w", ds.CSVPath, df.Err)
	}

	return df, nil
}

func gotaReadCSV(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	df, err := gotaFrame(ds)
	if err != nil {
		return nil, err
	}

	return &harness.Eager{Rows: int64(df.Nrow())}, nil
}

func gotaReadParquet(ctx context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	cols, err := readParquetColumns(ctx, ds.ParquetPath)
	if err != nil {
		return nil, err
	}

	df := gotaFromColumns(cols)
	if df.Err != nil {
		return nil, fmt.Errorf("read %s: %w", ds.ParquetPath, df.Err)
	}

	return &harness.Eager{Rows: int64(df.Nrow())}, nil
}

func gotaFilter(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	df, err := gotaFrame(ds)
	if err != nil {
		return nil, err
	}

	out := df.Filter(dataframe.F{
		Colname:    "NU_NOTA_MT",
		Comparator: series.Greater,
		Comparando: 600.0,
	})
	if out.Err != nil {
		return nil, fmt.Errorf("filter: %w", out.Err)
	}

	return &harness.Eager{Rows: int64(out.Nrow())}, nil
}

func gotaJoin(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	dados, err := gotaFrame(ds)
	if err != nil {
		return nil, err
	}

	itens, err := gotaItems(ds)
	if err != nil {
		return nil, err
	}

	joined := dados.InnerJoin(itens, "CO_PROVA_MT")
	if joined.Err != nil {
		return nil, fmt.Errorf("join: %w", joined.Err)
	}

	return &harness.Eager{Rows: int64(joined.Nrow())}, nil
}

func gotaAgg(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	df, err := gotaFrame(ds)
	if err != nil {
		return nil, err
	}

	grouped := df.GroupBy("CO_UF_ESC")
	if grouped.Err != nil {
		return nil, fmt.Errorf("group: %w", grouped.Err)
	}

	out := grouped.Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_MEAN},
		[]string{"NU_NOTA_MT"},
	)
	if out.Err != nil {
		return nil, fmt.Errorf("aggregate: %w", out.Err)
	}

	return &harness.Eager{Rows: int64(out.Nrow())}, nil
}

func gotaWriteCSV(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	df, err := gotaFrame(ds)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(ds.OutputCSV())
	if err != nil {
		return nil, err
	}

	if err := df.WriteCSV(f); err != nil {
		f.Close()

		return nil, fmt.Errorf("write %s: %w", ds.OutputCSV(), err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	return &harness.Eager{Rows: int64(df.Nrow())}, nil
}

func gotaWriteParquet(_ context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	df, err := gotaFrame(ds)
	if err != nil {
		return nil, err
	}

	if err := writeParquetColumns(ds.OutputParquet(), gotaColumns(df)); err != nil {
		return nil, err
	}

	return &harness.Eager{Rows: int64(df.Nrow())}, nil
}

// gotaItems loads the booklet lookup reduced to its distinct
// (CO_PROVA, SG_AREA) pairs, renamed so the join key matches the main
// data.
func gotaItems(ds dataset.Dataset) (dataframe.DataFrame, error) {
	rc, err := ds.OpenItems()
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer rc.Close()

	itens := dataframe.ReadCSV(rc,
		dataframe.WithDelimiter(dataset.Delimiter),
		dataframe.HasHeader(true),
	)
	if itens.Err != nil {
		return itens, fmt.Errorf("read %s: %w", ds.ItemsPath, itens.Err)
	}

	sub := itens.Select([]string{"CO_PROVA", "SG_AREA"})
	if sub.Err != nil {
		return sub, fmt.Errorf("select item columns: %w", sub.Err)
	}

	records := sub.Records()
	seen := make(map[string]struct{}, len(records))

	uniq := make([][]string, 0, len(records))
	uniq = append(uniq, records[0])

	for _, rec := range records[1:] {
		k := rec[0] + "\x00" + rec[1]
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, rec)
	}

	lookup := dataframe.LoadRecords(uniq)
	if lookup.Err != nil {
		return lookup, fmt.Errorf("load distinct items: %w", lookup.Err)
	}

	lookup = lookup.Rename("CO_PROVA_MT", "CO_PROVA")
	if lookup.Err != nil {
		return lookup, fmt.Errorf("rename join key: %w", lookup.Err)
	}

	return lookup, nil
}

// gotaFromColumns assembles a typed frame from decoded parquet columns.
func gotaFromColumns(cols []column) dataframe.DataFrame {
	ss := make([]series.Series, 0, len(cols))

	for _, c := range cols {
		switch c.kind {
		case kindFloat:
			ss = append(ss, series.New(c.floats, series.Float, c.name))
		case kindInt:
			ints := make([]int, len(c.ints))
			for i, v := range c.ints {
				ints[i] = int(v)
			}
			ss = append(ss, series.New(ints, series.Int, c.name))
		default:
			ss = append(ss, series.New(c.strings, series.String, c.name))
		}
	}

	return dataframe.New(ss...)
}

// gotaColumns converts a frame to the bridge's column form, keeping
// the numeric types the reader detected.
func gotaColumns(df dataframe.DataFrame) []column {
	names := df.Names()
	cols := make([]column, 0, len(names))

	for _, name := range names {
		s := df.Col(name)

		switch s.Type() {
		case series.Float:
			cols = append(cols, column{name: name, kind: kindFloat, floats: s.Float()})
		case series.Int:
			ints, err := s.Int()
			if err != nil {
				cols = append(cols, column{name: name, kind: kindFloat, floats: s.Float()})

				continue
			}

			vals := make([]int64, len(ints))
			for i, v := range ints {
				vals[i] = int64(v)
			}
			cols = append(cols, column{name: name, kind: kindInt, ints: vals})
		default:
			cols = append(cols, column{name: name, kind: kindString, strings: s.Records()})
		}
	}

	return cols
}
