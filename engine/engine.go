// Package engine holds the benchmark's strategy table: every ETL
// operation implemented once per dataframe engine.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2" // registers the duckdb driver

	"github.com/etlbench/etlbench/dataset"
	"github.com/etlbench/etlbench/harness"
)

// Engines returns the engines under comparison.
func Engines() []string {
	return []string{"duckdb", "gota", "gorilla"}
}

// Operations returns the benchmarked ETL operations in execution order.
func Operations() []string {
	return []string{
		"read_csv", "read_parquet", "filter", "join", "agg",
		"write_csv", "write_parquet",
	}
}

// OpFunc runs one operation against a scenario's dataset and returns
// the outcome the trial runner materializes and releases.
type OpFunc func(ctx context.Context, ds dataset.Dataset) (harness.Outcome, error)

type key struct {
	engine    string
	operation string
}

// Registry is the (engine, operation) strategy table. It owns the
// shared duckdb handle the SQL strategies run on.
type Registry struct {
	db  *sql.DB
	ops map[key]OpFunc
}

// NewRegistry opens the in-memory duckdb database, registers every
// strategy and verifies the table covers the full engines × operations
// cross-product. An incomplete table is a bug caught here, before any
// trial runs.
func NewRegistry() (*Registry, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	r := &Registry{db: db, ops: make(map[key]OpFunc)}

	d := &duckdbOps{db: db}
	r.add("duckdb", map[string]OpFunc{
		"read_csv":      d.readCSV,
		"read_parquet":  d.readParquet,
		"filter":        d.filter,
		"join":          d.join,
		"agg":           d.agg,
		"write_csv":     d.writeCSV,
		"write_parquet": d.writeParquet,
	})

	r.add("gota", map[string]OpFunc{
		"read_csv":      gotaReadCSV,
		"read_parquet":  gotaReadParquet,
		"filter":        gotaFilter,
		"join":          gotaJoin,
		"agg":           gotaAgg,
		"write_csv":     gotaWriteCSV,
		"write_parquet": gotaWriteParquet,
	})

	r.add("gorilla", map[string]OpFunc{
		"read_csv":      gorillaReadCSV,
		"read_parquet":  gorillaReadParquet,
		"filter":        gorillaFilter,
		"join":          gorillaJoin,
		"agg":           gorillaAgg,
		"write_csv":     gorillaWriteCSV,
		"write_parquet": gorillaWriteParquet,
	})

	if err := r.validate(); err != nil {
		db.Close()

		return nil, err
	}

	return r, nil
}

func (r *Registry) add(engine string, ops map[string]OpFunc) {
	for operation, fn := range ops {
		r.ops[key{engine: engine, operation: operation}] = fn
	}
}

func (r *Registry) validate() error {
	for _, engine := range Engines() {
		for _, operation := range Operations() {
			if _, ok := r.ops[key{engine: engine, operation: operation}]; !ok {
				return fmt.Errorf("strategy table missing %s/%s", engine, operation)
			}
		}
	}

	want := len(Engines()) * len(Operations())
	if len(r.ops) != want {
		return fmt.Errorf("strategy table has %d entries, want %d", len(r.ops), want)
	}

	return nil
}

// Lookup returns the strategy for one (engine, operation) pair.
func (r *Registry) Lookup(engine, operation string) (OpFunc, error) {
	fn, ok := r.ops[key{engine: engine, operation: operation}]
	if !ok {
		return nil, fmt.Errorf("no strategy for %s/%s", engine, operation)
	}

	return fn, nil
}

// Close releases the shared database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}
