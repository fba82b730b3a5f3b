package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/etlbench/etlbench/dataset"
	"github.com/etlbench/etlbench/harness"
)

// duckdbOps implements every operation as SQL over one in-memory
// database. Query operations return Lazy outcomes: the cursor drain is
// where rows are actually delivered, and the timed window must cover
// it.
type duckdbOps struct {
	db *sql.DB
}

// scanCSV builds the relation expression for a scenario's main CSV.
// Only the latin-1 extract needs its encoding named; utf-8 sources go
// through detection.
func scanCSV(ds dataset.Dataset) string {
	if ds.Encoding == dataset.EncodingLatin1 {
		return fmt.Sprintf("read_csv_auto(%s, delim=';', encoding='latin-1')", sqlString(ds.CSVPath))
	}

	return fmt.Sprintf("read_csv_auto(%s, delim=';')", sqlString(ds.CSVPath))
}

// sqlString quotes a literal for interpolation. Table-function
// arguments cannot be bound parameters, so paths travel inline.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *duckdbOps) query(ctx context.Context, q string) (harness.Outcome, error) {
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}

	return &harness.Lazy{
		Collect: func() (int64, error) { return drainRows(rows) },
		Close:   func() { rows.Close() },
	}, nil
}

func (d *duckdbOps) exec(ctx context.Context, q string) (harness.Outcome, error) {
	res, err := d.db.ExecContext(ctx, q)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		n = 0
	}

	return &harness.Eager{Rows: n}, nil
}

func (d *duckdbOps) readCSV(ctx context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	return d.query(ctx, "SELECT * FROM "+scanCSV(ds))
}

func (d *duckdbOps) readParquet(ctx context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	return d.query(ctx, fmt.Sprintf("SELECT * FROM read_parquet(%s)", sqlString(ds.ParquetPath)))
}

func (d *duckdbOps) filter(ctx context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	return d.query(ctx, fmt.Sprintf(
		"SELECT * FROM %s WHERE NU_NOTA_MT > 600", scanCSV(ds)))
}

func (d *duckdbOps) join(ctx context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	return d.query(ctx, fmt.Sprintf(`SELECT *
FROM %s AS dados
JOIN (SELECT DISTINCT CO_PROVA, SG_AREA
      FROM read_csv_auto(%s, delim=';', encoding='latin-1')) AS itens
ON dados.CO_PROVA_MT = itens.CO_PROVA`,
		scanCSV(ds), sqlString(ds.ItemsPath)))
}

func (d *duckdbOps) agg(ctx context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	return d.query(ctx, fmt.Sprintf(
		"SELECT CO_UF_ESC, AVG(NU_NOTA_MT) FROM %s GROUP BY CO_UF_ESC", scanCSV(ds)))
}

func (d *duckdbOps) writeCSV(ctx context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	return d.exec(ctx, fmt.Sprintf("COPY (SELECT * FROM %s) TO %s (FORMAT CSV)",
		scanCSV(ds), sqlString(ds.OutputCSV())))
}

func (d *duckdbOps) writeParquet(ctx context.Context, ds dataset.Dataset) (harness.Outcome, error) {
	return d.exec(ctx, fmt.Sprintf(
		"COPY (SELECT * FROM %s) TO %s (FORMAT PARQUET, COMPRESSION SNAPPY)",
		scanCSV(ds), sqlString(ds.OutputParquet())))
}

// drainRows scans every row into throwaway values and closes the
// cursor, returning the delivered count.
func drainRows(rows *sql.Rows) (int64, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	var n int64
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return n, err
		}
		n++
	}

	return n, rows.Err()
}

// ConvertCSVToParquet writes the parquet twin of a scenario's CSV,
// snappy compressed like the write_parquet outputs. Used when
// generating datasets, not during trials.
func (r *Registry) ConvertCSVToParquet(ctx context.Context, ds dataset.Dataset) error {
	q := fmt.Sprintf("COPY (SELECT * FROM %s) TO %s (FORMAT PARQUET, COMPRESSION SNAPPY)",
		scanCSV(ds), sqlString(ds.ParquetPath))

	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("convert %s: %w", ds.CSVPath, err)
	}

	return nil
}
