// Package report persists benchmark samples and derives the
// consolidated and aggregated views the charts and summaries read.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/etlbench/etlbench/harness"
)

// resultsHeader is the column layout of raw per-trial result files.
var resultsHeader = []string{"engine", "operation", "scenario", "time_seconds", "memory_mb"}

// ResultsFile returns the per-scenario raw results path under dir.
func ResultsFile(dir, scenario string) string {
	return filepath.Join(dir, "benchmark_resultados_"+scenario+".csv")
}

// ConsolidatedFile returns the all-scenario results path under dir.
func ConsolidatedFile(dir string) string {
	return filepath.Join(dir, "resultados_geral.csv")
}

// AggregatedFile returns the grouped mean/std path under dir.
func AggregatedFile(dir string) string {
	return filepath.Join(dir, "resultados_geral_agrupado.csv")
}

// WriteCSV writes samples as a raw results file.
func WriteCSV(w io.Writer, samples []harness.Sample) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(resultsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, s := range samples {
		rec := []string{
			s.Engine,
			s.Operation,
			s.Scenario,
			strconv.FormatFloat(s.TimeSeconds, 'f', -1, 64),
			strconv.FormatFloat(s.MemoryMB, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// ReadCSV reads one raw results file.
func ReadCSV(r io.Reader) ([]harness.Sample, error) {
	cr := csv.NewReader(r)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(head))
	for i, name := range head {
		idx[name] = i
	}

	for _, name := range resultsHeader {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing column %s", name)
		}
	}

	var samples []harness.Sample

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := strconv.ParseFloat(rec[idx["time_seconds"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: time_seconds: %w", line, err)
		}

		mb, err := strconv.ParseFloat(rec[idx["memory_mb"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: memory_mb: %w", line, err)
		}

		samples = append(samples, harness.Sample{
			Engine:      rec[idx["engine"]],
			Operation:   rec[idx["operation"]],
			Scenario:    rec[idx["scenario"]],
			TimeSeconds: ts,
			MemoryMB:    mb,
		})
	}

	return samples, nil
}

// SaveResults writes one scenario run's raw samples under dir and
// returns the path.
func SaveResults(dir, scenario string, samples []harness.Sample) (string, error) {
	path := ResultsFile(dir, scenario)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if err := WriteCSV(f, samples); err != nil {
		f.Close()

		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return path, f.Close()
}

// Consolidate gathers every scenario's raw results file under dir into
// one sample list, scenario order preserved. A scenario without a file
// simply has not run yet; an unreadable or malformed file is logged
// and skipped. No readable file at all is an error.
func Consolidate(dir string, scenarios []string, logger *slog.Logger) ([]harness.Sample, error) {
	var all []harness.Sample
	found := 0

	for _, scenario := range scenarios {
		path := ResultsFile(dir, scenario)

		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				logger.Info("no results file", slog.String("scenario", scenario))

				continue
			}
			logger.Warn("skipping results file",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)

			continue
		}

		samples, err := ReadCSV(f)
		f.Close()
		if err != nil {
			logger.Warn("skipping results file",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)

			continue
		}

		logger.Info("consolidating results",
			slog.String("path", path),
			slog.Int("samples", len(samples)),
		)

		all = append(all, samples...)
		found++
	}

	if found == 0 {
		return nil, fmt.Errorf("no results files in %s", dir)
	}

	return all, nil
}

// WriteConsolidated writes the combined samples and their aggregation
// under dir, returning both paths.
func WriteConsolidated(dir string, samples []harness.Sample) (string, string, error) {
	genPath := ConsolidatedFile(dir)

	f, err := os.Create(genPath)
	if err != nil {
		return "", "", err
	}
	if err := WriteCSV(f, samples); err != nil {
		f.Close()

		return "", "", fmt.Errorf("write %s: %w", genPath, err)
	}
	if err := f.Close(); err != nil {
		return "", "", err
	}

	aggPath := AggregatedFile(dir)

	af, err := os.Create(aggPath)
	if err != nil {
		return "", "", err
	}
	if err := WriteAggregated(af, Aggregate(samples)); err != nil {
		af.Close()

		return "", "", fmt.Errorf("write %s: %w", aggPath, err)
	}

	return genPath, aggPath, af.Close()
}
