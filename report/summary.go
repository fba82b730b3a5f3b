package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/etlbench/etlbench/harness"
)

// WriteRunSummary prints the per-run grouped means, one row per
// engine and operation.
func WriteRunSummary(w io.Writer, samples []harness.Sample) error {
	if len(samples) == 0 {
		return errors.New("no samples to summarize")
	}

	fmt.Fprintf(w, "\nResumo (médias):\n\n")
	fmt.Fprintf(w, "| %-10s | %-15s | %-14s | %-16s |\n",
		"Engine", "Operação", "Tempo (s)", "Memória (MB)")
	fmt.Fprintf(w, "|%s|%s|%s|%s|\n",
		strings.Repeat("-", 12), strings.Repeat("-", 17),
		strings.Repeat("-", 16), strings.Repeat("-", 18))

	for _, row := range Aggregate(samples) {
		fmt.Fprintf(w, "| %-10s | %-15s | %14.4f | %16.4f |\n",
			row.Engine, row.Operation, row.TimeMean, row.MemoryMean)
	}

	return nil
}

// WriteGroupedSummary prints the consolidated mean/std table grouped
// by scenario, engine and operation, plus the distinct value sets.
func WriteGroupedSummary(w io.Writer, rows []AggRow) error {
	if len(rows) == 0 {
		return errors.New("no aggregated rows to summarize")
	}

	sorted := make([]AggRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Scenario != sorted[j].Scenario {
			return sorted[i].Scenario < sorted[j].Scenario
		}
		if sorted[i].Engine != sorted[j].Engine {
			return sorted[i].Engine < sorted[j].Engine
		}

		return sorted[i].Operation < sorted[j].Operation
	})

	fmt.Fprintf(w, "\n=== RESUMO GERAL ===\n\n")
	fmt.Fprintf(w, "| %-8s | %-10s | %-15s | %-12s | %-12s | %-13s | %-13s |\n",
		"Cenário", "Engine", "Operação",
		"Tempo (s)", "± (s)", "Memória (MB)", "± (MB)")
	fmt.Fprintf(w, "|%s|%s|%s|%s|%s|%s|%s|\n",
		strings.Repeat("-", 10), strings.Repeat("-", 12), strings.Repeat("-", 17),
		strings.Repeat("-", 14), strings.Repeat("-", 14),
		strings.Repeat("-", 15), strings.Repeat("-", 15))

	for _, row := range sorted {
		fmt.Fprintf(w, "| %-8s | %-10s | %-15s | %12.4f | %12.4f | %13.4f | %13.4f |\n",
			row.Scenario, row.Engine, row.Operation,
			row.TimeMean, row.TimeStd, row.MemoryMean, row.MemoryStd)
	}

	fmt.Fprintf(w, "\nCenários: %s\n", strings.Join(distinct(sorted, func(r AggRow) string { return r.Scenario }), ", "))
	fmt.Fprintf(w, "Engines: %s\n", strings.Join(distinct(sorted, func(r AggRow) string { return r.Engine }), ", "))
	fmt.Fprintf(w, "Operações: %s\n", strings.Join(distinct(sorted, func(r AggRow) string { return r.Operation }), ", "))

	return nil
}

// distinct returns the sorted unique values of one AggRow field.
func distinct(rows []AggRow, field func(AggRow) string) []string {
	seen := make(map[string]struct{}, len(rows))

	var vals []string

	for _, row := range rows {
		v := field(row)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		vals = append(vals, v)
	}

	sort.Strings(vals)

	return vals
}
