package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/etlbench/etlbench/harness"
)

// AggRow is one engine/operation/scenario group with its mean and
// sample standard deviation over the trials.
type AggRow struct {
	Engine     string
	Operation  string
	Scenario   string
	TimeMean   float64
	TimeStd    float64
	MemoryMean float64
	MemoryStd  float64
}

var aggHeader = []string{
	"engine", "operation", "scenario",
	"time_mean", "time_std", "memory_mean", "memory_std",
}

type group struct {
	times []float64
	mems  []float64
}

// Aggregate groups samples by engine, operation and scenario and
// reduces each group to mean and standard deviation. Rows come back
// sorted by engine, then operation, then scenario.
func Aggregate(samples []harness.Sample) []AggRow {
	groups := make(map[harness.Label]*group)

	for _, s := range samples {
		label := harness.Label{Engine: s.Engine, Operation: s.Operation, Scenario: s.Scenario}

		g, ok := groups[label]
		if !ok {
			g = &group{}
			groups[label] = g
		}

		g.times = append(g.times, s.TimeSeconds)
		g.mems = append(g.mems, s.MemoryMB)
	}

	labels := make([]harness.Label, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}

	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Engine != labels[j].Engine {
			return labels[i].Engine < labels[j].Engine
		}
		if labels[i].Operation != labels[j].Operation {
			return labels[i].Operation < labels[j].Operation
		}

		return labels[i].Scenario < labels[j].Scenario
	})

	rows := make([]AggRow, 0, len(labels))

	for _, label := range labels {
		g := groups[label]
		rows = append(rows, AggRow{
			Engine:     label.Engine,
			Operation:  label.Operation,
			Scenario:   label.Scenario,
			TimeMean:   stat.Mean(g.times, nil),
			TimeStd:    sampleStd(g.times),
			MemoryMean: stat.Mean(g.mems, nil),
			MemoryStd:  sampleStd(g.mems),
		})
	}

	return rows
}

// sampleStd is the n-1 standard deviation, zero for singleton groups.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}

	return stat.StdDev(xs, nil)
}

// WriteAggregated writes rows as the grouped mean/std file.
func WriteAggregated(w io.Writer, rows []AggRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(aggHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		rec := []string{
			row.Engine,
			row.Operation,
			row.Scenario,
			formatFloat(row.TimeMean),
			formatFloat(row.TimeStd),
			formatFloat(row.MemoryMean),
			formatFloat(row.MemoryStd),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// ReadAggregated reads a grouped mean/std file.
func ReadAggregated(r io.Reader) ([]AggRow, error) {
	cr := csv.NewReader(r)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(head))
	for i, name := range head {
		idx[name] = i
	}

	for _, name := range aggHeader {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing column %s", name)
		}
	}

	var rows []AggRow

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := AggRow{
			Engine:    rec[idx["engine"]],
			Operation: rec[idx["operation"]],
			Scenario:  rec[idx["scenario"]],
		}

		for _, col := range []struct {
			name string
			dst  *float64
		}{
			{"time_mean", &row.TimeMean},
			{"time_std", &row.TimeStd},
			{"memory_mean", &row.MemoryMean},
			{"memory_std", &row.MemoryStd},
		} {
			v, err := strconv.ParseFloat(rec[idx[col.name]], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, col.name, err)
			}
			*col.dst = v
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
