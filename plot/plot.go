// Package plot renders the benchmark charts: static SVG figures and
// self-contained interactive HTML pages, both fed by the aggregated
// mean/std rows.
package plot

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/etlbench/etlbench/report"
)

// engineColors is the fixed palette, one color per engine.
var engineColors = map[string]string{
	"duckdb":  "#2E86AB",
	"gota":    "#A23B72",
	"gorilla": "#F18F01",
}

const fallbackColor = "#6b7280"

func colorFor(engine string) string {
	if c, ok := engineColors[engine]; ok {
		return c
	}

	return fallbackColor
}

// engineLabel renders an engine name for legends.
func engineLabel(engine string) string {
	return cases.Title(language.Und).String(engine)
}

// opLabel renders an operation name for panel titles.
func opLabel(op string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(op, "_", " "))
}

// scenarioLabel renders a scenario panel title.
func scenarioLabel(scenario string) string {
	return "Cenário " + cases.Title(language.Und).String(scenario)
}

// engines returns the sorted distinct engines in rows.
func engines(rows []report.AggRow) []string {
	return distinctField(rows, func(r report.AggRow) string { return r.Engine })
}

// operations returns the sorted distinct operations in rows.
func operations(rows []report.AggRow) []string {
	return distinctField(rows, func(r report.AggRow) string { return r.Operation })
}

func distinctField(rows []report.AggRow, field func(report.AggRow) string) []string {
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

func filterScenario(rows []report.AggRow, scenario string) []report.AggRow {
	var out []report.AggRow

	for _, row := range rows {
		if row.Scenario == scenario {
			out = append(out, row)
		}
	}

	return out
}

func filterOperation(rows []report.AggRow, op string) []report.AggRow {
	var out []report.AggRow

	for _, row := range rows {
		if row.Operation == op {
			out = append(out, row)
		}
	}

	return out
}

// find returns the row for one engine/operation/scenario triple.
func find(rows []report.AggRow, engine, op, scenario string) (report.AggRow, bool) {
	for _, row := range rows {
		if row.Engine == engine && row.Operation == op && row.Scenario == scenario {
			return row, true
		}
	}

	return report.AggRow{}, false
}
