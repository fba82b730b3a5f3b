package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/etlbench/etlbench/harness"
)

func TestWriteRunSummary(t *testing.T) {
	samples := []harness.Sample{
		{Engine: "duckdb", Operation: "read_csv", Scenario: "pequeno", TimeSeconds: 1, MemoryMB: 10},
		{Engine: "duckdb", Operation: "read_csv", Scenario: "pequeno", TimeSeconds: 3, MemoryMB: 30},
		{Engine: "gota", Operation: "filter", Scenario: "pequeno", TimeSeconds: 2, MemoryMB: 5},
	}

	var buf bytes.Buffer
	if err := WriteRunSummary(&buf, samples); err != nil {
		t.Fatalf("WriteRunSummary: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Resumo (médias)") {
		t.Error("missing heading")
	}
	if !strings.Contains(out, "duckdb") || !strings.Contains(out, "gota") {
		t.Error("missing engine rows")
	}
	if !strings.Contains(out, "2.0000") {
		t.Errorf("duckdb read_csv mean should render as 2.0000:\n%s", out)
	}
}

func TestWriteRunSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRunSummary(&buf, nil); err == nil {
		t.Fatal("expected error on empty samples")
	}
}

func TestWriteGroupedSummary(t *testing.T) {
	rows := []AggRow{
		{Engine: "gota", Operation: "join", Scenario: "pequeno", TimeMean: 1.23456, TimeStd: 0.1, MemoryMean: 10, MemoryStd: 2},
		{Engine: "duckdb", Operation: "agg", Scenario: "grande", TimeMean: 0.5, TimeStd: 0.05, MemoryMean: 100, MemoryStd: 7},
	}

	var buf bytes.Buffer
	if err := WriteGroupedSummary(&buf, rows); err != nil {
		t.Fatalf("WriteGroupedSummary: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "=== RESUMO GERAL ===") {
		t.Error("missing heading")
	}
	if !strings.Contains(out, "1.2346") {
		t.Errorf("means should round to four decimals:\n%s", out)
	}
	if !strings.Contains(out, "Cenários: grande, pequeno") {
		t.Errorf("scenario list should be sorted:\n%s", out)
	}
	if !strings.Contains(out, "Engines: duckdb, gota") {
		t.Errorf("engine list should be sorted:\n%s", out)
	}
	if !strings.Contains(out, "Operações: agg, join") {
		t.Errorf("operation list should be sorted:\n%s", out)
	}

	grandeIdx := strings.Index(out, "| grande")
	pequenoIdx := strings.Index(out, "| pequeno")
	if grandeIdx < 0 || pequenoIdx < 0 || grandeIdx > pequenoIdx {
		t.Errorf("rows should sort by scenario first:\n%s", out)
	}
}

func TestWriteGroupedSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGroupedSummary(&buf, nil); err == nil {
		t.Fatal("expected error on empty rows")
	}
}
