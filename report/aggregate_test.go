package report

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/etlbench/etlbench/harness"
)

func TestAggregateMeanAndStd(t *testing.T) {
	samples := []harness.Sample{
		{Engine: "duckdb", Operation: "read_csv", Scenario: "pequeno", TimeSeconds: 1, MemoryMB: 10},
		{Engine: "duckdb", Operation: "read_csv", Scenario: "pequeno", TimeSeconds: 2, MemoryMB: 20},
		{Engine: "duckdb", Operation: "read_csv", Scenario: "pequeno", TimeSeconds: 3, MemoryMB: 30},
	}

	rows := Aggregate(samples)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	row := rows[0]
	if row.TimeMean != 2 {
		t.Errorf("TimeMean = %v, want 2", row.TimeMean)
	}
	if math.Abs(row.TimeStd-1) > 1e-12 {
		t.Errorf("TimeStd = %v, want 1", row.TimeStd)
	}
	if row.MemoryMean != 20 {
		t.Errorf("MemoryMean = %v, want 20", row.MemoryMean)
	}
	if math.Abs(row.MemoryStd-10) > 1e-12 {
		t.Errorf("MemoryStd = %v, want 10", row.MemoryStd)
	}
}

func TestAggregateSingletonStdIsZero(t *testing.T) {
	rows := Aggregate([]harness.Sample{
		{Engine: "gota", Operation: "agg", Scenario: "medio", TimeSeconds: 5, MemoryMB: 50},
	})

	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].TimeStd != 0 || rows[0].MemoryStd != 0 {
		t.Errorf("singleton std = (%v, %v), want zeros", rows[0].TimeStd, rows[0].MemoryStd)
	}
}

func TestAggregateSortsRows(t *testing.T) {
	samples := []harness.Sample{
		{Engine: "gota", Operation: "filter", Scenario: "pequeno", TimeSeconds: 1, MemoryMB: 1},
		{Engine: "duckdb", Operation: "join", Scenario: "grande", TimeSeconds: 1, MemoryMB: 1},
		{Engine: "duckdb", Operation: "agg", Scenario: "medio", TimeSeconds: 1, MemoryMB: 1},
		{Engine: "duckdb", Operation: "agg", Scenario: "grande", TimeSeconds: 1, MemoryMB: 1},
	}

	rows := Aggregate(samples)

	got := make([][3]string, len(rows))
	for i, row := range rows {
		got[i] = [3]string{row.Engine, row.Operation, row.Scenario}
	}

	want := [][3]string{
		{"duckdb", "agg", "grande"},
		{"duckdb", "agg", "medio"},
		{"duckdb", "join", "grande"},
		{"gota", "filter", "pequeno"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestAggregateGroupsAcrossScenarios(t *testing.T) {
	samples := []harness.Sample{
		{Engine: "duckdb", Operation: "read_csv", Scenario: "pequeno", TimeSeconds: 1, MemoryMB: 1},
		{Engine: "duckdb", Operation: "read_csv", Scenario: "grande", TimeSeconds: 9, MemoryMB: 9},
	}

	rows := Aggregate(samples)
	if len(rows) != 2 {
		t.Fatalf("scenario should split groups: got %d rows, want 2", len(rows))
	}
}

func TestWriteReadAggregatedRoundTrip(t *testing.T) {
	rows := []AggRow{
		{Engine: "duckdb", Operation: "read_csv", Scenario: "pequeno", TimeMean: 0.5, TimeStd: 0.25, MemoryMean: 12.5, MemoryStd: 1.5},
		{Engine: "gorilla", Operation: "filter", Scenario: "grande", TimeMean: 4, TimeStd: 0, MemoryMean: 256, MemoryStd: 0},
	}

	var buf bytes.Buffer
	if err := WriteAggregated(&buf, rows); err != nil {
		t.Fatalf("WriteAggregated: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "engine,operation,scenario,time_mean,time_std,memory_mean,memory_std" {
		t.Fatalf("unexpected header %q", lines[0])
	}

	got, err := ReadAggregated(&buf)
	if err != nil {
		t.Fatalf("ReadAggregated: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, rows)
	}
}

func TestReadAggregatedRejectsMissingColumns(t *testing.T) {
	in := "engine,operation,scenario,time_mean\nduckdb,read_csv,pequeno,0.5\n"

	if _, err := ReadAggregated(strings.NewReader(in)); err == nil {
		t.Fatal("expected error for missing columns")
	}
}
