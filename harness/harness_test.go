package harness

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testRunner(repeats int, logs *bytes.Buffer) *Runner {
	logger := slog.New(slog.NewTextHandler(logs, nil))
	r := NewRunner(repeats, logger)
	r.Settle = 0
	r.ReadGap = 0

	return r
}

func TestRunProducesOneSamplePerTrial(t *testing.T) {
	var logs bytes.Buffer
	r := testRunner(10, &logs)

	table := NewTable()
	label := Label{Engine: "gota", Operation: "read_csv", Scenario: "pequeno"}

	r.Run(context.Background(), table, label, func(context.Context) (Outcome, error) {
		return &Eager{Rows: 1}, nil
	})

	if table.Len() != 10 {
		t.Fatalf("samples = %d, want 10", table.Len())
	}

	for i, s := range table.Samples() {
		if s.Engine != "gota" || s.Operation != "read_csv" || s.Scenario != "pequeno" {
			t.Errorf("sample %d label = %s/%s/%s", i, s.Engine, s.Operation, s.Scenario)
		}
		if s.TimeSeconds < 0 {
			t.Errorf("sample %d time = %v, want >= 0", i, s.TimeSeconds)
		}
		if s.MemoryMB < MemoryFloorMB {
			t.Errorf("sample %d memory = %v, want >= %v", i, s.MemoryMB, MemoryFloorMB)
		}
	}
}

func TestRunSkipsFailingTrials(t *testing.T) {
	var logs bytes.Buffer
	r := testRunner(5, &logs)

	table := NewTable()
	label := Label{Engine: "duckdb", Operation: "join", Scenario: "medio"}

	r.Run(context.Background(), table, label, func(context.Context) (Outcome, error) {
		return nil, errors.New("boom")
	})

	if table.Len() != 0 {
		t.Fatalf("samples = %d, want 0", table.Len())
	}

	if got := strings.Count(logs.String(), "trial failed"); got != 5 {
		t.Errorf("logged failures = %d, want 5", got)
	}
	if !strings.Contains(logs.String(), "engine=duckdb") {
		t.Errorf("log missing engine context: %s", logs.String())
	}
}

func TestRunContinuesAfterPartialFailures(t *testing.T) {
	var logs bytes.Buffer
	r := testRunner(6, &logs)

	table := NewTable()
	calls := 0

	label := Label{Engine: "gorilla", Operation: "filter", Scenario: "pequeno"}
	r.Run(context.Background(), table, label, func(context.Context) (Outcome, error) {
		calls++
		if calls%2 == 0 {
			return nil, errors.New("flaky")
		}

		return &Eager{Rows: 1}, nil
	})

	if calls != 6 {
		t.Errorf("calls = %d, want 6", calls)
	}
	if table.Len() != 3 {
		t.Errorf("samples = %d, want 3", table.Len())
	}
}

func TestRunMaterializesLazyInsideTiming(t *testing.T) {
	var logs bytes.Buffer
	r := testRunner(1, &logs)

	table := NewTable()

	label := Label{Engine: "gorilla", Operation: "agg", Scenario: "pequeno"}
	r.Run(context.Background(), table, label, func(context.Context) (Outcome, error) {
		return &Lazy{Collect: func() (int64, error) {
			time.Sleep(50 * time.Millisecond)

			return 1, nil
		}}, nil
	})

	if table.Len() != 1 {
		t.Fatalf("samples = %d, want 1", table.Len())
	}
	if got := table.Samples()[0].TimeSeconds; got < 0.05 {
		t.Errorf("elapsed = %v, want >= 0.05 since collection runs inside the timed window", got)
	}
}

func TestRunMaterializeErrorSkipsTrial(t *testing.T) {
	var logs bytes.Buffer
	r := testRunner(3, &logs)

	table := NewTable()
	released := 0

	label := Label{Engine: "duckdb", Operation: "agg", Scenario: "grande"}
	r.Run(context.Background(), table, label, func(context.Context) (Outcome, error) {
		return &Lazy{
			Collect: func() (int64, error) { return 0, errors.New("collect failed") },
			Close:   func() { released++ },
		}, nil
	})

	if table.Len() != 0 {
		t.Errorf("samples = %d, want 0", table.Len())
	}
	if released != 3 {
		t.Errorf("released = %d, want 3; failed trials must still release", released)
	}
	if got := strings.Count(logs.String(), "trial failed"); got != 3 {
		t.Errorf("logged failures = %d, want 3", got)
	}
}

func TestMemoryDeltaFloor(t *testing.T) {
	var logs bytes.Buffer
	r := testRunner(1, &logs)

	// Scripted readings: high baseline, lower end reading. The recorded
	// delta must be exactly the floor, never negative.
	readings := []float64{500, 500, 500, 400}
	idx := 0
	r.sampler = func() float64 {
		v := readings[idx]
		if idx < len(readings)-1 {
			idx++
		}

		return v
	}

	table := NewTable()
	label := Label{Engine: "gota", Operation: "write_csv", Scenario: "pequeno"}
	r.Run(context.Background(), table, label, func(context.Context) (Outcome, error) {
		return &Eager{Rows: 1}, nil
	})

	if table.Len() != 1 {
		t.Fatalf("samples = %d, want 1", table.Len())
	}
	if got := table.Samples()[0].MemoryMB; got != MemoryFloorMB {
		t.Errorf("memory = %v, want exactly %v", got, MemoryFloorMB)
	}
}

func TestBaselineUsesMinimumReading(t *testing.T) {
	var logs bytes.Buffer
	r := testRunner(1, &logs)

	// Baseline readings 300, 250, 320 give baseline 250; end reading 300
	// gives delta 50.
	readings := []float64{300, 250, 320, 300}
	idx := 0
	r.sampler = func() float64 {
		v := readings[idx]
		if idx < len(readings)-1 {
			idx++
		}

		return v
	}

	table := NewTable()
	label := Label{Engine: "gota", Operation: "read_csv", Scenario: "medio"}
	r.Run(context.Background(), table, label, func(context.Context) (Outcome, error) {
		return &Eager{Rows: 1}, nil
	})

	if table.Len() != 1 {
		t.Fatalf("samples = %d, want 1", table.Len())
	}
	if got := table.Samples()[0].MemoryMB; got != 50 {
		t.Errorf("memory = %v, want 50", got)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	var logs bytes.Buffer
	r := testRunner(10, &logs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	table := NewTable()
	calls := 0

	label := Label{Engine: "gota", Operation: "agg", Scenario: "pequeno"}
	r.Run(ctx, table, label, func(context.Context) (Outcome, error) {
		calls++
		if calls == 3 {
			cancel()
		}

		return &Eager{Rows: 1}, nil
	})

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if table.Len() != 3 {
		t.Errorf("samples = %d, want 3", table.Len())
	}
}
