package plot

import (
	"bytes"
	"encoding/xml"
	"io"
	"math"
	"strings"
	"testing"
)

func TestLinearScale(t *testing.T) {
	s := newLinearScale(0, 100, 200, false)
	if got := s.scale(50); got != 100 {
		t.Errorf("scale(50) = %d, want 100", got)
	}
	if got := s.scale(0); got != 0 {
		t.Errorf("scale(0) = %d, want 0", got)
	}

	flipped := newLinearScale(0, 100, 200, true)
	if got := flipped.scale(0); got != 200 {
		t.Errorf("flipped scale(0) = %d, want 200", got)
	}
	if got := flipped.scale(100); got != 0 {
		t.Errorf("flipped scale(100) = %d, want 0", got)
	}
}

func TestLinearScaleDegenerateDomain(t *testing.T) {
	s := newLinearScale(5, 5, 100, false)
	if s.min >= s.max {
		t.Fatalf("degenerate domain should be padded, got [%v, %v]", s.min, s.max)
	}

	got := s.scale(5)
	if got < 0 || got > 100 {
		t.Errorf("scale(5) = %d, want within [0, 100]", got)
	}
}

func TestLogScale(t *testing.T) {
	s := newLogScale(1, 100, 200, false)
	if got := s.scale(10); got != 100 {
		t.Errorf("scale(10) = %d, want 100", got)
	}
	if got := s.scale(0.001); got != 0 {
		t.Errorf("values below the domain should clamp to 0, got %d", got)
	}

	guarded := newLogScale(0, 100, 200, false)
	if guarded.min <= 0 {
		t.Errorf("non-positive minimum should be replaced, got %v", guarded.min)
	}
}

func TestBandScale(t *testing.T) {
	s := newBandScale(4, 400, 0)

	start, width := s.slot(0)
	if start != 0 || width != 100 {
		t.Errorf("slot(0) = (%d, %d), want (0, 100)", start, width)
	}
	if got := s.center(1); got != 150 {
		t.Errorf("center(1) = %d, want 150", got)
	}

	padded := newBandScale(4, 400, 0.5)
	start, width = padded.slot(0)
	if start != 25 || width != 50 {
		t.Errorf("padded slot(0) = (%d, %d), want (25, 50)", start, width)
	}
}

func TestValueTicks(t *testing.T) {
	ticks := valueTicks(0, 10, 6)
	want := []float64{0, 2, 4, 6, 8, 10}
	if len(ticks) != len(want) {
		t.Fatalf("got %v, want %v", ticks, want)
	}
	for i := range want {
		if math.Abs(ticks[i]-want[i]) > 1e-9 {
			t.Fatalf("got %v, want %v", ticks, want)
		}
	}
}

func TestLogTicks(t *testing.T) {
	ticks := logTicks(0.5, 200)
	if len(ticks) == 0 {
		t.Fatal("no ticks")
	}
	if ticks[0] > 0.5 {
		t.Errorf("first tick %v should not exceed the minimum", ticks[0])
	}
	if ticks[len(ticks)-1] < 200 {
		t.Errorf("last tick %v should reach the maximum", ticks[len(ticks)-1])
	}

	for i := 1; i < len(ticks); i++ {
		if math.Abs(ticks[i]/ticks[i-1]-10) > 1e-9 {
			t.Errorf("ticks should step by powers of ten, got %v", ticks)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v         float64
		precision int
		want      string
	}{
		{2.5, 2, "2.5"},
		{2, 2, "2"},
		{0.25, 2, "0.25"},
		{100, 1, "100"},
		{0, 1, "0"},
	}

	for _, tt := range tests {
		if got := formatValue(tt.v, tt.precision); got != tt.want {
			t.Errorf("formatValue(%v, %d) = %q, want %q", tt.v, tt.precision, got, tt.want)
		}
	}
}

func TestLinePath(t *testing.T) {
	if got := linePath([]int{0, 10, 20}, []int{5, 15, 25}); got != "M0,5 L10,15 L20,25" {
		t.Errorf("unexpected path %q", got)
	}
	if got := linePath([]int{0}, []int{5}); got != "" {
		t.Errorf("single point should yield no path, got %q", got)
	}
}

func checkWellFormedSVG(t *testing.T, r io.Reader) {
	t.Helper()

	dec := xml.NewDecoder(r)
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("malformed SVG: %v", err)
		}
	}
}

func TestRenderWellFormed(t *testing.T) {
	fig := &Figure{
		Width: 400, Height: 300,
		Title: "Comparação de Execução",
		Panels: []Panel{{
			X: 50, Y: 50, W: 300, H: 200,
			Title: "Cenário Pequeno", XLabel: "Operações ETL", YLabel: "Tempo (segundos)",
			Grid:     []Line{{X1: 0, Y1: 100, X2: 300, Y2: 100}},
			Rects:    []Rect{{X: 10, Y: 120, W: 20, H: 80, Fill: "#2E86AB"}},
			Polygons: []Polygon{{Points: "0,0 50,0 25,40", Fill: "#A23B72", Opacity: 0.25, Stroke: "#A23B72"}},
			Paths:    []Path{{D: "M0,0 L100,100", Stroke: "#F18F01", Width: 2}},
			Lines:    []Line{{X1: 5, Y1: 5, X2: 50, Y2: 50, Stroke: "#111111", Width: 1}},
			Circles:  []Circle{{CX: 40, CY: 40, R: 4, Fill: "#2E86AB"}},
			Texts:    []Text{{X: 10, Y: 10, S: "0.25", Size: 8, Anchor: "start", Fill: "#111111", Rotate: -90}},
			XTicks:   []Tick{{Pos: 20, Label: "read_csv", Rotate: true}},
			YTicks:   []Tick{{Pos: 100, Label: "1.5"}},
			Legend:   []LegendItem{{Name: "Duckdb", Color: "#2E86AB"}},
		}},
	}

	var buf bytes.Buffer
	if err := NewRenderer().Render(&buf, fig); err != nil {
		t.Fatalf("Render: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("missing XML declaration")
	}
	for _, want := range []string{
		"Comparação de Execução", "Cenário Pequeno", "read_csv",
		"#2E86AB", "<polygon", "<circle", "rotate(-90 10 10)", "rotate(45 20 ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in rendered SVG", want)
		}
	}

	checkWellFormedSVG(t, strings.NewReader(out))
}
