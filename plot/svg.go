package plot

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"os"
	"strings"
)

// Figure is a complete chart: a titled canvas with one or more panels.
type Figure struct {
	Width, Height int
	Title         string
	Panels        []Panel
}

// Panel is one plotting area with its own origin, axes and shapes.
// Shapes use panel-local pixel coordinates.
type Panel struct {
	X, Y, W, H int

	Title  string
	XLabel string
	YLabel string
	NoAxes bool

	Grid     []Line
	Rects    []Rect
	Polygons []Polygon
	Paths    []Path
	Lines    []Line
	Circles  []Circle
	Texts    []Text
	XTicks   []Tick
	YTicks   []Tick
	Legend   []LegendItem
}

type Rect struct {
	X, Y, W, H int
	Fill       string
	Opacity    float64
	Stroke     string
}

type Line struct {
	X1, Y1, X2, Y2 int
	Stroke         string
	Width          float64
	Opacity        float64
}

type Path struct {
	D       string
	Stroke  string
	Width   float64
	Opacity float64
}

type Polygon struct {
	Points  string
	Fill    string
	Opacity float64
	Stroke  string
}

type Circle struct {
	CX, CY, R int
	Fill      string
	Opacity   float64
	Stroke    string
}

type Text struct {
	X, Y   int
	S      string
	Size   int
	Anchor string
	Fill   string
	Rotate int
	Bold   bool
}

type Tick struct {
	Pos    int
	Label  string
	Rotate bool
}

type LegendItem struct {
	Name  string
	Color string
}

const figureTemplate = `<svg width="{{.Width}}" height="{{.Height}}" xmlns="http://www.w3.org/2000/svg">
  <defs>
    <style>
      .title { font: bold 16px sans-serif; text-anchor: middle; fill: #111111; }
      .panel-title { font: bold 13px sans-serif; text-anchor: middle; fill: #111111; }
      .axis { font: 11px sans-serif; fill: #111111; }
      .axis-line { stroke: #111111; fill: none; shape-rendering: crispEdges; }
      .axis-label { font: 12px sans-serif; text-anchor: middle; fill: #111111; }
      .grid-line { stroke: #e5e7eb; stroke-width: 0.5px; }
      .legend { font: 11px sans-serif; fill: #111111; }
    </style>
  </defs>
  <rect width="{{.Width}}" height="{{.Height}}" fill="white"></rect>
  {{if .Title}}<text class="title" x="{{div .Width 2}}" y="24">{{.Title}}</text>{{end}}
{{range $p := .Panels}}  <g transform="translate({{$p.X}},{{$p.Y}})">
    {{if $p.Title}}<text class="panel-title" x="{{div $p.W 2}}" y="-10">{{$p.Title}}</text>{{end}}
    {{range $p.Grid}}<line class="grid-line" x1="{{.X1}}" y1="{{.Y1}}" x2="{{.X2}}" y2="{{.Y2}}"></line>
    {{end}}{{range $p.Rects}}<rect x="{{.X}}" y="{{.Y}}" width="{{.W}}" height="{{.H}}" fill="{{.Fill}}"{{if .Opacity}} fill-opacity="{{.Opacity}}"{{end}}{{if .Stroke}} stroke="{{.Stroke}}" stroke-width="0.5"{{end}}></rect>
    {{end}}{{range $p.Polygons}}<polygon points="{{.Points}}" fill="{{.Fill}}" fill-opacity="{{.Opacity}}" stroke="{{.Stroke}}" stroke-width="2"></polygon>
    {{end}}{{range $p.Paths}}<path d="{{.D}}" fill="none" stroke="{{.Stroke}}" stroke-width="{{.Width}}"{{if .Opacity}} stroke-opacity="{{.Opacity}}"{{end}}></path>
    {{end}}{{range $p.Lines}}<line x1="{{.X1}}" y1="{{.Y1}}" x2="{{.X2}}" y2="{{.Y2}}" stroke="{{.Stroke}}" stroke-width="{{.Width}}"{{if .Opacity}} stroke-opacity="{{.Opacity}}"{{end}}></line>
    {{end}}{{range $p.Circles}}<circle cx="{{.CX}}" cy="{{.CY}}" r="{{.R}}" fill="{{.Fill}}"{{if .Opacity}} fill-opacity="{{.Opacity}}"{{end}}{{if .Stroke}} stroke="{{.Stroke}}" stroke-width="0.5"{{end}}></circle>
    {{end}}{{if not $p.NoAxes}}<g class="axis">
      <path class="axis-line" d="M0,{{$p.H}}H{{$p.W}}"></path>
      <path class="axis-line" d="M0,0V{{$p.H}}"></path>
      {{range $p.XTicks}}<line class="axis-line" x1="{{.Pos}}" x2="{{.Pos}}" y1="{{$p.H}}" y2="{{add $p.H 5}}"></line><text x="{{.Pos}}" y="{{add $p.H 17}}"{{if .Rotate}} text-anchor="start" transform="rotate(45 {{.Pos}} {{add $p.H 17}})"{{else}} text-anchor="middle"{{end}}>{{.Label}}</text>
      {{end}}{{range $p.YTicks}}<line class="axis-line" x1="-5" x2="0" y1="{{.Pos}}" y2="{{.Pos}}"></line><text x="-9" y="{{add .Pos 4}}" text-anchor="end">{{.Label}}</text>
      {{end}}</g>
    {{end}}{{if $p.XLabel}}<text class="axis-label" x="{{div $p.W 2}}" y="{{add $p.H 48}}">{{$p.XLabel}}</text>{{end}}
    {{if $p.YLabel}}<text class="axis-label" transform="rotate(-90)" x="{{neg (div $p.H 2)}}" y="-46">{{$p.YLabel}}</text>{{end}}
    {{range $p.Texts}}<text x="{{.X}}" y="{{.Y}}" font-family="sans-serif" font-size="{{.Size}}"{{if .Bold}} font-weight="bold"{{end}} text-anchor="{{.Anchor}}" fill="{{.Fill}}"{{if .Rotate}} transform="rotate({{.Rotate}} {{.X}} {{.Y}})"{{end}}>{{.S}}</text>
    {{end}}{{range $i, $li := $p.Legend}}<rect x="{{add $p.W -108}}" y="{{add (mul $i 18) 6}}" width="10" height="10" fill="{{$li.Color}}"></rect><text class="legend" x="{{add $p.W -94}}" y="{{add (mul $i 18) 15}}">{{$li.Name}}</text>
    {{end}}</g>
{{end}}</svg>`

// Renderer turns figures into SVG documents.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() *Renderer {
	tmpl := template.Must(template.New("figure").Funcs(template.FuncMap{
		"div": func(a, b int) int { return a / b },
		"add": func(a, b int) int { return a + b },
		"mul": func(a, b int) int { return a * b },
		"neg": func(a int) int { return -a },
	}).Parse(figureTemplate))

	return &Renderer{tmpl: tmpl}
}

// Render writes fig as a standalone SVG document.
func (r *Renderer) Render(w io.Writer, fig *Figure) error {
	if _, err := io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"); err != nil {
		return err
	}

	return r.tmpl.Execute(w, fig)
}

// RenderFile renders fig into path.
func (r *Renderer) RenderFile(path string, fig *Figure) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := r.Render(f, fig); err != nil {
		f.Close()

		return fmt.Errorf("render %s: %w", path, err)
	}

	return f.Close()
}

// linearScale maps a value domain onto a pixel extent. Flipped scales
// grow toward zero, the SVG y direction.
type linearScale struct {
	min, max float64
	size     int
	flip     bool
}

func newLinearScale(min, max float64, size int, flip bool) linearScale {
	if min == max {
		if min == 0 {
			min, max = -1, 1
		} else {
			pad := math.Abs(min) * 0.1
			min, max = min-pad, max+pad
		}
	}

	return linearScale{min: min, max: max, size: size, flip: flip}
}

func (s linearScale) scale(v float64) int {
	r := (v - s.min) / (s.max - s.min)
	px := int(math.Round(r * float64(s.size)))
	if s.flip {
		return s.size - px
	}

	return px
}

// logScale is a base-10 logarithmic scale. Values at or below zero
// clamp to the domain minimum.
type logScale struct {
	min, max float64
	size     int
	flip     bool
}

func newLogScale(min, max float64, size int, flip bool) logScale {
	if min <= 0 {
		min = 1e-6
	}
	if max <= min {
		max = min * 10
	}

	return logScale{min: min, max: max, size: size, flip: flip}
}

func (s logScale) scale(v float64) int {
	if v < s.min {
		v = s.min
	}

	r := (math.Log10(v) - math.Log10(s.min)) / (math.Log10(s.max) - math.Log10(s.min))
	px := int(math.Round(r * float64(s.size)))
	if s.flip {
		return s.size - px
	}

	return px
}

// bandScale divides a pixel extent into equal category slots.
type bandScale struct {
	count, size int
	inner       float64
}

func newBandScale(count, size int, inner float64) bandScale {
	if count < 1 {
		count = 1
	}

	return bandScale{count: count, size: size, inner: inner}
}

// slot returns the padded start and width of category i.
func (s bandScale) slot(i int) (int, int) {
	step := float64(s.size) / float64(s.count)
	pad := step * s.inner / 2

	return int(math.Round(float64(i)*step + pad)), int(math.Round(step - 2*pad))
}

func (s bandScale) center(i int) int {
	step := float64(s.size) / float64(s.count)

	return int(math.Round((float64(i) + 0.5) * step))
}

// valueTicks picks round tick values covering [min, max] using a
// 1/2/5 step ladder.
func valueTicks(min, max float64, maxTicks int) []float64 {
	if min >= max {
		return []float64{min}
	}

	rawStep := (max - min) / float64(maxTicks-1)
	magnitude := math.Pow(10, math.Floor(math.Log10(rawStep)))

	var step float64
	switch norm := rawStep / magnitude; {
	case norm <= 1:
		step = magnitude
	case norm <= 2:
		step = 2 * magnitude
	case norm <= 5:
		step = 5 * magnitude
	default:
		step = 10 * magnitude
	}

	var ticks []float64
	for tick := math.Floor(min/step) * step; tick <= max+step/2; tick += step {
		if tick >= min-step/2 {
			ticks = append(ticks, tick)
		}
	}

	return ticks
}

// logTicks returns the powers of ten spanning [min, max].
func logTicks(min, max float64) []float64 {
	if min <= 0 {
		min = 1e-6
	}
	if max < min {
		max = min
	}

	var ticks []float64
	for e := math.Floor(math.Log10(min)); e <= math.Ceil(math.Log10(max)); e++ {
		ticks = append(ticks, math.Pow(10, e))
	}

	return ticks
}

// tickPrecision finds the fewest decimals that keep adjacent tick
// labels distinct.
func tickPrecision(values []float64) int {
	if len(values) <= 1 {
		return 1
	}

	minDiff := math.Inf(1)
	for i := 1; i < len(values); i++ {
		if diff := math.Abs(values[i] - values[i-1]); diff > 0 && diff < minDiff {
			minDiff = diff
		}
	}

	if minDiff > 0 && !math.IsInf(minDiff, 0) {
		precision := int(math.Max(0, -math.Floor(math.Log10(minDiff)))) + 1
		if precision > 8 {
			return 8
		}

		return precision
	}

	return 2
}

// formatValue renders a tick label, trimming trailing zeros.
func formatValue(v float64, precision int) string {
	formatted := fmt.Sprintf("%.*f", precision, v)
	if strings.Contains(formatted, ".") {
		formatted = strings.TrimRight(strings.TrimRight(formatted, "0"), ".")
	}
	if formatted == "" || formatted == "-" {
		return "0"
	}

	return formatted
}

// yAxisTicks builds tick marks and matching grid lines for a linear
// y scale.
func yAxisTicks(s linearScale, width int) ([]Tick, []Line) {
	vals := valueTicks(s.min, s.max, 6)
	precision := tickPrecision(vals)

	var (
		ticks []Tick
		grid  []Line
	)

	for _, v := range vals {
		if v < s.min || v > s.max {
			continue
		}

		y := s.scale(v)
		ticks = append(ticks, Tick{Pos: y, Label: formatValue(v, precision)})
		grid = append(grid, Line{X1: 0, Y1: y, X2: width, Y2: y})
	}

	return ticks, grid
}

// yLogTicks builds tick marks and grid lines for a log y scale.
func yLogTicks(s logScale, width int) ([]Tick, []Line) {
	var (
		ticks []Tick
		grid  []Line
	)

	for _, v := range logTicks(s.min, s.max) {
		y := s.scale(v)
		if y < 0 || y > s.size {
			continue
		}

		ticks = append(ticks, Tick{Pos: y, Label: formatValue(v, 6)})
		grid = append(grid, Line{X1: 0, Y1: y, X2: width, Y2: y})
	}

	return ticks, grid
}

// errorBar draws a vertical whisker with end caps.
func errorBar(x, yLow, yHigh int, color string) []Line {
	const capHalf = 5

	return []Line{
		{X1: x, Y1: yLow, X2: x, Y2: yHigh, Stroke: color, Width: 1.5, Opacity: 0.3},
		{X1: x - capHalf, Y1: yLow, X2: x + capHalf, Y2: yLow, Stroke: color, Width: 1.5, Opacity: 0.3},
		{X1: x - capHalf, Y1: yHigh, X2: x + capHalf, Y2: yHigh, Stroke: color, Width: 1.5, Opacity: 0.3},
	}
}

// linePath builds an SVG path through the given points.
func linePath(xs, ys []int) string {
	if len(xs) < 2 || len(xs) != len(ys) {
		return ""
	}

	var b strings.Builder
	for i := range xs {
		if i == 0 {
			fmt.Fprintf(&b, "M%d,%d", xs[i], ys[i])
		} else {
			fmt.Fprintf(&b, " L%d,%d", xs[i], ys[i])
		}
	}

	return b.String()
}
