package plot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/etlbench/etlbench/dataset"
	"github.com/etlbench/etlbench/report"
)

// WriteStatic renders every static chart plus the summary table into
// dir/graficos_benchmark and returns the written paths.
func WriteStatic(dir string, rows []report.AggRow) ([]string, error) {
	if len(rows) == 0 {
		return nil, errors.New("no aggregated rows to plot")
	}

	outDir := filepath.Join(dir, "graficos_benchmark")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	r := NewRenderer()

	figures := []struct {
		name string
		fig  *Figure
	}{
		{"tempo_por_engine_cenario.svg", tempoPorEngineFigure(rows)},
		{"memoria_por_engine_cenario.svg", memoriaPorEngineFigure(rows)},
		{"escalabilidade_tempo.svg", escalabilidadeTempoFigure(rows)},
		{"escalabilidade_memoria.svg", escalabilidadeMemoriaFigure(rows)},
		{"heatmap_performance.svg", heatmapFigure(rows)},
		{"radar_chart_engines.svg", radarFigure(rows)},
		{"tempo_vs_memoria.svg", tempoVsMemoriaFigure(rows)},
	}

	var paths []string

	for _, f := range figures {
		path := filepath.Join(outDir, f.name)
		if err := r.RenderFile(path, f.fig); err != nil {
			return nil, err
		}

		paths = append(paths, path)
	}

	tablePath := filepath.Join(outDir, "tabela_resumo.csv")
	if err := writeSummaryTable(tablePath, rows); err != nil {
		return nil, err
	}

	return append(paths, tablePath), nil
}

// Three-panel layout shared by the bar and scatter figures.
const (
	panelW    = 420
	panelH    = 320
	panelLeft = 70
	panelTop  = 80
	panelStep = 510
)

func tempoPorEngineFigure(rows []report.AggRow) *Figure {
	return scenarioBarFigure(rows, "Tempo de Execução por Engine e Cenário", "Tempo (segundos)",
		func(r report.AggRow) float64 { return r.TimeMean }, "%.2f")
}

func memoriaPorEngineFigure(rows []report.AggRow) *Figure {
	return scenarioBarFigure(rows, "Uso de Memória por Engine e Cenário", "Memória (MB)",
		func(r report.AggRow) float64 { return r.MemoryMean }, "%.1f")
}

// scenarioBarFigure draws one grouped-bar panel per scenario with
// rotated value labels above the bars.
func scenarioBarFigure(rows []report.AggRow, title, ylabel string, value func(report.AggRow) float64, labelFmt string) *Figure {
	engs := engines(rows)
	ops := operations(rows)

	fig := &Figure{Width: 1560, Height: 520, Title: title}

	for i, scenario := range dataset.Scenarios() {
		data := filterScenario(rows, scenario)

		ymax := 0.0
		for _, row := range data {
			if v := value(row); v > ymax {
				ymax = v
			}
		}

		yScale := newLinearScale(0, ymax*1.1, panelH, true)
		yTicks, grid := yAxisTicks(yScale, panelW)
		band := newBandScale(len(ops), panelW, 0.3)

		panel := Panel{
			X: panelLeft + i*panelStep, Y: panelTop, W: panelW, H: panelH,
			Title:  scenarioLabel(scenario),
			XLabel: "Operações ETL",
			YLabel: ylabel,
			Grid:   grid,
			YTicks: yTicks,
		}

		for opIdx, op := range ops {
			slotX, slotW := band.slot(opIdx)
			barW := slotW / max(len(engs), 1)

			for engIdx, engine := range engs {
				row, ok := find(data, engine, op, scenario)
				if !ok {
					continue
				}

				v := value(row)
				y := yScale.scale(v)
				x := slotX + engIdx*barW

				panel.Rects = append(panel.Rects, Rect{
					X: x, Y: y, W: max(barW-2, 1), H: panelH - y,
					Fill: colorFor(engine),
				})
				panel.Texts = append(panel.Texts, Text{
					X: x + barW/2 + 3, Y: y - 4,
					S:    fmt.Sprintf(labelFmt, v),
					Size: 8, Anchor: "start", Fill: "#111111", Rotate: -90,
				})
			}

			panel.XTicks = append(panel.XTicks, Tick{Pos: band.center(opIdx), Label: op, Rotate: true})
		}

		for _, engine := range engs {
			panel.Legend = append(panel.Legend, LegendItem{Name: engineLabel(engine), Color: colorFor(engine)})
		}

		fig.Panels = append(fig.Panels, panel)
	}

	return fig
}

func escalabilidadeTempoFigure(rows []report.AggRow) *Figure {
	return scalabilityFigure(rows, "Análise de Escalabilidade - Tempo de Execução", "Tempo (segundos)",
		func(r report.AggRow) (float64, float64) { return r.TimeMean, r.TimeStd }, false)
}

func escalabilidadeMemoriaFigure(rows []report.AggRow) *Figure {
	return scalabilityFigure(rows, "Análise de Escalabilidade - Uso de Memória", "Memória (MB)",
		func(r report.AggRow) (float64, float64) { return r.MemoryMean, r.MemoryStd }, true)
}

// scalabilityFigure draws one log-scale line panel per operation
// across the dataset tiers, with error whiskers at each point.
func scalabilityFigure(rows []report.AggRow, title, ylabel string, value func(report.AggRow) (float64, float64), squareMarkers bool) *Figure {
	const (
		w, h             = 300, 240
		left, top        = 70, 70
		stepX, stepY     = 385, 355
		panelsPerRow     = 4
		markerR, markerW = 4, 8
	)

	engs := engines(rows)
	ops := operations(rows)
	tiers := dataset.Scenarios()

	fig := &Figure{Width: 1560, Height: 740, Title: title}

	for opIdx, op := range ops {
		if opIdx >= 2*panelsPerRow {
			break
		}

		data := filterOperation(rows, op)

		ymin, ymax := math.Inf(1), 0.0
		for _, row := range data {
			v, std := value(row)
			if v > 0 && v < ymin {
				ymin = v
			}
			if v+std > ymax {
				ymax = v + std
			}
		}
		if math.IsInf(ymin, 1) {
			ymin = 0.1
		}

		yScale := newLogScale(ymin/2, ymax*2, h, true)
		yTicks, grid := yLogTicks(yScale, w)
		band := newBandScale(len(tiers), w, 0.4)

		panel := Panel{
			X: left + (opIdx%panelsPerRow)*stepX, Y: top + (opIdx/panelsPerRow)*stepY, W: w, H: h,
			Title:  opLabel(op),
			XLabel: "Tamanho do Dataset",
			YLabel: ylabel,
			Grid:   grid,
			YTicks: yTicks,
		}

		for i, tier := range tiers {
			panel.XTicks = append(panel.XTicks, Tick{Pos: band.center(i), Label: tier})
		}

		for _, engine := range engs {
			var xs, ys []int

			for i, tier := range tiers {
				row, ok := find(data, engine, op, tier)
				if !ok {
					continue
				}

				v, std := value(row)
				x := band.center(i)
				y := yScale.scale(v)

				xs = append(xs, x)
				ys = append(ys, y)

				if std > 0 {
					low := yScale.scale(math.Max(v-std, yScale.min))
					high := yScale.scale(v + std)
					panel.Lines = append(panel.Lines, errorBar(x, low, high, colorFor(engine))...)
				}

				if squareMarkers {
					panel.Rects = append(panel.Rects, Rect{
						X: x - markerW/2, Y: y - markerW/2, W: markerW, H: markerW,
						Fill: colorFor(engine),
					})
				} else {
					panel.Circles = append(panel.Circles, Circle{CX: x, CY: y, R: markerR, Fill: colorFor(engine)})
				}
			}

			if path := linePath(xs, ys); path != "" {
				panel.Paths = append(panel.Paths, Path{D: path, Stroke: colorFor(engine), Width: 2.5})
			}
		}

		for _, engine := range engs {
			panel.Legend = append(panel.Legend, LegendItem{Name: engineLabel(engine), Color: colorFor(engine)})
		}

		fig.Panels = append(fig.Panels, panel)
	}

	return fig
}

// Sequential colormaps for the heatmaps.
var (
	ylOrRd = []string{"#ffffcc", "#fed976", "#fd8d3c", "#e31a1c", "#800026"}
	ylGnBu = []string{"#ffffcc", "#a1dab4", "#41b6c4", "#225ea8", "#253494"}
)

// heatmapFigure draws engine×operation grids of scenario-averaged
// time and memory with annotated cells.
func heatmapFigure(rows []report.AggRow) *Figure {
	const (
		cellW, cellH = 92, 64
		top          = 120
	)

	engs := engines(rows)
	ops := operations(rows)

	fig := &Figure{Width: 1620, Height: 420}

	grids := []struct {
		x     int
		title string
		fmt   string
		ramp  []string
		value func(report.AggRow) float64
	}{
		{120, "Tempo Médio por Engine e Operação (segundos)", "%.2f", ylOrRd,
			func(r report.AggRow) float64 { return r.TimeMean }},
		{940, "Uso Médio de Memória por Engine e Operação (MB)", "%.1f", ylGnBu,
			func(r report.AggRow) float64 { return r.MemoryMean }},
	}

	for _, g := range grids {
		w := cellW * len(ops)
		h := cellH * len(engs)

		panel := Panel{
			X: g.x, Y: top, W: w, H: h,
			Title:  g.title,
			XLabel: "Operações ETL",
			YLabel: "Engine",
			NoAxes: true,
		}

		cells := make(map[[2]int]float64)
		vmin, vmax := math.Inf(1), math.Inf(-1)

		for ei, engine := range engs {
			for oi, op := range ops {
				var vals []float64

				for _, row := range rows {
					if row.Engine == engine && row.Operation == op {
						vals = append(vals, g.value(row))
					}
				}
				if len(vals) == 0 {
					continue
				}

				v := stat.Mean(vals, nil)
				cells[[2]int{ei, oi}] = v
				vmin = math.Min(vmin, v)
				vmax = math.Max(vmax, v)
			}
		}

		for ei, engine := range engs {
			panel.Texts = append(panel.Texts, Text{
				X: -10, Y: ei*cellH + cellH/2 + 4, S: engine,
				Size: 11, Anchor: "end", Fill: "#111111",
			})

			for oi := range ops {
				v, ok := cells[[2]int{ei, oi}]
				if !ok {
					continue
				}

				t := 0.0
				if vmax > vmin {
					t = (v - vmin) / (vmax - vmin)
				}

				bg := rampColor(g.ramp, t)
				panel.Rects = append(panel.Rects, Rect{
					X: oi * cellW, Y: ei * cellH, W: cellW, H: cellH,
					Fill: bg, Stroke: "#ffffff",
				})
				panel.Texts = append(panel.Texts, Text{
					X: oi*cellW + cellW/2, Y: ei*cellH + cellH/2 + 4,
					S:    fmt.Sprintf(g.fmt, v),
					Size: 10, Anchor: "middle", Fill: annotationColor(bg),
				})
			}
		}

		for oi, op := range ops {
			panel.Texts = append(panel.Texts, Text{
				X: oi*cellW + cellW/2, Y: h + 16, S: op,
				Size: 10, Anchor: "start", Fill: "#111111", Rotate: 45,
			})
		}

		fig.Panels = append(fig.Panels, panel)
	}

	return fig
}

// radarMetricNames in axis order: east, north, west, south.
var radarMetricNames = []string{
	"Velocidade Leitura", "Velocidade Escrita", "Eficiência Memória", "Performance Geral",
}

// radarFigure draws the normalized multi-metric comparison polygon
// per engine.
func radarFigure(rows []report.AggRow) *Figure {
	const (
		size   = 460
		radius = 180
	)

	cx, cy := size/2, size/2

	fig := &Figure{Width: 840, Height: 700, Title: "Comparação Multidimensional de Performance"}

	panel := Panel{X: 190, Y: 140, W: size, H: size, NoAxes: true}

	angles := make([]float64, len(radarMetricNames))
	for i := range angles {
		angles[i] = 2 * math.Pi * float64(i) / float64(len(angles))
	}

	// Ring grid and spokes.
	for _, r := range []float64{0.25, 0.5, 0.75, 1} {
		panel.Circles = append(panel.Circles, Circle{
			CX: cx, CY: cy, R: int(r * radius),
			Fill: "none", Stroke: "#d1d5db",
		})
		panel.Texts = append(panel.Texts, Text{
			X: cx + 5, Y: cy - int(r*radius) + 4,
			S: formatValue(r, 2), Size: 9, Anchor: "start", Fill: "#9ca3af",
		})
	}

	for i, angle := range angles {
		x := cx + int(radius*math.Cos(angle))
		y := cy - int(radius*math.Sin(angle))
		panel.Lines = append(panel.Lines, Line{X1: cx, Y1: cy, X2: x, Y2: y, Stroke: "#d1d5db", Width: 1})

		lx := cx + int((radius+18)*math.Cos(angle))
		ly := cy - int((radius+18)*math.Sin(angle))

		anchor := "middle"
		switch {
		case math.Cos(angle) > 0.5:
			anchor = "start"
		case math.Cos(angle) < -0.5:
			anchor = "end"
		}

		panel.Texts = append(panel.Texts, Text{
			X: lx, Y: ly + 4, S: radarMetricNames[i],
			Size: 12, Anchor: anchor, Fill: "#111111", Bold: true,
		})
	}

	for _, m := range radarEngineMetrics(rows) {
		var points []string

		for i, v := range m.values {
			x := cx + int(v*radius*math.Cos(angles[i]))
			y := cy - int(v*radius*math.Sin(angles[i]))
			points = append(points, fmt.Sprintf("%d,%d", x, y))
			panel.Circles = append(panel.Circles, Circle{CX: x, CY: y, R: 4, Fill: colorFor(m.engine)})
		}

		panel.Polygons = append(panel.Polygons, Polygon{
			Points:  strings.Join(points, " "),
			Fill:    colorFor(m.engine),
			Opacity: 0.25,
			Stroke:  colorFor(m.engine),
		})
		panel.Legend = append(panel.Legend, LegendItem{Name: engineLabel(m.engine), Color: colorFor(m.engine)})
	}

	fig.Panels = append(fig.Panels, panel)

	return fig
}

type engineMetrics struct {
	engine string
	values []float64
}

// radarEngineMetrics computes per-engine read speed, write speed,
// memory efficiency and overall performance as inverted means,
// min-max normalized across engines.
func radarEngineMetrics(rows []report.AggRow) []engineMetrics {
	engs := engines(rows)
	metrics := make([]engineMetrics, 0, len(engs))

	for _, engine := range engs {
		var (
			readTimes, writeTimes []float64
			opTimes               = make(map[string][]float64)
			opMems                = make(map[string][]float64)
		)

		for _, row := range rows {
			if row.Engine != engine {
				continue
			}

			if strings.Contains(row.Operation, "read") {
				readTimes = append(readTimes, row.TimeMean)
			}
			if strings.Contains(row.Operation, "write") {
				writeTimes = append(writeTimes, row.TimeMean)
			}

			opTimes[row.Operation] = append(opTimes[row.Operation], row.TimeMean)
			opMems[row.Operation] = append(opMems[row.Operation], row.MemoryMean)
		}

		avgTime := meanOfOpMeans(opTimes)
		avgMem := meanOfOpMeans(opMems)

		metrics = append(metrics, engineMetrics{
			engine: engine,
			values: []float64{
				invertRate(meanOf(readTimes)),
				invertRate(meanOf(writeTimes)),
				invertRate(avgMem),
				invertRate(avgTime),
			},
		})
	}

	// Min-max normalize each metric across engines.
	for i := range radarMetricNames {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, m := range metrics {
			lo = math.Min(lo, m.values[i])
			hi = math.Max(hi, m.values[i])
		}

		for j := range metrics {
			if hi > lo {
				metrics[j].values[i] = (metrics[j].values[i] - lo) / (hi - lo)
			} else {
				metrics[j].values[i] = 1
			}
		}
	}

	return metrics
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	return stat.Mean(xs, nil)
}

func meanOfOpMeans(byOp map[string][]float64) float64 {
	if len(byOp) == 0 {
		return 0
	}

	var opMeans []float64
	for _, vals := range byOp {
		opMeans = append(opMeans, stat.Mean(vals, nil))
	}

	return stat.Mean(opMeans, nil)
}

func invertRate(v float64) float64 {
	if v <= 0 {
		return 1
	}

	return 1 / v
}

// tempoVsMemoriaFigure draws log-log time×memory scatter panels per
// scenario with operation annotations.
func tempoVsMemoriaFigure(rows []report.AggRow) *Figure {
	engs := engines(rows)

	fig := &Figure{Width: 1560, Height: 520, Title: "Trade-off Tempo vs Memória por Cenário"}

	for i, scenario := range dataset.Scenarios() {
		data := filterScenario(rows, scenario)

		xmin, xmax := math.Inf(1), 0.0
		ymin, ymax := math.Inf(1), 0.0

		for _, row := range data {
			if row.TimeMean > 0 && row.TimeMean < xmin {
				xmin = row.TimeMean
			}
			xmax = math.Max(xmax, row.TimeMean)
			if row.MemoryMean > 0 && row.MemoryMean < ymin {
				ymin = row.MemoryMean
			}
			ymax = math.Max(ymax, row.MemoryMean)
		}
		if math.IsInf(xmin, 1) {
			xmin, xmax = 0.001, 1
		}
		if math.IsInf(ymin, 1) {
			ymin, ymax = 0.1, 100
		}

		xScale := newLogScale(xmin/2, xmax*2, panelW, false)
		yScale := newLogScale(ymin/2, ymax*2, panelH, true)
		yTicks, grid := yLogTicks(yScale, panelW)

		panel := Panel{
			X: panelLeft + i*panelStep, Y: panelTop, W: panelW, H: panelH,
			Title:  scenarioLabel(scenario),
			XLabel: "Tempo (segundos)",
			YLabel: "Memória (MB)",
			Grid:   grid,
			YTicks: yTicks,
		}

		for _, v := range logTicks(xScale.min, xScale.max) {
			x := xScale.scale(v)
			if x < 0 || x > panelW {
				continue
			}

			panel.XTicks = append(panel.XTicks, Tick{Pos: x, Label: formatValue(v, 6)})
			panel.Grid = append(panel.Grid, Line{X1: x, Y1: 0, X2: x, Y2: panelH})
		}

		for _, row := range data {
			x := xScale.scale(row.TimeMean)
			y := yScale.scale(row.MemoryMean)

			panel.Circles = append(panel.Circles, Circle{
				CX: x, CY: y, R: 6,
				Fill: colorFor(row.Engine), Opacity: 0.7, Stroke: "#111111",
			})
			panel.Texts = append(panel.Texts, Text{
				X: x + 7, Y: y - 7, S: row.Operation,
				Size: 8, Anchor: "start", Fill: "#374151",
			})
		}

		for _, engine := range engs {
			panel.Legend = append(panel.Legend, LegendItem{Name: engineLabel(engine), Color: colorFor(engine)})
		}

		fig.Panels = append(fig.Panels, panel)
	}

	return fig
}

var summaryTableHeader = []string{
	"engine", "scenario", "time_mean_mean", "time_mean_std", "memory_mean_mean", "memory_mean_std",
}

// writeSummaryTable writes the engine×scenario statistics table.
func writeSummaryTable(path string, rows []report.AggRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(summaryTableHeader); err != nil {
		return err
	}

	for _, engine := range engines(rows) {
		for _, scenario := range dataset.Scenarios() {
			var times, mems []float64

			for _, row := range rows {
				if row.Engine == engine && row.Scenario == scenario {
					times = append(times, row.TimeMean)
					mems = append(mems, row.MemoryMean)
				}
			}
			if len(times) == 0 {
				continue
			}

			rec := []string{
				engine,
				scenario,
				formatRounded(stat.Mean(times, nil)),
				formatRounded(stdOrZero(times)),
				formatRounded(stat.Mean(mems, nil)),
				formatRounded(stdOrZero(mems)),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}

	cw.Flush()

	return cw.Error()
}

func stdOrZero(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}

	return stat.StdDev(xs, nil)
}

func formatRounded(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

func rampColor(stops []string, t float64) string {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	pos := t * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}

	frac := pos - float64(i)
	r1, g1, b1 := hexRGB(stops[i])
	r2, g2, b2 := hexRGB(stops[i+1])

	return fmt.Sprintf("#%02x%02x%02x",
		lerpChannel(r1, r2, frac), lerpChannel(g1, g2, frac), lerpChannel(b1, b2, frac))
}

func hexRGB(s string) (int, int, int) {
	var r, g, b int
	fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b)

	return r, g, b
}

func lerpChannel(a, b int, t float64) int {
	return int(math.Round(float64(a) + t*float64(b-a)))
}

// annotationColor picks black or white text against a cell color.
func annotationColor(bg string) string {
	r, g, b := hexRGB(bg)
	luminance := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	if luminance > 150 {
		return "#111111"
	}

	return "#ffffff"
}

