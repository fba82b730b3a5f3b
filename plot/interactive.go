package plot

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/etlbench/etlbench/dataset"
	"github.com/etlbench/etlbench/report"
)

// chartSpec is the JSON payload embedded in an interactive page.
type chartSpec struct {
	Kind       string        `json:"kind"`
	Title      string        `json:"title"`
	XLabel     string        `json:"xLabel"`
	YLabel     string        `json:"yLabel"`
	LogX       bool          `json:"logX,omitempty"`
	LogY       bool          `json:"logY,omitempty"`
	Categories []string      `json:"categories,omitempty"`
	Scenarios  []string      `json:"scenarios,omitempty"`
	Series     []chartSeries `json:"series"`
}

type chartSeries struct {
	Name   string         `json:"name"`
	Color  string         `json:"color"`
	Values []*float64     `json:"values,omitempty"`
	Errors []float64      `json:"errors,omitempty"`
	Points []scatterPoint `json:"points,omitempty"`
}

type scatterPoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Label    string  `json:"label"`
	Scenario string  `json:"scenario"`
}

// WriteInteractive renders every interactive page into
// dir/graficos_interativos and returns the written paths.
func WriteInteractive(dir string, rows []report.AggRow) ([]string, error) {
	if len(rows) == 0 {
		return nil, errors.New("no aggregated rows to plot")
	}

	outDir := filepath.Join(dir, "graficos_interativos")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	tmpl := template.Must(template.New("page").Parse(pageTemplate))

	var paths []string

	write := func(name string, spec chartSpec) error {
		path := filepath.Join(outDir, name)

		payload, err := json.Marshal(spec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}

		f, err := os.Create(path)
		if err != nil {
			return err
		}

		data := struct {
			Title string
			Spec  template.JS
		}{Title: spec.Title, Spec: template.JS(payload)}

		if err := tmpl.Execute(f, data); err != nil {
			f.Close()

			return fmt.Errorf("render %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}

		paths = append(paths, path)

		return nil
	}

	for _, scenario := range dataset.Scenarios() {
		spec := barsSpec(rows, scenario,
			"Tempo de Execução - "+scenarioLabel(scenario), "Tempo (segundos)",
			func(r report.AggRow) (float64, float64) { return r.TimeMean, r.TimeStd })
		if err := write("tempo_por_engine_"+scenario+".html", spec); err != nil {
			return nil, err
		}

		spec = barsSpec(rows, scenario,
			"Uso de Memória - "+scenarioLabel(scenario), "Memória (MB)",
			func(r report.AggRow) (float64, float64) { return r.MemoryMean, r.MemoryStd })
		if err := write("memoria_por_engine_"+scenario+".html", spec); err != nil {
			return nil, err
		}
	}

	for _, op := range operations(rows) {
		spec := linesSpec(rows, op,
			"Escalabilidade de Tempo - "+opLabel(op), "Tempo (segundos)",
			func(r report.AggRow) (float64, float64) { return r.TimeMean, r.TimeStd })
		if err := write("escalabilidade_tempo_"+op+".html", spec); err != nil {
			return nil, err
		}

		spec = linesSpec(rows, op,
			"Escalabilidade de Memória - "+opLabel(op), "Memória (MB)",
			func(r report.AggRow) (float64, float64) { return r.MemoryMean, r.MemoryStd })
		if err := write("escalabilidade_memoria_"+op+".html", spec); err != nil {
			return nil, err
		}
	}

	if err := write("analise_tradeoff.html", tradeoffSpec(rows)); err != nil {
		return nil, err
	}

	return paths, nil
}

// barsSpec builds a grouped-bar chart of one scenario's operations.
func barsSpec(rows []report.AggRow, scenario, title, ylabel string, value func(report.AggRow) (float64, float64)) chartSpec {
	data := filterScenario(rows, scenario)
	ops := operations(data)

	spec := chartSpec{
		Kind:       "bars",
		Title:      title,
		XLabel:     "Operações ETL",
		YLabel:     ylabel,
		Categories: ops,
	}

	for _, engine := range engines(data) {
		series := chartSeries{
			Name:   engineLabel(engine),
			Color:  colorFor(engine),
			Values: make([]*float64, len(ops)),
			Errors: make([]float64, len(ops)),
		}

		for i, op := range ops {
			if row, ok := find(data, engine, op, scenario); ok {
				v, std := value(row)
				series.Values[i] = &v
				series.Errors[i] = std
			}
		}

		spec.Series = append(spec.Series, series)
	}

	return spec
}

// linesSpec builds a log-scale line chart of one operation across the
// dataset tiers.
func linesSpec(rows []report.AggRow, op, title, ylabel string, value func(report.AggRow) (float64, float64)) chartSpec {
	data := filterOperation(rows, op)
	tiers := dataset.Scenarios()

	spec := chartSpec{
		Kind:       "lines",
		Title:      title,
		XLabel:     "Tamanho do Dataset",
		YLabel:     ylabel,
		LogY:       true,
		Categories: tiers,
	}

	for _, engine := range engines(data) {
		series := chartSeries{
			Name:   engineLabel(engine),
			Color:  colorFor(engine),
			Values: make([]*float64, len(tiers)),
			Errors: make([]float64, len(tiers)),
		}

		for i, tier := range tiers {
			if row, ok := find(data, engine, op, tier); ok {
				v, std := value(row)
				series.Values[i] = &v
				series.Errors[i] = std
			}
		}

		spec.Series = append(spec.Series, series)
	}

	return spec
}

// tradeoffSpec builds the time×memory scatter with a scenario
// selector.
func tradeoffSpec(rows []report.AggRow) chartSpec {
	spec := chartSpec{
		Kind:      "scatter",
		Title:     "Análise de Trade-off: Tempo vs Memória",
		XLabel:    "Tempo (segundos)",
		YLabel:    "Memória (MB)",
		LogX:      true,
		LogY:      true,
		Scenarios: dataset.Scenarios(),
	}

	for _, engine := range engines(rows) {
		series := chartSeries{Name: engineLabel(engine), Color: colorFor(engine)}

		for _, row := range rows {
			if row.Engine != engine {
				continue
			}

			series.Points = append(series.Points, scatterPoint{
				X:        row.TimeMean,
				Y:        row.MemoryMean,
				Label:    row.Operation,
				Scenario: row.Scenario,
			})
		}

		spec.Series = append(spec.Series, series)
	}

	return spec
}

const pageTemplate = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: sans-serif; margin: 24px; color: #111; background: #fff; }
  h1 { font-size: 20px; }
  #controls { margin: 8px 0; font-size: 14px; }
  #legend { margin: 8px 0 16px 0; font-size: 14px; }
  #legend span.item { margin-right: 16px; cursor: pointer; user-select: none; }
  #legend span.item.off { opacity: 0.35; }
  #legend i { display: inline-block; width: 12px; height: 12px; margin-right: 5px; }
  #tooltip { position: absolute; background: #111; color: #fff; padding: 6px 9px;
             border-radius: 4px; font-size: 12px; pointer-events: none;
             visibility: hidden; white-space: pre; }
  svg text { font-family: sans-serif; fill: #111; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div id="controls"></div>
<div id="legend"></div>
<svg id="chart" width="920" height="560"></svg>
<div id="tooltip"></div>
<script>
const spec = {{.Spec}};
(function () {
  const svg = document.getElementById("chart");
  const tooltip = document.getElementById("tooltip");
  const legend = document.getElementById("legend");
  const controls = document.getElementById("controls");
  const NS = "http://www.w3.org/2000/svg";
  const M = {top: 20, right: 40, bottom: 95, left: 85};
  const W = +svg.getAttribute("width") - M.left - M.right;
  const H = +svg.getAttribute("height") - M.top - M.bottom;
  const hidden = new Set();
  let scenario = spec.scenarios && spec.scenarios.length ? spec.scenarios[0] : null;

  function el(name, attrs, parent) {
    const node = document.createElementNS(NS, name);
    for (const k in attrs) node.setAttribute(k, attrs[k]);
    (parent || svg).appendChild(node);
    return node;
  }
  function textEl(attrs, content, parent) {
    const node = el("text", attrs, parent);
    node.textContent = content;
    return node;
  }
  function showTip(evt, text) {
    tooltip.textContent = text;
    tooltip.style.visibility = "visible";
    tooltip.style.left = (evt.pageX + 12) + "px";
    tooltip.style.top = (evt.pageY - 10) + "px";
  }
  function hideTip() { tooltip.style.visibility = "hidden"; }
  function attachTip(node, text) {
    node.addEventListener("mousemove", function (evt) { showTip(evt, text); });
    node.addEventListener("mouseleave", hideTip);
  }
  function fmt(v) {
    if (v === 0) return "0";
    if (Math.abs(v) >= 100) return v.toFixed(1);
    if (Math.abs(v) >= 1) return v.toFixed(2);
    return v.toPrecision(3);
  }
  function makeScale(min, max, size, logMode) {
    if (logMode) {
      const lo = Math.log10(min), hi = Math.log10(max);
      return function (v) { return (Math.log10(Math.max(v, min)) - lo) / (hi - lo) * size; };
    }
    return function (v) { return (v - min) / (max - min) * size; };
  }
  function ticksFor(min, max, logMode) {
    if (logMode) {
      const out = [];
      for (let e = Math.floor(Math.log10(min)); e <= Math.ceil(Math.log10(max)); e++) {
        const v = Math.pow(10, e);
        if (v >= min && v <= max) out.push(v);
      }
      return out;
    }
    const out = [], step = (max - min) / 5;
    for (let i = 0; i <= 5; i++) out.push(min + i * step);
    return out;
  }
  function visibleSeries() { return spec.series.filter(function (s) { return !hidden.has(s.name); }); }

  function drawYAxis(g, min, max, logMode) {
    const y = makeScale(min, max, H, logMode);
    el("line", {x1: 0, y1: 0, x2: 0, y2: H, stroke: "#111"}, g);
    ticksFor(min, max, logMode).forEach(function (v) {
      const py = H - y(v);
      el("line", {x1: -5, y1: py, x2: 0, y2: py, stroke: "#111"}, g);
      el("line", {x1: 0, y1: py, x2: W, y2: py, stroke: "#e5e7eb"}, g);
      textEl({x: -9, y: py + 4, "text-anchor": "end", "font-size": 11}, fmt(v), g);
    });
    textEl({transform: "rotate(-90)", x: -H / 2, y: -58, "text-anchor": "middle", "font-size": 12},
      spec.yLabel, g);
  }
  function drawXAxis(g, min, max, logMode) {
    const x = makeScale(min, max, W, logMode);
    el("line", {x1: 0, y1: H, x2: W, y2: H, stroke: "#111"}, g);
    ticksFor(min, max, logMode).forEach(function (v) {
      const px = x(v);
      el("line", {x1: px, y1: H, x2: px, y2: H + 5, stroke: "#111"}, g);
      el("line", {x1: px, y1: 0, x2: px, y2: H, stroke: "#e5e7eb"}, g);
      textEl({x: px, y: H + 20, "text-anchor": "middle", "font-size": 11}, fmt(v), g);
    });
    textEl({x: W / 2, y: H + 48, "text-anchor": "middle", "font-size": 12}, spec.xLabel, g);
  }
  function drawXBand(g, cats, slot) {
    el("line", {x1: 0, y1: H, x2: W, y2: H, stroke: "#111"}, g);
    const rotate = cats.length > 4;
    cats.forEach(function (c, i) {
      const px = i * slot + slot / 2;
      el("line", {x1: px, y1: H, x2: px, y2: H + 5, stroke: "#111"}, g);
      const attrs = {x: px, y: H + 18, "font-size": 11};
      if (rotate) {
        attrs["text-anchor"] = "start";
        attrs.transform = "rotate(45 " + px + " " + (H + 18) + ")";
      } else {
        attrs["text-anchor"] = "middle";
      }
      textEl(attrs, c, g);
    });
    textEl({x: W / 2, y: H + 62, "text-anchor": "middle", "font-size": 12}, spec.xLabel, g);
  }

  function renderBars(g) {
    const cats = spec.categories;
    const series = visibleSeries();
    let ymax = 0;
    series.forEach(function (s) {
      s.values.forEach(function (v, i) {
        if (v === null) return;
        ymax = Math.max(ymax, v + (s.errors ? s.errors[i] : 0));
      });
    });
    if (ymax === 0) ymax = 1;
    const top = ymax * 1.1;
    const y = makeScale(0, top, H, false);
    const slot = W / cats.length;
    const inner = slot * 0.7;
    const bw = series.length ? inner / series.length : inner;
    drawYAxis(g, 0, top, false);
    drawXBand(g, cats, slot);
    series.forEach(function (s, si) {
      s.values.forEach(function (v, i) {
        if (v === null) return;
        const px = i * slot + (slot - inner) / 2 + si * bw;
        const rect = el("rect", {
          x: px, y: H - y(v), width: Math.max(bw - 2, 1), height: y(v), fill: s.color
        }, g);
        const err = s.errors ? s.errors[i] : 0;
        attachTip(rect, s.name + " - " + cats[i] + "\n" + spec.yLabel + ": " + fmt(v) +
          (err > 0 ? " ± " + fmt(err) : ""));
        if (err > 0) {
          const cx = px + bw / 2;
          const lo = H - y(Math.max(v - err, 0));
          const hi = H - y(v + err);
          el("line", {x1: cx, y1: lo, x2: cx, y2: hi, stroke: "#111"}, g);
          el("line", {x1: cx - 4, y1: hi, x2: cx + 4, y2: hi, stroke: "#111"}, g);
          el("line", {x1: cx - 4, y1: lo, x2: cx + 4, y2: lo, stroke: "#111"}, g);
        }
      });
    });
  }

  function renderLines(g) {
    const cats = spec.categories;
    const series = visibleSeries();
    let ymin = Infinity, ymax = 0;
    series.forEach(function (s) {
      s.values.forEach(function (v, i) {
        if (v === null || v <= 0) return;
        ymin = Math.min(ymin, v);
        ymax = Math.max(ymax, v + (s.errors ? s.errors[i] : 0));
      });
    });
    if (!isFinite(ymin)) { ymin = 0.1; ymax = 10; }
    const logMode = !!spec.logY;
    const lo = logMode ? ymin / 2 : 0;
    const hi = logMode ? ymax * 2 : ymax * 1.1;
    const y = makeScale(lo, hi, H, logMode);
    const slot = W / cats.length;
    drawYAxis(g, lo, hi, logMode);
    drawXBand(g, cats, slot);
    series.forEach(function (s) {
      let d = "";
      s.values.forEach(function (v, i) {
        if (v === null) return;
        d += (d ? " L" : "M") + (i * slot + slot / 2) + "," + (H - y(v));
      });
      if (d.indexOf("L") > 0) {
        el("path", {d: d, fill: "none", stroke: s.color, "stroke-width": 3}, g);
      }
      s.values.forEach(function (v, i) {
        if (v === null) return;
        const px = i * slot + slot / 2;
        const py = H - y(v);
        const err = s.errors ? s.errors[i] : 0;
        if (err > 0) {
          el("line", {
            x1: px, y1: H - y(Math.max(v - err, lo)), x2: px, y2: H - y(v + err),
            stroke: s.color, "stroke-opacity": 0.4, "stroke-width": 2
          }, g);
        }
        const dot = el("circle", {cx: px, cy: py, r: 6, fill: s.color}, g);
        attachTip(dot, s.name + " - " + cats[i] + "\n" + spec.yLabel + ": " + fmt(v) +
          (err > 0 ? " ± " + fmt(err) : ""));
      });
    });
  }

  function renderScatter(g) {
    const series = visibleSeries();
    const pts = [];
    series.forEach(function (s) {
      (s.points || []).forEach(function (p) {
        if (!scenario || p.scenario === scenario) pts.push({s: s, p: p});
      });
    });
    let xmin = Infinity, xmax = 0, ymin = Infinity, ymax = 0;
    pts.forEach(function (d) {
      if (d.p.x > 0) { xmin = Math.min(xmin, d.p.x); xmax = Math.max(xmax, d.p.x); }
      if (d.p.y > 0) { ymin = Math.min(ymin, d.p.y); ymax = Math.max(ymax, d.p.y); }
    });
    if (!isFinite(xmin)) { xmin = 0.001; xmax = 1; }
    if (!isFinite(ymin)) { ymin = 0.1; ymax = 100; }
    const x = makeScale(xmin / 2, xmax * 2, W, !!spec.logX);
    const y = makeScale(ymin / 2, ymax * 2, H, !!spec.logY);
    drawYAxis(g, ymin / 2, ymax * 2, !!spec.logY);
    drawXAxis(g, xmin / 2, xmax * 2, !!spec.logX);
    pts.forEach(function (d) {
      const px = x(d.p.x);
      const py = H - y(d.p.y);
      const dot = el("circle", {
        cx: px, cy: py, r: 7, fill: d.s.color, "fill-opacity": 0.75,
        stroke: "#111", "stroke-width": 0.5
      }, g);
      attachTip(dot, d.s.name + " - " + d.p.label +
        "\nTempo: " + fmt(d.p.x) + " s\nMemória: " + fmt(d.p.y) + " MB" +
        (d.p.scenario ? "\nCenário: " + d.p.scenario : ""));
      textEl({x: px + 9, y: py - 9, "font-size": 10, fill: "#374151"}, d.p.label, g);
    });
  }

  function render() {
    svg.innerHTML = "";
    const g = el("g", {transform: "translate(" + M.left + "," + M.top + ")"});
    if (spec.kind === "bars") renderBars(g);
    else if (spec.kind === "lines") renderLines(g);
    else renderScatter(g);
  }

  function buildLegend() {
    legend.innerHTML = "";
    spec.series.forEach(function (s) {
      const span = document.createElement("span");
      span.className = "item" + (hidden.has(s.name) ? " off" : "");
      const sw = document.createElement("i");
      sw.style.background = s.color;
      span.appendChild(sw);
      span.appendChild(document.createTextNode(s.name));
      span.addEventListener("click", function () {
        if (hidden.has(s.name)) hidden.delete(s.name); else hidden.add(s.name);
        buildLegend();
        render();
      });
      legend.appendChild(span);
    });
  }

  if (spec.scenarios && spec.scenarios.length) {
    const label = document.createElement("label");
    label.appendChild(document.createTextNode("Cenário: "));
    const sel = document.createElement("select");
    spec.scenarios.forEach(function (sc) {
      const opt = document.createElement("option");
      opt.value = sc;
      opt.textContent = sc;
      sel.appendChild(opt);
    });
    sel.addEventListener("change", function () { scenario = sel.value; render(); });
    label.appendChild(sel);
    controls.appendChild(label);
  }

  buildLegend();
  render();
})();
</script>
</body>
</html>
`
