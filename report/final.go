package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// WriteFinal writes the RELATORIO_FINAL.md content from the
// aggregated rows.
func WriteFinal(w io.Writer, rows []AggRow) error {
	if len(rows) == 0 {
		return errors.New("no aggregated rows to report")
	}

	fmt.Fprintf(w, "# Relatório Final - Benchmark ETL Engines\n\n")
	fmt.Fprintf(w, "**Data de geração:** %s\n\n", time.Now().Format("02/01/2006 15:04:05"))

	fmt.Fprintf(w, "## Resumo Executivo\n\n")
	fmt.Fprintf(w, "Este relatório apresenta os resultados do benchmark comparativo entre "+
		"três engines de processamento de dados: **DuckDB**, **Gota** e **Gorilla**, "+
		"executado sobre os microdados do ENEM 2023.\n\n")

	writeFinalOverview(w, rows)

	fmt.Fprintf(w, "## Arquivos Gerados\n\n")
	fmt.Fprintf(w, "### Dados Brutos\n")
	fmt.Fprintf(w, "- `resultados_geral.csv` - Resultados consolidados de todos os cenários\n")
	fmt.Fprintf(w, "- `resultados_geral_agrupado.csv` - Dados agregados com médias e desvios padrão\n\n")

	fmt.Fprintf(w, "### Visualizações Estáticas (Pasta: graficos_benchmark/)\n")
	fmt.Fprintf(w, "1. `tempo_por_engine_cenario.svg` - Comparação de tempo de execução\n")
	fmt.Fprintf(w, "2. `memoria_por_engine_cenario.svg` - Comparação de uso de memória\n")
	fmt.Fprintf(w, "3. `escalabilidade_tempo.svg` - Análise de escalabilidade temporal\n")
	fmt.Fprintf(w, "4. `escalabilidade_memoria.svg` - Análise de escalabilidade de memória\n")
	fmt.Fprintf(w, "5. `heatmap_performance.svg` - Mapa de calor da performance\n")
	fmt.Fprintf(w, "6. `radar_chart_engines.svg` - Comparação multidimensional\n")
	fmt.Fprintf(w, "7. `tempo_vs_memoria.svg` - Análise de trade-off\n")
	fmt.Fprintf(w, "8. `tabela_resumo.csv` - Tabela resumo estatístico\n\n")

	fmt.Fprintf(w, "### Visualizações Interativas (Pasta: graficos_interativos/)\n")
	fmt.Fprintf(w, "- `tempo_por_engine_<cenario>.html` e `memoria_por_engine_<cenario>.html` - "+
		"Comparações interativas por cenário\n")
	fmt.Fprintf(w, "- `escalabilidade_tempo_<operacao>.html` e `escalabilidade_memoria_<operacao>.html` - "+
		"Escalabilidade interativa por operação\n")
	fmt.Fprintf(w, "- `analise_tradeoff.html` - Análise de trade-off tempo × memória\n\n")

	fmt.Fprintf(w, "## Recomendações para uso no TCC\n\n")
	fmt.Fprintf(w, "### Figuras Principais Recomendadas:\n")
	fmt.Fprintf(w, "1. **Figura 1:** `tempo_por_engine_cenario.svg` - Mostra claramente a diferença de performance\n")
	fmt.Fprintf(w, "2. **Figura 2:** `memoria_por_engine_cenario.svg` - Essencial para análise de recursos\n")
	fmt.Fprintf(w, "3. **Figura 3:** `escalabilidade_tempo.svg` - Demonstra comportamento com diferentes volumes\n")
	fmt.Fprintf(w, "4. **Figura 4:** `heatmap_performance.svg` - Visão geral consolidada\n")
	fmt.Fprintf(w, "5. **Figura 5:** `radar_chart_engines.svg` - Comparação multidimensional\n\n")

	fmt.Fprintf(w, "### Tabelas:\n")
	fmt.Fprintf(w, "- Use `tabela_resumo.csv` para tabelas estatísticas detalhadas\n")
	fmt.Fprintf(w, "- Dados de `resultados_geral_agrupado.csv` para análises específicas\n\n")

	fmt.Fprintf(w, "### Análise Interativa:\n")
	fmt.Fprintf(w, "- Use os gráficos HTML da pasta `graficos_interativos/` durante a apresentação\n")
	fmt.Fprintf(w, "- A análise de trade-off pode ser usada para demonstrações ao vivo\n\n")

	fmt.Fprintf(w, "## Metodologia\n\n")
	fmt.Fprintf(w, "- **Repetições:** 10 execuções por operação\n")
	fmt.Fprintf(w, "- **Métricas:** Tempo de execução (segundos) e uso de memória (MB)\n")
	fmt.Fprintf(w, "- **Cenários:** pequeno (1K linhas), medio (100K linhas), grande (dataset completo)\n")
	fmt.Fprintf(w, "- **Garbage Collection:** Forçado entre medições para precisão\n\n")

	fmt.Fprintf(w, "## Dados Utilizados\n\n")
	fmt.Fprintf(w, "- **Fonte:** Microdados ENEM 2023 (INEP)\n")
	fmt.Fprintf(w, "- **Formatos:** CSV e Parquet\n")
	fmt.Fprintf(w, "- **Tamanhos:** 3 volumes diferentes para análise de escalabilidade\n")
	fmt.Fprintf(w, "- **Operações:** 7 operações típicas de ETL\n\n")

	fmt.Fprintf(w, "---\n\n")
	fmt.Fprintf(w, "*Relatório gerado automaticamente pelo sistema de benchmark.*\n")

	return nil
}

// writeFinalOverview renders the per-engine means across operations
// for each scenario.
func writeFinalOverview(w io.Writer, rows []AggRow) {
	type pair struct{ engine, scenario string }

	sums := make(map[pair]*group)

	for _, row := range rows {
		p := pair{row.Engine, row.Scenario}

		g, ok := sums[p]
		if !ok {
			g = &group{}
			sums[p] = g
		}

		g.times = append(g.times, row.TimeMean)
		g.mems = append(g.mems, row.MemoryMean)
	}

	pairs := make([]pair, 0, len(sums))
	for p := range sums {
		pairs = append(pairs, p)
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].engine != pairs[j].engine {
			return pairs[i].engine < pairs[j].engine
		}

		return pairs[i].scenario < pairs[j].scenario
	})

	fmt.Fprintf(w, "## Resumo dos Resultados\n\n")
	fmt.Fprintf(w, "| %-10s | %-8s | %-15s | %-18s |\n",
		"Engine", "Cenário", "Tempo médio (s)", "Memória média (MB)")
	fmt.Fprintf(w, "|%s|%s|%s|%s|\n",
		strings.Repeat("-", 12), strings.Repeat("-", 10),
		strings.Repeat("-", 17), strings.Repeat("-", 20))

	for _, p := range pairs {
		g := sums[p]
		fmt.Fprintf(w, "| %-10s | %-8s | %15.4f | %18.4f |\n",
			p.engine, p.scenario, stat.Mean(g.times, nil), stat.Mean(g.mems, nil))
	}

	fmt.Fprintf(w, "\n")
}
