// Package main provides the CLI entry point for etlbench, a dataframe
// engine benchmarking tool for ETL workloads.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/etlbench/etlbench/dataset"
	"github.com/etlbench/etlbench/engine"
	"github.com/etlbench/etlbench/harness"
	"github.com/etlbench/etlbench/plot"
	"github.com/etlbench/etlbench/report"
	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "etlbench",
		Short: "Dataframe engine benchmarking tool for ETL workloads",
		Long: `Etlbench runs the same ETL operations (CSV and Parquet reads and
writes, filters, joins and aggregations) through DuckDB, Gota and Gorilla
over exam microdata scenarios of increasing size, then renders comparison
charts and a final report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newGenerateCmd(logger))
	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newConsolidateCmd(logger))
	root.AddCommand(newPlotCmd(logger))
	root.AddCommand(newReportCmd(logger))
	root.AddCommand(newAllCmd(logger))

	return root
}

func newGenerateCmd(logger *slog.Logger) *cobra.Command {
	var (
		dataDir     string
		seed        int64
		pequenoRows int
		medioRows   int
		grandeRows  int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the synthetic input datasets",
		Long: `Generate the synthetic exam microdata for every scenario, the items
lookup table used by the join operations, and the Parquet twin of each CSV.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), logger, generateConfig{
				dataDir: dataDir,
				seed:    seed,
				rows: map[string]int{
					"pequeno": pequenoRows,
					"medio":   medioRows,
					"grande":  grandeRows,
				},
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dataDir, "data-dir", ".",
		"Directory to write the datasets under")
	flags.Int64Var(&seed, "seed", 0,
		"Random seed (0 = use current time)")
	flags.IntVar(&pequenoRows, "pequeno-rows", 1000,
		"Rows in the pequeno scenario")
	flags.IntVar(&medioRows, "medio-rows", 100000,
		"Rows in the medio scenario")
	flags.IntVar(&grandeRows, "grande-rows", 1000000,
		"Rows in the grande scenario")

	return cmd
}

type generateConfig struct {
	dataDir string
	seed    int64
	rows    map[string]int
}

func runGenerate(
	ctx context.Context,
	logger *slog.Logger,
	cfg generateConfig,
) error {
	seed := cfg.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger.InfoContext(ctx, "generating datasets",
		slog.String("data_dir", cfg.dataDir),
		slog.Int64("seed", seed),
	)

	// Step 1: Write the main CSV for each scenario.
	for i, scenario := range dataset.Scenarios() {
		summary, err := dataset.WriteScenario(cfg.dataDir, scenario, dataset.Config{
			Rows: cfg.rows[scenario],
			Seed: seed + int64(i),
		})
		if err != nil {
			return fmt.Errorf("write %s dataset: %w", scenario, err)
		}

		logger.InfoContext(ctx, "scenario written",
			slog.String("scenario", scenario),
			slog.Int("rows", summary.Rows),
			slog.Int("absentees", summary.Absentees),
		)
	}

	// Step 2: Write the items lookup shared by the join operations.
	items, err := dataset.WriteItems(cfg.dataDir, seed)
	if err != nil {
		return fmt.Errorf("write items lookup: %w", err)
	}

	logger.InfoContext(ctx, "items lookup written", slog.Int("rows", items))

	// Step 3: Produce the Parquet twin of each scenario CSV.
	reg, err := engine.NewRegistry()
	if err != nil {
		return fmt.Errorf("open engines: %w", err)
	}
	defer reg.Close()

	for _, scenario := range dataset.Scenarios() {
		ds, err := dataset.ForScenario(cfg.dataDir, scenario)
		if err != nil {
			return err
		}

		if err := reg.ConvertCSVToParquet(ctx, ds); err != nil {
			return fmt.Errorf("convert %s to parquet: %w", scenario, err)
		}

		logger.InfoContext(ctx, "parquet twin written",
			slog.String("scenario", scenario),
			slog.String("path", ds.ParquetPath),
		)
	}

	logger.InfoContext(ctx, "dataset generation complete")

	return nil
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		repeats int
		dataDir string
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "Benchmark every engine and operation for one scenario",
		Long: `Run every engine over every ETL operation for a single dataset
scenario, save the raw per-trial results and refresh the consolidated files.
The scenario defaults to pequeno.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario := "pequeno"
			if len(args) > 0 {
				scenario = args[0]
			}

			return runBenchmark(cmd.Context(), logger, runConfig{
				scenario: scenario,
				repeats:  repeats,
				dataDir:  dataDir,
				outDir:   outDir,
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&repeats, "repeats", 10,
		"Measured trials per engine and operation")
	flags.StringVar(&dataDir, "data-dir", ".",
		"Directory holding the input datasets")
	flags.StringVar(&outDir, "out-dir", ".",
		"Directory for results, charts and reports")

	return cmd
}

type runConfig struct {
	scenario string
	repeats  int
	dataDir  string
	outDir   string
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
) error {
	if err := benchmarkScenario(ctx, logger, cfg); err != nil {
		return err
	}

	return runConsolidate(ctx, logger, cfg.outDir)
}

func benchmarkScenario(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
) error {
	ds, err := dataset.ForScenario(cfg.dataDir, cfg.scenario)
	if err != nil {
		return err
	}

	ds.OutDir = cfg.outDir

	// Step 1: Verify the scenario inputs before measuring anything.
	if err := ds.Check(); err != nil {
		return fmt.Errorf("dataset not ready, run generate first: %w", err)
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("scenario", cfg.scenario),
		slog.Int("repeats", cfg.repeats),
	)

	// Step 2: Open every engine once; all trials reuse the same
	// connections.
	reg, err := engine.NewRegistry()
	if err != nil {
		return fmt.Errorf("open engines: %w", err)
	}
	defer reg.Close()

	// Step 3: Run the full engine x operation grid sequentially.
	runner := harness.NewRunner(cfg.repeats, logger)
	table := harness.NewTable()

	for _, eng := range engine.Engines() {
		logger.InfoContext(ctx, "benchmarking engine", slog.String("engine", eng))

		for _, op := range engine.Operations() {
			opFn, err := reg.Lookup(eng, op)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "running operation",
				slog.String("engine", eng),
				slog.String("operation", op),
			)

			label := harness.Label{
				Engine:    eng,
				Operation: op,
				Scenario:  cfg.scenario,
			}
			runner.Run(ctx, table, label, func(ctx context.Context) (harness.Outcome, error) {
				return opFn(ctx, ds)
			})

			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}

	// Step 4: Persist the raw samples and print the run summary.
	path, err := report.SaveResults(cfg.outDir, cfg.scenario, table.Samples())
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}

	logger.InfoContext(ctx, "results saved",
		slog.String("path", path),
		slog.Int("samples", table.Len()),
	)

	if err := report.WriteRunSummary(os.Stdout, table.Samples()); err != nil {
		return fmt.Errorf("summarize run: %w", err)
	}

	return nil
}

func newConsolidateCmd(logger *slog.Logger) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge per-scenario results into the consolidated files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsolidate(cmd.Context(), logger, outDir)
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", ".",
		"Directory holding the per-scenario result files")

	return cmd
}

func runConsolidate(ctx context.Context, logger *slog.Logger, outDir string) error {
	samples, err := report.Consolidate(outDir, dataset.Scenarios(), logger)
	if err != nil {
		return err
	}

	genPath, aggPath, err := report.WriteConsolidated(outDir, samples)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "consolidated results written",
		slog.String("general", genPath),
		slog.String("aggregated", aggPath),
		slog.Int("samples", len(samples)),
	)

	return report.WriteGroupedSummary(os.Stdout, report.Aggregate(samples))
}

func newPlotCmd(logger *slog.Logger) *cobra.Command {
	var (
		outDir      string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render charts from the aggregated results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlot(cmd.Context(), logger, plotConfig{
				outDir:      outDir,
				interactive: interactive,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&outDir, "out-dir", ".",
		"Directory holding the aggregated results")
	flags.BoolVar(&interactive, "interactive", false,
		"Also render the interactive HTML pages")

	return cmd
}

type plotConfig struct {
	outDir      string
	interactive bool
}

func runPlot(ctx context.Context, logger *slog.Logger, cfg plotConfig) error {
	rows, err := readAggregated(cfg.outDir)
	if err != nil {
		return err
	}

	paths, err := plot.WriteStatic(cfg.outDir, rows)
	if err != nil {
		return fmt.Errorf("render static charts: %w", err)
	}

	for _, path := range paths {
		logger.InfoContext(ctx, "chart written", slog.String("path", path))
	}

	if !cfg.interactive {
		return nil
	}

	pages, err := plot.WriteInteractive(cfg.outDir, rows)
	if err != nil {
		return fmt.Errorf("render interactive charts: %w", err)
	}

	for _, path := range pages {
		logger.InfoContext(ctx, "page written", slog.String("path", path))
	}

	return nil
}

func newReportCmd(logger *slog.Logger) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the final Markdown report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd.Context(), logger, outDir)
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", ".",
		"Directory holding the aggregated results")

	return cmd
}

func runReport(ctx context.Context, logger *slog.Logger, outDir string) error {
	rows, err := readAggregated(outDir)
	if err != nil {
		return err
	}

	path := filepath.Join(outDir, "RELATORIO_FINAL.md")

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := report.WriteFinal(f, rows); err != nil {
		return fmt.Errorf("write final report: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	logger.InfoContext(ctx, "final report written", slog.String("path", path))

	return nil
}

func newAllCmd(logger *slog.Logger) *cobra.Command {
	var (
		repeats int
		dataDir string
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run the complete pipeline over every scenario",
		Long: `Benchmark every scenario from smallest to largest, consolidate the
results, render every chart and write the final report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAll(cmd.Context(), logger, allConfig{
				repeats: repeats,
				dataDir: dataDir,
				outDir:  outDir,
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&repeats, "repeats", 10,
		"Measured trials per engine and operation")
	flags.StringVar(&dataDir, "data-dir", ".",
		"Directory holding the input datasets")
	flags.StringVar(&outDir, "out-dir", ".",
		"Directory for results, charts and reports")

	return cmd
}

type allConfig struct {
	repeats int
	dataDir string
	outDir  string
}

func runAll(ctx context.Context, logger *slog.Logger, cfg allConfig) error {
	started := time.Now()

	// Step 1: Benchmark every scenario, smallest first.
	for _, scenario := range dataset.Scenarios() {
		err := benchmarkScenario(ctx, logger, runConfig{
			scenario: scenario,
			repeats:  cfg.repeats,
			dataDir:  cfg.dataDir,
			outDir:   cfg.outDir,
		})
		if err != nil {
			return fmt.Errorf("benchmark %s: %w", scenario, err)
		}
	}

	// Step 2: Consolidate into the cross-scenario files.
	if err := runConsolidate(ctx, logger, cfg.outDir); err != nil {
		return err
	}

	rows, err := readAggregated(cfg.outDir)
	if err != nil {
		return err
	}

	// Step 3: Render the charts. Interactive pages are best effort; the
	// static charts and the report still land if they fail.
	if _, err := plot.WriteStatic(cfg.outDir, rows); err != nil {
		return fmt.Errorf("render static charts: %w", err)
	}

	if _, err := plot.WriteInteractive(cfg.outDir, rows); err != nil {
		logger.WarnContext(ctx, "interactive charts failed",
			slog.String("error", err.Error()),
		)
	}

	// Step 4: Write the final report.
	if err := runReport(ctx, logger, cfg.outDir); err != nil {
		return err
	}

	logger.InfoContext(ctx, "pipeline complete",
		slog.Duration("elapsed", time.Since(started).Round(time.Second)),
	)

	return nil
}

// readAggregated loads the aggregated rows the charts and the final
// report are derived from.
func readAggregated(outDir string) ([]report.AggRow, error) {
	path := report.AggregatedFile(outDir)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no aggregated results at %s, run the benchmark first", path)
		}

		return nil, fmt.Errorf("open aggregated results: %w", err)
	}
	defer f.Close()

	rows, err := report.ReadAggregated(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return rows, nil
}
