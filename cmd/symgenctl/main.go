package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"symgen/internal/fitness"
	"symgen/internal/model"
	"symgen/internal/storage"
	symapi "symgen/pkg/symgen"
)

const (
	benchmarksDir = "benchmarks"
	exportsDir    = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "table":
		return runTable(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "stats":
		return runStats(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "targets":
		return runTargets(args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: symgenctl <run|table|runs|fitness|stats|export|targets> [flags]", msg)
}

func newClient(storeKind, dbPath string) (*symapi.Client, error) {
	client, err := symapi.New(symapi.Options{
		StoreKind:     storeKind,
		DBPath:        dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(context.Background()); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	req, rates, configPath, storeKind, dbPath := runFlags(fs)
	quiet := fs.Bool("quiet", false, "suppress per-generation progress lines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})
	if err := applyConfig(req, rates, *configPath, setFlags); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if !*quiet {
		req.Progress = func(g model.GenerationStats) {
			fmt.Printf("generation=%d best_fitness=%.6f mean_fitness=%.6f best=%s\n",
				g.Generation, g.BestFitness, g.MeanFitness, g.BestExpression)
		}
	}

	summary, err := client.Run(ctx, *req)
	if err != nil {
		return err
	}

	// One score per individual per generation, minus the cached elite.
	evaluations := int64(summary.Generations)*int64(req.PopulationSize) - int64(summary.Generations-1)
	fmt.Printf("run_id=%s target=%s seed=%d generations=%d evaluations=%s elapsed=%s\n",
		summary.RunID, summary.Target, summary.Seed, summary.Generations,
		humanize.Comma(evaluations), summary.Elapsed.Round(time.Millisecond))
	fmt.Printf("best_fitness=%.6f best=%s\n", summary.FinalBestFitness, summary.BestExpression)
	fmt.Printf("artifacts=%s\n", summary.ArtifactsDir)
	return nil
}

func runTable(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("table", flag.ContinueOnError)
	req, rates, configPath, storeKind, dbPath := runFlags(fs)
	jsonOut := fs.Bool("json", false, "emit table rows as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})
	if err := applyConfig(req, rates, *configPath, setFlags); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	table, err := client.Table(ctx, *req)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}

	fmt.Printf("target=%s best=%s\n", table.Target, table.BestExpression)
	fmt.Printf("%8s %14s %14s %14s\n", "x", "target", "evolved", "error")
	for _, row := range table.Rows {
		if row.Invalid {
			fmt.Printf("%8.0f %14.4f %14s %14s\n", row.X, row.Want, "n/a", "n/a")
			continue
		}
		diff := row.Got - row.Want
		if diff < 0 {
			diff = -diff
		}
		fmt.Printf("%8.0f %14.4f %14.4f %14.4f\n", row.X, row.Want, row.Got, diff)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to print")
	jsonOut := fs.Bool("json", false, "emit runs as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "symgen.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, symapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, item := range runs {
		created := item.CreatedAtUTC
		if ts, err := time.Parse(time.RFC3339Nano, item.CreatedAtUTC); err == nil {
			created = humanize.Time(ts)
		}
		fmt.Printf("run_id=%s created=%s target=%s seed=%d pop=%d gens=%d best_fitness=%.6f best=%s\n",
			item.RunID, created, item.Target, item.Seed,
			item.PopulationSize, item.Generations, item.BestFitness, item.BestExpression)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "symgen.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("fitness requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, symapi.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i, best)
	}
	return nil
}

func runStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show statistics for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit statistics as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "symgen.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("stats requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.Stats(ctx, symapi.StatsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no statistics")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for _, g := range history {
		fmt.Printf("generation=%d best_fitness=%.6f mean_fitness=%.6f pop=%d best=%s\n",
			g.Generation, g.BestFitness, g.MeanFitness, g.PopulationSize, g.BestExpression)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", exportsDir, "destination directory")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "symgen.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, symapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func runTargets(args []string) error {
	fs := flag.NewFlagSet("targets", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Println(strings.Join(fitness.TargetNames(), "\n"))
	return nil
}
