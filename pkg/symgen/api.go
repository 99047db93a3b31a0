// Package symgen is the public driver API: it runs evolution sessions,
// archives their results, and reads back archived runs.
package symgen

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"symgen/internal/engine"
	"symgen/internal/fitness"
	"symgen/internal/model"
	"symgen/internal/stats"
	"symgen/internal/storage"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultExportsDir    = "exports"
	defaultDBPath        = "symgen.db"
	defaultTarget        = "quadratic"
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
}

type Client struct {
	store storage.Store

	benchmarksDir string
	exportsDir    string
}

type RunRequest struct {
	Target         string
	PopulationSize int
	MaxDepth       int
	TournamentSize int
	Generations    int
	Tolerance      float64
	Seed           int64
	Workers        int

	// CrossoverRate and MutationRate are pointers so an explicit zero is
	// distinguishable from unset; nil takes the engine default.
	CrossoverRate *float64
	MutationRate  *float64

	// Progress, when set, is invoked with each generation's statistics as the
	// run advances.
	Progress func(model.GenerationStats)
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Target           string
	Seed             int64
	Generations      int
	BestByGeneration []float64
	FinalBestFitness float64
	BestExpression   string
	Elapsed          time.Duration
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID          string
	CreatedAtUTC   string
	Target         string
	Seed           int64
	PopulationSize int
	Generations    int
	BestFitness    float64
	BestExpression string
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type StatsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

// TableRow compares the target and the evolved expression at one sample point.
// Invalid marks points where the evolved tree failed to evaluate finitely.
type TableRow struct {
	X       float64
	Want    float64
	Got     float64
	Invalid bool
}

type TableSummary struct {
	Target         string
	BestExpression string
	Rows           []TableRow
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Run executes one full evolution session, archives the result, and returns
// its summary.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	session, target, params, err := c.newSession(req)
	if err != nil {
		return RunSummary{}, err
	}

	started := time.Now()
	if err := session.Start(); err != nil {
		return RunSummary{}, err
	}
	var history []model.GenerationStats
	for {
		if err := ctx.Err(); err != nil {
			return RunSummary{}, err
		}
		generation, err := session.Step()
		if err != nil {
			return RunSummary{}, err
		}
		history = append(history, generation)
		if req.Progress != nil {
			req.Progress(generation)
		}
		if session.State() == engine.StateCompleted {
			break
		}
	}
	elapsed := time.Since(started)

	runID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	final := history[len(history)-1]

	run := storage.Stamp(model.RunRecord{
		ID:             runID,
		CreatedAtUTC:   now,
		Target:         target,
		PopulationSize: params.PopulationSize,
		MaxDepth:       params.MaxDepth,
		TournamentSize: params.TournamentSize,
		CrossoverRate:  params.CrossoverRate,
		MutationRate:   params.MutationRate,
		Generations:    params.Generations,
		Seed:           params.Seed,
		BestFitness:    final.BestFitness,
		BestExpression: final.BestExpression,
	})

	bestByGeneration := make([]float64, 0, len(history))
	for _, g := range history {
		bestByGeneration = append(bestByGeneration, g.BestFitness)
	}

	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, bestByGeneration); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveGenerationStats(ctx, runID, history); err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{Run: run, History: history})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:          runID,
		Target:         target,
		PopulationSize: params.PopulationSize,
		Generations:    params.Generations,
		Seed:           params.Seed,
		BestFitness:    final.BestFitness,
		BestExpression: final.BestExpression,
		CreatedAtUTC:   now,
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     filepath.Clean(runDir),
		Target:           target,
		Seed:             params.Seed,
		Generations:      len(history),
		BestByGeneration: bestByGeneration,
		FinalBestFitness: final.BestFitness,
		BestExpression:   final.BestExpression,
		Elapsed:          elapsed,
	}, nil
}

// Table executes a session and samples the evolved expression against the
// target at every test point.
func (c *Client) Table(ctx context.Context, req RunRequest) (TableSummary, error) {
	session, target, _, err := c.newSession(req)
	if err != nil {
		return TableSummary{}, err
	}

	history, err := session.Run(ctx)
	if err != nil {
		return TableSummary{}, err
	}
	final := history[len(history)-1]

	tree := session.BestTree()
	if tree == nil {
		return TableSummary{}, errors.New("session produced no best tree")
	}
	targetFunc, err := fitness.TargetByName(target)
	if err != nil {
		return TableSummary{}, err
	}

	points := fitness.DefaultPoints()
	rows := make([]TableRow, 0, len(points))
	for _, x := range points {
		row := TableRow{X: x, Want: targetFunc(x)}
		got, err := tree.Evaluate(x)
		if err != nil {
			row.Invalid = true
		} else {
			row.Got = got
		}
		rows = append(rows, row)
	}

	return TableSummary{
		Target:         target,
		BestExpression: final.BestExpression,
		Rows:           rows,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:          e.RunID,
			CreatedAtUTC:   e.CreatedAtUTC,
			Target:         e.Target,
			Seed:           e.Seed,
			PopulationSize: e.PopulationSize,
			Generations:    e.Generations,
			BestFitness:    e.BestFitness,
			BestExpression: e.BestExpression,
		})
	}
	return out, nil
}

// FitnessHistory returns the best-by-generation series of an archived run,
// preferring the store and falling back to the on-disk artifacts.
func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		history, ok, err = stats.ReadFitnessSeries(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New("no fitness history for run " + runID)
		}
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[len(history)-req.Limit:]
	}
	return history, nil
}

// Stats returns the per-generation statistics of an archived run.
func (c *Client) Stats(ctx context.Context, req StatsRequest) ([]model.GenerationStats, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	history, ok, err := c.store.GetGenerationStats(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		history, ok, err = stats.ReadGenerationStats(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New("no generation stats for run " + runID)
		}
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[len(history)-req.Limit:]
	}
	return history, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) newSession(req RunRequest) (*engine.Session, string, engine.Params, error) {
	target := req.Target
	if target == "" {
		target = defaultTarget
	}
	targetFunc, err := fitness.TargetByName(target)
	if err != nil {
		return nil, "", engine.Params{}, err
	}
	eval, err := fitness.NewEvaluator(targetFunc, nil)
	if err != nil {
		return nil, "", engine.Params{}, err
	}

	params := engine.DefaultParams()
	if req.PopulationSize > 0 {
		params.PopulationSize = req.PopulationSize
	}
	if req.MaxDepth > 0 {
		params.MaxDepth = req.MaxDepth
	}
	if req.TournamentSize > 0 {
		params.TournamentSize = req.TournamentSize
	}
	if req.CrossoverRate != nil {
		params.CrossoverRate = *req.CrossoverRate
	}
	if req.MutationRate != nil {
		params.MutationRate = *req.MutationRate
	}
	if req.Generations > 0 {
		params.Generations = req.Generations
	}
	if req.Tolerance > 0 {
		params.Tolerance = req.Tolerance
	}
	if req.Workers > 0 {
		params.Workers = req.Workers
	}
	params.Seed = req.Seed

	session, err := engine.NewSession(engine.Config{Params: params, Evaluator: eval})
	if err != nil {
		return nil, "", engine.Params{}, err
	}
	return session, target, params, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}
