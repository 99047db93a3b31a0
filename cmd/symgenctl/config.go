package main

import (
	"encoding/json"
	"flag"
	"math"
	"os"
	"time"

	"symgen/internal/storage"
	symapi "symgen/pkg/symgen"
)

// rateFlags holds the crossover and mutation flag values. They are copied
// onto the request only when the flag was explicitly given, so an explicit
// zero rate is honored while an absent flag leaves the engine default.
type rateFlags struct {
	crossover float64
	mutation  float64
}

// runFlags binds the shared run/table flag set onto a request pre-filled with
// the reference configuration.
func runFlags(fs *flag.FlagSet) (*symapi.RunRequest, *rateFlags, *string, *string, *string) {
	req := &symapi.RunRequest{}
	rates := &rateFlags{}
	fs.StringVar(&req.Target, "target", "quadratic", "target function: quadratic|linear|cubic")
	fs.IntVar(&req.PopulationSize, "pop", 50, "population size [20, 200]")
	fs.IntVar(&req.MaxDepth, "depth", 5, "maximum tree depth [3, 10]")
	fs.IntVar(&req.TournamentSize, "tournament", 3, "tournament size [2, 10]")
	fs.Float64Var(&rates.crossover, "crossover", 0.8, "crossover rate [0, 1]")
	fs.Float64Var(&rates.mutation, "mutation", 0.2, "mutation rate [0, 0.5]")
	fs.IntVar(&req.Generations, "gens", 50, "generation budget [10, 200]")
	fs.Float64Var(&req.Tolerance, "tolerance", 0, "early-stop fitness threshold (0 for default)")
	fs.Int64Var(&req.Seed, "seed", 0, "random seed (0 draws one from the clock)")
	fs.IntVar(&req.Workers, "workers", 1, "fitness evaluation workers")
	configPath := fs.String("config", "", "optional JSON run config path")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "symgen.db", "sqlite database path")
	return req, rates, configPath, storeKind, dbPath
}

// applyConfig resolves the final run request: a flag given on the command
// line always wins, then the JSON config file, then the built-in defaults.
// A seed supplied by neither is drawn from the wall clock so repeated runs
// explore different populations; an explicit -seed 0 stays 0.
func applyConfig(req *symapi.RunRequest, rates *rateFlags, path string, setFlags map[string]bool) error {
	if setFlags["crossover"] {
		req.CrossoverRate = &rates.crossover
	}
	if setFlags["mutation"] {
		req.MutationRate = &rates.mutation
	}

	if path != "" {
		cfg, err := loadRunRequestFromConfig(path)
		if err != nil {
			return err
		}
		if !setFlags["target"] && cfg.Target != "" {
			req.Target = cfg.Target
		}
		if !setFlags["pop"] && cfg.PopulationSize != 0 {
			req.PopulationSize = cfg.PopulationSize
		}
		if !setFlags["depth"] && cfg.MaxDepth != 0 {
			req.MaxDepth = cfg.MaxDepth
		}
		if !setFlags["tournament"] && cfg.TournamentSize != 0 {
			req.TournamentSize = cfg.TournamentSize
		}
		if !setFlags["crossover"] && cfg.CrossoverRate != nil {
			req.CrossoverRate = cfg.CrossoverRate
		}
		if !setFlags["mutation"] && cfg.MutationRate != nil {
			req.MutationRate = cfg.MutationRate
		}
		if !setFlags["gens"] && cfg.Generations != 0 {
			req.Generations = cfg.Generations
		}
		if !setFlags["tolerance"] && cfg.Tolerance != 0 {
			req.Tolerance = cfg.Tolerance
		}
		if !setFlags["seed"] && cfg.Seed != 0 {
			req.Seed = cfg.Seed
		}
		if !setFlags["workers"] && cfg.Workers != 0 {
			req.Workers = cfg.Workers
		}
	}

	if !setFlags["seed"] && req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}
	return nil
}

func loadRunRequestFromConfig(path string) (symapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return symapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return symapi.RunRequest{}, err
	}

	var req symapi.RunRequest
	if v, ok := asString(raw["target"]); ok {
		req.Target = v
	}
	if v, ok := asInt(raw["population_size"]); ok {
		req.PopulationSize = v
	}
	if v, ok := asInt(raw["max_depth"]); ok {
		req.MaxDepth = v
	}
	if v, ok := asInt(raw["tournament_size"]); ok {
		req.TournamentSize = v
	}
	if v, ok := asFloat64(raw["crossover_rate"]); ok {
		req.CrossoverRate = &v
	}
	if v, ok := asFloat64(raw["mutation_rate"]); ok {
		req.MutationRate = &v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asFloat64(raw["tolerance"]); ok {
		req.Tolerance = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
