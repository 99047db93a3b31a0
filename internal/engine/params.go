package engine

import (
	"fmt"

	"symgen/internal/expr"
)

// Parameter bounds, validated at configure time.
const (
	MinPopulationSize = 20
	MaxPopulationSize = 200
	MinMaxDepth       = 3
	MaxMaxDepth       = 10
	MinTournamentSize = 2
	MaxTournamentSize = 10
	MaxMutationRate   = 0.5
	MinGenerations    = 10
	MaxGenerations    = 200

	DefaultTolerance = 0.001
)

// Params is the immutable per-run configuration.
type Params struct {
	PopulationSize int
	MaxDepth       int
	TournamentSize int
	CrossoverRate  float64
	MutationRate   float64
	Generations    int

	// Tolerance is the early-stop threshold on best fitness. Zero means
	// DefaultTolerance.
	Tolerance float64

	// Workers sets the fitness evaluation pool size. Zero or negative means 1.
	Workers int

	// Seed drives all randomness for the run.
	Seed int64

	// TerminalProbability and ConstantMin/ConstantMax override the tree
	// generator constants; zero values take the generator defaults.
	TerminalProbability float64
	ConstantMin         int
	ConstantMax         int
}

// DefaultParams returns the reference configuration.
func DefaultParams() Params {
	return Params{
		PopulationSize: 50,
		MaxDepth:       5,
		TournamentSize: 3,
		CrossoverRate:  0.8,
		MutationRate:   0.2,
		Generations:    50,
	}
}

// ConfigError reports a parameter outside its declared bound. Configuration
// is rejected as a whole; run state is unchanged.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

func configErrorf(param, format string, args ...any) *ConfigError {
	return &ConfigError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks every parameter against its declared range.
func (p Params) Validate() error {
	if p.PopulationSize < MinPopulationSize || p.PopulationSize > MaxPopulationSize {
		return configErrorf("population_size", "must be in [%d, %d], got %d", MinPopulationSize, MaxPopulationSize, p.PopulationSize)
	}
	if p.MaxDepth < MinMaxDepth || p.MaxDepth > MaxMaxDepth {
		return configErrorf("max_depth", "must be in [%d, %d], got %d", MinMaxDepth, MaxMaxDepth, p.MaxDepth)
	}
	if p.TournamentSize < MinTournamentSize || p.TournamentSize > MaxTournamentSize {
		return configErrorf("tournament_size", "must be in [%d, %d], got %d", MinTournamentSize, MaxTournamentSize, p.TournamentSize)
	}
	if p.CrossoverRate < 0 || p.CrossoverRate > 1 {
		return configErrorf("crossover_rate", "must be in [0, 1], got %v", p.CrossoverRate)
	}
	if p.MutationRate < 0 || p.MutationRate > MaxMutationRate {
		return configErrorf("mutation_rate", "must be in [0, %v], got %v", MaxMutationRate, p.MutationRate)
	}
	if p.Generations < MinGenerations || p.Generations > MaxGenerations {
		return configErrorf("generations", "must be in [%d, %d], got %d", MinGenerations, MaxGenerations, p.Generations)
	}
	if p.Tolerance < 0 {
		return configErrorf("tolerance", "must be >= 0, got %v", p.Tolerance)
	}
	if p.TerminalProbability < 0 || p.TerminalProbability > 1 {
		return configErrorf("terminal_probability", "must be in [0, 1], got %v", p.TerminalProbability)
	}
	lo, hi := p.ConstantMin, p.ConstantMax
	if lo == 0 && hi == 0 {
		lo, hi = expr.DefaultConstantMin, expr.DefaultConstantMax
	}
	if lo > hi {
		return configErrorf("constant_range", "min must be <= max, got [%d, %d]", lo, hi)
	}
	return nil
}

func (p Params) tolerance() float64 {
	if p.Tolerance == 0 {
		return DefaultTolerance
	}
	return p.Tolerance
}

func (p Params) workers() int {
	if p.Workers <= 0 {
		return 1
	}
	return p.Workers
}
