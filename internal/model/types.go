package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// GenerationStats is the immutable per-generation record emitted by the
// engine. One is produced per generation and appended to an append-only
// history owned by the caller.
type GenerationStats struct {
	Generation     int     `json:"generation"`
	BestFitness    float64 `json:"best_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	BestExpression string  `json:"best_expression"`
	PopulationSize int     `json:"population_size"`
}

// RunRecord summarizes one completed evolution run for the archive.
type RunRecord struct {
	VersionedRecord
	ID             string  `json:"id"`
	CreatedAtUTC   string  `json:"created_at_utc"`
	Target         string  `json:"target"`
	PopulationSize int     `json:"population_size"`
	MaxDepth       int     `json:"max_depth"`
	TournamentSize int     `json:"tournament_size"`
	CrossoverRate  float64 `json:"crossover_rate"`
	MutationRate   float64 `json:"mutation_rate"`
	Generations    int     `json:"generations"`
	Seed           int64   `json:"seed"`
	BestFitness    float64 `json:"best_fitness"`
	BestExpression string  `json:"best_expression"`
}
