package storage

import (
	"context"

	"symgen/internal/model"
)

// Store archives completed runs for later inspection. The engine itself keeps
// all run state in memory; only the driver persists through a Store.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationStats(ctx context.Context, runID string, stats []model.GenerationStats) error
	GetGenerationStats(ctx context.Context, runID string) ([]model.GenerationStats, bool, error)
}
