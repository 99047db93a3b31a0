package stats

import (
	"os"
	"path/filepath"
	"testing"

	"symgen/internal/model"
)

func sampleArtifacts(runID string) RunArtifacts {
	return RunArtifacts{
		Run: model.RunRecord{
			ID:             runID,
			CreatedAtUTC:   "2026-08-25T10:00:00Z",
			Target:         "quadratic",
			PopulationSize: 50,
			MaxDepth:       5,
			TournamentSize: 3,
			CrossoverRate:  0.8,
			MutationRate:   0.2,
			Generations:    50,
			Seed:           42,
			BestFitness:    3.5,
			BestExpression: "((x * x) + (x + 2))",
		},
		History: []model.GenerationStats{
			{Generation: 0, BestFitness: 42.5, MeanFitness: 130, BestExpression: "(x + 2)", PopulationSize: 50},
			{Generation: 1, BestFitness: 3.5, MeanFitness: 80, BestExpression: "((x * x) + (x + 2))", PopulationSize: 50},
		},
	}
}

func TestWriteAndReadRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()

	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-1"))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if runDir != filepath.Join(baseDir, "run-1") {
		t.Fatalf("unexpected run dir: %s", runDir)
	}

	run, ok, err := ReadRunRecord(baseDir, "run-1")
	if err != nil {
		t.Fatalf("read run record: %v", err)
	}
	if !ok {
		t.Fatal("expected run record")
	}
	if run.BestExpression != "((x * x) + (x + 2))" {
		t.Fatalf("unexpected run record: %+v", run)
	}

	series, ok, err := ReadFitnessSeries(baseDir, "run-1")
	if err != nil {
		t.Fatalf("read fitness series: %v", err)
	}
	if !ok {
		t.Fatal("expected fitness series")
	}
	if len(series) != 2 || series[0] != 42.5 || series[1] != 3.5 {
		t.Fatalf("unexpected series: %+v", series)
	}
}

func TestReadGenerationStatsRoundTrip(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := sampleArtifacts("run-1")

	if _, err := WriteRunArtifacts(baseDir, artifacts); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	history, ok, err := ReadGenerationStats(baseDir, "run-1")
	if err != nil {
		t.Fatalf("read generation stats: %v", err)
	}
	if !ok {
		t.Fatal("expected generation stats")
	}
	if len(history) != len(artifacts.History) {
		t.Fatalf("history length: got %d want %d", len(history), len(artifacts.History))
	}
	for i := range history {
		if history[i] != artifacts.History[i] {
			t.Fatalf("row %d mismatch:\n got %+v\nwant %+v", i, history[i], artifacts.History[i])
		}
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestReadRunRecordMissing(t *testing.T) {
	if _, ok, err := ReadRunRecord(t.TempDir(), "nope"); err != nil || ok {
		t.Fatalf("missing run: ok=%v err=%v", ok, err)
	}
}

func TestRunIndexNewestFirstAndReplace(t *testing.T) {
	baseDir := t.TempDir()

	entries := []RunIndexEntry{
		{RunID: "run-old", Target: "quadratic", CreatedAtUTC: "2026-08-25T09:00:00Z", BestFitness: 10},
		{RunID: "run-new", Target: "linear", CreatedAtUTC: "2026-08-25T11:00:00Z", BestFitness: 2},
	}
	for _, entry := range entries {
		if err := AppendRunIndex(baseDir, entry); err != nil {
			t.Fatalf("append %s: %v", entry.RunID, err)
		}
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(index) != 2 || index[0].RunID != "run-new" || index[1].RunID != "run-old" {
		t.Fatalf("unexpected index order: %+v", index)
	}

	updated := entries[0]
	updated.BestFitness = 1.25
	if err := AppendRunIndex(baseDir, updated); err != nil {
		t.Fatalf("replace entry: %v", err)
	}
	index, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index after replace: %v", err)
	}
	if len(index) != 2 {
		t.Fatalf("replace added a duplicate: %+v", index)
	}
	for _, entry := range index {
		if entry.RunID == "run-old" && entry.BestFitness != 1.25 {
			t.Fatalf("entry not replaced: %+v", entry)
		}
	}
}

func TestListRunIndexEmptyDir(t *testing.T) {
	index, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(index) != 0 {
		t.Fatalf("expected empty index, got %+v", index)
	}
}

func TestExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := t.TempDir()

	if _, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-1")); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	dst, err := ExportRunArtifacts(baseDir, "run-1", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, file := range []string{"run.json", "fitness.csv"} {
		if _, err := os.Stat(filepath.Join(dst, file)); err != nil {
			t.Fatalf("exported file %s: %v", file, err)
		}
	}

	if _, err := ExportRunArtifacts(baseDir, "missing", outDir); err == nil {
		t.Fatal("expected error for missing run")
	}
}
