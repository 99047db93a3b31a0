package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"symgen/internal/model"
)

const (
	runIndexFile   = "run_index.json"
	runRecordFile  = "run.json"
	fitnessCSVFile = "fitness.csv"
)

// RunArtifacts bundles everything written to disk for one completed run.
type RunArtifacts struct {
	Run     model.RunRecord         `json:"run"`
	History []model.GenerationStats `json:"history"`
}

type RunIndexEntry struct {
	RunID          string  `json:"run_id"`
	Target         string  `json:"target"`
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	Seed           int64   `json:"seed"`
	BestFitness    float64 `json:"best_fitness"`
	BestExpression string  `json:"best_expression"`
	CreatedAtUTC   string  `json:"created_at_utc"`
}

// WriteRunArtifacts persists a run's record and per-generation fitness series
// under baseDir/<run id>/ and returns the run directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runRecordFile), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeFitnessCSV(filepath.Join(runDir, fitnessCSVFile), artifacts.History); err != nil {
		return "", err
	}
	return runDir, nil
}

func writeFitnessCSV(path string, history []model.GenerationStats) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_fitness", "mean_fitness", "best_expression", "population_size"}); err != nil {
		return err
	}
	for _, stats := range history {
		if err := writer.Write([]string{
			strconv.Itoa(stats.Generation),
			strconv.FormatFloat(stats.BestFitness, 'f', -1, 64),
			strconv.FormatFloat(stats.MeanFitness, 'f', -1, 64),
			stats.BestExpression,
			strconv.Itoa(stats.PopulationSize),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadRunRecord loads the archived run record, reporting false when the run
// directory does not exist.
func ReadRunRecord(baseDir, runID string) (model.RunRecord, bool, error) {
	path := filepath.Join(baseDir, runID, runRecordFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, false, err
	}
	return run, true, nil
}

// ReadFitnessSeries loads the best-fitness column of the per-generation CSV.
func ReadFitnessSeries(baseDir, runID string) ([]float64, bool, error) {
	path := filepath.Join(baseDir, runID, fitnessCSVFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness series header must have at least 2 columns")
	}

	series := make([]float64, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("fitness series row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

// ReadGenerationStats reconstructs the full per-generation statistics from
// the archived CSV.
func ReadGenerationStats(baseDir, runID string) ([]model.GenerationStats, bool, error) {
	path := filepath.Join(baseDir, runID, fitnessCSVFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.GenerationStats{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 5 {
		return nil, false, fmt.Errorf("fitness series header must have at least 5 columns")
	}

	history := make([]model.GenerationStats, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 5 {
			return nil, false, fmt.Errorf("fitness series row must have at least 5 columns")
		}
		generation, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, false, err
		}
		best, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		mean, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, false, err
		}
		population, err := strconv.Atoi(record[4])
		if err != nil {
			return nil, false, err
		}
		history = append(history, model.GenerationStats{
			Generation:     generation,
			BestFitness:    best,
			MeanFitness:    mean,
			BestExpression: record[3],
			PopulationSize: population,
		})
	}
	return history, true, nil
}

// AppendRunIndex adds or replaces the index entry for a run.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the run index sorted newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run's artifact files into outDir/<run id>/.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{runRecordFile, fitnessCSVFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
