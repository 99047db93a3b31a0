package engine

import (
	"context"
	"errors"
	"testing"

	"symgen/internal/fitness"
)

func newTestSession(t *testing.T, mutate func(*Params)) *Session {
	t.Helper()

	eval, err := fitness.NewEvaluator(fitness.Quadratic, nil)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	params := DefaultParams()
	params.Seed = 42
	if mutate != nil {
		mutate(&params)
	}
	s, err := NewSession(Config{Params: params, Evaluator: eval})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func TestNewSessionRequiresEvaluator(t *testing.T) {
	if _, err := NewSession(Config{Params: DefaultParams()}); err == nil {
		t.Fatal("expected error for missing evaluator")
	}
}

func TestNewSessionValidatesParams(t *testing.T) {
	eval, err := fitness.NewEvaluator(fitness.Quadratic, nil)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	params := DefaultParams()
	params.PopulationSize = 5
	if _, err := NewSession(Config{Params: params, Evaluator: eval}); err == nil {
		t.Fatal("expected error for invalid params")
	}
}

func TestStateMachineTransitions(t *testing.T) {
	s := newTestSession(t, nil)

	if s.State() != StateIdle {
		t.Fatalf("initial state: got %s want idle", s.State())
	}
	if err := s.Pause(); err == nil {
		t.Fatal("expected pause to fail while idle")
	}
	if _, err := s.Step(); err == nil {
		t.Fatal("expected step to fail while idle")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.State() != StateRunning {
		t.Fatalf("state after start: got %s want running", s.State())
	}
	if err := s.Start(); err == nil {
		t.Fatal("expected start to fail while running")
	}

	if err := s.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if s.State() != StatePaused {
		t.Fatalf("state after pause: got %s want paused", s.State())
	}
	if _, err := s.Step(); err == nil {
		t.Fatal("expected step to fail while paused")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if s.State() != StateRunning {
		t.Fatalf("state after resume: got %s want running", s.State())
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.State() != StateStopped {
		t.Fatalf("state after stop: got %s want stopped", s.State())
	}
	if err := s.Start(); err == nil {
		t.Fatal("expected start to fail while stopped")
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("state after reset: got %s want idle", s.State())
	}
	if len(s.History()) != 0 {
		t.Fatal("expected empty history after reset")
	}
}

func TestConfigureRejectedWhileRunning(t *testing.T) {
	s := newTestSession(t, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	err := s.Configure(DefaultParams())
	if err == nil {
		t.Fatal("expected configure to fail while running")
	}
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected *StateError, got %T", err)
	}
	if s.State() != StateRunning {
		t.Fatal("configure error changed session state")
	}
}

func TestConfigureRejectsInvalidParams(t *testing.T) {
	s := newTestSession(t, nil)
	bad := DefaultParams()
	bad.MaxDepth = 99

	err := s.Configure(bad)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if s.Params().MaxDepth == 99 {
		t.Fatal("invalid params were applied")
	}
}

func TestStepEmitsStatsAndAdvances(t *testing.T) {
	s := newTestSession(t, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	stats, err := s.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if stats.Generation != 0 {
		t.Fatalf("first stats generation: got %d want 0", stats.Generation)
	}
	if stats.PopulationSize != s.Params().PopulationSize {
		t.Fatalf("stats population size: got %d want %d", stats.PopulationSize, s.Params().PopulationSize)
	}
	if stats.BestExpression == "" {
		t.Fatal("expected a rendered best expression")
	}
	if stats.BestFitness < 0 {
		t.Fatalf("best fitness negative: %v", stats.BestFitness)
	}
	if s.Generation() != 1 && s.State() == StateRunning {
		t.Fatalf("generation after step: got %d want 1", s.Generation())
	}
	if len(s.History()) != 1 {
		t.Fatalf("history length: got %d want 1", len(s.History()))
	}
	if s.Evaluations() != s.Params().PopulationSize {
		t.Fatalf("evaluations after one step: got %d want %d", s.Evaluations(), s.Params().PopulationSize)
	}
}

func TestElitismInvariantAcrossRun(t *testing.T) {
	s := newTestSession(t, func(p *Params) {
		p.Generations = 30
		p.Seed = 7
	})
	history, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(history) == 0 {
		t.Fatal("expected at least one generation")
	}
	for i := 1; i < len(history); i++ {
		if history[i].BestFitness > history[i-1].BestFitness {
			t.Fatalf("elitism violated at generation %d: %v > %v",
				history[i].Generation, history[i].BestFitness, history[i-1].BestFitness)
		}
	}
}

func TestRunCompletesWithinGenerationBudget(t *testing.T) {
	s := newTestSession(t, func(p *Params) { p.Generations = 12 })
	history, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.State() != StateCompleted {
		t.Fatalf("state after run: got %s want completed", s.State())
	}
	if len(history) > 12 {
		t.Fatalf("emitted %d generations, budget was 12", len(history))
	}
	if _, err := s.Step(); err == nil {
		t.Fatal("expected step to fail after completion")
	}
}

func TestRunImprovesOverGenerationZero(t *testing.T) {
	// End-to-end check on the reference configuration: repeated seeded runs
	// must not finish worse than they started.
	for seed := int64(1); seed <= 5; seed++ {
		s := newTestSession(t, func(p *Params) {
			p.Seed = seed
		})
		history, err := s.Run(context.Background())
		if err != nil {
			t.Fatalf("seed %d run: %v", seed, err)
		}
		first := history[0].BestFitness
		last := history[len(history)-1].BestFitness
		if last > first {
			t.Fatalf("seed %d: final best %v worse than initial best %v", seed, last, first)
		}
	}
}

func TestPauseKeepsHistoryAndResumes(t *testing.T) {
	s := newTestSession(t, func(p *Params) { p.Generations = 20 })
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if len(s.History()) != 3 {
		t.Fatalf("history after pause: got %d want 3", len(s.History()))
	}

	if err := s.Start(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err := s.Step(); err != nil {
		t.Fatalf("step after resume: %v", err)
	}
	if len(s.History()) != 4 {
		t.Fatalf("history after resume: got %d want 4", len(s.History()))
	}
	if s.Generation() < 3 {
		t.Fatalf("resume reinitialized the run: generation %d", s.Generation())
	}
}

func TestRunIsReproducibleUnderFixedSeed(t *testing.T) {
	run := func() []float64 {
		s := newTestSession(t, func(p *Params) {
			p.Seed = 1234
			p.Generations = 15
		})
		history, err := s.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		out := make([]float64, 0, len(history))
		for _, g := range history {
			out = append(out, g.BestFitness)
		}
		return out
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("runs diverged at generation %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	s := newTestSession(t, func(p *Params) { p.Generations = 200; p.PopulationSize = 200 })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s.State() != StatePaused {
		t.Fatalf("state after cancellation: got %s want paused", s.State())
	}
}

func TestParallelEvaluationMatchesSerial(t *testing.T) {
	serial := newTestSession(t, func(p *Params) {
		p.Seed = 77
		p.Generations = 10
		p.Workers = 1
	})
	parallel := newTestSession(t, func(p *Params) {
		p.Seed = 77
		p.Generations = 10
		p.Workers = 4
	})

	serialHistory, err := serial.Run(context.Background())
	if err != nil {
		t.Fatalf("serial run: %v", err)
	}
	parallelHistory, err := parallel.Run(context.Background())
	if err != nil {
		t.Fatalf("parallel run: %v", err)
	}
	if len(serialHistory) != len(parallelHistory) {
		t.Fatalf("history lengths differ: %d vs %d", len(serialHistory), len(parallelHistory))
	}
	for i := range serialHistory {
		if serialHistory[i].BestFitness != parallelHistory[i].BestFitness {
			t.Fatalf("generation %d best differs: %v vs %v",
				i, serialHistory[i].BestFitness, parallelHistory[i].BestFitness)
		}
	}
}

func TestBestAccessors(t *testing.T) {
	s := newTestSession(t, nil)
	if _, ok := s.Best(); ok {
		t.Fatal("expected no best before start")
	}
	if s.BestExpression() != "" {
		t.Fatal("expected empty best expression before start")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}

	ind, ok := s.Best()
	if !ok {
		t.Fatal("expected a best individual after one step")
	}
	if !ind.Scored {
		t.Fatal("best individual has no cached fitness")
	}
	if s.BestExpression() == "" {
		t.Fatal("expected best expression after one step")
	}
	if s.BestTree() == nil {
		t.Fatal("expected exported best tree after one step")
	}
}
