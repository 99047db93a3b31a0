package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"symgen/internal/evo"
	"symgen/internal/expr"
	"symgen/internal/fitness"
	"symgen/internal/model"
)

// Config assembles a session. Evaluator is required; the genetic operators
// default to tournament selection, subtree crossover, and subtree mutation
// built from the session parameters.
type Config struct {
	Params    Params
	Evaluator fitness.Evaluator

	Selector   evo.Selector
	Recombiner evo.Recombiner
	Mutator    evo.Mutator

	// Delay paces Run between generations so an external observer can watch
	// progress. It is a driver policy, not an engine requirement; Step is
	// never delayed.
	Delay time.Duration
}

// Session owns one evolution run: the population, the generation counter, and
// the append-only statistics history. All run state lives on the session;
// there are no package-level globals.
type Session struct {
	mu sync.Mutex

	params Params
	eval   fitness.Evaluator
	delay  time.Duration

	selector   evo.Selector
	recombiner evo.Recombiner
	mutator    evo.Mutator

	rng       *rand.Rand
	generator *expr.Generator

	state      State
	generation int
	population []evo.Individual
	history    []model.GenerationStats
}

func NewSession(cfg Config) (*Session, error) {
	if cfg.Evaluator.Target() == nil {
		return nil, fmt.Errorf("fitness evaluator is required")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		params: cfg.Params,
		eval:   cfg.Evaluator,
		delay:  cfg.Delay,
		state:  StateIdle,
	}
	s.selector = cfg.Selector
	s.recombiner = cfg.Recombiner
	s.mutator = cfg.Mutator
	return s, nil
}

// Configure replaces the run parameters. Rejected while Running; the
// session state is unchanged on error.
func (s *Session) Configure(params Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return &StateError{Op: "configure", State: s.state}
	}
	if err := params.Validate(); err != nil {
		return err
	}
	s.params = params
	return nil
}

// Start begins generation 0 from Idle, or resumes a Paused run without
// reinitializing the population.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StatePaused:
		s.state = StateRunning
		return nil
	case StateIdle:
		// Fall through to initialization.
	default:
		return &StateError{Op: "start", State: s.state}
	}

	s.rng = rand.New(rand.NewSource(s.params.Seed))
	s.generator = &expr.Generator{
		Rand:                s.rng,
		TerminalProbability: s.params.TerminalProbability,
		ConstantMin:         s.params.ConstantMin,
		ConstantMax:         s.params.ConstantMax,
	}
	trees, err := s.generator.Population(s.params.PopulationSize, s.params.MaxDepth)
	if err != nil {
		return err
	}
	s.population = make([]evo.Individual, 0, len(trees))
	for _, tree := range trees {
		s.population = append(s.population, evo.NewIndividual(tree))
	}
	s.generation = 0
	s.history = s.history[:0]
	s.state = StateRunning
	return nil
}

// Pause stops scheduling further generations. The last completed generation's
// population and statistics remain valid and resumable.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return &StateError{Op: "pause", State: s.state}
	}
	s.state = StatePaused
	return nil
}

// Stop ends the run and discards the population. The statistics history stays
// readable until Reset.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning && s.state != StatePaused {
		return &StateError{Op: "stop", State: s.state}
	}
	s.population = nil
	s.state = StateStopped
	return nil
}

// Reset clears all run-scoped state back to Idle.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.population = nil
	s.history = nil
	s.generation = 0
	s.rng = nil
	s.generator = nil
	s.state = StateIdle
	return nil
}

// Step advances exactly one generation and returns its statistics. Only valid
// while Running. On termination (generation budget reached or best fitness
// under tolerance) the session moves to Completed and further steps fail.
func (s *Session) Step() (model.GenerationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return model.GenerationStats{}, &StateError{Op: "step", State: s.state}
	}

	s.evaluatePopulation()

	// Mean is taken over finitely scored individuals so a single overflowed
	// tree does not turn the whole generation's mean into +Inf.
	best := 0
	total := 0.0
	finite := 0
	for i, ind := range s.population {
		if !math.IsInf(ind.Fitness, 0) {
			total += ind.Fitness
			finite++
		}
		if ind.Fitness < s.population[best].Fitness {
			best = i
		}
	}
	mean := math.Inf(1)
	if finite > 0 {
		mean = total / float64(finite)
	}
	stats := model.GenerationStats{
		Generation:     s.generation,
		BestFitness:    s.population[best].Fitness,
		MeanFitness:    mean,
		BestExpression: s.population[best].Tree.String(),
		PopulationSize: len(s.population),
	}
	s.history = append(s.history, stats)

	if s.generation >= s.params.Generations-1 || stats.BestFitness < s.params.tolerance() {
		s.state = StateCompleted
		return stats, nil
	}

	next, err := s.breed(best)
	if err != nil {
		return model.GenerationStats{}, err
	}
	s.population = next
	s.generation++
	return stats, nil
}

// Run drives Step until the session completes, honoring ctx cancellation and
// the configured pacing delay. On cancellation the session is paused, leaving
// it resumable. Returns the statistics emitted during this call.
func (s *Session) Run(ctx context.Context) ([]model.GenerationStats, error) {
	if err := s.Start(); err != nil {
		return nil, err
	}

	var emitted []model.GenerationStats
	for {
		if err := ctx.Err(); err != nil {
			_ = s.Pause()
			return emitted, err
		}

		stats, err := s.Step()
		if err != nil {
			return emitted, err
		}
		emitted = append(emitted, stats)

		if s.State() == StateCompleted {
			return emitted, nil
		}
		if s.delay > 0 {
			select {
			case <-ctx.Done():
				_ = s.Pause()
				return emitted, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Generation returns the current generation index.
func (s *Session) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// History returns a copy of the full statistics history.
func (s *Session) History() []model.GenerationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.GenerationStats(nil), s.history...)
}

// Params returns the active configuration.
func (s *Session) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Best returns a copy of the best scored individual in the current
// population, or false when no scored population exists.
func (s *Session) Best() (evo.Individual, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := -1
	for i, ind := range s.population {
		if !ind.Scored {
			continue
		}
		if best < 0 || ind.Fitness < s.population[best].Fitness {
			best = i
		}
	}
	if best < 0 {
		return evo.Individual{}, false
	}
	return s.population[best].Clone(), true
}

// BestExpression renders the best individual's tree, or "" when none exists.
func (s *Session) BestExpression() string {
	ind, ok := s.Best()
	if !ok {
		return ""
	}
	return ind.Tree.String()
}

// BestTree exports the best individual's tree for rendering, or nil.
func (s *Session) BestTree() *expr.Node {
	ind, ok := s.Best()
	if !ok {
		return nil
	}
	return ind.Tree
}

// evaluatePopulation fills every uncached fitness score. Individuals are
// scored across a worker pool; each score depends only on the individual's
// own tree and the fixed test points, so the only shared state is read-only.
func (s *Session) evaluatePopulation() {
	pending := make([]int, 0, len(s.population))
	for i, ind := range s.population {
		if !ind.Scored {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return
	}

	workers := s.params.workers()
	if workers > len(pending) {
		workers = len(pending)
	}
	if workers == 1 {
		for _, idx := range pending {
			s.population[idx] = s.population[idx].WithFitness(s.eval.Score(s.population[idx].Tree))
		}
		return
	}

	type result struct {
		idx     int
		fitness float64
	}
	jobs := make(chan int)
	results := make(chan result, len(pending))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- result{idx: idx, fitness: s.eval.Score(s.population[idx].Tree)}
			}
		}()
	}
	for _, idx := range pending {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	close(results)

	for res := range results {
		s.population[res.idx] = s.population[res.idx].WithFitness(res.fitness)
	}
}

// breed builds the next generation: one elite clone of the current best, then
// tournament-selected parent pairs run through crossover and mutation until
// the population is full, truncating a surplus odd child.
func (s *Session) breed(bestIndex int) ([]evo.Individual, error) {
	size := s.params.PopulationSize
	next := make([]evo.Individual, 0, size)
	next = append(next, s.population[bestIndex].Clone())

	selector := s.selector
	if selector == nil {
		selector = evo.TournamentSelector{Size: s.params.TournamentSize}
	}
	recombiner := s.recombiner
	if recombiner == nil {
		recombiner = evo.SubtreeCrossover{Rate: s.params.CrossoverRate, MaxDepth: s.params.MaxDepth}
	}
	mutator := s.mutator
	if mutator == nil {
		mutator = evo.SubtreeMutation{Rate: s.params.MutationRate, MaxDepth: s.params.MaxDepth, Generator: s.generator}
	}

	for len(next) < size {
		i, err := selector.Pick(s.rng, s.population)
		if err != nil {
			return nil, err
		}
		j, err := selector.Pick(s.rng, s.population)
		if err != nil {
			return nil, err
		}

		child1, child2, err := recombiner.Crossover(s.rng, s.population[i].Tree, s.population[j].Tree)
		if err != nil {
			return nil, err
		}
		child1, err = mutator.Mutate(s.rng, child1)
		if err != nil {
			return nil, err
		}
		child2, err = mutator.Mutate(s.rng, child2)
		if err != nil {
			return nil, err
		}

		next = append(next, evo.NewIndividual(child1))
		if len(next) < size {
			next = append(next, evo.NewIndividual(child2))
		}
	}
	return next, nil
}

// Evaluations returns how many fitness evaluations the run has performed so
// far: one per individual per emitted generation, minus the cached elite
// carried between generations.
func (s *Session) Evaluations() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	generations := len(s.history)
	if generations == 0 {
		return 0
	}
	return generations*s.params.PopulationSize - (generations - 1)
}
