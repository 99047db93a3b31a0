package evo

import (
	"fmt"
	"math/rand"
)

// Selector chooses a parent index from a scored population.
type Selector interface {
	Name() string
	Pick(rng *rand.Rand, population []Individual) (int, error)
}

// TournamentSelector samples Size distinct individuals uniformly and picks
// the one with the lowest fitness, ties broken by first-found. The effective
// tournament size is min(Size, len(population)), so a tournament over the
// whole population always yields the single best individual. The population
// is never mutated.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) Pick(rng *rand.Rand, population []Individual) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return 0, fmt.Errorf("population is empty")
	}
	size := s.Size
	if size <= 0 {
		size = 2
	}
	if size > len(population) {
		size = len(population)
	}

	entrants := rng.Perm(len(population))[:size]
	best := entrants[0]
	for _, candidate := range entrants[1:] {
		if population[candidate].Fitness < population[best].Fitness {
			best = candidate
		}
	}
	return best, nil
}
