package evo

import (
	"fmt"
	"math/rand"

	"symgen/internal/expr"
)

// DefaultCrossoverRetries bounds how many crossover-point pairs are sampled
// before giving up on a depth-respecting swap.
const DefaultCrossoverRetries = 10

// Recombiner produces two children from two parent trees.
type Recombiner interface {
	Name() string
	Crossover(rng *rand.Rand, parent1, parent2 *expr.Node) (*expr.Node, *expr.Node, error)
}

// SubtreeCrossover exchanges randomly chosen subtrees between deep copies of
// the parents. With probability 1-Rate the parents are returned as unmodified
// copies. Children deeper than MaxDepth are rejected and the crossover points
// re-sampled up to MaxRetries times; if no valid swap is found the unmodified
// parent copies are returned.
type SubtreeCrossover struct {
	Rate       float64
	MaxDepth   int
	MaxRetries int
}

func (SubtreeCrossover) Name() string {
	return "subtree_crossover"
}

func (c SubtreeCrossover) Crossover(rng *rand.Rand, parent1, parent2 *expr.Node) (*expr.Node, *expr.Node, error) {
	if rng == nil {
		return nil, nil, fmt.Errorf("random source is required")
	}
	if parent1 == nil || parent2 == nil {
		return nil, nil, fmt.Errorf("both parents are required")
	}
	if c.Rate < 0 || c.Rate > 1 {
		return nil, nil, fmt.Errorf("crossover rate must be in [0, 1], got %v", c.Rate)
	}
	if c.MaxDepth <= 0 {
		return nil, nil, fmt.Errorf("max depth must be > 0, got %d", c.MaxDepth)
	}

	if rng.Float64() >= c.Rate {
		return parent1.Clone(), parent2.Clone(), nil
	}

	retries := c.MaxRetries
	if retries <= 0 {
		retries = DefaultCrossoverRetries
	}

	count1 := parent1.Count()
	count2 := parent2.Count()
	for attempt := 0; attempt < retries; attempt++ {
		at1 := rng.Intn(count1)
		at2 := rng.Intn(count2)

		sub1 := parent1.Nodes()[at1].Clone()
		sub2 := parent2.Nodes()[at2].Clone()

		child1, err := expr.ReplaceAt(parent1.Clone(), at1, sub2)
		if err != nil {
			return nil, nil, err
		}
		child2, err := expr.ReplaceAt(parent2.Clone(), at2, sub1)
		if err != nil {
			return nil, nil, err
		}
		if child1.Depth() > c.MaxDepth || child2.Depth() > c.MaxDepth {
			continue
		}
		return child1, child2, nil
	}
	return parent1.Clone(), parent2.Clone(), nil
}
