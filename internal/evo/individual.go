package evo

import (
	"math"

	"symgen/internal/expr"
)

// Individual is one candidate expression tree plus a cached fitness score.
// Trees are never mutated in place after creation; genetic operators return
// fresh individuals with fresh trees, which keeps the cache sound.
type Individual struct {
	Tree    *expr.Node
	Fitness float64
	Scored  bool
}

// NewIndividual wraps a tree with an unscored fitness cache.
func NewIndividual(tree *expr.Node) Individual {
	return Individual{Tree: tree, Fitness: math.Inf(1)}
}

// WithFitness returns a copy of the individual carrying a cached score.
func (ind Individual) WithFitness(fitness float64) Individual {
	ind.Fitness = fitness
	ind.Scored = true
	return ind
}

// Clone deep-copies the individual, preserving any cached fitness. Used for
// elitism, where the tree is carried unchanged into the next generation.
func (ind Individual) Clone() Individual {
	return Individual{Tree: ind.Tree.Clone(), Fitness: ind.Fitness, Scored: ind.Scored}
}
