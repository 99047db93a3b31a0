package evo

import (
	"fmt"
	"math/rand"

	"symgen/internal/expr"
)

// Mutator produces a possibly altered copy of a tree.
type Mutator interface {
	Name() string
	Mutate(rng *rand.Rand, tree *expr.Node) (*expr.Node, error)
}

// SubtreeMutation replaces the subtree at a uniformly chosen node position
// with a freshly generated random subtree. With probability 1-Rate the tree
// is returned as an unmodified copy. The replacement is generated with a
// depth budget that keeps the whole tree within MaxDepth.
type SubtreeMutation struct {
	Rate      float64
	MaxDepth  int
	Generator *expr.Generator
}

func (SubtreeMutation) Name() string {
	return "subtree_mutation"
}

func (m SubtreeMutation) Mutate(rng *rand.Rand, tree *expr.Node) (*expr.Node, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if tree == nil {
		return nil, fmt.Errorf("tree is required")
	}
	if m.Rate < 0 || m.Rate > 1 {
		return nil, fmt.Errorf("mutation rate must be in [0, 1], got %v", m.Rate)
	}
	if m.MaxDepth <= 0 {
		return nil, fmt.Errorf("max depth must be > 0, got %d", m.MaxDepth)
	}
	if m.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}

	if rng.Float64() >= m.Rate {
		return tree.Clone(), nil
	}

	at := rng.Intn(tree.Count())
	budget := m.MaxDepth - depthOfNode(tree, at)
	if budget < 0 {
		budget = 0
	}
	replacement, err := m.Generator.Tree(budget)
	if err != nil {
		return nil, err
	}
	return expr.ReplaceAt(tree.Clone(), at, replacement)
}

// depthOfNode returns the depth (root = 0) of the node at the given preorder
// index, which bounds how tall a replacement subtree may grow.
func depthOfNode(tree *expr.Node, index int) int {
	depth := 0
	cursor := 0
	var walk func(node *expr.Node, level int) bool
	walk = func(node *expr.Node, level int) bool {
		if node == nil {
			return false
		}
		if cursor == index {
			depth = level
			return true
		}
		cursor++
		if node.Kind != expr.KindFunction {
			return false
		}
		if walk(node.Left, level+1) {
			return true
		}
		return walk(node.Right, level+1)
	}
	walk(tree, 0)
	return depth
}
