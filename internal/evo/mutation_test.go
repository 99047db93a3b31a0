package evo

import (
	"math/rand"
	"testing"

	"symgen/internal/expr"
)

func TestMutationRateZeroIsIdentity(t *testing.T) {
	g := &expr.Generator{Rand: rand.New(rand.NewSource(2))}
	m := SubtreeMutation{Rate: 0, MaxDepth: 5, Generator: g}
	rng := rand.New(rand.NewSource(7))
	tree := deepParentA()

	out, err := m.Mutate(rng, tree)
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if !expr.Equal(out, tree) {
		t.Fatal("rate 0 mutation changed the tree")
	}
	if out == tree {
		t.Fatal("rate 0 mutation returned the original instead of a copy")
	}
}

func TestMutationRateOneChangesStructure(t *testing.T) {
	g := &expr.Generator{Rand: rand.New(rand.NewSource(5))}
	m := SubtreeMutation{Rate: 1, MaxDepth: 5, Generator: g}
	rng := rand.New(rand.NewSource(19))
	tree := deepParentA()

	changed := 0
	for i := 0; i < 50; i++ {
		out, err := m.Mutate(rng, tree)
		if err != nil {
			t.Fatalf("mutate: %v", err)
		}
		if !expr.Equal(out, tree) {
			changed++
		}
	}
	if changed == 0 {
		t.Fatal("rate 1 mutation never changed the tree over 50 trials")
	}
}

func TestMutationRespectsMaxDepth(t *testing.T) {
	g := &expr.Generator{Rand: rand.New(rand.NewSource(11))}
	m := SubtreeMutation{Rate: 1, MaxDepth: 4, Generator: g}
	rng := rand.New(rand.NewSource(43))

	for i := 0; i < 300; i++ {
		tree, err := g.Tree(4)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		out, err := m.Mutate(rng, tree)
		if err != nil {
			t.Fatalf("mutate: %v", err)
		}
		if d := out.Depth(); d > 4 {
			t.Fatalf("mutated tree depth %d exceeds max 4 (tree %s)", d, out)
		}
	}
}

func TestMutationDoesNotMutateInput(t *testing.T) {
	g := &expr.Generator{Rand: rand.New(rand.NewSource(3))}
	m := SubtreeMutation{Rate: 1, MaxDepth: 5, Generator: g}
	rng := rand.New(rand.NewSource(59))
	tree := deepParentB()
	ref := tree.Clone()

	for i := 0; i < 30; i++ {
		if _, err := m.Mutate(rng, tree); err != nil {
			t.Fatalf("mutate: %v", err)
		}
	}
	if !expr.Equal(tree, ref) {
		t.Fatal("mutation modified the input tree in place")
	}
}

func TestMutationRequiresGenerator(t *testing.T) {
	m := SubtreeMutation{Rate: 1, MaxDepth: 5}
	if _, err := m.Mutate(rand.New(rand.NewSource(1)), deepParentA()); err == nil {
		t.Fatal("expected error for missing generator")
	}
}
