package expr

import (
	"fmt"
	"math/rand"
)

// Generation constants. These are the sole source of initial genetic
// diversity, so they are exported and overridable on Generator.
const (
	DefaultTerminalProbability = 0.3
	DefaultConstantMin         = -5
	DefaultConstantMax         = 5
)

// Generator builds random expression trees. The zero value is not usable; a
// random source is required so runs stay reproducible under a fixed seed.
type Generator struct {
	Rand *rand.Rand

	// TerminalProbability is the chance of emitting a terminal at any depth
	// below the maximum; at the maximum depth a terminal is forced. Zero
	// means DefaultTerminalProbability.
	TerminalProbability float64

	// ConstantMin/ConstantMax bound the integer constant pool, inclusive.
	// Both zero means the default range [-5, 5].
	ConstantMin int
	ConstantMax int
}

func (g *Generator) terminalProbability() float64 {
	if g.TerminalProbability == 0 {
		return DefaultTerminalProbability
	}
	return g.TerminalProbability
}

func (g *Generator) constantRange() (int, int) {
	if g.ConstantMin == 0 && g.ConstantMax == 0 {
		return DefaultConstantMin, DefaultConstantMax
	}
	return g.ConstantMin, g.ConstantMax
}

// Tree generates a random tree of depth at most maxDepth. Terminal choice is
// uniform between the variable and an integer constant from the configured
// range; operator choice is uniform over the operator set.
func (g *Generator) Tree(maxDepth int) (*Node, error) {
	if g.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("max depth must be >= 0, got %d", maxDepth)
	}
	lo, hi := g.constantRange()
	if lo > hi {
		return nil, fmt.Errorf("invalid constant range: [%d, %d]", lo, hi)
	}
	return g.tree(maxDepth), nil
}

func (g *Generator) tree(remaining int) *Node {
	if remaining <= 0 || g.Rand.Float64() < g.terminalProbability() {
		return g.terminal()
	}
	op := Ops[g.Rand.Intn(len(Ops))]
	return Function(op, g.tree(remaining-1), g.tree(remaining-1))
}

func (g *Generator) terminal() *Node {
	if g.Rand.Intn(2) == 0 {
		return Variable()
	}
	lo, hi := g.constantRange()
	return Constant(float64(lo + g.Rand.Intn(hi-lo+1)))
}

// Population generates size independent random trees bounded by maxDepth.
func (g *Generator) Population(size, maxDepth int) ([]*Node, error) {
	if size <= 0 {
		return nil, fmt.Errorf("population size must be > 0, got %d", size)
	}
	out := make([]*Node, 0, size)
	for i := 0; i < size; i++ {
		tree, err := g.Tree(maxDepth)
		if err != nil {
			return nil, err
		}
		out = append(out, tree)
	}
	return out, nil
}
