package fitness

import (
	"fmt"
	"math"
	"sort"

	"symgen/internal/expr"
)

// TargetFunc is the function the evolved expressions try to approximate.
type TargetFunc func(x float64) float64

// Quadratic is the canonical target, y = x^2 + 3x + 2.
func Quadratic(x float64) float64 { return x*x + 3*x + 2 }

// Linear is y = 2x - 1.
func Linear(x float64) float64 { return 2*x - 1 }

// Cubic is y = x^3 - 2x.
func Cubic(x float64) float64 { return x*x*x - 2*x }

var targets = map[string]TargetFunc{
	"quadratic": Quadratic,
	"linear":    Linear,
	"cubic":     Cubic,
}

// TargetByName resolves a registered target function.
func TargetByName(name string) (TargetFunc, error) {
	target, ok := targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown target function: %s", name)
	}
	return target, nil
}

// TargetNames lists registered targets in sorted order.
func TargetNames() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultPoints returns the canonical fixed test points, integers from -10 to
// 10 inclusive. The wider range is deliberate: error far from the origin is
// what separates structurally correct trees from local fits.
func DefaultPoints() []float64 {
	points := make([]float64, 0, 21)
	for x := -10; x <= 10; x++ {
		points = append(points, float64(x))
	}
	return points
}

// Evaluator scores a tree against a target over a fixed test-point set.
// Lower is better; zero is a perfect fit.
type Evaluator struct {
	target TargetFunc
	points []float64
}

func NewEvaluator(target TargetFunc, points []float64) (Evaluator, error) {
	if target == nil {
		return Evaluator{}, fmt.Errorf("target function is required")
	}
	if len(points) == 0 {
		points = DefaultPoints()
	}
	return Evaluator{target: target, points: append([]float64(nil), points...)}, nil
}

// Points returns a copy of the evaluator's test points.
func (e Evaluator) Points() []float64 {
	return append([]float64(nil), e.points...)
}

// Target returns the target function.
func (e Evaluator) Target() TargetFunc {
	return e.target
}

// Score returns the sum of absolute error over the test points. A non-finite
// evaluation at any point yields +Inf: the individual is unselectable as best
// but stays in the population for diversity. Score never returns an error;
// evaluation failures are always absorbed into the fitness value.
func (e Evaluator) Score(tree *expr.Node) float64 {
	total := 0.0
	for _, x := range e.points {
		predicted, err := tree.Evaluate(x)
		if err != nil {
			return math.Inf(1)
		}
		total += math.Abs(predicted - e.target(x))
	}
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return math.Inf(1)
	}
	return total
}
