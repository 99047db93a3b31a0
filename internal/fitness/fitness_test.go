package fitness

import (
	"math"
	"testing"

	"symgen/internal/expr"
)

func quadraticTree() *expr.Node {
	return expr.Function(expr.OpAdd,
		expr.Function(expr.OpMultiply, expr.Variable(), expr.Variable()),
		expr.Function(expr.OpAdd,
			expr.Function(expr.OpMultiply, expr.Constant(3), expr.Variable()),
			expr.Constant(2),
		),
	)
}

func TestScorePerfectFitIsZero(t *testing.T) {
	e, err := NewEvaluator(Quadratic, nil)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	if got := e.Score(quadraticTree()); got != 0 {
		t.Fatalf("perfect fit score: got %v want 0", got)
	}
}

func TestScoreIsNonNegative(t *testing.T) {
	e, err := NewEvaluator(Quadratic, nil)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	trees := []*expr.Node{
		expr.Variable(),
		expr.Constant(-4),
		expr.Function(expr.OpSubtract, expr.Variable(), expr.Constant(1)),
	}
	for _, tree := range trees {
		if got := e.Score(tree); got < 0 {
			t.Fatalf("score of %s: got %v, want >= 0", tree, got)
		}
	}
}

func TestScoreNonFiniteIsInfinity(t *testing.T) {
	e, err := NewEvaluator(Quadratic, nil)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	overflow := expr.Constant(math.MaxFloat64)
	for i := 0; i < 2; i++ {
		overflow = expr.Function(expr.OpMultiply, overflow, overflow.Clone())
	}
	if got := e.Score(overflow); !math.IsInf(got, 1) {
		t.Fatalf("overflow score: got %v want +Inf", got)
	}
}

func TestDefaultPoints(t *testing.T) {
	points := DefaultPoints()
	if len(points) != 21 {
		t.Fatalf("points length: got %d want 21", len(points))
	}
	if points[0] != -10 || points[20] != 10 {
		t.Fatalf("points range: got [%v, %v] want [-10, 10]", points[0], points[20])
	}
}

func TestTargetByName(t *testing.T) {
	target, err := TargetByName("quadratic")
	if err != nil {
		t.Fatalf("resolve quadratic: %v", err)
	}
	if got := target(2); got != 12 {
		t.Fatalf("quadratic(2): got %v want 12", got)
	}
	if _, err := TargetByName("septic"); err == nil {
		t.Fatal("expected error for unknown target")
	}
}

func TestEvaluatorRequiresTarget(t *testing.T) {
	if _, err := NewEvaluator(nil, nil); err == nil {
		t.Fatal("expected error for nil target")
	}
}
