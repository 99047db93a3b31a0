package expr

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonFinite reports that evaluation produced Inf or NaN. With the
// {add, subtract, multiply} operator set this only happens on overflow.
var ErrNonFinite = errors.New("expression evaluated to a non-finite value")

type Kind int

const (
	KindVariable Kind = iota
	KindConstant
	KindFunction
)

type Op int

const (
	OpAdd Op = iota
	OpSubtract
	OpMultiply
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Ops lists the full operator set, in a fixed order for uniform sampling.
var Ops = []Op{OpAdd, OpSubtract, OpMultiply}

// Node is one node of an expression tree. A Function node owns exactly two
// children; Variable and Constant nodes own none. Trees are never shared
// between individuals: every structural reuse goes through Clone.
type Node struct {
	Kind  Kind
	Op    Op
	Value float64
	Left  *Node
	Right *Node
}

func Variable() *Node {
	return &Node{Kind: KindVariable}
}

func Constant(value float64) *Node {
	return &Node{Kind: KindConstant, Value: value}
}

func Function(op Op, left, right *Node) *Node {
	return &Node{Kind: KindFunction, Op: op, Left: left, Right: right}
}

// Evaluate interprets the tree at input x. It is deterministic and
// side-effect-free: the same tree and x always yield the same result.
func (n *Node) Evaluate(x float64) (float64, error) {
	switch n.Kind {
	case KindVariable:
		return x, nil
	case KindConstant:
		return n.Value, nil
	case KindFunction:
		left, err := n.Left.Evaluate(x)
		if err != nil {
			return 0, err
		}
		right, err := n.Right.Evaluate(x)
		if err != nil {
			return 0, err
		}
		var out float64
		switch n.Op {
		case OpAdd:
			out = left + right
		case OpSubtract:
			out = left - right
		case OpMultiply:
			out = left * right
		default:
			return 0, fmt.Errorf("unknown operator: %d", int(n.Op))
		}
		if math.IsInf(out, 0) || math.IsNaN(out) {
			return 0, ErrNonFinite
		}
		return out, nil
	default:
		return 0, fmt.Errorf("unknown node kind: %d", int(n.Kind))
	}
}

// Clone returns a deep structural copy. The result shares no nodes with the
// receiver, so callers may hand it to another individual safely.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Op: n.Op, Value: n.Value}
	if n.Kind == KindFunction {
		out.Left = n.Left.Clone()
		out.Right = n.Right.Clone()
	}
	return out
}

// Depth returns the height of the tree; a lone terminal has depth 0.
func (n *Node) Depth() int {
	if n == nil || n.Kind != KindFunction {
		return 0
	}
	left := n.Left.Depth()
	right := n.Right.Depth()
	if right > left {
		left = right
	}
	return left + 1
}

// Count returns the number of nodes in the tree.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	if n.Kind != KindFunction {
		return 1
	}
	return 1 + n.Left.Count() + n.Right.Count()
}

// Nodes returns every node in preorder. Index 0 is the root. The returned
// pointers alias the receiver's tree; callers that need isolation must Clone
// first.
func (n *Node) Nodes() []*Node {
	out := make([]*Node, 0, n.Count())
	var walk func(node *Node)
	walk = func(node *Node) {
		if node == nil {
			return
		}
		out = append(out, node)
		if node.Kind == KindFunction {
			walk(node.Left)
			walk(node.Right)
		}
	}
	walk(n)
	return out
}

// ReplaceAt returns root with the subtree at preorder index replaced by repl.
// Root and repl are adopted, not copied; index 0 replaces the whole tree.
func ReplaceAt(root *Node, index int, repl *Node) (*Node, error) {
	if root == nil {
		return nil, errors.New("root is nil")
	}
	if repl == nil {
		return nil, errors.New("replacement is nil")
	}
	total := root.Count()
	if index < 0 || index >= total {
		return nil, fmt.Errorf("node index out of range: %d (tree has %d nodes)", index, total)
	}
	if index == 0 {
		return repl, nil
	}
	if !replaceInSubtree(root, index, repl, new(int)) {
		return nil, fmt.Errorf("node index not reached: %d", index)
	}
	return root, nil
}

func replaceInSubtree(node *Node, target int, repl *Node, cursor *int) bool {
	if node == nil || node.Kind != KindFunction {
		return false
	}
	*cursor++
	if *cursor == target {
		node.Left = repl
		return true
	}
	if replaceInSubtree(node.Left, target, repl, cursor) {
		return true
	}
	*cursor++
	if *cursor == target {
		node.Right = repl
		return true
	}
	return replaceInSubtree(node.Right, target, repl, cursor)
}

// Equal reports structural equality of two trees.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindVariable:
		return true
	case KindConstant:
		return a.Value == b.Value
	case KindFunction:
		return a.Op == b.Op && Equal(a.Left, b.Left) && Equal(a.Right, b.Right)
	default:
		return false
	}
}

// String renders the tree as a fully parenthesized infix expression,
// e.g. "((x * x) + 2)".
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindVariable:
		return "x"
	case KindConstant:
		if n.Value == math.Trunc(n.Value) && !math.IsInf(n.Value, 0) {
			return fmt.Sprintf("%d", int64(n.Value))
		}
		return fmt.Sprintf("%g", n.Value)
	case KindFunction:
		return fmt.Sprintf("(%s %s %s)", n.Left.String(), n.Op.String(), n.Right.String())
	default:
		return fmt.Sprintf("node(%d)", int(n.Kind))
	}
}
