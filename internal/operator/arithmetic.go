package operator

import "github.com/anschnapp/mutflow/internal/ir"

var arithmeticOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}

// Arithmetic pairs addition with subtraction, multiplication with division,
// and maps modulo to division — using SafeDivideExpr wherever the built
// variant could divide by zero, per spec.md Testable Property 8.
type Arithmetic struct{}

func (Arithmetic) Name() string { return "arithmetic" }

func (Arithmetic) OriginalDescription(n ir.Node) string {
	return n.(*ir.BinaryCall).Op
}

func (Arithmetic) Matches(n ir.Node, _ MatchContext) bool {
	b, ok := n.(*ir.BinaryCall)
	return ok && arithmeticOps[b.Op]
}

func (Arithmetic) Variants(n ir.Node, _ MatchContext) []Variant {
	b := n.(*ir.BinaryCall)
	switch b.Op {
	case "+":
		return []Variant{{Operator: "-", Build: func() ir.Node {
			return &ir.BinaryCall{Op: "-", Left: b.Left.Clone().(ir.Expr), Right: b.Right.Clone().(ir.Expr), Loc: b.Loc}
		}}}
	case "-":
		return []Variant{{Operator: "+", Build: func() ir.Node {
			return &ir.BinaryCall{Op: "+", Left: b.Left.Clone().(ir.Expr), Right: b.Right.Clone().(ir.Expr), Loc: b.Loc}
		}}}
	case "*":
		return []Variant{{Operator: "/", Build: func() ir.Node {
			return &ir.SafeDivideExpr{A: b.Left.Clone().(ir.Expr), B: b.Right.Clone().(ir.Expr), Loc: b.Loc}
		}}}
	case "/":
		return []Variant{{Operator: "*", Build: func() ir.Node {
			return &ir.BinaryCall{Op: "*", Left: b.Left.Clone().(ir.Expr), Right: b.Right.Clone().(ir.Expr), Loc: b.Loc}
		}}}
	case "%":
		return []Variant{{Operator: "/", Build: func() ir.Node {
			return &ir.SafeDivideExpr{A: b.Left.Clone().(ir.Expr), B: b.Right.Clone().(ir.Expr), Loc: b.Loc}
		}}}
	default:
		panic("operator: arithmetic called on non-matching node")
	}
}
