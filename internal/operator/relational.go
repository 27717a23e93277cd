package operator

import "github.com/anschnapp/mutflow/internal/ir"

var relationalFlip = map[string]string{">": "<", "<": ">", ">=": "<=", "<=": ">="}
var relationalBoundary = map[string]string{">": ">=", "<": "<=", ">=": ">", "<=": "<"}

// Relational mutates a relational comparison's boundary inclusivity and its
// direction. Normative order: boundary toggle first, direction flip second.
type Relational struct{}

func (Relational) Name() string { return "relational" }

func (Relational) OriginalDescription(n ir.Node) string {
	return n.(*ir.BinaryCall).Op
}

func (Relational) Matches(n ir.Node, _ MatchContext) bool {
	b, ok := n.(*ir.BinaryCall)
	if !ok {
		return false
	}
	_, ok = relationalFlip[b.Op]
	return ok
}

func (Relational) Variants(n ir.Node, _ MatchContext) []Variant {
	b := n.(*ir.BinaryCall)
	return []Variant{
		{Operator: relationalBoundary[b.Op], Build: func() ir.Node {
			return &ir.BinaryCall{Op: relationalBoundary[b.Op], Left: b.Left.Clone().(ir.Expr), Right: b.Right.Clone().(ir.Expr), Loc: b.Loc}
		}},
		{Operator: relationalFlip[b.Op], Build: func() ir.Node {
			return &ir.BinaryCall{Op: relationalFlip[b.Op], Left: b.Left.Clone().(ir.Expr), Right: b.Right.Clone().(ir.Expr), Loc: b.Loc}
		}},
	}
}
