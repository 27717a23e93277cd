package operator

import (
	"fmt"

	"github.com/anschnapp/mutflow/internal/ir"
)

// constantBoundaryOps repeats the relational operator set Relational matches
// (the keys of relationalFlip) to keep the two operators independently
// readable.
var constantBoundaryOps = map[string]bool{">": true, "<": true, ">=": true, "<=": true}

// ConstantBoundary nudges an integer-literal operand of a relational
// comparison by one in each direction. The right operand is preferred when
// both sides are literals, matching spec.md §4.2's stated preference.
type ConstantBoundary struct{}

func (ConstantBoundary) Name() string { return "constant_boundary" }

func (ConstantBoundary) OriginalDescription(n ir.Node) string {
	b := n.(*ir.BinaryCall)
	if lit, ok := b.Right.(*ir.IntLiteral); ok {
		return fmt.Sprintf("%d", lit.Value)
	}
	return fmt.Sprintf("%d", b.Left.(*ir.IntLiteral).Value)
}

func (ConstantBoundary) Matches(n ir.Node, _ MatchContext) bool {
	b, ok := n.(*ir.BinaryCall)
	if !ok || !constantBoundaryOps[b.Op] {
		return false
	}
	_, rightLit := b.Right.(*ir.IntLiteral)
	_, leftLit := b.Left.(*ir.IntLiteral)
	return rightLit || leftLit
}

func (ConstantBoundary) Variants(n ir.Node, _ MatchContext) []Variant {
	b := n.(*ir.BinaryCall)
	lit, onRight := b.Right.(*ir.IntLiteral)
	if !onRight {
		lit = b.Left.(*ir.IntLiteral)
	}
	build := func(delta int64) func() ir.Node {
		return func() ir.Node {
			nudged := &ir.IntLiteral{Value: lit.Value + delta, Loc: lit.Loc}
			if onRight {
				return &ir.BinaryCall{Op: b.Op, Left: b.Left.Clone().(ir.Expr), Right: nudged, Loc: b.Loc}
			}
			return &ir.BinaryCall{Op: b.Op, Left: nudged, Right: b.Right.Clone().(ir.Expr), Loc: b.Loc}
		}
	}
	return []Variant{
		{Operator: fmt.Sprintf("%d", lit.Value+1), Build: build(1)},
		{Operator: fmt.Sprintf("%d", lit.Value-1), Build: build(-1)},
	}
}
