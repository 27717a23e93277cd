package operator

import "github.com/anschnapp/mutflow/internal/ir"

// BooleanLogic swaps the short-circuited branch result with the constant
// result of `&&`/`||`: `a && b` (≡ a ? b : false) becomes `a ? false : b`,
// and `a || b` (≡ a ? true : b) becomes `a ? b : true`.
type BooleanLogic struct{}

func (BooleanLogic) Name() string { return "boolean_logic" }

func (BooleanLogic) OriginalDescription(n ir.Node) string {
	return n.(*ir.LogicalOp).Op
}

func (BooleanLogic) Matches(n ir.Node, _ MatchContext) bool {
	l, ok := n.(*ir.LogicalOp)
	return ok && (l.Op == "&&" || l.Op == "||")
}

func (BooleanLogic) Variants(n ir.Node, _ MatchContext) []Variant {
	l := n.(*ir.LogicalOp)
	return []Variant{{Operator: l.Op + "-swap", Build: func() ir.Node {
		cond := l.Left.Clone().(ir.Expr)
		branch := l.Right.Clone().(ir.Expr)
		if l.Op == "&&" {
			return &ir.CondExpr{Cond: cond, Then: &ir.BoolLiteral{Value: false, Loc: l.Loc}, Else: branch, Loc: l.Loc}
		}
		return &ir.CondExpr{Cond: cond, Then: branch, Else: &ir.BoolLiteral{Value: true, Loc: l.Loc}, Loc: l.Loc}
	}}}
}
