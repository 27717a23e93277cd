package operator

import "github.com/anschnapp/mutflow/internal/ir"

// BooleanReturn replaces a boolean-typed return value with the two constant
// values, in the normative order "return true" then "return false".
type BooleanReturn struct{}

func (BooleanReturn) Name() string { return "boolean_return" }

func (BooleanReturn) OriginalDescription(n ir.Node) string {
	r := n.(*ir.ReturnStmt)
	if r.Value == nil {
		return "return"
	}
	return "return <expr>"
}

func (BooleanReturn) Matches(n ir.Node, mc MatchContext) bool {
	r, ok := n.(*ir.ReturnStmt)
	if !ok || r.Value == nil || !mc.FuncReturnType.IsBoolean() {
		return false
	}
	if _, isConst := r.Value.(*ir.BoolLiteral); isConst {
		return false
	}
	return true
}

func (BooleanReturn) Variants(n ir.Node, _ MatchContext) []Variant {
	r := n.(*ir.ReturnStmt)
	return []Variant{
		{Operator: "return true", Build: func() ir.Node {
			return &ir.ReturnStmt{Value: &ir.BoolLiteral{Value: true, Loc: r.Loc}, Loc: r.Loc}
		}},
		{Operator: "return false", Build: func() ir.Node {
			return &ir.ReturnStmt{Value: &ir.BoolLiteral{Value: false, Loc: r.Loc}, Loc: r.Loc}
		}},
	}
}
