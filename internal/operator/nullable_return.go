package operator

import "github.com/anschnapp/mutflow/internal/ir"

// NullableReturn replaces a nullable-typed return value with the absent
// value.
type NullableReturn struct{}

func (NullableReturn) Name() string { return "nullable_return" }

func (NullableReturn) OriginalDescription(n ir.Node) string {
	return "return <expr>"
}

func (NullableReturn) Matches(n ir.Node, mc MatchContext) bool {
	r, ok := n.(*ir.ReturnStmt)
	if !ok || r.Value == nil || !mc.FuncReturnType.Nullable {
		return false
	}
	if _, isAbsent := r.Value.(*ir.NullLiteral); isAbsent {
		return false
	}
	return true
}

func (NullableReturn) Variants(n ir.Node, _ MatchContext) []Variant {
	r := n.(*ir.ReturnStmt)
	return []Variant{{Operator: "return absent", Build: func() ir.Node {
		return &ir.ReturnStmt{Value: &ir.NullLiteral{Loc: r.Loc}, Loc: r.Loc}
	}}}
}
