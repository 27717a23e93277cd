package operator

import "github.com/anschnapp/mutflow/internal/ir"

// VoidBody replaces a void function's entire body with an empty block.
type VoidBody struct{}

func (VoidBody) Name() string { return "void_body" }

func (VoidBody) OriginalDescription(n ir.Node) string {
	return "<body>"
}

func (VoidBody) Matches(n ir.Node, mc MatchContext) bool {
	_, ok := n.(*ir.Block)
	return ok && mc.IsFuncBody && mc.FuncReturnType.Name == "void"
}

func (VoidBody) Variants(n ir.Node, _ MatchContext) []Variant {
	b := n.(*ir.Block)
	return []Variant{{Operator: "empty", Build: func() ir.Node {
		return &ir.Block{Stmts: nil, Loc: b.Loc}
	}}}
}
