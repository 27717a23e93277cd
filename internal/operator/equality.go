package operator

import "github.com/anschnapp/mutflow/internal/ir"

// Equality wraps `==` with a negation and unwraps `!=` back to the bare
// equality it negates. The transformer suppresses independent matching of a
// NotEqualCall's Inner EqualCall so the same comparison is never mutated
// twice under two different point IDs (spec.md Testable Property 10).
type Equality struct{}

func (Equality) Name() string { return "equality" }

func (Equality) OriginalDescription(n ir.Node) string {
	switch n.(type) {
	case *ir.EqualCall:
		return "=="
	case *ir.NotEqualCall:
		return "!="
	default:
		return ""
	}
}

func (Equality) Matches(n ir.Node, _ MatchContext) bool {
	switch n.(type) {
	case *ir.EqualCall, *ir.NotEqualCall:
		return true
	default:
		return false
	}
}

func (Equality) Variants(n ir.Node, _ MatchContext) []Variant {
	switch eq := n.(type) {
	case *ir.EqualCall:
		return []Variant{{Operator: "!=", Build: func() ir.Node {
			return &ir.NotEqualCall{Inner: eq.Clone().(*ir.EqualCall), Loc: eq.Loc}
		}}}
	case *ir.NotEqualCall:
		return []Variant{{Operator: "==", Build: func() ir.Node {
			return eq.Inner.Clone().(*ir.EqualCall)
		}}}
	default:
		panic("operator: equality called on non-matching node")
	}
}
