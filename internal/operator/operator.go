// Package operator implements the eight mutation-operator families: given an
// ir.Node, each operator decides whether it applies and, if so, builds the
// one or more replacement nodes ("variants") the transformer wires into a
// dispatch point.
//
// The registration idiom mirrors the teacher's oracle plugin registry
// (internal/oracle/registry.go): a Catalogue that operators are Registered
// into (Default registers the eight built-in families), looked up by name
// rather than switched on by type. Unlike the teacher's registry, lookup here is never by name at
// mutation time — the transformer walks the ordered catalogue and asks each
// operator Matches in turn — so Catalogue additionally exposes All() in
// registration order, which is what makes variant ordering normative.
package operator

import "github.com/anschnapp/mutflow/internal/ir"

// MatchContext carries the static facts an operator needs beyond the node
// itself: the enclosing function's declared return type, and whether the
// node under consideration is a function's top-level body.
type MatchContext struct {
	FuncReturnType ir.TypeInfo
	IsFuncBody     bool
}

// Variant is one mutated alternative to an original node. Build must return
// a freshly constructed node on every call; returning a shared subtree would
// let two dispatch cases alias the same node and violates spec.md's
// no-aliasing requirement.
type Variant struct {
	Operator string
	Build    func() ir.Node
}

// Operator is one mutation-operator family.
type Operator interface {
	// Name identifies the operator for display names and configuration.
	Name() string
	// OriginalDescription names the operator applied to the unmutated node,
	// for the "originalOperator" half of a display name.
	OriginalDescription(n ir.Node) string
	// Matches reports whether this operator applies to n in mc.
	Matches(n ir.Node, mc MatchContext) bool
	// Variants returns n's replacement variants in normative order. Matches
	// must be called first; Variants may panic on a non-matching node.
	Variants(n ir.Node, mc MatchContext) []Variant
}

// Catalogue is an ordered collection of operators, matched in registration
// order so that which operator "claims" a node is deterministic when more
// than one family could apply to the same shape.
type Catalogue struct {
	byName map[string]Operator
	order  []Operator
}

// NewCatalogue builds an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{byName: make(map[string]Operator)}
}

// Register adds op to the catalogue. Registering the same name twice panics,
// since that always indicates a programming error in catalogue setup.
func (c *Catalogue) Register(op Operator) {
	if _, exists := c.byName[op.Name()]; exists {
		panic("operator: duplicate registration for " + op.Name())
	}
	c.byName[op.Name()] = op
	c.order = append(c.order, op)
}

// Lookup finds an operator by name.
func (c *Catalogue) Lookup(name string) (Operator, bool) {
	op, ok := c.byName[name]
	return op, ok
}

// All returns every registered operator in registration order.
func (c *Catalogue) All() []Operator {
	out := make([]Operator, len(c.order))
	copy(out, c.order)
	return out
}

// Default returns a catalogue with all eight built-in operator families
// registered in the order spec.md §4.2 lists them.
func Default() *Catalogue {
	c := NewCatalogue()
	c.Register(Relational{})
	c.Register(ConstantBoundary{})
	c.Register(Arithmetic{})
	c.Register(Equality{})
	c.Register(BooleanLogic{})
	c.Register(BooleanReturn{})
	c.Register(NullableReturn{})
	c.Register(VoidBody{})
	return c
}
