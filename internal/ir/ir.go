// Package ir defines the minimal, host-language-agnostic intermediate
// representation that the operator catalogue and transformer operate on.
//
// Parsing real source into this shape is explicitly out of scope: a
// compiler frontend, a go/ast adapter, or a test fixture all construct
// these nodes the same way. The package also ships a small tree-walking
// evaluator so tests can exercise the full baseline/mutation lifecycle
// without a real compiler in the loop.
package ir

import "context"

// SourceLocation pins a node to a file and line for display names and
// pragma suppression.
type SourceLocation struct {
	File string
	Line int
}

// Checker is the bridge the transformer dispatches through. registry.Registry
// satisfies this interface; it is declared here, at the bottom of the
// dependency graph, so neither ir nor operator need to import registry.
type Checker interface {
	Check(ctx context.Context, pointID string, variantCount int, loc SourceLocation, originalOperator string, variantOperators []string, occurrenceOnLine int) (variantIndex int, ok bool)
}

// Node is satisfied by every IR element.
type Node interface {
	Location() SourceLocation
	Clone() Node
}

// Expr is a node that evaluates to a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a node that executes for effect and may return a value.
type Stmt interface {
	Node
	stmtNode()
}
