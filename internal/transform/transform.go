// Package transform implements the IR transformer (C3): it walks a
// compilation unit bottom-up, asks the operator catalogue which mutation
// families apply at each node, and rewrites matched nodes into dispatch
// nodes that call through to a registry at runtime.
package transform

import (
	"fmt"

	"github.com/anschnapp/mutflow/internal/ir"
	"github.com/anschnapp/mutflow/internal/operator"
)

// Transformer holds the catalogue and source-reading configuration shared
// across every compilation unit it transforms. Build one per compile and
// reuse it; its line cache is scoped to its own lifetime.
type Transformer struct {
	Catalogue *operator.Catalogue
	cache     *lineCache
}

// New builds a Transformer. A nil reader defaults to OSSourceReader.
func New(catalogue *operator.Catalogue, reader SourceReader) *Transformer {
	if reader == nil {
		reader = OSSourceReader{}
	}
	return &Transformer{Catalogue: catalogue, cache: newLineCache(reader)}
}

// Transform returns a rewritten copy of unit (the input is not mutated) if
// it carries the mutation-target marker. Unmarked units pass
// through unchanged, per spec.md's target-class scoping rule.
func (t *Transformer) Transform(unit *ir.CompilationUnit) *ir.CompilationUnit {
	if !unit.TargetMarked {
		return unit
	}

	w := &walker{
		t:          t,
		owner:      unit.Name,
		occurrence: make(map[occKey]int),
	}
	if unit.File != "" {
		w.suppressed = t.cache.suppressedLines(unit.File)
	}

	funcs := make([]*ir.FuncDecl, len(unit.Funcs))
	for i, f := range unit.Funcs {
		funcs[i] = w.transformFuncDecl(f)
	}

	return &ir.CompilationUnit{
		Name:         unit.Name,
		File:         unit.File,
		TargetMarked: unit.TargetMarked,
		Funcs:        funcs,
		Loc:          unit.Loc,
	}
}

type occKey struct {
	line int
	op   string
}

// walker carries the per-class counters spec.md §4.3 requires: a
// monotonically increasing point-id counter and a (line, operator)-keyed
// occurrence counter, both cleared on entry to a new class by virtue of a
// fresh walker per Transform call.
type walker struct {
	t          *Transformer
	owner      string
	nextID     int
	occurrence map[occKey]int
	suppressed map[int]bool
}

func (w *walker) isSuppressed(line int) bool {
	return w.suppressed != nil && w.suppressed[line]
}

// allocatePoint assigns the next point id for owner and bumps the
// (line, operator) occurrence counter, returning 1 for that pair's first
// emission.
func (w *walker) allocatePoint(loc ir.SourceLocation, originalOperator string) (pointID string, occurrence int) {
	pointID = fmt.Sprintf("%s_%d", w.owner, w.nextID)
	w.nextID++
	key := occKey{line: loc.Line, op: originalOperator}
	w.occurrence[key]++
	return pointID, w.occurrence[key]
}

func variantNames(vs []operator.Variant) []string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Operator
	}
	return names
}

func (w *walker) transformFuncDecl(f *ir.FuncDecl) *ir.FuncDecl {
	if f.Suppressed {
		return f
	}

	body := w.transformBlock(f.Body, f.ReturnType)

	finalBody := body
	mc := operator.MatchContext{FuncReturnType: f.ReturnType, IsFuncBody: true}
	for _, op := range w.t.Catalogue.All() {
		if !op.Matches(body, mc) {
			continue
		}
		if w.isSuppressed(f.Loc.Line) {
			break
		}
		variants := op.Variants(body, mc)
		pointID, occurrence := w.allocatePoint(f.Loc, op.OriginalDescription(body))
		cases := make([]ir.Stmt, len(variants))
		for i, v := range variants {
			cases[i] = v.Build().(ir.Stmt)
		}
		finalBody = &ir.Block{
			Stmts: []ir.Stmt{&ir.CheckStmt{
				PointID:          pointID,
				VariantCount:     len(variants),
				OriginalOperator: op.OriginalDescription(body),
				VariantOperators: variantNames(variants),
				OccurrenceOnLine: occurrence,
				Cases:            cases,
				Else:             body,
				Loc:              f.Loc,
			}},
			Loc: body.Loc,
		}
		break // function-body operators: only the first match is applied
	}

	return &ir.FuncDecl{
		Name:       f.Name,
		Owner:      f.Owner,
		Params:     append([]ir.Param(nil), f.Params...),
		ReturnType: f.ReturnType,
		Body:       finalBody,
		Suppressed: f.Suppressed,
		Loc:        f.Loc,
	}
}

func (w *walker) transformBlock(b *ir.Block, funcReturnType ir.TypeInfo) *ir.Block {
	stmts := make([]ir.Stmt, len(b.Stmts))
	for i, s := range b.Stmts {
		stmts[i] = w.transformStmt(s, funcReturnType)
	}
	return &ir.Block{Stmts: stmts, Loc: b.Loc}
}

func (w *walker) transformStmt(s ir.Stmt, funcReturnType ir.TypeInfo) ir.Stmt {
	switch n := s.(type) {
	case *ir.ReturnStmt:
		return w.transformReturn(n, funcReturnType)
	case *ir.ExprStmt:
		return &ir.ExprStmt{X: w.transformExpr(n.X), Loc: n.Loc}
	case *ir.AssignStmt:
		return &ir.AssignStmt{Name: n.Name, Value: w.transformExpr(n.Value), Loc: n.Loc}
	case *ir.IfStmt:
		var elseBlock *ir.Block
		if n.Else != nil {
			elseBlock = w.transformBlock(n.Else, funcReturnType)
		}
		return &ir.IfStmt{
			Cond: w.transformExpr(n.Cond),
			Then: w.transformBlock(n.Then, funcReturnType),
			Else: elseBlock,
			Loc:  n.Loc,
		}
	case *ir.Block:
		return w.transformBlock(n, funcReturnType)
	default:
		panic(fmt.Sprintf("transform: unhandled statement %T", s))
	}
}

// transformReturn applies return-statement operators: only the first
// matching operator (in catalogue order) is used, unlike call-expression
// operators which compose.
func (w *walker) transformReturn(n *ir.ReturnStmt, funcReturnType ir.TypeInfo) ir.Stmt {
	var value ir.Expr
	if n.Value != nil {
		value = w.transformExpr(n.Value)
	}
	rebuilt := &ir.ReturnStmt{Value: value, Loc: n.Loc}

	if w.isSuppressed(n.Loc.Line) {
		return rebuilt
	}

	mc := operator.MatchContext{FuncReturnType: funcReturnType}
	for _, op := range w.t.Catalogue.All() {
		if !op.Matches(rebuilt, mc) {
			continue
		}
		variants := op.Variants(rebuilt, mc)
		pointID, occurrence := w.allocatePoint(n.Loc, op.OriginalDescription(rebuilt))
		cases := make([]ir.Stmt, len(variants))
		for i, v := range variants {
			cases[i] = v.Build().(ir.Stmt)
		}
		return &ir.CheckStmt{
			PointID:          pointID,
			VariantCount:     len(variants),
			OriginalOperator: op.OriginalDescription(rebuilt),
			VariantOperators: variantNames(variants),
			OccurrenceOnLine: occurrence,
			Cases:            cases,
			Else:             rebuilt,
			Loc:              n.Loc,
		}
	}
	return rebuilt
}

// transformExpr walks e bottom-up, rebuilding every node so that the
// original tree is never mutated in place, and applies call-expression
// operators to the rebuilt node. `!=` is special-cased so its inner `==` is
// transformed positionally (its operands walked, never matched as an
// independent point), satisfying the no-double-match requirement by
// construction rather than by a precomputed exclusion set.
func (w *walker) transformExpr(e ir.Expr) ir.Expr {
	switch n := e.(type) {
	case *ir.Ident:
		return n
	case *ir.IntLiteral:
		return n
	case *ir.BoolLiteral:
		return n
	case *ir.NullLiteral:
		return n
	case *ir.NotEqualCall:
		inner := &ir.EqualCall{
			Left:  w.transformExpr(n.Inner.Left),
			Right: w.transformExpr(n.Inner.Right),
			Loc:   n.Inner.Loc,
		}
		rebuilt := &ir.NotEqualCall{Inner: inner, Loc: n.Loc}
		return w.applyCallOperators(rebuilt)
	case *ir.EqualCall:
		rebuilt := &ir.EqualCall{Left: w.transformExpr(n.Left), Right: w.transformExpr(n.Right), Loc: n.Loc}
		return w.applyCallOperators(rebuilt)
	case *ir.BinaryCall:
		rebuilt := &ir.BinaryCall{Op: n.Op, Left: w.transformExpr(n.Left), Right: w.transformExpr(n.Right), Loc: n.Loc}
		return w.applyCallOperators(rebuilt)
	case *ir.LogicalOp:
		rebuilt := &ir.LogicalOp{Op: n.Op, Left: w.transformExpr(n.Left), Right: w.transformExpr(n.Right), Loc: n.Loc}
		return w.applyCallOperators(rebuilt)
	case *ir.CondExpr:
		return &ir.CondExpr{
			Cond: w.transformExpr(n.Cond),
			Then: w.transformExpr(n.Then),
			Else: w.transformExpr(n.Else),
			Loc:  n.Loc,
		}
	case *ir.SafeDivideExpr:
		return &ir.SafeDivideExpr{A: w.transformExpr(n.A), B: w.transformExpr(n.B), Loc: n.Loc}
	default:
		panic(fmt.Sprintf("transform: unhandled expression %T", e))
	}
}

// applyCallOperators matches node against the catalogue in order, wrapping
// it in a CheckExpr per match and recursing so further operators may also
// claim the same original node — the composability spec.md §4.2 requires
// for call-expression operators.
func (w *walker) applyCallOperators(node ir.Expr) ir.Expr {
	if w.isSuppressed(node.Location().Line) {
		return node
	}
	return w.buildDispatchExpr(node, 0)
}

func (w *walker) buildDispatchExpr(node ir.Expr, from int) ir.Expr {
	ops := w.t.Catalogue.All()
	for i := from; i < len(ops); i++ {
		op := ops[i]
		if !op.Matches(node, operator.MatchContext{}) {
			continue
		}
		variants := op.Variants(node, operator.MatchContext{})
		pointID, occurrence := w.allocatePoint(node.Location(), op.OriginalDescription(node))
		cases := make([]ir.Expr, len(variants))
		for j, v := range variants {
			cases[j] = v.Build().(ir.Expr)
		}
		return &ir.CheckExpr{
			PointID:          pointID,
			VariantCount:     len(variants),
			OriginalOperator: op.OriginalDescription(node),
			VariantOperators: variantNames(variants),
			OccurrenceOnLine: occurrence,
			Cases:            cases,
			Else:             w.buildDispatchExpr(node, i+1),
			Loc:              node.Location(),
		}
	}
	return node
}
