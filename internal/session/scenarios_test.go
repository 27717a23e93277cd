package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anschnapp/mutflow/internal/ir"
	"github.com/anschnapp/mutflow/internal/operator"
	"github.com/anschnapp/mutflow/internal/registry"
	"github.com/anschnapp/mutflow/internal/transform"
)

// runTest executes fn with args and testID against reg, returning the
// function's result.
func runTest(reg *registry.Registry, fn *ir.FuncDecl, testID string, args map[string]any) any {
	ctx := ir.WithChecker(context.Background(), reg)
	ctx = registry.WithTestID(ctx, testID)
	return ir.CallFunc(ctx, fn, args)
}

// driveBaseline runs tests[i] once each as the baseline, asserting every
// expectation holds on the unmutated function, and returns the transformed
// function and session ready for mutation-run selection.
func driveBaseline(t *testing.T, unit *ir.CompilationUnit, tests []struct {
	name   string
	args   map[string]any
	expect any
}, cfg Config) (*registry.Registry, *Session, *ir.FuncDecl) {
	t.Helper()
	reg := registry.New()
	tr := transform.New(operator.Default(), transform.OSSourceReader{})
	out := tr.Transform(unit)
	fn := out.Funcs[0]

	cfg.ExpectedTestCount = len(tests)
	sess := New(reg, cfg)

	sess.StartRun(0, nil)
	for _, tc := range tests {
		sess.TrackTestExecution(tc.name)
		got := runTest(reg, fn, tc.name, tc.args)
		assert.Equal(t, tc.expect, got, "baseline test %s", tc.name)
	}
	sess.EndRun()

	return reg, sess, fn
}

// driveAllMutations exhausts every untested mutation and returns the set of
// killed and survived display names.
func driveAllMutations(t *testing.T, reg *registry.Registry, sess *Session, fn *ir.FuncDecl, tests []struct {
	name   string
	args   map[string]any
	expect any
}) (killed, survived []string) {
	t.Helper()
	for run := 1; run <= 1000; run++ {
		m, ok := sess.SelectMutationForRun(run)
		if !ok {
			break
		}
		sess.StartRun(run, &m)
		for _, tc := range tests {
			got := runTest(reg, fn, tc.name, tc.args)
			if got != tc.expect {
				sess.MarkTestFailed(tc.name)
			}
		}
		sess.RecordMutationResult()
		sess.EndRun()
		name := sess.GetDisplayName(m)
		if sess.DidMutationSurvive() {
			survived = append(survived, name)
		} else {
			killed = append(killed, name)
		}
	}
	return killed, survived
}

// S1: isPositive(x) := x > 0, killed by all four operator/constant mutations.
func TestScenario_S1_IsPositive(t *testing.T) {
	loc := ir.SourceLocation{File: "Calc.kt", Line: 4}
	body := &ir.Block{Loc: loc, Stmts: []ir.Stmt{
		&ir.ReturnStmt{Loc: loc, Value: &ir.BinaryCall{
			Op: ">", Loc: loc,
			Left:  &ir.Ident{Name: "x", Loc: loc},
			Right: &ir.IntLiteral{Value: 0, Loc: loc},
		}},
	}}
	fn := &ir.FuncDecl{Name: "isPositive", Owner: "Calc", Loc: loc, ReturnType: ir.TypeInfo{Name: "bool"}, Body: body}
	unit := &ir.CompilationUnit{Name: "Calc", File: "Calc.kt", TargetMarked: true, Funcs: []*ir.FuncDecl{fn}, Loc: loc}

	tests := []struct {
		name   string
		args   map[string]any
		expect any
	}{
		{"t5", map[string]any{"x": int64(5)}, true},
		{"tneg5", map[string]any{"x": int64(-5)}, false},
		{"t0", map[string]any{"x": int64(0)}, false},
		{"t1", map[string]any{"x": int64(1)}, true},
	}

	reg, sess, outFn := driveBaseline(t, unit, tests, Config{MaxRuns: 10, Selection: MostLikelyStable, Shuffle: PerChange})
	killed, survived := driveAllMutations(t, reg, sess, outFn, tests)

	assert.Len(t, killed, 4)
	assert.Empty(t, survived)

	summary := sess.Close()
	assert.Equal(t, 4, summary.Killed)
	assert.Equal(t, 0, summary.Survived)
}

// S2: isInRange(x,min,max) := (x >= min) && (x <= max). The boundary-toggle
// variant of each relational comparison (>= -> >, <= -> <) must be killed at
// exactly its own endpoint and leave every other test case unaffected.
func TestScenario_S2_IsInRangeBoundaryToggle(t *testing.T) {
	loc := ir.SourceLocation{File: "Calc.kt", Line: 8}
	ge := &ir.BinaryCall{Op: ">=", Loc: loc, Left: &ir.Ident{Name: "x", Loc: loc}, Right: &ir.Ident{Name: "min", Loc: loc}}
	le := &ir.BinaryCall{Op: "<=", Loc: loc, Left: &ir.Ident{Name: "x", Loc: loc}, Right: &ir.Ident{Name: "max", Loc: loc}}
	and := &ir.LogicalOp{Op: "&&", Loc: loc, Left: ge, Right: le}
	body := &ir.Block{Loc: loc, Stmts: []ir.Stmt{&ir.ReturnStmt{Loc: loc, Value: and}}}
	fn := &ir.FuncDecl{Name: "isInRange", Owner: "Calc", Loc: loc, ReturnType: ir.TypeInfo{Name: "bool"}, Body: body}
	unit := &ir.CompilationUnit{Name: "Calc", File: "Calc.kt", TargetMarked: true, Funcs: []*ir.FuncDecl{fn}, Loc: loc}

	reg := registry.New()
	tr := transform.New(operator.Default(), transform.OSSourceReader{})
	out := tr.Transform(unit)
	outFn := out.Funcs[0]

	tests := []struct {
		name   string
		args   map[string]any
		expect bool
	}{
		{"in-range", map[string]any{"x": int64(5), "min": int64(1), "max": int64(10)}, true},
		{"below", map[string]any{"x": int64(0), "min": int64(1), "max": int64(10)}, false},
		{"above", map[string]any{"x": int64(11), "min": int64(1), "max": int64(10)}, false},
		{"at-lower", map[string]any{"x": int64(1), "min": int64(1), "max": int64(10)}, true},
		{"at-upper", map[string]any{"x": int64(10), "min": int64(1), "max": int64(10)}, true},
	}

	h := reg.WithSession(nil)
	for _, tc := range tests {
		runTest(reg, outFn, tc.name, tc.args)
	}
	discoveries := h.Release()

	var gePoint, lePoint string
	for id, p := range discoveries.Points {
		switch p.OriginalOperator {
		case ">=":
			gePoint = id
		case "<=":
			lePoint = id
		}
	}
	require.NotEmpty(t, gePoint, ">= comparison must be discovered")
	require.NotEmpty(t, lePoint, "<= comparison must be discovered")

	runBoundaryVariant := func(pointID string) map[string]bool {
		h := reg.WithSession(&registry.ActiveMutation{PointID: pointID, VariantIndex: 0})
		defer h.Release()
		results := make(map[string]bool)
		for _, tc := range tests {
			results[tc.name] = runTest(reg, outFn, tc.name, tc.args).(bool)
		}
		return results
	}

	geResults := runBoundaryVariant(gePoint)
	for _, tc := range tests {
		if tc.name == "at-lower" {
			assert.NotEqual(t, tc.expect, geResults[tc.name], ">= boundary toggle must flip at-lower")
		} else {
			assert.Equal(t, tc.expect, geResults[tc.name], ">= boundary toggle must not affect %s", tc.name)
		}
	}

	leResults := runBoundaryVariant(lePoint)
	for _, tc := range tests {
		if tc.name == "at-upper" {
			assert.NotEqual(t, tc.expect, leResults[tc.name], "<= boundary toggle must flip at-upper")
		} else {
			assert.Equal(t, tc.expect, leResults[tc.name], "<= boundary toggle must not affect %s", tc.name)
		}
	}
}

// S3: multiply(a,b) := a*b under the *→/ safe-divide variant never panics
// and matches the documented edge-case outputs.
func TestScenario_S3_SafeDivideNeverPanics(t *testing.T) {
	loc := ir.SourceLocation{File: "Calc.kt", Line: 12}
	body := &ir.Block{Loc: loc, Stmts: []ir.Stmt{
		&ir.ReturnStmt{Loc: loc, Value: &ir.BinaryCall{
			Op: "*", Loc: loc,
			Left:  &ir.Ident{Name: "a", Loc: loc},
			Right: &ir.Ident{Name: "b", Loc: loc},
		}},
	}}
	fn := &ir.FuncDecl{Name: "multiply", Owner: "Calc", Loc: loc, ReturnType: ir.TypeInfo{Name: "int"}, Body: body}
	unit := &ir.CompilationUnit{Name: "Calc", File: "Calc.kt", TargetMarked: true, Funcs: []*ir.FuncDecl{fn}, Loc: loc}

	reg := registry.New()
	tr := transform.New(operator.Default(), transform.OSSourceReader{})
	out := tr.Transform(unit)
	outFn := out.Funcs[0]

	h := reg.WithSession(&registry.ActiveMutation{PointID: "Calc_0", VariantIndex: 0}) // * -> safe-divide
	defer h.Release()

	assert.NotPanics(t, func() {
		got := runTest(reg, outFn, "t1", map[string]any{"a": int64(5), "b": int64(0)})
		assert.Equal(t, int64(0), got)

		got = runTest(reg, outFn, "t2", map[string]any{"a": int64(0), "b": int64(0)})
		assert.Equal(t, int64(1), got)

		got = runTest(reg, outFn, "t3", map[string]any{"a": int64(6), "b": int64(3)})
		assert.Equal(t, int64(2), got)
	})
}

// S4: void-body mutation removes recordResult's side effect.
func TestScenario_S4_VoidBodyKilled(t *testing.T) {
	loc := ir.SourceLocation{File: "Calc.kt", Line: 20}
	body := &ir.Block{Loc: loc, Stmts: []ir.Stmt{
		&ir.AssignStmt{Name: "lastResult", Value: &ir.Ident{Name: "v", Loc: loc}, Loc: loc},
	}}
	fn := &ir.FuncDecl{Name: "recordResult", Owner: "Calc", Loc: loc, ReturnType: ir.TypeInfo{Name: "void"}, Body: body}
	unit := &ir.CompilationUnit{Name: "Calc", File: "Calc.kt", TargetMarked: true, Funcs: []*ir.FuncDecl{fn}, Loc: loc}

	reg := registry.New()
	tr := transform.New(operator.Default(), transform.OSSourceReader{})
	out := tr.Transform(unit)
	outFn := out.Funcs[0]

	runWithLastResult := func(testID string, active *registry.ActiveMutation) int64 {
		h := reg.WithSession(active)
		defer h.Release()
		ctx := ir.WithChecker(context.Background(), reg)
		ctx = registry.WithTestID(ctx, testID)
		env := ir.NewEnv(ctx, map[string]any{"v": int64(42)})
		ir.ExecBlock(env, outFn.Body)
		lastResult, _ := env.Vars["lastResult"].(int64)
		return lastResult
	}

	baseline := runWithLastResult("baseline", nil)
	require.Equal(t, int64(42), baseline)

	mutated := runWithLastResult("mutant", &registry.ActiveMutation{PointID: "Calc_0", VariantIndex: 0})
	assert.NotEqual(t, int64(42), mutated)
}

// S5: a suppressed line produces no discovered point; the adjacent
// unannotated comparison is unaffected.
func TestScenario_S5_PragmaSuppression(t *testing.T) {
	loc1 := ir.SourceLocation{File: "Calc.kt", Line: 30}
	loc2 := ir.SourceLocation{File: "Calc.kt", Line: 31}
	body := &ir.Block{Loc: loc1, Stmts: []ir.Stmt{
		&ir.IfStmt{
			Loc:  loc1,
			Cond: &ir.BinaryCall{Op: ">", Loc: loc1, Left: &ir.Ident{Name: "a", Loc: loc1}, Right: &ir.IntLiteral{Value: 0, Loc: loc1}},
			Then: &ir.Block{Loc: loc1, Stmts: []ir.Stmt{&ir.ExprStmt{X: &ir.Ident{Name: "a", Loc: loc1}, Loc: loc1}}},
		},
		&ir.ReturnStmt{Loc: loc2, Value: &ir.BinaryCall{
			Op: ">", Loc: loc2,
			Left:  &ir.Ident{Name: "b", Loc: loc2},
			Right: &ir.IntLiteral{Value: 0, Loc: loc2},
		}},
	}}
	fn := &ir.FuncDecl{Name: "f", Owner: "Calc", Loc: loc1, ReturnType: ir.TypeInfo{Name: "bool"}, Body: body}
	unit := &ir.CompilationUnit{Name: "Calc", File: "Calc.kt", TargetMarked: true, Funcs: []*ir.FuncDecl{fn}, Loc: loc1}

	reader := fakeLines{
		29: "",
		30: "if (a > 0) { a } // mutflow:ignore known false positive",
		31: "return b > 0",
	}
	tr := transform.New(operator.Default(), reader)
	out := tr.Transform(unit)

	ifStmt := out.Funcs[0].Body.Stmts[0].(*ir.IfStmt)
	_, suppressedIsCheck := ifStmt.Cond.(*ir.CheckExpr)
	assert.False(t, suppressedIsCheck, "suppressed line must not emit a dispatch")

	retStmt := out.Funcs[0].Body.Stmts[1].(*ir.ReturnStmt)
	_, unsuppressedIsCheck := retStmt.Value.(*ir.CheckExpr)
	assert.True(t, unsuppressedIsCheck, "unsuppressed line must still be mutated")
}

// S6: a configured trap runs first regardless of selection strategy; a
// malformed trap string is diagnosed, not fatal, and the session proceeds
// normally with the rest of its mutations.
func TestScenario_S6_TrapRunsFirstMalformedIsDiagnosedNotFatal(t *testing.T) {
	loc := ir.SourceLocation{File: "Calc.kt", Line: 8}
	body := &ir.Block{Loc: loc, Stmts: []ir.Stmt{
		&ir.ReturnStmt{Loc: loc, Value: &ir.BinaryCall{Op: ">", Loc: loc, Left: &ir.Ident{Name: "x", Loc: loc}, Right: &ir.IntLiteral{Value: 0, Loc: loc}}},
	}}
	fn := &ir.FuncDecl{Name: "isPositive", Owner: "Calc", Loc: loc, ReturnType: ir.TypeInfo{Name: "bool"}, Body: body}
	unit := &ir.CompilationUnit{Name: "Calc", File: "Calc.kt", TargetMarked: true, Funcs: []*ir.FuncDecl{fn}, Loc: loc}

	tests := []struct {
		name   string
		args   map[string]any
		expect any
	}{
		{"t5", map[string]any{"x": int64(5)}, true},
		{"tneg5", map[string]any{"x": int64(-5)}, false},
		{"t0", map[string]any{"x": int64(0)}, false},
		{"t1", map[string]any{"x": int64(1)}, true},
	}

	// A throwaway run discovers the real display name of the "0 → -1"
	// constant mutation, used below as a known-good trap string.
	_, probe, _ := driveBaseline(t, unit, tests, Config{MaxRuns: 10, Selection: MostLikelyStable, Shuffle: PerChange})
	var trapPoint string
	for id, meta := range probe.pointMetadata {
		if meta.OriginalOperator == "0" {
			trapPoint = id
		}
	}
	require.NotEmpty(t, trapPoint, "constant mutation point must be discovered")
	trapName := probe.GetDisplayName(registry.ActiveMutation{PointID: trapPoint, VariantIndex: 1}) // "0" -> "-1"

	cfg := Config{
		MaxRuns:   10,
		Selection: PureRandom, // trap precedence must hold regardless of strategy
		Shuffle:   PerChange,
		Traps:     []string{trapName, "(Calc.kt:999) nope → nowhere"},
	}
	reg, sess, outFn := driveBaseline(t, unit, tests, cfg)

	first, ok := sess.SelectMutationForRun(1)
	require.True(t, ok)
	assert.Equal(t, trapPoint, first.PointID)
	assert.Equal(t, 1, first.VariantIndex)

	// The malformed trap produced a diagnostic, not a panic, and the session
	// still runs every remaining mutation to completion.
	sess.StartRun(1, &first)
	for _, tc := range tests {
		got := runTest(reg, outFn, tc.name, tc.args)
		if got != tc.expect {
			sess.MarkTestFailed(tc.name)
		}
	}
	sess.RecordMutationResult()
	sess.EndRun()

	_, survived := driveAllMutations(t, reg, sess, outFn, tests)
	assert.Empty(t, survived)
}

// S7: a baseline that executes fewer tests than expected skips all mutation
// runs and reports no survivors.
func TestScenario_S7_PartialRun(t *testing.T) {
	loc := ir.SourceLocation{File: "Calc.kt", Line: 4}
	body := &ir.Block{Loc: loc, Stmts: []ir.Stmt{
		&ir.ReturnStmt{Loc: loc, Value: &ir.BinaryCall{Op: ">", Loc: loc, Left: &ir.Ident{Name: "x", Loc: loc}, Right: &ir.IntLiteral{Value: 0, Loc: loc}}},
	}}
	fn := &ir.FuncDecl{Name: "isPositive", Owner: "Calc", Loc: loc, ReturnType: ir.TypeInfo{Name: "bool"}, Body: body}
	unit := &ir.CompilationUnit{Name: "Calc", File: "Calc.kt", TargetMarked: true, Funcs: []*ir.FuncDecl{fn}, Loc: loc}

	reg := registry.New()
	tr := transform.New(operator.Default(), transform.OSSourceReader{})
	out := tr.Transform(unit)
	outFn := out.Funcs[0]

	sess := New(reg, Config{MaxRuns: 10, Selection: MostLikelyStable, Shuffle: PerChange, ExpectedTestCount: 3})
	sess.StartRun(0, nil)
	sess.TrackTestExecution("only-test")
	runTest(reg, outFn, "only-test", map[string]any{"x": int64(5)})
	sess.EndRun()

	_, ok := sess.SelectMutationForRun(1)
	assert.False(t, ok)

	summary := sess.Close()
	assert.Equal(t, 0, summary.Survived)
	assert.Equal(t, 0, summary.Tested)
}

type fakeLines map[int]string

func (f fakeLines) ReadLines(string) ([]string, error) {
	max := 0
	for ln := range f {
		if ln > max {
			max = ln
		}
	}
	out := make([]string, max+1)
	for ln, text := range f {
		out[ln-1] = text
	}
	return out, nil
}
