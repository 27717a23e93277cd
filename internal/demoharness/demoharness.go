// Package demoharness is a small in-memory test-framework adapter: it
// drives the C5 harness contract against IR-level fixtures instead of a
// real compiled test runner, the way a smoke-test harness exercises a
// protocol without a full client. It exists to give the rest of the
// engine something to run end to end, both from its own tests and from
// cmd/mutflow's demo subcommand.
package demoharness

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/anschnapp/mutflow/internal/harness"
	"github.com/anschnapp/mutflow/internal/ir"
	"github.com/anschnapp/mutflow/internal/logger"
	"github.com/anschnapp/mutflow/internal/registry"
	"github.com/anschnapp/mutflow/internal/session"
)

// TestCase is one fixture invocation of a function under test: call Func
// with Args bound and compare the result against Expect.
type TestCase struct {
	ID     string
	Func   *ir.FuncDecl
	Args   map[string]any
	Expect any
}

// TestClass groups the compiled functions of one compilation unit with the
// fixture test cases that exercise them. Owner must match the owner
// encoded in every discovered point id, which in turn must match
// unit.Name as passed through the transformer.
type TestClass struct {
	Owner string
	Tests []TestCase
}

// Runner drives one TestClass through a full baseline-then-mutations
// session against a shared Harness.
type Runner struct {
	H harness.Harness
}

// NewRunner builds a Runner over h.
func NewRunner(h harness.Harness) *Runner {
	return &Runner{H: h}
}

// Run executes the full lifecycle spec.md §4.4 describes for class: create
// a session, run the baseline, then select and run mutations one at a time
// until the session reports exhaustion or cfg.MaxRuns is reached. It
// returns the session summary.
func (r *Runner) Run(ctx context.Context, cfg session.Config, class TestClass) session.Summary {
	sessionID := r.H.CreateSession(cfg)

	r.runBaseline(ctx, sessionID, class)

	for run := 1; cfg.MaxRuns == 0 || run <= cfg.MaxRuns; run++ {
		mutation, ok := r.H.SelectMutationForRun(sessionID, run)
		if !ok {
			break
		}
		r.runMutation(ctx, sessionID, run, mutation, class)
	}

	return r.H.CloseSession(sessionID)
}

// runBaseline executes every test case in class concurrently, the way a
// real test framework parallelizes independent test methods within one
// class. Each goroutine gets its own checker context tagged with its own
// test id so the registry can attribute touch counts per test regardless
// of interleaving.
func (r *Runner) runBaseline(ctx context.Context, sessionID string, class TestClass) {
	r.H.StartRun(sessionID, 0, nil)

	var eg errgroup.Group
	for _, tc := range class.Tests {
		tc := tc
		eg.Go(func() error {
			r.H.TrackTestExecution(sessionID, tc.ID)
			testCtx := registry.WithTestID(ir.WithChecker(ctx, r.H.Checker()), tc.ID)
			got := ir.CallFunc(testCtx, tc.Func, tc.Args)
			if got != tc.Expect {
				r.H.MarkTestFailed(sessionID, tc.ID)
				return fmt.Errorf("demoharness: baseline test %s: got %v, want %v", tc.ID, got, tc.Expect)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logger.Warn("demoharness: %s", err)
	}

	r.H.EndRun(sessionID)
}

// runMutation runs every test case serially against one active mutation
// and records the outcome. Serial execution (unlike the baseline's
// concurrent pass) keeps the single active mutation's failure
// attribution unambiguous.
func (r *Runner) runMutation(ctx context.Context, sessionID string, run int, mutation registry.ActiveMutation, class TestClass) {
	r.H.StartRun(sessionID, run, &mutation)

	for _, tc := range class.Tests {
		testCtx := registry.WithTestID(ir.WithChecker(ctx, r.H.Checker()), tc.ID)
		got := ir.CallFunc(testCtx, tc.Func, tc.Args)
		if got != tc.Expect {
			r.H.MarkTestFailed(sessionID, tc.ID)
		}
	}

	r.H.RecordMutationResult(sessionID)
	r.H.EndRun(sessionID)

	name := r.H.GetDisplayName(sessionID, mutation)
	if r.H.DidMutationSurvive(sessionID) {
		logger.SessionMutation(sessionID, logger.OutcomeSurvived, name)
	} else {
		logger.SessionMutation(sessionID, logger.OutcomeKilled, name)
	}
}
