package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anschnapp/mutflow/internal/config"
	"github.com/anschnapp/mutflow/internal/demoharness"
	"github.com/anschnapp/mutflow/internal/harness"
	"github.com/anschnapp/mutflow/internal/ir"
	"github.com/anschnapp/mutflow/internal/logger"
	"github.com/anschnapp/mutflow/internal/operator"
	"github.com/anschnapp/mutflow/internal/transform"
)

// NewRunCommand creates the "run" subcommand, a self-contained demo that
// mutates and tests one built-in fixture function. It stands in
// for a real compiler/test-runner integration: spec.md §4.5 defines the
// Harness boundary a real adapter plugs into at exactly the points this
// command drives by hand.
func NewRunCommand() *cobra.Command {
	var (
		maxRuns   int
		selection string
		shuffle   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a demo mutation-testing session against built-in fixtures.",
		Long: `Run transforms a built-in fixture function (isPositive), then drives a
full baseline-then-mutations session against them and prints a survivor
report.

Configuration:
  Default values are loaded from configs/config.yaml.
  Command line flags override the config file values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if !cmd.Flags().Changed("max-runs") {
				maxRuns = cfg.Session.MaxRuns
			}
			if !cmd.Flags().Changed("selection") {
				selection = cfg.Session.Selection
			}
			if !cmd.Flags().Changed("shuffle") {
				shuffle = cfg.Session.Shuffle
			}
			cfg.Session.MaxRuns = maxRuns
			cfg.Session.Selection = selection
			cfg.Session.Shuffle = shuffle

			logger.Init(cfg.LogLevel)
			return runDemo(cfg)
		},
	}

	cmd.Flags().IntVar(&maxRuns, "max-runs", 0, "Mutation run budget (config value when omitted; 0 = unlimited)")
	cmd.Flags().StringVar(&selection, "selection", "", "Selection strategy: pure_random, most_likely_random, most_likely_stable")
	cmd.Flags().StringVar(&shuffle, "shuffle", "", "Shuffle policy: per_run, per_change")

	return cmd
}

func runDemo(cfg *config.Config) error {
	class := buildFixtureClass()

	m := harness.NewManager()
	runner := demoharness.NewRunner(m)

	sessionCfg := cfg.Session.ToSessionConfig()
	sessionCfg.ExpectedTestCount = len(class.Tests)

	summary := runner.Run(context.Background(), sessionCfg, class)

	fmt.Printf("tested %d/%d mutations: %d killed, %d survived, %d remaining\n",
		summary.Tested, summary.Total, summary.Killed, summary.Survived, summary.Remaining)
	for _, entry := range summary.Entries {
		fmt.Printf("  [%s] %s\n", entry.Result, entry.DisplayName)
	}
	for _, trap := range summary.TrapLines {
		fmt.Printf("  trap candidate: %q\n", trap)
	}
	return nil
}

// buildFixtureClass transforms a single built-in function, isPositive(x) :=
// x > 0, and pairs it with a small table of fixture test cases. A real
// adapter would build this from a parsed source file instead.
func buildFixtureClass() demoharness.TestClass {
	loc := ir.SourceLocation{File: "fixtures/Calc.kt", Line: 4}
	fn := &ir.FuncDecl{
		Name: "isPositive", Owner: "Calc", Loc: loc,
		ReturnType: ir.TypeInfo{Name: "bool"},
		Body: &ir.Block{Loc: loc, Stmts: []ir.Stmt{
			&ir.ReturnStmt{Loc: loc, Value: &ir.BinaryCall{
				Op: ">", Loc: loc,
				Left:  &ir.Ident{Name: "x", Loc: loc},
				Right: &ir.IntLiteral{Value: 0, Loc: loc},
			}},
		}},
	}
	unit := &ir.CompilationUnit{Name: "Calc", File: loc.File, TargetMarked: true, Funcs: []*ir.FuncDecl{fn}, Loc: loc}

	tr := transform.New(operator.Default(), transform.OSSourceReader{})
	outFn := tr.Transform(unit).Funcs[0]

	return demoharness.TestClass{
		Owner: "Calc",
		Tests: []demoharness.TestCase{
			{ID: "positive", Func: outFn, Args: map[string]any{"x": int64(5)}, Expect: true},
			{ID: "negative", Func: outFn, Args: map[string]any{"x": int64(-5)}, Expect: false},
			{ID: "zero", Func: outFn, Args: map[string]any{"x": int64(0)}, Expect: false},
			{ID: "one", Func: outFn, Args: map[string]any{"x": int64(1)}, Expect: true},
		},
	}
}
