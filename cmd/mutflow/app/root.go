// Package app wires the cobra command tree for the mutflow CLI.
package app

import (
	"github.com/spf13/cobra"
)

// NewMutflowCommand creates the root command for the mutflow tool.
func NewMutflowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutflow",
		Short: "A mutant-schemata mutation-testing engine.",
		Long:  `mutflow runs mutation-testing sessions against instrumented code using the mutant-schemata technique: one compile, many runtime-selected variants.`,
	}

	cmd.AddCommand(NewRunCommand())

	return cmd
}
