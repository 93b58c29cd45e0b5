// Package cli implements the pdpctl command line: offline scoring and
// solving of scenario files.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pdpctl",
		Short: "Score and optimize pickup-and-delivery schedules",
		Long: `pdpctl prices multi-vehicle pickup-and-delivery schedules with time windows
and improves them by local search, using the same incremental evaluator as the
rinlog service. Scenario files are YAML or JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newScoreCmd(), newSolveCmd(), newVersionCmd())
	return root
}

// ExecuteContext runs the command line with ctx, which cancels a running solve.
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
