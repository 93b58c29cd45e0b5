package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/christofluyten/rinlog/internal/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "pdpctl", buildinfo.String())
		},
	}
}
