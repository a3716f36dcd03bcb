package cli

import (
	"fmt"

	"github.com/soyeahso/matrix/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of matrix",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
			fmt.Fprintf(cmd.OutOrStdout(), "built with %s\n", version.GoVersion())
		},
	}
}
