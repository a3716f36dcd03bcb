package cli

import (
	"time"

	"github.com/soyeahso/matrix/internal/mcpserver"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Expose the assistant's actions as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcpserver.New(cmd.Context(), a.actions, timeout, log)
			log.Info().Int("tools", len(srv.Tools())).Msg("serving MCP on stdio")
			return srv.Serve()
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", mcpserver.DefaultCallTimeout, "budget for each tool call")
	return cmd
}
