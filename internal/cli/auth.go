package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/soyeahso/matrix/internal/config"
	"github.com/soyeahso/matrix/internal/tools"
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Gmail, Calendar and Translate",
		Long: "Run the installed-app OAuth flow against the client secret in the\n" +
			"credentials file and store the resulting token.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			creds, token := googleFiles(cfg.Google)

			oc, err := tools.OAuthConfig(creds)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := tools.Authorize(ctx, oc, token, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", token)
			return nil
		},
	}
}

// googleFiles resolves the OAuth client secret and token locations.
func googleFiles(g config.GoogleConfig) (creds, token string) {
	creds, token = g.CredentialsFile, g.TokenFile
	if creds == "" {
		creds = paths.GoogleCredentials()
	}
	if token == "" {
		token = paths.GoogleToken()
	}
	return creds, token
}
