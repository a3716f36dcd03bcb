package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/soyeahso/matrix/internal/config"
	"github.com/soyeahso/matrix/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show matrix status and configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Matrix %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(w, "Config:  %s\n", paths.Config)
			fmt.Fprintf(w, "Data:    %s\n", paths.Data)
			fmt.Fprintf(w, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(w)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(w, "Config:  error loading: %v\n", err)
				return nil
			}
			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(w, "Config:  not found (using defaults)")
			}

			printStatus(w, cfg)

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Fprintf(w, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(w, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}
			return nil
		},
	}
}

func printStatus(w io.Writer, cfg config.Config) {
	fmt.Fprintf(w, "Assistant: %s in %s (%s)\n", cfg.Assistant.Name, cfg.Assistant.Location, cfg.Assistant.Timezone)

	model := cfg.Model.Model
	if cfg.Model.Provider == "gemini" {
		model = cfg.Model.GeminiModel
	}
	fallbacks := "none"
	if len(cfg.Model.Fallbacks) > 0 {
		fallbacks = strings.Join(cfg.Model.Fallbacks, ", ")
	}
	fmt.Fprintf(w, "Model:     provider=%s model=%s fallbacks=%s\n", cfg.Model.Provider, model, fallbacks)
	fmt.Fprintf(w, "Session:   store=%s scope=%s maxMessages=%d\n",
		cfg.Session.Store, cfg.Session.Scope, cfg.Session.MaxMessages)
	fmt.Fprintf(w, "Gateway:   port=%d bind=%s auth=%s\n",
		cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.Auth.Mode)

	_, token := googleFiles(cfg.Google)
	if _, err := os.Stat(token); err == nil {
		fmt.Fprintf(w, "Google:    authorized (%s)\n", token)
	} else {
		fmt.Fprintln(w, "Google:    not authorized (run 'matrix auth')")
	}

	fmt.Fprintf(w, "Mail:      backend=%s\n", cfg.Mail.Backend)
	if cfg.Search.APIKey != "" {
		fmt.Fprintf(w, "Search:    serper country=%s\n", cfg.Search.Country)
	} else {
		fmt.Fprintln(w, "Search:    (not configured)")
	}

	twilio := "not configured"
	if cfg.Voice.AccountSID != "" {
		twilio = "account " + cfg.Voice.AccountSID
	}
	fmt.Fprintf(w, "Voice:     language=%s missedCall=%v twilio=%s\n",
		cfg.Voice.Language, cfg.Voice.MissedCallEnabled(), twilio)
}
