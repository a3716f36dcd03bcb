package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/soyeahso/matrix/internal/config"
	"github.com/soyeahso/matrix/internal/gateway"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		bind    string
		noVoice bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Twilio voice webhooks and the WebSocket gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, appOptions{model: true})
			if err != nil {
				return err
			}
			defer a.Close()

			raw, err := config.LoadRaw(paths.Config)
			if err != nil {
				raw = make(map[string]any)
			}

			opts := []gateway.ServerOption{
				gateway.WithConfigRaw(raw),
				gateway.WithHooks(a.hooks),
				gateway.WithRunner(scopedTurner{next: a.runner, scope: cfg.Session.Scope}),
				gateway.WithSessions(a.sessions),
				gateway.WithTurnLog(a.turns),
				gateway.WithActions(a.actions),
			}

			if !noVoice {
				vh, err := a.voiceHandler(ctx)
				if err != nil {
					return err
				}
				defer vh.Wait()
				opts = append(opts, gateway.WithMount(vh))
				log.Info().
					Str("language", cfg.Voice.Language).
					Bool("missedCall", cfg.Voice.MissedCallEnabled()).
					Msg("voice webhooks enabled")
			}

			log.Info().
				Strs("actions", a.actions.Signatures()).
				Str("store", cfg.Session.Store).
				Str("scope", cfg.Session.Scope).
				Msg("assistant ready")

			return gateway.New(cfg, log, opts...).Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")
	cmd.Flags().BoolVar(&noVoice, "no-voice", false, "serve the gateway without the Twilio webhooks")

	return cmd
}
