package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/soyeahso/matrix/internal/agent"
	"github.com/soyeahso/matrix/internal/domain"
	"github.com/soyeahso/matrix/internal/hooks"
	"github.com/soyeahso/matrix/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored conversations and the turn log",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryClearCmd())
	cmd.AddCommand(newHistorySearchCmd())
	cmd.AddCommand(newHistoryRecentCmd())
	return cmd
}

// withStorage runs fn against the configured stores without building the
// model client.
func withStorage(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := paths.EnsureDirs(); err != nil {
		return err
	}
	a := &app{cfg: cfg, log: log, hooks: hooks.NewManager(log)}
	if err := a.openStorage(); err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, func(ctx context.Context, a *app) error {
				return printSessions(ctx, cmd.OutOrStdout(), a.sessions)
			})
		},
	}
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session>",
		Short: "Print a stored conversation, e.g. voice:+15550100",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := domain.ParseSessionKey(args[0])
			if err != nil {
				return err
			}
			return withStorage(cmd, func(ctx context.Context, a *app) error {
				return printConversation(ctx, cmd.OutOrStdout(), a.sessions, key)
			})
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <session>",
		Short: "Delete a stored conversation and its turn log entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := domain.ParseSessionKey(args[0])
			if err != nil {
				return err
			}
			return withStorage(cmd, func(ctx context.Context, a *app) error {
				if err := a.sessions.Delete(ctx, key); err != nil {
					return err
				}
				if err := a.turns.DeleteSession(ctx, key.String()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", key)
				return nil
			})
		},
	}
}

func newHistorySearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over past turns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, func(ctx context.Context, a *app) error {
				recs, err := a.turns.Search(ctx, strings.Join(args, " "), limit)
				if err != nil {
					return err
				}
				printTurns(cmd.OutOrStdout(), recs)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum results")
	return cmd
}

func newHistoryRecentCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent [session]",
		Short: "Show the latest turns, optionally for one session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := ""
			if len(args) == 1 {
				key, err := domain.ParseSessionKey(args[0])
				if err != nil {
					return err
				}
				session = key.String()
			}
			return withStorage(cmd, func(ctx context.Context, a *app) error {
				recs, err := a.turns.Recent(ctx, session, limit)
				if err != nil {
					return err
				}
				printTurns(cmd.OutOrStdout(), recs)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results")
	return cmd
}

func printSessions(ctx context.Context, w io.Writer, sessions agent.SessionAdmin) error {
	keys, err := sessions.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(w, "No conversations stored.")
		return nil
	}
	for _, k := range keys {
		msgs, err := sessions.Load(ctx, k)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-32s %d messages\n", k, len(msgs))
	}
	return nil
}

func printConversation(ctx context.Context, w io.Writer, sessions agent.ConversationStore, key domain.SessionKey) error {
	msgs, err := sessions.Load(ctx, key)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return fmt.Errorf("no conversation stored for %s", key)
	}
	for _, m := range msgs {
		fmt.Fprintf(w, "[%s]\n%s\n\n", m.Role, strings.TrimSpace(m.Content))
	}
	return nil
}

func printTurns(w io.Writer, recs []store.TurnRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No turns found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tSESSION\tACTION\tQUESTION\tANSWER")
	for _, r := range recs {
		action := r.Action
		if action == "" {
			action = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime), r.Session, action,
			clip(r.Utterance, 40), clip(r.Answer, 60))
	}
	tw.Flush()
}

// clip shortens s to n runes on one line.
func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
