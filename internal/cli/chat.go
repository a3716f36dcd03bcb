package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/soyeahso/matrix/internal/action"
	"github.com/soyeahso/matrix/internal/agent"
	"github.com/soyeahso/matrix/internal/domain"
	"github.com/spf13/cobra"
)

type turner interface {
	Turn(ctx context.Context, key domain.SessionKey, utterance string) (*agent.TurnResult, error)
}

func newChatCmd() *cobra.Command {
	var (
		session string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant on the console",
		Long:  "Read questions line by line and print each answer. An empty line or EOF ends the session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openRunner(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			key := sessionKey(a.cfg.Session.Scope, channelConsole, session)
			fmt.Fprintf(cmd.OutOrStdout(), "%s is listening. Press Enter on an empty line to quit.\n", a.cfg.Assistant.Name)
			return repl(ctx, a.runner, key, cmd.InOrStdin(), cmd.OutOrStdout(), replOptions{verbose: verbose, errOut: cmd.ErrOrStderr()})
		},
	}

	cmd.Flags().StringVar(&session, "session", consoleUser(), "conversation to continue")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the action taken on each turn")
	return cmd
}

func newAskCmd() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openRunner(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			key := sessionKey(a.cfg.Session.Scope, channelConsole, session)
			res, err := a.runner.Turn(ctx, key, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
			printTurnNotes(cmd.ErrOrStderr(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", consoleUser(), "conversation to continue")
	return cmd
}

func newContextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Print the instructional context sent to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, appOptions{model: true})
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(cmd.OutOrStdout(), a.runner.Context())
			return nil
		},
	}
}

func newActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions [name...]",
		Short: "List the actions available to the assistant",
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
			return printActions(cmd.OutOrStdout(), a.actions, args)
		},
	}
}

// printActions writes the signature and description of the named actions,
// or of every registered action when names is empty.
func printActions(w io.Writer, reg *action.Registry, names []string) error {
	var descs []action.Descriptor
	if len(names) == 0 {
		descs = reg.List()
	}
	for _, name := range names {
		d, ok := reg.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: %s", action.ErrUnknownAction, name)
		}
		descs = append(descs, d)
	}

	if len(descs) == 0 {
		fmt.Fprintln(w, "No actions configured.")
		return nil
	}
	for _, d := range descs {
		fmt.Fprintf(w, "  %s\n", action.Signature(d))
		if d.Description != "" {
			fmt.Fprintf(w, "      %s\n", d.Description)
		}
	}
	return nil
}

func openRunner(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, appOptions{model: true})
}

type replOptions struct {
	verbose bool
	errOut  io.Writer
}

// repl runs one turn per input line until an empty line, EOF or ctx ends
// it. A failed turn is reported and the loop goes on.
func repl(ctx context.Context, t turner, key domain.SessionKey, in io.Reader, out io.Writer, opts replOptions) error {
	if opts.errOut == nil {
		opts.errOut = io.Discard
	}
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			return nil
		}

		res, err := t.Turn(ctx, key, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(opts.errOut, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, res.Answer)
		if opts.verbose {
			printTurnNotes(opts.errOut, res)
		}
	}
}

func printTurnNotes(w io.Writer, res *agent.TurnResult) {
	if res.Call != nil {
		fmt.Fprintf(w, "[action=%s]\n", res.Call.Name)
	}
	if res.ActionErr != nil {
		fmt.Fprintf(w, "[action error: %v]\n", res.ActionErr)
	}
	if res.PersistErr != nil {
		fmt.Fprintf(w, "[not saved: %v]\n", res.PersistErr)
	}
	fmt.Fprintf(w, "[tokens=%d+%d duration=%s]\n",
		res.Usage.InputTokens, res.Usage.OutputTokens, res.Duration.Round(time.Millisecond))
}

func consoleUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}
