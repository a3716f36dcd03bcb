package cli

import (
	"io"

	"github.com/soyeahso/matrix/internal/config"
	"github.com/soyeahso/matrix/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths     config.Paths
	log       *logging.Logger
	logCloser io.Closer
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Matrix, a voice assistant that reasons and acts",
		Long: "Matrix answers phone calls and console questions with a language model\n" +
			"that can read and send mail, manage a calendar and search the web.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			return openLogger()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.matrix/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newContextCmd())
	cmd.AddCommand(newActionsCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// openLogger builds the root logger from the logging section of the config
// file. --log-level wins over the file. A config that fails to load still
// yields a console logger so the command can report the problem.
func openLogger() error {
	opts := logging.Options{Level: "info"}
	if cfg, err := config.Load(paths.Config); err == nil {
		opts.Level = cfg.Logging.Level
		opts.ConsoleStyle = cfg.Logging.ConsoleStyle
		opts.File = cfg.Logging.File
	}
	if logLevel != "" {
		opts.Level = logLevel
	}

	l, closer, err := logging.Open(opts)
	if err != nil {
		return err
	}
	log, logCloser = l, closer
	return nil
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if logCloser != nil {
			logCloser.Close()
		}
	}()
	return newRootCmd().Execute()
}
