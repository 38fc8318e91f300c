// Package cli implements the netra command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/config"
	"github.com/0xcro3dile/netra-go/internal/infrastructure/logging"
)

// Version is reported by /health and --version.
var Version = "1.0.0"

// state is what PersistentPreRunE materializes for the subcommands.
type state struct {
	v          *viper.Viper
	configFile string
	envFile    string

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the command tree. Every call has its own viper
// instance, so trees are independent.
func NewRootCommand() *cobra.Command {
	st := &state{v: config.New()}

	root := &cobra.Command{
		Use:           "netra",
		Short:         "Netra: scripture-grounded question answering",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(st.envFile); err != nil {
				return err
			}
			cfg, err := config.Load(st.v, st.configFile)
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.logger = logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if st.logger != nil {
				_ = st.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&st.configFile, "config", "c", "", "config file (default: ./netra.yaml or ./config/netra.yaml)")
	flags.StringVar(&st.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("provider", "groq", "generation provider (groq, gemini, ollama)")
	_ = st.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = st.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = st.v.BindPFlag("provider.name", flags.Lookup("provider"))

	root.AddCommand(
		newServeCommand(st),
		newIngestCommand(st),
		newSeedCommand(st),
		newAskCommand(st),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return err
	}
	return nil
}
