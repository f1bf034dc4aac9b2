// Package cli implements the weekly-summary command line.
package cli

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"weeklysummary/internal/source"
)

const (
	envPrefix         = "WEEKLY_SUMMARY"
	defaultConfigPath = "config.toml"
)

// RootOptions holds global flags and the dependencies shared by commands.
type RootOptions struct {
	Verbose bool

	// Registry resolves configured source names. Defaults to source.Default().
	Registry *source.Registry
	// Env is passed to every source factory.
	Env source.Env
	// Now is the clock used for date defaults and report stamps.
	Now func() time.Time

	v      *viper.Viper
	logger *slog.Logger
	runID  string
}

// NewRootCommand creates the root command with production dependencies.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	if opts.Registry == nil {
		opts.Registry = source.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.v = viper.New()
	opts.v.SetEnvPrefix(envPrefix)
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "weekly-summary",
		Short:         "Generate a weekly activity report",
		Long:          "Collects your week of GitHub, Slack, email and git activity into one Markdown report.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.Verbose || opts.v.GetBool("verbose") {
				level = slog.LevelDebug
			}
			opts.runID = uuid.NewString()
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
			opts.logger = slog.New(handler).With("run_id", opts.runID)
			if opts.Env.Logger == nil {
				opts.Env.Logger = opts.logger
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "path to the configuration file (.toml, .yaml or .yml)")
	_ = opts.v.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = opts.v.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewSourcesCommand(opts))

	return cmd
}

func (o *RootOptions) configPath() string {
	return o.v.GetString("config")
}

func (o *RootOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}
