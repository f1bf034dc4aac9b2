package cli

import (
	"context"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"weeklysummary/internal/config"
	"weeklysummary/internal/source"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and every enabled source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), root, cmd.OutOrStdout())
		},
	}
}

func runCheck(ctx context.Context, root *RootOptions, w io.Writer) error {
	cfg, err := config.Load(root.configPath())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	sources, results := root.Registry.Build(ctx, cfg, root.Env)
	renderInitTable(w, results)

	if len(sources) == 0 {
		return NewExitError(ExitFailure, "no sources could be initialized")
	}
	return nil
}

func renderInitTable(w io.Writer, results []source.InitResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Source", "Status", "Detail"})
	for _, r := range results {
		if r.OK() {
			tw.AppendRow(table.Row{r.Name, "ok", ""})
			continue
		}
		tw.AppendRow(table.Row{r.Name, "failed", r.Err.Error()})
	}
	tw.Render()
}
