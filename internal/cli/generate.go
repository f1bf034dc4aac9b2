package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"weeklysummary/internal"
	"weeklysummary/internal/aggregate"
	"weeklysummary/internal/config"
	"weeklysummary/internal/metrics"
	"weeklysummary/internal/period"
	"weeklysummary/internal/report"
	"weeklysummary/internal/source"
	"weeklysummary/internal/summarize"
)

const defaultSourceTimeout = 2 * time.Minute

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Collect activities and write the weekly report",
		Long: `Collect activities from every enabled source for one week and write a
Markdown report. Without dates the last completed Monday to Sunday week is
used. Dates are YYYY-MM-DD and must be given together.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), root, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringP("start-date", "s", "", "first day of the report (YYYY-MM-DD)")
	cmd.Flags().StringP("end-date", "e", "", "last day of the report (YYYY-MM-DD)")
	cmd.Flags().StringP("output", "o", "", "report file name (default <prefix>_<start>_to_<end>.md)")
	cmd.Flags().StringP("output-dir", "d", "", "directory for the report (default from config)")
	cmd.Flags().Bool("parallel", false, "fetch sources concurrently")
	cmd.Flags().Duration("timeout", defaultSourceTimeout, "per-source fetch timeout (0 disables)")
	cmd.Flags().String("metrics-file", "", "write run metrics in Prometheus text format to this file")
	cmd.Flags().Bool("clipboard", false, "copy the report to the clipboard")
	cmd.Flags().Bool("draft", false, "mark the report as a draft in its front matter")

	for _, name := range []string{"start-date", "end-date", "output", "output-dir", "parallel", "timeout", "metrics-file", "clipboard", "draft"} {
		_ = root.v.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	_ = root.v.BindEnv("openai-api-key", "OPENAI_API_KEY")

	return cmd
}

func runGenerate(ctx context.Context, root *RootOptions, stdout, stderr io.Writer) error {
	v := root.v
	logger := root.log()
	status := NewStatus(stderr)
	now := root.Now()

	cfg, err := config.Load(root.configPath())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	rng, err := period.Parse(v.GetString("start-date"), v.GetString("end-date"), now)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid date range", err)
	}
	status.Info("Generating report for %s", rng)
	logger.Info("generating report", "start", rng.StartDate(), "end", rng.EndDate())

	run := metrics.NewRun()
	sources, inits := root.Registry.Build(ctx, cfg, root.Env)
	for _, res := range inits {
		if res.OK() {
			status.Success("Connected to %s", res.Name)
			continue
		}
		run.Failed(res.Name, "init")
		status.Fail("Failed to initialize %s: %v", res.Name, res.Err)
	}
	if len(sources) == 0 {
		return NewExitError(ExitFailure, "no sources could be initialized; check your configuration")
	}

	activities, reports := aggregate.Collect(ctx, sources, rng.Start, rng.End, aggregate.Options{
		Parallel: v.GetBool("parallel"),
		Timeout:  v.GetDuration("timeout"),
		Logger:   logger,
		Observer: run,
	})
	result, err := aggregate.Merge(activities, rng.Start, rng.End)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to merge activities", err)
	}
	status.Info("Collected %d activities", result.Total())

	summaries := summarizeRun(ctx, root, cfg, result, rng, status)

	gen := report.NewGenerator(outputDir(v.GetString("output-dir"), cfg))
	gen.Draft = v.GetBool("draft") || cfg.Draft
	gen.Now = root.Now
	path, err := gen.Generate(report.Input{
		Result:    result,
		Summaries: summaries,
		Output:    v.GetString("output"),
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to write report", err)
	}
	run.Completed(result.Total(), root.Now())
	status.Success("Report written to %s", path)

	if file := v.GetString("metrics-file"); file != "" {
		if err := run.WriteTextfile(file); err != nil {
			logger.Warn("failed to write metrics", "path", file, "error", err)
		}
	}
	if v.GetBool("clipboard") {
		copyToClipboard(path, status)
	}

	renderSourceTable(stdout, reports)
	return nil
}

func summarizeRun(ctx context.Context, root *RootOptions, cfg *internal.Config, result aggregate.Result, rng period.Range, status *Status) map[string]string {
	if result.Total() == 0 {
		return nil
	}
	apiKey := root.v.GetString("openai-api-key")
	if apiKey == "" {
		apiKey = cfg.OpenAIAPIKey
	}
	s, err := summarize.Select(cfg.Summary.Mode, source.HasEnabledMock(cfg), apiKey, cfg.Summary.Model, root.log())
	if err != nil {
		root.log().Warn("summaries disabled", "error", err)
		status.Fail("Summaries disabled: %v", err)
		return nil
	}
	if s == nil {
		return nil
	}
	summaries := s.Summarize(ctx, result.Activities, rng.StartDate(), rng.EndDate())
	if len(summaries) > 0 {
		status.Success("Generated %d summaries", len(summaries))
	}
	return summaries
}

func outputDir(flag string, cfg *internal.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.OutputDir
}

func copyToClipboard(path string, status *Status) {
	data, err := os.ReadFile(path)
	if err == nil {
		err = clipboard.WriteAll(string(data))
	}
	if err != nil {
		status.Fail("Could not copy report to clipboard: %v", err)
		return
	}
	status.Success("Report copied to clipboard")
}

func renderSourceTable(w io.Writer, reports []aggregate.SourceReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Source", "Activities", "Status", "Duration"})
	for _, r := range reports {
		state := "ok"
		if !r.OK() {
			state = fmt.Sprintf("error: %v", r.Err)
		}
		tw.AppendRow(table.Row{r.Source, r.Count, state, r.Duration.Round(time.Millisecond)})
	}
	tw.Render()
}
