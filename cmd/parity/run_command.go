package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"listingparity/internal/batch"
	"listingparity/internal/config"
	"listingparity/internal/logging"
	"listingparity/internal/reconcile"
	"listingparity/internal/report"
)

type runFlags struct {
	images   bool
	videos   bool
	export   bool
	worklist string
	report   string
	quiet    bool
	all      bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile every item in the work list",
		Long: "Fetch each work list item from the marketplace and the PIM, compare text,\n" +
			"gallery and video data, and append one row per item to the CSV report.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg, flags); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}

			out := cmd.OutOrStdout()
			observer := &progressObserver{out: out, quiet: flags.quiet, colorize: isTerminal(out)}
			opts := append([]batch.Option{batch.WithObserver(observer)}, ctx.runOptions...)
			orchestrator, err := batch.New(cfg, logger, opts...)
			if err != nil {
				return err
			}

			summary, err := orchestrator.Run(cmd.Context())
			if err != nil && summary.RunID == "" {
				return err
			}
			if !flags.quiet {
				printRunTable(out, summary, flags.all)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&flags.images, "images", false, "Compare image galleries (overrides [checks] images)")
	cmd.Flags().BoolVar(&flags.videos, "videos", false, "Compare video durations (overrides [checks] videos)")
	cmd.Flags().BoolVar(&flags.export, "export", false, "Request a PIM export for text mismatches (overrides [checks] export)")
	cmd.Flags().StringVarP(&flags.worklist, "worklist", "w", "", "Work list CSV (overrides [paths] worklist_path)")
	cmd.Flags().StringVarP(&flags.report, "report", "o", "", "Report CSV destination (overrides [paths] report_path)")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Suppress per-item progress and the result table")
	cmd.Flags().BoolVar(&flags.all, "all", false, "Show every row in the result table, not only mismatches")
	return cmd
}

// applyRunFlags copies explicitly set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) error {
	set := cmd.Flags().Changed
	if set("images") {
		cfg.Checks.Images = flags.images
	}
	if set("videos") {
		cfg.Checks.Videos = flags.videos
	}
	if set("export") {
		cfg.Checks.Export = flags.export
	}
	if set("worklist") {
		path, err := expandFlagPath(flags.worklist)
		if err != nil {
			return fmt.Errorf("resolve --worklist: %w", err)
		}
		cfg.Paths.WorklistPath = path
	}
	if set("report") {
		path, err := expandFlagPath(flags.report)
		if err != nil {
			return fmt.Errorf("resolve --report: %w", err)
		}
		cfg.Paths.ReportPath = path
	}
	return nil
}

func expandFlagPath(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("path is empty")
	}
	return config.ExpandPath(value)
}

type progressObserver struct {
	out      io.Writer
	quiet    bool
	colorize bool
}

func (p *progressObserver) RunStarted(runID string, total int) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "Run %s: %d item(s)\n", shortID(runID), total)
}

func (p *progressObserver) ItemCompleted(position, total int, outcome reconcile.Outcome) {
	if p.quiet {
		return
	}
	res := outcome.Result
	verdict := "ok"
	if !res.AllMatch() {
		verdict = "mismatch"
	}
	if outcome.Degraded() {
		verdict += ", degraded"
	}
	if p.colorize {
		color := text.FgGreen
		if verdict != "ok" {
			color = text.FgRed
		}
		verdict = color.Sprint(verdict)
	}
	fmt.Fprintf(p.out, "[%d/%d] %s  title=%s bullets=%s images=%s video=%s (%s)\n",
		position, total, res.ID, res.Title, res.Bullets, res.Images, res.Video, verdict)
}

func (p *progressObserver) RunFinished(summary batch.RunSummary) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "Run %s %s: %d/%d processed, %d mismatched, %d degraded in %s\n",
		shortID(summary.RunID), summary.Status, summary.Processed, summary.Total,
		summary.Mismatched, summary.Degraded, summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(p.out, "Report: %s\n", summary.ReportPath)
}

func printRunTable(out io.Writer, summary batch.RunSummary, all bool) {
	rows := make([][]string, 0, len(summary.Rows))
	for _, res := range summary.Rows {
		if !all && res.AllMatch() {
			continue
		}
		rows = append(rows, res.Row())
	}
	if len(rows) == 0 {
		if len(summary.Rows) > 0 {
			fmt.Fprintln(out, "All items match")
		}
		return
	}
	fmt.Fprintln(out, renderTable(report.Header, rows, nil))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
