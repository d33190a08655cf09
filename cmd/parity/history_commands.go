package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"listingparity/internal/history"
	"listingparity/internal/report"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect previous runs",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))

	return historyCmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						humanize.Time(run.StartedAt),
						string(run.Status),
						fmt.Sprintf("%d/%d", run.Completed, run.Total),
						strconv.Itoa(run.Mismatched),
						run.Duration().Round(time.Second).String(),
						run.ReportPath,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Status", "Items", "Mismatched", "Duration", "Report"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var mismatches bool

	cmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Show the rows recorded for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				results, err := store.Results(cmd.Context(), run.ID, mismatches)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:        %s\n", run.ID)
				fmt.Fprintf(out, "Status:     %s\n", run.Status)
				fmt.Fprintf(out, "Started:    %s\n", run.StartedAt.Local().Format(time.DateTime))
				if run.Finished() {
					fmt.Fprintf(out, "Finished:   %s (%s)\n", run.FinishedAt.Local().Format(time.DateTime), run.Duration().Round(time.Second))
				}
				fmt.Fprintf(out, "Work list:  %s\n", run.Worklist)
				fmt.Fprintf(out, "Report:     %s\n", run.ReportPath)
				fmt.Fprintf(out, "Items:      %d/%d processed, %d mismatched\n", run.Completed, run.Total, run.Mismatched)
				if run.Error != "" {
					fmt.Fprintf(out, "Error:      %s\n", run.Error)
				}
				if len(results) == 0 {
					return nil
				}

				rows := make([][]string, 0, len(results))
				for _, res := range results {
					rows = append(rows, res.Row())
				}
				fmt.Fprintln(out, renderTable(report.Header, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&mismatches, "mismatches", false, "Only show rows with at least one mismatch")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
				return nil
			})
		},
	}
}
