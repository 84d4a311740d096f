package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"finmatch/internal/catalog"
	"finmatch/internal/logging"
	"finmatch/internal/match"
	"finmatch/internal/textutil"
	"finmatch/internal/tracefile"
)

type matchOutput struct {
	RunID     string          `json:"run_id"`
	QueryID   string          `json:"query_id"`
	QueryRank int             `json:"query_rank"`
	Results   match.Results   `json:"results"`
	Excluded  []exclusionView `json:"excluded,omitempty"`
	Scanned   int             `json:"scanned"`
	Skipped   int             `json:"skipped"`
	Cancelled bool            `json:"cancelled,omitempty"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Summary   match.Stats     `json:"summary"`
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var (
		flags   matchFlags
		jsonOut bool
		limit   int
		index   int
		report  string
	)

	cmd := &cobra.Command{
		Use:   "match <trace>",
		Short: "Rank the catalog against one traced outline",
		Long: `Rank every cataloged individual by how closely its outline matches the
traced unknown. Press Ctrl-C to stop early and print the partial ranking.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			file, err := loadTrace(args[0], index)
			if err != nil {
				return err
			}
			query, err := file.Contour(cfg.Matching.SimplifyTolerance)
			if err != nil {
				return err
			}
			policy, err := flags.policy(cfg)
			if err != nil {
				return err
			}
			matcher, err := ctx.newMatcher(policy)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			entries, err := ctx.loadCatalog(runCtx)
			if err != nil {
				return err
			}
			run, err := matcher.Match(logging.WithQueryID(runCtx, file.ID), query, catalog.Entries(entries))
			if err != nil {
				return err
			}

			var reportPath string
			if report != "" {
				if reportPath, err = reportTarget(cfg, report, file.ID); err != nil {
					return err
				}
				if err := writeReportFile(reportPath, run); err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd, matchOutput{
					RunID:     run.ID,
					QueryID:   run.QueryID,
					QueryRank: run.Results.RankOf(run.QueryID),
					Results:   run.Results.Top(limit),
					Excluded:  exclusionViews(run.Excluded),
					Scanned:   run.Scanned,
					Skipped:   run.Skipped,
					Cancelled: run.Cancelled,
					ElapsedMS: run.Elapsed.Milliseconds(),
					Summary:   run.Results.Summary(),
				})
			}
			printMatch(cmd.OutOrStdout(), file, run, limit)
			if reportPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of ranked individuals to show (0 shows all)")
	cmd.Flags().IntVar(&index, "index", 1, "Which trace to use when the file holds several")
	cmd.Flags().StringVar(&report, "report", "", "Write a text report to this path (\"auto\" uses the report directory)")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Concurrent comparisons (overrides matching.workers)")
	cmd.Flags().StringSliceVar(&flags.categories, "category", nil, "Only match individuals in these damage categories")
	return cmd
}

func printMatch(out io.Writer, file tracefile.File, run *match.Run, limit int) {
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderHeading(fmt.Sprintf("Matches for %s", file.ID), colorize))

	top := run.Results.Top(limit)
	rows := make([][]string, 0, len(top))
	for _, r := range top {
		rows = append(rows, []string{
			strconv.Itoa(r.Rank),
			r.IndividualID,
			r.Name,
			textutil.DisplayCategory(r.DamageCategory),
			formatDistance(r),
			fmt.Sprintf("%.0f%%", r.Confidence*100),
		})
	}
	footer := fmt.Sprintf("%d ranked, %d excluded, %d skipped in %s",
		len(run.Results), len(run.Excluded), run.Skipped, run.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(out, renderTable(
		[]string{"Rank", "ID", "Name", "Category", "Distance", "Confidence"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		footer,
	))

	if rank := run.Results.RankOf(file.ID); rank > 0 {
		fmt.Fprintf(out, "%s is already cataloged and ranked %d\n", file.ID, rank)
	}
	for _, ex := range run.Excluded {
		fmt.Fprintln(out, renderStatusLine(ex.IndividualID, statusWarn, fmt.Sprintf("%s: %v", ex.Reason, ex.Err), colorize))
	}
	if run.Cancelled {
		fmt.Fprintln(out, renderStatusLine("Run", statusWarn, "cancelled; ranking covers only the entries compared so far", colorize))
	}
}

func formatDistance(r match.Result) string {
	if r.Penalized {
		return "penalty"
	}
	return fmt.Sprintf("%.2f", r.Distance)
}
