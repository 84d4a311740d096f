package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"finmatch/internal/catalog"
	"finmatch/internal/config"
	"finmatch/internal/logging"
	"finmatch/internal/match"
	"finmatch/internal/textutil"
	"finmatch/internal/tracefile"
)

// queueItem is one query's outcome in a queue run.
type queueItem struct {
	QueryID      string  `json:"query_id"`
	Source       string  `json:"source"`
	RunID        string  `json:"run_id,omitempty"`
	BestMatch    string  `json:"best_match,omitempty"`
	BestDistance float64 `json:"best_distance,omitempty"`
	QueryRank    int     `json:"query_rank"`
	Excluded     int     `json:"excluded"`
	Report       string  `json:"report,omitempty"`
	Error        string  `json:"error,omitempty"`
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var (
		flags   matchFlags
		jsonOut bool
		reports bool
	)

	cmd := &cobra.Command{
		Use:   "queue <trace>...",
		Short: "Match several traced outlines against the catalog in turn",
		Long: `Match every trace in the given files against the catalog, one query at a
time, and summarize each query's best match and the rank of its own ID.
Queries whose outline is invalid are reported and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
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

			var items []queueItem
			for _, path := range args {
				expanded, err := config.ExpandPath(path)
				if err != nil {
					return err
				}
				files, err := tracefile.Load(expanded)
				if err != nil {
					items = append(items, queueItem{QueryID: path, Source: path, QueryRank: -1, Error: err.Error()})
					continue
				}
				for _, file := range files {
					item := runQueued(runCtx, cfg, matcher, entries, file, reports)
					item.Source = path
					items = append(items, item)
					if runCtx.Err() != nil {
						break
					}
				}
				if runCtx.Err() != nil {
					break
				}
			}

			if jsonOut {
				if err := writeJSON(cmd, items); err != nil {
					return err
				}
			} else {
				printQueue(cmd.OutOrStdout(), items)
			}
			return runCtx.Err()
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&reports, "reports", false, "Write a text report per query into the report directory")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Concurrent comparisons (overrides matching.workers)")
	cmd.Flags().StringSliceVar(&flags.categories, "category", nil, "Only match individuals in these damage categories")
	return cmd
}

func runQueued(ctx context.Context, cfg *config.Config, matcher *match.Matcher, entries []catalog.Entry, file tracefile.File, writeReport bool) queueItem {
	item := queueItem{QueryID: file.ID, QueryRank: -1}
	query, err := file.Contour(cfg.Matching.SimplifyTolerance)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	run, err := matcher.Match(logging.WithQueryID(ctx, file.ID), query, catalog.Entries(entries))
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.RunID = run.ID
	item.QueryRank = run.Results.RankOf(file.ID)
	item.Excluded = len(run.Excluded)
	if len(run.Results) > 0 {
		item.BestMatch = run.Results[0].IndividualID
		item.BestDistance = run.Results[0].Distance
	}
	if run.Cancelled {
		item.Error = "cancelled"
	}
	if writeReport {
		path := cfg.ReportPath(textutil.SanitizeFileName(file.ID))
		if err := writeReportFile(path, run); err != nil {
			item.Error = err.Error()
		} else {
			item.Report = path
		}
	}
	return item
}

func printQueue(out io.Writer, items []queueItem) {
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderHeading("Match queue", colorize))

	rows := make([][]string, 0, len(items))
	firsts := 0
	for _, item := range items {
		rank := "-"
		if item.QueryRank > 0 {
			rank = strconv.Itoa(item.QueryRank)
		}
		if item.QueryRank == 1 {
			firsts++
		}
		distance := ""
		if item.BestMatch != "" {
			distance = fmt.Sprintf("%.2f", item.BestDistance)
		}
		rows = append(rows, []string{item.QueryID, item.BestMatch, distance, rank, item.Error})
	}
	footer := fmt.Sprintf("%d queries, %d ranked their own ID first", len(items), firsts)
	fmt.Fprintln(out, renderTable(
		[]string{"Query", "Best match", "Distance", "Own rank", "Note"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		footer,
	))
}
