package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"finmatch/internal/catalog"
	"finmatch/internal/config"
	"finmatch/internal/textutil"
	"finmatch/internal/tracefile"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the catalog of known individuals",
	}

	catalogCmd.AddCommand(newCatalogImportCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	catalogCmd.AddCommand(newCatalogRemoveCommand(ctx))
	catalogCmd.AddCommand(newCatalogCategoriesCommand(ctx))

	return catalogCmd
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	var simplify float64

	cmd := &cobra.Command{
		Use:   "import <trace>...",
		Short: "Add or replace individuals from trace files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.catalogStore()
			if err != nil {
				return err
			}
			tolerance := cfg.Matching.SimplifyTolerance
			if cmd.Flags().Changed("simplify") {
				tolerance = simplify
			}

			var entries []catalog.Entry
			skipped := 0
			for _, path := range args {
				expanded, err := config.ExpandPath(path)
				if err != nil {
					return err
				}
				files, err := tracefile.Load(expanded)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %v\n", path, err)
					skipped++
					continue
				}
				for _, file := range files {
					entry, err := file.Entry(tolerance)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %v\n", file.ID, err)
						skipped++
						continue
					}
					entries = append(entries, entry)
				}
			}
			if len(entries) == 0 {
				return errors.New("no valid traces to import")
			}

			n, err := store.Import(cmd.Context(), entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d individuals (%d skipped)\n", n, skipped)
			return nil
		},
	}

	cmd.Flags().Float64Var(&simplify, "simplify", 0, "Douglas-Peucker tolerance in trace units (overrides matching.simplify_tolerance)")
	return cmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged individuals",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.catalogStore()
			if err != nil {
				return err
			}
			summaries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, summaries)
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "Catalog is empty")
				return nil
			}
			rows := make([][]string, 0, len(summaries))
			unreadable := 0
			for _, s := range summaries {
				points := strconv.Itoa(s.Points)
				if s.Err != nil {
					points = "unreadable"
					unreadable++
				}
				rows = append(rows, []string{
					s.IndividualID,
					s.Name,
					textutil.DisplayCategory(s.DamageCategory),
					points,
					s.ImageFilename,
					s.UpdatedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Name", "Category", "Points", "Image", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				fmt.Sprintf("%d individuals", len(summaries)),
			))
			if unreadable > 0 {
				fmt.Fprintf(out, "%d outlines cannot be matched; run 'finmatch catalog show <id>' for details\n", unreadable)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one individual",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.catalogStore()
			if err != nil {
				return err
			}
			entry, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asYAML {
				file, err := tracefile.FromEntry(entry)
				if err != nil {
					return err
				}
				return tracefile.Encode(cmd.OutOrStdout(), file)
			}
			return printEntry(cmd.OutOrStdout(), entry)
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the outline as a trace document")
	return cmd
}

func printEntry(out io.Writer, entry catalog.Entry) error {
	features, err := entry.Contour.Features()
	if err != nil {
		return err
	}
	c := entry.Contour
	fmt.Fprintf(out, "ID:        %s\n", entry.IndividualID)
	fmt.Fprintf(out, "Name:      %s\n", entry.Name)
	fmt.Fprintf(out, "Category:  %s\n", textutil.DisplayCategory(entry.DamageCategory))
	fmt.Fprintf(out, "Image:     %s\n", entry.ImageFilename)
	fmt.Fprintf(out, "Points:    %d\n", c.Len())
	fmt.Fprintf(out, "Landmarks: begin_le=%d tip=%d end_le=%d notch=%d end_te=%d\n",
		features.BeginLE, features.Tip, features.EndLE, features.Notch, features.EndTE)
	fmt.Fprintf(out, "Length:    %.1f\n", c.Length())
	fmt.Fprintf(out, "Extent:    %.1f\n", c.Extent())
	return nil
}

func newCatalogRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an individual from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.catalogStore()
			if err != nil {
				return err
			}
			if err := store.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newCatalogCategoriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the damage categories in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.catalogStore()
			if err != nil {
				return err
			}
			categories, err := store.Categories(cmd.Context())
			if err != nil {
				return err
			}
			for _, category := range categories {
				fmt.Fprintln(cmd.OutOrStdout(), category)
			}
			return nil
		},
	}
}
