// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperviz/internal/archive"
	"github.com/pdiddy/paperviz/internal/export"
	"github.com/pdiddy/paperviz/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse the archive of past generations",
	Long: `History reads the local SQLite archive that generate and batch write to.
Every attempt is recorded, including failures, with the input excerpt, the
outcome, and the raw model output.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List archived generations, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	opts, err := historyQueryFromFlags(cmd, args)
	if err != nil {
		return err
	}
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatHistoryOutput(recs, jsonOutput)
}

func formatHistoryOutput(recs []*archive.Record, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		fmt.Println("No generations found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-8s  %-16s  %-12s  %-19s  %-8s  %s\n",
		"ID", "Kind", "Outcome", "Created", "Elapsed", "Input")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for _, r := range recs {
		input := strings.Join(strings.Fields(r.Input), " ")
		if r.Attachment != "" {
			input = "[" + r.Attachment + "] " + input
		}
		if len(input) > 36 {
			input = input[:33] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-8s  %-16s  %-12s  %-19s  %-8s  %s\n",
			r.ID[:min(8, len(r.ID))], r.Kind.Flag(), shortOutcome(r.Outcome),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Elapsed.Round(100*time.Millisecond), input)
	}

	fmt.Fprintf(os.Stdout, "\n%d generations\n", len(recs))
	return nil
}

func shortOutcome(o string) string {
	if len(o) > 12 {
		return o[:9] + "..."
	}
	return o
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one archived generation",
	Long: `Show prints the stored document in the chosen format. An ID prefix is
enough when it is unique. For failed generations, or with --raw, it prints
the raw model output instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	formatStr, _ := cmd.Flags().GetString("format")
	raw, _ := cmd.Flags().GetBool("raw")

	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s  %s  %s  %s\n", rec.ID, rec.Kind.Flag(), rec.Outcome, rec.Model)
	if rec.Error != "" {
		fmt.Fprintf(os.Stderr, "error: %s\n", rec.Error)
	}
	if raw || rec.Document == nil {
		fmt.Println(rec.Raw)
		return nil
	}

	format, err := export.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	return export.Write(os.Stdout, rec.Document, format)
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the archive to YAML or JSON",
	Long: `Export writes all archived generations (or a filtered subset) to
export.yaml or export.json in the archive directory. Supports the same
filter flags as list.`,
	RunE: runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	opts, err := historyQueryFromFlags(cmd, args)
	if err != nil {
		return err
	}
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- delete subcommand ---

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove one archived generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := store.Delete(cmd.Context(), rec.ID); err != nil {
			return err
		}
		fmt.Println("Deleted", rec.ID)
		return nil
	},
}

// --- shared helpers ---

func openArchive() (*archive.Store, error) {
	return archive.NewStore(loadConfig().Archive)
}

func historyQueryFromFlags(cmd *cobra.Command, args []string) (archive.QueryOptions, error) {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	kindStr, _ := cmd.Flags().GetString("kind")
	outcome, _ := cmd.Flags().GetString("outcome")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := archive.QueryOptions{
		Query:      queryText,
		Outcome:    outcome,
		MaxResults: limit,
	}
	if kindStr != "" {
		kind, err := types.ParseOutputKind(kindStr)
		if err != nil {
			return opts, err
		}
		opts.Kind = kind
	}
	return opts, nil
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	historyCmd.PersistentFlags().String("archive-dir", "archive", "directory holding paperviz.db")
	_ = viper.BindPFlag("archive.dir", historyCmd.PersistentFlags().Lookup("archive-dir"))

	// Filter flags for list and export.
	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().String("query", "", "substring of the input or raw output")
		c.Flags().String("kind", "", "filter by output kind")
		c.Flags().String("outcome", "", "filter by outcome: ok, invalid_request, service_unavailable, malformed_output")
		c.Flags().Int("limit", 0, "maximum records (0 = default for list, all for export)")
	}
	historyListCmd.Flags().Bool("json", false, "output records as JSON")

	historyShowCmd.Flags().String("format", "json", "document format: json, yaml, markdown, html, pdf")
	historyShowCmd.Flags().Bool("raw", false, "print the raw model output")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	// Wire subcommands.
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	rootCmd.AddCommand(historyCmd)
}
