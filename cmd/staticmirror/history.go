package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/staticmirror/internal/config"
	"github.com/nao1215/staticmirror/internal/database"
	"github.com/nao1215/staticmirror/internal/report"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded scrape runs",
		Long: `History lists the scrape runs recorded in the history database,
newest first. With --run it prints the report of one run; a unique
prefix of the run ID is enough. With --assets it lists the assets that
run downloaded or reused.

Examples:
  # List the last 20 runs
  staticmirror history

  # Show one run as Markdown
  staticmirror history --run 0d7f3c2a --format markdown

  # List the assets of a run as JSON
  staticmirror history --run 0d7f3c2a --assets --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs to list (0 lists all)")
	cmd.Flags().String("run", "", "Show the report of this run ID or ID prefix")
	cmd.Flags().Bool("assets", false, "With --run, list the run's assets")
	cmd.Flags().Bool("json", false, "Output JSON (same as --format json)")
	cmd.Flags().StringP("format", "f", report.FormatText, "Output format: text, json or markdown")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	limit  int
	runID  string
	assets bool
	format string
	dbDir  string
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseHistoryOptions(cmd)
	if err != nil {
		return err
	}
	setupLogger(cmd)

	// Never create a database just to report that it is empty.
	if _, err := os.Stat(filepath.Join(opts.dbDir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	db, err := database.Open(opts.dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return showHistory(ctx, cmd.OutOrStdout(), db, opts)
}

func parseHistoryOptions(cmd *cobra.Command) (historyOptions, error) {
	var opts historyOptions
	var err error
	flags := cmd.Flags()

	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.runID, err = flags.GetString("run"); err != nil {
		return opts, err
	}
	if opts.assets, err = flags.GetBool("assets"); err != nil {
		return opts, err
	}
	if opts.format, err = flags.GetString("format"); err != nil {
		return opts, err
	}
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return opts, err
	}
	if asJSON {
		opts.format = report.FormatJSON
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}

	if opts.assets && opts.runID == "" {
		return opts, errors.New("--assets requires --run")
	}
	if opts.limit < 0 {
		return opts, errors.New("--limit must not be negative")
	}
	return opts, nil
}

// showHistory writes the run list, one run report, or one run's assets.
func showHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, opts historyOptions) error {
	writer, err := report.NewWriter(opts.format, out, report.Options{
		Color:   !color.NoColor,
		Verbose: true,
		Version: getVersion(),
	})
	if err != nil {
		return err
	}

	if opts.runID == "" {
		runs, err := db.ListRuns(ctx, opts.limit)
		if err != nil {
			return err
		}
		_, err = writer.WriteHistory(runs)
		return err
	}

	if opts.assets {
		assets, err := db.GetRunAssets(ctx, opts.runID)
		if err != nil {
			return err
		}
		if opts.format == report.FormatJSON {
			if assets == nil {
				assets = []database.AssetRecord{}
			}
			_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(assets)
			return err
		}
		return writeAssetTable(out, assets)
	}

	mirrorReport, err := db.GetReport(ctx, opts.runID)
	if err != nil {
		return err
	}
	_, err = writer.Write(mirrorReport)
	return err
}

// writeAssetTable prints the assets of a run as aligned columns.
func writeAssetTable(out io.Writer, assets []database.AssetRecord) error {
	if len(assets) == 0 {
		_, err := fmt.Fprintln(out, "No assets recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tHITS\tBYTES\tPATH\tURL")
	for _, a := range assets {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", a.Status, a.Hits, a.Bytes, a.Path, a.URL)
	}
	return tw.Flush()
}
