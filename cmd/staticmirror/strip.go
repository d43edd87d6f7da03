package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/staticmirror/internal/config"
	"github.com/nao1215/staticmirror/internal/strip"
)

// NewStripCmd creates the strip command.
func NewStripCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strip",
		Short: "Remove the Wix runtime from mirrored HTML files",
		Long: `Strip walks every *.html file under --root and removes what only works
on Wix: runtime scripts, remote stylesheets and resource hints, vendor
custom elements and the <base> element. JSON-LD structured data is kept.

Files under an "admin" directory are never touched. Without --in-place
the command only reports how many files would change. Running it twice
produces identical files.

Examples:
  # Preview the changes
  staticmirror strip --root site

  # Rewrite the files with 4 workers
  staticmirror strip --root site --in-place --jobs 4

  # Leave a directory alone
  staticmirror strip --in-place --exclude "legacy/**"`,
		Args: cobra.NoArgs,
		RunE: runStripCmd,
	}

	cmd.Flags().String("root", config.DefaultStripRoot, "Directory containing the mirrored HTML files")
	cmd.Flags().Bool("in-place", false, "Write changes back to the files")
	cmd.Flags().IntP("jobs", "j", config.DefaultJobs, "Number of files processed concurrently")
	cmd.Flags().StringSlice("exclude", nil, "Glob of files to leave alone, relative to --root (repeatable)")
	cmd.Flags().StringP("config", "c", "", "Configuration file path")
	cmd.Flags().StringP("base-url", "u", "", "Apply strip_excludes of this site from the configuration file")

	return cmd
}

// runStripCmd executes the strip command.
// Per-file failures are logged; the command itself succeeds.
func runStripCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStripConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateStrip(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	walker := strip.NewWalker(
		strip.WithInPlace(cfg.InPlace),
		strip.WithJobs(cfg.Jobs),
		strip.WithExcludes(cfg.StripExcludes),
		strip.WithWalkerLogger(logger),
	)

	// Walk errors are logged and never fail the command.
	summary, err := walker.Run(ctx, cfg.StripRoot)
	if err != nil {
		logger.Error("strip walk failed", "root", cfg.StripRoot, "error", err)
	}
	if summary == nil {
		summary = &strip.Summary{}
	}

	if failed := summary.Failed(); failed > 0 {
		logger.Warn("some files could not be stripped", "failed", failed)
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary.Line())
	return nil
}

// buildStripConfig layers defaults, the config file and the flags.
func buildStripConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	var err error

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	baseURL, err := flags.GetString("base-url")
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = config.NormalizeBaseURL(baseURL)

	site, err := loadSiteConfig(cfg.ConfigFilePath, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	cfg.ApplySite(site)

	if cfg.StripRoot, err = flags.GetString("root"); err != nil {
		return nil, err
	}
	if cfg.InPlace, err = flags.GetBool("in-place"); err != nil {
		return nil, err
	}
	if cfg.Jobs, err = flags.GetInt("jobs"); err != nil {
		return nil, err
	}

	excludes, err := flags.GetStringSlice("exclude")
	if err != nil {
		return nil, err
	}
	cfg.StripExcludes = append(cfg.StripExcludes, excludes...)

	return cfg, nil
}
