package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/staticmirror/internal/config"
	"github.com/nao1215/staticmirror/internal/database"
	"github.com/nao1215/staticmirror/internal/model"
	"github.com/nao1215/staticmirror/internal/pipeline"
	"github.com/nao1215/staticmirror/internal/report"
	"github.com/nao1215/staticmirror/internal/sitemap"
	"github.com/nao1215/staticmirror/internal/transport"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Download every sitemap page of a Wix site with its assets",
		Long: `Scrape reads the site's sitemap, downloads each page, and stores it as
<out-dir>/<route>/index.html. Stylesheets, scripts, images, videos and
fonts are saved under <out-dir>/assets/ and every reference to them is
rewritten to a relative local path. The Wix worker bootstrap JSON is
rewritten too, so the mirrored pages do not depend on the Wix CDN.

Pages are fetched one at a time with a pause between them (--delay).
By default the first page that cannot be fetched aborts the run; use
--keep-going to mirror the remaining pages anyway.

Examples:
  # Mirror a site into ./site
  staticmirror scrape --base-url https://www.example.com

  # Use a different output directory and sitemap
  staticmirror scrape --base-url https://www.example.com -o public --sitemap /pages-sitemap.xml

  # Write a Markdown report for the run
  staticmirror scrape --base-url https://www.example.com --report markdown --report-file report.md

Configuration file (.staticmirror.yaml) example:
  defaults:
    delay: 1s
  sites:
    www.example.com:
      cookie: "svSession=abc123"
      ignore_patterns:
        - "/members/**"`,
		Args: cobra.NoArgs,
		RunE: runScrapeCmd,
	}

	cmd.Flags().StringP("base-url", "u", "", "Site to mirror, e.g. https://www.example.com (required)")
	cmd.Flags().StringP("out-dir", "o", config.DefaultOutDir, "Output directory")
	cmd.Flags().String("sitemap", config.DefaultSitemapPath, "Sitemap path relative to the base URL")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .staticmirror.yaml in current, XDG config or home directory)")

	// Request flags
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay, "Pause between page fetches (0 disables)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header")
	cmd.Flags().String("proxy", "", "Proxy address (socks5://host:port or http://host:port)")

	// Run behavior flags
	cmd.Flags().Bool("keep-going", false, "Continue with the remaining pages after a page fails")
	cmd.Flags().Bool("no-history", false, "Do not record the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")

	// Report flags
	cmd.Flags().StringP("report", "r", config.DefaultReportFormat, "Report format: text, json or markdown")
	cmd.Flags().String("report-file", "", "Write the report to a file instead of stdout")

	_ = cmd.MarkFlagRequired("base-url") //nolint:errcheck // flag is defined above

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildScrapeConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	return runScrape(ctx, cmd, cfg, logger)
}

// buildScrapeConfig layers defaults, the config file and the flags.
// Flags override the file only when given on the command line.
func buildScrapeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	baseURL, err := flags.GetString("base-url")
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = config.NormalizeBaseURL(baseURL)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	site, err := loadSiteConfig(cfg.ConfigFilePath, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	cfg.ApplySite(site)

	if cfg.OutDir, err = flags.GetString("out-dir"); err != nil {
		return nil, err
	}
	if flags.Changed("sitemap") {
		if cfg.SitemapPath, err = flags.GetString("sitemap"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("delay") {
		if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}

	if cfg.KeepGoing, err = flags.GetBool("keep-going"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	if cfg.ReportFormat, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// loadSiteConfig returns the merged file settings for baseURL.
// A missing file is an error only when its path was given explicitly.
func loadSiteConfig(explicitPath, baseURL string) (config.SiteConfig, error) {
	configPath := config.FindConfigFile(explicitPath)
	if configPath == "" {
		if explicitPath != "" {
			return config.SiteConfig{}, fmt.Errorf("configuration file not found: %s", explicitPath)
		}
		return config.SiteConfig{}, nil
	}

	cf, err := config.LoadConfigFile(configPath)
	if err != nil {
		return config.SiteConfig{}, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return cf.GetSiteConfig(baseURL), nil
}

// runScrape discovers the pages, mirrors them and prints the report.
func runScrape(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scrape",
		"baseURL", cfg.BaseURL,
		"outDir", cfg.OutDir,
		"delay", cfg.CrawlDelay,
		"keepGoing", cfg.KeepGoing,
	)

	client, err := transport.NewClient(
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithTimeout(cfg.Timeout),
		transport.WithMaxBodySize(cfg.MaxBodySize),
		transport.WithCookie(cfg.Cookie),
		transport.WithHeaders(cfg.Headers),
		transport.WithProxy(cfg.Proxy),
		transport.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	discoverer := sitemap.NewDiscoverer(client,
		sitemap.WithIgnorePatterns(cfg.IgnorePatterns),
		sitemap.WithLogger(logger),
	)
	pageURLs, err := discoverer.Discover(ctx, cfg.BaseURL, cfg.SitemapPath)
	if err != nil {
		return fmt.Errorf("sitemap discovery failed: %w", err)
	}

	tasks, err := pipeline.NewTasks(pageURLs, cfg.OutDir)
	if err != nil {
		return err
	}

	status := cmd.ErrOrStderr()
	fmt.Fprintf(status, "Found %d pages in %s\n", len(tasks), sitemap.URL(cfg.BaseURL, cfg.SitemapPath))

	opts := []pipeline.MirrorOption{
		pipeline.WithCrawlDelay(cfg.CrawlDelay),
		pipeline.WithKeepGoing(cfg.KeepGoing),
		pipeline.WithMirrorLogger(logger),
		pipeline.WithProgress(progressPrinter(status, !color.NoColor)),
	}

	// The history is auxiliary; a broken database never blocks a mirror.
	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("history disabled: failed to open database", "dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
			opts = append(opts, pipeline.WithRecorder(db))
			logger.Info("database opened", "path", db.Path())
		}
	}

	mirror := pipeline.NewMirror(client, cfg.OutDir, opts...)
	mirrorReport, runErr := mirror.Run(ctx, cfg.BaseURL, tasks)

	if mirrorReport != nil {
		if err := outputReport(cmd.OutOrStdout(), cfg, mirrorReport); err != nil {
			logger.Error("report failed", "error", err)
		}
	}

	return runErr
}

// progressPrinter returns a ProgressFunc that prints one line per page.
func progressPrinter(w io.Writer, useColor bool) pipeline.ProgressFunc {
	ok := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	if !useColor {
		ok.DisableColor()
		fail.DisableColor()
	}

	return func(index, total int, result model.PageResult) {
		counter := fmt.Sprintf("[%d/%d]", index, total)
		if result.Status == model.PageStatusFailed {
			fmt.Fprintf(w, "%s %s %s\n", fail.Sprint(counter), result.URL, fail.Sprint("failed"))
			return
		}
		fmt.Fprintf(w, "%s %s -> %s\n", ok.Sprint(counter), result.URL, result.OutputPath)
	}
}

// outputReport writes the run report to cfg.ReportFile, or to stdout.
func outputReport(stdout io.Writer, cfg *config.Config, mirrorReport *model.MirrorReport) error {
	output := stdout
	useColor := !color.NoColor

	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain cookie-protected URLs; keep them owner-only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
		useColor = false
	}

	writer, err := report.NewWriter(cfg.ReportFormat, output, report.Options{
		Color:   useColor,
		Verbose: cfg.Verbose,
		Version: getVersion(),
	})
	if err != nil {
		return err
	}
	_, err = writer.Write(mirrorReport)
	return err
}
