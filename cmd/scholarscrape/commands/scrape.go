package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	chrome "github.com/jmylchreest/scholarscrape/internal/browser"
	"github.com/jmylchreest/scholarscrape/internal/config"
	"github.com/jmylchreest/scholarscrape/internal/export"
	"github.com/jmylchreest/scholarscrape/internal/logger"
	"github.com/jmylchreest/scholarscrape/internal/scholar"
	"github.com/jmylchreest/scholarscrape/pkg/browser"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Search Google Scholar and export the results",
	Long: `Open Google Scholar, run a search and collect every result row from up to
--max-pages result pages, then write them to --output.

The output format follows --format, or the output file extension when
--format is not set: xlsx, csv, json, jsonl, yaml or sqlite.

Pagination clicks the "Next" button. When the button is missing or disabled
for --next-retries attempts in a row the run stops early; this is usually the
last page of results.

Examples:
  scholarscrape scrape -q "EEG Machine Learning"
  scholarscrape scrape -q "EEG Machine Learning" -n 5 -o eeg.xlsx --sheet EEG
  scholarscrape scrape -q "EEG" --year-from 0 --mode static -o eeg.jsonl`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	d := config.Default()
	flags := scrapeCmd.Flags()

	// Search
	flags.StringP("query", "q", "", "search query (required)")
	flags.IntP("max-pages", "n", d.MaxPages, "number of result pages to collect")
	flags.Int("year-from", d.YearFrom, "only results published since this year (0 = any)")
	flags.Bool("sort-by-date", d.SortByDate, "sort results by date, newest first")
	flags.String("lang", d.Lang, "interface language")
	flags.String("base-url", d.BaseURL, "Google Scholar home page")

	// Output
	flags.StringP("output", "o", d.OutputPath, "output file")
	flags.String("format", "", "output format: xlsx, csv, json, jsonl, yaml, sqlite (default: from --output extension)")
	flags.String("sheet", d.Sheet, "worksheet name for xlsx output")
	flags.Bool("export-on-failure", d.ExportOnFailure, "export results collected before a failure")

	// Browser
	flags.String("mode", string(d.Mode), "browser mode: chrome, static")
	flags.Bool("headless", d.Headless, "run Chrome without a window")
	flags.Bool("stealth", d.Stealth, "enable anti-bot detection evasion")
	flags.String("user-agent", "", "override the browser user agent")
	flags.String("chrome-path", "", "Chrome binary (default: auto-detect)")

	// Pacing and bounded waits
	flags.Duration("wait-timeout", d.WaitTimeout, "bounded wait for the Next button and new results")
	flags.Int("next-retries", d.NextRetries, "attempts to find an enabled Next button before stopping")
	flags.String("page-delay", d.PageLoadDelay.String(), "random pause after opening Google Scholar (min-max)")
	flags.String("click-delay", d.ClickDelay.String(), "random pause before clicking Next (min-max)")
	flags.String("retry-delay", d.RetryDelay.String(), "random pause after a failed Next attempt (min-max)")
	flags.String("settle-delay", d.SettleDelay.String(), "random pause after clicking Next (min-max)")
	flags.Duration("linger", d.Linger, "keep the browser open this long before closing")

	// Block handling
	flags.Bool("non-interactive", false, "abort on a CAPTCHA page instead of waiting for Enter")

	// Bind to viper
	bind := map[string]string{
		config.KeyQuery:           "query",
		config.KeyMaxPages:        "max-pages",
		config.KeyYearFrom:        "year-from",
		config.KeySortByDate:      "sort-by-date",
		config.KeyLang:            "lang",
		config.KeyBaseURL:         "base-url",
		config.KeyOutput:          "output",
		config.KeyFormat:          "format",
		config.KeySheet:           "sheet",
		config.KeyExportOnFailure: "export-on-failure",
		config.KeyMode:            "mode",
		config.KeyHeadless:        "headless",
		config.KeyStealth:         "stealth",
		config.KeyUserAgent:       "user-agent",
		config.KeyChromePath:      "chrome-path",
		config.KeyWaitTimeout:     "wait-timeout",
		config.KeyNextRetries:     "next-retries",
		config.KeyPageDelay:       "page-delay",
		config.KeyClickDelay:      "click-delay",
		config.KeyRetryDelay:      "retry-delay",
		config.KeySettleDelay:     "settle-delay",
		config.KeyLinger:          "linger",
	}
	for key, name := range bind {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}
}

func runScrape(cmd *cobra.Command, _ []string) error {
	// Initialize logger based on flags
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})

	nonInteractive, _ := cmd.Flags().GetBool("non-interactive")
	if nonInteractive {
		viper.Set(config.KeyInteractive, false)
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		logError("%v", err)
		return err
	}

	exp, err := export.NewFile(cfg.OutputPath, cfg.Format, cfg.Sheet)
	if err != nil {
		logError("%v", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	b, err := newBrowser(cfg)
	if err != nil {
		logError("failed to start browser: %v", err)
		return err
	}
	logger.Debug("browser started", "type", b.Type())

	gate := newGate(cfg)
	runner := scholar.NewRunner(cfg, b, gate, exp)

	start := time.Now()
	rep, err := runner.Run(ctx)
	elapsed := time.Since(start).Round(time.Second)

	if rep.OutputPath != "" {
		logInfo("TOTAL %s articles from %d page(s) → %s (%s)",
			humanize.Comma(int64(len(rep.Records))), rep.Pages, rep.OutputPath, elapsed)
	}
	if rep.Exhausted {
		logInfo("Stopped early: no enabled Next button, likely the last page of results")
	}
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logError("interrupted")
		case errors.Is(err, scholar.ErrBlocked):
			logError("%v (run without --non-interactive to solve the CAPTCHA manually)", err)
		default:
			logError("%v", err)
		}
		return err
	}
	return nil
}

func newBrowser(cfg config.Config) (browser.Browser, error) {
	ua := cfg.UserAgent
	if ua == "" {
		ua = browser.DefaultUserAgent
	}

	switch cfg.Mode {
	case config.ModeStatic:
		return browser.NewStatic(browser.StaticConfig{
			UserAgent: ua,
			Timeout:   cfg.WaitTimeout,
			Headers:   map[string]string{"Accept-Language": cfg.Lang},
		}), nil
	case config.ModeChrome:
		bcfg := chrome.DefaultConfig()
		bcfg.UserAgent = ua
		bcfg.ChromePath = cfg.ChromePath
		bcfg.Headless = cfg.Headless
		bcfg.Stealth = cfg.Stealth
		bcfg.Lang = cfg.Lang
		s, err := chrome.NewSession(bcfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidMode, cfg.Mode)
	}
}

func newGate(cfg config.Config) scholar.Gate {
	if !cfg.Interactive {
		return scholar.AbortGate{}
	}
	return scholar.NewConsoleGate(os.Stdin, os.Stderr)
}
