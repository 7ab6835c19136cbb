package scholar

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/scholarscrape/internal/config"
	"github.com/jmylchreest/scholarscrape/internal/delay"
	"github.com/jmylchreest/scholarscrape/internal/logger"
	"github.com/jmylchreest/scholarscrape/pkg/browser"
)

// Exporter writes the collected records somewhere and returns where.
type Exporter interface {
	Export(ctx context.Context, records []Record) (string, error)
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(ctx context.Context, records []Record) (string, error)

// Export implements Exporter.
func (f ExporterFunc) Export(ctx context.Context, records []Record) (string, error) {
	return f(ctx, records)
}

// Report summarises a run.
type Report struct {
	Records    []Record
	Pages      int
	Exhausted  bool
	OutputPath string // empty when nothing was exported
	Err        error
}

// screenshotter is implemented by browsers that can save a debug capture.
type screenshotter interface {
	SaveScreenshot() string
}

// Runner owns a browser for one run: open, search, collect, export, close.
type Runner struct {
	cfg      config.Config
	browser  browser.Browser
	gate     Gate
	exporter Exporter
	opts     []Option
	sleeper  delay.Sleeper
}

// NewRunner creates a runner. It takes ownership of b and closes it when Run
// returns.
func NewRunner(cfg config.Config, b browser.Browser, gate Gate, exp Exporter, opts ...Option) *Runner {
	return &Runner{
		cfg:      cfg,
		browser:  b,
		gate:     gate,
		exporter: exp,
		opts:     opts,
		sleeper:  buildOptions(opts).sleeper,
	}
}

// Run performs the run. The returned error is also stored in Report.Err.
//
// If collection fails, the page is checked for a block once more and, when
// ExportOnFailure is set, the partial records are exported before the error
// is returned. The browser is closed on every path after the linger delay.
func (r *Runner) Run(ctx context.Context) (rep Report, err error) {
	defer r.cleanup(ctx)

	nav := NewNavigator(r.browser, r.cfg, r.gate, r.opts...)
	ex := NewExtractor(r.cfg.Selectors, r.cfg.BaseURL)

	col, err := r.collect(ctx, nav, ex)
	rep = Report{Records: col.Records, Pages: col.PagesVisited, Exhausted: col.Exhausted}

	if err != nil {
		logger.Error("critical error", "error", err, "records", len(col.Records))
		r.afterFailure(ctx, nav, err)

		if r.cfg.ExportOnFailure && len(col.Records) > 0 {
			path, xerr := r.exporter.Export(context.WithoutCancel(ctx), col.Records)
			if xerr != nil {
				logger.Error("exporting partial results failed", "error", xerr)
				err = errors.Join(err, fmt.Errorf("exporting partial results: %w", xerr))
			} else {
				rep.OutputPath = path
				logger.Warn("partial results exported", "records", humanize.Comma(int64(len(col.Records))), "output", path)
			}
		}
		rep.Err = err
		return rep, err
	}

	path, err := r.exporter.Export(ctx, col.Records)
	if err != nil {
		rep.Err = fmt.Errorf("exporting results: %w", err)
		return rep, rep.Err
	}
	rep.OutputPath = path

	logger.Info("all operations completed",
		"articles", humanize.Comma(int64(len(col.Records))),
		"pages", col.PagesVisited,
		"output", path)
	return rep, nil
}

func (r *Runner) collect(ctx context.Context, nav *Navigator, ex *Extractor) (Collection, error) {
	if err := nav.Open(ctx); err != nil {
		return Collection{}, err
	}
	if err := nav.Search(ctx); err != nil {
		return Collection{}, err
	}
	return nav.Collect(ctx, ex)
}

// afterFailure gives the operator a chance to see a block page that may have
// caused the failure. Nothing is retried.
func (r *Runner) afterFailure(ctx context.Context, nav *Navigator, cause error) {
	if s, ok := r.browser.(screenshotter); ok {
		if path := s.SaveScreenshot(); path != "" {
			logger.Info("saved debug screenshot", "path", path)
		}
	}
	if ctx.Err() != nil || errors.Is(cause, ErrBlocked) {
		return
	}
	if err := nav.CheckBlock(ctx, "failure"); err != nil {
		logger.Warn("block check after failure", "error", err)
	}
}

func (r *Runner) cleanup(ctx context.Context) {
	if r.cfg.Linger > 0 {
		logger.Info("browser will close soon", "in", r.cfg.Linger)
		// A cancelled run skips the linger.
		_ = r.sleeper.Sleep(ctx, r.cfg.Linger)
	}
	if err := r.browser.Close(); err != nil {
		logger.Warn("closing browser", "error", err)
		return
	}
	logger.Info("browser closed")
}
