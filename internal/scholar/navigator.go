package scholar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmylchreest/scholarscrape/internal/config"
	"github.com/jmylchreest/scholarscrape/internal/delay"
	"github.com/jmylchreest/scholarscrape/internal/logger"
	"github.com/jmylchreest/scholarscrape/pkg/browser"
)

// ErrPagination wraps failures after the Next control was clicked. The step
// is not retried.
var ErrPagination = errors.New("pagination failed")

// State is a state of the next-page step.
type State int

const (
	Attempting State = iota
	Succeeded
	Exhausted
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is the terminal result of NextPage.
type Outcome struct {
	State    State
	Attempts int
}

// Trace observes state transitions of NextPage. attempt is 1-based.
type Trace func(s State, attempt int)

// Navigator loads the search and moves between result pages.
type Navigator struct {
	browser  browser.Browser
	cfg      config.Config
	detector *Detector
	gate     Gate
	sleeper  delay.Sleeper
	trace    Trace
	log      *slog.Logger
}

// Option configures a Navigator or Runner.
type Option func(*options)

type options struct {
	sleeper delay.Sleeper
	trace   Trace
}

func buildOptions(opts []Option) options {
	o := options{sleeper: delay.Real{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSleeper replaces the wall-clock sleeper used for pacing.
func WithSleeper(s delay.Sleeper) Option {
	return func(o *options) {
		o.sleeper = s
	}
}

// WithTrace registers a transition observer.
func WithTrace(t Trace) Option {
	return func(o *options) {
		o.trace = t
	}
}

// NewNavigator creates a navigator driving b. A nil gate aborts on block
// pages.
func NewNavigator(b browser.Browser, cfg config.Config, gate Gate, opts ...Option) *Navigator {
	o := buildOptions(opts)
	if gate == nil {
		gate = AbortGate{}
	}
	return &Navigator{
		browser:  b,
		cfg:      cfg,
		detector: NewDetector(cfg.BlockMarkers...),
		gate:     gate,
		sleeper:  o.sleeper,
		trace:    o.trace,
		log:      logger.With("component", "navigator"),
	}
}

// SearchURL builds the results URL for cfg on the host of cfg.BaseURL.
func SearchURL(cfg config.Config) string {
	scheme, host := "https", "scholar.google.com"
	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		scheme, host = u.Scheme, u.Host
	}

	var q strings.Builder
	q.WriteString("hl=" + url.QueryEscape(cfg.Lang))
	q.WriteString("&q=" + url.QueryEscape(cfg.Query))
	if cfg.YearFrom > 0 {
		q.WriteString("&as_ylo=" + strconv.Itoa(cfg.YearFrom))
	}
	if cfg.SortByDate {
		q.WriteString("&scisbd=1")
	}
	return scheme + "://" + host + "/scholar?" + q.String()
}

// CheckBlock runs the gate if the current page is a block page.
func (n *Navigator) CheckBlock(ctx context.Context, stage string) error {
	marker, blocked := n.detector.Check(ctx, n.browser)
	if !blocked {
		return nil
	}
	n.log.Warn("block page detected", "stage", stage, "marker", marker)
	if err := n.gate.Await(ctx, Challenge{Marker: marker, Stage: stage}); err != nil {
		return err
	}
	n.log.Info("resuming after block page", "stage", stage)
	return nil
}

// Open loads the base URL and waits for the page to settle.
func (n *Navigator) Open(ctx context.Context) error {
	n.log.Info("opening Google Scholar", "url", n.cfg.BaseURL)
	if err := n.browser.Navigate(ctx, n.cfg.BaseURL); err != nil {
		return fmt.Errorf("opening %s: %w", n.cfg.BaseURL, err)
	}
	if err := delay.Pause(ctx, n.sleeper, n.cfg.PageLoadDelay); err != nil {
		return err
	}
	return n.CheckBlock(ctx, "open")
}

// Search loads the results page and polls until result rows appear, a block
// page is seen, or the poll budget runs out. Running out is not an error.
func (n *Navigator) Search(ctx context.Context) error {
	target := SearchURL(n.cfg)
	n.log.Info("searching", "query", n.cfg.Query, "url", target)
	if err := n.browser.Navigate(ctx, target); err != nil {
		return fmt.Errorf("loading search results: %w", err)
	}
	if err := delay.Pause(ctx, n.sleeper, n.cfg.SearchDelay); err != nil {
		return err
	}

	for poll := 1; poll <= n.cfg.ResultsPollAttempts; poll++ {
		if marker, blocked := n.detector.Check(ctx, n.browser); blocked {
			n.log.Warn("block page detected", "stage", "search", "marker", marker)
			return n.gate.Await(ctx, Challenge{URL: target, Marker: marker, Stage: "search"})
		}
		_, found, err := n.browser.Find(ctx, n.cfg.Selectors.Result)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if found {
			n.log.Info("results loaded", "poll", poll)
			return nil
		}
		if err := n.sleeper.Sleep(ctx, n.cfg.ResultsPollInterval); err != nil {
			return err
		}
	}
	n.log.Warn("results not confirmed", "polls", n.cfg.ResultsPollAttempts)
	return nil
}

// NextPage advances to the next results page.
//
// Each attempt looks for the Next control. A missing or disabled control
// costs one attempt and a retry delay; after NextRetries failures the step
// ends Exhausted, which usually means the last page. An enabled control is
// clicked once and the new page confirmed; any failure on that path returns
// an error wrapping ErrPagination.
func (n *Navigator) NextPage(ctx context.Context) (Outcome, error) {
	retries := n.cfg.NextRetries
	for attempt := 1; attempt <= retries; attempt++ {
		n.transition(Attempting, attempt)

		btn, err := n.locateNext(ctx)
		if ctx.Err() != nil {
			return Outcome{State: Attempting, Attempts: attempt}, ctx.Err()
		}

		switch {
		case err != nil:
			n.log.Warn("next button not found", "attempt", attempt, "error", err)
		case btn == nil:
			n.log.Warn("next button not found", "attempt", attempt)
		default:
			disabled, err := n.isDisabled(ctx, btn)
			switch {
			case err != nil:
				n.log.Warn("next button unreadable", "attempt", attempt, "error", err)
			case disabled:
				n.log.Info("next button disabled, retrying", "attempt", attempt)
			default:
				if err := n.advance(ctx, btn, attempt); err != nil {
					return Outcome{State: Attempting, Attempts: attempt}, err
				}
				n.transition(Succeeded, attempt)
				return Outcome{State: Succeeded, Attempts: attempt}, nil
			}
		}

		if err := delay.Pause(ctx, n.sleeper, n.cfg.RetryDelay); err != nil {
			return Outcome{State: Attempting, Attempts: attempt}, err
		}
	}

	n.transition(Exhausted, retries)
	n.log.Warn("next button could not be clicked, likely on the last page", "attempts", retries)
	return Outcome{State: Exhausted, Attempts: retries}, nil
}

func (n *Navigator) locateNext(ctx context.Context) (browser.Element, error) {
	sel := n.cfg.Selectors.Next
	if err := n.browser.WaitFor(ctx, sel, n.cfg.WaitTimeout); err != nil {
		return nil, err
	}
	el, found, err := n.browser.Find(ctx, sel)
	if err != nil || !found {
		return nil, err
	}
	return el, nil
}

func (n *Navigator) isDisabled(ctx context.Context, btn browser.Element) (bool, error) {
	class, _, err := btn.Attr(ctx, "class")
	if err != nil {
		return false, err
	}
	for _, c := range strings.Fields(class) {
		if c == n.cfg.Selectors.DisabledClass {
			return true, nil
		}
	}
	_, disabled, err := btn.Attr(ctx, "disabled")
	return disabled, err
}

func (n *Navigator) advance(ctx context.Context, btn browser.Element, attempt int) error {
	if err := n.browser.ScrollIntoView(ctx, btn); err != nil {
		return fmt.Errorf("%w: scrolling to next button: %w", ErrPagination, err)
	}
	if err := delay.Pause(ctx, n.sleeper, n.cfg.ClickDelay); err != nil {
		return err
	}
	n.log.Info("clicking next button", "attempt", attempt)
	if err := n.browser.Click(ctx, btn); err != nil {
		return fmt.Errorf("%w: clicking next button: %w", ErrPagination, err)
	}
	if err := delay.Pause(ctx, n.sleeper, n.cfg.SettleDelay); err != nil {
		return err
	}
	if err := n.browser.WaitFor(ctx, n.cfg.Selectors.Result, n.cfg.WaitTimeout); err != nil {
		return fmt.Errorf("%w: confirming next page: %w", ErrPagination, err)
	}
	return nil
}

func (n *Navigator) transition(s State, attempt int) {
	n.log.Debug("next page state", "state", s, "attempt", attempt)
	if n.trace != nil {
		n.trace(s, attempt)
	}
}
