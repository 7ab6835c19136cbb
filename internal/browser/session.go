package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/scholarscrape/internal/logger"
	"github.com/jmylchreest/scholarscrape/pkg/browser"
)

const (
	scrollIntoViewJS = `function() { this.scrollIntoView({block: 'center'}); }`
	clickJS          = `function() { this.click(); }`
)

// Session is a single Chrome tab driven through chromedp. It implements
// browser.Browser and is owned by one goroutine.
type Session struct {
	config      Config
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabCtx      context.Context
	cancelTab   context.CancelFunc

	closeOnce sync.Once
	closed    bool
}

var _ browser.Browser = (*Session)(nil)

// NewSession launches Chrome and opens a tab.
func NewSession(cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	var startup []chromedp.Action
	if cfg.Stealth {
		startup = append(startup, injectStealthScript())
	}
	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx, startup...); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug("chrome session started",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
		"navigate_timeout", cfg.NavigateTimeout)

	return &Session{
		config:      cfg,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
	}, nil
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.closed {
		return browser.ErrClosed
	}
	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads targetURL and waits for the load event.
func (s *Session) Navigate(ctx context.Context, targetURL string) error {
	logger.Debug("chrome navigate", "url", targetURL)
	if err := s.run(ctx, s.config.NavigateTimeout, chromedp.Navigate(targetURL)); err != nil {
		return fmt.Errorf("navigate %s: %w", targetURL, err)
	}
	return nil
}

// WaitFor polls until selector is present in the DOM.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	err := s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", browser.ErrTimeout, selector, timeout)
	}
	return err
}

// Find returns the first node matching selector without waiting for it.
func (s *Session) Find(ctx context.Context, selector string) (browser.Element, bool, error) {
	nodes, err := s.query(ctx, selector, chromedp.ByQuery)
	if err != nil || len(nodes) == 0 {
		return nil, false, err
	}
	return &element{session: s, node: nodes[0]}, true, nil
}

// FindAll returns every node matching selector without waiting.
func (s *Session) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	nodes, err := s.query(ctx, selector, chromedp.ByQueryAll)
	if err != nil {
		return nil, err
	}
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{session: s, node: n})
	}
	return out, nil
}

func (s *Session) query(ctx context.Context, selector string, by chromedp.QueryOption, opts ...chromedp.QueryOption) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	opts = append([]chromedp.QueryOption{by, chromedp.AtLeast(0)}, opts...)
	if err := s.run(ctx, s.config.ActionTimeout, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return nodes, nil
}

// Click dispatches a DOM click on el. A scripted click is not intercepted by
// overlays the way a synthetic mouse event is.
func (s *Session) Click(ctx context.Context, el browser.Element) error {
	e, err := s.own(el)
	if err != nil {
		return err
	}
	return s.callOn(ctx, e.node, clickJS)
}

// ScrollIntoView centres el in the viewport.
func (s *Session) ScrollIntoView(ctx context.Context, el browser.Element) error {
	e, err := s.own(el)
	if err != nil {
		return err
	}
	return s.callOn(ctx, e.node, scrollIntoViewJS)
}

func (s *Session) callOn(ctx context.Context, node *cdp.Node, fn string) error {
	return s.run(ctx, s.config.ActionTimeout, callFunctionOnNode(node, fn))
}

// callFunctionOnNode runs fn with this bound to node.
func callFunctionOnNode(node *cdp.Node, fn string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolving node: %w", err)
		}
		// Fails once the page has navigated away, which is fine.
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		_, exc, err := runtime.CallFunctionOn(fn).WithObjectID(obj.ObjectID).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		return nil
	}
}

// HTML returns the outer HTML of the document element.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.config.ActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// SaveScreenshot writes a debug screenshot to the temp dir and returns its
// path, or "" if the browser could not produce one.
func (s *Session) SaveScreenshot() string {
	if s.closed {
		return ""
	}
	shot := captureScreenshot(s.tabCtx)
	if shot == nil {
		return ""
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("scholarscrape-debug-%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(path, shot, 0o644); err != nil {
		return ""
	}
	return path
}

// Close shuts the tab and the browser process. Later calls are no-ops.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		s.cancelTab()
		s.cancelAlloc()
		logger.Debug("chrome session closed")
	})
	return nil
}

// Type returns the browser type.
func (s *Session) Type() string {
	return "chrome"
}

func (s *Session) own(el browser.Element) (*element, error) {
	e, ok := el.(*element)
	if !ok || e.session != s {
		return nil, fmt.Errorf("%w: element belongs to another session", browser.ErrStaleElement)
	}
	return e, nil
}

// element wraps a DOM node snapshot. Text and attributes are read live so a
// class toggled after lookup is still observed.
type element struct {
	session *Session
	node    *cdp.Node
}

func (e *element) Find(ctx context.Context, selector string) (browser.Element, bool, error) {
	nodes, err := e.session.query(ctx, selector, chromedp.ByQuery, chromedp.FromNode(e.node))
	if err != nil || len(nodes) == 0 {
		return nil, false, err
	}
	return &element{session: e.session, node: nodes[0]}, true, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.session.run(ctx, e.session.config.ActionTimeout,
		chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID))
	return text, err
}

func (e *element) Attr(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := e.session.run(ctx, e.session.config.ActionTimeout,
		chromedp.AttributeValue([]cdp.NodeID{e.node.NodeID}, name, &value, &ok, chromedp.ByNodeID))
	return value, ok, err
}
