package browser

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/scholarscrape/internal/logger"
)

// StaticConfig holds configuration for the static browser.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string
}

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Static is a Browser without a JavaScript engine. Pages are fetched with
// Colly and queried with goquery; clicking an element follows its href or a
// window.location assignment in its onclick handler.
type Static struct {
	config     StaticConfig
	doc        *goquery.Document
	url        *url.URL
	generation int
	closed     bool
}

// NewStatic creates a new static browser.
func NewStatic(cfg StaticConfig) *Static {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultStaticConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultStaticConfig().Timeout
	}
	return &Static{config: cfg}
}

// Navigate fetches targetURL and makes it the current document.
func (b *Static) Navigate(ctx context.Context, targetURL string) error {
	if b.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Debug("static navigate", "url", targetURL)

	c := colly.NewCollector(
		colly.UserAgent(b.config.UserAgent),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(b.config.Timeout)

	if len(b.config.Headers) > 0 {
		c.OnRequest(func(r *colly.Request) {
			for k, v := range b.config.Headers {
				r.Headers.Set(k, v)
			}
		})
	}

	var (
		body     []byte
		finalURL *url.URL
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL
		logger.Debug("static response received", "status", r.StatusCode, "body_size", len(r.Body))
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch error (status %d): %w", status, err)
	})

	if err := c.Visit(targetURL); err != nil {
		return fmt.Errorf("failed to visit URL: %w", err)
	}
	if fetchErr != nil {
		return fetchErr
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	b.doc = doc
	b.url = finalURL
	b.generation++
	return nil
}

// WaitFor checks selector against the current document. A static document
// never changes, so a miss fails immediately instead of polling.
func (b *Static) WaitFor(ctx context.Context, selector string, _ time.Duration) error {
	if err := b.ready(ctx); err != nil {
		return err
	}
	if b.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	return nil
}

// Find returns the first element matching selector.
func (b *Static) Find(ctx context.Context, selector string) (Element, bool, error) {
	if err := b.ready(ctx); err != nil {
		return nil, false, err
	}
	sel := b.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false, nil
	}
	return &staticElement{sel: sel, owner: b, generation: b.generation}, true, nil
}

// FindAll returns every element matching selector.
func (b *Static) FindAll(ctx context.Context, selector string) ([]Element, error) {
	if err := b.ready(ctx); err != nil {
		return nil, err
	}
	var out []Element
	b.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &staticElement{sel: s, owner: b, generation: b.generation})
	})
	return out, nil
}

// Click navigates to the element's link target.
func (b *Static) Click(ctx context.Context, el Element) error {
	se, err := b.own(el)
	if err != nil {
		return err
	}
	target, ok := linkTarget(se.sel)
	if !ok {
		return fmt.Errorf("%w: element has no href or location handler", ErrNotNavigable)
	}
	ref, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid link target %q: %w", target, err)
	}
	if b.url != nil {
		ref = b.url.ResolveReference(ref)
	}
	return b.Navigate(ctx, ref.String())
}

// ScrollIntoView has nothing to do without a viewport; it only validates el.
func (b *Static) ScrollIntoView(_ context.Context, el Element) error {
	_, err := b.own(el)
	return err
}

// HTML returns the current document markup.
func (b *Static) HTML(ctx context.Context) (string, error) {
	if err := b.ready(ctx); err != nil {
		return "", err
	}
	return goquery.OuterHtml(b.doc.Selection)
}

// URL returns the current document URL, or "" before the first navigation.
func (b *Static) URL() string {
	if b.url == nil {
		return ""
	}
	return b.url.String()
}

// Close marks the session closed.
func (b *Static) Close() error {
	b.closed = true
	b.doc = nil
	return nil
}

// Type returns the browser type.
func (b *Static) Type() string {
	return "static"
}

func (b *Static) ready(ctx context.Context) error {
	if b.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.doc == nil {
		return ErrNotNavigable
	}
	return nil
}

func (b *Static) own(el Element) (*staticElement, error) {
	if b.closed {
		return nil, ErrClosed
	}
	se, ok := el.(*staticElement)
	if !ok || se.owner != b {
		return nil, fmt.Errorf("%w: element belongs to another session", ErrStaleElement)
	}
	if se.generation != b.generation {
		return nil, ErrStaleElement
	}
	return se, nil
}

type staticElement struct {
	sel        *goquery.Selection
	owner      *Static
	generation int
}

func (e *staticElement) Find(_ context.Context, selector string) (Element, bool, error) {
	if e.generation != e.owner.generation {
		return nil, false, ErrStaleElement
	}
	sel := e.sel.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false, nil
	}
	return &staticElement{sel: sel, owner: e.owner, generation: e.generation}, true, nil
}

func (e *staticElement) Text(_ context.Context) (string, error) {
	if e.generation != e.owner.generation {
		return "", ErrStaleElement
	}
	return e.sel.Text(), nil
}

func (e *staticElement) Attr(_ context.Context, name string) (string, bool, error) {
	if e.generation != e.owner.generation {
		return "", false, ErrStaleElement
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// locationPattern matches `window.location='…'` and `location.href = "…"`.
var locationPattern = regexp.MustCompile(`(?:window\.)?location(?:\.href)?\s*=\s*['"]([^'"]+)['"]`)

// hexEscape matches JavaScript \xNN escapes used inside onclick handlers.
var hexEscape = regexp.MustCompile(`\\x([0-9a-fA-F]{2})`)

// linkTarget returns where clicking s would navigate.
func linkTarget(s *goquery.Selection) (string, bool) {
	if href, ok := s.Attr("href"); ok && href != "" && !strings.HasPrefix(href, "#") && !strings.HasPrefix(href, "javascript:") {
		return href, true
	}
	onclick, ok := s.Attr("onclick")
	if !ok {
		return "", false
	}
	m := locationPattern.FindStringSubmatch(onclick)
	if m == nil {
		return "", false
	}
	return unescapeJS(m[1]), true
}

func unescapeJS(s string) string {
	return hexEscape.ReplaceAllStringFunc(s, func(esc string) string {
		n, err := strconv.ParseUint(esc[2:], 16, 8)
		if err != nil {
			return esc
		}
		return string(rune(n))
	})
}
