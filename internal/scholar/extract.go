package scholar

import (
	"context"
	"net/url"
	"strings"

	"github.com/jmylchreest/scholarscrape/internal/config"
	"github.com/jmylchreest/scholarscrape/internal/logger"
	"github.com/jmylchreest/scholarscrape/pkg/browser"
)

// Extractor reads record fields from a result row. Its methods never fail:
// anything missing comes back as the documented default.
type Extractor struct {
	sel  config.Selectors
	base *url.URL
}

// NewExtractor creates an extractor. Relative links are resolved against
// baseURL when it parses.
func NewExtractor(sel config.Selectors, baseURL string) *Extractor {
	e := &Extractor{sel: sel}
	if u, err := url.Parse(baseURL); err == nil && u.IsAbs() {
		e.base = u
	}
	return e
}

// Extract builds the record for row.
func (e *Extractor) Extract(ctx context.Context, row browser.Element, order int) Record {
	title, link := e.ExtractTitleLink(ctx, row)
	return Record{
		Order:    order,
		Title:    title,
		Authors:  e.ExtractText(ctx, row, e.sel.Authors),
		Abstract: e.ExtractText(ctx, row, e.sel.Abstract),
		Link:     link,
	}
}

// ExtractText returns the text of the first element under row matching
// selector, or "".
func (e *Extractor) ExtractText(ctx context.Context, row browser.Element, selector string) string {
	if row == nil {
		return ""
	}
	el, ok, err := row.Find(ctx, selector)
	if err != nil || !ok {
		if err != nil {
			logger.Debug("field lookup failed", "selector", selector, "error", err)
		}
		return ""
	}
	text, err := el.Text(ctx)
	if err != nil {
		logger.Debug("field text failed", "selector", selector, "error", err)
		return ""
	}
	return cleanText(text)
}

// ExtractTitleLink returns the title anchor's text and target, or
// (NoTitle, "") when the row has no title link.
func (e *Extractor) ExtractTitleLink(ctx context.Context, row browser.Element) (string, string) {
	if row == nil {
		return NoTitle, ""
	}
	a, ok, err := row.Find(ctx, e.sel.TitleLink)
	if err != nil || !ok {
		return NoTitle, ""
	}

	title := NoTitle
	if text, err := a.Text(ctx); err == nil {
		if text = cleanText(text); text != "" {
			title = text
		}
	}

	href, ok, err := a.Attr(ctx, "href")
	if err != nil || !ok {
		return title, ""
	}
	return title, e.resolve(strings.TrimSpace(href))
}

func (e *Extractor) resolve(href string) string {
	if href == "" || e.base == nil {
		return href
	}
	u, err := url.Parse(href)
	if err != nil || u.IsAbs() {
		return href
	}
	return e.base.ResolveReference(u).String()
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
