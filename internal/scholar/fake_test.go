package scholar

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/scholarscrape/internal/config"
	"github.com/jmylchreest/scholarscrape/internal/delay"
	"github.com/jmylchreest/scholarscrape/pkg/browser"
)

// fakeElement is a node with text, attributes and children keyed by selector.
type fakeElement struct {
	text     string
	attrs    map[string]string
	children map[string]*fakeElement
	textErr  error
}

func (e *fakeElement) Find(_ context.Context, selector string) (browser.Element, bool, error) {
	c, ok := e.children[selector]
	if !ok {
		return nil, false, nil
	}
	return c, true, nil
}

func (e *fakeElement) Text(context.Context) (string, error) {
	return e.text, e.textErr
}

func (e *fakeElement) Attr(_ context.Context, name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

func resultRow(title, link, authors, abstract string) *fakeElement {
	row := &fakeElement{children: map[string]*fakeElement{}}
	if title != "" || link != "" {
		a := &fakeElement{text: title, attrs: map[string]string{}}
		if link != "" {
			a.attrs["href"] = link
		}
		row.children["h3.gs_rt a"] = a
	}
	if authors != "" {
		row.children["div.gs_a"] = &fakeElement{text: authors}
	}
	if abstract != "" {
		row.children["div.gs_rs"] = &fakeElement{text: abstract}
	}
	return row
}

func rows(n int, prefix string) []*fakeElement {
	out := make([]*fakeElement, n)
	for i := range out {
		out[i] = resultRow(
			fmt.Sprintf("%s paper %d", prefix, i+1),
			fmt.Sprintf("https://example.org/%s/%d", prefix, i+1),
			"A Author, B Author - Journal, 2025",
			"An abstract.",
		)
	}
	return out
}

func enabledNext() *fakeElement {
	return &fakeElement{attrs: map[string]string{"class": "gs_btn_half gs_btn_lsb gs_btn_srt"}}
}

func disabledNext() *fakeElement {
	return &fakeElement{attrs: map[string]string{"class": "gs_btn_half gs_btn_lsb gs_btn_dis"}}
}

// fakePage is one document the fake browser can show.
type fakePage struct {
	html string
	rows []*fakeElement
	next *fakeElement // nil when the page has no Next control
}

// fakeBrowser serves pages in order: navigation shows pages[0], each
// successful Next click shows the following page.
type fakeBrowser struct {
	sel   config.Selectors
	pages []fakePage
	cur   int

	// nextSeq, when set, overrides the Next control per attempt within one
	// NextPage call; the last entry repeats.
	nextSeq     []*fakeElement
	nextAttempt int

	navigated []string
	clicks    int
	scrolls   int
	closed    int

	navErr     error
	clickErr   error
	confirmErr error
	findAllErr error
	htmlErr    error

	// onHTML, when set, replaces the current page's markup.
	onHTML func() string
}

var _ browser.Browser = (*fakeBrowser)(nil)

func newFakeBrowser(pages ...fakePage) *fakeBrowser {
	return &fakeBrowser{sel: config.DefaultSelectors(), pages: pages}
}

func (b *fakeBrowser) page() fakePage {
	if b.cur < len(b.pages) {
		return b.pages[b.cur]
	}
	return fakePage{}
}

func (b *fakeBrowser) nextControl() *fakeElement {
	if len(b.nextSeq) == 0 {
		return b.page().next
	}
	i := b.nextAttempt - 1
	if i >= len(b.nextSeq) {
		i = len(b.nextSeq) - 1
	}
	if i < 0 {
		i = 0
	}
	return b.nextSeq[i]
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.navigated = append(b.navigated, url)
	return b.navErr
}

func (b *fakeBrowser) WaitFor(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch selector {
	case b.sel.Next:
		b.nextAttempt++
		if b.nextControl() == nil {
			return fmt.Errorf("%w: %s", browser.ErrTimeout, selector)
		}
	case b.sel.Result:
		if b.confirmErr != nil {
			return b.confirmErr
		}
		if len(b.page().rows) == 0 {
			return fmt.Errorf("%w: %s", browser.ErrTimeout, selector)
		}
	}
	return nil
}

func (b *fakeBrowser) Find(ctx context.Context, selector string) (browser.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	switch selector {
	case b.sel.Next:
		if n := b.nextControl(); n != nil {
			return n, true, nil
		}
	case b.sel.Result:
		if r := b.page().rows; len(r) > 0 {
			return r[0], true, nil
		}
	}
	return nil, false, nil
}

func (b *fakeBrowser) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.findAllErr != nil {
		return nil, b.findAllErr
	}
	if selector != b.sel.Result {
		return nil, nil
	}
	var out []browser.Element
	for _, r := range b.page().rows {
		out = append(out, r)
	}
	return out, nil
}

func (b *fakeBrowser) Click(_ context.Context, _ browser.Element) error {
	b.clicks++
	if b.clickErr != nil {
		return b.clickErr
	}
	b.cur++
	b.nextAttempt = 0
	return nil
}

func (b *fakeBrowser) ScrollIntoView(context.Context, browser.Element) error {
	b.scrolls++
	return nil
}

func (b *fakeBrowser) HTML(context.Context) (string, error) {
	if b.htmlErr != nil {
		return "", b.htmlErr
	}
	if b.onHTML != nil {
		return b.onHTML(), nil
	}
	if h := b.page().html; h != "" {
		return h, nil
	}
	return "<html><body><div id=\"gs_res\">results</div></body></html>", nil
}

func (b *fakeBrowser) Close() error {
	b.closed++
	return nil
}

func (b *fakeBrowser) Type() string { return "fake" }

// testConfig returns a valid config with delays that the recorder makes free.
func testConfig(maxPages int) config.Config {
	cfg := config.Default()
	cfg.Query = "EEG Machine Learning"
	cfg.MaxPages = maxPages
	cfg.Linger = 0
	return cfg
}

// recordingGate counts awaits and optionally runs a hook while "waiting".
type recordingGate struct {
	calls  []Challenge
	during func()
	err    error
}

func (g *recordingGate) Await(_ context.Context, c Challenge) error {
	g.calls = append(g.calls, c)
	if g.during != nil {
		g.during()
	}
	return g.err
}

// memExporter keeps exported records in memory.
type memExporter struct {
	records []Record
	calls   int
	err     error
}

func (e *memExporter) Export(_ context.Context, records []Record) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	e.records = append([]Record(nil), records...)
	return "memory://results", nil
}

var _ delay.Sleeper = (*delay.Recorder)(nil)
