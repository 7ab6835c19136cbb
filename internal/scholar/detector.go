package scholar

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/scholarscrape/internal/config"
	"github.com/jmylchreest/scholarscrape/internal/logger"
	"github.com/jmylchreest/scholarscrape/pkg/browser"
)

// Detector recognises Google's "unusual traffic" interstitial by the text
// it displays.
type Detector struct {
	markers []string
}

// NewDetector returns a detector for markers, matched case-insensitively.
// With no markers it uses config.DefaultBlockMarkers.
func NewDetector(markers ...string) *Detector {
	if len(markers) == 0 {
		markers = config.DefaultBlockMarkers
	}
	d := &Detector{markers: make([]string, 0, len(markers))}
	for _, m := range markers {
		if m = strings.ToLower(strings.Join(strings.Fields(m), " ")); m != "" {
			d.markers = append(d.markers, m)
		}
	}
	return d
}

// Blocked reports whether the current page is a block page. A page that
// cannot be read is reported as not blocked.
func (d *Detector) Blocked(ctx context.Context, b browser.Browser) bool {
	_, ok := d.Check(ctx, b)
	return ok
}

// Check is Blocked that also returns the matched marker.
func (d *Detector) Check(ctx context.Context, b browser.Browser) (string, bool) {
	html, err := b.HTML(ctx)
	if err != nil {
		logger.Debug("block check skipped", "error", err)
		return "", false
	}
	return d.Match(html)
}

// Match looks for a marker in the visible text of html.
func (d *Detector) Match(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	doc.Find("script, style, noscript").Remove()
	text := strings.ToLower(strings.Join(strings.Fields(doc.Text()), " "))
	for _, m := range d.markers {
		if strings.Contains(text, m) {
			return m, true
		}
	}
	return "", false
}
