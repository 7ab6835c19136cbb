package scholar

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmylchreest/scholarscrape/internal/logger"
)

// Collection is what a collection loop gathered.
type Collection struct {
	Records      []Record
	PagesVisited int
	Exhausted    bool // pagination stopped before MaxPages
}

// Collect reads result rows from the current page and up to MaxPages-1
// following pages. On error the records gathered so far are returned with it.
func (n *Navigator) Collect(ctx context.Context, ex *Extractor) (Collection, error) {
	var col Collection
	maxPages := n.cfg.MaxPages

	for page := 1; page <= maxPages; page++ {
		if err := n.CheckBlock(ctx, "page "+strconv.Itoa(page)); err != nil {
			return col, err
		}

		rows, err := n.browser.FindAll(ctx, n.cfg.Selectors.Result)
		if err != nil {
			return col, fmt.Errorf("listing results on page %d: %w", page, err)
		}
		col.PagesVisited = page
		logger.Info("processing page", "page", page, "articles", len(rows))

		for _, row := range rows {
			col.Records = append(col.Records, ex.Extract(ctx, row, len(col.Records)+1))
		}
		if err := ctx.Err(); err != nil {
			return col, err
		}

		if page == maxPages {
			logger.Info("reached maximum page limit", "pages", maxPages)
			break
		}

		out, err := n.NextPage(ctx)
		if err != nil {
			return col, fmt.Errorf("moving to page %d: %w", page+1, err)
		}
		if out.State == Exhausted {
			col.Exhausted = true
			break
		}
	}
	return col, nil
}
