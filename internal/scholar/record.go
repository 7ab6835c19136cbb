// Package scholar collects search result records from Google Scholar through
// a browser.Browser: it detects block pages, paginates with bounded retries
// and extracts one Record per result row.
package scholar

// NoTitle is recorded when a result row has no usable title link.
const NoTitle = "No title"

// Record is one search result. Order starts at 1 and increases by one per
// row across all pages of a run.
type Record struct {
	Order    int    `json:"order" yaml:"order"`
	Title    string `json:"title" yaml:"title"`
	Authors  string `json:"authors" yaml:"authors"`
	Abstract string `json:"abstract" yaml:"abstract"`
	Link     string `json:"link" yaml:"link"`
}

// Columns are the export column headers, in record field order.
var Columns = []string{"Order", "Title", "Authors", "Abstract", "Link"}

// Values returns the record's fields in Columns order.
func (r Record) Values() []any {
	return []any{r.Order, r.Title, r.Authors, r.Abstract, r.Link}
}
