// Package config holds the explicit run configuration passed to the
// collection loop, its defaults, validation, and loading from viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/scholarscrape/internal/delay"
)

// Mode selects the browser backend.
type Mode string

const (
	ModeChrome Mode = "chrome"
	ModeStatic Mode = "static"
)

// Selectors locate parts of the results page. The defaults match the
// English Google Scholar interface.
type Selectors struct {
	Result        string `validate:"required"` // One result row
	TitleLink     string `validate:"required"` // Title anchor within a row
	Authors       string `validate:"required"` // Author/venue line within a row
	Abstract      string `validate:"required"` // Snippet within a row
	Next          string `validate:"required"` // "Next" pagination control
	DisabledClass string `validate:"required"` // Class marking Next as disabled
}

// Config is everything a run needs. Build one with Default and override
// fields, or Load it from viper.
type Config struct {
	// Search
	Query      string `validate:"required"`
	BaseURL    string `validate:"required,url"`
	Lang       string `validate:"required"`
	YearFrom   int    `validate:"gte=0"` // as_ylo filter; 0 disables
	SortByDate bool   // scisbd=1
	MaxPages   int    `validate:"gte=1"`

	// Output
	OutputPath      string `validate:"required"`
	Format          string `validate:"omitempty,oneof=xlsx csv json jsonl yaml yml sqlite db sqlite3"` // derived from OutputPath when empty
	Sheet           string
	ExportOnFailure bool // export partial records when the run fails

	// Pacing
	PageLoadDelay delay.Range // after opening the base URL
	SearchDelay   delay.Range // after loading the search URL
	ClickDelay    delay.Range // between scrolling Next into view and clicking it
	SettleDelay   delay.Range // after clicking Next, before confirming results
	RetryDelay    delay.Range // after a failed Next attempt

	// Bounded waits
	NextRetries         int           `validate:"gte=1"`
	WaitTimeout         time.Duration `validate:"gt=0"`
	ResultsPollAttempts int           `validate:"gte=1"`
	ResultsPollInterval time.Duration `validate:"gte=0"`
	Linger              time.Duration `validate:"gte=0"` // keep the browser open before closing

	// Browser
	Mode       Mode `validate:"oneof=chrome static"`
	Headless   bool
	Stealth    bool
	UserAgent  string
	ChromePath string

	// Block handling
	Interactive  bool     // prompt the operator; otherwise abort on a block page
	BlockMarkers []string `validate:"min=1,dive,required"`

	Selectors Selectors
}

// DefaultBaseURL is the English Google Scholar home page.
const DefaultBaseURL = "https://scholar.google.com/?hl=en"

// DefaultBlockMarkers are phrases shown on Google's interstitial pages.
var DefaultBlockMarkers = []string{"unusual traffic", "not a robot"}

// DefaultSelectors returns the Google Scholar selectors.
func DefaultSelectors() Selectors {
	return Selectors{
		Result:        "div.gs_r.gs_scl",
		TitleLink:     "h3.gs_rt a",
		Authors:       "div.gs_a",
		Abstract:      "div.gs_rs",
		Next:          "button[aria-label='Next']",
		DisabledClass: "gs_btn_dis",
	}
}

// Default returns a configuration with the reference pacing and limits.
// Query is left empty and must be supplied.
func Default() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Lang:       "en",
		YearFrom:   2025,
		SortByDate: true,
		MaxPages:   3,

		OutputPath:      "results.xlsx",
		Sheet:           "Results",
		ExportOnFailure: true,

		PageLoadDelay: delay.Seconds(3, 5),
		SearchDelay:   delay.Seconds(2, 4),
		ClickDelay:    delay.Seconds(1, 2),
		SettleDelay:   delay.Seconds(7, 12),
		RetryDelay:    delay.Seconds(2, 4),

		NextRetries:         3,
		WaitTimeout:         30 * time.Second,
		ResultsPollAttempts: 10,
		ResultsPollInterval: 2 * time.Second,
		Linger:              10 * time.Second,

		Mode:    ModeChrome,
		Stealth: true,

		Interactive:  true,
		BlockMarkers: append([]string(nil), DefaultBlockMarkers...),
		Selectors:    DefaultSelectors(),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldErrors maps struct fields to the sentinel reported for them.
var fieldErrors = map[string]error{
	"Query":               ErrNoQuery,
	"OutputPath":          ErrNoOutput,
	"MaxPages":            ErrInvalidMaxPages,
	"NextRetries":         ErrInvalidRetries,
	"WaitTimeout":         ErrInvalidTimeout,
	"ResultsPollAttempts": ErrInvalidRetries,
	"ResultsPollInterval": ErrInvalidTimeout,
	"Linger":              ErrInvalidTimeout,
	"Mode":                ErrInvalidMode,
	"Format":              ErrInvalidFormat,
	"BaseURL":             ErrInvalidURL,
}

// Validate checks the configuration and returns the first problem found,
// wrapping one of the sentinel errors in this package.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Query) == "" {
		return ErrNoQuery
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		fe := verrs[0]
		sentinel, ok := fieldErrors[fe.StructField()]
		if !ok {
			sentinel = ErrInvalid
		}
		return fmt.Errorf("%w: %s failed %q (value %v)", sentinel, fe.Namespace(), fe.Tag(), fe.Value())
	}

	ranges := []struct {
		name string
		r    delay.Range
	}{
		{"page load delay", c.PageLoadDelay},
		{"search delay", c.SearchDelay},
		{"click delay", c.ClickDelay},
		{"settle delay", c.SettleDelay},
		{"retry delay", c.RetryDelay},
	}
	for _, rr := range ranges {
		if !rr.r.Valid() {
			return fmt.Errorf("%w: %s %s", ErrInvalidDelay, rr.name, rr.r)
		}
	}

	return nil
}
