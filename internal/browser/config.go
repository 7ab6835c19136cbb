// Package browser provides the chromedp-backed implementation of the browser
// capability, including headful/headless launch, stealth flags and Chrome
// binary discovery.
package browser

import (
	"time"

	"github.com/jmylchreest/scholarscrape/pkg/browser"
)

// Config holds configuration for a Chrome session.
type Config struct {
	UserAgent       string
	ChromePath      string // Explicit Chrome binary; discovered when empty
	Headless        bool   // Run without a visible window
	Stealth         bool   // Enable anti-bot detection evasion
	Lang            string // Accept-Language, e.g. "en-US,en"
	WindowWidth     int
	WindowHeight    int
	NavigateTimeout time.Duration // Upper bound for a single page load
	ActionTimeout   time.Duration // Upper bound for element lookups and clicks
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:       browser.DefaultUserAgent,
		Headless:        false,
		Stealth:         true,
		Lang:            "en-US,en",
		WindowWidth:     1920,
		WindowHeight:    1080,
		NavigateTimeout: 60 * time.Second,
		ActionTimeout:   10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Lang == "" {
		c.Lang = d.Lang
	}
	if c.WindowWidth == 0 || c.WindowHeight == 0 {
		c.WindowWidth, c.WindowHeight = d.WindowWidth, d.WindowHeight
	}
	if c.NavigateTimeout == 0 {
		c.NavigateTimeout = d.NavigateTimeout
	}
	if c.ActionTimeout == 0 {
		c.ActionTimeout = d.ActionTimeout
	}
	return c
}
