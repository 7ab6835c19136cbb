package commands

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jmylchreest/scholarscrape/internal/config"
	"github.com/jmylchreest/scholarscrape/internal/scholar"
	"github.com/jmylchreest/scholarscrape/pkg/browser"
)

// --- Command Tree Tests ---

func TestRootCommand_HasSubcommands(t *testing.T) {
	for _, name := range []string{"scrape", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
}

func TestScrapeCommand_Flags(t *testing.T) {
	flags := scrapeCmd.Flags()
	for _, name := range []string{
		"query", "output", "format", "max-pages", "year-from", "sort-by-date",
		"lang", "base-url", "mode", "headless", "stealth", "user-agent",
		"chrome-path", "wait-timeout", "next-retries", "page-delay",
		"click-delay", "retry-delay", "settle-delay", "linger",
		"non-interactive", "export-on-failure", "sheet",
	} {
		if flags.Lookup(name) == nil {
			t.Errorf("missing flag --%s", name)
		}
	}
	if f := flags.ShorthandLookup("q"); f == nil || f.Name != "query" {
		t.Error("-q should be --query")
	}
	if f := flags.ShorthandLookup("n"); f == nil || f.Name != "max-pages" {
		t.Error("-n should be --max-pages")
	}
}

func TestVersionCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	versionCmd.SetOut(buf)
	defer versionCmd.SetOut(nil)

	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("RunE() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) == "" {
		t.Error("expected version output")
	}
}

// --- Wiring Tests ---

func TestNewBrowser_Static(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = config.ModeStatic

	b, err := newBrowser(cfg)
	if err != nil {
		t.Fatalf("newBrowser() error = %v", err)
	}
	defer b.Close()
	if b.Type() != "static" {
		t.Errorf("Type() = %q, want static", b.Type())
	}
}

func TestNewBrowser_UnknownMode(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "firefox"

	if _, err := newBrowser(cfg); !errors.Is(err, config.ErrInvalidMode) {
		t.Errorf("newBrowser() error = %v, want ErrInvalidMode", err)
	}
}

func TestNewGate(t *testing.T) {
	cfg := config.Default()
	if _, ok := newGate(cfg).(*scholar.ConsoleGate); !ok {
		t.Error("interactive config should prompt on the console")
	}
	cfg.Interactive = false
	if _, ok := newGate(cfg).(scholar.AbortGate); !ok {
		t.Error("non-interactive config should abort")
	}
}

var _ browser.Browser = (*browser.Static)(nil)
