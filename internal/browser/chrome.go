package browser

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/jmylchreest/scholarscrape/internal/logger"
)

// chromeBinaryNames are looked up on PATH.
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
}

// chromeInstallPaths are well-known install locations per OS.
var chromeInstallPaths = map[string][]string{
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	},
	"linux": {
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	},
	"windows": {
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	},
}

// FindChromePath searches for a Chrome/Chromium binary on the system.
// An explicit path wins if it exists. Returns "" when nothing is found, in
// which case chromedp falls back to its own lookup.
func FindChromePath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		logger.Warn("configured Chrome binary not found", "path", explicit)
	}
	for _, name := range chromeBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "name", name, "path", path)
			return path
		}
	}
	for _, path := range chromeInstallPaths[runtime.GOOS] {
		if _, err := os.Stat(path); err == nil {
			logger.Debug("found Chrome binary", "path", path)
			return path
		}
	}
	logger.Warn("no Chrome binary found - relying on chromedp defaults")
	return ""
}
