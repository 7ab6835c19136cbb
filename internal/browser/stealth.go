package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// stealthScript hides the most common automation tells before page scripts run.
const stealthScript = `
(() => {
  Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
  Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'], configurable: true });
  Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3], configurable: true });
  if (!window.chrome) { window.chrome = {}; }
  if (!window.chrome.runtime) { window.chrome.runtime = {}; }
  const query = Permissions.prototype.query;
  Permissions.prototype.query = function (p) {
    if (p && p.name === 'notifications') {
      return Promise.resolve({ state: Notification.permission });
    }
    return query.call(this, p);
  };
})();
`

// stealthFlags are the command-line switches added in stealth mode. A false
// value removes a switch that chromedp sets by default.
var stealthFlags = map[string]any{
	"disable-blink-features": "AutomationControlled",
	"enable-automation":      false,
	"disable-infobars":       true,
}

// allocatorOptions builds the Chrome flags for cfg.
func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", cfg.Lang),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.Stealth {
		for name, value := range stealthFlags {
			opts = append(opts, chromedp.Flag(name, value))
		}
	}
	if path := FindChromePath(cfg.ChromePath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	return opts
}

// injectStealthScript registers stealthScript for every new document.
func injectStealthScript() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	})
}

// captureScreenshot returns a viewport screenshot, or nil if the browser
// cannot produce one.
func captureScreenshot(ctx context.Context) []byte {
	var buf []byte
	captureCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := chromedp.Run(captureCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil
	}
	return buf
}
