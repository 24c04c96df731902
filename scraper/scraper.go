// Package scraper owns the Chromium instance a crawl runs in: launching it,
// opening tabs, and persisting its login cookies.
package scraper

import (
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/notecrawl/config"
	"github.com/use-agent/notecrawl/models"
)

// Browser manages one browser process. Cookies are shared by every tab it
// opens.
type Browser struct {
	browser   *rod.Browser
	cfg       config.BrowserConfig
	startTime time.Time
}

// NewBrowser launches Chromium configured by cfg and connects to it.
func NewBrowser(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	if cfg.Language != "" {
		l.Set(flags.Flag("lang"), cfg.Language)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &Browser{
		browser:   browser,
		cfg:       cfg,
		startTime: time.Now(),
	}, nil
}

// NewTab opens a tab with stealth evasions, the Accept-Language header and
// resource blocking installed before its first navigation.
func (b *Browser) NewTab() (*Tab, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to open tab",
			err,
		)
	}
	return newTab(page, b.cfg), nil
}

// Cookies returns every cookie in the browser.
func (b *Browser) Cookies() ([]*proto.NetworkCookie, error) {
	return b.browser.GetCookies()
}

// SetCookies installs cookies into the browser.
func (b *Browser) SetCookies(cookies []*proto.NetworkCookie) error {
	return b.browser.SetCookies(proto.CookiesToParams(cookies))
}

// Uptime is how long the browser has been running.
func (b *Browser) Uptime() time.Duration {
	return time.Since(b.startTime)
}

// Close kills the browser process.
// Call this on shutdown to prevent zombie Chrome processes.
func (b *Browser) Close() {
	slog.Info("closing browser")
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
}
