package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/notecrawl/config"
	"github.com/use-agent/notecrawl/models"
)

// ErrElementNotFound is returned when a click target is not in the DOM.
var ErrElementNotFound = errors.New("element not found")

// Load strategies.
const (
	LoadNormal = "normal"
	LoadEager  = "eager"
	LoadNone   = "none"
)

const (
	outerHTMLsJS = `(sel) => Array.from(document.querySelectorAll(sel), (el) => el.outerHTML)`
	scrollJS     = `() => window.scrollTo(0, document.body.scrollHeight)`
)

// Tab is one browser tab. Element lookups never wait for an element to
// appear. Not safe for concurrent use.
type Tab struct {
	page       *rod.Page
	router     *rod.HijackRouter
	loadMode   string
	navTimeout time.Duration
}

func newTab(page *rod.Page, cfg config.BrowserConfig) *Tab {
	// ── Stealth injection (before any navigation) ─────────────────
	if cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if cfg.Language != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{"Accept-Language": gson.New(cfg.Language)},
		}.Call(page)
	}

	return &Tab{
		page:       page.Sleeper(rod.NotFoundSleeper),
		router:     setupHijack(page, cfg.BlockedResourceTypes),
		loadMode:   cfg.LoadMode,
		navTimeout: cfg.NavigationTimeout,
	}
}

// Navigate loads url and waits according to the load strategy.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	if t.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.navTimeout)
		defer cancel()
	}

	p := t.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return categorizeError(err, "navigation failed")
	}
	if err := t.wait(p); err != nil {
		return categorizeError(err, "page load failed")
	}
	return nil
}

// WaitRender waits according to the load strategy without navigating.
func (t *Tab) WaitRender(ctx context.Context) error {
	return t.wait(t.page.Context(ctx))
}

func (t *Tab) wait(p *rod.Page) error {
	switch t.loadMode {
	case LoadNone:
		return nil
	case LoadEager:
		if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
			slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
		}
		return p.GetContext().Err()
	default:
		return p.WaitLoad()
	}
}

// OuterHTMLs snapshots the outer HTML of every element matching selector in
// a single evaluation.
func (t *Tab) OuterHTMLs(ctx context.Context, selector string) ([]string, error) {
	res, err := t.page.Context(ctx).Eval(outerHTMLsJS, selector)
	if err != nil {
		return nil, categorizeError(err, fmt.Sprintf("query %q failed", selector))
	}

	arr := res.Value.Arr()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.Str())
	}
	return out, nil
}

// OuterHTML returns the outer HTML of the first element matching selector.
func (t *Tab) OuterHTML(ctx context.Context, selector string) (string, bool, error) {
	has, el, err := t.page.Context(ctx).Has(selector)
	if err != nil {
		return "", false, categorizeError(err, fmt.Sprintf("query %q failed", selector))
	}
	if !has {
		return "", false, nil
	}
	html, err := el.HTML()
	if err != nil {
		return "", false, categorizeError(err, fmt.Sprintf("read %q failed", selector))
	}
	return html, true, nil
}

// ClickLink clicks the first target inside container whose raw href
// attribute equals href.
func (t *Tab) ClickLink(ctx context.Context, container, target, href string) error {
	selector := container + " " + target
	els, err := t.page.Context(ctx).Elements(selector)
	if err != nil {
		return categorizeError(err, fmt.Sprintf("query %q failed", selector))
	}

	for _, el := range els {
		v, err := el.Attribute("href")
		if err != nil {
			return categorizeError(err, fmt.Sprintf("read href of %q failed", selector))
		}
		if v != nil && strings.TrimSpace(*v) == href {
			return el.Click(proto.InputMouseButtonLeft, 1)
		}
	}
	return fmt.Errorf("%w: %s[href=%q] (scanned %d)", ErrElementNotFound, selector, href, len(els))
}

// Click clicks the first element matching selector.
func (t *Tab) Click(ctx context.Context, selector string) error {
	has, el, err := t.page.Context(ctx).Has(selector)
	if err != nil {
		return categorizeError(err, fmt.Sprintf("query %q failed", selector))
	}
	if !has {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// ScrollToBottom scrolls the window to the end of the document.
func (t *Tab) ScrollToBottom(ctx context.Context) error {
	if _, err := t.page.Context(ctx).Eval(scrollJS); err != nil {
		return categorizeError(err, "scroll failed")
	}
	return nil
}

// Close stops resource blocking and closes the tab.
func (t *Tab) Close() {
	if t.router != nil {
		_ = t.router.Stop()
	}
	if err := t.page.Close(); err != nil {
		slog.Debug("tab close failed", "error", err)
	}
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
