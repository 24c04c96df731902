package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/notecrawl/cache"
	"github.com/use-agent/notecrawl/config"
	"github.com/use-agent/notecrawl/crawler"
	"github.com/use-agent/notecrawl/dates"
	"github.com/use-agent/notecrawl/export"
	"github.com/use-agent/notecrawl/extract"
	"github.com/use-agent/notecrawl/models"
	"github.com/use-agent/notecrawl/scraper"
)

var _ crawler.Tab = (*scraper.Tab)(nil)

// feedPollInterval is how often Search checks for the rendered feed.
const feedPollInterval = 500 * time.Millisecond

// Result is the outcome of one Run.
type Result struct {
	Report       *models.Report
	PostsFile    string
	CommentsFile string
}

// Extractor builds the extractor for cfg, applying the selectors file when
// one is configured.
func Extractor(cfg config.CrawlConfig) (*extract.Extractor, error) {
	sel := extract.DefaultSelectors()
	if cfg.SelectorsFile != "" {
		var err error
		if sel, err = extract.LoadSelectors(cfg.SelectorsFile); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid selectors file", err)
		}
	}
	ext, err := extract.New(sel)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid selectors", err)
	}
	return ext, nil
}

// Search opens the results page for keyword and waits up to wait for the
// feed to render. A feed that never appears is logged, not fatal: the crawl
// then simply finds no cards.
func Search(ctx context.Context, tab crawler.Tab, sel extract.Selectors, keyword string, wait time.Duration) error {
	u, err := SearchURL(keyword)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "invalid keyword", err)
	}

	slog.Info("opening search results", "keyword", keyword)
	if err := tab.Navigate(ctx, u); err != nil {
		return err
	}

	deadline := time.Now().Add(wait)
	for {
		if _, found, _ := tab.OuterHTML(ctx, sel.Feed); found {
			return nil
		}
		if !time.Now().Before(deadline) {
			slog.Warn("search feed not rendered yet, continuing", "selector", sel.Feed, "waited", wait.String())
			return nil
		}
		select {
		case <-time.After(min(feedPollInterval, time.Until(deadline))):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run signs the browser in from saved cookies, searches keyword, crawls the
// feed with crawl and exports the results under cfg.Export.Dir. The crawl
// settings come from crawl rather than cfg.Crawl so callers can override
// them per run.
//
// A canceled ctx still exports what was collected; the returned error then
// wraps ctx's error.
func Run(ctx context.Context, b *scraper.Browser, cfg config.Config, crawl config.CrawlConfig, keyword string) (*Result, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "keyword is required", nil)
	}

	ext, err := Extractor(crawl)
	if err != nil {
		return nil, err
	}

	store := scraper.NewCookieStore(cfg.Session.CookiePath)
	if store.Exists() {
		if err := store.Load(b); err != nil {
			slog.Warn("failed to load saved cookies, continuing signed out", "path", store.Path(), "error", err)
		}
	} else {
		slog.Warn("no saved session, results may be limited; run the login command first")
	}

	tab, err := b.NewTab()
	if err != nil {
		return nil, err
	}
	defer tab.Close()

	return crawlAndExport(ctx, tab, ext, cfg, crawl, keyword)
}

func crawlAndExport(ctx context.Context, tab crawler.Tab, ext *extract.Extractor, cfg config.Config, crawl config.CrawlConfig, keyword string) (*Result, error) {
	if err := Search(ctx, tab, ext.Selectors(), keyword, crawl.SearchWait); err != nil {
		return nil, err
	}

	c := crawler.New(tab, crawler.OptionsFromConfig(crawl), ext, dates.New(),
		crawler.WithCache(cache.New(cfg.Cache.MaxEntries, 0)),
	)
	report, runErr := c.Run(ctx)
	if report == nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "crawl did not run", runErr)
	}
	report.Keyword = keyword
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return &Result{Report: report}, runErr
	}

	res := &Result{Report: report}
	postsFile, commentsFile := export.Paths(cfg.Export.Dir, keyword)
	if err := export.WritePosts(postsFile, report.Posts); err != nil {
		return res, err
	}
	res.PostsFile = postsFile
	slog.Info("posts exported", "file", postsFile, "rows", len(export.Rows(report.Posts)))

	if crawl.Comments {
		if err := export.WriteComments(commentsFile, report.Comments); err != nil {
			return res, err
		}
		res.CommentsFile = commentsFile
		slog.Info("comments exported", "file", commentsFile, "rows", len(report.Comments))
	}

	if runErr != nil {
		return res, models.NewScrapeError(models.ErrCodeTimeout, "crawl interrupted, partial results exported", runErr)
	}
	return res, nil
}
