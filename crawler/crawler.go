// Package crawler drives one browser tab through the search feed:
// scan the rendered cards, open and read each eligible note, close it,
// scroll, and repeat for a fixed number of iterations.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/notecrawl/cache"
	"github.com/use-agent/notecrawl/config"
	"github.com/use-agent/notecrawl/dates"
	"github.com/use-agent/notecrawl/extract"
	"github.com/use-agent/notecrawl/models"
	"github.com/use-agent/notecrawl/simhash"
)

// ErrNoTab is returned by Run when the crawler was built without a tab.
var ErrNoTab = errors.New("crawler: no browser tab")

// closeTimeout bounds the best-effort close of a note overlay, which still
// runs after the run context is canceled.
const closeTimeout = 10 * time.Second


// Options is the immutable per-run crawl configuration.
type Options struct {
	ScrollTimes int
	LikeFilter  bool
	MinLikes    int
	Comments    bool
	LogItems    bool

	RenderWait     time.Duration
	ScrollDelayMin time.Duration
	ScrollDelayMax time.Duration

	DetailRate  float64
	DetailBurst int
}

// OptionsFromConfig maps the crawl section of the application config.
func OptionsFromConfig(c config.CrawlConfig) Options {
	return Options{
		ScrollTimes:    c.ScrollTimes,
		LikeFilter:     c.LikeFilter,
		MinLikes:       c.MinLikes,
		Comments:       c.Comments,
		LogItems:       c.LogItems,
		RenderWait:     c.RenderWait,
		ScrollDelayMin: c.ScrollDelayMin,
		ScrollDelayMax: c.ScrollDelayMax,
		DetailRate:     c.DetailRate,
		DetailBurst:    c.DetailBurst,
	}
}

// Crawler runs the scan/open/close/scroll loop. It is single-use and not
// safe for concurrent use: the tab is its exclusive resource.
type Crawler struct {
	tab   Tab
	opts  Options
	ext   *extract.Extractor
	norm  *dates.Normalizer
	cache *cache.Cache

	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
	jitter  func(lo, hi time.Duration) time.Duration

	report *models.Report
	seen   map[string]struct{} // simhash.CardKey of every card scanned so far
}

// Option customises a Crawler.
type Option func(*Crawler)

// WithCache reuses note details across pages of the same run.
func WithCache(c *cache.Cache) Option {
	return func(cr *Crawler) { cr.cache = c }
}

// WithSleeper replaces the context-aware sleep used for render waits and
// scroll delays.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(cr *Crawler) { cr.sleep = fn }
}

// WithJitter replaces the random scroll-delay source.
func WithJitter(fn func(lo, hi time.Duration) time.Duration) Option {
	return func(cr *Crawler) { cr.jitter = fn }
}

// New builds a Crawler over tab.
func New(tab Tab, opts Options, ext *extract.Extractor, norm *dates.Normalizer, options ...Option) *Crawler {
	limit := rate.Inf
	if opts.DetailRate > 0 {
		limit = rate.Limit(opts.DetailRate)
	}
	burst := opts.DetailBurst
	if burst < 1 {
		burst = 1
	}
	if norm == nil {
		norm = dates.New()
	}

	c := &Crawler{
		tab:     tab,
		opts:    opts,
		ext:     ext,
		norm:    norm,
		limiter: rate.NewLimiter(limit, burst),
		sleep:   sleep,
		jitter:  jitter,
		report:  &models.Report{},
		seen:    make(map[string]struct{}),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Run performs opts.ScrollTimes iterations of scan-then-scroll and returns
// the aggregated report. The loop never stops on item or page failures;
// only ctx cancellation ends it early, in which case the partial report is
// returned together with ctx's error.
func (c *Crawler) Run(ctx context.Context) (*models.Report, error) {
	if c.tab == nil {
		return nil, ErrNoTab
	}

	c.report.Started = time.Now()
	c.report.Posts = []models.Post{}
	defer func() { c.report.Finished = time.Now() }()

	for page := 1; page <= c.opts.ScrollTimes; page++ {
		if ctx.Err() != nil {
			break
		}
		c.report.Iterations = page

		c.scanPage(ctx, page)
		if ctx.Err() != nil {
			break
		}
		c.scroll(ctx, page)
	}

	slog.Info("crawl finished",
		"iterations", c.report.Iterations,
		"scraped", c.report.Scraped(),
		"skipped", c.report.Skipped(),
		"elapsed", time.Since(c.report.Started).Round(time.Millisecond).String(),
	)
	return c.report, ctx.Err()
}

// scanPage visits every card currently rendered in the feed.
func (c *Crawler) scanPage(ctx context.Context, page int) {
	start := time.Now()
	sel := c.ext.Selectors()

	cards, err := c.tab.OuterHTMLs(ctx, sel.ItemSelector())
	if err != nil {
		c.report.PageErrors = append(c.report.PageErrors, models.PageError{Page: page, Err: err})
		if c.opts.LogItems {
			slog.Warn("page scan failed", "page", page, "error", err)
		}
		return
	}
	c.checkStall(page, cards)

	scraped := 0
	for idx, fragment := range cards {
		if ctx.Err() != nil {
			c.record(models.ItemResult{
				Page: page, Index: idx,
				Outcome: models.OutcomeSkipped, Reason: models.SkipCanceled, Err: ctx.Err(),
			})
			break
		}
		res := c.visit(ctx, page, idx, fragment)
		c.record(res)
		if res.Scraped() {
			scraped++
		}
	}

	slog.Info("page scanned",
		"page", page,
		"cards", len(cards),
		"scraped", scraped,
		"total", len(c.report.Posts),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
}

// checkStall records the cards of this scan and reports a stall when none
// of them was seen by an earlier scan, i.e. the last scroll rendered nothing
// new. The loop keeps going since lazy loading often catches up later.
func (c *Crawler) checkStall(page int, cards []string) {
	first := len(c.seen) == 0
	advanced := false
	for _, fragment := range cards {
		key := simhash.CardKey(fragment)
		if _, ok := c.seen[key]; !ok {
			c.seen[key] = struct{}{}
			advanced = true
		}
	}
	if first || advanced || len(cards) == 0 {
		return
	}
	c.report.StalledScrolls++
	slog.Warn("feed did not advance after scroll", "page", page, "cards", len(cards))
}

func (c *Crawler) record(res models.ItemResult) {
	c.report.Results = append(c.report.Results, res)
	if res.Scraped() || !c.opts.LogItems {
		return
	}
	if res.Reason == models.SkipBelowThreshold {
		slog.Debug("item below like threshold", "page", res.Page, "index", res.Index, "likes", res.Likes)
		return
	}
	slog.Warn("item skipped",
		"page", res.Page,
		"index", res.Index,
		"title", res.Title,
		"reason", string(res.Reason),
		"error", res.Err,
	)
}

// visit handles one card: parse, filter, open, read, close.
func (c *Crawler) visit(ctx context.Context, page, idx int, fragment string) models.ItemResult {
	res := models.ItemResult{Page: page, Index: idx}
	skip := func(reason models.SkipReason, err error) models.ItemResult {
		res.Outcome = models.OutcomeSkipped
		res.Reason = reason
		res.Err = err
		return res
	}

	card, err := c.ext.ParseCard(fragment)
	missingLink := errors.Is(err, extract.ErrMissingLink)
	if err != nil && !missingLink {
		return skip(models.SkipCardExtractFailed, err)
	}
	res.Title = card.Title
	res.Likes = card.Likes

	if c.opts.LikeFilter && card.Likes < c.opts.MinLikes {
		return skip(models.SkipBelowThreshold, nil)
	}
	if missingLink {
		return skip(models.SkipMissingDetailLink, err)
	}

	detail, reason, err := c.detail(ctx, idx, card.Link)
	if err != nil {
		return skip(reason, err)
	}

	c.report.Posts = append(c.report.Posts, models.Post{
		Title:  card.Title,
		Date:   detail.Date,
		Author: card.Author,
		Likes:  card.Likes,
		Text:   detail.Text,
		Link:   card.Link,
	})
	if c.opts.Comments {
		c.report.Comments = append(c.report.Comments, detail.Comments...)
	}

	res.Outcome = models.OutcomeScraped
	return res
}

// detail returns the note's detail, from cache when this run has already
// opened the same note.
func (c *Crawler) detail(ctx context.Context, idx int, link string) (cache.Detail, models.SkipReason, error) {
	key := cache.Key(link)
	if d, ok := c.cache.Get(key); ok {
		return d, models.SkipNone, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return cache.Detail{}, models.SkipCanceled, err
	}

	d, reason, err := c.openDetail(ctx, idx, link)
	if err != nil {
		return d, reason, err
	}
	c.cache.Set(key, d)
	return d, models.SkipNone, nil
}

// openDetail clicks the card linking to link, reads the overlay and closes
// it. The card is found by its link rather than its position in the scan, as
// the feed may re-render while earlier notes are open. The close is attempted
// whatever happened before it.
func (c *Crawler) openDetail(ctx context.Context, idx int, link string) (d cache.Detail, reason models.SkipReason, err error) {
	sel := c.ext.Selectors()

	defer func() {
		if closeErr := c.closeDetail(ctx); closeErr != nil && err == nil {
			slog.Warn("failed to close note overlay", "index", idx, "error", closeErr)
		}
	}()

	if err := c.tab.ClickLink(ctx, sel.ItemSelector(), sel.ItemLink, link); err != nil {
		return d, models.SkipDetailOpenFailed, fmt.Errorf("open note: %w", err)
	}
	if err := c.settle(ctx); err != nil {
		return d, models.SkipDetailOpenFailed, err
	}

	fragment, found, err := c.tab.OuterHTML(ctx, sel.Detail)
	if err != nil {
		return d, models.SkipDetailOpenFailed, fmt.Errorf("read note overlay: %w", err)
	}
	if !found {
		return d, models.SkipDetailOpenFailed, fmt.Errorf("%w: detail", extract.ErrNodeNotFound)
	}

	det, err := c.ext.ParseDetail(fragment, c.opts.Comments)
	if err != nil {
		return d, models.SkipDetailExtractFailed, err
	}

	date, dateErr := c.norm.Normalize(det.DateRaw)
	if dateErr != nil && c.opts.LogItems {
		slog.Warn("keeping best-effort date", "raw", det.DateRaw, "error", dateErr)
	}

	d = cache.Detail{Text: det.Text, Date: date}
	for _, text := range det.Comments {
		d.Comments = append(d.Comments, models.Comment{Text: text})
	}
	return d, models.SkipNone, nil
}

// closeDetail dismisses the note overlay. It detaches from ctx's
// cancellation so a canceled run still leaves the feed usable.
func (c *Crawler) closeDetail(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	if err := c.tab.Click(ctx, c.ext.Selectors().Close); err != nil {
		return err
	}
	return c.settle(ctx)
}

// settle waits out the fixed render delay, then the load strategy.
func (c *Crawler) settle(ctx context.Context) error {
	if err := c.sleep(ctx, c.opts.RenderWait); err != nil {
		return err
	}
	return c.tab.WaitRender(ctx)
}

// scroll advances the feed after a short random pause.
func (c *Crawler) scroll(ctx context.Context, page int) {
	delay := c.jitter(c.opts.ScrollDelayMin, c.opts.ScrollDelayMax)
	if err := c.sleep(ctx, delay); err != nil {
		return
	}
	slog.Debug("scrolling down", "page", page, "delay", delay.String())
	if err := c.tab.ScrollToBottom(ctx); err != nil {
		c.report.PageErrors = append(c.report.PageErrors, models.PageError{Page: page, Err: fmt.Errorf("scroll: %w", err)})
		if c.opts.LogItems {
			slog.Warn("scroll failed", "page", page, "error", err)
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jitter returns a uniformly random duration in [lo, hi).
func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}
