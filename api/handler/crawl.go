package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/notecrawl/config"
	"github.com/use-agent/notecrawl/models"
	"github.com/use-agent/notecrawl/session"
	"github.com/use-agent/notecrawl/webhook"
)

// jobTTL is how long finished jobs stay queryable.
const jobTTL = time.Hour

// Runner executes one crawl for keyword with the given settings.
type Runner func(ctx context.Context, crawl config.CrawlConfig, keyword string) (*session.Result, error)

// Crawls owns the crawl job store and the single browser slot. Only one job
// runs at a time; the browser tab is not shareable.
type Crawls struct {
	ctx      context.Context
	run      Runner
	defaults config.CrawlConfig

	jobs sync.Map // id -> *models.CrawlJob
	slot chan struct{}
	wg   sync.WaitGroup
}

// NewCrawls creates the job store. Jobs run under ctx; canceling it stops
// the running crawl, which still exports what it collected.
func NewCrawls(ctx context.Context, run Runner, defaults config.CrawlConfig) *Crawls {
	return &Crawls{
		ctx:      ctx,
		run:      run,
		defaults: defaults,
		slot:     make(chan struct{}, 1),
	}
}

// Busy reports whether a crawl currently holds the browser.
func (h *Crawls) Busy() bool {
	return len(h.slot) > 0
}

// Wait blocks until the running job, if any, has finished.
func (h *Crawls) Wait() {
	h.wg.Wait()
}

// Post returns a handler for POST /api/v1/crawl.
func (h *Crawls) Post() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.CrawlResponse{
				Status: models.JobFailed,
				Error:  &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: err.Error()},
			})
			return
		}
		req.Keyword = strings.TrimSpace(req.Keyword)
		if req.Keyword == "" {
			c.JSON(http.StatusBadRequest, models.CrawlResponse{
				Status: models.JobFailed,
				Error:  &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: "keyword is required"},
			})
			return
		}

		select {
		case h.slot <- struct{}{}:
		default:
			c.JSON(http.StatusConflict, models.CrawlResponse{
				Status: models.JobFailed,
				Error:  &models.ErrorDetail{Code: models.ErrCodeBusy, Message: "a crawl is already running"},
			})
			return
		}

		h.expire()

		job := &models.CrawlJob{
			ID:            "crawl-" + randomID(),
			Request:       req,
			Status:        models.JobProcessing,
			CreatedAt:     time.Now().Unix(),
			WebhookURL:    req.WebhookURL,
			WebhookSecret: req.WebhookSecret,
		}
		h.jobs.Store(job.ID, job)

		h.wg.Add(1)
		go h.runJob(job, h.settings(req))

		c.JSON(http.StatusOK, models.CrawlResponse{
			ID:     job.ID,
			Status: models.JobProcessing,
		})
	}
}

// Get returns a handler for GET /api/v1/crawl/:id.
func (h *Crawls) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := h.jobs.Load(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "crawl job not found",
				},
			})
			return
		}
		c.JSON(http.StatusOK, val.(*models.CrawlJob).Snapshot())
	}
}

// settings overlays the request's overrides on the server defaults.
func (h *Crawls) settings(req models.CrawlRequest) config.CrawlConfig {
	crawl := h.defaults
	if req.ScrollTimes > 0 {
		crawl.ScrollTimes = req.ScrollTimes
	}
	if req.LikeFilter != nil {
		crawl.LikeFilter = *req.LikeFilter
	}
	if req.MinLikes != nil {
		crawl.MinLikes = *req.MinLikes
		if req.LikeFilter == nil {
			crawl.LikeFilter = true
		}
	}
	if req.Comments != nil {
		crawl.Comments = *req.Comments
	}
	return crawl
}

func (h *Crawls) runJob(job *models.CrawlJob, crawl config.CrawlConfig) {
	defer h.wg.Done()
	defer func() { <-h.slot }()

	slog.Info("crawl job started", "id", job.ID, "keyword", job.Request.Keyword, "scrollTimes", crawl.ScrollTimes)

	res, err := h.run(h.ctx, crawl, job.Request.Keyword)

	var (
		report                  *models.Report
		postsFile, commentsFile string
		scrapeErr               *models.ScrapeError
	)
	if res != nil {
		report, postsFile, commentsFile = res.Report, res.PostsFile, res.CommentsFile
	}
	if err != nil && !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}
	job.Finish(report, postsFile, commentsFile, scrapeErr)

	snap := job.Snapshot()
	slog.Info("crawl job finished",
		"id", job.ID,
		"status", snap.Status,
		"scraped", snap.Scraped,
		"skipped", snap.Skipped,
	)

	if job.WebhookURL != "" {
		eventType := webhook.EventCrawlCompleted
		if snap.Status == models.JobFailed {
			eventType = webhook.EventCrawlFailed
		}
		webhook.DeliverAsync(job.WebhookURL, job.WebhookSecret, &webhook.Event{
			Type:      eventType,
			JobID:     job.ID,
			Timestamp: time.Now().Unix(),
			Data:      snap,
		})
	}
}

// expire drops jobs older than jobTTL.
func (h *Crawls) expire() {
	cutoff := time.Now().Add(-jobTTL).Unix()
	h.jobs.Range(func(key, value any) bool {
		if value.(*models.CrawlJob).CreatedAt < cutoff {
			h.jobs.Delete(key)
		}
		return true
	})
}

func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
