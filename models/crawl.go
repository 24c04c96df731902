package models

import "sync"

// Job statuses.
const (
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// CrawlResponse is the immediate response for POST /api/v1/crawl.
type CrawlResponse struct {
	ID     string       `json:"id,omitempty"`
	Status string       `json:"status"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// CrawlStatusResponse is the response for GET /api/v1/crawl/:id.
type CrawlStatusResponse struct {
	ID           string             `json:"id"`
	Keyword      string             `json:"keyword"`
	Status       string             `json:"status"`
	Scraped      int                `json:"scraped"`
	Skipped      int                `json:"skipped"`
	SkipCounts   map[SkipReason]int `json:"skip_counts,omitempty"`
	Stalled      int                `json:"stalled_scrolls,omitempty"`
	PostsFile    string             `json:"posts_file,omitempty"`
	CommentsFile string             `json:"comments_file,omitempty"`
	ElapsedMs    int64              `json:"elapsed_ms"`
	Posts        []Post             `json:"posts,omitempty"`
	Error        *ErrorDetail       `json:"error,omitempty"`
}

// CrawlJob tracks a crawl run started through the API.
type CrawlJob struct {
	mu sync.RWMutex

	ID            string
	Request       CrawlRequest
	Status        string
	CreatedAt     int64 // unix timestamp
	Report        *Report
	PostsFile     string
	CommentsFile  string
	Err           *ScrapeError
	WebhookURL    string
	WebhookSecret string
}

// Finish records the terminal state of the job.
func (j *CrawlJob) Finish(report *Report, postsFile, commentsFile string, err *ScrapeError) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Report = report
	j.PostsFile = postsFile
	j.CommentsFile = commentsFile
	j.Err = err
	if err != nil {
		j.Status = JobFailed
	} else {
		j.Status = JobCompleted
	}
}

// Snapshot renders the job as an API response.
func (j *CrawlJob) Snapshot() CrawlStatusResponse {
	j.mu.RLock()
	defer j.mu.RUnlock()

	resp := CrawlStatusResponse{
		ID:           j.ID,
		Keyword:      j.Request.Keyword,
		Status:       j.Status,
		PostsFile:    j.PostsFile,
		CommentsFile: j.CommentsFile,
	}
	if j.Report != nil {
		resp.Scraped = j.Report.Scraped()
		resp.Skipped = j.Report.Skipped()
		resp.SkipCounts = j.Report.SkipCounts()
		resp.Stalled = j.Report.StalledScrolls
		resp.ElapsedMs = j.Report.Elapsed().Milliseconds()
		if j.Request.IncludePosts {
			resp.Posts = j.Report.Posts
		}
	}
	if j.Err != nil {
		resp.Error = j.Err.ToDetail()
	}
	return resp
}
