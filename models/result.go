package models

import "time"

// Outcome is the terminal state of one feed item.
type Outcome string

const (
	OutcomeScraped Outcome = "scraped"
	OutcomeSkipped Outcome = "skipped"
)

// SkipReason explains why an item produced no post.
type SkipReason string

const (
	SkipNone                SkipReason = ""
	SkipBelowThreshold      SkipReason = "below_like_threshold"
	SkipCardExtractFailed   SkipReason = "card_extract_failed"
	SkipMissingDetailLink   SkipReason = "missing_detail_link"
	SkipDetailOpenFailed    SkipReason = "detail_open_failed"
	SkipDetailExtractFailed SkipReason = "detail_extract_failed"
	SkipCanceled            SkipReason = "canceled"
)

// ItemResult records what happened to a single feed card.
type ItemResult struct {
	Page    int        `json:"page"`
	Index   int        `json:"index"`
	Title   string     `json:"title,omitempty"`
	Likes   int        `json:"like"`
	Outcome Outcome    `json:"outcome"`
	Reason  SkipReason `json:"reason,omitempty"`
	Err     error      `json:"-"`
}

// Scraped reports whether the item produced a post.
func (r ItemResult) Scraped() bool { return r.Outcome == OutcomeScraped }

// PageError records a page scan that failed as a whole.
type PageError struct {
	Page int   `json:"page"`
	Err  error `json:"-"`
}

// Report aggregates the outcome of one crawl run.
type Report struct {
	Keyword    string       `json:"keyword"`
	Iterations int          `json:"iterations"`
	Posts      []Post       `json:"posts"`
	Comments   []Comment    `json:"comments,omitempty"`
	Results    []ItemResult `json:"results"`
	PageErrors []PageError  `json:"page_errors,omitempty"`

	// StalledScrolls counts scans that rendered no card absent from every
	// earlier scan, i.e. the scroll before them loaded nothing new.
	StalledScrolls int `json:"stalled_scrolls,omitempty"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Scraped counts the items that produced a post.
func (r *Report) Scraped() int {
	n := 0
	for _, res := range r.Results {
		if res.Scraped() {
			n++
		}
	}
	return n
}

// Skipped counts the items that were skipped for any reason.
func (r *Report) Skipped() int {
	return len(r.Results) - r.Scraped()
}

// SkipCounts groups skipped items by reason.
func (r *Report) SkipCounts() map[SkipReason]int {
	counts := make(map[SkipReason]int)
	for _, res := range r.Results {
		if res.Outcome == OutcomeSkipped {
			counts[res.Reason]++
		}
	}
	return counts
}

// Elapsed is the wall time of the run.
func (r *Report) Elapsed() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
