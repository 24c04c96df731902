package models

// CrawlRequest is the payload for POST /api/v1/crawl.
type CrawlRequest struct {
	// Keyword is the search term. Required.
	Keyword string `json:"keyword" binding:"required"`

	// ScrollTimes is the number of scan-and-scroll iterations.
	// Default: server configuration. Max: 200.
	ScrollTimes int `json:"scroll_times,omitempty" binding:"omitempty,min=1,max=200"`

	// MinLikes overrides the minimum like threshold. Requires LikeFilter.
	MinLikes *int `json:"min_likes,omitempty" binding:"omitempty,min=0"`

	// LikeFilter toggles the like threshold. Default: server configuration.
	LikeFilter *bool `json:"like_filter,omitempty"`

	// Comments toggles top-level comment collection. Default: server configuration.
	Comments *bool `json:"comments,omitempty"`

	// IncludePosts embeds the scraped posts in the status response.
	IncludePosts bool `json:"include_posts,omitempty"`

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}
