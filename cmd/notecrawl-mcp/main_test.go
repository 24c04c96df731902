package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/notecrawl/dates"
	"github.com/use-agent/notecrawl/models"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNormalizeDate(t *testing.T) {
	n := &dates.Normalizer{Now: func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.Local) }}
	h := handleNormalizeDate(n)

	res, err := h(context.Background(), callRequest(map[string]any{"text": "3 天前"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "2024-05-07", resultText(t, res))

	res, err = h(context.Background(), callRequest(map[string]any{"text": "sometime"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), `best effort: "sometime"`)

	res, err = h(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestCrawlNotes(t *testing.T) {
	saved := pollInterval
	pollInterval = time.Millisecond
	defer func() { pollInterval = saved }()

	var polls atomic.Int32
	var posted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/crawl":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			_ = json.NewEncoder(w).Encode(models.CrawlResponse{ID: "crawl-1", Status: models.JobProcessing})
		case r.URL.Path == "/api/v1/crawl/crawl-1":
			st := models.CrawlStatusResponse{ID: "crawl-1", Keyword: "咖啡", Status: models.JobProcessing}
			if polls.Add(1) >= 2 {
				st.Status = models.JobCompleted
				st.Scraped = 1
				st.PostsFile = "xiaohongshu_咖啡.xlsx"
				st.Posts = []models.Post{{Title: "好喝", Date: "2024-05-01", Author: "a", Likes: 99, Text: "正文"}}
			}
			_ = json.NewEncoder(w).Encode(st)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := handleCrawlNotes(srv.URL, "k")
	res, err := h(context.Background(), callRequest(map[string]any{
		"keyword":      "咖啡",
		"scroll_times": 3,
		"comments":     true,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	text := resultText(t, res)
	assert.Contains(t, text, "Crawl crawl-1 (咖啡): completed, 1 scraped")
	assert.Contains(t, text, "Posts file: xiaohongshu_咖啡.xlsx")
	assert.Contains(t, text, "好喝 | 2024-05-01 | a | 99 likes")

	assert.Equal(t, "咖啡", posted["keyword"])
	assert.Equal(t, true, posted["include_posts"])
	assert.EqualValues(t, 3, posted["scroll_times"])
	assert.NotContains(t, posted, "min_likes")
}

func TestCrawlNotes_Busy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(models.CrawlResponse{
			Status: models.JobFailed,
			Error:  &models.ErrorDetail{Code: models.ErrCodeBusy, Message: "a crawl is already running"},
		})
	}))
	defer srv.Close()

	res, err := handleCrawlNotes(srv.URL, "")(context.Background(), callRequest(map[string]any{"keyword": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "BUSY")
}

func TestFormatStatus_TruncatesPosts(t *testing.T) {
	st := models.CrawlStatusResponse{ID: "c", Status: models.JobCompleted}
	for range maxListedPosts + 3 {
		st.Posts = append(st.Posts, models.Post{Title: "t"})
	}
	assert.Contains(t, formatStatus(st), "... and 3 more")
}
