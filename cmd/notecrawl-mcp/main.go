package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/notecrawl/dates"
	"github.com/use-agent/notecrawl/models"
)

// pollInterval is how often crawl_notes checks the job status.
var pollInterval = 2 * time.Second

// maxListedPosts caps how many posts crawl_notes prints.
const maxListedPosts = 20

func main() {
	apiURL := os.Getenv("NOTECRAWL_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("NOTECRAWL_API_KEY")

	s := server.NewMCPServer(
		"notecrawl",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	crawlTool := mcp.NewTool("crawl_notes",
		mcp.WithDescription("Search xiaohongshu for a keyword, scrape the matching notes (title, date, author, likes, text) and export them to xlsx. Runs in the notecrawl server's browser; only one crawl runs at a time."),
		mcp.WithString("keyword",
			mcp.Required(),
			mcp.Description("Search keyword"),
		),
		mcp.WithNumber("scroll_times",
			mcp.Description("Number of scan-and-scroll iterations (1-200, default from server config)"),
		),
		mcp.WithNumber("min_likes",
			mcp.Description("Skip notes with fewer likes than this"),
		),
		mcp.WithBoolean("like_filter",
			mcp.Description("Whether to apply the minimum-likes filter"),
		),
		mcp.WithBoolean("comments",
			mcp.Description("Also collect top-level comments"),
		),
	)
	s.AddTool(crawlTool, handleCrawlNotes(apiURL, apiKey))

	normalizeTool := mcp.NewTool("normalize_date",
		mcp.WithDescription("Convert a xiaohongshu date description such as '3 天前', '昨天 14:02' or '10-12 广东' to YYYY-MM-DD, relative to today."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The date description shown under a note"),
		),
	)
	s.AddTool(normalizeTool, handleNormalizeDate(dates.New()))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleNormalizeDate(n *dates.Normalizer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}
		date, err := n.Normalize(text)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%v (best effort: %q)", err, date)), nil
		}
		return mcp.NewToolResultText(date), nil
	}
}

func handleCrawlNotes(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keyword, err := request.RequireString("keyword")
		if err != nil {
			return mcp.NewToolResultError("keyword is required"), nil
		}

		payload := map[string]any{
			"keyword":       keyword,
			"include_posts": true,
		}
		args := request.GetArguments()
		for _, key := range []string{"scroll_times", "min_likes", "like_filter", "comments"} {
			if v, ok := args[key]; ok {
				payload[key] = v
			}
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/crawl", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("crawl request failed: %v", err)), nil
		}

		var created models.CrawlResponse
		if err := json.Unmarshal(respBody, &created); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse crawl response: %v", err)), nil
		}
		if created.ID == "" {
			msg := "crawl job creation failed"
			if created.Error != nil {
				msg = fmt.Sprintf("%s: %s", created.Error.Code, created.Error.Message)
			}
			return mcp.NewToolResultError(msg), nil
		}

		resultBody, err := pollJobCompletion(ctx, client, apiURL, apiKey, "/api/v1/crawl/"+created.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling crawl job failed: %v", err)), nil
		}

		var status models.CrawlStatusResponse
		if err := json.Unmarshal(resultBody, &status); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse crawl status: %v", err)), nil
		}
		return mcp.NewToolResultText(formatStatus(status)), nil
	}
}

func formatStatus(st models.CrawlStatusResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Crawl %s (%s): %s, %d scraped, %d skipped in %s\n",
		st.ID, st.Keyword, st.Status, st.Scraped, st.Skipped,
		(time.Duration(st.ElapsedMs) * time.Millisecond).Round(time.Second))
	if st.Error != nil {
		fmt.Fprintf(&sb, "Error: %s: %s\n", st.Error.Code, st.Error.Message)
	}
	for reason, n := range st.SkipCounts {
		fmt.Fprintf(&sb, "  skipped %s: %d\n", reason, n)
	}
	if st.PostsFile != "" {
		fmt.Fprintf(&sb, "Posts file: %s\n", st.PostsFile)
	}
	if st.CommentsFile != "" {
		fmt.Fprintf(&sb, "Comments file: %s\n", st.CommentsFile)
	}

	if len(st.Posts) > 0 {
		sb.WriteString("\n")
	}
	for i, p := range st.Posts {
		if i == maxListedPosts {
			fmt.Fprintf(&sb, "... and %d more\n", len(st.Posts)-maxListedPosts)
			break
		}
		fmt.Fprintf(&sb, "--- %s | %s | %s | %d likes ---\n%s\n\n", p.Title, p.Date, p.Author, p.Likes, p.Text)
	}
	return sb.String()
}

func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}
			if apiKey != "" {
				req.Header.Set("X-API-Key", apiKey)
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read poll response: %w", err)
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				continue
			}

			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if status.Status != models.JobProcessing {
				return body, nil
			}
		}
	}
}
