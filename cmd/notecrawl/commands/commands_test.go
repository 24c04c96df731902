package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/notecrawl/config"
	"github.com/use-agent/notecrawl/models"
	"github.com/use-agent/notecrawl/session"
)

func TestPromptKeyword(t *testing.T) {
	var out bytes.Buffer
	kw, err := promptKeyword(strings.NewReader("  杭州 咖啡 \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "杭州 咖啡", kw)
	assert.Equal(t, "Search keyword: ", out.String())

	kw, err = promptKeyword(strings.NewReader("no newline"), &out)
	require.NoError(t, err)
	assert.Equal(t, "no newline", kw)

	_, err = promptKeyword(strings.NewReader("\n"), &out)
	assert.Error(t, err)
}

func TestCrawlSettings_OnlyChangedFlags(t *testing.T) {
	base := config.CrawlConfig{ScrollTimes: 50, LikeFilter: true, MinLikes: 50}

	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(crawlCmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--scroll-times=5", "--no-filter", "--comments"}))

	got := crawlSettings(cmd, base)
	assert.Equal(t, 5, got.ScrollTimes)
	assert.False(t, got.LikeFilter)
	assert.True(t, got.Comments)
	assert.Equal(t, 50, got.MinLikes, "unset flags keep the configured value")
}

func TestPrintSummary(t *testing.T) {
	start := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	res := &session.Result{
		Report: &models.Report{
			Keyword: "coffee",
			Posts: []models.Post{
				{Title: "a", Likes: 80},
				{Title: "a", Likes: 80},
			},
			Results: []models.ItemResult{
				{Outcome: models.OutcomeScraped},
				{Outcome: models.OutcomeScraped},
				{Outcome: models.OutcomeSkipped, Reason: models.SkipBelowThreshold},
			},
			Started:  start,
			Finished: start.Add(90 * time.Second),
		},
		PostsFile: "xiaohongshu_coffee.xlsx",
	}

	var out bytes.Buffer
	printSummary(&out, res)
	assert.Contains(t, out.String(), "coffee: 2 notes scraped, 1 skipped, 1 exported rows in 1m30s")
	assert.Contains(t, out.String(), "below_like_threshold")
	assert.Contains(t, out.String(), "posts:    xiaohongshu_coffee.xlsx")
	assert.NotContains(t, out.String(), "comments:")
}
