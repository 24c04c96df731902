package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/notecrawl/config"
	"github.com/use-agent/notecrawl/export"
	"github.com/use-agent/notecrawl/scraper"
	"github.com/use-agent/notecrawl/session"
)

var crawlFlags struct {
	scrollTimes int
	minLikes    int
	noFilter    bool
	comments    bool
	outDir      string
	logItems    bool
}

func init() {
	f := crawlCmd.Flags()
	f.IntVar(&crawlFlags.scrollTimes, "scroll-times", 0, "Number of scan-and-scroll iterations (default from NOTECRAWL_SCROLL_TIMES).")
	f.IntVar(&crawlFlags.minLikes, "min-likes", 0, "Skip notes with fewer likes (default from NOTECRAWL_MIN_LIKES).")
	f.BoolVar(&crawlFlags.noFilter, "no-filter", false, "Open every note regardless of likes.")
	f.BoolVar(&crawlFlags.comments, "comments", false, "Also collect top-level comments.")
	f.StringVar(&crawlFlags.outDir, "out", "", "Output directory (default from NOTECRAWL_OUTPUT_DIR).")
	f.BoolVar(&crawlFlags.logItems, "verbose", false, "Log every skipped note and failed page.")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [keyword]",
	Short: "Searches a keyword and exports matching notes to xlsx.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyword := ""
		if len(args) == 1 {
			keyword = args[0]
		} else {
			var err error
			if keyword, err = promptKeyword(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
		}

		run := cfg
		crawl := crawlSettings(cmd, cfg.Crawl)
		if crawlFlags.outDir != "" {
			run.Export.Dir = crawlFlags.outDir
		}

		b, err := scraper.NewBrowser(run.Browser)
		if err != nil {
			return err
		}
		defer b.Close()

		res, err := session.Run(cmd.Context(), b, run, crawl, keyword)
		if res != nil {
			printSummary(cmd.OutOrStdout(), res)
		}
		return err
	},
}

// crawlSettings applies the flags the user actually set.
func crawlSettings(cmd *cobra.Command, crawl config.CrawlConfig) config.CrawlConfig {
	f := cmd.Flags()
	if f.Changed("scroll-times") {
		crawl.ScrollTimes = crawlFlags.scrollTimes
	}
	if f.Changed("min-likes") {
		crawl.MinLikes = crawlFlags.minLikes
	}
	if f.Changed("no-filter") {
		crawl.LikeFilter = !crawlFlags.noFilter
	}
	if f.Changed("comments") {
		crawl.Comments = crawlFlags.comments
	}
	if f.Changed("verbose") {
		crawl.LogItems = crawlFlags.logItems
	}
	return crawl
}

func promptKeyword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Search keyword: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	keyword := strings.TrimSpace(line)
	if keyword == "" {
		return "", errors.New("a search keyword is required")
	}
	return keyword, nil
}

func printSummary(w io.Writer, res *session.Result) {
	r := res.Report
	fmt.Fprintf(w, "\n%s: %d notes scraped, %d skipped, %d exported rows in %s\n",
		r.Keyword, r.Scraped(), r.Skipped(), len(export.Rows(r.Posts)), r.Elapsed().Round(time.Second))
	for reason, n := range r.SkipCounts() {
		fmt.Fprintf(w, "  skipped %-24s %d\n", reason, n)
	}
	if r.StalledScrolls > 0 {
		fmt.Fprintf(w, "  %d scrolls loaded no new notes\n", r.StalledScrolls)
	}
	if res.PostsFile != "" {
		fmt.Fprintf(w, "posts:    %s\n", res.PostsFile)
	}
	if res.CommentsFile != "" {
		fmt.Fprintf(w, "comments: %s\n", res.CommentsFile)
	}
}
