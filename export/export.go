// Package export writes crawl results to xlsx workbooks.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/use-agent/notecrawl/models"
)

// SheetName is the single worksheet every workbook carries.
const SheetName = "Sheet1"

var (
	postHeader    = []any{"title", "date", "author", "like", "text"}
	commentHeader = []any{"comments"}
)

// Rows returns the exported rows of posts with exact duplicates removed
// (first occurrence kept), stably sorted by likes, highest first.
func Rows(posts []models.Post) []models.Row {
	seen := make(map[models.Row]struct{}, len(posts))
	rows := make([]models.Row, 0, len(posts))
	for _, p := range posts {
		r := p.Row()
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		rows = append(rows, r)
	}
	slices.SortStableFunc(rows, func(a, b models.Row) int {
		return b.Likes - a.Likes
	})
	return rows
}

// Paths returns the posts and comments workbook paths for keyword in dir.
func Paths(dir, keyword string) (posts, comments string) {
	name := sanitize(keyword)
	return filepath.Join(dir, "xiaohongshu_"+name+".xlsx"),
		filepath.Join(dir, "xiaohongshu_"+name+"_comments.xlsx")
}

// sanitize keeps the keyword readable while making it a single path
// element.
func sanitize(keyword string) string {
	r := strings.NewReplacer("/", "_", `\`, "_", "\x00", "")
	name := strings.TrimSpace(r.Replace(keyword))
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

// WritePosts writes the deduplicated, sorted rows of posts to path,
// replacing any existing file. Zero posts still produce a header-only
// workbook.
func WritePosts(path string, posts []models.Post) error {
	rows := Rows(posts)
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, []any{r.Title, r.Date, r.Author, r.Likes, r.Text})
	}
	return write(path, postHeader, data)
}

// WriteComments writes one comment per row to path, in crawl order.
func WriteComments(path string, comments []models.Comment) error {
	data := make([][]any, 0, len(comments))
	for _, c := range comments {
		data = append(data, []any{c.Text})
	}
	return write(path, commentHeader, data)
}

func write(path string, header []any, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return exportError(path, err)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return exportError(path, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return exportError(path, err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return exportError(path, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return exportError(path, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return exportError(path, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return exportError(path, err)
	}
	return nil
}

func exportError(path string, err error) error {
	return models.NewScrapeError(models.ErrCodeExport, fmt.Sprintf("failed to write %s", path), err)
}
