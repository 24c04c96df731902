package extract

import (
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// Selectors locates the pieces of the search feed and note detail view.
// Field selectors are relative to the fragment they are applied to: card
// fields to one feed item, detail fields to the detail container.
type Selectors struct {
	// Feed-level (evaluated by the browser tab).
	Feed     string `yaml:"feed"`
	Item     string `yaml:"item"`
	Detail   string `yaml:"detail"`
	Close    string `yaml:"close"`
	LoggedIn string `yaml:"logged_in"`

	// Card fields.
	ItemLink string `yaml:"item_link"`
	Title    string `yaml:"title"`
	Author   string `yaml:"author"`
	Likes    string `yaml:"likes"`

	// Detail fields.
	Body        string `yaml:"body"`
	Date        string `yaml:"date"`
	Comments    string `yaml:"comments"`
	Comment     string `yaml:"comment"`
	CommentText string `yaml:"comment_text"`
}

// DefaultSelectors matches the current xiaohongshu.com web markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Feed:     ".feeds-page",
		Item:     ".note-item",
		Detail:   ".note-container",
		Close:    ".close-circle",
		LoggedIn: ".side-bar .user",

		ItemLink: "a.cover",
		Title:    ".footer .title",
		Author:   ".author-wrapper .author",
		Likes:    ".like-wrapper",

		Body:        "#detail-desc .note-text",
		Date:        ".bottom-container .date",
		Comments:    ".comments-container",
		Comment:     ".parent-comment",
		CommentText: ".content .note-text",
	}
}

// ItemSelector is the selector for every rendered card in the feed.
func (s Selectors) ItemSelector() string {
	return s.Feed + " " + s.Item
}

// LoadSelectors reads a YAML file and overlays its non-empty fields on
// DefaultSelectors.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors file: %w", err)
	}

	var override Selectors
	if err := yaml.Unmarshal(data, &override); err != nil {
		return sel, fmt.Errorf("parse selectors file: %w", err)
	}
	sel.merge(override)
	return sel, nil
}

func (s *Selectors) merge(o Selectors) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&s.Feed, o.Feed)
	set(&s.Item, o.Item)
	set(&s.Detail, o.Detail)
	set(&s.Close, o.Close)
	set(&s.LoggedIn, o.LoggedIn)
	set(&s.ItemLink, o.ItemLink)
	set(&s.Title, o.Title)
	set(&s.Author, o.Author)
	set(&s.Likes, o.Likes)
	set(&s.Body, o.Body)
	set(&s.Date, o.Date)
	set(&s.Comments, o.Comments)
	set(&s.Comment, o.Comment)
	set(&s.CommentText, o.CommentText)
}

// compiled holds the cascadia form of every fragment-level selector.
type compiled struct {
	itemLink, title, author, likes cascadia.Selector
	body, date                     cascadia.Selector
	comments, comment, commentText cascadia.Selector
}

// compile validates all selectors, including the feed-level ones the
// browser evaluates, so a bad override fails at startup.
func (s Selectors) compile() (*compiled, error) {
	for name, v := range map[string]string{
		"feed":      s.Feed,
		"item":      s.Item,
		"detail":    s.Detail,
		"close":     s.Close,
		"logged_in": s.LoggedIn,
	} {
		if _, err := cascadia.Compile(v); err != nil {
			return nil, fmt.Errorf("selector %s %q: %w", name, v, err)
		}
	}

	var c compiled
	targets := []struct {
		name string
		src  string
		dst  *cascadia.Selector
	}{
		{"item_link", s.ItemLink, &c.itemLink},
		{"title", s.Title, &c.title},
		{"author", s.Author, &c.author},
		{"likes", s.Likes, &c.likes},
		{"body", s.Body, &c.body},
		{"date", s.Date, &c.date},
		{"comments", s.Comments, &c.comments},
		{"comment", s.Comment, &c.comment},
		{"comment_text", s.CommentText, &c.commentText},
	}
	for _, t := range targets {
		sel, err := cascadia.Compile(t.src)
		if err != nil {
			return nil, fmt.Errorf("selector %s %q: %w", t.name, t.src, err)
		}
		*t.dst = sel
	}
	return &c, nil
}
