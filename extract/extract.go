// Package extract reads note fields out of rendered HTML fragments taken
// from the search feed and the note detail overlay.
package extract

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrNodeNotFound is wrapped by every "required element missing" error.
var ErrNodeNotFound = errors.New("node not found")

// Card is what the feed shows for one note before it is opened.
type Card struct {
	Title  string
	Author string
	Likes  int
	Link   string
}

// Detail is what the opened note overlay shows.
type Detail struct {
	Text     string
	DateRaw  string
	Comments []string
}

// Extractor parses fragments with a fixed, pre-validated selector set.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	sel Selectors
	c   *compiled
}

// New validates sel and returns an Extractor.
func New(sel Selectors) (*Extractor, error) {
	c, err := sel.compile()
	if err != nil {
		return nil, err
	}
	return &Extractor{sel: sel, c: c}, nil
}

// Selectors returns the selector set the extractor was built with.
func (e *Extractor) Selectors() Selectors {
	return e.sel
}

// ParseCard reads title, author, like count and detail link from the outer
// HTML of one feed item. A missing link is reported separately through
// ErrMissingLink so the caller can tell the two failure modes apart.
func (e *Extractor) ParseCard(fragment string) (Card, error) {
	doc, err := parseFragment(fragment)
	if err != nil {
		return Card{}, err
	}

	title, err := requiredText(doc, e.c.title, "title")
	if err != nil {
		return Card{}, err
	}
	author, err := requiredText(doc, e.c.author, "author")
	if err != nil {
		return Card{}, err
	}
	likeText, err := requiredText(doc, e.c.likes, "likes")
	if err != nil {
		return Card{}, err
	}

	card := Card{
		Title:  title,
		Author: author,
		Likes:  ParseLikes(likeText),
	}

	link := doc.FindMatcher(e.c.itemLink).First()
	href, ok := link.Attr("href")
	if link.Length() == 0 || !ok || strings.TrimSpace(href) == "" {
		return card, ErrMissingLink
	}
	card.Link = strings.TrimSpace(href)
	return card, nil
}

// ErrMissingLink means the card parsed but has no clickable detail link.
var ErrMissingLink = fmt.Errorf("%w: item_link", ErrNodeNotFound)

// ParseDetail reads the body text and raw date description from the outer
// HTML of the detail container. Comments are only read when withComments
// is set.
func (e *Extractor) ParseDetail(fragment string, withComments bool) (Detail, error) {
	doc, err := parseFragment(fragment)
	if err != nil {
		return Detail{}, err
	}

	body := doc.FindMatcher(e.c.body).First()
	if body.Length() == 0 {
		return Detail{}, fmt.Errorf("%w: body", ErrNodeNotFound)
	}

	date, err := requiredText(doc, e.c.date, "date")
	if err != nil {
		return Detail{}, err
	}

	d := Detail{
		Text:    bodyText(body),
		DateRaw: date,
	}
	if withComments {
		d.Comments = e.parseComments(doc.Selection)
	}
	return d, nil
}

// ParseComments reads every top-level comment under the comments container
// in fragment. A fragment without a container yields no comments.
func (e *Extractor) ParseComments(fragment string) []string {
	doc, err := parseFragment(fragment)
	if err != nil {
		return nil
	}
	return e.parseComments(doc.Selection)
}

func (e *Extractor) parseComments(root *goquery.Selection) []string {
	container := root.FindMatcher(e.c.comments).First()
	if container.Length() == 0 {
		return nil
	}

	var comments []string
	container.FindMatcher(e.c.comment).Each(func(_ int, s *goquery.Selection) {
		// Replies are nested inside their parent; only the parent's own
		// text counts.
		text := strings.TrimSpace(s.FindMatcher(e.c.commentText).First().Text())
		if text != "" {
			comments = append(comments, text)
		}
	})
	return comments
}

// bodyText concatenates the trimmed text of the outermost spans under the
// body node. Hashtag links and nested spans are not counted twice.
func bodyText(body *goquery.Selection) string {
	var b strings.Builder
	body.Find("span").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsUntilSelection(body).Filter("span").Length() > 0 {
			return
		}
		b.WriteString(strings.TrimSpace(s.Text()))
	})
	if b.Len() == 0 {
		return strings.TrimSpace(body.Text())
	}
	return b.String()
}

var (
	reDigits = regexp.MustCompile(`\d+`)
	reTenK   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:万|[wW]\b)`)
)

// ParseLikes returns the first run of digits in text, or 0 when there is
// none. Counts abbreviated with 万 / w are scaled by ten thousand.
func ParseLikes(text string) int {
	if m := reTenK.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			return int(math.Round(f * 10000))
		}
	}
	m := reDigits.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

func parseFragment(fragment string) (*goquery.Document, error) {
	node, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return goquery.NewDocumentFromNode(node), nil
}

func requiredText(doc *goquery.Document, m goquery.Matcher, field string) (string, error) {
	s := doc.FindMatcher(m).First()
	if s.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrNodeNotFound, field)
	}
	return strings.TrimSpace(s.Text()), nil
}
