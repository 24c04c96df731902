package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardHTML(title, author, likes, href string) string {
	link := ""
	if href != "" {
		link = fmt.Sprintf(`<a class="cover mask ld" href="%s"><img src="c.jpg"></a>`, href)
	}
	return fmt.Sprintf(`<section class="note-item">
  <div>
    <a href="/explore/hidden" style="display: none;"></a>
    %s
    <div class="footer">
      <a class="title"><span>%s</span></a>
      <div class="card-bottom-wrapper">
        <a class="author-wrapper"><img class="author-avatar"><span class="author">%s</span></a>
        <span class="like-wrapper like-active"><svg></svg><span class="count">%s</span></span>
      </div>
    </div>
  </div>
</section>`, link, title, author, likes)
}

const detailHTML = `<div class="note-container">
  <div class="interaction-container">
    <div class="note-scroller">
      <div class="note-content">
        <div id="detail-title" class="title">周末去哪儿</div>
        <div id="detail-desc" class="desc">
          <span class="note-text"><span> 第一段 </span><a class="tag">#旅行</a><span>第二段<span>嵌套</span></span></span>
        </div>
        <div class="bottom-container"><span class="date">3 天前 浙江</span></div>
      </div>
      <div class="comments-el">
        <div class="comments-container">
          <div class="parent-comment">
            <div class="comment-item"><div class="content"><span class="note-text">好看！</span></div></div>
            <div class="reply-container">
              <div class="comment-item"><div class="content"><span class="note-text">同意</span></div></div>
            </div>
          </div>
          <div class="parent-comment">
            <div class="comment-item"><div class="content"><span class="note-text"> 求地址 </span></div></div>
          </div>
          <div class="parent-comment">
            <div class="comment-item"><div class="content"><span class="note-text">  </span></div></div>
          </div>
        </div>
      </div>
    </div>
  </div>
</div>`

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := New(DefaultSelectors())
	require.NoError(t, err)
	return e
}

func TestParseCard(t *testing.T) {
	e := newExtractor(t)

	card, err := e.ParseCard(cardHTML(" 杭州一日游 ", "小王", "1.2万", "/search_result/abc?xsec_token=x"))
	require.NoError(t, err)
	assert.Equal(t, Card{
		Title:  "杭州一日游",
		Author: "小王",
		Likes:  12000,
		Link:   "/search_result/abc?xsec_token=x",
	}, card)
}

func TestParseCard_NoDigitsMeansZeroLikes(t *testing.T) {
	e := newExtractor(t)

	card, err := e.ParseCard(cardHTML("t", "a", "赞", "/n/1"))
	require.NoError(t, err)
	assert.Equal(t, 0, card.Likes)
}

func TestParseCard_MissingLink(t *testing.T) {
	e := newExtractor(t)

	card, err := e.ParseCard(cardHTML("t", "a", "80", ""))
	require.ErrorIs(t, err, ErrMissingLink)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
	assert.Equal(t, 80, card.Likes, "fields are still returned alongside a missing link")
}

func TestParseCard_MissingField(t *testing.T) {
	e := newExtractor(t)

	_, err := e.ParseCard(`<section class="note-item"><div class="footer"><span class="title">t</span></div></section>`)
	require.ErrorIs(t, err, ErrNodeNotFound)
	assert.NotErrorIs(t, err, ErrMissingLink)
	assert.Contains(t, err.Error(), "author")
}

func TestParseDetail(t *testing.T) {
	e := newExtractor(t)

	d, err := e.ParseDetail(detailHTML, false)
	require.NoError(t, err)
	assert.Equal(t, "第一段第二段嵌套", d.Text)
	assert.Equal(t, "3 天前 浙江", d.DateRaw)
	assert.Nil(t, d.Comments)
}

func TestParseDetail_WithComments(t *testing.T) {
	e := newExtractor(t)

	d, err := e.ParseDetail(detailHTML, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"好看！", "求地址"}, d.Comments)
}

func TestParseDetail_MissingDate(t *testing.T) {
	e := newExtractor(t)

	_, err := e.ParseDetail(`<div class="note-container"><div id="detail-desc"><span class="note-text"><span>x</span></span></div></div>`, false)
	require.ErrorIs(t, err, ErrNodeNotFound)
	assert.Contains(t, err.Error(), "date")
}

func TestParseComments_NoContainer(t *testing.T) {
	e := newExtractor(t)
	assert.Empty(t, e.ParseComments(`<div class="note-container"></div>`))
}

func TestParseLikes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"plain", "80", 80},
		{"with label", "赞 523", 523},
		{"comma separated stops at first digit run", "1,234 likes", 1},
		{"no digits", "赞", 0},
		{"empty", "", 0},
		{"ten thousands", "1.2万", 12000},
		{"ten thousands w", "3w", 30000},
		{"w inside a word is not a unit", "5 wins", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLikes(tt.in))
		})
	}
}

func TestNew_InvalidSelector(t *testing.T) {
	sel := DefaultSelectors()
	sel.Title = "div[["
	_, err := New(sel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
}

func TestLoadSelectors_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: \".footer .name\"\nclose: \".close-btn\"\n"), 0o644))

	sel, err := LoadSelectors(path)
	require.NoError(t, err)

	want := DefaultSelectors()
	want.Title = ".footer .name"
	want.Close = ".close-btn"
	assert.Equal(t, want, sel)
}

func TestLoadSelectors_MissingFile(t *testing.T) {
	sel, err := LoadSelectors(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, DefaultSelectors(), sel)
}
