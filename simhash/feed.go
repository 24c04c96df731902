package simhash

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// CardKey identifies a rendered feed card. Cards carrying links are keyed by
// their href values, so two cards share a key only when they link to the
// same places. Cards without links fall back to the SimHash of their
// visible words, which ignores markup and styling.
func CardKey(fragment string) string {
	hrefs, words := contentTokens(fragment)
	if len(hrefs) > 0 {
		return "href:" + strings.Join(hrefs, " ")
	}
	return fmt.Sprintf("text:%016x", Hash(words))
}

// contentTokens walks fragment with the tokenizer, collecting href values
// and text words.
func contentTokens(fragment string) (hrefs, words []string) {
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return hrefs, words
		case html.TextToken:
			words = append(words, strings.Fields(string(z.Text()))...)
		case html.StartTagToken, html.SelfClosingTagToken:
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" && len(val) > 0 {
					hrefs = append(hrefs, string(val))
				}
				if !more {
					break
				}
			}
		}
	}
}
