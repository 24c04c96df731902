// Package session bootstraps a crawl: it signs in, opens the search feed
// for a keyword, runs the crawler and exports the results.
package session

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
)

const (
	// HomeURL is where manual sign-in happens.
	HomeURL = "https://www.xiaohongshu.com/explore"

	searchURLFormat = "https://www.xiaohongshu.com/search_result?keyword=%s&source=web_search_result_notes"
)

// SearchURL builds the search results URL for keyword. The keyword is
// percent-encoded, re-encoded as GBK and percent-encoded again, which is
// the form the search endpoint expects.
func SearchURL(keyword string) (string, error) {
	once := quote([]byte(keyword))
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(once)
	if err != nil {
		return "", fmt.Errorf("encode keyword %q: %w", keyword, err)
	}
	return fmt.Sprintf(searchURLFormat, quote([]byte(gbk))), nil
}

// quote percent-encodes every byte outside the RFC 3986 unreserved set,
// leaving "/" intact.
func quote(b []byte) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for _, c := range b {
		if unreserved(c) || c == '/' {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0F])
	}
	return sb.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
