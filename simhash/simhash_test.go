package simhash

import (
	"fmt"
	"math/bits"
	"reflect"
	"strings"
	"testing"
)

func distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

func words(s string) []string { return strings.Fields(s) }

func TestHash_Identical(t *testing.T) {
	text := words("周末 去 杭州 喝 咖啡")
	if h1, h2 := Hash(text), Hash(text); h1 != h2 {
		t.Errorf("identical tokens produced different hashes: %064b vs %064b", h1, h2)
	}
}

func TestHash_SimilarTexts(t *testing.T) {
	h1 := Hash(words("the quick brown fox jumps over the lazy dog"))
	h2 := Hash(words("the quick brown fox leaps over the lazy dog"))

	if dist := distance(h1, h2); dist > 10 {
		t.Errorf("similar texts have too large distance: %d", dist)
	}
}

func TestHash_DifferentTexts(t *testing.T) {
	h1 := Hash(words("the quick brown fox jumps over the lazy dog"))
	h2 := Hash(words("completely unrelated content about quantum physics and mathematics"))

	if dist := distance(h1, h2); dist < 5 {
		t.Errorf("very different texts have too small distance: %d", dist)
	}
}

func TestHash_Empty(t *testing.T) {
	if h := Hash(nil); h != 0 {
		t.Errorf("Hash(nil) = %064b, want 0", h)
	}
}

func TestHash_OrderIndependent(t *testing.T) {
	if Hash([]string{"a", "b", "c"}) != Hash([]string{"c", "a", "b"}) {
		t.Error("token order should not change the hash")
	}
}

func card(href, title string, likes int) string {
	return fmt.Sprintf(`<section class="note-item"><a class="cover" href="%s"></a><div class="footer"><a class="title">%s</a><span class="like-wrapper">%d</span></div></section>`, href, title, likes)
}

func TestCardKey(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{
			"same link different markup",
			card("/n/1", "杭州 一日游", 80),
			`<section class="note-item v2"><a href="/n/1"></a><b>杭州 一日游</b><i>81</i></section>`,
			true,
		},
		{
			"same text different link",
			card("/n/1", "咖啡 推荐", 12),
			card("/n/2", "咖啡 推荐", 12),
			false,
		},
		{
			"linkless cards keyed by words",
			`<section><b>杭州 一日游</b></section>`,
			`<div class="x"><span>杭州</span> <span>一日游</span></div>`,
			true,
		},
		{
			"linkless cards with different words",
			`<section><b>杭州 一日游</b></section>`,
			`<section><b>上海 夜景</b></section>`,
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, kb := CardKey(tt.a), CardKey(tt.b)
			if (ka == kb) != tt.same {
				t.Errorf("CardKey(a) = %q, CardKey(b) = %q, want same=%v", ka, kb, tt.same)
			}
		})
	}
}

func TestContentTokens(t *testing.T) {
	hrefs, ws := contentTokens(`<div><a href="/n/1?t=x">hello  world</a><img src="x.png"/><a href="">x</a></div>`)
	if want := []string{"/n/1?t=x"}; !reflect.DeepEqual(hrefs, want) {
		t.Errorf("hrefs = %q, want %q", hrefs, want)
	}
	if want := []string{"hello", "world", "x"}; !reflect.DeepEqual(ws, want) {
		t.Errorf("words = %q, want %q", ws, want)
	}
}
