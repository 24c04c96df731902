// Package simhash computes 64-bit SimHash fingerprints and keys feed cards
// by content, so the crawler can tell whether a scroll rendered new cards.
package simhash

import "hash/fnv"

// Hash returns the SimHash of tokens: each token's FNV-64a hash votes on
// every bit. No tokens yields 0.
func Hash(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	var vector [64]int
	h := fnv.New64a()
	for _, tok := range tokens {
		h.Reset()
		h.Write([]byte(tok))
		sum := h.Sum64()
		for i := range 64 {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i, v := range vector {
		if v > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}
