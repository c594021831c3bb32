package interpret

import (
	"strings"
	"unicode"
)

// minUsableScore is the matcher's internal usability floor. There is no
// fixed minimum-similarity cutoff beyond it: a poor match can still be
// returned as "best", so unknown task types only fail when the vocabulary
// itself is empty or shares nothing at all with the query.
const minUsableScore = 0.1

// BestMatch fuzzy-matches query against candidates and returns the single
// closest candidate. Ties break by first-seen order, so results are
// reproducible for a given candidate list. The second return is false when
// the candidate list is empty or no candidate clears the usability floor.
func BestMatch(candidates []string, query string) (string, bool) {
	q := normalizeToken(query)
	best := ""
	bestScore := 0.0
	for _, c := range candidates {
		score := similarity(normalizeToken(c), q)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	if bestScore < minUsableScore {
		return "", false
	}
	return best, true
}

// normalizeToken lowercases and keeps letters, digits and single spaces.
// Emoji and punctuation drop out, so "🛒 Groceries" matches "groceries".
func normalizeToken(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r), r == '-', r == '_', r == '/':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	j := tokenJaccard(a, b)
	l := normalizedLevenshtein(a, b)
	if j > l {
		return j
	}
	return l
}

func tokenJaccard(a, b string) float64 {
	aSet := map[string]struct{}{}
	for _, t := range strings.Fields(a) {
		aSet[t] = struct{}{}
	}
	bSet := map[string]struct{}{}
	for _, t := range strings.Fields(b) {
		bSet[t] = struct{}{}
	}
	if len(aSet) == 0 && len(bSet) == 0 {
		return 1
	}
	inter := 0
	for t := range aSet {
		if _, ok := bSet[t]; ok {
			inter++
		}
	}
	union := len(aSet) + len(bSet) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func normalizedLevenshtein(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	if len(ar) == 0 && len(br) == 0 {
		return 1
	}
	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}
	if maxLen == 0 {
		return 0
	}
	d := make([][]int, len(ar)+1)
	for i := range d {
		d[i] = make([]int, len(br)+1)
	}
	for i := 0; i <= len(ar); i++ {
		d[i][0] = i
	}
	for j := 0; j <= len(br); j++ {
		d[0][j] = j
	}
	for i := 1; i <= len(ar); i++ {
		for j := 1; j <= len(br); j++ {
			cost := 0
			if ar[i-1] != br[j-1] {
				cost = 1
			}
			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost
			d[i][j] = minInt(del, minInt(ins, sub))
		}
	}
	dist := d[len(ar)][len(br)]
	return 1 - float64(dist)/float64(maxLen)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
