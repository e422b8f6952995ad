package matching

import "strings"

// trigrams returns the set of character trigrams of s, padded the way
// Postgres's pg_trgm extension pads short strings (two leading blanks,
// one trailing blank) so short tokens still produce comparable sets.
// The matching engine scores every candidate with this pure-Go version,
// whichever store backs the catalog; the Postgres adapter uses pg_trgm's
// similarity() only to select the candidates.
func trigrams(s string) map[string]struct{} {
	s = "  " + strings.ToLower(strings.TrimSpace(s)) + " "
	set := make(map[string]struct{})
	runes := []rune(s)
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// TrigramSimilarity is the Jaccard-index trigram similarity used by
// pg_trgm's similarity() function: |A∩B| / |A∪B|.
func TrigramSimilarity(a, b string) float64 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0
	}
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	var intersect int
	for g := range ta {
		if _, ok := tb[g]; ok {
			intersect++
		}
	}
	union := len(ta) + len(tb) - intersect
	if union == 0 {
		return 0
	}
	return float64(intersect) / float64(union)
}
