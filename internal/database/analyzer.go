package database

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName folds a name for gram matching (no diacritics, lowercase, single spaces).
func NormalizeName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	return strings.Join(strings.Fields(name), " ")
}

// NameGrams returns the distinct MinGram..MaxGram rune n-grams of the normalized
// name, in first-seen order. The whole string is tokenized, spaces included.
func NameGrams(name string) []string {
	r := []rune(NormalizeName(name))
	seen := make(map[string]struct{})
	grams := make([]string, 0, len(r)*(MaxGram-MinGram+1))
	for i := range r {
		for n := MinGram; n <= MaxGram && i+n <= len(r); n++ {
			g := string(r[i : i+n])
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			grams = append(grams, g)
		}
	}
	return grams
}

// TagTerms returns the values a tag must equal to match the query: each
// whitespace-separated word plus the whole trimmed query.
func TagTerms(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	terms := strings.Fields(query)
	if !slices.Contains(terms, query) {
		terms = append(terms, query)
	}
	return terms
}

// Score ranks a record against a query. A name match contributes the share of
// the record's grams covered by the query, each matching tag adds one.
// ok is false when neither the name nor any tag matches.
func Score(photo *Photo, query string) (score float64, ok bool) {
	qGrams := NameGrams(query)
	if len(qGrams) == 0 {
		return 0, true
	}

	nameGrams := NameGrams(photo.Name)
	if containsAll(nameGrams, qGrams) {
		score += float64(len(qGrams)) / float64(max(len(nameGrams), 1))
		ok = true
	}

	for _, term := range TagTerms(query) {
		if slices.Contains(photo.Tags, term) {
			score++
			ok = true
		}
	}
	return score, ok
}

func containsAll(set, subset []string) bool {
	if len(set) == 0 {
		return false
	}
	have := make(map[string]struct{}, len(set))
	for _, s := range set {
		have[s] = struct{}{}
	}
	for _, s := range subset {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}
