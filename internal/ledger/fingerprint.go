package ledger

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Spanish function words dropped before fingerprinting.
var stopwords = map[string]struct{}{
	"a": {}, "al": {}, "ante": {}, "bajo": {}, "con": {}, "contra": {}, "de": {},
	"del": {}, "desde": {}, "durante": {}, "e": {}, "el": {}, "en": {}, "entre": {},
	"es": {}, "esta": {}, "este": {}, "esto": {}, "ha": {}, "han": {}, "hacia": {},
	"hasta": {}, "la": {}, "las": {}, "le": {}, "les": {}, "lo": {}, "los": {},
	"mas": {}, "más": {}, "mediante": {}, "ni": {}, "no": {}, "o": {}, "para": {},
	"pero": {}, "por": {}, "que": {}, "qué": {}, "se": {}, "según": {}, "sin": {},
	"sobre": {}, "su": {}, "sus": {}, "tras": {}, "u": {}, "un": {}, "una": {},
	"unas": {}, "unos": {}, "y": {}, "ya": {},
}

// Fingerprint turns a title into its sorted, deduplicated token set:
// lower-cased, punctuation removed (accented letters kept), stopwords
// dropped and a trailing plural "s" folded on tokens longer than three runes,
// so "tasas" and "tasa" compare equal.
func Fingerprint(title string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, title)

	set := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		set[foldPlural(w)] = struct{}{}
	}

	tokens := make([]string, 0, len(set))
	for w := range set {
		tokens = append(tokens, w)
	}
	sort.Strings(tokens)
	return tokens
}

func foldPlural(w string) string {
	if utf8.RuneCountInString(w) > 3 && strings.HasSuffix(w, "s") {
		return strings.TrimSuffix(w, "s")
	}
	return w
}

// Jaccard is |A∩B| / |A∪B| over two token sets; 0 when either is empty.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	left := make(map[string]struct{}, len(a))
	for _, t := range a {
		left[t] = struct{}{}
	}
	right := make(map[string]struct{}, len(b))
	for _, t := range b {
		right[t] = struct{}{}
	}

	intersection := 0
	for t := range left {
		if _, ok := right[t]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(left) + len(right) - intersection
	return float64(intersection) / float64(union)
}
