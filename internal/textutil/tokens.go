package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

var lowerCaser = cases.Lower(language.Und)

// Fold lowercases and Unicode-normalizes text for matching.
func Fold(text string) string {
	return lowerCaser.String(norm.NFC.String(text))
}

// Tokenize splits text into folded tokens, filtering tokens shorter than two
// characters.
func Tokenize(text string) []string {
	raw := tokenSplitPattern.Split(Fold(text), -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if len(token) < 2 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// ContentTokens tokenizes text and removes stop words.
func ContentTokens(text string) []string {
	tokens := Tokenize(text)
	terms := tokens[:0]
	for _, token := range tokens {
		if IsStopWord(token) {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// CountHits returns how many of the needles occur in haystack, matched on
// folded text. Each needle counts at most once.
func CountHits(haystack string, needles []string) int {
	if haystack == "" || len(needles) == 0 {
		return 0
	}
	folded := Fold(haystack)
	hits := 0
	for _, needle := range needles {
		needle = strings.TrimSpace(Fold(needle))
		if needle == "" {
			continue
		}
		if strings.Contains(folded, needle) {
			hits++
		}
	}
	return hits
}

// TruncateRunes shortens text to at most limit runes, appending an ellipsis
// when anything was removed.
func TruncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// CollapseWhitespace joins all whitespace runs in text into single spaces.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
