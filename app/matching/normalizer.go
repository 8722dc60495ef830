package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultStopWords are generic venue-type words stripped only in dedup
// normalization. Resolution matching keeps them because a "Blue Bar" and a
// "Blue Cafe" are different venues.
var DefaultStopWords = []string{
	"restaurant", "restaurants", "bar", "cafe", "bistro", "pizzeria",
	"trattoria", "grill", "diner", "eatery", "pub", "tavern", "kitchen",
	"lounge", "the",
}

// foldTransformer strips diacritics so locale-specific characters compare
// equal to their ASCII forms ("Café" == "Cafe").
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

type Normalizer struct {
	stopWords map[string]bool
}

func NewNormalizer(stopWords []string) *Normalizer {
	if len(stopWords) == 0 {
		stopWords = DefaultStopWords
	}

	words := make(map[string]bool, len(stopWords))
	for _, word := range stopWords {
		words[Normalize(word)] = true
	}

	return &Normalizer{stopWords: words}
}

// Normalize lower-cases, folds diacritics, strips everything outside
// letters/digits/whitespace and collapses whitespace runs. Total and
// idempotent; empty input yields empty output. This is the resolution
// normalization mode.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	if folded, _, err := transform.String(foldTransformer, text); err == nil {
		text = folded
	}

	text = strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeForDedup applies Normalize and additionally removes the generic
// venue-type stoplist. Used only for duplicate detection, never for
// resolution matching.
func (n *Normalizer) NormalizeForDedup(text string) string {
	normalized := Normalize(text)
	if normalized == "" {
		return ""
	}

	words := strings.Fields(normalized)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if n.stopWords[word] {
			continue
		}
		kept = append(kept, word)
	}

	return strings.Join(kept, " ")
}
