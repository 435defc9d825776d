package ranking

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// stopWords are dropped from interests before scoring.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "that": {}, "with": {}, "news": {}, "about": {},
	"other": {}, "less": {}, "would": {}, "help": {}, "please": {}, "ignore": {},
	"order": {}, "topics": {}, "interest": {}, "priority": {}, "especially": {},
	"more": {}, "from": {}, "into": {}, "this": {}, "are": {}, "not": {},
}

// KeywordSelector ranks headlines by how often interest terms appear in them.
type KeywordSelector struct {
	maxSelected int
}

var _ ports.Selector = (*KeywordSelector)(nil)

// NewKeywordSelector keeps at most maxSelected headlines. Zero means no cap.
func NewKeywordSelector(maxSelected int) *KeywordSelector {
	return &KeywordSelector{maxSelected: maxSelected}
}

type scored struct {
	url   string
	score int
}

// Select scores each headline: a term hit in the title counts twice, in the description once.
// Headlines without hits are dropped. Ties keep input order.
func (k *KeywordSelector) Select(ctx context.Context, headlines []domain.Headline, interests string, categories []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := Terms(interests + " " + strings.Join(categories, " "))
	if len(terms) == 0 {
		return nil, nil
	}

	var ranked []scored
	for _, h := range headlines {
		score := 2*hits(h.Title, terms) + hits(h.Description, terms)
		if score > 0 {
			ranked = append(ranked, scored{url: h.URL, score: score})
		}
	}

	slices.SortStableFunc(ranked, func(a, b scored) int { return b.score - a.score })
	if k.maxSelected > 0 && len(ranked) > k.maxSelected {
		ranked = ranked[:k.maxSelected]
	}

	urls := make([]string, len(ranked))
	for i, r := range ranked {
		urls[i] = r.url
	}
	return urls, nil
}

// Terms lowercases text and returns its distinct words of three or more letters, minus stop words.
func Terms(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range words(text) {
		if len([]rune(w)) < 3 && w != "ai" {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func hits(text string, terms map[string]struct{}) int {
	n := 0
	for _, w := range words(text) {
		if _, ok := terms[w]; ok {
			n++
		}
	}
	return n
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
