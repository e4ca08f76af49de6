package extractor

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

// minTermLength filters out terms too short to carry meaning.
const minTermLength = 3

// stopwords are excluded from keyword extraction. The list covers common
// English function words plus filler that dominates business prose.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "have": true, "this": true, "that": true, "with": true,
	"from": true, "they": true, "will": true, "would": true, "there": true,
	"their": true, "what": true, "about": true, "which": true, "when": true,
	"were": true, "been": true, "more": true, "into": true, "than": true,
	"them": true, "then": true, "these": true, "some": true, "its": true,
	"also": true, "each": true, "other": true, "should": true, "must": true,
	"any": true, "may": true, "such": true, "only": true, "over": true,
	"after": true, "before": true, "between": true, "both": true,
	"does": true, "done": true, "how": true, "where": true, "who": true,
	"why": true, "your": true, "his": true, "she": true, "him": true,
	"per": true, "via": true, "use": true, "used": true, "using": true,
}

// extractKeywords tokenizes content and returns the top-scored terms.
// Score is frequency scaled by a log factor of term length, so longer
// domain-specific terms outrank short common ones at equal frequency.
func (e *Extractor) extractKeywords(content string) []types.Keyword {
	counts := make(map[string]int)
	for _, term := range tokenizeText(content) {
		if len(term) < minTermLength || stopwords[term] {
			continue
		}
		counts[term]++
	}
	if len(counts) == 0 {
		return nil
	}

	keywords := make([]types.Keyword, 0, len(counts))
	for term, freq := range counts {
		keywords = append(keywords, types.Keyword{
			Term:      term,
			Frequency: freq,
			Score:     float64(freq) * (1 + math.Log(float64(len(term)))),
		})
	}

	// Deterministic order: score descending, term ascending on ties.
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Score != keywords[j].Score {
			return keywords[i].Score > keywords[j].Score
		}
		return keywords[i].Term < keywords[j].Term
	})

	if len(keywords) > e.maxKeywords {
		keywords = keywords[:e.maxKeywords]
	}
	return keywords
}

// tokenizeText lowercases and splits on non-letter, non-digit runes.
func tokenizeText(content string) []string {
	return strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
