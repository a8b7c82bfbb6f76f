package memory

import (
	"strings"

	"github.com/seedchat/memkit/types"
)

// Similarity computes lexical overlap between texts. It is a stand-in
// for semantic embeddings: tokens are lower-cased whitespace-separated
// words and overlap is the Jaccard index of the two word sets.
type Similarity struct{}

// NewSimilarity creates a Similarity engine.
func NewSimilarity() *Similarity {
	return &Similarity{}
}

// Score returns the Jaccard index of the word sets of a and b.
// Identical non-empty texts score 1.0; an empty union scores 0.
func (s *Similarity) Score(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Relevance scores a memory against a query: content similarity plus
// 0.1 per tag whose text appears in the query, case-insensitively.
func (s *Similarity) Relevance(m types.Memory, query string) float64 {
	score := s.Score(m.Content, query)
	lowerQuery := strings.ToLower(query)
	for _, tag := range m.Tags {
		if strings.Contains(lowerQuery, strings.ToLower(tag)) {
			score += 0.1
		}
	}
	return score
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
