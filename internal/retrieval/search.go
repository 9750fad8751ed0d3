package retrieval

import (
	"sort"

	"kbagent/internal/vector"
)

// Match pairs a candidate record with its cosine similarity to the query.
type Match[T any] struct {
	Record     T
	Similarity float64
}

// Search scans candidates linearly, scoring each one with a valid embedding
// against queryVec by normalized cosine similarity.
//
// Candidates are excluded (not scored as zero, not treated as errors) when
// embeddingOf returns an absent/corrupt vector, when dimensions differ, or
// when either vector has zero norm. A candidate survives the threshold only
// with similarity strictly greater than minSimilarity; ties at the exact
// threshold are out. Results are sorted by similarity descending with a
// stable sort, so equal scores keep candidate insertion order and repeated
// queries over unchanged data return identical rankings. At most topK
// matches are returned.
//
// The scan is O(n) per query, which is fine at knowledge-base scale; an
// approximate index can replace this function without touching callers.
func Search[T any](queryVec []float32, candidates []T, embeddingOf func(T) []float32, minSimilarity float64, topK int) []Match[T] {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}

	matches := make([]Match[T], 0, len(candidates))
	for _, c := range candidates {
		sim, ok := vector.Cosine(queryVec, embeddingOf(c))
		if !ok {
			continue
		}
		if sim > minSimilarity {
			matches = append(matches, Match[T]{Record: c, Similarity: sim})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// BestMatch is Search with topK fixed to 1. The boolean is false when no
// candidate clears the threshold; the similarity is then 0.
func BestMatch[T any](queryVec []float32, candidates []T, embeddingOf func(T) []float32, minSimilarity float64) (Match[T], bool) {
	matches := Search(queryVec, candidates, embeddingOf, minSimilarity, 1)
	if len(matches) == 0 {
		var zero Match[T]
		return zero, false
	}
	return matches[0], true
}
