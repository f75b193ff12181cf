package rag

import (
	"sort"
	"strings"
)

const (
	// keywordOnlyScore is the neutral base for candidates found only by the
	// keyword leg, where similarity is unknown.
	keywordOnlyScore = 0.5
	// titleMatchBoost dominates the [0,1] similarity scale so exact-title
	// matches outrank noisy vector scores. Title relevance is deliberately
	// treated as a stronger signal than embedding similarity.
	titleMatchBoost = 10.0
)

// rank deduplicates candidates by passage id, fuses each one's leg scores
// into a single value, and returns the top k by descending fused score.
// Candidates with equal scores keep their merge order (sort is stable).
func rank(candidates []Candidate, queryText string, k int) []Candidate {
	merged := dedupe(candidates)

	query := strings.ToLower(strings.TrimSpace(queryText))
	for i := range merged {
		score := keywordOnlyScore
		if merged[i].HasVectorScore {
			score = float64(merged[i].VectorScore)
		}
		if query != "" && strings.Contains(strings.ToLower(merged[i].Source.Title), query) {
			score += titleMatchBoost
		}
		merged[i].FusedScore = score
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].FusedScore > merged[j].FusedScore
	})

	if k > 0 && len(merged) > k {
		merged = merged[:k]
	}
	return merged
}

// dedupe collapses candidates sharing a passage id into one entry, keeping
// first-seen order. A duplicate contributes its vector score if the kept
// entry lacks one, and its keyword flag either way.
func dedupe(candidates []Candidate) []Candidate {
	merged := make([]Candidate, 0, len(candidates))
	index := make(map[string]int, len(candidates))

	for _, c := range candidates {
		at, ok := index[c.PassageID]
		if !ok {
			index[c.PassageID] = len(merged)
			merged = append(merged, c)
			continue
		}
		if c.HasVectorScore && !merged[at].HasVectorScore {
			merged[at].VectorScore = c.VectorScore
			merged[at].HasVectorScore = true
		}
		if c.KeywordHit {
			merged[at].KeywordHit = true
		}
	}

	return merged
}
