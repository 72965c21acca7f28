package search

import (
	"math"
	"math/rand"
	"sort"

	"github.com/recallstack/recall/internal/models"
)

// Hybrid scoring weights and thresholds. The adjusted threshold relaxes the
// caller's similarity threshold by a fixed 15% for hybrid evaluation; the
// strong and moderate keyword floors derive from the same threshold.
const (
	vectorWeight      = 0.6
	keywordWeight     = 0.4
	boostCap          = 0.15
	hybridRelaxFactor = 0.85
)

// Rank combines vector similarity and keyword relevance into one hybrid
// score per memory, re-filters against the caller's threshold, and sorts
// descending by hybrid score. Empty query or empty input passes through
// unchanged.
func Rank(query string, memories []models.RetrievedMemory, threshold float64) []models.RetrievedMemory {
	if query == "" || len(memories) == 0 {
		return memories
	}

	adjusted := threshold * hybridRelaxFactor
	strong := math.Max(0.6, threshold*0.8)
	moderate := math.Max(0.4, threshold*0.6)

	var retained []models.RetrievedMemory
	for _, m := range memories {
		vectorSim := m.Similarity
		kw := Score(query, m.Content)

		hybrid := vectorSim*vectorWeight + kw*keywordWeight
		if vectorSim > 0.6 && kw > 0.5 {
			boost := (vectorSim + kw) * 0.1
			if boost > boostCap {
				boost = boostCap
			}
			hybrid += boost
		}
		if hybrid > 1 {
			hybrid = 1
		}

		// A memory survives if its raw vector similarity already met the
		// threshold, if the hybrid score clears the relaxed threshold with
		// at least moderate keyword support, or if the keyword score alone
		// is strong (exact lexical hits surface even when embeddings
		// disagree).
		keep := vectorSim >= threshold ||
			(hybrid >= adjusted && kw >= moderate) ||
			kw >= strong
		if !keep {
			continue
		}

		m.OriginalSimilarity = vectorSim
		m.KeywordScore = kw
		m.HybridScore = hybrid
		m.Similarity = displaySimilarity(hybrid)
		retained = append(retained, m)
	}

	sort.SliceStable(retained, func(i, j int) bool {
		return retained[i].HybridScore > retained[j].HybridScore
	})
	return retained
}

// displaySimilarity rounds the hybrid score to two decimals for display.
// Near-exact scores are clamped just below 0.99 with a random epsilon so
// multiple results never show a simultaneous 100% match.
func displaySimilarity(hybrid float64) float64 {
	if hybrid >= 0.995 {
		return 0.99 - rand.Float64()*0.005
	}
	return math.Round(hybrid*100) / 100
}
