// Package risk computes the heuristic risk score for a candidate.
package risk

import "mint-watch/internal/domain"

// Score weights and thresholds.
const (
	TopHolderWeight   = 0.6
	Top10HolderWeight = 0.3
	SmallSupplyBonus  = 0.1
	SmallSupplyLimit  = 1e9

	// DefaultThreshold is the alert threshold; scores must be strictly above it.
	DefaultThreshold = 0.5
)

// Score returns 0.6*top1 + 0.3*top10, plus 0.1 when supply is below 1e9.
// Shares are percentages, so the result is not clamped to [0,1].
func Score(e domain.Enrichment) float64 {
	score := TopHolderWeight*e.TopHolderShare + Top10HolderWeight*e.Top10HolderShare
	if e.Supply < SmallSupplyLimit {
		score += SmallSupplyBonus
	}
	return score
}

// Exceeds reports whether score passes threshold.
func Exceeds(score, threshold float64) bool {
	return score > threshold
}
