package graph

import (
	"sort"

	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/store"
)

// maxBonusSignals caps how many corroborating signals beyond the first can
// raise a result's score.
const maxBonusSignals = 2

func weightFor(signal common.Signal, weights SearchWeights) float64 {
	switch signal {
	case common.SignalSemantic:
		return weights.Semantic
	case common.SignalLexical:
		return weights.Lexical
	case common.SignalGraph:
		return weights.Graph
	}
	return 0
}

// normalizeScores rescales one strategy's raw scores to [0, 1] with min-max
// normalization. Raw scores from different strategies live on incompatible
// scales, so this is the only way their contributions can be summed. A
// strategy whose hits all share one score contributes 1.0 for each.
func normalizeScores(hits []store.SearchHit) []float64 {
	if len(hits) == 0 {
		return nil
	}
	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, hit := range hits[1:] {
		if hit.Score < minScore {
			minScore = hit.Score
		}
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}
	normalized := make([]float64, len(hits))
	for i, hit := range hits {
		if maxScore == minScore {
			normalized[i] = 1.0
		} else {
			normalized[i] = (hit.Score - minScore) / (maxScore - minScore)
		}
	}
	return normalized
}

// mergeHits combines per-strategy hits into the final ranking: normalized
// scores weighted per signal, a capped bonus for results multiple strategies
// agree on, deterministic tie-breaks (most recently seen first, then public
// id), truncated to limit.
func mergeHits(
	perSignal map[common.Signal][]store.SearchHit,
	weights SearchWeights,
	signalBonus float64,
	limit int,
) []common.SearchResult {
	merged := map[string]*common.SearchResult{}

	// Stable iteration order keeps Signals slices deterministic.
	order := []common.Signal{common.SignalSemantic, common.SignalLexical, common.SignalGraph}
	for _, signal := range order {
		hits := perSignal[signal]
		normalized := normalizeScores(hits)
		weight := weightFor(signal, weights)
		for i, hit := range hits {
			entry, ok := merged[hit.PublicID]
			if !ok {
				entry = &common.SearchResult{
					Kind:     hit.Kind,
					PublicID: hit.PublicID,
					Name:     hit.Name,
					Content:  hit.Content,
					LastSeen: hit.LastSeen,
				}
				merged[hit.PublicID] = entry
			}
			entry.Score += normalized[i] * weight
			entry.Signals = append(entry.Signals, signal)
			if hit.LastSeen.After(entry.LastSeen) {
				entry.LastSeen = hit.LastSeen
			}
		}
	}

	results := make([]common.SearchResult, 0, len(merged))
	for _, entry := range merged {
		extra := len(entry.Signals) - 1
		if extra > maxBonusSignals {
			extra = maxBonusSignals
		}
		if extra > 0 {
			entry.Score += float64(extra) * signalBonus
		}
		results = append(results, *entry)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].LastSeen.Equal(results[j].LastSeen) {
			return results[i].LastSeen.After(results[j].LastSeen)
		}
		return results[i].PublicID < results[j].PublicID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
