package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/logger"
	"github.com/turkwise/graphmem/pkg/store"
)

type strategyResult struct {
	signal common.Signal
	hits   []store.SearchHit
	err    error
}

// Search runs the semantic, lexical and graph traversal strategies
// concurrently against one partition and merges their hits into a single
// ranking. A strategy that errors or exceeds its timeout is dropped and the
// others still answer; degraded reports whether that happened. Only when
// every strategy fails does Search return ErrSearchUnavailable.
func (g *GraphClient) Search(
	ctx context.Context,
	partitionKey string,
	query string,
	limit int,
) (results []common.SearchResult, degraded bool, err error) {
	if limit <= 0 || limit > g.searchMaxLimit {
		return nil, false, fmt.Errorf("limit %d out of range 1..%d: %w", limit, g.searchMaxLimit, common.ErrInvalidLimit)
	}

	// Each strategy over-fetches so corroboration across strategies can
	// still reorder the final top results.
	fetch := limit * 2

	strategies := []struct {
		signal common.Signal
		run    func(context.Context) ([]store.SearchHit, error)
	}{
		{common.SignalSemantic, func(ctx context.Context) ([]store.SearchHit, error) {
			embedding, err := g.ai.GenerateEmbedding(ctx, []byte(query))
			if err != nil {
				return nil, fmt.Errorf("query embedding failed: %w", err)
			}
			return g.store.SemanticSearch(ctx, partitionKey, embedding, fetch)
		}},
		{common.SignalLexical, func(ctx context.Context) ([]store.SearchHit, error) {
			return g.store.LexicalSearch(ctx, partitionKey, query, fetch)
		}},
		{common.SignalGraph, func(ctx context.Context) ([]store.SearchHit, error) {
			return g.store.TraversalSearch(ctx, partitionKey, query, g.maxHops, fetch)
		}},
	}

	outcomes := make([]strategyResult, len(strategies))
	wg := sync.WaitGroup{}
	for i, strategy := range strategies {
		wg.Add(1)
		go func(i int, signal common.Signal, run func(context.Context) ([]store.SearchHit, error)) {
			defer wg.Done()
			sCtx, cancel := context.WithTimeout(ctx, g.strategyTimeout)
			defer cancel()
			hits, err := run(sCtx)
			outcomes[i] = strategyResult{signal: signal, hits: hits, err: err}
		}(i, strategy.signal, strategy.run)
	}
	wg.Wait()

	perSignal := map[common.Signal][]store.SearchHit{}
	failures := 0
	for _, outcome := range outcomes {
		if outcome.err != nil {
			failures++
			logger.Warn("search strategy failed", "signal", outcome.signal, "err", outcome.err)
			continue
		}
		perSignal[outcome.signal] = outcome.hits
	}
	if failures == len(strategies) {
		return nil, false, fmt.Errorf("all strategies failed: %w", common.ErrSearchUnavailable)
	}

	return mergeHits(perSignal, g.weights, g.signalBonus, limit), failures > 0, nil
}
