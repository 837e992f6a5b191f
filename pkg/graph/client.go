// Package graph implements the temporal knowledge graph pipeline: episode
// ingestion with entity and relationship extraction, and hybrid retrieval
// across semantic, lexical and graph traversal signals.
package graph

import (
	"time"

	"github.com/turkwise/graphmem/pkg/ai"
	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/store"
)

// SearchWeights holds the per-signal contribution to the final score.
type SearchWeights struct {
	Semantic float64
	Lexical  float64
	Graph    float64
}

// DefaultSearchWeights favors semantic similarity but keeps the other
// signals strong enough to reorder on corroboration.
var DefaultSearchWeights = SearchWeights{Semantic: 0.5, Lexical: 0.3, Graph: 0.2}

// GraphClient runs ingestion and search against one storage backend and one
// AI adapter. It manages unit chunking, extraction parallelism, retries and
// result ranking.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	store store.GraphStorage
	ai    ai.GraphAIClient

	tokenEncoder    string
	unitTokens      int
	parallelUnits   int
	maxRetries      int
	retryBackoff    time.Duration
	maxContentBytes int
	entityTypes     []string

	searchMaxLimit  int
	strategyTimeout time.Duration
	maxHops         int
	weights         SearchWeights
	signalBonus     float64
}

// NewGraphClientParams defines the configuration for creating a GraphClient.
// Zero values fall back to defaults; Store and AI are required.
type NewGraphClientParams struct {
	Store store.GraphStorage
	AI    ai.GraphAIClient

	TokenEncoder    string
	UnitTokens      int
	ParallelUnits   int
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxContentBytes int
	EntityTypes     []string

	SearchMaxLimit  int
	StrategyTimeout time.Duration
	MaxHops         int
	Weights         SearchWeights
	SignalBonus     float64
}

// NewGraphClient creates a GraphClient configured with the provided
// parameters.
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	if params.Store == nil {
		return nil, common.ErrStoreWriteFailed
	}
	if params.AI == nil {
		return nil, common.ErrExtractionUnavailable
	}

	g := &GraphClient{
		store:           params.Store,
		ai:              params.AI,
		tokenEncoder:    params.TokenEncoder,
		unitTokens:      params.UnitTokens,
		parallelUnits:   params.ParallelUnits,
		maxRetries:      params.MaxRetries,
		retryBackoff:    params.RetryBackoff,
		maxContentBytes: params.MaxContentBytes,
		entityTypes:     params.EntityTypes,
		searchMaxLimit:  params.SearchMaxLimit,
		strategyTimeout: params.StrategyTimeout,
		maxHops:         params.MaxHops,
		weights:         params.Weights,
		signalBonus:     params.SignalBonus,
	}
	if g.tokenEncoder == "" {
		g.tokenEncoder = "cl100k_base"
	}
	if g.unitTokens <= 0 {
		g.unitTokens = 600
	}
	if g.parallelUnits <= 0 {
		g.parallelUnits = 4
	}
	if g.maxRetries <= 0 {
		g.maxRetries = 3
	}
	if g.retryBackoff <= 0 {
		g.retryBackoff = 500 * time.Millisecond
	}
	if g.maxContentBytes <= 0 {
		g.maxContentBytes = 256 * 1024
	}
	if len(g.entityTypes) == 0 {
		g.entityTypes = ai.DefaultEntityTypes
	}
	if g.searchMaxLimit <= 0 {
		g.searchMaxLimit = 100
	}
	if g.strategyTimeout <= 0 {
		g.strategyTimeout = 10 * time.Second
	}
	if g.maxHops <= 0 {
		g.maxHops = 2
	}
	if g.weights == (SearchWeights{}) {
		g.weights = DefaultSearchWeights
	}
	if g.signalBonus <= 0 {
		g.signalBonus = 0.05
	}
	return g, nil
}
