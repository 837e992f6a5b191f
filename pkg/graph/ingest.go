package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/turkwise/graphmem/internal/util"
	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/logger"
	"github.com/turkwise/graphmem/pkg/store"
)

type unitExtraction struct {
	entities      []candidateEntity
	relationships []candidateRelationship
}

// IngestResult reports what one episode contributed to the graph.
type IngestResult struct {
	EpisodePublicID   string `json:"episode_id"`
	UnitCount         int    `json:"unit_count"`
	EntityCount       int    `json:"entity_count"`
	RelationshipCount int    `json:"relationship_count"`
}

// IngestEpisode runs the full pipeline for one episode: chunk the content
// into units, extract entities and relationships from each unit
// concurrently, merge the candidates, embed them, and upsert into the
// partition's graph. The episode record itself is written last, so a failed
// run never leaves an episode that the graph does not reflect; retrying the
// same episode is safe because every write is idempotent.
func (g *GraphClient) IngestEpisode(ctx context.Context, episode common.Episode) (*IngestResult, error) {
	if len(episode.Content) > g.maxContentBytes {
		return nil, fmt.Errorf("content is %d bytes, limit %d: %w",
			len(episode.Content), g.maxContentBytes, common.ErrPayloadTooLarge)
	}
	if strings.TrimSpace(episode.Content) == "" {
		return nil, fmt.Errorf("empty content: %w", common.ErrInvalidContent)
	}
	if episode.EpisodeType == "" {
		episode.EpisodeType = common.EpisodeTypeConversation
	}
	if episode.PublicID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		episode.PublicID = id
	}
	if episode.ReceivedAt.IsZero() {
		episode.ReceivedAt = time.Now().UTC()
	}
	if episode.ValidFrom.IsZero() {
		episode.ValidFrom = episode.ReceivedAt
	}

	units, err := transformIntoUnits(episode.Content, episode.PublicID, g.tokenEncoder, g.unitTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to split episode into units: %w", err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no extractable content: %w", common.ErrInvalidContent)
	}

	var candidates []candidateEntity
	var candidateRels []candidateRelationship
	mergeMu := sync.Mutex{}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelUnits)
	for _, unit := range units {
		u := unit
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
				extracted, err := util.RetryWithBackoff(gCtx, g.maxRetries, g.retryBackoff,
					func(ctx context.Context) (unitExtraction, error) {
						entities, relationships, err := extractFromUnit(ctx, u, episode.EpisodeType, episode.ValidFrom, g.entityTypes, g.ai)
						return unitExtraction{entities: entities, relationships: relationships}, err
					})
				if err != nil {
					return fmt.Errorf("unit extraction failed: %w: %w", common.ErrExtractionUnavailable, err)
				}

				mergeMu.Lock()
				candidates, candidateRels = mergeCandidates(candidates, extracted.entities, candidateRels, extracted.relationships)
				mergeMu.Unlock()
				return nil
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	entities := make([]common.Entity, 0, len(candidates))
	embedInputs := make([][]byte, 0, len(candidates))
	for _, candidate := range candidates {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		entities = append(entities, common.Entity{
			PublicID:     id,
			PartitionKey: episode.PartitionKey,
			Name:         candidate.name,
			Type:         candidate.entityType,
			Summary:      candidate.mention,
			DedupeKey:    DedupeKey(candidate.name, candidate.entityType),
			FirstSeen:    episode.ValidFrom,
			LastSeen:     episode.ValidFrom,
			Attributes:   candidate.attributes,
		})
		embedInputs = append(embedInputs, []byte(candidate.name+". "+candidate.mention))
	}

	var embeddings [][]float32
	if len(embedInputs) > 0 {
		embeddings, err = util.RetryWithBackoff(ctx, g.maxRetries, g.retryBackoff,
			func(ctx context.Context) ([][]float32, error) {
				return g.ai.GenerateEmbeddings(ctx, embedInputs)
			})
		if err != nil {
			return nil, fmt.Errorf("entity embedding failed: %w: %w", common.ErrExtractionUnavailable, err)
		}
	}

	if err := util.RetryErrWithBackoff(ctx, g.maxRetries, g.retryBackoff, func(ctx context.Context) error {
		return g.store.UpsertEntities(ctx, episode.PartitionKey, entities, embeddings)
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreWriteFailed, err)
	}

	// Creations go before terminations so an edge stated and ended within
	// the same episode leaves a closed interval, not a missing one.
	sort.SliceStable(candidateRels, func(i, j int) bool {
		return !candidateRels[i].terminated && candidateRels[j].terminated
	})
	upserts := make([]store.RelationshipUpsert, 0, len(candidateRels))
	for _, rel := range candidateRels {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		upserts = append(upserts, store.RelationshipUpsert{
			PublicID:        id,
			SourceDedupeKey: rel.sourceKey,
			TargetDedupeKey: rel.targetKey,
			Label:           rel.label,
			Terminated:      rel.terminated,
			Timestamp:       episode.ValidFrom,
			EpisodePublicID: episode.PublicID,
		})
	}
	if err := util.RetryErrWithBackoff(ctx, g.maxRetries, g.retryBackoff, func(ctx context.Context) error {
		return g.store.UpsertRelationships(ctx, episode.PartitionKey, upserts)
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreWriteFailed, err)
	}

	episodeEmbedding, err := util.RetryWithBackoff(ctx, g.maxRetries, g.retryBackoff,
		func(ctx context.Context) ([]float32, error) {
			return g.ai.GenerateEmbedding(ctx, []byte(episode.Content))
		})
	if err != nil {
		return nil, fmt.Errorf("episode embedding failed: %w: %w", common.ErrExtractionUnavailable, err)
	}
	if err := util.RetryErrWithBackoff(ctx, g.maxRetries, g.retryBackoff, func(ctx context.Context) error {
		return g.store.SaveEpisode(ctx, episode, episodeEmbedding)
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreWriteFailed, err)
	}

	logger.Debug("episode ingested",
		"episode", episode.PublicID,
		"units", len(units),
		"entities", len(entities),
		"relationships", len(upserts),
	)

	return &IngestResult{
		EpisodePublicID:   episode.PublicID,
		UnitCount:         len(units),
		EntityCount:       len(entities),
		RelationshipCount: len(upserts),
	}, nil
}
