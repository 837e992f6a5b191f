package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/logger"
	"github.com/turkwise/graphmem/pkg/store"
)

// ListEntities returns the entities under one partition.
func (g *GraphClient) ListEntities(ctx context.Context, partitionKey string) ([]common.Entity, error) {
	entities, err := g.store.ListEntities(ctx, partitionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreReadFailed, err)
	}
	return entities, nil
}

// ListRelationships returns the edges under one partition, optionally
// filtered to a point in time or to currently open edges.
func (g *GraphClient) ListRelationships(
	ctx context.Context,
	partitionKey string,
	asOf *time.Time,
	openOnly bool,
) ([]common.Relationship, error) {
	relationships, err := g.store.ListRelationships(ctx, partitionKey, asOf, openOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreReadFailed, err)
	}
	return relationships, nil
}

// Stats returns record counts for one partition.
func (g *GraphClient) Stats(ctx context.Context, partitionKey string) (common.TenantStats, error) {
	stats, err := g.store.Stats(ctx, partitionKey)
	if err != nil {
		return common.TenantStats{}, fmt.Errorf("%w: %w", common.ErrStoreReadFailed, err)
	}
	return stats, nil
}

// PurgeTenant deletes every record under one partition. An interrupted purge
// reports how far it got and can be retried; partial progress never affects
// other partitions.
func (g *GraphClient) PurgeTenant(ctx context.Context, partitionKey string) (store.PurgeResult, error) {
	result, err := g.store.Purge(ctx, partitionKey)
	if err != nil {
		logger.Error("tenant purge interrupted",
			"partition", partitionKey,
			"relationships", result.RelationshipsDeleted,
			"entities", result.EntitiesDeleted,
			"episodes", result.EpisodesDeleted,
			"err", err,
		)
		return result, fmt.Errorf("%w: %w", common.ErrPurgeIncomplete, err)
	}
	logger.Info("tenant purged",
		"partition", partitionKey,
		"relationships", result.RelationshipsDeleted,
		"entities", result.EntitiesDeleted,
		"episodes", result.EpisodesDeleted,
	)
	return result, nil
}
