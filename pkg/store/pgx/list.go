package pgx

import (
	"context"
	"fmt"
	"time"

	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/store"
)

// ListEntities returns all entities under the partition ordered by most
// recently seen first.
func (s *GraphDBStorage) ListEntities(ctx context.Context, partitionKey string) ([]common.Entity, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT public_id, name, type, summary, dedupe_key, first_seen, last_seen, attributes
		FROM entities
		WHERE partition_key = $1
		ORDER BY last_seen DESC, public_id ASC
	`, partitionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	entities := []common.Entity{}
	for rows.Next() {
		entity := common.Entity{PartitionKey: partitionKey}
		err := rows.Scan(
			&entity.PublicID,
			&entity.Name,
			&entity.Type,
			&entity.Summary,
			&entity.DedupeKey,
			&entity.FirstSeen,
			&entity.LastSeen,
			&entity.Attributes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// ListRelationships returns edges under the partition. A non-nil asOf filters
// to edges whose validity interval covers that instant; openOnly filters to
// edges that are still current.
func (s *GraphDBStorage) ListRelationships(
	ctx context.Context,
	partitionKey string,
	asOf *time.Time,
	openOnly bool,
) ([]common.Relationship, error) {
	query := `
		SELECT r.public_id, src.public_id, tgt.public_id, src.name, tgt.name,
			r.label, r.valid_from, r.valid_until, r.episode_public_id
		FROM relationships r
		JOIN entities src ON src.id = r.source_id
		JOIN entities tgt ON tgt.id = r.target_id
		WHERE r.partition_key = $1
	`
	args := []any{partitionKey}
	if asOf != nil {
		query += ` AND r.valid_from <= $2 AND (r.valid_until IS NULL OR r.valid_until > $2)`
		args = append(args, *asOf)
	}
	if openOnly {
		query += ` AND r.valid_until IS NULL`
	}
	query += ` ORDER BY r.valid_from DESC, r.public_id ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	relationships := []common.Relationship{}
	for rows.Next() {
		rel := common.Relationship{PartitionKey: partitionKey}
		err := rows.Scan(
			&rel.PublicID,
			&rel.SourcePublicID,
			&rel.TargetPublicID,
			&rel.SourceName,
			&rel.TargetName,
			&rel.Label,
			&rel.ValidFrom,
			&rel.ValidUntil,
			&rel.EpisodePublicID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		relationships = append(relationships, rel)
	}
	return relationships, rows.Err()
}

// Stats counts the records under one partition.
func (s *GraphDBStorage) Stats(ctx context.Context, partitionKey string) (common.TenantStats, error) {
	var stats common.TenantStats
	err := s.conn.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM entities WHERE partition_key = $1),
			(SELECT count(*) FROM relationships WHERE partition_key = $1),
			(SELECT count(*) FROM episodes WHERE partition_key = $1)
	`, partitionKey).Scan(&stats.EntityCount, &stats.RelationshipCount, &stats.EpisodeCount)
	if err != nil {
		return common.TenantStats{}, fmt.Errorf("failed to count tenant records: %w", err)
	}
	return stats, nil
}

// Purge deletes everything under the partition: relationships first so no
// edge survives its endpoints, then entities, then episodes. Each step is a
// plain partition-scoped delete, so an interrupted purge can be retried.
func (s *GraphDBStorage) Purge(ctx context.Context, partitionKey string) (store.PurgeResult, error) {
	result := store.PurgeResult{}

	tag, err := s.conn.Exec(ctx, `DELETE FROM relationships WHERE partition_key = $1`, partitionKey)
	if err != nil {
		return result, fmt.Errorf("failed to purge relationships: %w", err)
	}
	result.RelationshipsDeleted = tag.RowsAffected()

	tag, err = s.conn.Exec(ctx, `DELETE FROM entities WHERE partition_key = $1`, partitionKey)
	if err != nil {
		return result, fmt.Errorf("failed to purge entities: %w", err)
	}
	result.EntitiesDeleted = tag.RowsAffected()

	tag, err = s.conn.Exec(ctx, `DELETE FROM episodes WHERE partition_key = $1`, partitionKey)
	if err != nil {
		return result, fmt.Errorf("failed to purge episodes: %w", err)
	}
	result.EpisodesDeleted = tag.RowsAffected()

	result.Complete = true
	return result, nil
}
