package pgx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// GraphDBStorage implements store.GraphStorage on PostgreSQL with pgvector for
// vector similarity and tsvector columns for lexical scoring. Partition
// isolation is enforced by scoping every statement to the partition key.
type GraphDBStorage struct {
	conn pgxIConn
}

// NewGraphDBStorage creates a GraphDBStorage using an existing connection
// pool. pgvector types must already be registered on the pool's connections.
func NewGraphDBStorage(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{conn: conn}
}

// Ping reports whether the database is reachable.
func (s *GraphDBStorage) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// UpsertEntities inserts or merges a batch of entities in one transaction.
// The (partition_key, dedupe_key) unique constraint makes creation
// exactly-once under concurrent ingestion; on conflict attributes are unioned
// with the new values winning and last_seen only ever advances.
func (s *GraphDBStorage) UpsertEntities(
	ctx context.Context,
	partitionKey string,
	entities []common.Entity,
	embeddings [][]float32,
) error {
	if len(entities) == 0 {
		return nil
	}
	if len(embeddings) != len(entities) {
		return fmt.Errorf("embedding count mismatch: got %d want %d", len(embeddings), len(entities))
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i, entity := range entities {
		attrs := entity.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO entities (
				public_id, partition_key, name, type, summary, dedupe_key,
				first_seen, last_seen, attributes, embedding
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (partition_key, dedupe_key) DO UPDATE SET
				name       = EXCLUDED.name,
				summary    = CASE
					WHEN EXCLUDED.summary = '' THEN entities.summary
					WHEN position(EXCLUDED.summary IN entities.summary) > 0 THEN entities.summary
					ELSE left(entities.summary || ' ' || EXCLUDED.summary, 4000)
				END,
				attributes = entities.attributes || EXCLUDED.attributes,
				last_seen  = GREATEST(entities.last_seen, EXCLUDED.last_seen),
				embedding  = EXCLUDED.embedding
		`,
			entity.PublicID,
			partitionKey,
			entity.Name,
			entity.Type,
			entity.Summary,
			entity.DedupeKey,
			entity.FirstSeen,
			entity.LastSeen,
			attrs,
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert entity %s: %w", entity.DedupeKey, err)
		}
	}

	return tx.Commit(ctx)
}

// UpsertRelationships applies candidate edges in one transaction. Termination
// closes the matching open edge via a conditional update (a closed edge stays
// closed); creation relies on the partial unique index over open edges so a
// duplicate open candidate is a no-op.
func (s *GraphDBStorage) UpsertRelationships(
	ctx context.Context,
	partitionKey string,
	relations []store.RelationshipUpsert,
) error {
	if len(relations) == 0 {
		return nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, rel := range relations {
		var sourceID, targetID int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM entities WHERE partition_key = $1 AND dedupe_key = $2`,
			partitionKey, rel.SourceDedupeKey,
		).Scan(&sourceID)
		if err != nil {
			return fmt.Errorf("failed to resolve source entity %s: %w", rel.SourceDedupeKey, err)
		}
		err = tx.QueryRow(ctx,
			`SELECT id FROM entities WHERE partition_key = $1 AND dedupe_key = $2`,
			partitionKey, rel.TargetDedupeKey,
		).Scan(&targetID)
		if err != nil {
			return fmt.Errorf("failed to resolve target entity %s: %w", rel.TargetDedupeKey, err)
		}

		if rel.Terminated {
			_, err = tx.Exec(ctx, `
				UPDATE relationships
				SET valid_until = $5
				WHERE partition_key = $1 AND source_id = $2 AND target_id = $3
					AND label = $4 AND valid_until IS NULL
			`, partitionKey, sourceID, targetID, rel.Label, rel.Timestamp)
			if err != nil {
				return fmt.Errorf("failed to close relationship %s: %w", rel.Label, err)
			}
			continue
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO relationships (
				public_id, partition_key, source_id, target_id, label,
				valid_from, valid_until, episode_public_id
			)
			VALUES ($1, $2, $3, $4, $5, $6, NULL, $7)
			ON CONFLICT (partition_key, source_id, target_id, label)
				WHERE valid_until IS NULL
				DO NOTHING
		`, rel.PublicID, partitionKey, sourceID, targetID, rel.Label, rel.Timestamp, rel.EpisodePublicID)
		if err != nil {
			return fmt.Errorf("failed to insert relationship %s: %w", rel.Label, err)
		}
	}

	return tx.Commit(ctx)
}

// SaveEpisode persists the episode record. public_id uniqueness makes the
// write idempotent under retry.
func (s *GraphDBStorage) SaveEpisode(ctx context.Context, episode common.Episode, embedding []float32) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO episodes (
			public_id, partition_key, content, episode_type,
			source_description, received_at, valid_from, embedding
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (public_id) DO NOTHING
	`,
		episode.PublicID,
		episode.PartitionKey,
		episode.Content,
		string(episode.EpisodeType),
		episode.SourceDescription,
		episode.ReceivedAt,
		episode.ValidFrom,
		pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to save episode %s: %w", episode.PublicID, err)
	}
	return nil
}
