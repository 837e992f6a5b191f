package store

import (
	"context"
	"time"

	"github.com/turkwise/graphmem/pkg/common"
)

// SearchHit is a raw, strategy-local retrieval hit before merging. Scores are
// only comparable within the strategy that produced them.
type SearchHit struct {
	Kind     common.ResultKind
	PublicID string
	Name     string
	Content  string
	Score    float64
	LastSeen time.Time
}

// RelationshipUpsert describes one candidate edge from extraction. Source and
// target reference entities by dedupe key within the same partition; the store
// resolves them to rows. Terminated closes the matching open edge instead of
// creating one.
type RelationshipUpsert struct {
	PublicID        string
	SourceDedupeKey string
	TargetDedupeKey string
	Label           string
	Terminated      bool
	Timestamp       time.Time
	EpisodePublicID string
}

// PurgeResult reports how far a tenant purge got. When Complete is false the
// per-step counts tell the caller which stage failed; every step is idempotent
// so the purge can simply be retried.
type PurgeResult struct {
	RelationshipsDeleted int64
	EntitiesDeleted      int64
	EpisodesDeleted      int64
	Complete             bool
}

// GraphStorage is the typed interface to the external graph database. Every
// operation is scoped to a single partition key; implementations must never
// read or write across partitions.
type GraphStorage interface {
	// UpsertEntities inserts or merges entities keyed by (partition, dedupe
	// key). Creation is exactly-once per dedupe key even under concurrent
	// ingestion; merges union attributes with last-write-wins per key and
	// advance last_seen. embeddings[i] belongs to entities[i].
	UpsertEntities(ctx context.Context, partitionKey string, entities []common.Entity, embeddings [][]float32) error

	// UpsertRelationships applies candidate edges. An open edge with the same
	// (source, target, label) absorbs duplicates; a Terminated candidate
	// closes the open edge with compare-and-set semantics and never reopens a
	// closed one.
	UpsertRelationships(ctx context.Context, partitionKey string, relations []RelationshipUpsert) error

	// SaveEpisode persists the episode record. Callers invoke this last so a
	// failed extraction never leaves an orphaned episode.
	SaveEpisode(ctx context.Context, episode common.Episode, embedding []float32) error

	SemanticSearch(ctx context.Context, partitionKey string, embedding []float32, limit int) ([]SearchHit, error)
	LexicalSearch(ctx context.Context, partitionKey string, query string, limit int) ([]SearchHit, error)

	// TraversalSearch seeds from lexically matching entities and expands up
	// to maxHops along relationship edges, preferring shorter and more
	// recently valid paths.
	TraversalSearch(ctx context.Context, partitionKey string, query string, maxHops int, limit int) ([]SearchHit, error)

	ListEntities(ctx context.Context, partitionKey string) ([]common.Entity, error)

	// ListRelationships returns edges under the partition. A non-nil asOf
	// filters to edges valid at that instant; openOnly filters to edges whose
	// interval is still open.
	ListRelationships(ctx context.Context, partitionKey string, asOf *time.Time, openOnly bool) ([]common.Relationship, error)

	Stats(ctx context.Context, partitionKey string) (common.TenantStats, error)

	// Purge deletes relationships, then entities, then episodes under the
	// partition. Steps are idempotent and re-entrant after interruption.
	Purge(ctx context.Context, partitionKey string) (PurgeResult, error)

	Ping(ctx context.Context) error
}
