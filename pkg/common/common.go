package common

import "time"

// EpisodeType classifies the origin of an ingested episode.
type EpisodeType string

const (
	EpisodeTypeConversation EpisodeType = "conversation"
	EpisodeTypeEvent        EpisodeType = "event"
	EpisodeTypeDocument     EpisodeType = "document"
)

// ValidEpisodeType reports whether t is a known episode type.
func ValidEpisodeType(t EpisodeType) bool {
	switch t {
	case EpisodeTypeConversation, EpisodeTypeEvent, EpisodeTypeDocument:
		return true
	}
	return false
}

// Episode is a single ingested unit of text with temporal metadata.
// Episodes are immutable once stored and are only removed by a tenant purge.
type Episode struct {
	PublicID          string      `json:"id"`
	PartitionKey      string      `json:"-"`
	Content           string      `json:"content"`
	EpisodeType       EpisodeType `json:"episode_type"`
	SourceDescription string      `json:"source_description,omitempty"`
	ReceivedAt        time.Time   `json:"received_at"`
	ValidFrom         time.Time   `json:"valid_from"`
}

// Entity is a deduplicated node in the tenant graph. Equivalent entities within
// one partition share a dedupe key and are merged on ingestion rather than
// duplicated.
type Entity struct {
	PublicID     string            `json:"id"`
	PartitionKey string            `json:"-"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Summary      string            `json:"summary,omitempty"`
	DedupeKey    string            `json:"-"`
	FirstSeen    time.Time         `json:"first_seen"`
	LastSeen     time.Time         `json:"last_seen"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Relationship is a directed, temporally scoped edge between two entities.
// A nil ValidUntil marks the relationship as currently valid. Closure sets
// ValidUntil once; a closed edge is never reopened and never deleted outside
// a tenant purge, so historical queries keep working.
type Relationship struct {
	PublicID        string     `json:"id"`
	PartitionKey    string     `json:"-"`
	SourcePublicID  string     `json:"source_id"`
	TargetPublicID  string     `json:"target_id"`
	SourceName      string     `json:"source_name,omitempty"`
	TargetName      string     `json:"target_name,omitempty"`
	Label           string     `json:"label"`
	ValidFrom       time.Time  `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	EpisodePublicID string     `json:"episode_id,omitempty"`
}

// Open reports whether the relationship interval is still open.
func (r Relationship) Open() bool {
	return r.ValidUntil == nil
}

// ValidAt reports whether the relationship was valid at the given instant.
func (r Relationship) ValidAt(t time.Time) bool {
	if t.Before(r.ValidFrom) {
		return false
	}
	return r.ValidUntil == nil || t.Before(*r.ValidUntil)
}

// Signal names a retrieval strategy that contributed to a search result.
type Signal string

const (
	SignalSemantic Signal = "semantic"
	SignalLexical  Signal = "lexical"
	SignalGraph    Signal = "graph"
)

// ResultKind distinguishes entity hits from episode hits.
type ResultKind string

const (
	ResultKindEntity  ResultKind = "entity"
	ResultKindEpisode ResultKind = "episode"
)

// SearchResult is a single ranked hit from hybrid search. Results are computed
// per query and never persisted.
type SearchResult struct {
	Kind     ResultKind `json:"kind"`
	PublicID string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Content  string     `json:"content,omitempty"`
	Score    float64    `json:"score"`
	Signals  []Signal   `json:"signals"`
	LastSeen time.Time  `json:"last_seen"`
}

// TenantStats summarizes the record counts under one partition.
type TenantStats struct {
	EntityCount       int64 `json:"entity_count"`
	RelationshipCount int64 `json:"relationship_count"`
	EpisodeCount      int64 `json:"episode_count"`
}
