// Package memory provides an in-memory GraphStorage used by tests and by
// local development without a database. It mirrors the PostgreSQL
// implementation's semantics: partition-scoped everything, exactly-once
// entity creation per dedupe key, and open-edge compare-and-set closure.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/store"
)

type entityRecord struct {
	entity    common.Entity
	embedding []float32
}

type episodeRecord struct {
	episode   common.Episode
	embedding []float32
}

type relRecord struct {
	publicID        string
	sourceKey       string
	targetKey       string
	label           string
	validFrom       time.Time
	validUntil      *time.Time
	episodePublicID string
}

// MemoryStorage implements store.GraphStorage with plain maps behind a
// RWMutex. Safe for concurrent use.
type MemoryStorage struct {
	mu            sync.RWMutex
	entities      map[string]map[string]*entityRecord
	episodes      map[string][]episodeRecord
	relationships map[string][]*relRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entities:      map[string]map[string]*entityRecord{},
		episodes:      map[string][]episodeRecord{},
		relationships: map[string][]*relRecord{},
	}
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) UpsertEntities(
	ctx context.Context,
	partitionKey string,
	entities []common.Entity,
	embeddings [][]float32,
) error {
	if len(entities) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	partition := s.entities[partitionKey]
	if partition == nil {
		partition = map[string]*entityRecord{}
		s.entities[partitionKey] = partition
	}

	for i, entity := range entities {
		var embedding []float32
		if i < len(embeddings) {
			embedding = embeddings[i]
		}
		existing, ok := partition[entity.DedupeKey]
		if !ok {
			entity.PartitionKey = partitionKey
			if entity.Attributes == nil {
				entity.Attributes = map[string]string{}
			}
			partition[entity.DedupeKey] = &entityRecord{entity: entity, embedding: embedding}
			continue
		}
		existing.entity.Name = entity.Name
		if entity.Summary != "" && !strings.Contains(existing.entity.Summary, entity.Summary) {
			if existing.entity.Summary == "" {
				existing.entity.Summary = entity.Summary
			} else {
				existing.entity.Summary += " " + entity.Summary
			}
		}
		for k, v := range entity.Attributes {
			if existing.entity.Attributes == nil {
				existing.entity.Attributes = map[string]string{}
			}
			existing.entity.Attributes[k] = v
		}
		if entity.LastSeen.After(existing.entity.LastSeen) {
			existing.entity.LastSeen = entity.LastSeen
		}
		if embedding != nil {
			existing.embedding = embedding
		}
	}
	return nil
}

func (s *MemoryStorage) UpsertRelationships(
	ctx context.Context,
	partitionKey string,
	relations []store.RelationshipUpsert,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	partition := s.entities[partitionKey]
	for _, rel := range relations {
		if partition == nil || partition[rel.SourceDedupeKey] == nil || partition[rel.TargetDedupeKey] == nil {
			return common.ErrStoreWriteFailed
		}

		var open *relRecord
		for _, existing := range s.relationships[partitionKey] {
			if existing.sourceKey == rel.SourceDedupeKey &&
				existing.targetKey == rel.TargetDedupeKey &&
				existing.label == rel.Label &&
				existing.validUntil == nil {
				open = existing
				break
			}
		}

		if rel.Terminated {
			if open != nil {
				until := rel.Timestamp
				open.validUntil = &until
			}
			continue
		}
		if open != nil {
			// Duplicate open candidate, absorbed.
			continue
		}
		s.relationships[partitionKey] = append(s.relationships[partitionKey], &relRecord{
			publicID:        rel.PublicID,
			sourceKey:       rel.SourceDedupeKey,
			targetKey:       rel.TargetDedupeKey,
			label:           rel.Label,
			validFrom:       rel.Timestamp,
			episodePublicID: rel.EpisodePublicID,
		})
	}
	return nil
}

func (s *MemoryStorage) SaveEpisode(ctx context.Context, episode common.Episode, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.episodes[episode.PartitionKey] {
		if existing.episode.PublicID == episode.PublicID {
			return nil
		}
	}
	s.episodes[episode.PartitionKey] = append(s.episodes[episode.PartitionKey], episodeRecord{
		episode:   episode,
		embedding: embedding,
	})
	return nil
}

func (s *MemoryStorage) SemanticSearch(
	ctx context.Context,
	partitionKey string,
	embedding []float32,
	limit int,
) ([]store.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := []store.SearchHit{}
	for _, rec := range s.entities[partitionKey] {
		score := cosine(embedding, rec.embedding)
		if score <= 0 {
			continue
		}
		hits = append(hits, store.SearchHit{
			Kind:     common.ResultKindEntity,
			PublicID: rec.entity.PublicID,
			Name:     rec.entity.Name,
			Content:  rec.entity.Summary,
			Score:    score,
			LastSeen: rec.entity.LastSeen,
		})
	}
	for _, rec := range s.episodes[partitionKey] {
		score := cosine(embedding, rec.embedding)
		if score <= 0 {
			continue
		}
		hits = append(hits, store.SearchHit{
			Kind:     common.ResultKindEpisode,
			PublicID: rec.episode.PublicID,
			Content:  rec.episode.Content,
			Score:    score,
			LastSeen: rec.episode.ReceivedAt,
		})
	}
	sortHits(hits)
	return truncate(hits, limit), nil
}

func (s *MemoryStorage) LexicalSearch(
	ctx context.Context,
	partitionKey string,
	query string,
	limit int,
) ([]store.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := tokenize(query)
	if len(terms) == 0 {
		return []store.SearchHit{}, nil
	}

	hits := []store.SearchHit{}
	for _, rec := range s.entities[partitionKey] {
		score := termOverlap(terms, tokenize(rec.entity.Name+" "+rec.entity.Summary))
		if score <= 0 {
			continue
		}
		hits = append(hits, store.SearchHit{
			Kind:     common.ResultKindEntity,
			PublicID: rec.entity.PublicID,
			Name:     rec.entity.Name,
			Content:  rec.entity.Summary,
			Score:    score,
			LastSeen: rec.entity.LastSeen,
		})
	}
	for _, rec := range s.episodes[partitionKey] {
		score := termOverlap(terms, tokenize(rec.episode.Content))
		if score <= 0 {
			continue
		}
		hits = append(hits, store.SearchHit{
			Kind:     common.ResultKindEpisode,
			PublicID: rec.episode.PublicID,
			Content:  rec.episode.Content,
			Score:    score,
			LastSeen: rec.episode.ReceivedAt,
		})
	}
	sortHits(hits)
	return truncate(hits, limit), nil
}

func (s *MemoryStorage) TraversalSearch(
	ctx context.Context,
	partitionKey string,
	query string,
	maxHops int,
	limit int,
) ([]store.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := tokenize(query)
	if len(terms) == 0 {
		return []store.SearchHit{}, nil
	}

	// Seed on entities whose text matches the query, then walk edges
	// outward with a per-hop decay. Closed edges still contribute, just
	// weaker than current ones.
	scores := map[string]float64{}
	frontier := map[string]float64{}
	for key, rec := range s.entities[partitionKey] {
		if termOverlap(terms, tokenize(rec.entity.Name+" "+rec.entity.Summary)) > 0 {
			scores[key] = 1.0
			frontier[key] = 1.0
		}
	}

	for hop := 0; hop < maxHops; hop++ {
		next := map[string]float64{}
		for _, rel := range s.relationships[partitionKey] {
			decay := 0.5
			if rel.validUntil != nil {
				decay *= 0.7
			}
			if base, ok := frontier[rel.sourceKey]; ok {
				next[rel.targetKey] = math.Max(next[rel.targetKey], base*decay)
			}
			if base, ok := frontier[rel.targetKey]; ok {
				next[rel.sourceKey] = math.Max(next[rel.sourceKey], base*decay)
			}
		}
		frontier = map[string]float64{}
		for key, score := range next {
			if score > scores[key] {
				scores[key] = score
				frontier[key] = score
			}
		}
		if len(frontier) == 0 {
			break
		}
	}

	hits := []store.SearchHit{}
	for key, score := range scores {
		rec := s.entities[partitionKey][key]
		if rec == nil {
			continue
		}
		hits = append(hits, store.SearchHit{
			Kind:     common.ResultKindEntity,
			PublicID: rec.entity.PublicID,
			Name:     rec.entity.Name,
			Content:  rec.entity.Summary,
			Score:    score,
			LastSeen: rec.entity.LastSeen,
		})
	}
	sortHits(hits)
	return truncate(hits, limit), nil
}

func (s *MemoryStorage) ListEntities(ctx context.Context, partitionKey string) ([]common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entities := []common.Entity{}
	for _, rec := range s.entities[partitionKey] {
		entities = append(entities, rec.entity)
	}
	sort.Slice(entities, func(i, j int) bool {
		if !entities[i].LastSeen.Equal(entities[j].LastSeen) {
			return entities[i].LastSeen.After(entities[j].LastSeen)
		}
		return entities[i].PublicID < entities[j].PublicID
	})
	return entities, nil
}

func (s *MemoryStorage) ListRelationships(
	ctx context.Context,
	partitionKey string,
	asOf *time.Time,
	openOnly bool,
) ([]common.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	relationships := []common.Relationship{}
	for _, rel := range s.relationships[partitionKey] {
		if openOnly && rel.validUntil != nil {
			continue
		}
		if asOf != nil {
			if rel.validFrom.After(*asOf) {
				continue
			}
			if rel.validUntil != nil && !rel.validUntil.After(*asOf) {
				continue
			}
		}
		source := s.entities[partitionKey][rel.sourceKey]
		target := s.entities[partitionKey][rel.targetKey]
		if source == nil || target == nil {
			continue
		}
		relationships = append(relationships, common.Relationship{
			PublicID:        rel.publicID,
			PartitionKey:    partitionKey,
			SourcePublicID:  source.entity.PublicID,
			TargetPublicID:  target.entity.PublicID,
			SourceName:      source.entity.Name,
			TargetName:      target.entity.Name,
			Label:           rel.label,
			ValidFrom:       rel.validFrom,
			ValidUntil:      rel.validUntil,
			EpisodePublicID: rel.episodePublicID,
		})
	}
	sort.Slice(relationships, func(i, j int) bool {
		if !relationships[i].ValidFrom.Equal(relationships[j].ValidFrom) {
			return relationships[i].ValidFrom.After(relationships[j].ValidFrom)
		}
		return relationships[i].PublicID < relationships[j].PublicID
	})
	return relationships, nil
}

func (s *MemoryStorage) Stats(ctx context.Context, partitionKey string) (common.TenantStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return common.TenantStats{
		EntityCount:       int64(len(s.entities[partitionKey])),
		RelationshipCount: int64(len(s.relationships[partitionKey])),
		EpisodeCount:      int64(len(s.episodes[partitionKey])),
	}, nil
}

func (s *MemoryStorage) Purge(ctx context.Context, partitionKey string) (store.PurgeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := store.PurgeResult{
		RelationshipsDeleted: int64(len(s.relationships[partitionKey])),
		EntitiesDeleted:      int64(len(s.entities[partitionKey])),
		EpisodesDeleted:      int64(len(s.episodes[partitionKey])),
		Complete:             true,
	}
	delete(s.relationships, partitionKey)
	delete(s.entities, partitionKey)
	delete(s.episodes, partitionKey)
	return result, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func termOverlap(queryTerms, docTerms []string) float64 {
	if len(docTerms) == 0 {
		return 0
	}
	counts := map[string]int{}
	for _, term := range docTerms {
		counts[term]++
	}
	matched := 0.0
	for _, term := range queryTerms {
		matched += float64(counts[term])
	}
	return matched / float64(len(docTerms))
}

func sortHits(hits []store.SearchHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].LastSeen.Equal(hits[j].LastSeen) {
			return hits[i].LastSeen.After(hits[j].LastSeen)
		}
		return hits[i].PublicID < hits[j].PublicID
	})
}

func truncate(hits []store.SearchHit, limit int) []store.SearchHit {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
