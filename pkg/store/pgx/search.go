package pgx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/store"
)

// SemanticSearch ranks entities and episodes by cosine similarity between the
// query embedding and their stored embeddings.
func (s *GraphDBStorage) SemanticSearch(
	ctx context.Context,
	partitionKey string,
	embedding []float32,
	limit int,
) ([]store.SearchHit, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT kind, public_id, name, content, 1 - (embedding <=> $2) AS score, last_seen
		FROM (
			SELECT 'entity' AS kind, public_id, name, summary AS content,
				embedding, last_seen
			FROM entities
			WHERE partition_key = $1 AND embedding IS NOT NULL
			UNION ALL
			SELECT 'episode' AS kind, public_id, '' AS name, content,
				embedding, received_at AS last_seen
			FROM episodes
			WHERE partition_key = $1 AND embedding IS NOT NULL
		) candidates
		ORDER BY embedding <=> $2
		LIMIT $3
	`, partitionKey, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search query failed: %w", err)
	}
	return scanHits(rows)
}

// LexicalSearch ranks entities and episodes with full-text relevance over
// entity names plus summaries and episode content.
func (s *GraphDBStorage) LexicalSearch(
	ctx context.Context,
	partitionKey string,
	query string,
	limit int,
) ([]store.SearchHit, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT kind, public_id, name, content, score, last_seen
		FROM (
			SELECT 'entity' AS kind, e.public_id, e.name, e.summary AS content,
				ts_rank_cd(e.search_tsv, q)::float8 AS score, e.last_seen
			FROM entities e, websearch_to_tsquery('english', $2) q
			WHERE e.partition_key = $1 AND e.search_tsv @@ q
			UNION ALL
			SELECT 'episode' AS kind, ep.public_id, '' AS name, ep.content,
				ts_rank_cd(ep.content_tsv, q)::float8 AS score, ep.received_at AS last_seen
			FROM episodes ep, websearch_to_tsquery('english', $2) q
			WHERE ep.partition_key = $1 AND ep.content_tsv @@ q
		) candidates
		ORDER BY score DESC
		LIMIT $3
	`, partitionKey, query, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search query failed: %w", err)
	}
	return scanHits(rows)
}

// TraversalSearch seeds on entities whose text matches the query, then walks
// relationships outward up to maxHops, decaying the score per hop and
// discounting edges that are no longer current.
func (s *GraphDBStorage) TraversalSearch(
	ctx context.Context,
	partitionKey string,
	query string,
	maxHops int,
	limit int,
) ([]store.SearchHit, error) {
	rows, err := s.conn.Query(ctx, `
		WITH RECURSIVE seeds AS (
			SELECT e.id, 1.0::float8 AS score
			FROM entities e, websearch_to_tsquery('english', $2) q
			WHERE e.partition_key = $1 AND e.search_tsv @@ q
			ORDER BY ts_rank_cd(e.search_tsv, q) DESC
			LIMIT 8
		), walk AS (
			SELECT id, score, 0 AS hops FROM seeds
			UNION ALL
			SELECT
				CASE WHEN r.source_id = w.id THEN r.target_id ELSE r.source_id END,
				w.score * 0.5 * CASE WHEN r.valid_until IS NULL THEN 1.0 ELSE 0.7 END,
				w.hops + 1
			FROM walk w
			JOIN relationships r
				ON r.partition_key = $1
				AND (r.source_id = w.id OR r.target_id = w.id)
			WHERE w.hops < $3
		)
		SELECT 'entity' AS kind, e.public_id, e.name, e.summary AS content,
			MAX(w.score) AS score, e.last_seen
		FROM walk w
		JOIN entities e ON e.id = w.id
		GROUP BY e.id, e.public_id, e.name, e.summary, e.last_seen
		ORDER BY score DESC, e.last_seen DESC
		LIMIT $4
	`, partitionKey, query, maxHops, limit)
	if err != nil {
		return nil, fmt.Errorf("traversal search query failed: %w", err)
	}
	return scanHits(rows)
}

func scanHits(rows pgx.Rows) ([]store.SearchHit, error) {
	defer rows.Close()
	hits := []store.SearchHit{}
	for rows.Next() {
		var hit store.SearchHit
		var kind string
		if err := rows.Scan(&kind, &hit.PublicID, &hit.Name, &hit.Content, &hit.Score, &hit.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		hit.Kind = common.ResultKind(kind)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}
