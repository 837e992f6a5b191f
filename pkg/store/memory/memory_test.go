package memory

import (
	"context"
	"testing"
	"time"

	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/store"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seedEntity(t *testing.T, s *MemoryStorage, partition, name, dedupeKey string) {
	t.Helper()
	err := s.UpsertEntities(context.Background(), partition, []common.Entity{{
		PublicID:  "ent_" + dedupeKey,
		Name:      name,
		Type:      "CONCEPT",
		DedupeKey: dedupeKey,
		FirstSeen: baseTime,
		LastSeen:  baseTime,
	}}, [][]float32{{1, 0, 0}})
	if err != nil {
		t.Fatalf("UpsertEntities: %v", err)
	}
}

func TestUpsertEntitiesMergesOnDedupeKey(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	first := common.Entity{
		PublicID:   "ent_1",
		Name:       "ACME",
		Type:       "ORGANIZATION",
		DedupeKey:  "acme\x1forganization",
		Summary:    "mentioned in onboarding",
		FirstSeen:  baseTime,
		LastSeen:   baseTime,
		Attributes: map[string]string{"industry": "logistics"},
	}
	if err := s.UpsertEntities(ctx, "turkwise_a", []common.Entity{first}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := first
	second.PublicID = "ent_2"
	second.Summary = "shipped order #42"
	second.LastSeen = baseTime.Add(time.Hour)
	second.Attributes = map[string]string{"industry": "shipping", "hq": "Berlin"}
	if err := s.UpsertEntities(ctx, "turkwise_a", []common.Entity{second}, [][]float32{{0, 1}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	entities, err := s.ListEntities(ctx, "turkwise_a")
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity after merge, got %d", len(entities))
	}
	got := entities[0]
	if got.PublicID != "ent_1" {
		t.Errorf("merge must keep the original public id, got %s", got.PublicID)
	}
	if !got.LastSeen.Equal(baseTime.Add(time.Hour)) {
		t.Errorf("last_seen did not advance: %v", got.LastSeen)
	}
	if got.Attributes["industry"] != "shipping" || got.Attributes["hq"] != "Berlin" {
		t.Errorf("attributes not unioned with new values winning: %v", got.Attributes)
	}
	if got.Summary != "mentioned in onboarding shipped order #42" {
		t.Errorf("summaries not accumulated: %q", got.Summary)
	}
}

func TestPartitionIsolation(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	seedEntity(t, s, "turkwise_a", "Alice", "alice\x1fperson")
	seedEntity(t, s, "turkwise_b", "Bob", "bob\x1fperson")

	entities, err := s.ListEntities(ctx, "turkwise_a")
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if len(entities) != 1 || entities[0].Name != "Alice" {
		t.Fatalf("partition a leaked: %v", entities)
	}

	hits, err := s.LexicalSearch(ctx, "turkwise_a", "Bob", 10)
	if err != nil {
		t.Fatalf("LexicalSearch: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("lexical search crossed partitions: %v", hits)
	}
}

func TestRelationshipLifecycle(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	seedEntity(t, s, "turkwise_a", "Alice", "alice\x1fperson")
	seedEntity(t, s, "turkwise_a", "ACME", "acme\x1forganization")

	open := store.RelationshipUpsert{
		PublicID:        "rel_1",
		SourceDedupeKey: "alice\x1fperson",
		TargetDedupeKey: "acme\x1forganization",
		Label:           "works_at",
		Timestamp:       baseTime,
	}
	if err := s.UpsertRelationships(ctx, "turkwise_a", []store.RelationshipUpsert{open}); err != nil {
		t.Fatalf("open: %v", err)
	}

	// A duplicate open candidate is absorbed.
	dup := open
	dup.PublicID = "rel_2"
	dup.Timestamp = baseTime.Add(time.Hour)
	if err := s.UpsertRelationships(ctx, "turkwise_a", []store.RelationshipUpsert{dup}); err != nil {
		t.Fatalf("dup: %v", err)
	}
	rels, _ := s.ListRelationships(ctx, "turkwise_a", nil, false)
	if len(rels) != 1 || rels[0].PublicID != "rel_1" {
		t.Fatalf("duplicate open edge not absorbed: %v", rels)
	}

	closedAt := baseTime.Add(2 * time.Hour)
	terminate := open
	terminate.Terminated = true
	terminate.Timestamp = closedAt
	if err := s.UpsertRelationships(ctx, "turkwise_a", []store.RelationshipUpsert{terminate}); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	rels, _ = s.ListRelationships(ctx, "turkwise_a", nil, false)
	if rels[0].ValidUntil == nil || !rels[0].ValidUntil.Equal(closedAt) {
		t.Fatalf("edge not closed at termination time: %v", rels[0].ValidUntil)
	}

	// Terminating again must not move the closure time.
	terminate.Timestamp = baseTime.Add(5 * time.Hour)
	if err := s.UpsertRelationships(ctx, "turkwise_a", []store.RelationshipUpsert{terminate}); err != nil {
		t.Fatalf("re-terminate: %v", err)
	}
	rels, _ = s.ListRelationships(ctx, "turkwise_a", nil, false)
	if !rels[0].ValidUntil.Equal(closedAt) {
		t.Errorf("closed edge was reopened or re-closed: %v", rels[0].ValidUntil)
	}

	// A fresh open candidate after closure starts a new interval.
	reopen := open
	reopen.PublicID = "rel_3"
	reopen.Timestamp = baseTime.Add(6 * time.Hour)
	if err := s.UpsertRelationships(ctx, "turkwise_a", []store.RelationshipUpsert{reopen}); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	openRels, _ := s.ListRelationships(ctx, "turkwise_a", nil, true)
	if len(openRels) != 1 || openRels[0].PublicID != "rel_3" {
		t.Fatalf("expected one new open edge, got %v", openRels)
	}
}

func TestListRelationshipsAsOf(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	seedEntity(t, s, "turkwise_a", "Alice", "alice\x1fperson")
	seedEntity(t, s, "turkwise_a", "ACME", "acme\x1forganization")

	rel := store.RelationshipUpsert{
		PublicID:        "rel_1",
		SourceDedupeKey: "alice\x1fperson",
		TargetDedupeKey: "acme\x1forganization",
		Label:           "works_at",
		Timestamp:       baseTime,
	}
	if err := s.UpsertRelationships(ctx, "turkwise_a", []store.RelationshipUpsert{rel}); err != nil {
		t.Fatal(err)
	}
	rel.Terminated = true
	rel.Timestamp = baseTime.Add(24 * time.Hour)
	if err := s.UpsertRelationships(ctx, "turkwise_a", []store.RelationshipUpsert{rel}); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		asOf time.Time
		want int
	}{
		{"before interval", baseTime.Add(-time.Hour), 0},
		{"inside interval", baseTime.Add(time.Hour), 1},
		{"at closure (exclusive)", baseTime.Add(24 * time.Hour), 0},
		{"after closure", baseTime.Add(48 * time.Hour), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			asOf := tc.asOf
			rels, err := s.ListRelationships(ctx, "turkwise_a", &asOf, false)
			if err != nil {
				t.Fatal(err)
			}
			if len(rels) != tc.want {
				t.Errorf("asOf %v: got %d edges, want %d", tc.asOf, len(rels), tc.want)
			}
		})
	}
}

func TestTraversalSearchReachesNeighbors(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	seedEntity(t, s, "turkwise_a", "Alice", "alice\x1fperson")
	seedEntity(t, s, "turkwise_a", "ACME", "acme\x1forganization")
	seedEntity(t, s, "turkwise_a", "Berlin", "berlin\x1flocation")

	rels := []store.RelationshipUpsert{
		{PublicID: "rel_1", SourceDedupeKey: "alice\x1fperson", TargetDedupeKey: "acme\x1forganization", Label: "works_at", Timestamp: baseTime},
		{PublicID: "rel_2", SourceDedupeKey: "acme\x1forganization", TargetDedupeKey: "berlin\x1flocation", Label: "located_in", Timestamp: baseTime},
	}
	if err := s.UpsertRelationships(ctx, "turkwise_a", rels); err != nil {
		t.Fatal(err)
	}

	hits, err := s.TraversalSearch(ctx, "turkwise_a", "Alice", 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected seed plus two hops, got %d hits", len(hits))
	}
	if hits[0].Name != "Alice" {
		t.Errorf("seed should rank first, got %s", hits[0].Name)
	}
	// Two hops away scores below one hop away.
	var acmeScore, berlinScore float64
	for _, hit := range hits {
		switch hit.Name {
		case "ACME":
			acmeScore = hit.Score
		case "Berlin":
			berlinScore = hit.Score
		}
	}
	if berlinScore >= acmeScore {
		t.Errorf("hop decay violated: berlin=%v acme=%v", berlinScore, acmeScore)
	}

	hits, err = s.TraversalSearch(ctx, "turkwise_a", "Alice", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, hit := range hits {
		if hit.Name == "Berlin" {
			t.Error("maxHops=1 must not reach two hops out")
		}
	}
}

func TestPurgeIsCompleteAndIdempotent(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	seedEntity(t, s, "turkwise_a", "Alice", "alice\x1fperson")
	seedEntity(t, s, "turkwise_a", "ACME", "acme\x1forganization")
	seedEntity(t, s, "turkwise_b", "Bob", "bob\x1fperson")
	if err := s.UpsertRelationships(ctx, "turkwise_a", []store.RelationshipUpsert{{
		PublicID:        "rel_1",
		SourceDedupeKey: "alice\x1fperson",
		TargetDedupeKey: "acme\x1forganization",
		Label:           "works_at",
		Timestamp:       baseTime,
	}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveEpisode(ctx, common.Episode{
		PublicID:     "ep_1",
		PartitionKey: "turkwise_a",
		Content:      "Alice joined ACME",
		EpisodeType:  common.EpisodeTypeEvent,
		ReceivedAt:   baseTime,
		ValidFrom:    baseTime,
	}, []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}

	result, err := s.Purge(ctx, "turkwise_a")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Complete {
		t.Error("purge should report complete")
	}
	if result.EntitiesDeleted != 2 || result.RelationshipsDeleted != 1 || result.EpisodesDeleted != 1 {
		t.Errorf("unexpected purge counts: %+v", result)
	}

	stats, err := s.Stats(ctx, "turkwise_a")
	if err != nil {
		t.Fatal(err)
	}
	if stats != (common.TenantStats{}) {
		t.Errorf("partition not empty after purge: %+v", stats)
	}

	// Other partitions are untouched; re-purging is a no-op.
	other, _ := s.Stats(ctx, "turkwise_b")
	if other.EntityCount != 1 {
		t.Errorf("purge leaked into another partition: %+v", other)
	}
	again, err := s.Purge(ctx, "turkwise_a")
	if err != nil {
		t.Fatal(err)
	}
	if !again.Complete || again.EntitiesDeleted != 0 {
		t.Errorf("re-purge should be a complete no-op: %+v", again)
	}
}
