package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/turkwise/graphmem/pkg/ai"
	"github.com/turkwise/graphmem/pkg/ai/stub"
	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/store"
	"github.com/turkwise/graphmem/pkg/store/memory"
)

// embedFailingAI behaves like the stub adapter except that embedding
// requests fail, as during an embedding backend outage.
type embedFailingAI struct {
	ai.GraphAIClient
}

func (f *embedFailingAI) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return nil, errors.New("embedding backend down")
}

// searchFailingStore fails every retrieval strategy.
type searchFailingStore struct {
	store.GraphStorage
}

func (s *searchFailingStore) SemanticSearch(ctx context.Context, partitionKey string, embedding []float32, limit int) ([]store.SearchHit, error) {
	return nil, errors.New("store down")
}

func (s *searchFailingStore) LexicalSearch(ctx context.Context, partitionKey string, query string, limit int) ([]store.SearchHit, error) {
	return nil, errors.New("store down")
}

func (s *searchFailingStore) TraversalSearch(ctx context.Context, partitionKey string, query string, maxHops int, limit int) ([]store.SearchHit, error) {
	return nil, errors.New("store down")
}

func newSearchClient(t *testing.T, storage store.GraphStorage, aiClient ai.GraphAIClient) *GraphClient {
	t.Helper()
	client, err := NewGraphClient(NewGraphClientParams{
		Store:           storage,
		AI:              aiClient,
		UnitTokens:      200,
		MaxRetries:      1,
		RetryBackoff:    time.Millisecond,
		SearchMaxLimit:  20,
		StrategyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewGraphClient: %v", err)
	}
	return client
}

func TestSearchDegradedOnEmbeddingOutage(t *testing.T) {
	storage := memory.NewMemoryStorage()
	healthy := newSearchClient(t, storage, stub.NewClient(64))
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ingest(t, healthy, "Customer asked ACME about order #42 and the delayed delivery.", at)

	broken := newSearchClient(t, storage, &embedFailingAI{stub.NewClient(64)})
	results, degraded, err := broken.Search(context.Background(), testPartition, "order #42", 10)
	if err != nil {
		t.Fatalf("Search should survive a single failed strategy: %v", err)
	}
	if !degraded {
		t.Error("a failed semantic strategy should mark the response degraded")
	}
	if len(results) == 0 {
		t.Fatal("lexical and graph strategies should still produce results")
	}
	for _, result := range results {
		for _, signal := range result.Signals {
			if signal == common.SignalSemantic {
				t.Errorf("result %q carries a signal from the failed strategy", result.Name)
			}
		}
	}
}

func TestSearchUnavailableWhenAllStrategiesFail(t *testing.T) {
	storage := &searchFailingStore{memory.NewMemoryStorage()}
	client := newSearchClient(t, storage, stub.NewClient(64))

	_, degraded, err := client.Search(context.Background(), testPartition, "anything", 10)
	if !errors.Is(err, common.ErrSearchUnavailable) {
		t.Fatalf("expected ErrSearchUnavailable, got %v", err)
	}
	if degraded {
		t.Error("total failure is an error, not a degraded response")
	}
}
