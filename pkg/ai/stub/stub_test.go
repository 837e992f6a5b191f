package stub

import (
	"context"
	"reflect"
	"testing"
)

func TestGenerateEmbedding_Deterministic(t *testing.T) {
	c := NewClient(32)
	ctx := context.Background()

	first, err := c.GenerateEmbedding(ctx, []byte("customer asked about delivery"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.GenerateEmbedding(ctx, []byte("customer asked about delivery"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("embeddings for identical input differ")
	}
	if len(first) != 32 {
		t.Fatalf("expected 32 dimensions, got %d", len(first))
	}
}

func TestGenerateEmbedding_SharedTokensOverlap(t *testing.T) {
	c := NewClient(64)
	ctx := context.Background()

	a, err := c.GenerateEmbedding(ctx, []byte("delivery status for the order"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := c.GenerateEmbedding(ctx, []byte("delivery"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if dot <= 0 {
		t.Fatalf("expected positive similarity for overlapping tokens, got %f", dot)
	}
}

func TestGenerateCompletionWithFormat_ExtractsEntities(t *testing.T) {
	c := NewClient(0)

	var out struct {
		Entities []struct {
			Name string `json:"entity_name"`
			Type string `json:"entity_type"`
		} `json:"entities"`
		Relationships []struct {
			Source     string `json:"source_entity"`
			Target     string `json:"target_entity"`
			Label      string `json:"label"`
			Terminated bool   `json:"terminated"`
		} `json:"relationships"`
	}

	err := c.GenerateCompletionWithFormat(
		context.Background(),
		"extract", "extract entities",
		"Customer asked ACME about delivery for order #42",
		&out,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var foundOrder, foundOrg bool
	for _, e := range out.Entities {
		if e.Name == "order #42" && e.Type == "ORDER" {
			foundOrder = true
		}
		if e.Name == "ACME" && e.Type == "ORGANIZATION" {
			foundOrg = true
		}
	}
	if !foundOrder {
		t.Fatalf("expected order #42 entity, got %+v", out.Entities)
	}
	if !foundOrg {
		t.Fatalf("expected ACME entity, got %+v", out.Entities)
	}
	if len(out.Relationships) == 0 {
		t.Fatal("expected at least one relationship")
	}
	for _, r := range out.Relationships {
		if r.Terminated {
			t.Fatalf("did not expect terminated relationship: %+v", r)
		}
	}
}

func TestGenerateCompletionWithFormat_TerminationMarker(t *testing.T) {
	c := NewClient(0)

	var out struct {
		Relationships []struct {
			Terminated bool `json:"terminated"`
		} `json:"relationships"`
	}

	err := c.GenerateCompletionWithFormat(
		context.Background(),
		"extract", "extract entities",
		"Alice Johnson no longer works at ACME",
		&out,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Relationships) == 0 {
		t.Fatal("expected a relationship")
	}
	if !out.Relationships[0].Terminated {
		t.Fatal("expected relationship to be marked terminated")
	}
}
