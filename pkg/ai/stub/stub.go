// Package stub provides a deterministic ai.GraphAIClient for tests and local
// development. Embeddings are token-hash vectors and extraction is rule-based,
// so pipeline logic can be exercised without network calls while still
// producing stable, text-dependent results.
package stub

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/turkwise/graphmem/pkg/ai"
)

const defaultDimensions = 64

// Client implements ai.GraphAIClient deterministically.
type Client struct {
	dim int

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics
}

// NewClient returns a stub client producing vectors with the given dimension
// count (defaulting to 64 when dim <= 0).
func NewClient(dim int) *Client {
	if dim <= 0 {
		dim = defaultDimensions
	}
	return &Client{dim: dim}
}

// GenerateEmbedding returns an L2-normalized bag-of-words hash vector.
// Identical input always yields an identical vector, and texts sharing tokens
// yield vectors with positive cosine similarity.
func (c *Client) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, c.dim)
	tokens := tokenize(string(input))
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%c.dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}

	c.modifyMetrics(ai.ModelMetrics{InputTokens: len(tokens), TotalTokens: len(tokens)})
	return vec, nil
}

// GenerateEmbeddings embeds each input in order.
func (c *Client) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		emb, err := c.GenerateEmbedding(ctx, in)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

// GenerateCompletionWithFormat performs rule-based extraction over the prompt
// text and fills out with a response shaped like the real providers' JSON
// output: an object with "entities" and "relationships" arrays.
func (c *Client) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entities := extractEntities(prompt)
	relationships := extractRelationships(prompt, entities)

	entityObjs := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		entityObjs = append(entityObjs, map[string]any{
			"entity_name": e.name,
			"entity_type": e.kind,
			"attributes":  []map[string]any{},
		})
	}
	relationshipObjs := make([]map[string]any, 0, len(relationships))
	for _, r := range relationships {
		relationshipObjs = append(relationshipObjs, map[string]any{
			"source_entity": r.source,
			"target_entity": r.target,
			"label":         r.label,
			"terminated":    r.terminated,
		})
	}

	raw, err := json.Marshal(map[string]any{
		"entities":      entityObjs,
		"relationships": relationshipObjs,
	})
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(string(raw), out)
}

// GetMetrics returns the accumulated model metrics.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

// ResetMetrics clears the accumulated model metrics.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

func (c *Client) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += m.InputTokens
	c.metrics.TotalTokens += m.TotalTokens
}

type stubEntity struct {
	name string
	kind string
}

type stubRelationship struct {
	source     string
	target     string
	label      string
	terminated bool
}

var (
	tokenPattern      = regexp.MustCompile(`[A-Za-z0-9#_-]+`)
	referencePattern  = regexp.MustCompile(`(?i)\b((?:order|ticket|invoice|case)\s*#\d+)`)
	capitalizedRun    = regexp.MustCompile(`\b[A-Z][A-Za-z0-9&.-]*(?:\s+[A-Z][A-Za-z0-9&.-]*)*`)
	terminationMarker = regexp.MustCompile(`(?i)\b(no longer|ended|cancelled|canceled|stopped|quit|resigned|broke up)\b`)
)

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) > 1 {
			out = append(out, tok)
		}
	}
	return out
}

func extractEntities(text string) []stubEntity {
	seen := make(map[string]struct{})
	entities := make([]stubEntity, 0)

	add := func(name, kind string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		entities = append(entities, stubEntity{name: name, kind: kind})
	}

	for _, ref := range referencePattern.FindAllString(text, -1) {
		add(ref, "ORDER")
	}

	for _, run := range capitalizedRun.FindAllString(text, -1) {
		words := strings.Fields(run)
		// single sentence-initial words are too noisy to treat as entities
		if len(words) < 2 && !strings.EqualFold(run, strings.ToUpper(run)) {
			continue
		}
		kind := "CONCEPT"
		if run == strings.ToUpper(run) {
			kind = "ORGANIZATION"
		}
		add(run, kind)
	}

	return entities
}

func extractRelationships(text string, entities []stubEntity) []stubRelationship {
	if len(entities) < 2 {
		return nil
	}
	terminated := terminationMarker.MatchString(text)
	out := make([]stubRelationship, 0, len(entities)-1)
	for i := 0; i < len(entities)-1; i++ {
		out = append(out, stubRelationship{
			source:     entities[i].name,
			target:     entities[i+1].name,
			label:      "mentioned_with",
			terminated: terminated,
		})
	}
	return out
}
