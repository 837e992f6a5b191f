package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/turkwise/graphmem/pkg/ai"
	"github.com/turkwise/graphmem/pkg/common"
)

const maxMentionLength = 400

type extractAttribute struct {
	Key   string `json:"key" jsonschema_description:"Attribute name in snake_case"`
	Value string `json:"value" jsonschema_description:"Attribute value exactly as stated in the text"`
}

type extractEntity struct {
	EntityName string             `json:"entity_name" jsonschema_description:"Name of the entity, in its most complete form appearing in the text"`
	EntityType string             `json:"entity_type" jsonschema_description:"One of the provided entity types"`
	Attributes []extractAttribute `json:"attributes" jsonschema_description:"Attributes explicitly stated in the text for this entity"`
}

type extractRelationship struct {
	SourceEntity string `json:"source_entity" jsonschema_description:"Name of the source entity, as identified in the entity list"`
	TargetEntity string `json:"target_entity" jsonschema_description:"Name of the target entity, as identified in the entity list"`
	Label        string `json:"label" jsonschema_description:"Short snake_case label describing the relationship"`
	Terminated   bool   `json:"terminated" jsonschema_description:"True only when the text explicitly states the relationship has ended"`
}

type extractResponse struct {
	Entities      []extractEntity       `json:"entities" jsonschema_description:"Entities identified in the segment"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Relationships identified in the segment"`
}

// candidateEntity is an extracted entity before storage assignment. Mention
// carries the episode wording around the entity so lexical and semantic
// retrieval can later find the entity by how it was talked about.
type candidateEntity struct {
	name       string
	entityType string
	mention    string
	attributes map[string]string
}

type candidateRelationship struct {
	sourceKey  string
	targetKey  string
	label      string
	terminated bool
}

func extractFromUnit(
	ctx context.Context,
	unit processUnit,
	episodeType common.EpisodeType,
	referenceTime time.Time,
	entityTypes []string,
	client ai.GraphAIClient,
) ([]candidateEntity, []candidateRelationship, error) {
	types := strings.Join(entityTypes, ",")
	systemPrompt := fmt.Sprintf(
		ai.ExtractPrompt,
		types,
		types,
		string(episodeType),
		referenceTime.Format(time.RFC3339),
		types,
	)

	var res extractResponse
	err := client.GenerateCompletionWithFormat(
		ctx,
		"extract_entities_and_relationships",
		"Extract entities and relationships from one episode segment.",
		unit.text,
		&res,
		ai.WithSystemPrompts(systemPrompt),
	)
	if err != nil {
		return nil, nil, err
	}

	mention := mentionText(unit.text)
	allowed := make(map[string]bool, len(entityTypes))
	for _, t := range entityTypes {
		allowed[strings.ToUpper(t)] = true
	}

	entities := make([]candidateEntity, 0, len(res.Entities))
	known := map[string]bool{}
	for _, e := range res.Entities {
		name := strings.TrimSpace(e.EntityName)
		entityType := strings.ToUpper(strings.TrimSpace(e.EntityType))
		if name == "" || !allowed[entityType] {
			continue
		}
		key := DedupeKey(name, entityType)
		if known[key] {
			continue
		}
		known[key] = true

		attributes := map[string]string{}
		for _, attr := range e.Attributes {
			k := strings.TrimSpace(attr.Key)
			if k != "" {
				attributes[strings.ToLower(k)] = strings.TrimSpace(attr.Value)
			}
		}
		entities = append(entities, candidateEntity{
			name:       name,
			entityType: entityType,
			mention:    mention,
			attributes: attributes,
		})
	}

	keyFor := func(name string) (string, bool) {
		for _, e := range entities {
			if NormalizeName(e.name) == NormalizeName(name) {
				return DedupeKey(e.name, e.entityType), true
			}
		}
		return "", false
	}

	relationships := make([]candidateRelationship, 0, len(res.Relationships))
	for _, r := range res.Relationships {
		sourceKey, okS := keyFor(r.SourceEntity)
		targetKey, okT := keyFor(r.TargetEntity)
		label := strings.TrimSpace(r.Label)
		// A relationship naming an entity the model did not report is
		// dropped rather than creating a phantom node.
		if !okS || !okT || label == "" || sourceKey == targetKey {
			continue
		}
		relationships = append(relationships, candidateRelationship{
			sourceKey:  sourceKey,
			targetKey:  targetKey,
			label:      strings.ToLower(label),
			terminated: r.Terminated,
		})
	}

	return entities, relationships, nil
}

func mentionText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= maxMentionLength {
		return text
	}
	cut := text[:maxMentionLength]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
