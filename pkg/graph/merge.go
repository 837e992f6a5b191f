package graph

// mergeCandidates folds one unit's extraction output into the accumulated
// episode-level candidates. Entities merge on dedupe key: mentions
// accumulate and attributes union with the newer value winning. Relationships
// dedupe on (source, target, label, terminated) so repeated statements in
// different units collapse to one candidate edge.
func mergeCandidates(
	entities []candidateEntity,
	newEntities []candidateEntity,
	relationships []candidateRelationship,
	newRelationships []candidateRelationship,
) ([]candidateEntity, []candidateRelationship) {
	for _, entity := range newEntities {
		key := DedupeKey(entity.name, entity.entityType)
		found := false
		for j := range entities {
			if DedupeKey(entities[j].name, entities[j].entityType) != key {
				continue
			}
			found = true
			if entity.mention != "" && entities[j].mention != entity.mention {
				if entities[j].mention == "" {
					entities[j].mention = entity.mention
				} else {
					entities[j].mention += " " + entity.mention
				}
			}
			for k, v := range entity.attributes {
				entities[j].attributes[k] = v
			}
			break
		}
		if !found {
			entities = append(entities, entity)
		}
	}

	for _, rel := range newRelationships {
		found := false
		for _, existing := range relationships {
			if existing == rel {
				found = true
				break
			}
		}
		if !found {
			relationships = append(relationships, rel)
		}
	}

	return entities, relationships
}
