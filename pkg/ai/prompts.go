package ai

// ExtractPrompt instructs the extraction model to surface entities and
// relationships from a single episode segment. Format arguments: allowed
// entity types (three times), episode type, reference timestamp.
const ExtractPrompt = `
# Task Context
You are a helpful assistant specialized in building temporal knowledge graphs from conversations and event records. You will be provided with one segment of an episode.

# Detailed Task Description & Rules
- Identify all entities mentioned in the segment. Use one of the following types for each entity: %s
- Capitalize entity names consistently. Use the most complete form of the name that appears in the text (e.g. "order #42", "ACME Corporation").
- For each entity, collect attributes explicitly stated in the text as key/value pairs (e.g. status, location, quantity). Do not invent attributes.
- Identify relationships between the entities you found. A relationship has a source entity, a target entity, and a short snake_case label (e.g. "ordered_by", "works_at", "asked_about").
- Mark a relationship as terminated ONLY when the text explicitly states that it has ended (e.g. "no longer works at", "cancelled the order", "they broke up"). A terminated relationship still names the same source, target and label as the original.
- Only report entities of the allowed types: %s
- Do not report relationships whose source or target entity is missing from your entity list.

# Background
- Episode type: %s
- Reference time for relative dates: %s

# Output Formatting
Return a JSON object with "entities" and "relationships" arrays following the provided schema. Allowed entity types once more: %s
`

// DefaultEntityTypes is the allow-list used when the caller does not
// configure its own.
var DefaultEntityTypes = []string{
	"PERSON", "ORGANIZATION", "LOCATION", "PRODUCT", "ORDER", "EVENT", "DATE", "CONCEPT",
}
