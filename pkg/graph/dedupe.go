package graph

import (
	"strings"
	"unicode"
)

// dedupeKeySeparator keeps the name and type parts of a dedupe key from
// colliding with characters that survive normalization.
const dedupeKeySeparator = "\x1f"

// NormalizeName lowercases a name, strips punctuation except characters that
// carry identity (# for references like "order #42"), and collapses runs of
// whitespace to a single space.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '#':
			b.WriteRune(r)
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// DedupeKey derives the stable identity of an entity within a partition.
// "Order #42" and "order  #42" map to the same key; the same name under a
// different type does not.
func DedupeKey(name, entityType string) string {
	return NormalizeName(name) + dedupeKeySeparator + strings.ToLower(strings.TrimSpace(entityType))
}
