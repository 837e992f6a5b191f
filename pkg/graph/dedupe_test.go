package graph

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "ACME Corporation", "acme corporation"},
		{"collapses whitespace", "acme   \t corporation", "acme corporation"},
		{"strips punctuation", "Dr. Smith, Jr.", "dr smith jr"},
		{"keeps hash references", "Order #42", "order #42"},
		{"trims edges", "  Alice  ", "alice"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDedupeKey(t *testing.T) {
	if DedupeKey("Order #42", "ORDER") != DedupeKey("order  #42", "order") {
		t.Error("spelling variants of the same entity must share a key")
	}
	if DedupeKey("Mercury", "PERSON") == DedupeKey("Mercury", "LOCATION") {
		t.Error("same name under different types must not collide")
	}
	if DedupeKey("a b", "c") == DedupeKey("a", "b c") {
		t.Error("name/type boundary must not be ambiguous")
	}
}
