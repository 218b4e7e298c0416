package hashid

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("length", func(t *testing.T) {
		id := New("accounting", "db-diagram")
		if len(id) != Length {
			t.Fatalf("New returned %d chars, want %d: %q", len(id), Length, id)
		}
	})
	t.Run("url safe", func(t *testing.T) {
		id := New("a name with spaces / slashes", "ns")
		if strings.ContainsAny(id, "+/=") {
			t.Fatalf("id %q contains non-url-safe characters", id)
		}
	})
	t.Run("distinct for same input", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 100 {
			id := New("accounting", "db-diagram")
			if seen[id] {
				t.Fatalf("duplicate id %q", id)
			}
			seen[id] = true
		}
	})
	t.Run("empty name still works", func(t *testing.T) {
		id := New("", "")
		if len(id) != Length {
			t.Fatalf("New(\"\", \"\") returned %d chars, want %d", len(id), Length)
		}
	})
}

func TestValid(t *testing.T) {
	if !Valid(New("x", "y")) {
		t.Fatal("freshly minted id reported invalid")
	}
	for _, bad := range []string{"", "short", strings.Repeat("a", Length+1), strings.Repeat("+", Length)} {
		if Valid(bad) {
			t.Fatalf("Valid(%q) = true, want false", bad)
		}
	}
}
