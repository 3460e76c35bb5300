// Package categories matches content items against category tags.
//
// Tags are entered by staff as free text, so matching ignores case and
// surrounding whitespace: " Events" and "events" name the same tag.
package categories

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
)

// Fold returns the comparison key for a tag.
func Fold(tag string) string {
	return text.Fold(strings.Join(strings.Fields(tag), " "))
}

// Match reports whether value names target. value may be a single string or
// a list of strings as decoded from the database ([]string, []any, bson.A).
// Any other type never matches.
func Match(value any, target string) bool {
	want := Fold(target)
	if want == "" {
		return false
	}
	switch v := value.(type) {
	case string:
		return Fold(v) == want
	case []string:
		for _, s := range v {
			if Fold(s) == want {
				return true
			}
		}
	case []any:
		return matchAny(v, want)
	case bson.A:
		return matchAny([]any(v), want)
	}
	return false
}

func matchAny(list []any, want string) bool {
	for _, x := range list {
		if s, ok := x.(string); ok && Fold(s) == want {
			return true
		}
	}
	return false
}

// Parse splits a comma-separated tag list, trimming entries and dropping
// blanks and duplicates (by folded key). Original spelling of the first
// occurrence is kept.
func Parse(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		if p == "" {
			continue
		}
		k := Fold(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

// FoldAll returns the folded keys for tags, in order.
func FoldAll(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if k := Fold(t); k != "" {
			out = append(out, k)
		}
	}
	return out
}
