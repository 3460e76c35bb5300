package categories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		target string
		want   bool
	}{
		{"exact string", "events", "events", true},
		{"case and whitespace", " Events", "events", true},
		{"target padded", "Events", "  EVENTS ", true},
		{"different tag", "news", "events", false},
		{"string slice", []string{"news", "Events "}, "events", true},
		{"any slice", []any{"News", 3, "Outreach"}, "outreach", true},
		{"bson array", bson.A{"Camps"}, "camps", true},
		{"bson array miss", bson.A{"Camps"}, "events", false},
		{"empty list", []string{}, "events", false},
		{"nil value", nil, "events", false},
		{"number value", 42, "42", false},
		{"empty target", "events", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.value, tt.target))
		})
	}
}

func TestParse(t *testing.T) {
	got := Parse(" Events, news ,,EVENTS,  Summer   Camp ")
	assert.Equal(t, []string{"Events", "news", "Summer Camp"}, got)

	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse(" , ,"))
}

func TestFoldAll(t *testing.T) {
	assert.Equal(t, []string{"events", "summer camp"}, FoldAll([]string{" Events", "", "Summer  Camp"}))
}
