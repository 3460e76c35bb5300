// internal/domain/models/document.go
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is a schemaless content record as read from a content collection.
// The store attaches the string form of _id under the "id" key so templates
// can address items without knowing how the key was generated.
//
// Methods on Document are safe to call from templates: {{.String "title"}}.
type Document map[string]any

// ID returns the document identifier attached by the store.
func (d Document) ID() string {
	if v, ok := d["id"].(string); ok {
		return v
	}
	return IDString(d["_id"])
}

// String returns the value at key rendered as a string. Missing keys yield "".
func (d Document) String(key string) string {
	switch v := d[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case primitive.DateTime:
		return v.Time().UTC().Format("2006-01-02")
	case time.Time:
		return v.UTC().Format("2006-01-02")
	case primitive.ObjectID:
		return v.Hex()
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns the value at key as a list of strings. A single string
// value is returned as a one-element list.
func (d Document) Strings(key string) []string {
	switch v := d[key].(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case bson.A:
		return toStrings([]any(v))
	case []any:
		return toStrings(v)
	default:
		return nil
	}
}

// Bool reports whether the value at key is boolean true.
func (d Document) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Time returns the value at key as a time, or the zero time.
func (d Document) Time(key string) time.Time {
	switch v := d[key].(type) {
	case primitive.DateTime:
		return v.Time().UTC()
	case time.Time:
		return v.UTC()
	default:
		return time.Time{}
	}
}

// Has reports whether key is set to a non-empty value.
func (d Document) Has(key string) bool {
	return d.String(key) != "" || len(d.Strings(key)) > 0
}

func toStrings(in []any) []string {
	out := make([]string, 0, len(in))
	for _, x := range in {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// IDString renders a document key as a string. ObjectIDs become hex.
func IDString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
