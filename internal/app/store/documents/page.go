package documentstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/dalemusser/gicesite/internal/app/system/categories"
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrBadCursor is returned for a cursor that was not produced by Page.
var ErrBadCursor = errors.New("invalid page cursor")

// Cursor marks the last document of a page in (created_at desc, _id desc)
// order. Its encoded form is opaque to clients.
type Cursor struct {
	CreatedAt time.Time
	ID        primitive.ObjectID
}

type cursorWire struct {
	T int64  `json:"t"` // unix millis
	I string `json:"i"`
}

// Encode returns the URL-safe form of c.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(cursorWire{T: c.CreatedAt.UnixMilli(), I: c.ID.Hex()})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses an encoded cursor. The empty string is the first page.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrBadCursor
	}
	var w cursorWire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, ErrBadCursor
	}
	oid, err := primitive.ObjectIDFromHex(w.I)
	if err != nil {
		return nil, ErrBadCursor
	}
	return &Cursor{CreatedAt: time.UnixMilli(w.T).UTC(), ID: oid}, nil
}

// PageQuery selects one page of a collection, newest first.
type PageQuery struct {
	After    *Cursor
	Limit    int
	Field    string // categories field to filter on (optional)
	Category string
}

// Page returns up to q.Limit documents after q.After and the cursor for the
// next page, or nil when there are no more. With a category filter, documents
// that predate the folded copy are matched in memory, so a page may take more
// than one query to fill.
func (s *Store) Page(ctx context.Context, schema *collections.Schema, q PageQuery) ([]models.Document, *Cursor, error) {
	if q.Limit <= 0 {
		q.Limit = 12
	}

	var (
		cat    collections.Field
		folded = categories.Fold(q.Category)
	)
	if q.Field != "" && folded != "" {
		if f, ok := schema.FieldSet().Field(q.Field); ok && f.Kind == collections.KindCategories {
			cat = f
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(q.Limit + 1))

	var out []models.Document
	after := q.After
	for {
		and := bson.A{}
		if after != nil {
			and = append(and, afterFilter(after))
		}
		if cat.Key != "" {
			and = append(and, bson.M{"$or": bson.A{
				bson.M{cat.FoldedKey(): folded},
				bson.M{cat.FoldedKey(): bson.M{"$exists": false}},
			}})
		}
		filter := bson.M{}
		if len(and) > 0 {
			filter["$and"] = and
		}

		docs, err := s.find(ctx, schema.Collection(), filter, opts)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range docs {
			if cat.Key == "" {
				out = append(out, d)
				continue
			}
			if _, hasFolded := d[cat.FoldedKey()]; hasFolded || categories.Match(d[cat.Key], q.Category) {
				out = append(out, d)
			}
		}
		if len(out) > q.Limit || len(docs) <= q.Limit {
			break
		}
		after = cursorOf(docs[len(docs)-1])
	}

	if len(out) <= q.Limit {
		return out, nil, nil
	}
	out = out[:q.Limit]
	return out, cursorOf(out[len(out)-1]), nil
}

func afterFilter(c *Cursor) bson.M {
	at := primitive.NewDateTimeFromTime(c.CreatedAt)
	return bson.M{"$or": bson.A{
		bson.M{"created_at": bson.M{"$lt": at}},
		bson.M{"created_at": at, "_id": bson.M{"$lt": c.ID}},
	}}
}

func cursorOf(d models.Document) *Cursor {
	oid, _ := d["_id"].(primitive.ObjectID)
	return &Cursor{CreatedAt: d.Time("created_at"), ID: oid}
}
