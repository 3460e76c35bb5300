// Package indexes declares every index the site relies on and reconciles
// them at startup. Running it again is a no-op.
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// set is the indexes wanted on one collection.
type set struct {
	collection string
	models     []mongo.IndexModel
}

func index(name string, keys ...bson.E) mongo.IndexModel {
	return mongo.IndexModel{Keys: bson.D(keys), Options: options.Index().SetName(name)}
}

func unique(name string, keys ...bson.E) mongo.IndexModel {
	m := index(name, keys...)
	m.Options.SetUnique(true)
	return m
}

func ttl(name, field string, after int32) mongo.IndexModel {
	m := index(name, bson.E{Key: field, Value: 1})
	m.Options.SetExpireAfterSeconds(after)
	return m
}

func asc(k string) bson.E  { return bson.E{Key: k, Value: 1} }
func desc(k string) bson.E { return bson.E{Key: k, Value: -1} }

// plan lists the fixed collections followed by one set per schema-driven
// collection and per assignment collection in reg.
func plan(reg *collections.Registry) []set {
	sets := []set{
		{"testimonials", []mongo.IndexModel{
			index("idx_testimonials_pending_created", asc("pending"), desc("created_at")),
		}},
		{"adminUsers", []mongo.IndexModel{
			unique("uniq_adminusers_email", asc("email")),
			index("idx_adminusers_nameci_id", asc("name_ci"), asc("_id")),
		}},
		{"credentials", []mongo.IndexModel{
			unique("uniq_credentials_email", asc("email")),
		}},
		{"donations", []mongo.IndexModel{
			// one record per gateway payment however often it is confirmed
			unique("uniq_donations_payment", asc("payment_id")),
			index("idx_donations_created", desc("created_at")),
		}},
		{"oauth_states", []mongo.IndexModel{
			unique("uniq_oauth_state", asc("state")),
			ttl("idx_oauth_expires_ttl", "expires_at", 0),
		}},
		{"audit_logs", []mongo.IndexModel{
			index("idx_audit_created", desc("created_at")),
			index("idx_audit_category_created", asc("category"), desc("created_at")),
			index("idx_audit_user_created", asc("user_id"), desc("created_at")),
		}},
		{"sessions", []mongo.IndexModel{
			unique("uniq_session_token", asc("token")),
			index("idx_session_user_open", asc("user_id"), asc("logout_at")),
			ttl("idx_session_ttl", "expires_at", 0),
		}},
		{"signin_failures", []mongo.IndexModel{
			unique("uniq_signin_failures_email", asc("email")),
			ttl("idx_signin_failures_ttl", "last_attempt", 24*60*60),
		}},
	}

	for _, s := range reg.Collections {
		models := []mongo.IndexModel{
			index("idx_"+s.Name+"_created_id", desc("created_at"), desc("_id")),
		}
		if key, descending := s.SortField(); key != "" && key != "created_at" {
			dir := asc
			if descending {
				dir = desc
			}
			models = append(models, index("idx_"+s.Name+"_"+key+"_id", dir(key), dir("_id")))
		}
		for _, f := range s.Fields {
			if f.Kind == collections.KindCategories {
				models = append(models, index("idx_"+s.Name+"_"+f.FoldedKey(), asc(f.FoldedKey()), desc("created_at")))
			}
		}
		sets = append(sets, set{s.Collection(), models})
	}

	for _, a := range reg.Assignments {
		sets = append(sets, set{a.Collection, []mongo.IndexModel{
			index("idx_"+a.Collection+"_categoryci_created", asc("category_ci"), desc("created_at")),
		}})
	}
	return sets
}

// EnsureAll creates what is missing across every collection and reports
// all failures together.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var errs []error
	for _, s := range plan(collections.Default()) {
		if err := ensure(ctx, db.Collection(s.collection), s.models); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.collection, err))
		}
	}
	return errors.Join(errs...)
}

type existing struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

func signature(keys bson.D) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%v", k.Key, k.Value)
	}
	return strings.Join(parts, ",")
}

// ensure matches wanted indexes to existing ones by key pattern. An index
// with the right keys but the wrong uniqueness is dropped and rebuilt; a
// unique build that fails on duplicate data is reported, not forced.
func ensure(ctx context.Context, c *mongo.Collection, wanted []mongo.IndexModel) error {
	have := map[string]existing{}
	cur, err := c.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	var all []existing
	if err := cur.All(ctx, &all); err != nil {
		return fmt.Errorf("read indexes: %w", err)
	}
	for _, ix := range all {
		have[signature(ix.Key)] = ix
	}

	log := zap.L().With(zap.String("collection", c.Name()))
	var errs []error
	for _, m := range wanted {
		name := *m.Options.Name
		wantUnique := m.Options.Unique != nil && *m.Options.Unique
		sig := signature(m.Keys.(bson.D))

		if ix, ok := have[sig]; ok {
			if ix.Unique == wantUnique {
				continue
			}
			log.Info("rebuilding index with new options", zap.String("index", ix.Name), zap.Bool("unique", wantUnique))
			if _, err := c.Indexes().DropOne(ctx, ix.Name); err != nil {
				errs = append(errs, fmt.Errorf("drop %s: %w", ix.Name, err))
				continue
			}
		}

		if _, err := c.Indexes().CreateOne(ctx, m); err != nil {
			if wantUnique && mongo.IsDuplicateKeyError(err) {
				err = errors.New("duplicate values present")
			}
			errs = append(errs, fmt.Errorf("create %s (%s): %w", name, sig, err))
			continue
		}
		log.Info("index created", zap.String("index", name), zap.String("keys", sig))
	}
	return errors.Join(errs...)
}
