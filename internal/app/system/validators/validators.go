// Package validators creates the site's collections and attaches JSON
// Schema validators to the ones written outside the schema-driven editor.
// Content collections stay schemaless; their shape lives in schemas.yaml.
package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// schemas maps collection name to its $jsonSchema; nil means create only.
func schemas(reg *collections.Registry) map[string]bson.M {
	out := map[string]bson.M{
		"adminUsers": object(bson.A{"name", "email", "role", "status"}, bson.M{
			"name":      bson.M{"bsonType": "string", "minLength": 1, "pattern": `.*\S.*`},
			"name_ci":   bson.M{"bsonType": "string"},
			"email":     bson.M{"bsonType": "string", "minLength": 3},
			"phone":     bson.M{"bsonType": bson.A{"string", "null"}},
			"role":      bson.M{"enum": bson.A{models.RoleAdmin, models.RoleEditor}},
			"status":    bson.M{"enum": bson.A{"active", "disabled"}},
			"image_url": bson.M{"bsonType": bson.A{"string", "null"}},
		}),
		"credentials": object(bson.A{"email", "password_hash"}, bson.M{
			"email":         bson.M{"bsonType": "string", "minLength": 3},
			"password_hash": bson.M{"bsonType": "string", "minLength": 1},
		}),
		"testimonials": object(bson.A{"name", "body", "rating", "pending"}, bson.M{
			"name":       bson.M{"bsonType": "string", "minLength": 1},
			"body":       bson.M{"bsonType": "string", "minLength": 1},
			"rating":     bson.M{"bsonType": bson.A{"int", "long"}, "minimum": models.MinRating, "maximum": models.MaxRating},
			"pending":    bson.M{"bsonType": "bool"},
			"photo_kind": bson.M{"enum": bson.A{models.PhotoNone, models.PhotoUpload, models.PhotoLink, models.PhotoIcon}},
		}),
		"donations": object(bson.A{"payment_id", "amount", "currency"}, bson.M{
			"payment_id": bson.M{"bsonType": "string", "minLength": 1},
			"amount":     bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
			"currency":   bson.M{"bsonType": "string", "minLength": 3, "maxLength": 3},
		}),
		"oauth_states": nil,
		"audit_logs":   nil,
	}
	for _, s := range reg.Collections {
		out[s.Collection()] = nil
	}
	for _, a := range reg.Assignments {
		out[a.Collection] = nil
	}
	return out
}

func object(required bson.A, props bson.M) bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType":   "object",
		"required":   required,
		"properties": props,
	}}
}

// EnsureAll creates missing collections and (re)applies validators. A
// server without collMod support, such as some DocumentDB versions, only
// loses the validators.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}

	var errs []error
	for name, schema := range schemas(collections.Default()) {
		if !have[name] {
			if err := db.CreateCollection(ctx, name); err != nil && !alreadyExists(err) {
				errs = append(errs, fmt.Errorf("create %s: %w", name, err))
				continue
			}
			zap.L().Info("created collection", zap.String("collection", name))
		}
		if schema == nil {
			continue
		}
		err := db.RunCommand(ctx, bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: schema},
			{Key: "validationLevel", Value: "moderate"},
			{Key: "validationAction", Value: "error"},
		}).Err()
		switch {
		case err == nil:
		case unsupported(err):
			zap.L().Info("validator skipped, server does not support collMod", zap.String("collection", name))
		default:
			errs = append(errs, fmt.Errorf("validator %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// alreadyExists covers a concurrent create (NamespaceExists, code 48).
func alreadyExists(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 48 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// unsupported covers CommandNotFound (59) and NotImplemented (115).
func unsupported(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || ce.Code == 115) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such command") || strings.Contains(msg, "not implemented")
}
