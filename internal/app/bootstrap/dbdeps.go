// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/app/system/mailer"
	"github.com/dalemusser/gicesite/internal/app/system/mediaupload"
	"github.com/dalemusser/gicesite/internal/app/system/payment"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the process-wide backends built in ConnectDB and handed to
// EnsureSchema, Startup, BuildHandler and Shutdown.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// FileStorage backs the "storage" media host and /files.
	FileStorage storage.Store

	// Images acquires image URLs for every editor and the public intake
	// form. Its uploader is chosen by media_host.
	Images *mediaupload.Adapter

	// Checkout is the payment gateway, payment.Disabled when unconfigured.
	Checkout payment.Checkout

	// Registry describes the content collections, singletons and
	// assignment sections.
	Registry *collections.Registry

	// Mailer for staff notices, receipts and welcome emails
	Mailer *mailer.Mailer
}
