// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/app/system/indexes"
	"github.com/dalemusser/gicesite/internal/app/system/mailer"
	"github.com/dalemusser/gicesite/internal/app/system/mediaupload"
	"github.com/dalemusser/gicesite/internal/app/system/payment"
	"github.com/dalemusser/gicesite/internal/app/system/seeding"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and builds the other process-wide backends:
// file storage, the image uploader, the payment gateway and the mailer.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Upload: appCfg.TimeoutUpload,
	})

	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}
	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	store, err := openStorage(ctx, appCfg, logger)
	if err != nil {
		return DBDeps{}, err
	}

	uploader, err := newUploader(appCfg, store)
	if err != nil {
		return DBDeps{}, err
	}
	logger.Info("initialized media host", zap.String("media_host", appCfg.MediaHost))

	var checkout payment.Checkout = payment.Disabled{}
	if appCfg.PaymentsEnabled() {
		gw, err := payment.NewGateway(payment.GatewayConfig{
			KeyID:     appCfg.PaymentKeyID,
			KeySecret: appCfg.PaymentKeySecret,
		})
		if err != nil {
			return DBDeps{}, fmt.Errorf("payment gateway: %w", err)
		}
		checkout = gw
		logger.Info("donations enabled", zap.String("currency", appCfg.PaymentCurrency))
	} else {
		logger.Info("donations disabled: no payment keys configured")
	}

	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
	logger.Info("initialized email mailer",
		zap.String("host", appCfg.MailSMTPHost),
		zap.Int("port", appCfg.MailSMTPPort),
	)

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		FileStorage:   store,
		Images:        mediaupload.NewAdapter(uploader, mediaupload.LinkConverter{CDNHost: appCfg.LinkCDNHost}),
		Checkout:      checkout,
		Registry:      collections.Default(),
		Mailer:        mail,
	}, nil
}

func openStorage(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (storage.Store, error) {
	switch appCfg.StorageType {
	case "s3":
		store, err := storage.NewS3(ctx, storage.S3Config{
			Region:                   appCfg.StorageS3Region,
			Bucket:                   appCfg.StorageS3Bucket,
			Prefix:                   appCfg.StorageS3Prefix,
			CloudFrontURL:            appCfg.StorageCFURL,
			CloudFrontKeyPairID:      appCfg.StorageCFKeyPairID,
			CloudFrontPrivateKeyPath: appCfg.StorageCFKeyPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		logger.Info("initialized S3/CloudFront file storage",
			zap.String("bucket", appCfg.StorageS3Bucket),
			zap.String("prefix", appCfg.StorageS3Prefix),
		)
		return store, nil
	case "local", "":
		store, err := storage.NewLocal(storage.LocalConfig{
			BasePath: appCfg.StorageLocalPath,
			BaseURL:  appCfg.StorageLocalURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		logger.Info("initialized local file storage",
			zap.String("path", appCfg.StorageLocalPath),
			zap.String("url", appCfg.StorageLocalURL),
		)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}
}

// newUploader picks the ImageUploader for media_host.
func newUploader(appCfg AppConfig, store storage.Store) (mediaupload.ImageUploader, error) {
	if appCfg.MediaHost == MediaHostCloudinary {
		up, err := mediaupload.NewCloudinaryUploader(mediaupload.CloudinaryConfig{
			CloudName:    appCfg.CloudinaryCloudName,
			UploadPreset: appCfg.CloudinaryUploadPreset,
			Folder:       appCfg.CloudinaryFolder,
		})
		if err != nil {
			return nil, fmt.Errorf("cloudinary: %w", err)
		}
		return up, nil
	}
	return mediaupload.NewStorageUploader(store, "images"), nil
}

// EnsureSchema sets up indexes or schema as needed.
//
// This runs after ConnectDB succeeds but before Startup and before the HTTP
// handler is built. The context has a timeout based on coreCfg.IndexBootTimeout, so long-running
// migrations should respect context cancellation.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	// Ensure collections exist and attach JSON-Schema validators.
	// This runs first so indexes can be created on existing collections.
	logger.Info("ensuring collections and validators")
	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Error("failed to ensure validators", zap.Error(err))
		return err
	}

	// Ensure database indexes for query performance.
	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	// Seed the first admin. Content is never seeded; it is created on first
	// save from the dashboard.
	logger.Info("seeding default data")
	seed := seeding.AdminSeed{
		Email:    appCfg.SeedAdminEmail,
		Name:     appCfg.SeedAdminName,
		Password: appCfg.SeedAdminPassword,
	}
	if err := seeding.SeedAll(ctx, db, seed, logger); err != nil {
		logger.Error("failed to seed default data", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}
