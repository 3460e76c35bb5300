package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown runs once the HTTP server has drained. Background jobs stop
// first since the digest job still writes through Mongo. ctx carries
// WAFFLE's shutdown deadline.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var errs []error

	if taskRunner != nil {
		if err := taskRunner.Stop(ctx); err != nil {
			logger.Warn("task runner did not stop in time", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if deps.MongoClient != nil {
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("mongo disconnect failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
