package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/events-aggregator/pkg/config"
	"github.com/angelmondragon/events-aggregator/pkg/db"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
)

// MaybeRunDev applies the embedded schema on startup when running in dev
// with AGGREGATOR_AUTO_MIGRATE enabled. Other environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	src := EmbeddedSource()
	count, err := validate(src.FS)
	if err != nil {
		return fmt.Errorf("validating embedded migrations: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "migrations": count})
	logg.Info(ctx, "schema.migrate.start")

	if err := Run(ctx, sqlDB, src, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	version, err := Version(ctx, sqlDB)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "version", version), "schema.migrate.done")
	return nil
}
