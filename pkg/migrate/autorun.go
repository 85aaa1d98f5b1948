package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/backoffice-api/pkg/config"
	"github.com/angelmondragon/backoffice-api/pkg/db"
	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
)

// MaybeRunDev upgrades the schema at boot, but only in dev with
// AutoMigrate set. Other environments run cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithField(ctx, "dialect", client.Dialect())

	// The SQL files use Postgres-only types, so sqlite is built from the models.
	if client.Dialect() == db.DriverSQLite {
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite automigrate: %w", err)
		}
		logg.Info(ctx, "migrate.automigrated")
		return nil
	}

	versions, err := CheckDir(DefaultDir)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("no migrations found in %s", DefaultDir)
	}
	pool, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	if err := Run(ctx, pool, DefaultDir, "up"); err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "latest", versions[len(versions)-1]), "migrate.up_to_date")
	return nil
}
