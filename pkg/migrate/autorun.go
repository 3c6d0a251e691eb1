package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/adspace-backend/pkg/config"
	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot when running in dev
// with ADSPACE_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": "embedded"})
	logg.Info(ctx, "migrations.autorun.start")

	m, err := New(sqlDB, nil, logg)
	if err != nil {
		return err
	}
	if err := m.Run(ctx, "up"); err != nil {
		return err
	}

	logg.Info(ctx, "migrations.autorun.done")
	return nil
}
