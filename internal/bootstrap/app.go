package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"supplyguard/internal/bootstrap/config"
	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/errs"
	"supplyguard/internal/infrastructure/persistence/gormdb/model"
	"supplyguard/internal/infrastructure/seed"
	"supplyguard/internal/usecase/issues"
	"supplyguard/internal/usecase/pipeline"
	"supplyguard/internal/usecase/planning"
)

type App struct {
	Config   config.Config
	DB       *gorm.DB
	Clock    Clock
	Issues   *issues.Service
	Planning *planning.Service
	Pipeline *pipeline.Pipeline
	Seeder   *seed.Loader
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.app")
	logging.Info(logCtx, "start schema migration")

	if err := a.DB.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	logging.Info(logCtx, "schema migration completed", slog.String("database_driver", a.Config.Database.Driver))
	return nil
}
