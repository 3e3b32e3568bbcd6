package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"supplyguard/internal/bootstrap/config"
	"supplyguard/internal/bootstrap/database"
	"supplyguard/internal/bootstrap/logging"
	cacheinfra "supplyguard/internal/infrastructure/cache"
	lockinfra "supplyguard/internal/infrastructure/lock"
	gormrepo "supplyguard/internal/infrastructure/persistence/gormdb/repository"
	gormuow "supplyguard/internal/infrastructure/persistence/gormdb/uow"
	"supplyguard/internal/infrastructure/seed"
	"supplyguard/internal/ports"
	"supplyguard/internal/usecase/issues"
	"supplyguard/internal/usecase/pipeline"
	"supplyguard/internal/usecase/planning"
	"supplyguard/internal/usecase/sop"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideRedis),
	fx.Provide(provideClock),
	fx.Provide(
		fx.Annotate(
			gormrepo.NewIssueRepository,
			fx.As(new(ports.IssueRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			gormrepo.NewInventoryRepository,
			fx.As(new(ports.InventoryReader)),
		),
	),
	fx.Provide(
		fx.Annotate(
			gormuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideCache),
	fx.Provide(provideLocker),
	fx.Provide(provideIssueService),
	fx.Provide(providePlanningService),
	fx.Provide(provideSOPProfile),
	fx.Provide(provideDispatcher),
	fx.Provide(providePipeline),
	fx.Provide(seed.NewLoader),
	fx.Provide(provideApp),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	return config.Load(logging.WithComponent(p.Ctx, "bootstrap.fx"), p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	db, err := database.Open(logging.WithComponent(ctx, "bootstrap.fx"), cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

// provideRedis returns nil when no backend is configured for redis.
func provideRedis(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (redis.UniversalClient, error) {
	if !cfg.NeedsRedis() {
		return nil, nil
	}

	client, err := database.OpenRedis(logging.WithComponent(ctx, "bootstrap.fx"), cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func provideClock(cfg config.Config) (Clock, error) {
	return NewClock(cfg.Clock, time.Now)
}

func provideCache(cfg config.Config, db *gorm.DB, client redis.UniversalClient) (ports.Cache, error) {
	switch strings.ToLower(cfg.Cache.Driver) {
	case "", "none":
		return nil, nil
	case "database":
		return cacheinfra.NewDBCache(db), nil
	case "redis":
		if client == nil {
			return nil, errors.New("redis client is required for cache.driver = redis")
		}
		return cacheinfra.NewRedisCache(client, cfg.Redis.Prefix+"cache:"), nil
	default:
		return nil, errors.New("unsupported cache driver " + cfg.Cache.Driver)
	}
}

func provideLocker(cfg config.Config, client redis.UniversalClient) (ports.KeyLocker, error) {
	switch strings.ToLower(cfg.Lock.Driver) {
	case "", "local":
		return lockinfra.NewLocalLocker(), nil
	case "redis":
		if client == nil {
			return nil, errors.New("redis client is required for lock.driver = redis")
		}
		return lockinfra.NewRedisLocker(client, cfg.Redis.Prefix+"lock:", cfg.Lock.TTL, cfg.Lock.Wait), nil
	default:
		return nil, errors.New("unsupported lock driver " + cfg.Lock.Driver)
	}
}

type issueServiceParams struct {
	fx.In

	Config config.Config
	Repo   ports.IssueRepository
	UoW    ports.UnitOfWork
	Locker ports.KeyLocker
	Cache  ports.Cache `optional:"true"`
	Clock  Clock
}

func provideIssueService(p issueServiceParams) *issues.Service {
	return issues.NewService(p.Repo, p.UoW, p.Locker, issues.Options{
		Cache:    p.Cache,
		CacheTTL: p.Config.Cache.TTL,
		Now:      p.Clock,
	})
}

func providePlanningService(cfg config.Config, inventory ports.InventoryReader, clock Clock) *planning.Service {
	return planning.NewService(inventory, planning.Options{
		Now:         clock,
		Parallelism: cfg.Planning.Parallelism,
	})
}

// provideSOPProfile falls back to the built-in profile when the file does not exist.
func provideSOPProfile(ctx context.Context, cfg config.Config) (sop.Profile, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")

	path := strings.TrimSpace(cfg.Pipeline.SOPFile)
	if path == "" {
		return sop.DefaultProfile(), nil
	}

	profile, err := sop.LoadProfile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Warn(logCtx, "sop file not found, using default playbook", slog.String("path", path))
		return sop.DefaultProfile(), nil
	}
	if err != nil {
		return sop.Profile{}, err
	}

	logging.Info(logCtx, "sop profile loaded", slog.String("path", path), slog.Int("playbooks", len(profile.Playbooks)))
	return profile, nil
}

func provideDispatcher(profile sop.Profile, planningSvc *planning.Service) ports.ActionDispatcher {
	return sop.NewDispatcher(profile, planningSvc)
}

func providePipeline(cfg config.Config, dispatcher ports.ActionDispatcher, issueSvc *issues.Service, clock Clock) *pipeline.Pipeline {
	return pipeline.New(dispatcher, issueSvc, pipeline.NewActionLog(cfg.Pipeline.ActionLogSize), clock)
}

type appParams struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Clock    Clock
	Issues   *issues.Service
	Planning *planning.Service
	Pipeline *pipeline.Pipeline
	Seeder   *seed.Loader
}

func provideApp(p appParams) *App {
	return &App{
		Config:   p.Config,
		DB:       p.DB,
		Clock:    p.Clock,
		Issues:   p.Issues,
		Planning: p.Planning,
		Pipeline: p.Pipeline,
		Seeder:   p.Seeder,
	}
}
