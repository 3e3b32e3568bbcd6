package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Lock     LockConfig     `mapstructure:"lock"`
	Clock    ClockConfig    `mapstructure:"clock"`
	Planning PlanningConfig `mapstructure:"planning"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Intake   IntakeConfig   `mapstructure:"intake"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// CacheConfig selects the issue status cache: "database", "redis" or "none".
type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RedisConfig.Addr accepts a comma separated list; more than one address selects cluster mode.
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	Prefix       string `mapstructure:"prefix"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// LockConfig selects the advisory lock backend: "local" or "redis".
type LockConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
	Wait   time.Duration `mapstructure:"wait"`
}

// ClockConfig pins "today" (YYYY-MM-DD) for replaying historical data sets.
type ClockConfig struct {
	Today    string `mapstructure:"today"`
	Location string `mapstructure:"location"`
}

type PlanningConfig struct {
	Parallelism int `mapstructure:"parallelism"`
}

type PipelineConfig struct {
	Workers       int    `mapstructure:"workers"`
	SOPFile       string `mapstructure:"sop_file"`
	ActionLogSize int    `mapstructure:"action_log_size"`
}

type IntakeConfig struct {
	WatchDir    string `mapstructure:"watch_dir"`
	NATSURL     string `mapstructure:"nats_url"`
	NATSSubject string `mapstructure:"nats_subject"`
	NATSQueue   string `mapstructure:"nats_queue"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.config")

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("cache_driver", cfg.Cache.Driver),
		slog.String("lock_driver", cfg.Lock.Driver),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}

	switch strings.ToLower(c.Cache.Driver) {
	case "", "none", "database":
	case "redis":
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("redis.addr is required when cache.driver = redis")
		}
	default:
		return fmt.Errorf("unsupported cache driver %q", c.Cache.Driver)
	}

	switch strings.ToLower(c.Lock.Driver) {
	case "", "local":
	case "redis":
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("redis.addr is required when lock.driver = redis")
		}
	default:
		return fmt.Errorf("unsupported lock driver %q", c.Lock.Driver)
	}

	if c.Clock.Today != "" {
		if _, err := time.Parse(time.DateOnly, c.Clock.Today); err != nil {
			return errs.Wrapf(err, "clock.today %q must be YYYY-MM-DD", c.Clock.Today)
		}
	}
	if c.Pipeline.Workers < 0 {
		return errors.New("pipeline.workers must not be negative")
	}
	if c.Planning.Parallelism < 0 {
		return errors.New("planning.parallelism must not be negative")
	}
	return nil
}

// NeedsRedis reports whether any configured backend talks to redis.
func (c Config) NeedsRedis() bool {
	return strings.EqualFold(c.Cache.Driver, "redis") || strings.EqualFold(c.Lock.Driver, "redis")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "supplyguard")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".state/supplyguard.sqlite")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("cache.driver", "database")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "supplyguard:")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("lock.driver", "local")
	v.SetDefault("lock.ttl", "10s")
	v.SetDefault("lock.wait", "5s")
	v.SetDefault("clock.today", "")
	v.SetDefault("clock.location", "Local")
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.sop_file", "configs/sop.toml")
	v.SetDefault("pipeline.action_log_size", 20)
	v.SetDefault("planning.parallelism", 8)
	v.SetDefault("intake.watch_dir", "")
	v.SetDefault("intake.nats_url", "")
	v.SetDefault("intake.nats_subject", "supplyguard.events.classified")
	v.SetDefault("intake.nats_queue", "")
	v.SetDefault("http.addr", ":8090")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "30s")
}
