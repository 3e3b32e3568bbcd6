package database

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"supplyguard/internal/bootstrap/config"
	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/errs"
)

func OpenRedis(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	addrs := make([]string, 0, 1)
	for _, addr := range strings.Split(cfg.Addr, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("redis.addr is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errs.Wrap(err, "ping redis")
	}

	logging.Info(logging.WithComponent(ctx, "bootstrap.redis"), "redis connected", slog.Int("nodes", len(addrs)))
	return client, nil
}
