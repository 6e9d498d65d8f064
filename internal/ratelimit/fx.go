package ratelimit

import (
	"context"

	"github.com/jhnmartin/hey-sub000/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(func(lc fx.Lifecycle, cfg config.Config) (*redis.Client, error) {
		client, err := NewRedisClient(cfg)
		if err != nil || client == nil {
			return client, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return client.Close() },
		})
		return client, nil
	}),
	fx.Provide(func(cfg config.Config, client *redis.Client) (*Limiter, error) {
		if client == nil {
			return nil, nil
		}
		return NewLimiter(cfg, client)
	}),
)
