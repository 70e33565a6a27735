// Package storage opens the datacontext backend selected by configuration.
package storage

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/pkg/configuration"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/datacontext/memory"
	"github.com/uksf/uksf-api/pkg/datacontext/postgres"
	"github.com/uksf/uksf-api/pkg/datacontext/redisstore"
)

// Open returns the configured backend and a function releasing its
// connections. Postgres tables for collections are created up front.
func Open(ctx context.Context, conf *configuration.Configuration, logger *logrus.Logger, collections ...string) (datacontext.Backend, func(), error) {
	switch conf.Storage.Backend {
	case configuration.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on exit")
		return memory.New(), func() {}, nil
	case configuration.StorageRedis:
		opts, err := redis.ParseURL(conf.RedisURL)
		if err != nil {
			opts = &redis.Options{Addr: conf.RedisURL}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, errors.Wrap(err, "ping redis")
		}
		return redisstore.New(client, conf.Storage.RedisPrefix), func() { _ = client.Close() }, nil
	default:
		pool, err := pgxpool.New(ctx, conf.Database.Opts)
		if err != nil {
			return nil, nil, errors.Wrap(err, "connect postgres")
		}
		backend := postgres.New(pool, conf.Storage.TablePrefix)
		if err := backend.Migrate(ctx, collections...); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "migrate collections")
		}
		return backend, pool.Close, nil
	}
}
