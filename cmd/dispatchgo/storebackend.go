package main

import (
	"context"
	"fmt"

	"github.com/smallnest/dispatchgo/config"
	"github.com/smallnest/dispatchgo/store"
	"github.com/smallnest/dispatchgo/store/file"
	"github.com/smallnest/dispatchgo/store/memory"
	"github.com/smallnest/dispatchgo/store/postgres"
	"github.com/smallnest/dispatchgo/store/redis"
	"github.com/smallnest/dispatchgo/store/sqlite"
)

// openStore builds the configured run store. The returned close
// function is never nil.
func openStore(ctx context.Context, cfg *config.StoreConfig) (store.RunStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "memory":
		return memory.NewMemoryRunStore(), noop, nil

	case "file":
		fs, err := file.NewFileRunStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, noop, nil

	case "sqlite":
		ss, err := sqlite.NewSqliteRunStore(sqlite.SqliteOptions{
			Path:      cfg.Path,
			TableName: cfg.Table,
		})
		if err != nil {
			return nil, nil, err
		}
		return ss, ss.Close, nil

	case "redis":
		rs := redis.NewRedisRunStore(redis.RedisOptions{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		return rs, noop, nil

	case "postgres":
		ps, err := postgres.NewPostgresRunStore(ctx, postgres.PostgresOptions{
			ConnString: cfg.ConnString,
			TableName:  cfg.Table,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := ps.InitSchema(ctx); err != nil {
			ps.Close()
			return nil, nil, err
		}
		return ps, func() error { ps.Close(); return nil }, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
}
