// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package store provides the durable key-value storage that keeps state across restarts.
package store

import (
	"context"
	"fmt"

	"github.com/wneessen/weather-fetch/internal/config"
	"github.com/wneessen/weather-fetch/internal/logger"
)

const keyPrefix = "weather-fetch:"

// KV is a durable string key-value store. Get reports whether the key exists. Implementations
// are safe for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New returns the KV backend selected in the config.
func New(ctx context.Context, conf *config.Config, log *logger.Logger) (KV, error) {
	var kv KV
	var err error
	switch conf.Storage.Backend {
	case config.BackendMemory:
		kv = NewMemory()
	case config.BackendSQLite:
		kv, err = NewSQLite(ctx, conf.Storage.Path)
	case config.BackendRedis:
		kv, err = NewRedis(ctx, conf.Storage.Redis.Addr, conf.Storage.Redis.Password, conf.Storage.Redis.DB)
	case config.BackendPostgres:
		kv, err = NewPostgres(ctx, conf.Storage.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", conf.Storage.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", conf.Storage.Backend, err)
	}

	log.Debug("storage backend initialized", "backend", conf.Storage.Backend)
	return kv, nil
}
