// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package redisstore keeps the persisted session in a Redis hash, so several
// terminals on a shared host can see the same login.
package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

// DefaultPrefix namespaces the hash key.
const DefaultPrefix = "nagolie:"

// Backend implements session.Backend on a single Redis hash.
// Batches run inside MULTI/EXEC.
type Backend struct {
	client *redis.Client
	key    string
}

var _ session.Backend = (*Backend)(nil)

// New wraps an existing client. The hash key is prefix + "session".
func New(client *redis.Client, prefix string) *Backend {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Backend{client: client, key: prefix + "session"}
}

// Dial parses url, connects and verifies connectivity.
func Dial(ctx context.Context, url, prefix string) (*Backend, error) {
	if url == "" {
		return nil, oops.Code("SESSION_BACKEND_OPEN_FAILED").With("backend", "redis").Errorf("redis url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("SESSION_BACKEND_OPEN_FAILED").
			With("backend", "redis").
			With("operation", "parse url").
			Wrap(err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // ping error takes precedence
		return nil, oops.Code("SESSION_BACKEND_OPEN_FAILED").
			With("backend", "redis").
			With("operation", "ping").
			Wrap(err)
	}
	return New(client, prefix), nil
}

// Get implements session.Backend.
func (b *Backend) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	vals, err := b.client.HMGet(ctx, b.key, keys...).Result()
	if err != nil {
		return nil, oops.With("backend", "redis").With("operation", "hmget").Wrap(err)
	}

	out := make(map[string]string, len(keys))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

// Apply implements session.Backend.
func (b *Backend) Apply(ctx context.Context, batch session.Batch) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(batch.Delete) > 0 {
			pipe.HDel(ctx, b.key, batch.Delete...)
		}
		if len(batch.Put) > 0 {
			pipe.HSet(ctx, b.key, batch.Put)
		}
		return nil
	})
	if err != nil {
		return oops.With("backend", "redis").With("operation", "multi").Wrap(err)
	}
	return nil
}

// Ping implements session.Backend.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return oops.With("backend", "redis").Wrap(err)
	}
	return nil
}

// Close implements session.Backend.
func (b *Backend) Close() error {
	if err := b.client.Close(); err != nil {
		return oops.With("backend", "redis").Wrap(err)
	}
	return nil
}
