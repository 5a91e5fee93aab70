// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package pgstore keeps the persisted session in PostgreSQL. Kiosk
// deployments point several terminals at one database, each under its own
// namespace.
package pgstore

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

// DefaultNamespace is used when no namespace is configured.
const DefaultNamespace = "default"

// poolIface is the subset of pgxpool.Pool used here; pgxmock satisfies it.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Backend implements session.Backend on the client_sessions table.
type Backend struct {
	pool      poolIface
	namespace string
}

var _ session.Backend = (*Backend)(nil)

// New wraps a pool.
func New(pool poolIface, namespace string) *Backend {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Backend{pool: pool, namespace: namespace}
}

// Open connects to databaseURL and verifies connectivity.
func Open(ctx context.Context, databaseURL, namespace string) (*Backend, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("SESSION_BACKEND_OPEN_FAILED").
			With("backend", "postgres").
			With("operation", "create pool").
			Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("SESSION_BACKEND_OPEN_FAILED").
			With("backend", "postgres").
			With("operation", "ping").
			Wrap(err)
	}
	return New(pool, namespace), nil
}

// Get implements session.Backend.
func (b *Backend) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT key, value FROM client_sessions
		WHERE namespace = $1 AND key = ANY($2)
	`, b.namespace, keys)
	if err != nil {
		return nil, classify(err, "select session keys")
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, oops.With("operation", "scan session key").Wrap(err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate session keys")
	}
	return out, nil
}

// Apply implements session.Backend. Deletes run before upserts inside one
// transaction; puts are written in key order.
func (b *Backend) Apply(ctx context.Context, batch session.Batch) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return classify(err, "begin")
	}

	if err := b.applyTx(ctx, tx, batch); err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // original error takes precedence
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(err, "commit")
	}
	return nil
}

func (b *Backend) applyTx(ctx context.Context, tx pgx.Tx, batch session.Batch) error {
	if len(batch.Delete) > 0 {
		if _, err := tx.Exec(ctx, `
			DELETE FROM client_sessions WHERE namespace = $1 AND key = ANY($2)
		`, b.namespace, batch.Delete); err != nil {
			return classify(err, "delete session keys")
		}
	}

	keys := make([]string, 0, len(batch.Put))
	for k := range batch.Put {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := tx.Exec(ctx, `
			INSERT INTO client_sessions (namespace, key, value, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, b.namespace, k, batch.Put[k]); err != nil {
			return classify(err, "upsert session key")
		}
	}
	return nil
}

// Ping implements session.Backend.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return oops.With("backend", "postgres").Wrap(err)
	}
	return nil
}

// Close implements session.Backend.
func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

// classify wraps err, flagging a missing schema so callers can suggest
// running the migrations.
func classify(err error, operation string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return oops.Code("SESSION_SCHEMA_MISSING").
			With("backend", "postgres").
			With("operation", operation).
			Hint("run `nagolie migrate up` against the session database").
			Wrap(err)
	}
	return oops.With("backend", "postgres").With("operation", operation).Wrap(err)
}
