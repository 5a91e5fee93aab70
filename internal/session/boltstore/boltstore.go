// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package boltstore keeps the persisted session in a bbolt file.
package boltstore

import (
	"context"
	"time"

	"github.com/samber/oops"
	"go.etcd.io/bbolt"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

// DefaultBucket is the bucket holding the session keys.
const DefaultBucket = "session"

// TombstoneBucket holds pending logouts for a network session backend.
const TombstoneBucket = "tombstones"

// Backend implements session.Backend on a bbolt database.
// Each batch is applied in a single read-write transaction.
type Backend struct {
	db     *bbolt.DB
	bucket []byte
}

var _ session.Backend = (*Backend)(nil)

// New wraps an open database.
func New(db *bbolt.DB, bucket string) *Backend {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Backend{db: db, bucket: []byte(bucket)}
}

// Open opens (creating if needed) the database file at path.
// The file is locked for the life of the process; a second opener waits
// up to one second before failing.
func Open(path, bucket string) (*Backend, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, oops.Code("SESSION_BACKEND_OPEN_FAILED").
			With("backend", "bbolt").
			With("path", path).
			Wrap(err)
	}
	return New(db, bucket), nil
}

// Get implements session.Backend.
func (b *Backend) Get(_ context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	err := b.db.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(b.bucket)
		if bkt == nil {
			return nil
		}
		for _, k := range keys {
			if v := bkt.Get([]byte(k)); v != nil {
				// Values are only valid for the life of the transaction.
				out[k] = string(v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, oops.With("backend", "bbolt").With("operation", "view").Wrap(err)
	}
	return out, nil
}

// Apply implements session.Backend.
func (b *Backend) Apply(_ context.Context, batch session.Batch) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(b.bucket)
		if err != nil {
			return err
		}
		for _, k := range batch.Delete {
			if err := bkt.Delete([]byte(k)); err != nil {
				return err
			}
		}
		for k, v := range batch.Put {
			if err := bkt.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return oops.With("backend", "bbolt").With("operation", "update").Wrap(err)
	}
	return nil
}

// Ping implements session.Backend.
func (b *Backend) Ping(_ context.Context) error {
	//nolint:wrapcheck // no-op transaction only surfaces a closed database
	return b.db.View(func(*bbolt.Tx) error { return nil })
}

// Close implements session.Backend.
func (b *Backend) Close() error {
	if err := b.db.Close(); err != nil {
		return oops.With("backend", "bbolt").Wrap(err)
	}
	return nil
}
