// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package session

import (
	"context"
	"maps"
	"sync"
)

// Persisted key names. The unscoped keys are authoritative; the role-scoped
// keys are legacy duplicates still read by older clients of the same storage.
const (
	KeyToken         = "token"
	KeyUser          = "user"
	KeyRole          = "role"
	KeyAdminToken    = "adminToken"
	KeyAdminUser     = "adminUser"
	KeyInvestorToken = "investorToken"
	KeyInvestorUser  = "investorUser"
)

// AllKeys lists every key the store may write.
var AllKeys = []string{
	KeyToken, KeyUser, KeyRole,
	KeyAdminToken, KeyAdminUser,
	KeyInvestorToken, KeyInvestorUser,
}

// scopedKeys returns the legacy token and user keys for a role.
func scopedKeys(r Role) (tokenKey, userKey string) {
	if r == RoleInvestor {
		return KeyInvestorToken, KeyInvestorUser
	}
	return KeyAdminToken, KeyAdminUser
}

// Batch is a set of key writes and deletions applied as one unit.
type Batch struct {
	Put    map[string]string
	Delete []string
}

// Backend is a string key/value medium for the persisted record.
// Apply must be atomic: readers observe either none or all of a batch.
type Backend interface {
	// Get returns the values of the requested keys. Missing keys are omitted.
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	// Apply writes and deletes the batch atomically.
	Apply(ctx context.Context, b Batch) error
	// Ping reports whether the medium is reachable.
	Ping(ctx context.Context) error
	// Close releases resources held by the backend.
	Close() error
}

// MemoryBackend keeps the record in process memory. It is used by tests and
// by the "memory" backend setting for throwaway shells.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, keys ...string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Apply implements Backend.
func (m *MemoryBackend) Apply(_ context.Context, b Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range b.Delete {
		delete(m.data, k)
	}
	maps.Copy(m.data, b.Put)
	return nil
}

// Ping implements Backend.
func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Close implements Backend.
func (m *MemoryBackend) Close() error { return nil }

// Snapshot returns a copy of every stored key.
func (m *MemoryBackend) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data)
}

// Set writes a single raw key, bypassing the store. Tests use it to plant
// legacy or corrupt records.
func (m *MemoryBackend) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}
