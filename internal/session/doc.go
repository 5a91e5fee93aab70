// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package session persists the client's authenticated identity.
//
// # Record layout
//
// A Session is stored under three unscoped keys (token, user, role) plus a
// role-scoped duplicate (adminToken/adminUser or investorToken/investorUser)
// kept for older readers of the same storage. Store.Save writes all of them
// in one Backend batch; Store.Load treats the unscoped keys as authoritative
// and repairs or migrates the scoped copies.
//
// # Backends
//
//   - MemoryBackend - in-process, for tests and throwaway shells
//   - boltstore - a bbolt file under the XDG state directory
//   - redisstore - a shared Redis instance
//   - pgstore - a PostgreSQL table, for kiosk deployments
package session
