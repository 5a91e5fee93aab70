// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package auth_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

// logEntry is one JSON log line.
type logEntry struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Operation string `json:"operation"`
	Error     string `json:"error"`
	FlowID    string `json:"flow_id"`
}

// failingBackend is a session backend whose calls return fixed errors.
type failingBackend struct {
	*session.MemoryBackend
	getErr   error
	applyErr error
}

func (f *failingBackend) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemoryBackend.Get(ctx, keys...)
}

func (f *failingBackend) Apply(ctx context.Context, b session.Batch) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	return f.MemoryBackend.Apply(ctx, b)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newMemoryStore(t *testing.T) (*session.Store, *session.MemoryBackend) {
	t.Helper()
	backend := session.NewMemoryBackend()
	store, err := session.NewStore(backend, session.WithLogger(discardLogger()))
	require.NoError(t, err)
	return store, backend
}

func requireFailure(t *testing.T, err error, kind auth.Kind) *auth.Failure {
	t.Helper()
	require.Error(t, err)
	var f *auth.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, kind, f.Kind, "reason: %s", f.Reason)
	return f
}
