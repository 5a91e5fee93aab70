// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code and context.
// For standard errors, it logs the error string.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, attrs(err)...)
}

// LogBestEffort records the failure of a step whose outcome does not affect
// the surrounding operation. It logs at WARN with the operation name.
func LogBestEffort(ctx context.Context, logger *slog.Logger, operation string, err error) {
	args := append([]any{"operation", operation}, attrs(err)...)
	logger.WarnContext(ctx, "best-effort "+operation+" failed", args...)
}

func attrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err.Error()}
	}
	out := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		out = append(out, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		out = append(out, "context", ctx)
	}
	return out
}
