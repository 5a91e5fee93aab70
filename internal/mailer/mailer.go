// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package mailer delivers transactional email through an EmailJS-compatible
// HTTP API.
package mailer

import (
	"context"
	"log/slog"
	"sort"
)

// Logical template names. Each maps to a provider template ID in config.
const (
	TemplateResetInstructions = "reset_instructions"
	TemplatePasswordChanged   = "password_changed"
)

// Template parameter names shared by both templates.
const (
	ParamToEmail          = "to_email"
	ParamToName           = "to_name"
	ParamResetLink        = "reset_link"
	ParamSecurityQuestion = "security_question"
	ParamChangedAt        = "changed_at"
)

// Message is one email to send.
type Message struct {
	Template string
	To       string
	Params   map[string]string
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the logger instead of delivering them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a mailer for dry runs.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message at INFO.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	keys := make([]string, 0, len(msg.Params))
	for k := range msg.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := make([]any, 0, len(keys))
	for _, k := range keys {
		params = append(params, slog.String(k, msg.Params[k]))
	}
	m.logger.InfoContext(ctx, "email not sent (dry run)",
		"template", msg.Template,
		"to", msg.To,
		slog.Group("params", params...),
	)
	return nil
}
