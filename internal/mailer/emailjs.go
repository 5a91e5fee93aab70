// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("nagolie/mailer")

// SendPath is the EmailJS send endpoint, relative to the configured endpoint.
const SendPath = "/api/v1.0/email/send"

// Defaults for the EmailJS client.
const (
	DefaultEndpoint     = "https://api.emailjs.com"
	DefaultTimeout      = 10 * time.Second
	DefaultRetries      = 2
	DefaultRetryBackoff = 250 * time.Millisecond
)

// Config names the EmailJS account and template IDs.
type Config struct {
	Endpoint  string
	ServiceID string
	PublicKey string
	// Templates maps logical template names to provider template IDs.
	Templates map[string]string
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// EmailJS sends messages through the EmailJS REST API.
type EmailJS struct {
	cfg     Config
	http    *http.Client
	retries uint64
	backoff time.Duration
	logger  *slog.Logger
}

// Option configures an EmailJS client.
type Option func(*EmailJS)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *EmailJS) {
		if hc != nil {
			m.http = hc
		}
	}
}

// WithRetries sets how many times a failed send is retried.
func WithRetries(n uint64, backoff time.Duration) Option {
	return func(m *EmailJS) {
		m.retries = n
		if backoff > 0 {
			m.backoff = backoff
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *EmailJS) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewEmailJS validates cfg and returns a client.
func NewEmailJS(cfg Config, opts ...Option) (*EmailJS, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").
			With("endpoint", cfg.Endpoint).
			Errorf("mail endpoint must be an absolute http(s) URL")
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.ServiceID == "" || cfg.PublicKey == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("mail service ID and public key are required")
	}

	m := &EmailJS{
		cfg:     cfg,
		http:    &http.Client{Timeout: DefaultTimeout},
		retries: DefaultRetries,
		backoff: DefaultRetryBackoff,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Send delivers msg. Transport errors and 5xx responses are retried; any
// other non-2xx response fails immediately.
func (m *EmailJS) Send(ctx context.Context, msg Message) (err error) {
	ctx, span := tracer.Start(ctx, "mailer.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("mail.template", msg.Template)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	templateID, ok := m.cfg.Templates[msg.Template]
	if !ok || templateID == "" {
		return oops.Code("MAIL_TEMPLATE_UNKNOWN").
			With("template", msg.Template).
			Errorf("no template ID configured for %q", msg.Template)
	}

	params := make(map[string]string, len(msg.Params)+1)
	for k, v := range msg.Params {
		params[k] = v
	}
	if msg.To != "" {
		params[ParamToEmail] = msg.To
	}
	payload, err := json.Marshal(sendRequest{
		ServiceID:      m.cfg.ServiceID,
		TemplateID:     templateID,
		UserID:         m.cfg.PublicKey,
		TemplateParams: params,
	})
	if err != nil {
		return oops.Code("MAIL_DELIVERY_FAILED").With("template", msg.Template).Wrap(err)
	}

	b := retry.WithMaxRetries(m.retries, retry.NewExponential(m.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		retryable, err := m.post(ctx, payload)
		if err != nil && retryable {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return oops.With("template", msg.Template).Wrap(err)
	}
	m.logger.DebugContext(ctx, "email sent", "template", msg.Template)
	return nil
}

func (m *EmailJS) post(ctx context.Context, payload []byte) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint+SendPath, bytes.NewReader(payload))
	if err != nil {
		return false, oops.Code("MAIL_DELIVERY_FAILED").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return true, oops.Code("MAIL_DELIVERY_FAILED").Wrap(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck // body is diagnostic only

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}
	return resp.StatusCode >= http.StatusInternalServerError, oops.Code("MAIL_DELIVERY_FAILED").
		With("status", resp.StatusCode).
		With("body", strings.TrimSpace(string(body))).
		Errorf("email provider returned %d", resp.StatusCode)
}
