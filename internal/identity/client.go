// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package identity

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

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("nagolie/identity")

// Endpoint paths.
const (
	PathLogin                = "/api/auth/login"
	PathForgotPassword       = "/api/auth/forgot-password"
	PathValidateResetToken   = "/api/auth/validate-reset-token/{token}"
	PathResetPassword        = "/api/auth/reset-password"
	PathPendingInvestor      = "/api/investors/pending/{invitationID}"
	PathCompleteRegistration = "/api/investors/{invitationID}/complete-registration"
)

// Defaults.
const (
	DefaultTimeout      = 15 * time.Second
	DefaultRetries      = 2
	DefaultRetryBackoff = 200 * time.Millisecond

	maxResponseBytes = 1 << 20
)

// RequestIDHeader carries a per-request ULID for correlation with server logs.
const RequestIDHeader = "X-Request-ID"

// Client talks to the Identity API over HTTP/JSON.
//
// Transport errors, 5xx responses and bodies that fail to decode or validate
// are returned as errors with an IDENTITY_* code. Any 4xx response is
// returned as a value with Success false and the server's reason.
// Only idempotent GETs are retried.
type Client struct {
	baseURL string
	http    *http.Client
	retries uint64
	backoff time.Duration
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetries sets how often idempotent reads are retried and the base
// exponential backoff between attempts.
func WithRetries(n uint64, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, oops.Code("IDENTITY_CONFIG_INVALID").With("base_url", baseURL).Wrap(err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, oops.Code("IDENTITY_CONFIG_INVALID").
			With("base_url", baseURL).
			Errorf("base url must be an absolute http(s) url")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		retries: DefaultRetries,
		backoff: DefaultRetryBackoff,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login authenticates a username and password.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	req := LoginRequest{Username: username, Password: password}
	if err := c.call(ctx, "login", http.MethodPost, PathLogin, req, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword asks the API to issue a reset token for email.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error) {
	var out ForgotPasswordResponse
	req := ForgotPasswordRequest{Email: email}
	if err := c.call(ctx, "forgot_password", http.MethodPost, PathForgotPassword, req, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateResetToken checks a reset token without consuming it.
func (c *Client) ValidateResetToken(ctx context.Context, token string) (*ValidateResetTokenResponse, error) {
	var out ValidateResetTokenResponse
	path := expand(PathValidateResetToken, "{token}", token)
	if err := c.call(ctx, "validate_reset_token", http.MethodGet, path, nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetPassword submits the new password, security answer and token.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*ResetPasswordResponse, error) {
	var out ResetPasswordResponse
	if err := c.call(ctx, "reset_password", http.MethodPost, PathResetPassword, req, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPendingInvestor fetches the invitation summary.
func (c *Client) GetPendingInvestor(ctx context.Context, invitationID string) (*PendingInvestorResponse, error) {
	var out PendingInvestorResponse
	path := expand(PathPendingInvestor, "{invitationID}", invitationID)
	if err := c.call(ctx, "get_pending_investor", http.MethodGet, path, nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteInvestorRegistration exchanges the temporary credential.
func (c *Client) CompleteInvestorRegistration(
	ctx context.Context,
	invitationID string,
	req CompleteRegistrationRequest,
) (*CompleteRegistrationResponse, error) {
	var out CompleteRegistrationResponse
	path := expand(PathCompleteRegistration, "{invitationID}", invitationID)
	if err := c.call(ctx, "complete_registration", http.MethodPost, path, req, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func expand(pattern, param, value string) string {
	return strings.Replace(pattern, param, url.PathEscape(value), 1)
}

type enveloped interface {
	envelope() *Envelope
}

func (c *Client) call(ctx context.Context, op, method, path string, body any, idempotent bool, out enveloped) (err error) {
	ctx, span := tracer.Start(ctx, "identity."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("identity.operation", op),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return oops.Code("IDENTITY_REQUEST_INVALID").With("operation", op).Wrap(err)
		}
	}

	attempt := func(ctx context.Context) error {
		retryable, err := c.attempt(ctx, op, method, path, payload, out)
		if err != nil && retryable && idempotent {
			return retry.RetryableError(err)
		}
		return err
	}

	if !idempotent {
		return attempt(ctx)
	}
	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	//nolint:wrapcheck // attempt already returns coded errors; ctx errors pass through
	return retry.Do(ctx, b, attempt)
}

// attempt performs one request. retryable reports whether a failure may
// succeed on a later attempt.
func (c *Client) attempt(ctx context.Context, op, method, path string, payload []byte, out enveloped) (retryable bool, err error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, oops.Code("IDENTITY_REQUEST_INVALID").With("operation", op).Wrap(err)
	}
	requestID := ulid.Make().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return true, oops.Code("IDENTITY_UNAVAILABLE").
			With("operation", op).
			With("request_id", requestID).
			Wrap(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return true, oops.Code("IDENTITY_UNAVAILABLE").
			With("operation", op).
			With("request_id", requestID).
			Wrap(err)
	}

	c.logger.DebugContext(ctx, "identity api call",
		"operation", op,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= http.StatusInternalServerError {
		return true, oops.Code("IDENTITY_UNAVAILABLE").
			With("operation", op).
			With("status", resp.StatusCode).
			With("request_id", requestID).
			Errorf("identity api returned %d", resp.StatusCode)
	}
	if err := decode(resp.StatusCode, raw, out); err != nil {
		return false, oops.With("operation", op).With("request_id", requestID).Wrap(err)
	}
	return false, nil
}

// decode collapses the HTTP status into the envelope.
func decode(status int, raw []byte, out enveloped) error {
	env := out.envelope()
	defer func() { env.Status = status }()

	switch {
	case status >= 200 && status < 300:
		if err := json.Unmarshal(raw, out); err != nil {
			return oops.Code("IDENTITY_MALFORMED_RESPONSE").With("status", status).Wrap(err)
		}
		var flag struct {
			Success *bool `json:"success"`
		}
		_ = json.Unmarshal(raw, &flag) //nolint:errcheck // body already decoded above
		env.Success = flag.Success == nil || *flag.Success
		if env.Success {
			return validateResponse(out, raw)
		}
		return nil

	case status >= 400:
		// Error bodies are informational; an undecodable one still yields a reason.
		_ = json.Unmarshal(raw, out) //nolint:errcheck // best-effort decode of error body
		env.Success = false
		if env.Reason() == "" {
			env.Error = http.StatusText(status)
		}
		return nil

	default:
		return oops.Code("IDENTITY_MALFORMED_RESPONSE").
			With("status", status).
			Errorf("unexpected status %d", status)
	}
}
