// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/mailer"
	"github.com/JosephNgugi254/Nagolie-project-sub001/pkg/errutil"
)

// ResetAPI is the identity backend surface used by the reset flow.
type ResetAPI interface {
	ForgotPassword(ctx context.Context, email string) (*identity.ForgotPasswordResponse, error)
	ValidateResetToken(ctx context.Context, token string) (*identity.ValidateResetTokenResponse, error)
	ResetPassword(ctx context.Context, req identity.ResetPasswordRequest) (*identity.ResetPasswordResponse, error)
}

// ResetState is a step of the password reset flow.
type ResetState string

// Reset states.
const (
	ResetIdle               ResetState = "idle"
	ResetRequested          ResetState = "requested"
	ResetTokenIssuedKnown   ResetState = "token_issued_known"
	ResetTokenIssuedUnknown ResetState = "token_issued_unknown"
	ResetAwaitingReset      ResetState = "awaiting_reset"
	ResetSubmitting         ResetState = "submitting"
	ResetCompleted          ResetState = "completed"
	ResetFailed             ResetState = "failed"
)

// User-facing reset messages.
const (
	// MsgResetRequested is shown after every accepted reset request, whether
	// or not the address belongs to an account.
	MsgResetRequested   = "If an account with that email exists, you will receive password reset instructions shortly."
	MsgResetUnavailable = "We couldn't process your request right now. Please try again later."
	MsgDeliveryFailed   = "We couldn't send the reset email. Please try again in a few minutes."
	MsgTokenInvalid     = "This reset link is invalid or has expired."
	MsgResetCompleted   = "Your password has been reset. You can now log in."
)

// ResetOutcome is the user-visible result of a reset request.
type ResetOutcome struct {
	Message string
}

// TokenCheck describes a live reset token.
type TokenCheck struct {
	Token        string
	DisplayName  string
	ContactEmail string
}

// ResetSubmission is the completed reset form.
type ResetSubmission struct {
	Token           string
	SecurityAnswer  string
	NewPassword     string
	ConfirmPassword string
}

// ResetReceipt is returned after a successful reset.
type ResetReceipt struct {
	Email       string
	DisplayName string
	Message     string
}

// ResetCoordinator runs the password reset flow. It never reveals whether an
// email address is registered.
type ResetCoordinator struct {
	api   ResetAPI
	mail  mailer.Mailer
	opts  options
	mu    sync.Mutex
	state ResetState
	flow  ulid.ULID
}

// NewResetCoordinator creates a ResetCoordinator.
func NewResetCoordinator(api ResetAPI, m mailer.Mailer, opts ...Option) (*ResetCoordinator, error) {
	if api == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("reset api is required")
	}
	if m == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("mailer is required")
	}
	return &ResetCoordinator{api: api, mail: m, opts: buildOptions(opts), state: ResetIdle}, nil
}

// State returns the current step.
func (c *ResetCoordinator) State() ResetState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// begin starts a new flow step. It fails if a request or submission is
// already in flight.
func (c *ResetCoordinator) begin(next ResetState) (ulid.ULID, *Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ResetRequested || c.state == ResetSubmitting {
		return ulid.ULID{}, fail(KindConflict, "RESET_IN_PROGRESS", ReasonInProgress)
	}
	c.flow = ulid.Make()
	if next != "" {
		c.state = next
	}
	return c.flow, nil
}

// settle moves to next if flow is still current. It reports false for a
// superseded flow, whose result must be discarded.
func (c *ResetCoordinator) settle(flow ulid.ULID, next ResetState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flow != flow {
		return false
	}
	c.state = next
	return true
}

func (c *ResetCoordinator) superseded() *Failure {
	return fail(KindConflict, "RESET_SUPERSEDED", ReasonSuperseded)
}

// RequestReset asks the backend to issue a reset token for email. Known
// and unknown addresses produce the same outcome; only a failure to deliver
// the instructions is reported separately.
func (c *ResetCoordinator) RequestReset(ctx context.Context, email string) (_ *ResetOutcome, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.reset.request")
	defer func() {
		RecordFlow(FlowResetRequest, err, time.Since(start))
		endSpan(span, err)
	}()

	email = strings.TrimSpace(email)
	if email == "" || !validEmail(email) {
		return nil, fail(KindValidation, "RESET_EMAIL_INVALID", "Please enter a valid email address.")
	}

	flow, f := c.begin(ResetRequested)
	if f != nil {
		return nil, f
	}
	span.SetAttributes(attribute.String("reset.flow_id", flow.String()))

	resp, err := c.api.ForgotPassword(ctx, email)
	if err != nil {
		c.settle(flow, ResetIdle)
		return nil, failWrap(KindCollaboratorFailure, "RESET_REQUEST_FAILED", MsgResetUnavailable, err)
	}
	if !resp.Success {
		switch resp.Status {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			c.settle(flow, ResetIdle)
			return nil, rejection("RESET_REQUEST_REJECTED", resp.Envelope, KindValidation)
		case http.StatusTooManyRequests:
			c.settle(flow, ResetIdle)
			return nil, failWrap(KindCollaboratorFailure, "RESET_REQUEST_THROTTLED", MsgResetUnavailable,
				oops.With("status", resp.Status).Errorf("%s", resp.Reason()))
		}
		// Any other refusal, including "no such account", must look like
		// an accepted request.
		c.opts.logger.DebugContext(ctx, "reset request refused by server",
			"flow_id", flow.String(), "status", resp.Status)
		resp = &identity.ForgotPasswordResponse{}
	}

	if !resp.EmailExists || resp.ResetToken == "" {
		if !c.settle(flow, ResetTokenIssuedUnknown) {
			return nil, c.superseded()
		}
		c.opts.logger.DebugContext(ctx, "reset requested", "flow_id", flow.String())
		return &ResetOutcome{Message: MsgResetRequested}, nil
	}

	if !c.settle(flow, ResetTokenIssuedKnown) {
		return nil, c.superseded()
	}
	c.opts.logger.DebugContext(ctx, "reset requested", "flow_id", flow.String())

	msg := mailer.Message{
		Template: mailer.TemplateResetInstructions,
		To:       email,
		Params: map[string]string{
			mailer.ParamToName:           resp.DisplayName,
			mailer.ParamResetLink:        resetLink(c.opts.linkBase, resp.ResetToken),
			mailer.ParamSecurityQuestion: SecurityQuestion,
		},
	}
	if err := c.mail.Send(ctx, msg); err != nil {
		c.opts.logger.WarnContext(ctx, "reset instructions not delivered",
			"flow_id", flow.String(), "error", err)
		return nil, failWrap(KindDeliveryFailed, "RESET_DELIVERY_FAILED", MsgDeliveryFailed, err,
			"flow_id", flow.String())
	}
	return &ResetOutcome{Message: MsgResetRequested}, nil
}

// ValidateToken checks a reset token without consuming it. An invalid or
// expired token returns the flow to idle.
func (c *ResetCoordinator) ValidateToken(ctx context.Context, token string) (_ *TokenCheck, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.reset.validate")
	defer func() {
		RecordFlow(FlowResetVerify, err, time.Since(start))
		endSpan(span, err)
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fail(KindValidation, "RESET_TOKEN_EMPTY", MsgTokenInvalid)
	}
	flow, f := c.begin("")
	if f != nil {
		return nil, f
	}

	resp, err := c.api.ValidateResetToken(ctx, token)
	if err != nil {
		return nil, failWrap(KindCollaboratorFailure, "RESET_VALIDATE_FAILED", MsgResetUnavailable, err)
	}
	if !resp.Success || !resp.Valid {
		if !c.settle(flow, ResetIdle) {
			return nil, c.superseded()
		}
		rej := rejection("RESET_TOKEN_INVALID", resp.Envelope, KindNotFoundOrExpired)
		rej.Kind = KindNotFoundOrExpired
		if rej.Reason == "" {
			rej.Reason = MsgTokenInvalid
		}
		return nil, rej
	}
	if !c.settle(flow, ResetAwaitingReset) {
		return nil, c.superseded()
	}
	return &TokenCheck{Token: token, DisplayName: resp.DisplayName, ContactEmail: resp.ContactEmail}, nil
}

// CompleteReset submits the new password. Local checks run before any
// network call. The backend verifies the security answer and consumes the
// token in one step, so a repeated submission with the same token fails.
func (c *ResetCoordinator) CompleteReset(ctx context.Context, sub ResetSubmission) (_ *ResetReceipt, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth.reset.complete")
	defer func() {
		RecordFlow(FlowResetDone, err, time.Since(start))
		endSpan(span, err)
	}()

	if f := requireFields(sub.Token, sub.SecurityAnswer, sub.NewPassword, sub.ConfirmPassword); f != nil {
		return nil, f
	}
	if f := checkPasswords(sub.NewPassword, sub.ConfirmPassword); f != nil {
		return nil, f
	}

	flow, f := c.begin(ResetSubmitting)
	if f != nil {
		return nil, f
	}

	resp, err := c.api.ResetPassword(ctx, identity.ResetPasswordRequest{
		Token:           strings.TrimSpace(sub.Token),
		SecurityAnswer:  strings.TrimSpace(sub.SecurityAnswer),
		NewPassword:     sub.NewPassword,
		ConfirmPassword: sub.ConfirmPassword,
	})
	if err != nil {
		c.settle(flow, ResetFailed)
		return nil, failWrap(KindCollaboratorFailure, "RESET_COMPLETE_FAILED", MsgResetUnavailable, err)
	}
	if !resp.Success {
		c.settle(flow, ResetFailed)
		return nil, rejection("RESET_REJECTED", resp.Envelope, KindValidation)
	}
	if !c.settle(flow, ResetCompleted) {
		return nil, c.superseded()
	}

	c.notifyPasswordChanged(ctx, resp)
	return &ResetReceipt{Email: resp.Email, DisplayName: resp.DisplayName, Message: MsgResetCompleted}, nil
}

// notifyPasswordChanged is best-effort: the password is already changed.
func (c *ResetCoordinator) notifyPasswordChanged(ctx context.Context, resp *identity.ResetPasswordResponse) {
	if resp.Email == "" {
		return
	}
	err := c.mail.Send(ctx, mailer.Message{
		Template: mailer.TemplatePasswordChanged,
		To:       resp.Email,
		Params: map[string]string{
			mailer.ParamToName:    resp.DisplayName,
			mailer.ParamChangedAt: c.opts.now().UTC().Format(time.RFC1123),
		},
	})
	if err != nil {
		RecordBestEffortFailure("password_changed_email")
		errutil.LogBestEffort(ctx, c.opts.logger, "password_changed_email", err)
	}
}
