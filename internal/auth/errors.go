// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package auth

import (
	"errors"
	"net/http"

	"github.com/samber/oops"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity"
)

// Kind classifies a failure for callers deciding how to react.
type Kind string

// Failure kinds.
const (
	KindValidation          Kind = "VALIDATION"
	KindCollaboratorFailure Kind = "COLLABORATOR_FAILURE"
	KindNotFoundOrExpired   Kind = "NOT_FOUND_OR_EXPIRED"
	KindDeliveryFailed      Kind = "DELIVERY_FAILED"
	KindConflict            Kind = "CONFLICT"
	KindUnauthorized        Kind = "UNAUTHORIZED"
)

// User-facing reasons that are not taken from the server.
const (
	ReasonServerUnreachable = "Unable to reach the server. Please check your connection and try again."
	ReasonSessionStorage    = "Unable to save your session on this device. Please try again."
	ReasonInProgress        = "A request is already in progress."
	ReasonSuperseded        = "This request was superseded by a newer one."
	ReasonNoSession         = "You are not logged in."
	ReasonRoleMissing       = "Your account has no role assigned. Please contact an administrator."
	ReasonRoleUnknown       = "Your account role is not supported by this client."
	ReasonForbidden         = "You do not have access to this area."
)

// Failure is the error every auth operation returns. Reason is safe to show
// to the user; Err carries the coded cause for logs.
type Failure struct {
	Kind   Kind
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Reason
	}
	return f.Reason + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf returns the failure kind of err, or "" if err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// ReasonOf returns the user-facing reason for err. Errors that are not
// failures get the generic connectivity message.
func ReasonOf(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ReasonServerUnreachable
}

func fail(kind Kind, code, reason string) *Failure {
	return &Failure{Kind: kind, Reason: reason, Err: oops.Code(code).Errorf("%s", reason)}
}

func failWrap(kind Kind, code, reason string, cause error, ctx ...any) *Failure {
	return &Failure{Kind: kind, Reason: reason, Err: oops.Code(code).With(ctx...).Wrap(cause)}
}

func collaboratorFailure(code string, cause error, ctx ...any) *Failure {
	return failWrap(KindCollaboratorFailure, code, ReasonServerUnreachable, cause, ctx...)
}

// rejection turns a failed envelope into a failure carrying the server's
// reason verbatim. fallback is used when the status alone does not decide.
func rejection(code string, env identity.Envelope, fallback Kind) *Failure {
	kind := fallback
	switch env.Status {
	case http.StatusNotFound, http.StatusGone:
		kind = KindNotFoundOrExpired
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindUnauthorized
	}
	reason := env.Reason()
	return &Failure{
		Kind:   kind,
		Reason: reason,
		Err:    oops.Code(code).With("status", env.Status).Errorf("%s", reason),
	}
}
