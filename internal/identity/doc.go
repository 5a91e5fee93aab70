// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package identity is the HTTP/JSON client for the Identity API, which
// handles login, reset-token issue and validation, password reset, and
// investor onboarding.
//
// Successful response bodies are checked against JSON Schemas reflected from
// the response types; cmd/gen-schema writes those schemas to disk for the
// API team.
package identity
