// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package auth runs the client side of Nagolie authentication.
//
// # Components
//
//   - Manager - login, logout, session adoption and profile updates. It is
//     the only writer of the session store.
//   - RoleResolver - reads the persisted session to answer role questions.
//   - ResetCoordinator - forgot-password request, token check and reset.
//   - RegistrationHandshake - investor invitation lookup and registration.
//
// # Failures
//
// Every operation reports failure as a *Failure carrying a Kind and a
// reason that is safe to show the user. Collaborator errors never escape
// unconverted. Use KindOf and ReasonOf to inspect an error.
//
// Components are created with New* constructors that validate their
// dependencies.
package auth
