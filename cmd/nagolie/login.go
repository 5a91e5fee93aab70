// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

func newLoginCmd(rt *runtime) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.run(cmd, func(ctx context.Context, a *app) error {
				p := rt.prompt(cmd)
				user, err := valueOrPrompt(p, username, "Username: ")
				if err != nil {
					return err
				}
				password, err := p.Secret("Password: ")
				if err != nil {
					return err
				}

				res, err := a.manager.Login(ctx, auth.Credentials{Username: user, Password: password})
				if err != nil {
					return err
				}
				cmd.Printf("Logged in as %s (%s). Continue at %s\n",
					res.Session.Profile.DisplayName(), res.Session.Role, res.Redirect)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username or email (prompted when empty)")

	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session stored on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.manager.Logout(ctx); err != nil {
					return err
				}
				cmd.Println("Logged out.")
				return nil
			})
		},
	}
}

// whoamiView is the output of whoami.
type whoamiView struct {
	Authenticated bool       `yaml:"authenticated" json:"authenticated"`
	Role          string     `yaml:"role,omitempty" json:"role,omitempty"`
	SubjectID     string     `yaml:"subject_id,omitempty" json:"subject_id,omitempty"`
	Name          string     `yaml:"name,omitempty" json:"name,omitempty"`
	Username      string     `yaml:"username,omitempty" json:"username,omitempty"`
	Email         string     `yaml:"email,omitempty" json:"email,omitempty"`
	Home          string     `yaml:"home,omitempty" json:"home,omitempty"`
	TokenExpires  *time.Time `yaml:"token_expires,omitempty" json:"token_expires,omitempty"`
	TokenExpired  bool       `yaml:"token_expired,omitempty" json:"token_expired,omitempty"`
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	var (
		output      string
		requireRole string
	)

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Long: `Show the session stored on this device. Token expiry is read from
the token without verifying it and is informational only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "yaml" && output != "json" {
				return oops.Code("INVALID_OUTPUT").Errorf("output must be 'yaml' or 'json', got %q", output)
			}
			return rt.run(cmd, func(ctx context.Context, a *app) error {
				view := whoamiView{Authenticated: a.roles.IsAuthenticated(ctx)}

				var (
					s   *session.Session
					err error
				)
				if requireRole != "" {
					role, perr := session.ParseRole(requireRole)
					if perr != nil {
						return perr
					}
					s, err = a.roles.RequireRole(ctx, role)
				} else {
					s, err = a.roles.Session(ctx)
				}
				if err != nil {
					return err
				}
				if s != nil {
					fillWhoami(&view, s, time.Now())
				}
				return writeView(cmd, output, view)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml or json)")
	cmd.Flags().StringVar(&requireRole, "require-role", "", "fail unless the session has this role (investor or admin)")

	return cmd
}

func fillWhoami(v *whoamiView, s *session.Session, now time.Time) {
	v.Role = s.Role.String()
	v.SubjectID = s.SubjectID
	v.Name = s.Profile.Name
	v.Username = s.Profile.Username
	v.Email = s.Profile.Email
	v.Home = auth.RedirectFor(s.Role)
	if info, ok := session.InspectToken(s.Token); ok && !info.ExpiresAt.IsZero() {
		exp := info.ExpiresAt.UTC()
		v.TokenExpires = &exp
		v.TokenExpired = info.Expired(now)
	}
}

func writeView(cmd *cobra.Command, output string, v any) error {
	var (
		out []byte
		err error
	)
	if output == "json" {
		out, err = json.MarshalIndent(v, "", "  ")
		out = append(out, '\n')
	} else {
		out, err = yaml.Marshal(v)
	}
	if err != nil {
		return oops.Code("OUTPUT_ENCODE_FAILED").Wrap(err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func newProfileCmd(rt *runtime) *cobra.Command {
	var update session.Profile

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the profile stored with the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.manager.UpdateProfile(ctx, update); err != nil {
					return err
				}
				cmd.Printf("Profile updated for %s.\n", a.manager.Current().Profile.DisplayName())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&update.Name, "name", "", "display name")
	cmd.Flags().StringVar(&update.Email, "email", "", "email address")
	cmd.Flags().StringVar(&update.Phone, "phone", "", "phone number")

	return cmd
}
