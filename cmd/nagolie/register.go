// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
)

// invitationView is the output of invite show.
type invitationView struct {
	InvitationID     string  `yaml:"invitation_id" json:"invitation_id"`
	Name             string  `yaml:"name" json:"name"`
	Email            string  `yaml:"email,omitempty" json:"email,omitempty"`
	Phone            string  `yaml:"phone,omitempty" json:"phone,omitempty"`
	InvestmentAmount float64 `yaml:"investment_amount,omitempty" json:"investment_amount,omitempty"`
}

func newInviteCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Inspect investor invitations",
	}

	var output string
	show := &cobra.Command{
		Use:   "show <invitation-id>",
		Short: "Show the investor an invitation was issued to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, a *app) error {
				inv, err := a.registration.FetchPendingInvestor(ctx, args[0])
				if err != nil {
					return err
				}
				return writeView(cmd, output, invitationView(*inv))
			})
		},
	}
	show.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml or json)")

	cmd.AddCommand(show)
	return cmd
}

func newRegisterCmd(rt *runtime) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "register <invitation-id>",
		Short: "Create an investor account from an invitation",
		Long: `Create an investor account from an invitation. The temporary password
comes from the invitation; on success the new session is stored on this
device.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, a *app) error {
				inv, err := a.registration.FetchPendingInvestor(ctx, args[0])
				if err != nil {
					return err
				}
				cmd.Printf("Registering %s.\n", inv.Name)

				p := rt.prompt(cmd)
				temp, err := p.Secret("Temporary password: ")
				if err != nil {
					return err
				}
				if username, err = valueOrPrompt(p, username, "Username: "); err != nil {
					return err
				}
				password, confirm, err := readNewPassword(cmd, p)
				if err != nil {
					return err
				}

				s, err := a.registration.CompleteRegistration(ctx, auth.RegistrationForm{
					InvitationID:      inv.InvitationID,
					TemporaryPassword: temp,
					Username:          username,
					Password:          password,
					ConfirmPassword:   confirm,
				})
				if err != nil {
					return err
				}
				cmd.Printf("Welcome, %s. Continue at %s\n", s.Profile.DisplayName(), auth.RedirectFor(s.Role))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username for the new account (prompted when empty)")

	return cmd
}
