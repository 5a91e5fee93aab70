// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
)

func newForgotPasswordCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password [email]",
		Short: "Request password reset instructions by email",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, a *app) error {
				resets, err := a.resetCoordinator()
				if err != nil {
					return err
				}
				var email string
				if len(args) == 1 {
					email = args[0]
				}
				if email, err = valueOrPrompt(rt.prompt(cmd), email, "Email: "); err != nil {
					return err
				}

				out, err := resets.RequestReset(ctx, email)
				if err != nil {
					return err
				}
				cmd.Println(out.Message)
				return nil
			})
		},
	}
}

func newResetPasswordCmd(rt *runtime) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		Long: `Check a reset token from the reset email, then answer the security
question and choose a new password. The token stays valid until the reset
succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.run(cmd, func(ctx context.Context, a *app) error {
				resets, err := a.resetCoordinator()
				if err != nil {
					return err
				}
				p := rt.prompt(cmd)
				if token, err = valueOrPrompt(p, token, "Reset token: "); err != nil {
					return err
				}

				check, err := resets.ValidateToken(ctx, token)
				if err != nil {
					return err
				}
				if check.DisplayName != "" {
					cmd.Printf("Resetting the password for %s.\n", check.DisplayName)
				}

				cmd.Println(auth.SecurityQuestion)
				answer, err := p.Secret("Answer: ")
				if err != nil {
					return err
				}
				password, confirm, err := readNewPassword(cmd, p)
				if err != nil {
					return err
				}

				receipt, err := resets.CompleteReset(ctx, auth.ResetSubmission{
					Token:           check.Token,
					SecurityAnswer:  answer,
					NewPassword:     password,
					ConfirmPassword: confirm,
				})
				if err != nil {
					return err
				}
				cmd.Println(receipt.Message)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "reset token from the email (prompted when empty)")

	return cmd
}

// readNewPassword asks for a password twice and shows its strength.
func readNewPassword(cmd *cobra.Command, p Prompter) (password, confirm string, err error) {
	if password, err = p.Secret("New password: "); err != nil {
		return "", "", err
	}
	st := auth.PasswordStrength(password)
	cmd.Printf("Password strength: %d%% (%s)\n", st.Score, st.Band)
	if confirm, err = p.Secret("Confirm password: "); err != nil {
		return "", "", err
	}
	return password, confirm, nil
}
