// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/config"
)

// NewRootCmd creates the root command for the nagolie CLI.
// If deps is nil, default implementations are used.
func NewRootCmd(deps *Deps) *cobra.Command {
	rt := newRuntime(deps)

	cmd := &cobra.Command{
		Use:   "nagolie",
		Short: "Nagolie - investor and admin account client",
		Long: `Nagolie signs investors and administrators in to the Nagolie
platform, keeps their session on this device, and runs the password
reset and investor registration flows.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&rt.configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/nagolie/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	addSessionCommands(cmd, rt)
	cmd.AddCommand(newShellCmd(rt))
	cmd.AddCommand(newMigrateCmd(rt))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// addSessionCommands adds the commands that are also available in the shell.
func addSessionCommands(parent *cobra.Command, rt *runtime) {
	parent.AddCommand(newLoginCmd(rt))
	parent.AddCommand(newLogoutCmd(rt))
	parent.AddCommand(newWhoamiCmd(rt))
	parent.AddCommand(newProfileCmd(rt))
	parent.AddCommand(newForgotPasswordCmd(rt))
	parent.AddCommand(newResetPasswordCmd(rt))
	parent.AddCommand(newInviteCmd(rt))
	parent.AddCommand(newRegisterCmd(rt))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("nagolie %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}

// explain returns the message to show the user for err.
func explain(err error) string {
	if auth.KindOf(err) != "" {
		return auth.ReasonOf(err)
	}
	return err.Error()
}
