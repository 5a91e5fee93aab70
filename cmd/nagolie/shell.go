// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
	"github.com/JosephNgugi254/Nagolie-project-sub001/pkg/errutil"
)

const readinessTimeout = 2 * time.Second

func newShellCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively against one session",
		Long: `Start an interactive shell. Every command shares one session manager,
so a login started in the shell is visible to later commands. When
metrics.addr is set, /metrics and /healthz endpoints are served while the
shell runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runShell(ctx, cancel, cmd, rt)
		},
	}
}

func runShell(ctx context.Context, cancel context.CancelFunc, cmd *cobra.Command, rt *runtime) error {
	rt.shell = true
	defer func() {
		rt.shell = false
		rt.close()
	}()

	a, err := rt.open(ctx, cmd)
	if err != nil {
		return err
	}

	if addr := a.cfg.Metrics.Addr; addr != "" {
		obsServer := rt.deps.ObservabilityServerFactory(addr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), readinessTimeout)
			defer pingCancel()
			return a.store.Ping(pingCtx) == nil
		})
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, a.logger)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := obsServer.Stop(shutdownCtx); err != nil {
				a.logger.Warn("error stopping observability server", "error", err)
			}
		}()
		a.logger.Info("observability server started", "addr", obsServer.Addr())
	}

	cmd.Println(`nagolie shell. Type "help" for commands, "exit" to leave.`)
	p := rt.prompt(cmd)
	for {
		var res readResult
		select {
		case <-ctx.Done():
			return nil
		case res = <-readLine(p, shellPrompt(a.manager.State())):
		}
		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				cmd.Println()
				return nil
			}
			return res.err
		}

		args := strings.Fields(res.line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}
		if err := execShellLine(ctx, cmd, rt, args); err != nil {
			cmd.PrintErrln("Error:", explain(err))
			a.logger.Debug("shell command failed", "command", args[0], "kind", string(auth.KindOf(err)))
		}
	}
}

// execShellLine runs one shell line through a fresh command tree that
// shares rt.
func execShellLine(ctx context.Context, parent *cobra.Command, rt *runtime, args []string) error {
	root := &cobra.Command{
		Use:           "",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	addSessionCommands(root, rt)
	root.SetArgs(args)
	root.SetIn(parent.InOrStdin())
	root.SetOut(parent.OutOrStdout())
	root.SetErr(parent.ErrOrStderr())
	return root.ExecuteContext(ctx)
}

func shellPrompt(st auth.State) string {
	if st.Phase == auth.PhaseAuthenticated {
		return "nagolie(" + st.Role.String() + ")> "
	}
	return "nagolie> "
}

type readResult struct {
	line string
	err  error
}

func readLine(p Prompter, prompt string) <-chan readResult {
	ch := make(chan readResult, 1)
	go func() {
		line, err := p.Line(prompt)
		ch <- readResult{line: line, err: err}
	}()
	return ch
}

// monitorServerErrors cancels ctx when the server fails.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			errutil.LogError(logger, "observability server failed, leaving shell", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
