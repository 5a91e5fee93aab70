// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/config"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity/identitytest"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/mailer/mailertest"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
)

// scriptedPrompter answers prompts from a fixed list and then reports EOF.
type scriptedPrompter struct {
	mu      sync.Mutex
	answers []string
	prompts []string
}

func (p *scriptedPrompter) next(prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	if len(p.answers) == 0 {
		return "", io.EOF
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *scriptedPrompter) Line(prompt string) (string, error)   { return p.next(prompt) }
func (p *scriptedPrompter) Secret(prompt string) (string, error) { return p.next(prompt) }

// harness runs CLI invocations against fake collaborators. The memory
// backend outlives each invocation, like a session file would.
type harness struct {
	identity *identitytest.Server
	mail     *mailertest.Server
	backend  *session.MemoryBackend
	logs     bytes.Buffer
	baseArgs []string
	deps     func(*Deps)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	h := &harness{
		identity: identitytest.New(),
		mail:     mailertest.New(),
		backend:  session.NewMemoryBackend(),
	}
	h.baseArgs = []string{
		"--identity-url", h.identity.Start(t),
		"--identity-retries", "0",
		"--session-backend", config.BackendMemory,
		"--mail-endpoint", h.mail.Start(t),
		"--mail-service-id", "svc",
		"--mail-public-key", "pk",
		"--log-level", "debug",
		"--log-format", "json",
	}
	return h
}

// run executes one CLI invocation and returns its combined output. Flags
// in args override the harness defaults.
func (h *harness) run(answers []string, args ...string) (string, error) {
	deps := &Deps{
		BackendFactory: func(context.Context, config.SessionConfig) (session.Backend, error) {
			return h.backend, nil
		},
		Prompter:  &scriptedPrompter{answers: answers},
		LogWriter: &h.logs,
	}
	if h.deps != nil {
		h.deps(deps)
	}
	cmd := NewRootCmd(deps)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append(append([]string{}, h.baseArgs...), args...))
	err := cmd.Execute()
	return out.String(), err
}
