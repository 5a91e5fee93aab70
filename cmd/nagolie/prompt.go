// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/term"
)

// Prompter reads input from the user.
type Prompter interface {
	// Line reads one line of visible input.
	Line(prompt string) (string, error)
	// Secret reads one line without echo when attached to a terminal.
	Secret(prompt string) (string, error)
}

type termPrompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

func newTermPrompter(in io.Reader, out io.Writer) *termPrompter {
	p := &termPrompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok {
		p.fd = int(f.Fd()) //nolint:gosec // file descriptors fit in int
		p.tty = term.IsTerminal(p.fd)
	}
	return p
}

func (p *termPrompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", oops.Code("PROMPT_READ_FAILED").Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *termPrompter) Secret(prompt string) (string, error) {
	if !p.tty {
		return p.Line(prompt)
	}
	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", oops.Code("PROMPT_READ_FAILED").Wrap(err)
	}
	return string(b), nil
}

// valueOrPrompt returns v, or asks for it when empty.
func valueOrPrompt(p Prompter, v, prompt string) (string, error) {
	if strings.TrimSpace(v) != "" {
		return v, nil
	}
	return p.Line(prompt)
}
