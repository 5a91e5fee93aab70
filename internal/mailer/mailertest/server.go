// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package mailertest provides an in-process EmailJS-compatible endpoint.
package mailertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/mailer"
)

// Sent is one accepted send request.
type Sent struct {
	ServiceID  string            `json:"service_id"`
	TemplateID string            `json:"template_id"`
	UserID     string            `json:"user_id"`
	Params     map[string]string `json:"template_params"`
}

// Server records send requests.
type Server struct {
	mu     sync.Mutex
	sent   []Sent
	status int
	calls  int
}

// New returns a server that accepts every request.
func New() *Server {
	return &Server{status: http.StatusOK}
}

// Start serves on a loopback listener until the test ends and returns the
// endpoint URL.
func (s *Server) Start(tb testing.TB) string {
	tb.Helper()
	srv := httptest.NewServer(s)
	tb.Cleanup(srv.Close)
	return srv.URL
}

// Config returns a mailer config pointing at endpoint with one template ID
// per logical template.
func Config(endpoint string) mailer.Config {
	return mailer.Config{
		Endpoint:  endpoint,
		ServiceID: "service_test",
		PublicKey: "public_test",
		Templates: map[string]string{
			mailer.TemplateResetInstructions: "tpl_reset",
			mailer.TemplatePasswordChanged:   "tpl_changed",
		},
	}
}

// FailWith makes every following request answer status. 0 restores success.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	s.status = status
}

// Sent returns the accepted messages in arrival order.
func (s *Server) Sent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}

// Calls returns the number of requests received, including failed ones.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != mailer.SendPath {
		http.NotFound(w, r)
		return
	}
	var in Sent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.status != http.StatusOK {
		http.Error(w, http.StatusText(s.status), s.status)
		return
	}
	s.sent = append(s.sent, in)
	_, _ = w.Write([]byte("OK"))
}
