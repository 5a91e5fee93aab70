// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package auth

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
)

// Flow label values.
const (
	FlowLogin        = "login"
	FlowLogout       = "logout"
	FlowAdopt        = "adopt"
	FlowResetRequest = "reset_request"
	FlowResetVerify  = "reset_validate"
	FlowResetDone    = "reset_complete"
	FlowInvitation   = "invitation_fetch"
	FlowRegistration = "registration"
)

// FlowResults counts auth flow outcomes. The outcome label is "success" or
// a lowercased failure kind.
// Use RegisterMetrics to register this with a Prometheus registry.
var FlowResults = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nagolie_auth_flow_results_total",
		Help: "Total number of auth flow results by outcome",
	},
	[]string{"flow", "outcome"},
)

// FlowDuration is the histogram for auth flow duration.
var FlowDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "nagolie_auth_flow_duration_seconds",
		Help:    "Auth flow duration in seconds, including collaborator calls",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"flow"},
)

// BestEffortFailures counts swallowed failures of best-effort steps.
var BestEffortFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nagolie_auth_best_effort_failures_total",
		Help: "Total number of best-effort steps that failed and were ignored",
	},
	[]string{"operation"},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(FlowResults)
	reg.MustRegister(FlowDuration)
	reg.MustRegister(BestEffortFailures)
}

// RecordFlow records the outcome and duration of one flow invocation.
func RecordFlow(flow string, err error, duration time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = "unknown"
		if kind := KindOf(err); kind != "" {
			outcome = strings.ToLower(string(kind))
		}
	}
	FlowResults.WithLabelValues(flow, outcome).Inc()
	FlowDuration.WithLabelValues(flow).Observe(duration.Seconds())
}

// RecordBestEffortFailure increments the best-effort failure counter.
func RecordBestEffortFailure(operation string) {
	BestEffortFailures.WithLabelValues(operation).Inc()
}
