// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names used as the "operation" metric label.
const (
	OpSignup         = "signup"
	OpLogin          = "login"
	OpAuthenticate   = "authenticate"
	OpChangePassword = "change_password"
	OpDeactivate     = "deactivate"
	OpRequestReset   = "request_password_reset"
	OpConfirmReset   = "confirm_password_reset"
	OpVerifyPassword = "verify_password"
)

// ResultSuccess is the "result" label of operations that returned no error.
// Failures are labelled with their Kind.
const ResultSuccess = "success"

// Metrics counts account operations. A nil *Metrics records nothing.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics creates unregistered account operation metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "empauth_auth_operations_total",
				Help: "Total number of account operations by result",
			},
			[]string{"operation", "result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "empauth_auth_operation_duration_seconds",
				Help:    "Account operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// MustRegister registers the metrics with reg. Panics on duplicate
// registration, following prometheus convention.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.Operations, m.Duration)
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = string(KindOf(err))
	}
	m.Operations.WithLabelValues(operation, result).Inc()
	m.Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
