// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

// Package mail delivers account emails and renders the password reset
// message.
package mail

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Delivery results recorded by Metrics.
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Metrics counts delivery attempts. A nil *Metrics records nothing.
type Metrics struct {
	Deliveries *prometheus.CounterVec
}

// NewMetrics creates unregistered delivery metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "empauth_mail_deliveries_total",
				Help: "Email delivery attempts by result",
			},
			[]string{"result"},
		),
	}
}

// MustRegister registers the collectors with reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.Deliveries)
}

func (m *Metrics) record(err error) {
	if m == nil {
		return
	}
	result := ResultSent
	if err != nil {
		result = ResultFailed
	}
	m.Deliveries.WithLabelValues(result).Inc()
}
