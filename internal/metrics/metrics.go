// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes Prometheus collectors for audits and scan cycles.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scalewatch"

// Audit outcome labels.
const (
	OutcomeAudited = "audited"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeInvalid = "invalid"
)

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	audits      *prometheus.CounterVec
	findings    *prometheus.CounterVec
	escalations *prometheus.CounterVec
	duration    prometheus.Histogram
	cycles      prometheus.Counter
	memory      prometheus.Gauge
}

// New creates a registry with the process and Go collectors plus the
// scalewatch collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		audits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Contract audits by outcome.",
		}, []string{"outcome"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Findings reported, by severity.",
		}, []string{"severity"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Escalation attempts by tier and channel result.",
		}, []string{"tier", "channel", "result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_duration_seconds",
			Help:      "Time spent auditing one contract.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_cycles_total",
			Help:      "Completed scan loop cycles.",
		}),
		memory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dedup_memory_size",
			Help:      "Addresses held in dedup memory.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.audits, m.findings, m.escalations, m.duration, m.cycles, m.memory,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAudit records one audit. All methods are nil-safe.
func (m *Metrics) ObserveAudit(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.audits.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) AddFindings(severity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.findings.WithLabelValues(severity).Add(float64(n))
}

func (m *Metrics) ObserveEscalation(tier, channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.escalations.WithLabelValues(tier, channel, result).Inc()
}

func (m *Metrics) ObserveCycle(memorySize int) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	m.memory.Set(float64(memorySize))
}
