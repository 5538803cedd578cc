// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. Each instance owns its registry so tests can
// build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AchievementsGranted *prometheus.CounterVec
	RuleFailures        *prometheus.CounterVec
	GoalSwitches        *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		AchievementsGranted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "achievements_granted_total",
				Help: "Achievements persisted, by type",
			},
			[]string{"type"},
		),
		RuleFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "achievement_rule_failures_total",
				Help: "Achievement rules skipped because storage could not answer",
			},
			[]string{"rule"},
		),
		GoalSwitches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goal_switches_total",
				Help: "Active goal replacements, by outcome",
			},
			[]string{"outcome"},
		),
	}
	m.Registry.MustRegister(
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.AchievementsGranted,
		m.RuleFailures,
		m.GoalSwitches,
	)
	return m
}

// Nil-safe recorders; services hold a *Metrics that may be nil.

// Granted counts one persisted achievement.
func (m *Metrics) Granted(achievementType string) {
	if m == nil {
		return
	}
	m.AchievementsGranted.WithLabelValues(achievementType).Inc()
}

// RuleFailed counts one skipped achievement rule.
func (m *Metrics) RuleFailed(rule string) {
	if m == nil {
		return
	}
	m.RuleFailures.WithLabelValues(rule).Inc()
}

// GoalSwitched counts one active goal replacement attempt.
func (m *Metrics) GoalSwitched(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.GoalSwitches.WithLabelValues(outcome).Inc()
}
