package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ApprovalMetrics records the outcome mix and latency of approval decisions.
type ApprovalMetrics struct {
	duration          *prometheus.HistogramVec
	applied           prometheus.Counter
	voided            prometheus.Counter
	insufficientStock prometheus.Counter
	alreadyDecided    prometheus.Counter
	conflictRetries   prometheus.Counter
}

// NewApprovalMetrics registers the approval metrics on the provided registerer.
func NewApprovalMetrics(reg prometheus.Registerer) *ApprovalMetrics {
	if reg == nil {
		return &ApprovalMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "approval_decision_duration_seconds",
		Help:    "Duration of approval decisions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	applied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "approval_usage_applied_total",
		Help: "Usage records applied through approval.",
	})
	voided := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "approval_usage_voided_total",
		Help: "Usage records voided through rejection.",
	})
	insufficientStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "approval_insufficient_stock_total",
		Help: "Approvals refused because stock could not cover the request.",
	})
	alreadyDecided := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "approval_already_decided_total",
		Help: "Decisions rejected because the record was already terminal.",
	})
	conflictRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "approval_conflict_retries_total",
		Help: "Optimistic concurrency retries during approval.",
	})
	reg.MustRegister(duration, applied, voided, insufficientStock, alreadyDecided, conflictRetries)
	return &ApprovalMetrics{
		duration:          duration,
		applied:           applied,
		voided:            voided,
		insufficientStock: insufficientStock,
		alreadyDecided:    alreadyDecided,
		conflictRetries:   conflictRetries,
	}
}

// ObserveDecision records the duration for the given decision outcome.
func (a *ApprovalMetrics) ObserveDecision(outcome string, duration time.Duration) {
	if a == nil || a.duration == nil {
		return
	}
	a.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncApplied increments the applied counter.
func (a *ApprovalMetrics) IncApplied() {
	if a == nil || a.applied == nil {
		return
	}
	a.applied.Inc()
}

// IncVoided increments the voided counter.
func (a *ApprovalMetrics) IncVoided() {
	if a == nil || a.voided == nil {
		return
	}
	a.voided.Inc()
}

// IncInsufficientStock increments the insufficient stock counter.
func (a *ApprovalMetrics) IncInsufficientStock() {
	if a == nil || a.insufficientStock == nil {
		return
	}
	a.insufficientStock.Inc()
}

// IncAlreadyDecided increments the already-decided counter.
func (a *ApprovalMetrics) IncAlreadyDecided() {
	if a == nil || a.alreadyDecided == nil {
		return
	}
	a.alreadyDecided.Inc()
}

// IncConflictRetry increments the concurrency retry counter.
func (a *ApprovalMetrics) IncConflictRetry() {
	if a == nil || a.conflictRetries == nil {
		return
	}
	a.conflictRetries.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
