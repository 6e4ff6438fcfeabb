// Package metrics provides Prometheus metrics for the multisig.
// Counters for proposals, ballots, status transitions and executions;
// a histogram for action dispatch; gauges for health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Proposals ──────────────────────────────────────────────────────────────

// ProposalsCreated tracks successful Propose calls.
var ProposalsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "multisig",
	Name:      "proposals_created_total",
	Help:      "Total proposals created.",
})

// StatusTransitions tracks proposal status changes by target status.
var StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "multisig",
	Name:      "proposal_transitions_total",
	Help:      "Total proposal status transitions by target status.",
}, []string{"status"})

// ─── Ballots ────────────────────────────────────────────────────────────────

// BallotsCast tracks recorded ballots by option, re-votes included.
var BallotsCast = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "multisig",
	Name:      "ballots_cast_total",
	Help:      "Total ballots recorded by option.",
}, []string{"option"})

// ─── Execution ──────────────────────────────────────────────────────────────

// ProposalsExecuted tracks successful Execute calls.
var ProposalsExecuted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "multisig",
	Name:      "proposals_executed_total",
	Help:      "Total proposals executed.",
})

// DispatchFailures tracks Execute calls rolled back by a dispatch error.
var DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "multisig",
	Name:      "dispatch_failures_total",
	Help:      "Total action batches that failed to dispatch.",
})

// DispatchLatency tracks action batch dispatch duration.
var DispatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "multisig",
	Name:      "dispatch_latency_seconds",
	Help:      "Action batch dispatch duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
})

// ActionsDispatched tracks individual actions by target contract.
var ActionsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "multisig",
	Name:      "actions_dispatched_total",
	Help:      "Total actions dispatched by contract.",
}, []string{"contract"})

// ─── Sweeper ────────────────────────────────────────────────────────────────

// SweeperClosed tracks proposals closed by the expiry sweeper.
var SweeperClosed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "multisig",
	Name:      "sweeper_closed_total",
	Help:      "Total expired proposals closed by the sweeper.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "multisig",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
