// Package metrics holds the custom Prometheus collectors for the request
// tracker. HTTP latency and request counts come from the echoprometheus
// middleware; these cover the domain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracker"

// TasksCreatedTotal counts created tasks.
// Labels:
//   - priority: "low", "mid" or "high"
//   - replay: "true" when an Idempotency-Key returned an existing task
var TasksCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_created_total",
		Help:      "Total number of tasks created, by priority.",
	},
	[]string{"priority", "replay"},
)

// TaskTransitionsTotal counts successful status changes by target status.
var TaskTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_transitions_total",
		Help:      "Total number of applied task status transitions.",
	},
	[]string{"to"},
)

var TaskAssignmentsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_assignments_total",
		Help:      "Total number of task assignment updates.",
	},
)

// AuthFailuresTotal counts rejected authentication attempts.
// Label:
//   - reason: "missing_token", "malformed_token", "invalid_token", "invalid_credentials", "locked"
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Total number of rejected authentication attempts, by reason.",
	},
	[]string{"reason"},
)

// RequestErrorsTotal counts error responses rendered by the HTTP error handler.
// Label:
//   - kind: stable error kind (e.g. "not_found", "invalid_transition", "internal")
var RequestErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_errors_total",
		Help:      "Total number of error responses, by error kind.",
	},
	[]string{"kind"},
)
