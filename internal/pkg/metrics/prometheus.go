package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Workflow execution metrics
	WorkflowExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clientflow_workflow_executions_total",
			Help: "Total number of workflow executions",
		},
		[]string{"status", "trigger_type"},
	)

	ActionExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clientflow_action_executions_total",
			Help: "Total number of action executions",
		},
		[]string{"action_type", "status"},
	)

	// Reminder sweep metrics
	RemindersSweptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clientflow_reminders_swept_total",
			Help: "Total number of reminders processed by the sweeper",
		},
		[]string{"channel", "outcome"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clientflow_sweep_duration_seconds",
			Help:    "Duration of one due-reminder sweep",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clientflow_delivery_duration_seconds",
			Help:    "Duration of outbound notification deliveries",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"channel"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
