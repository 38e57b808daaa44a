// Package metric exposes Prometheus instrumentation for the job engine.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsStarted counts jobs submitted to the harness.
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadscout_jobs_started_total",
		Help: "Number of jobs submitted for execution.",
	})

	// JobsFinished counts jobs reaching a terminal status, by outcome.
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadscout_jobs_finished_total",
		Help: "Number of jobs reaching a terminal status.",
	}, []string{"status"})

	// PollTicks counts status polls against the harness.
	PollTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadscout_poll_ticks_total",
		Help: "Number of job status polls.",
	})

	// PollErrors counts failed status polls.
	PollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadscout_poll_errors_total",
		Help: "Number of job status polls that returned an error.",
	})

	// NotificationsSent counts progress notifications delivered to a channel.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadscout_notifications_sent_total",
		Help: "Number of progress notifications sent.",
	})

	// Recoveries counts recovery attempts, by decision.
	Recoveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadscout_recoveries_total",
		Help: "Number of failure recovery attempts, by decision.",
	}, []string{"decision"})

	// CompletionRequests counts model completion calls, by purpose.
	CompletionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadscout_completion_requests_total",
		Help: "Number of model completion requests, by purpose.",
	}, []string{"purpose"})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
