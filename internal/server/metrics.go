// Package server provides Prometheus metrics for API monitoring.
package server

import (
	"strconv"

	"github.com/fyrsmithlabs/agrod/internal/agent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests.
	// Labels: method, endpoint, status
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrod",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, endpoint, and status code",
		},
		[]string{"method", "endpoint", "status"},
	)

	// QueriesTotal counts processed queries by classification.
	// Labels: classification (help, record_creation, record_analysis, generic)
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrod",
			Subsystem: "agent",
			Name:      "queries_total",
			Help:      "Total processed queries by classification",
		},
		[]string{"classification"},
	)

	// SubmissionsTotal counts ledger write attempts.
	// Labels: operation (create_topic, submit_message), result (success, error)
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrod",
			Subsystem: "ledger",
			Name:      "submissions_total",
			Help:      "Total ledger write attempts by operation and result",
		},
		[]string{"operation", "result"},
	)
)

func recordRequest(method, endpoint string, status int) {
	if endpoint == "" {
		endpoint = "/"
	}
	RequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

func recordQuery(result *agent.Result) {
	classification := "generic"
	switch {
	case result.IsHelp:
		classification = "help"
	case result.CreateRecord || result.FormattedRecord != nil:
		classification = "record_creation"
	case result.IsRecordAnalysis:
		classification = "record_analysis"
	}
	QueriesTotal.WithLabelValues(classification).Inc()
}

func recordSubmission(operation, result string) {
	SubmissionsTotal.WithLabelValues(operation, result).Inc()
}
