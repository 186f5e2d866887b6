// Package metrics holds the Prometheus collectors of the quadrature service.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/njchilds90/goquad"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goquad"

var (
	integrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "integrations_total",
		Help:      "Quadrature calls by rule and outcome",
	}, []string{"rule", "status"})

	integrationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "integration_duration_seconds",
		Help:      "Wall time of one quadrature call including persistence",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12), // 10µs to ~42s
	}, []string{"rule"})

	samplesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "samples_written_total",
		Help:      "Sample points persisted to the sample store",
	})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_calls_total",
		Help:      "Tool calls by tool name and outcome",
	}, []string{"tool", "status"})
)

// Status labels.
const (
	StatusOK         = "ok"
	StatusParseError = "parse_error"
	StatusError      = "error"
)

// Status classifies an integration error for the status label.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, goquad.ErrParse):
		return StatusParseError
	}
	return StatusError
}

// ObserveIntegration records one quadrature call that started at start.
func ObserveIntegration(rule goquad.Rule, start time.Time, res goquad.Result, err error) {
	integrationsTotal.WithLabelValues(rule.String(), Status(err)).Inc()
	integrationDuration.WithLabelValues(rule.String()).Observe(time.Since(start).Seconds())
	if err == nil {
		samplesWritten.Add(float64(res.Samples.Len()))
	}
}

// UnknownTool is the tool label shared by every call naming a tool that does not exist.
const UnknownTool = "unknown"

// ObserveToolCall records one tool call; failed is true when the response carried an error.
// Names outside goquad.ToolNames are counted under UnknownTool so callers cannot grow the label set.
func ObserveToolCall(tool string, failed bool) {
	if !goquad.IsTool(tool) {
		tool = UnknownTool
	}
	status := StatusOK
	if failed {
		status = StatusError
	}
	toolCallsTotal.WithLabelValues(tool, status).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler { return promhttp.Handler() }
