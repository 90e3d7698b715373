// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package graphdb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sigil-dev/sparqlgate/internal/sparql"
)

const tracerName = "github.com/sigil-dev/sparqlgate/internal/graphdb"

// Validation stages, used as span event names and metric labels.
const (
	StageParsed           = "parsed"
	StagePrefixNormalized = "prefix_normalized"
	StageIRIValidated     = "iri_validated"
	StageExecuted         = "executed"
	StageSyntaxError      = "syntax_error"
	StageTypeRejected     = "type_rejected"
	StagePrefixUndefined  = "prefix_undefined"
	StageIRINotStored     = "iri_not_stored"
	StageTransportError   = "transport_error"
)

var (
	// Labels: op is the client operation ("eval", "existence_check",
	// "namespaces", "version", ...); outcome is "ok" or the error reason.
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparqlgate",
			Subsystem: "graphdb",
			Name:      "requests_total",
			Help:      "Requests sent to GraphDB.",
		},
		[]string{"op", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sparqlgate",
			Subsystem: "graphdb",
			Name:      "request_duration_seconds",
			Help:      "Duration of GraphDB requests in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	validationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparqlgate",
			Subsystem: "validation",
			Name:      "outcomes_total",
			Help:      "Queries reaching each validation stage, including terminal failures.",
		},
		[]string{"stage"},
	)

	prefixCorrections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparqlgate",
			Subsystem: "prefix",
			Name:      "corrections_total",
			Help:      "Prefix declarations rewritten or injected during normalization.",
		},
		[]string{"kind"},
	)
)

func recordRequest(op string, start time.Time, err error) {
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(op, outcomeOf(err)).Inc()
}

func recordCorrections(corrections []sparql.Correction) {
	for _, c := range corrections {
		prefixCorrections.WithLabelValues(string(c.Kind)).Inc()
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return errorStage(err)
}
