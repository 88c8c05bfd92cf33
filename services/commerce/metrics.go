// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package commerce

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for the Chat Service
// =============================================================================

var (
	// chatTurnsTotal counts conversation turns by outcome.
	// Labels: outcome (ok, llm_error, rate_limited, max_iterations)
	chatTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commerce",
		Subsystem: "chat",
		Name:      "turns_total",
		Help:      "Total conversation turns by outcome",
	}, []string{"outcome"})

	// chatTurnSeconds measures end-to-end turn latency, model calls and
	// tool dispatch included.
	chatTurnSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "commerce",
		Subsystem: "chat",
		Name:      "turn_seconds",
		Help:      "End-to-end conversation turn latency",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// toolInvocationsTotal counts dispatched tool calls.
	// Labels: tool, status (ok, error)
	toolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commerce",
		Subsystem: "tools",
		Name:      "invocations_total",
		Help:      "Total dispatched tool calls by tool and status",
	}, []string{"tool", "status"})
)

// recordTurn records one completed conversation turn.
func recordTurn(outcome string, durationSec float64) {
	chatTurnsTotal.WithLabelValues(outcome).Inc()
	chatTurnSeconds.Observe(durationSec)
}

// recordToolInvocation records one dispatched tool call.
func recordToolInvocation(tool string, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	toolInvocationsTotal.WithLabelValues(tool, status).Inc()
}
