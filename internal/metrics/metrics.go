/*
Copyright © 2026 Lumen Language Contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package metrics registers the runtime's prometheus collectors. The serve
// command exposes them at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsStarted counts evaluation jobs submitted to the evaluator.
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lumen_runtime",
		Name:      "evaluation_jobs_started_total",
		Help:      "Evaluation jobs submitted to the evaluator.",
	})

	// JobsInterrupted counts running jobs cancelled by an interrupt command.
	JobsInterrupted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lumen_runtime",
		Name:      "evaluation_jobs_interrupted_total",
		Help:      "Evaluation jobs cancelled by an interrupt command.",
	})

	// CacheInvalidations counts expression cache entries cleared.
	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lumen_runtime",
		Name:      "cache_invalidations_total",
		Help:      "Expression cache entries cleared by edits and recomputes.",
	})

	// NotificationsEmitted counts outbound notifications by method.
	NotificationsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumen_runtime",
		Name:      "notifications_emitted_total",
		Help:      "Outbound notifications emitted, by method.",
	}, []string{"method"})

	// ContextsActive gauges currently live execution contexts.
	ContextsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lumen_runtime",
		Name:      "contexts_active",
		Help:      "Execution contexts currently alive.",
	})

	// SuggestionsVersion gauges the suggestions database version.
	SuggestionsVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lumen_runtime",
		Name:      "suggestions_database_version",
		Help:      "Current version of the suggestions database.",
	})
)
