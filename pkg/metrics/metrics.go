// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/logger"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/sentry"
)

const (
	// Component Labels.
	ComponentAPI          = "api"
	ComponentEditor       = "editor"
	ComponentView         = "view"
	ComponentConfigStore  = "config_store"
	ComponentDeviceClient = "device_client"
	ComponentFilesystem   = "filesystem"
)

var (
	// Namespace and subsystem for all metrics.
	namespace = "oak"
	subsystem = "config_builder"

	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors encountered by component",
		},
		[]string{"component", "instance"},
	)

	fieldEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "field_events_total",
			Help:      "Control change events by control kind and outcome (applied, invalid, readonly, unknown)",
		},
		[]string{"control", "outcome"},
	)

	renames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "template_renames_total",
			Help:      "Template renames propagated through the document",
		},
		[]string{"template"},
	)

	saves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "config_saves_total",
			Help:      "Config saves by target (device, export, manual)",
		},
		[]string{"target"},
	)

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of collaborator fetches",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"resource", "status"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "editor_sessions",
			Help:      "Number of mounted editor sessions",
		},
	)

	filesystemOps = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "filesystem_operation_seconds",
			Help:      "Duration of filesystem operations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)
)

// SetupMetricsEndpoint starts the prometheus endpoint on addr in the background.
func SetupMetricsEndpoint(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log := logger.For(logger.ComponentCore)
		log.Infof("Starting metrics server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sentry.ReportIssuef(sentry.IssueTypeError, log, "metrics server failed: %w", err)
		}
	}()

	return server
}

// Handler exposes the default registry, e.g. for mounting inside the API router.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncErrorCountAndLog increments the error counter and logs the error.
func IncErrorCountAndLog(component, instance string, err error, logger *zap.SugaredLogger) {
	errorCounter.WithLabelValues(component, instance).Inc()
	if logger != nil {
		logger.Errorf("%s/%s: %v", component, instance, err)
	}
}

// IncErrorCount increments the error counter for a component.
func IncErrorCount(component, instance string) {
	errorCounter.WithLabelValues(component, instance).Inc()
}

// RecordFieldEvent counts one control change event.
func RecordFieldEvent(control, outcome string) {
	fieldEvents.WithLabelValues(control, outcome).Inc()
}

// RecordRename counts a propagated template rename ("pipeline" or "selector").
func RecordRename(template string) {
	renames.WithLabelValues(template).Inc()
}

// RecordSave counts a saved config by where it ended up.
func RecordSave(target string) {
	saves.WithLabelValues(target).Inc()
}

// ObserveFetch records the duration of a collaborator fetch.
func ObserveFetch(resource string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	fetchDuration.WithLabelValues(resource, status).Observe(duration.Seconds())
}

// SessionMounted / SessionUnmounted track the number of live editor sessions.
func SessionMounted()   { activeSessions.Inc() }
func SessionUnmounted() { activeSessions.Dec() }

// RecordFilesystemOp records filesystem operation metrics.
func RecordFilesystemOp(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	filesystemOps.WithLabelValues(operation, status).Observe(duration.Seconds())
}
