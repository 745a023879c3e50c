// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package metrics exposes the Prometheus scrape endpoint.
package metrics

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
)

type API struct {
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewAPI(monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	return &API{monitor: monitor, logger: logger}
}

func (a *API) RegisterEndpoints(mux *chi.Mux) {
	mux.Handle("/metrics", promhttp.Handler())
}
