// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package status exposes liveness and readiness endpoints.
package status

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edusuite/platform/internal/db"
	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/version"
)

type API struct {
	manager db.ManagerInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewAPI(manager db.ManagerInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	return &API{manager: manager, monitor: monitor, logger: logger}
}

func (a *API) RegisterEndpoints(mux *chi.Mux) {
	mux.Get("/status/live", a.live)
	mux.Get("/status/ready", a.ready)
}

type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (a *API) live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statusResponse{Status: "ok", Version: version.Version}); err != nil {
		a.logger.Errorf("failed to encode status: %v", err)
	}
}

// ready verifies the platform database answers. Tenant databases are not
// probed; an unreachable tenant affects only its own requests.
func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	client, err := a.manager.Platform(r.Context())
	if err == nil {
		_, err = client.ExecContext(r.Context(), "SELECT 1")
	}
	tags := map[string]string{"component": "platform_db"}
	if err != nil {
		a.logger.Errorf("readiness check failed: %v", err)
		if merr := a.monitor.SetDependencyAvailability(tags, 0); merr != nil {
			a.logger.Errorf("failed to set availability metric: %v", merr)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if merr := a.monitor.SetDependencyAvailability(tags, 1); merr != nil {
		a.logger.Errorf("failed to set availability metric: %v", merr)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statusResponse{Status: "ready", Version: version.Version}); err != nil {
		a.logger.Errorf("failed to encode status: %v", err)
	}
}
