// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package provisioner

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
)

type API struct {
	service ServiceInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewAPI(
	service ServiceInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *API {
	return &API{
		service: service,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}

func (a *API) RegisterEndpoints(mux chi.Router) {
	mux.Post("/api/v0/tenants/provision", a.provision)
}

func (a *API) provision(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "provisioner.API.provision")
	defer span.End()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	report, err := a.service.Provision(ctx, &req)
	if err != nil {
		var verr *types.ValidationError
		var lerr *types.LimitExceededError
		var perr *types.ProvisioningError
		switch {
		case errors.As(err, &verr):
			http.Error(w, verr.Error(), http.StatusBadRequest)
		case errors.As(err, &lerr):
			http.Error(w, lerr.Error(), http.StatusForbidden)
		case errors.As(err, &perr):
			a.logger.Errorf("provisioning failed: %v", perr)
			http.Error(w, "provisioning failed at "+perr.Stage, http.StatusInternalServerError)
		default:
			a.logger.Errorf("provisioning failed: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		a.logger.Errorf("failed to encode provisioning report: %v", err)
	}
}
