// Copyright 2025 EURECOM
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
//
// Contributors:
//   Giulio CAROTA
//   Thomas DU
//   Adlen KSENTINI

package simulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/mac"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/utils"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

const apiPrefix = "/mac-scheduler/v1"

// httpStatus maps errors to status codes: unknown UEs are 404, bad input
// 400 and lifecycle conflicts 409.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, mac.ErrUnknownUe):
		return http.StatusNotFound
	case errors.Is(err, mac.ErrInvalidConfig), errors.Is(err, mac.ErrUnknownLogicalChannel):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoInstance), errors.Is(err, ErrInstanceExists), errors.Is(err, ErrNotRunning),
		errors.Is(err, mac.ErrCellReconfigured), errors.Is(err, utils.ErrNoRnti):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "could not encode response", http.StatusInternalServerError)
	}
}

func (app *SchedulerSimulatorApp) handleInitSimulation(w http.ResponseWriter, r *http.Request) {
	// the profile of the config file takes precedence over the request body
	profile := app.config.SimulationProfile
	if profile == nil {
		profile = &CellProfile{}
		if err := json.NewDecoder(r.Body).Decode(profile); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	if err := app.InitNewSimulation(profile); err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, app.GetCurrentSimulationStatus())
}

func (app *SchedulerSimulatorApp) handleStartSimulation(w http.ResponseWriter, r *http.Request) {
	if err := app.StartSimulation(); err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, app.GetCurrentSimulationStatus())
}

func (app *SchedulerSimulatorApp) handleStatusSimulation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.GetCurrentSimulationStatus())
}

func (app *SchedulerSimulatorApp) handleStopSimulation(w http.ResponseWriter, r *http.Request) {
	if err := app.StopSimulation(); err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, app.GetCurrentSimulationStatus())
}

func (app *SchedulerSimulatorApp) handleResetSimulation(w http.ResponseWriter, r *http.Request) {
	if err := app.ResetSimulation(); err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, app.GetCurrentSimulationStatus())
}

func (app *SchedulerSimulatorApp) handleListUes(w http.ResponseWriter, r *http.Request) {
	instance := app.instance()
	if instance == nil {
		http.Error(w, ErrNoInstance.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, instance.Ues())
}

func (app *SchedulerSimulatorApp) handleAddUe(w http.ResponseWriter, r *http.Request) {
	instance := app.instance()
	if instance == nil {
		http.Error(w, ErrNoInstance.Error(), http.StatusConflict)
		return
	}
	req := UeRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rnti, err := instance.AddUe(req)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/ues/%d", apiPrefix, rnti))
	writeJSON(w, http.StatusAccepted, map[string]models.Rnti{"rnti": rnti})
}

func (app *SchedulerSimulatorApp) handleGetUe(w http.ResponseWriter, r *http.Request) {
	instance, rnti, ok := app.ueTarget(w, r)
	if !ok {
		return
	}
	report, err := instance.Ue(rnti)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (app *SchedulerSimulatorApp) handleReleaseUe(w http.ResponseWriter, r *http.Request) {
	instance, rnti, ok := app.ueTarget(w, r)
	if !ok {
		return
	}
	if err := instance.ReleaseUe(rnti); err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (app *SchedulerSimulatorApp) handleSummary(w http.ResponseWriter, r *http.Request) {
	instance := app.instance()
	if instance == nil {
		http.Error(w, ErrNoInstance.Error(), http.StatusConflict)
		return
	}
	summary, err := instance.Summary(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (app *SchedulerSimulatorApp) ueTarget(w http.ResponseWriter, r *http.Request) (*CellInstance, models.Rnti, bool) {
	instance := app.instance()
	if instance == nil {
		http.Error(w, ErrNoInstance.Error(), http.StatusConflict)
		return nil, 0, false
	}
	v, err := strconv.ParseUint(mux.Vars(r)["rnti"], 10, 16)
	if err != nil {
		http.Error(w, "invalid rnti", http.StatusBadRequest)
		return nil, 0, false
	}
	return instance, models.Rnti(v), true
}

// Router builds the OAM API.
func (app *SchedulerSimulatorApp) Router() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix(apiPrefix).Subrouter()

	api.HandleFunc("/configure", app.handleInitSimulation).Methods(http.MethodPost)
	api.HandleFunc("/start", app.handleStartSimulation).Methods(http.MethodPost)
	api.HandleFunc("/status", app.handleStatusSimulation).Methods(http.MethodGet)
	api.HandleFunc("/stop", app.handleStopSimulation).Methods(http.MethodPost)
	api.HandleFunc("/reset", app.handleResetSimulation).Methods(http.MethodPost)
	api.HandleFunc("/ues", app.handleListUes).Methods(http.MethodGet)
	api.HandleFunc("/ues", app.handleAddUe).Methods(http.MethodPost)
	api.HandleFunc("/ues/{rnti:[0-9]+}", app.handleGetUe).Methods(http.MethodGet)
	api.HandleFunc("/ues/{rnti:[0-9]+}", app.handleReleaseUe).Methods(http.MethodDelete)
	api.HandleFunc("/summary", app.handleSummary).Methods(http.MethodGet)
	app.notifier.RegisterNorthboundAPIs(api)
	return router
}

func (app *SchedulerSimulatorApp) startHttpServer() {
	app.wg.Add(1)

	var handler http.Handler = app.Router()
	if app.config.HttpVersion == 2 {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	addr := fmt.Sprintf(":%d", app.config.OamPort)
	app.server = &http.Server{Addr: addr, Handler: handler}

	go func() {
		defer app.wg.Done()

		app.logger.Info("serving simulation api", "addr", addr, "httpVersion", app.config.HttpVersion)
		// always returns error. ErrServerClosed on graceful close
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("oam server stopped", "error", err)
		}
	}()
}

func (app *SchedulerSimulatorApp) stopHttpServer() {
	if app.server != nil {
		if err := app.server.Close(); err != nil {
			app.logger.Warn("could not stop oam server", "error", err)
		}
	}
	if app.metrics != nil {
		if err := app.metrics.Close(); err != nil {
			app.logger.Warn("could not stop metrics server", "error", err)
		}
	}
}
