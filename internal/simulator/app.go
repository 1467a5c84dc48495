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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/mac"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/oam"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/macstats"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/monitoring"
)

/* Simulation Controller code */

type SimulationStatus string

const (
	CONFIGURED SimulationStatus = "CONFIGURED"
	STARTED    SimulationStatus = "STARTED"
	STOPPED    SimulationStatus = "STOPPED"
	ERROR      SimulationStatus = "ERROR"
)

var (
	ErrNoInstance     = errors.New("please configure the simulation via /configure")
	ErrInstanceExists = errors.New("could not initialize the simulation instance, please stop or reset the current instance")
	ErrNotRunning     = errors.New("no running instance")
)

type SimulationStatusResponse struct {
	Status       SimulationStatus `json:"status"`
	SimulationId string           `json:"simulationId,omitempty"`
	Tti          uint64           `json:"tti"`
}

type SchedulerSimulatorApp struct {
	currentInstance *CellInstance
	status          SimulationStatus
	instanceMutex   sync.RWMutex
	server          *http.Server
	metrics         *http.Server
	wg              sync.WaitGroup
	ctx             context.Context
	config          *AppConfig
	logger          *slog.Logger
	stats           *macstats.Store
	notifier        *oam.Notifier
}

func NewSchedulerSimulatorApp(config *AppConfig, logger *slog.Logger) *SchedulerSimulatorApp {
	return &SchedulerSimulatorApp{
		status:   STOPPED,
		ctx:      context.Background(),
		config:   config,
		logger:   logger,
		notifier: oam.NewNotifier(uuid.NewString(), logger),
	}
}

// OpenStats opens the statistics store named in the configuration, if any.
func (app *SchedulerSimulatorApp) OpenStats(ctx context.Context) error {
	if app.config.StatsDb == "" {
		return nil
	}
	st, err := macstats.NewStore(app.config.StatsDb, app.logger)
	if err != nil {
		return err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return fmt.Errorf("migrate stats db: %w", err)
	}
	app.stats = st
	return nil
}

func (app *SchedulerSimulatorApp) InitNewSimulation(profile *CellProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: no configuration provided, could not initialize", mac.ErrInvalidConfig)
	}

	app.instanceMutex.Lock()
	defer app.instanceMutex.Unlock()

	if app.currentInstance != nil {
		return ErrInstanceExists
	}

	simId := uuid.NewString()
	instance, err := NewCellInstance(simId, *profile,
		WithPhy(app.config.Phy),
		WithStatsStore(app.stats),
		WithNotifier(app.notifier),
		WithCellLogger(app.logger),
	)
	if err != nil {
		return err
	}
	if err := instance.Init(app.ctx); err != nil {
		return fmt.Errorf("could not initialize the simulation instance: %w", err)
	}

	app.currentInstance = instance
	app.status = CONFIGURED
	app.logger.Info("simulation configured", "sim", simId)
	return nil
}

func (app *SchedulerSimulatorApp) StartSimulation() error {
	app.instanceMutex.Lock()
	defer app.instanceMutex.Unlock()

	if app.currentInstance == nil {
		return ErrNoInstance
	}

	// If already started, it's a restart - stop first
	if app.status == STARTED {
		if err := app.currentInstance.Stop(app.ctx); err != nil {
			app.logger.Warn("error stopping instance for restart", "error", err)
		}
	}

	app.currentInstance.Start(app.ctx, 0)
	app.status = STARTED
	return nil
}

func (app *SchedulerSimulatorApp) GetCurrentSimulationStatus() SimulationStatusResponse {
	app.instanceMutex.RLock()
	defer app.instanceMutex.RUnlock()

	resp := SimulationStatusResponse{Status: app.status}
	if app.currentInstance != nil {
		resp.SimulationId = app.currentInstance.SimulationId()
		resp.Tti = app.currentInstance.Tti()
	}
	return resp
}

func (app *SchedulerSimulatorApp) StopSimulation() error {
	app.instanceMutex.Lock()
	defer app.instanceMutex.Unlock()

	if app.status == STOPPED || app.currentInstance == nil {
		return ErrNotRunning
	}

	if app.status == STARTED {
		if err := app.currentInstance.Stop(app.ctx); err != nil {
			app.status = ERROR
			return fmt.Errorf("could not stop the simulation instance: %w", err)
		}
	}

	// Don't drop currentInstance - keep it so we can restart
	app.status = STOPPED
	return nil
}

// ResetSimulation stops and forgets the current instance.
func (app *SchedulerSimulatorApp) ResetSimulation() error {
	app.instanceMutex.Lock()
	defer app.instanceMutex.Unlock()

	if app.currentInstance == nil {
		return ErrNoInstance
	}
	if app.status == STARTED {
		if err := app.currentInstance.Stop(app.ctx); err != nil {
			app.logger.Warn("error stopping instance for reset", "error", err)
		}
	}
	if err := app.currentInstance.Close(); err != nil {
		app.logger.Warn("error closing instance for reset", "error", err)
	}
	app.currentInstance.recorder.Reset()
	app.currentInstance = nil
	app.status = STOPPED
	return nil
}

// instance returns the current cell, nil when none is configured.
func (app *SchedulerSimulatorApp) instance() *CellInstance {
	app.instanceMutex.RLock()
	defer app.instanceMutex.RUnlock()
	return app.currentInstance
}

func (app *SchedulerSimulatorApp) Run(ctx context.Context) error {
	var cancel context.CancelFunc
	app.ctx, cancel = context.WithCancel(ctx)
	defer cancel()

	shutdownTracing, err := monitoring.InitTracing(app.ctx, app.config.Tracing, app.logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer monitoring.ShutdownWithTimeout(context.Background(), shutdownTracing, app.logger)

	if err := app.OpenStats(app.ctx); err != nil {
		return fmt.Errorf("open stats db: %w", err)
	}
	if app.stats != nil {
		defer app.stats.Close()
	}
	if err := app.notifier.Init(); err != nil {
		app.logger.Warn("notifier task not started, events are dispatched inline", "error", err)
	}

	app.logger.Info("running config", "config", app.config.Dumps())

	if app.config.InitOnStartup {
		app.logger.Info("bootstraping simulation instance")
		if err := app.InitNewSimulation(app.config.SimulationProfile); err != nil {
			return fmt.Errorf("could not initialize the simulator on startup: %w", err)
		}
	}

	app.wg.Add(1)
	go app.listenShutdownEvent()
	app.startHttpServer()
	app.metrics = monitoring.StartMetricsServer(fmt.Sprintf(":%d", app.config.MetricsPort), app.logger)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	select {
	case <-sigs:
	case <-ctx.Done():
	}

	app.logger.Info("terminating...")
	if app.GetCurrentSimulationStatus().Status == STARTED {
		_ = app.StopSimulation()
	}
	if inst := app.instance(); inst != nil {
		if err := inst.Close(); err != nil {
			app.logger.Warn("error closing instance", "error", err)
		}
	}

	cancel()
	app.wg.Wait()
	return nil
}

func (app *SchedulerSimulatorApp) listenShutdownEvent() {
	defer app.wg.Done()

	<-app.ctx.Done()
	app.stopHttpServer()
}
