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

package monitoring

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

var (
	UEsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ue_total",
			Help: "Number of simulated UEs by state",
		},
		[]string{"simulationId", "state"},
	)

	ActiveUes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mac_active_ues",
			Help: "UEs configured in the scheduler",
		},
		[]string{"simulationId"},
	)

	Grants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mac_grants_total",
			Help: "Transport blocks granted by direction and kind",
		},
		[]string{"simulationId", "direction", "kind"},
	)

	AllocatedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mac_allocated_bytes_total",
			Help: "New data bytes granted by direction",
		},
		[]string{"simulationId", "direction"},
	)

	UeBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mac_ue_bytes_total",
			Help: "New data bytes granted per UE and direction",
		},
		[]string{"simulationId", "rnti", "direction"},
	)

	RbgUtilisation = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mac_rbg_utilisation_ratio",
			Help: "Share of RBGs granted in the last TTI",
		},
		[]string{"simulationId", "direction"},
	)

	HarqEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mac_harq_events_total",
			Help: "HARQ feedback outcomes and timeouts",
		},
		[]string{"simulationId", "direction", "outcome"},
	)

	Deferrals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mac_deferrals_total",
			Help: "UEs not granted in a TTI, by reason",
		},
		[]string{"simulationId", "direction", "reason"},
	)

	RachGrants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mac_rach_grants_total",
			Help: "Msg3 grants issued",
		},
		[]string{"simulationId"},
	)

	TtiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mac_tti_duration_seconds",
			Help:    "Wall time spent processing one TTI",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
		},
		[]string{"simulationId"},
	)
)

func init() {
	prometheus.MustRegister(UEsTotal, ActiveUes, Grants, AllocatedBytes, UeBytes, RbgUtilisation, HarqEvents, Deferrals, RachGrants, TtiDuration)
}

// StartMetricsServer serves /metrics on addr until the returned server is shut down.
func StartMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("starting prometheus metrics server", "addr", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}

// SchedulerRecorder exports the outcomes of one simulation's scheduler.
type SchedulerRecorder struct {
	simId string
}

func NewSchedulerRecorder(simId string) *SchedulerRecorder {
	return &SchedulerRecorder{simId: simId}
}

func (r *SchedulerRecorder) ObserveSchedule(dir models.Direction, allocs []models.Allocation, usedRbgs, totalRbgs int) {
	d := dir.String()
	var bytes uint64
	for _, a := range allocs {
		kind := "new"
		if a.IsRetransmission {
			kind = "retx"
		} else {
			bytes += uint64(a.TbSize)
			UeBytes.WithLabelValues(r.simId, strconv.Itoa(int(a.Rnti)), d).Add(float64(a.TbSize))
		}
		Grants.WithLabelValues(r.simId, d, kind).Inc()
	}
	AllocatedBytes.WithLabelValues(r.simId, d).Add(float64(bytes))
	if totalRbgs > 0 {
		RbgUtilisation.WithLabelValues(r.simId, d).Set(float64(usedRbgs) / float64(totalRbgs))
	}
}

func (r *SchedulerRecorder) ObserveDeferral(dir models.Direction, reason models.DeferralReason) {
	Deferrals.WithLabelValues(r.simId, dir.String(), string(reason)).Inc()
}

func (r *SchedulerRecorder) ObserveHarq(dir models.Direction, outcome string) {
	HarqEvents.WithLabelValues(r.simId, dir.String(), outcome).Inc()
}

func (r *SchedulerRecorder) ObserveRachGrants(n int) {
	RachGrants.WithLabelValues(r.simId).Add(float64(n))
}

func (r *SchedulerRecorder) SetActiveUes(n int) {
	ActiveUes.WithLabelValues(r.simId).Set(float64(n))
}

func (r *SchedulerRecorder) ObserveTti(d time.Duration) {
	TtiDuration.WithLabelValues(r.simId).Observe(d.Seconds())
}

// ForgetUe drops the per-UE series of a released UE.
func (r *SchedulerRecorder) ForgetUe(rnti models.Rnti) {
	UeBytes.DeletePartialMatch(prometheus.Labels{"simulationId": r.simId, "rnti": strconv.Itoa(int(rnti))})
}

// Reset removes every series of the simulation.
func (r *SchedulerRecorder) Reset() {
	labels := prometheus.Labels{"simulationId": r.simId}
	for _, v := range []interface{ DeletePartialMatch(prometheus.Labels) int }{
		UEsTotal, ActiveUes, Grants, AllocatedBytes, UeBytes, RbgUtilisation, HarqEvents, Deferrals, RachGrants, TtiDuration,
	} {
		v.DeletePartialMatch(labels)
	}
}
