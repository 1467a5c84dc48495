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

package ran

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/monitoring"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/trafficgen"
)

const (
	// DataLcId is the logical channel of the default data radio bearer.
	DataLcId models.LcId = 3

	// Msg3Bytes is the size of an RRC connection request.
	Msg3Bytes = 7

	// maxQueueBytes caps the simulated RLC buffers.
	maxQueueBytes = 10 << 20

	// retxGain scales the block error rate of each retransmission.
	retxGain = 0.3
)

// A Ue is a simulated terminal: it reports buffers and channel quality to
// the scheduler and decides whether the transport blocks it is given decode.
type Ue struct {
	Imsi string
	Rnti models.Rnti

	cfg       UeConfig
	simId     string
	state     models.UeState
	channel   models.ChannelState
	rng       *rand.Rand
	logger    *slog.Logger
	dlTraffic trafficgen.TrafficGenerator
	ulTraffic trafficgen.TrafficGenerator
	dlQueue   uint32
	ulQueue   uint32
	createdAt uint64
	// subbandOffset models frequency selectivity as a fixed per-RBG shift.
	subbandOffset []int
	stats         *models.UeMacStats
}

type UeConfig struct {
	Imsi           string
	TxMode         uint8
	DlTraffic      trafficgen.Profile
	UlTraffic      trafficgen.Profile
	CqiPeriod      uint64 // TTIs between wideband reports
	SubbandPeriod  uint64 // TTIs between subband reports, 0 disables them
	DlRbgs         int
	Lifetime       uint64 // TTIs once connected, 0 keeps the UE forever
	Edge           bool
	InitialChannel models.ChannelState
}

// Reports is what a UE hands to the MAC in one TTI. Nil entries were not due.
type Reports struct {
	DlBuffer *models.BufferStatusReport
	UlBuffer *models.BufferStatusReport
	DlCqi    *models.CqiReport
	UlCqi    *models.CqiReport
}

// NewUserEquipment creates a UE in RachPending state.
func NewUserEquipment(cfg UeConfig, rnti models.Rnti, simId string, rng *rand.Rand, tti uint64, now time.Time, logger *slog.Logger) (*Ue, error) {
	dl, err := trafficgen.New(cfg.DlTraffic, rng, now)
	if err != nil {
		return nil, fmt.Errorf("dl traffic: %w", err)
	}
	ul, err := trafficgen.New(cfg.UlTraffic, rng, now)
	if err != nil {
		return nil, fmt.Errorf("ul traffic: %w", err)
	}
	if cfg.CqiPeriod == 0 {
		cfg.CqiPeriod = 5
	}
	offsets := make([]int, cfg.DlRbgs)
	for i := range offsets {
		offsets[i] = rng.IntN(5) - 2
	}
	monitoring.UEsTotal.WithLabelValues(simId, models.RachPending.String()).Inc()
	return &Ue{
		Imsi:          cfg.Imsi,
		Rnti:          rnti,
		cfg:           cfg,
		simId:         simId,
		state:         models.RachPending,
		channel:       cfg.InitialChannel,
		rng:           rng,
		logger:        logger.With("imsi", cfg.Imsi, "rnti", rnti),
		dlTraffic:     dl,
		ulTraffic:     ul,
		createdAt:     tti,
		subbandOffset: offsets,
		stats:         models.NewUeMacStats(rnti, cfg.Imsi, tti),
	}, nil
}

func (ue *Ue) State() models.UeState        { return ue.state }
func (ue *Ue) Channel() models.ChannelState { return ue.channel }
func (ue *Ue) IsEdge() bool                 { return ue.cfg.Edge }
func (ue *Ue) UeConfig() models.UeConfig {
	return models.UeConfig{Rnti: ue.Rnti, TxMode: ue.cfg.TxMode}
}
func (ue *Ue) RachRequest() models.RachRequest {
	return models.RachRequest{Rnti: ue.Rnti, RequestedBytes: Msg3Bytes}
}

// LogicalChannels returns the bearer set up on connection. Voice gets a
// guaranteed bit rate bearer sized from its codec.
func (ue *Ue) LogicalChannels() []models.LcConfig {
	lc := models.LcConfig{LcId: DataLcId, Qci: 9}
	if ue.cfg.DlTraffic.Kind == trafficgen.KindVoip {
		size := ue.cfg.DlTraffic.PacketSize
		if size == 0 {
			size = 40
		}
		interval := ue.cfg.DlTraffic.Interval
		if interval == 0 {
			interval = 20 * time.Millisecond
		}
		gbr := uint64(float64(size*8) / interval.Seconds())
		lc = models.LcConfig{LcId: DataLcId, Qci: 1, IsGbr: true, GbrDl: gbr, GbrUl: gbr}
	}
	return []models.LcConfig{lc}
}

// Connect completes random access.
func (ue *Ue) Connect(tti uint64) {
	if ue.state != models.RachPending {
		return
	}
	ue.state = models.Connected
	ue.stats.AttachTti = tti
	monitoring.UEsTotal.WithLabelValues(ue.simId, models.RachPending.String()).Dec()
	monitoring.UEsTotal.WithLabelValues(ue.simId, models.Connected.String()).Inc()
	ue.logger.Info("ue connected", "tti", tti)
}

func (ue *Ue) Release() {
	if ue.state == models.Released {
		return
	}
	monitoring.UEsTotal.WithLabelValues(ue.simId, ue.state.String()).Dec()
	ue.state = models.Released
	ue.logger.Info("ue released")
}

// Expired reports whether the UE outlived its configured lifetime.
func (ue *Ue) Expired(tti uint64) bool {
	return ue.cfg.Lifetime > 0 && ue.state == models.Connected && tti-ue.stats.AttachTti >= ue.cfg.Lifetime
}

// Step advances the channel and the traffic sources by one TTI and returns
// the reports due. Only connected UEs report.
func (ue *Ue) Step(tti uint64, now time.Time) Reports {
	ue.channel = NextChannelState(ue.channel, ue.rng)
	ue.dlQueue = min(ue.dlQueue+trafficgen.Drain(ue.dlTraffic, now), maxQueueBytes)
	ue.ulQueue = min(ue.ulQueue+trafficgen.Drain(ue.ulTraffic, now), maxQueueBytes)
	if ue.state != models.Connected {
		return Reports{}
	}
	r := Reports{
		DlBuffer: &models.BufferStatusReport{Rnti: ue.Rnti, LcId: DataLcId, TxQueueBytes: ue.dlQueue},
		UlBuffer: &models.BufferStatusReport{Rnti: ue.Rnti, LcId: DataLcId, TxQueueBytes: ue.ulQueue},
	}
	phase := tti - ue.stats.AttachTti
	if phase%ue.cfg.CqiPeriod == 0 {
		wb := ue.drawCqi()
		r.DlCqi = &models.CqiReport{Rnti: ue.Rnti, Wideband: &wb}
		ulWb := ue.drawCqi()
		r.UlCqi = &models.CqiReport{Rnti: ue.Rnti, Wideband: &ulWb}
		if ue.cfg.SubbandPeriod > 0 && phase%ue.cfg.SubbandPeriod == 0 {
			r.DlCqi.Subbands = ue.subbands(wb)
		}
	}
	return r
}

func (ue *Ue) drawCqi() uint8 {
	lo, hi := ue.channel.CqiRange()
	return lo + uint8(ue.rng.IntN(int(hi-lo)+1))
}

func (ue *Ue) subbands(wideband uint8) []uint8 {
	sb := make([]uint8, len(ue.subbandOffset))
	for i, off := range ue.subbandOffset {
		sb[i] = uint8(max(0, min(15, int(wideband)+off)))
	}
	return sb
}

// OnAllocation applies a grant: new data leaves the queues, retransmissions
// only count in the statistics.
func (ue *Ue) OnAllocation(dir models.Direction, a models.Allocation, tti uint64) {
	ue.stats.OnGrant(dir, a.TbSize, a.IsRetransmission, tti)
	if a.IsRetransmission {
		return
	}
	var sent uint32
	for _, pdu := range a.Pdus {
		sent += pdu.Bytes
	}
	if dir == models.Downlink {
		ue.dlQueue -= min(sent, ue.dlQueue)
	} else {
		ue.ulQueue -= min(sent, ue.ulQueue)
	}
}

// Decode draws the outcome of a transport block; retransmissions benefit
// from soft combining.
func (ue *Ue) Decode(dir models.Direction, a models.Allocation) bool {
	bler := ue.channel.Bler()
	for i := uint8(0); i < a.Rv; i++ {
		bler *= retxGain
	}
	ok := ue.rng.Float64() >= bler
	if !ok {
		ue.stats.OnNack(dir)
	}
	return ok
}

// Requeue puts bytes of a failed transmission back in the RLC buffer.
func (ue *Ue) Requeue(dir models.Direction, bytes uint32) {
	if dir == models.Downlink {
		ue.dlQueue = min(ue.dlQueue+bytes, maxQueueBytes)
	} else {
		ue.ulQueue = min(ue.ulQueue+bytes, maxQueueBytes)
	}
}

func (ue *Ue) Queued() (dl, ul uint32) {
	return ue.dlQueue, ue.ulQueue
}

func (ue *Ue) Report(tti uint64) *models.UeMacStatsReport {
	r := ue.stats.GenerateReport(tti)
	r.State = ue.state.String()
	r.Channel = ue.channel.String()
	return r
}
