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
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/amc"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/ffr"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/mac"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/oam"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/ran"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/components/utils"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/macstats"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/monitoring"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/timectrl"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/trafficgen"
)

/* Cell Instance Code */

type harqKey struct {
	dir  models.Direction
	rnti models.Rnti
	proc uint8
}

// UeRequest adds a UE through the OAM API. Zero fields take the defaults
// of the first traffic mix of the profile.
type UeRequest struct {
	Imsi     string              `json:"imsi"`
	TxMode   uint8               `json:"txMode"`
	Edge     bool                `json:"edge"`
	Lifetime uint64              `json:"lifetime"`
	Dl       *trafficgen.Profile `json:"dl,omitempty"`
	Ul       *trafficgen.Profile `json:"ul,omitempty"`
}

// CellInstance runs one scheduler and its UE population. Every mutation
// happens under mu, either in the TTI loop or through the inbox.
type CellInstance struct {
	simId   string
	profile CellProfile
	phyKind string
	logger  *slog.Logger

	mu          sync.Mutex
	sched       *mac.Scheduler
	reuse       ffr.Policy
	rntis       *utils.RntiAllocator
	ues         map[models.Rnti]*ran.Ue
	inbox       []func(tti uint64)
	pendingAdds map[models.Rnti]struct{}
	harq        []*models.HarqIndication
	inflight    map[harqKey]models.Allocation
	rng         *rand.Rand
	spawned     int
	nextArrival uint64
	tti         uint64

	phy      PhyLink
	clock    *timectrl.TtiController
	stats    *macstats.Store
	notifier *oam.Notifier
	recorder *monitoring.SchedulerRecorder
	tracer   trace.Tracer

	runCtx context.Context
	cancel context.CancelFunc
	done   <-chan struct{}
}

type CellOption func(*CellInstance)

func WithStatsStore(st *macstats.Store) CellOption {
	return func(c *CellInstance) { c.stats = st }
}

func WithNotifier(n *oam.Notifier) CellOption {
	return func(c *CellInstance) { c.notifier = n }
}

func WithPhy(kind string) CellOption {
	return func(c *CellInstance) { c.phyKind = kind }
}

func WithCellLogger(l *slog.Logger) CellOption {
	return func(c *CellInstance) { c.logger = l }
}

func NewCellInstance(simId string, profile CellProfile, opts ...CellOption) (*CellInstance, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", mac.ErrInvalidConfig, err)
	}
	c := &CellInstance{
		simId:       simId,
		profile:     profile,
		phyKind:     PhyLoopback,
		logger:      slog.Default(),
		ues:         make(map[models.Rnti]*ran.Ue),
		inflight:    make(map[harqKey]models.Allocation),
		pendingAdds: make(map[models.Rnti]struct{}),
		recorder:    monitoring.NewSchedulerRecorder(simId),
		tracer:      monitoring.Tracer(),
		runCtx:      context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("sim", simId)

	ulBandwidth := profile.UlBandwidth
	if ulBandwidth == 0 {
		ulBandwidth = profile.DlBandwidth
	}
	reuse, err := ffr.New(profile.Ffr, mac.RbgCount(profile.DlBandwidth), mac.RbgCount(ulBandwidth))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mac.ErrInvalidConfig, err)
	}
	c.reuse = reuse

	c.sched, err = mac.New(profile.Scheduler, amc.New(), reuse, mac.WithLogger(c.logger), mac.WithRecorder(c.recorder))
	if err != nil {
		return nil, err
	}
	if err := c.sched.ConfigureCell(profile.Cell()); err != nil {
		return nil, err
	}
	c.rntis, err = utils.NewRntiAllocator(utils.FirstCrnti, utils.LastCrnti)
	if err != nil {
		return nil, err
	}

	seed := profile.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	c.nextArrival = c.interArrival()

	mode := timectrl.RealTime
	if profile.Accelerated {
		mode = timectrl.Accelerated
	}
	c.clock = timectrl.NewTtiController(time.Now(), profile.TtiDuration, mode)
	c.clock.AddListener(c.onTti)
	return c, nil
}

// Init wires the physical layer and records the simulation in the stats store.
func (c *CellInstance) Init(ctx context.Context) error {
	var err error
	switch c.phyKind {
	case PhyGitc:
		c.phy, err = NewGitcPhy(c.simId, c, c.onHarqIndication, c.logger)
	default:
		c.phy = NewLoopbackPhy(c, c.onHarqIndication)
	}
	if err != nil {
		return fmt.Errorf("could not start phy: %w", err)
	}
	if c.stats != nil {
		if err := c.stats.CreateSimulation(ctx, c.simId, c.profile, time.Now()); err != nil {
			return errors.Join(fmt.Errorf("could not record simulation: %w", err), c.Close())
		}
	}
	c.logger.Info("cell initialized", "phy", c.phyKind, "dlBandwidth", c.profile.DlBandwidth, "metric", c.profile.Scheduler.Metric)
	return nil
}

// Start runs the TTI clock until Stop, or for ttis TTIs when non zero.
func (c *CellInstance) Start(ctx context.Context, ttis uint64) <-chan struct{} {
	c.mu.Lock()
	c.runCtx, c.cancel = context.WithCancel(ctx)
	runCtx := c.runCtx
	c.mu.Unlock()

	c.logger.Info("starting simulation", "mode", c.clock.Mode, "ttis", ttis)
	c.done = c.clock.Start(runCtx, ttis)
	return c.done
}

func (c *CellInstance) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}

	c.mu.Lock()
	for _, rnti := range c.sortedRntis() {
		c.release(rnti, c.tti)
	}
	// queued admissions never ran, their rntis go back to the pool
	for rnti := range c.pendingAdds {
		if err := c.rntis.Release(rnti); err != nil {
			c.logger.Warn("could not release pending rnti", "rnti", rnti, "error", err)
		}
		delete(c.pendingAdds, rnti)
	}
	c.harq = nil
	c.inbox = nil
	c.spawned = 0
	c.nextArrival = c.tti + c.interArrival()
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.Flush()
	}
	if c.stats != nil {
		return c.stats.StopSimulation(ctx, c.simId, time.Now())
	}
	return nil
}

// Close releases the physical layer. The instance cannot run afterwards.
func (c *CellInstance) Close() error {
	c.mu.Lock()
	phy := c.phy
	c.phy = nil
	c.mu.Unlock()
	if phy == nil {
		return nil
	}
	return phy.Close()
}

// Step runs exactly one TTI.
func (c *CellInstance) Step() uint64 {
	return c.clock.Step()
}

func (c *CellInstance) SimulationId() string { return c.simId }
func (c *CellInstance) Profile() CellProfile { return c.profile }

func (c *CellInstance) Tti() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tti
}

func (c *CellInstance) onTti(tti uint64, now time.Time) {
	start := time.Now()

	c.mu.Lock()
	ctx, span := c.tracer.Start(c.runCtx, "cell.tti", trace.WithAttributes(
		attribute.String("simulation", c.simId),
		attribute.Int64("tti", int64(tti)),
	))
	c.tti = tti
	c.applyInbox(tti)
	c.applyHarq(tti)
	c.spawnArrivals(tti, now)
	c.stepUes(tti, now)
	ind := c.schedule(ctx, tti, now)
	span.SetAttributes(attribute.Int("ues", len(c.ues)))
	c.mu.Unlock()

	if c.stats != nil && (ind.Dl != nil || ind.Ul != nil) {
		if err := c.stats.RecordSchedule(ctx, c.simId, ind.Dl, ind.Ul); err != nil {
			c.logger.Warn("could not record schedule", "tti", tti, "error", err)
		}
	}
	if c.phy != nil {
		if err := c.phy.Deliver(ind); err != nil {
			c.logger.Warn("could not deliver subframe", "tti", tti, "error", err)
		}
	}
	span.End()
	c.recorder.ObserveTti(time.Since(start))
}

func (c *CellInstance) applyInbox(tti uint64) {
	ops := c.inbox
	c.inbox = nil
	for _, op := range ops {
		op(tti)
	}
}

func (c *CellInstance) onHarqIndication(h *models.HarqIndication) {
	c.mu.Lock()
	c.harq = append(c.harq, h)
	c.mu.Unlock()
}

func (c *CellInstance) applyHarq(tti uint64) {
	pending := c.harq[:0]
	var due []*models.HarqIndication
	for _, h := range c.harq {
		if h.DueTti <= tti {
			due = append(due, h)
		} else {
			pending = append(pending, h)
		}
	}
	c.harq = pending

	for _, h := range due {
		for _, fb := range h.Dl {
			c.applyFeedback(models.Downlink, fb, tti)
		}
		for _, fb := range h.Ul {
			c.applyFeedback(models.Uplink, fb, tti)
		}
		for _, rnti := range h.Msg3 {
			c.inbox = append(c.inbox, func(tti uint64) { c.connect(rnti, tti) })
		}
		for _, rnti := range h.Msg3Lost {
			if ue, ok := c.ues[rnti]; ok && ue.State() == models.RachPending {
				c.requestAccess(ue)
			}
		}
	}
}

func (c *CellInstance) applyFeedback(dir models.Direction, fb models.HarqFeedback, tti uint64) {
	key := harqKey{dir: dir, rnti: fb.Rnti, proc: fb.ProcessId}
	alloc, ok := c.inflight[key]
	delete(c.inflight, key)

	var err error
	if dir == models.Downlink {
		err = c.sched.DlHarqFeedback(fb)
	} else {
		err = c.sched.UlHarqFeedback(fb)
	}
	if err != nil {
		c.logger.Debug("harq feedback rejected", "rnti", fb.Rnti, "dir", dir, "error", err)
		return
	}
	if fb.Ack || !ok {
		return
	}

	cfg := c.profile.Scheduler
	if cfg.HarqEnabled && int(alloc.Rv)+1 < cfg.HarqMaxTransmissions {
		return
	}
	// the block is lost for good, RLC has to send it again
	ue, ok := c.ues[fb.Rnti]
	if !ok {
		return
	}
	var bytes uint32
	for _, pdu := range alloc.Pdus {
		bytes += pdu.Bytes
	}
	ue.Requeue(dir, bytes)
	if cfg.HarqEnabled {
		c.publish(models.MacEvent{
			Type:        models.EventHarqDropped,
			Tti:         tti,
			Rnti:        fb.Rnti,
			Imsi:        ue.Imsi,
			Direction:   dir.String(),
			HarqProcess: models.PtrUint8(fb.ProcessId),
		})
	}
}

func (c *CellInstance) spawnArrivals(tti uint64, now time.Time) {
	for c.spawned < c.profile.NumOfUe && tti >= c.nextArrival {
		mix := c.pickMix()
		cfg := ran.UeConfig{
			Imsi:          generateImsi(c.spawned + 1),
			TxMode:        mix.TxMode,
			DlTraffic:     mix.Dl,
			UlTraffic:     mix.Ul,
			CqiPeriod:     c.profile.CqiPeriod,
			SubbandPeriod: mix.SubbandPeriod,
			Lifetime:      c.profile.UeLifetimeTtis,
			Edge:          c.rng.Float64() < mix.EdgeRatio,
		}
		c.spawned++
		c.nextArrival += c.interArrival()
		if _, err := c.admit(cfg, tti, now); err != nil {
			c.logger.Warn("could not spawn ue", "imsi", cfg.Imsi, "error", err)
		}
	}
}

// admit creates a UE and starts its random access.
func (c *CellInstance) admit(cfg ran.UeConfig, tti uint64, now time.Time) (*ran.Ue, error) {
	rnti, err := c.rntis.Allocate(cfg.Imsi)
	if err != nil {
		return nil, err
	}
	return c.attach(cfg, rnti, tti, now)
}

// attach builds the UE owning an allocated RNTI, the RNTI is returned to
// the pool on failure.
func (c *CellInstance) attach(cfg ran.UeConfig, rnti models.Rnti, tti uint64, now time.Time) (*ran.Ue, error) {
	cfg.DlRbgs = c.sched.DlGrid().Rbgs
	ue, err := ran.NewUserEquipment(cfg, rnti, c.simId, c.rng, tti, now, c.logger)
	if err != nil {
		_ = c.rntis.Release(rnti)
		return nil, err
	}
	c.ues[rnti] = ue
	c.requestAccess(ue)
	return ue, nil
}

func (c *CellInstance) requestAccess(ue *ran.Ue) {
	if err := c.sched.ReportRach(ue.RachRequest()); err != nil {
		c.logger.Warn("random access rejected", "rnti", ue.Rnti, "error", err)
	}
}

func (c *CellInstance) connect(rnti models.Rnti, tti uint64) {
	ue, ok := c.ues[rnti]
	if !ok || ue.State() != models.RachPending {
		return
	}
	if err := c.sched.ConfigureUe(ue.UeConfig()); err != nil {
		c.logger.Error("could not configure ue", "rnti", rnti, "error", err)
		return
	}
	for _, lc := range ue.LogicalChannels() {
		if err := c.sched.ConfigureLogicalChannel(rnti, lc); err != nil {
			c.logger.Error("could not configure logical channel", "rnti", rnti, "lcId", lc.LcId, "error", err)
		}
	}
	c.reuse.SetEdge(rnti, ue.IsEdge())
	ue.Connect(tti)
	c.publish(models.MacEvent{Type: models.EventUeAttached, Tti: tti, Rnti: rnti, Imsi: ue.Imsi})
}

func (c *CellInstance) release(rnti models.Rnti, tti uint64) {
	ue, ok := c.ues[rnti]
	if !ok {
		return
	}
	if err := c.sched.ReleaseUe(rnti); err != nil && !errors.Is(err, mac.ErrUnknownUe) {
		c.logger.Warn("could not release ue", "rnti", rnti, "error", err)
	}
	ue.Release()
	delete(c.ues, rnti)
	for k := range c.inflight {
		if k.rnti == rnti {
			delete(c.inflight, k)
		}
	}
	c.reuse.Forget(rnti)
	c.recorder.ForgetUe(rnti)
	if err := c.rntis.Release(rnti); err != nil {
		c.logger.Warn("could not release rnti", "rnti", rnti, "error", err)
	}
	c.publish(models.MacEvent{Type: models.EventUeReleased, Tti: tti, Rnti: rnti, Imsi: ue.Imsi})
}

func (c *CellInstance) stepUes(tti uint64, now time.Time) {
	for _, rnti := range c.sortedRntis() {
		ue := c.ues[rnti]
		if ue.Expired(tti) {
			c.release(rnti, tti)
			continue
		}
		r := ue.Step(tti, now)
		if r.DlBuffer != nil {
			c.report(c.sched.UpdateDlBuffer(*r.DlBuffer), rnti)
		}
		if r.UlBuffer != nil {
			c.report(c.sched.UpdateUlBuffer(*r.UlBuffer), rnti)
		}
		if r.DlCqi != nil {
			c.report(c.sched.ReportDlCqi(*r.DlCqi), rnti)
		}
		if r.UlCqi != nil {
			c.report(c.sched.ReportUlCqi(*r.UlCqi), rnti)
		}
	}
}

func (c *CellInstance) report(err error, rnti models.Rnti) {
	if err != nil {
		c.logger.Debug("report rejected", "rnti", rnti, "error", err)
	}
}

func (c *CellInstance) schedule(ctx context.Context, tti uint64, now time.Time) *models.SubframeIndication {
	ind := &models.SubframeIndication{SimulationId: c.simId, Tti: tti, TimeStamp: now}
	cell, _ := c.sched.Cell()
	sf := int(tti % 10)

	if cell.CarriesDownlink(sf) {
		_, span := c.tracer.Start(ctx, "mac.schedule_dl")
		dl, err := c.sched.ScheduleDl(tti)
		span.SetAttributes(attribute.Int("allocations", len(dl.Allocations)), attribute.Int("deferrals", len(dl.Deferrals)))
		span.End()
		if err != nil {
			c.logger.Error("downlink scheduling failed", "tti", tti, "error", err)
		} else {
			c.applyAllocations(models.Downlink, dl.Allocations, tti)
			ind.Dl = &dl
		}
	}

	if cell.CarriesUplink(sf) {
		_, span := c.tracer.Start(ctx, "mac.schedule_ul")
		ul, err := c.sched.ScheduleUl(tti)
		span.SetAttributes(attribute.Int("allocations", len(ul.Allocations)), attribute.Int("rachGrants", len(ul.RachGrants)))
		span.End()
		if err != nil {
			c.logger.Error("uplink scheduling failed", "tti", tti, "error", err)
		} else {
			c.applyAllocations(models.Uplink, ul.Allocations, tti)
			for _, d := range ul.Deferrals {
				if d.Reason == models.DeferralRachExpired {
					c.onRachExpired(d.Rnti, tti)
				}
			}
			ind.Ul = &ul
		}
	}
	return ind
}

func (c *CellInstance) applyAllocations(dir models.Direction, allocs []models.Allocation, tti uint64) {
	for _, a := range allocs {
		ue, ok := c.ues[a.Rnti]
		if !ok {
			continue
		}
		ue.OnAllocation(dir, a, tti)
		c.inflight[harqKey{dir: dir, rnti: a.Rnti, proc: a.HarqProcess}] = a
	}
}

// onRachExpired starts a new random access attempt for the UE.
func (c *CellInstance) onRachExpired(rnti models.Rnti, tti uint64) {
	ue, ok := c.ues[rnti]
	if !ok {
		return
	}
	c.publish(models.MacEvent{Type: models.EventRachExpired, Tti: tti, Rnti: rnti, Imsi: ue.Imsi})
	c.requestAccess(ue)
}

func (c *CellInstance) publish(ev models.MacEvent) {
	if c.notifier == nil {
		return
	}
	ev.SimulationId = c.simId
	ev.TimeStamp = time.Now()
	c.notifier.Publish("CELL-"+c.simId, ev)
}

// Decode implements Decoder.
func (c *CellInstance) Decode(dir models.Direction, a models.Allocation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ue, ok := c.ues[a.Rnti]
	if !ok {
		return false
	}
	return ue.Decode(dir, a)
}

func (c *CellInstance) DecodeMsg3(g models.RachGrant) bool {
	return c.Decode(models.Uplink, models.Allocation{Rnti: g.Rnti, Rbgs: g.Rbgs, Mcs: g.Mcs, TbSize: g.TbSize})
}

// AddUe queues a UE for admission at the next TTI boundary and returns its RNTI.
func (c *CellInstance) AddUe(req UeRequest) (models.Rnti, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mix := c.profile.Traffic[0]
	cfg := ran.UeConfig{
		Imsi:          req.Imsi,
		TxMode:        req.TxMode,
		DlTraffic:     mix.Dl,
		UlTraffic:     mix.Ul,
		CqiPeriod:     c.profile.CqiPeriod,
		SubbandPeriod: mix.SubbandPeriod,
		Lifetime:      req.Lifetime,
		Edge:          req.Edge,
	}
	if cfg.Imsi == "" {
		c.spawned++
		cfg.Imsi = generateImsi(c.spawned)
	}
	if cfg.TxMode == 0 {
		cfg.TxMode = mix.TxMode
	}
	if cfg.TxMode > 7 {
		return 0, fmt.Errorf("%w: transmission mode %d", mac.ErrInvalidConfig, cfg.TxMode)
	}
	if req.Dl != nil {
		cfg.DlTraffic = *req.Dl
	}
	if req.Ul != nil {
		cfg.UlTraffic = *req.Ul
	}
	if _, ok := c.rntis.Lookup(cfg.Imsi); ok {
		return 0, fmt.Errorf("%w: imsi %s already attached", mac.ErrInvalidConfig, cfg.Imsi)
	}

	if _, err := trafficgen.New(cfg.DlTraffic, c.rng, time.Time{}); err != nil {
		return 0, fmt.Errorf("%w: dl traffic: %w", mac.ErrInvalidConfig, err)
	}
	if _, err := trafficgen.New(cfg.UlTraffic, c.rng, time.Time{}); err != nil {
		return 0, fmt.Errorf("%w: ul traffic: %w", mac.ErrInvalidConfig, err)
	}

	rnti, err := c.rntis.Allocate(cfg.Imsi)
	if err != nil {
		return 0, err
	}
	c.pendingAdds[rnti] = struct{}{}
	c.inbox = append(c.inbox, func(tti uint64) {
		delete(c.pendingAdds, rnti)
		if _, err := c.attach(cfg, rnti, tti, c.clock.Now()); err != nil {
			c.logger.Warn("could not admit ue", "imsi", cfg.Imsi, "error", err)
		}
	})
	return rnti, nil
}

// ReleaseUe queues the release of a UE for the next TTI boundary.
func (c *CellInstance) ReleaseUe(rnti models.Rnti) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ues[rnti]; !ok {
		return fmt.Errorf("%w: rnti %d", mac.ErrUnknownUe, rnti)
	}
	c.inbox = append(c.inbox, func(tti uint64) { c.release(rnti, tti) })
	return nil
}

func (c *CellInstance) Ue(rnti models.Rnti) (*models.UeMacStatsReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ue, ok := c.ues[rnti]
	if !ok {
		return nil, fmt.Errorf("%w: rnti %d", mac.ErrUnknownUe, rnti)
	}
	return ue.Report(c.tti), nil
}

func (c *CellInstance) Ues() []*models.UeMacStatsReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.UeMacStatsReport, 0, len(c.ues))
	for _, rnti := range c.sortedRntis() {
		out = append(out, c.ues[rnti].Report(c.tti))
	}
	return out
}

// Summary returns the per-UE totals stored for the simulation.
func (c *CellInstance) Summary(ctx context.Context) ([]macstats.UeSummary, error) {
	if c.stats == nil {
		return nil, errors.New("statistics store disabled")
	}
	return c.stats.UeSummary(ctx, c.simId)
}

func (c *CellInstance) sortedRntis() []models.Rnti {
	out := make([]models.Rnti, 0, len(c.ues))
	for rnti := range c.ues {
		out = append(out, rnti)
	}
	slices.Sort(out)
	return out
}

func (c *CellInstance) pickMix() TrafficMix {
	var total float64
	for _, m := range c.profile.Traffic {
		total += m.Weight
	}
	x := c.rng.Float64() * total
	for _, m := range c.profile.Traffic {
		if x < m.Weight {
			return m
		}
		x -= m.Weight
	}
	return c.profile.Traffic[len(c.profile.Traffic)-1]
}

// interArrival draws an exponential inter-arrival time in TTIs.
func (c *CellInstance) interArrival() uint64 {
	if c.profile.ArrivalRate <= 0 {
		return 0
	}
	seconds := c.rng.ExpFloat64() / c.profile.ArrivalRate
	return uint64(seconds / c.profile.TtiDuration.Seconds())
}

func generateImsi(n int) string {
	return fmt.Sprintf("00101%010d", n)
}
