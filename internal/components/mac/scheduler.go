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

package mac

import (
	"fmt"
	"log/slog"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

// LinkAdaptation maps channel quality to modulation and coding.
// TB sizes are in bits for a single spatial layer.
type LinkAdaptation interface {
	Lookup(cqi, nRb int) (mcs int, tbBits int)
	TbSize(mcs, nRb int) int
}

// FrequencyReuse restricts which RBGs a UE may use.
type FrequencyReuse interface {
	DlRbgAllowed(rnti models.Rnti, rbg int) bool
	UlRbgAllowed(rnti models.Rnti, rbg int) bool
}

// Recorder receives scheduling outcomes, typically to export them as metrics.
type Recorder interface {
	ObserveSchedule(dir models.Direction, allocs []models.Allocation, usedRbgs, totalRbgs int)
	ObserveDeferral(dir models.Direction, reason models.DeferralReason)
	ObserveHarq(dir models.Direction, outcome string)
	ObserveRachGrants(n int)
	SetActiveUes(n int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveSchedule(models.Direction, []models.Allocation, int, int) {}
func (noopRecorder) ObserveDeferral(models.Direction, models.DeferralReason)         {}
func (noopRecorder) ObserveHarq(models.Direction, string)                            {}
func (noopRecorder) ObserveRachGrants(int)                                           {}
func (noopRecorder) SetActiveUes(int)                                                {}

type allowAll struct{}

func (allowAll) DlRbgAllowed(models.Rnti, int) bool { return true }
func (allowAll) UlRbgAllowed(models.Rnti, int) bool { return true }

// HARQ outcomes reported to the Recorder besides FeedbackOutcome strings.
const HarqTimeout = "TIMEOUT"

type Config struct {
	Metric               string  `yaml:"metric" json:"metric"`
	NMux                 int     `yaml:"nMux" json:"nMux"`
	CqiValidityTtis      uint32  `yaml:"cqiValidityTtis" json:"cqiValidityTtis"`
	HarqEnabled          bool    `yaml:"harqEnabled" json:"harqEnabled"`
	HarqMaxTransmissions int     `yaml:"harqMaxTransmissions" json:"harqMaxTransmissions"`
	TimeWindow           float64 `yaml:"timeWindow" json:"timeWindow"`
	DefaultDlCqi         uint8   `yaml:"defaultDlCqi" json:"defaultDlCqi"`
	UlGrantMcs           int     `yaml:"ulGrantMcs" json:"ulGrantMcs"`
	MinUlRbgPerUe        int     `yaml:"minUlRbgPerUe" json:"minUlRbgPerUe"`
	RachMaxRbgs          int     `yaml:"rachMaxRbgs" json:"rachMaxRbgs"`
	RachMaxWaitTtis      uint32  `yaml:"rachMaxWaitTtis" json:"rachMaxWaitTtis"` // 0 waits without bound
}

func DefaultConfig() Config {
	return Config{
		Metric:               MetricPss,
		CqiValidityTtis:      DefaultCqiValidity,
		HarqEnabled:          true,
		HarqMaxTransmissions: DefaultMaxTransmissions,
		TimeWindow:           DefaultTimeWindow,
		DefaultDlCqi:         1,
		MinUlRbgPerUe:        1,
		RachMaxWaitTtis:      DefaultRachMaxWait,
	}
}

func (c Config) Validate() error {
	if _, err := MetricByName(c.Metric); err != nil {
		return err
	}
	switch {
	case c.NMux < 0:
		return fmt.Errorf("%w: nMux must not be negative", ErrInvalidConfig)
	case c.CqiValidityTtis == 0:
		return fmt.Errorf("%w: cqiValidityTtis must be positive", ErrInvalidConfig)
	case c.HarqMaxTransmissions < 1 || c.HarqMaxTransmissions > 4:
		return fmt.Errorf("%w: harqMaxTransmissions must be in 1..4", ErrInvalidConfig)
	case c.TimeWindow < 1:
		return fmt.Errorf("%w: timeWindow must be at least 1", ErrInvalidConfig)
	case c.DefaultDlCqi < 1 || c.DefaultDlCqi > 15:
		return fmt.Errorf("%w: defaultDlCqi must be in 1..15", ErrInvalidConfig)
	case c.UlGrantMcs < 0 || c.UlGrantMcs > 28:
		return fmt.Errorf("%w: ulGrantMcs must be in 0..28", ErrInvalidConfig)
	case c.MinUlRbgPerUe < 1:
		return fmt.Errorf("%w: minUlRbgPerUe must be positive", ErrInvalidConfig)
	case c.RachMaxRbgs < 0:
		return fmt.Errorf("%w: rachMaxRbgs must not be negative", ErrInvalidConfig)
	}
	return nil
}

type Option func(*Scheduler)

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Scheduler is the MAC scheduler of one cell. It is not safe for concurrent
// use: callers serialise every call, typically from a single TTI loop.
type Scheduler struct {
	cfg      Config
	amc      LinkAdaptation
	ffr      FrequencyReuse
	metric   RankingMetric
	logger   *slog.Logger
	recorder Recorder

	cell   *models.CellConfig
	dlGrid Grid
	ulGrid Grid

	ues        ueTable
	rach       *RachQueue
	nextRntiUl models.Rnti
	tti        uint64
}

// New builds a scheduler. A nil FrequencyReuse allows every RBG.
func New(cfg Config, amc LinkAdaptation, ffr FrequencyReuse, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if amc == nil {
		return nil, fmt.Errorf("%w: link adaptation is required", ErrInvalidConfig)
	}
	metric, _ := MetricByName(cfg.Metric)
	if ffr == nil {
		ffr = allowAll{}
	}
	s := &Scheduler{
		cfg:      cfg,
		amc:      amc,
		ffr:      ffr,
		metric:   metric,
		logger:   slog.Default(),
		recorder: noopRecorder{},
		ues:      newUeTable(),
		rach:     NewRachQueue(cfg.RachMaxWaitTtis),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "mac", "metric", metric.Name())
	return s, nil
}

func (s *Scheduler) Config() Config {
	return s.cfg
}

// Cell returns the accepted cell configuration.
func (s *Scheduler) Cell() (models.CellConfig, bool) {
	if s.cell == nil {
		return models.CellConfig{}, false
	}
	return *s.cell, true
}

func (s *Scheduler) DlGrid() Grid { return s.dlGrid }
func (s *Scheduler) UlGrid() Grid { return s.ulGrid }

func (s *Scheduler) UeCount() int {
	return s.ues.len()
}

func (s *Scheduler) HasUe(rnti models.Rnti) bool {
	_, ok := s.ues.get(rnti)
	return ok
}

func (s *Scheduler) PendingRach() int {
	return s.rach.Len()
}

// ConfigureCell accepts the cell once. Repeating the same configuration is a
// no-op, any other change is rejected.
func (s *Scheduler) ConfigureCell(cell models.CellConfig) error {
	if cell.UlBandwidth == 0 {
		cell.UlBandwidth = cell.DlBandwidth
	}
	if cell.Duplex == "" {
		cell.Duplex = models.DuplexFdd
	}
	if err := validateCell(cell); err != nil {
		return err
	}
	if s.cell != nil {
		if *s.cell == cell {
			return nil
		}
		return ErrCellReconfigured
	}
	s.cell = &cell
	s.dlGrid = NewGrid(cell.DlBandwidth)
	s.ulGrid = NewGrid(cell.UlBandwidth)
	s.logger.Info("cell configured",
		"dlBandwidth", cell.DlBandwidth, "ulBandwidth", cell.UlBandwidth,
		"duplex", cell.Duplex, "dlRbgs", s.dlGrid.Rbgs, "ulRbgs", s.ulGrid.Rbgs)
	return nil
}

func validateCell(cell models.CellConfig) error {
	switch {
	case cell.DlBandwidth < 6 || cell.DlBandwidth > 110:
		return fmt.Errorf("%w: dl bandwidth %d outside 6..110", ErrInvalidConfig, cell.DlBandwidth)
	case cell.UlBandwidth < 6 || cell.UlBandwidth > 110:
		return fmt.Errorf("%w: ul bandwidth %d outside 6..110", ErrInvalidConfig, cell.UlBandwidth)
	case cell.Duplex != models.DuplexFdd && cell.Duplex != models.DuplexTdd:
		return fmt.Errorf("%w: duplex %q", ErrInvalidConfig, cell.Duplex)
	case cell.Duplex == models.DuplexTdd && (cell.TddConfig < 0 || cell.TddConfig > 6):
		return fmt.Errorf("%w: tdd configuration %d outside 0..6", ErrInvalidConfig, cell.TddConfig)
	}
	return nil
}

// ConfigureUe adds a UE, or updates the transmission mode of a known one.
func (s *Scheduler) ConfigureUe(cfg models.UeConfig) error {
	if s.cell == nil {
		return ErrCellNotConfigured
	}
	if cfg.Rnti == 0 {
		return fmt.Errorf("%w: rnti 0 is reserved", ErrInvalidConfig)
	}
	if cfg.TxMode == 0 {
		cfg.TxMode = 1
	}
	if cfg.TxMode > 7 {
		return fmt.Errorf("%w: transmission mode %d", ErrInvalidConfig, cfg.TxMode)
	}
	if ue, ok := s.ues.get(cfg.Rnti); ok {
		ue.cfg = cfg
		ue.layers = cfg.Layers()
		return nil
	}
	ue := &ueContext{
		rnti:     cfg.Rnti,
		cfg:      cfg,
		lcs:      make(map[models.LcId]models.LcConfig),
		layers:   cfg.Layers(),
		dlHarq:   NewHarqTable(HarqDlTimeout, s.cfg.HarqMaxTransmissions, s.cfg.HarqEnabled),
		ulHarq:   NewHarqTable(HarqUlTimeout, s.cfg.HarqMaxTransmissions, s.cfg.HarqEnabled),
		dlCqi:    NewChannelQuality(s.cfg.CqiValidityTtis),
		ulCqi:    NewChannelQuality(s.cfg.CqiValidityTtis),
		dlBuffer: NewBufferTracker(),
		ulBuffer: NewBufferTracker(),
		dlFlow:   newFlowPerf(s.tti),
		ulFlow:   newFlowPerf(s.tti),
	}
	s.ues.insert(ue)
	s.recorder.SetActiveUes(s.ues.len())
	s.logger.Debug("ue configured", "rnti", cfg.Rnti, "txMode", cfg.TxMode)
	return nil
}

func (s *Scheduler) ConfigureLogicalChannel(rnti models.Rnti, lc models.LcConfig) error {
	ue, ok := s.ues.get(rnti)
	if !ok {
		return fmt.Errorf("%w: rnti %d", ErrUnknownUe, rnti)
	}
	ue.lcs[lc.LcId] = lc
	ue.dlBuffer.AddChannel(lc.LcId)
	ue.ulBuffer.AddChannel(lc.LcId)
	ue.refreshTargets()
	return nil
}

func (s *Scheduler) ReleaseLogicalChannel(rnti models.Rnti, lcid models.LcId) error {
	ue, ok := s.ues.get(rnti)
	if !ok {
		return fmt.Errorf("%w: rnti %d", ErrUnknownUe, rnti)
	}
	if _, ok := ue.lcs[lcid]; !ok {
		return fmt.Errorf("%w: rnti %d lcid %d", ErrUnknownLogicalChannel, rnti, lcid)
	}
	delete(ue.lcs, lcid)
	ue.dlBuffer.RemoveChannel(lcid)
	ue.ulBuffer.RemoveChannel(lcid)
	ue.refreshTargets()
	return nil
}

// ReleaseUe drops every piece of state held for the UE. A pending random
// access request is dropped even when the UE was never configured.
func (s *Scheduler) ReleaseUe(rnti models.Rnti) error {
	s.rach.Purge(rnti)
	if !s.ues.remove(rnti) {
		return fmt.Errorf("%w: rnti %d", ErrUnknownUe, rnti)
	}
	s.recorder.SetActiveUes(s.ues.len())
	s.logger.Debug("ue released", "rnti", rnti)
	return nil
}

func (s *Scheduler) UpdateDlBuffer(r models.BufferStatusReport) error {
	ue, ok := s.ues.get(r.Rnti)
	if !ok {
		return fmt.Errorf("%w: rnti %d", ErrUnknownUe, r.Rnti)
	}
	return ue.dlBuffer.Update(r)
}

// UpdateUlBuffer applies an uplink BSR, only the tx queue is meaningful.
func (s *Scheduler) UpdateUlBuffer(r models.BufferStatusReport) error {
	ue, ok := s.ues.get(r.Rnti)
	if !ok {
		return fmt.Errorf("%w: rnti %d", ErrUnknownUe, r.Rnti)
	}
	return ue.ulBuffer.Update(models.BufferStatusReport{Rnti: r.Rnti, LcId: r.LcId, TxQueueBytes: r.Total()})
}

func (s *Scheduler) ReportDlCqi(r models.CqiReport) error {
	ue, ok := s.ues.get(r.Rnti)
	if !ok {
		return fmt.Errorf("%w: rnti %d", ErrUnknownUe, r.Rnti)
	}
	if err := validateCqi(r); err != nil {
		return err
	}
	ue.dlCqi.OnReport(r)
	return nil
}

func (s *Scheduler) ReportUlCqi(r models.CqiReport) error {
	ue, ok := s.ues.get(r.Rnti)
	if !ok {
		return fmt.Errorf("%w: rnti %d", ErrUnknownUe, r.Rnti)
	}
	if err := validateCqi(r); err != nil {
		return err
	}
	ue.ulCqi.OnReport(r)
	return nil
}

func validateCqi(r models.CqiReport) error {
	if r.Wideband != nil && *r.Wideband > 15 {
		return fmt.Errorf("%w: cqi %d", ErrInvalidConfig, *r.Wideband)
	}
	for _, v := range r.Subbands {
		if v > 15 {
			return fmt.Errorf("%w: subband cqi %d", ErrInvalidConfig, v)
		}
	}
	return nil
}

func (s *Scheduler) DlHarqFeedback(fb models.HarqFeedback) error {
	ue, ok := s.ues.get(fb.Rnti)
	if !ok {
		return fmt.Errorf("%w: rnti %d", ErrUnknownUe, fb.Rnti)
	}
	outcome, desc, err := s.applyFeedback(ue.dlHarq, models.Downlink, fb)
	if err != nil {
		return err
	}
	if outcome == FeedbackDropped {
		restorePdus(ue.dlBuffer, desc)
	}
	return nil
}

func (s *Scheduler) UlHarqFeedback(fb models.HarqFeedback) error {
	ue, ok := s.ues.get(fb.Rnti)
	if !ok {
		return fmt.Errorf("%w: rnti %d", ErrUnknownUe, fb.Rnti)
	}
	_, _, err := s.applyFeedback(ue.ulHarq, models.Uplink, fb)
	return err
}

func (s *Scheduler) applyFeedback(t *HarqTable, dir models.Direction, fb models.HarqFeedback) (FeedbackOutcome, models.Descriptor, error) {
	if int(fb.ProcessId) >= HarqProcNum {
		return FeedbackStale, models.Descriptor{}, fmt.Errorf("%w: harq process %d", ErrInvalidConfig, fb.ProcessId)
	}
	outcome, desc := t.OnFeedback(HarqProcessId(fb.ProcessId), fb.Ack)
	switch outcome {
	case FeedbackStale:
		s.logger.Debug("stale harq feedback ignored", "rnti", fb.Rnti, "dir", dir, "process", fb.ProcessId)
	case FeedbackDropped:
		s.logger.Info("harq retransmissions exhausted", "rnti", fb.Rnti, "dir", dir, "process", fb.ProcessId)
	}
	s.recorder.ObserveHarq(dir, outcome.String())
	return outcome, desc, nil
}

// ReportRach queues a random access request, the RNTI is the temporary one
// the UE will be configured with once Msg3 succeeds. A request whose Msg3
// cannot fit in the random access budget is rejected so it never blocks the
// queue.
func (s *Scheduler) ReportRach(req models.RachRequest) error {
	if s.cell == nil {
		return ErrCellNotConfigured
	}
	if req.Rnti == 0 {
		return fmt.Errorf("%w: rnti 0 is reserved", ErrInvalidConfig)
	}
	if n, _, _ := s.rachSize(req.RequestedBytes); n > s.rachBudget() {
		return fmt.Errorf("%w: random access request of %d bytes exceeds the msg3 budget of %d rbgs", ErrInvalidConfig, req.RequestedBytes, s.rachBudget())
	}
	s.rach.OnPreambleDetected(req, s.tti)
	return nil
}

func restorePdus(b *BufferTracker, desc models.Descriptor) {
	for _, pdu := range desc.Pdus {
		b.Restore(pdu.LcId, pdu.Bytes)
	}
}

// invariant reports a broken bookkeeping assumption.
func (s *Scheduler) invariant(err error) {
	if panicOnInvariant {
		panic(err)
	}
	s.logger.Error("invariant violation", "error", err)
}
