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
	"cmp"
	"slices"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

// ScheduleDl runs the downlink pass of one TTI: retransmissions, time-domain
// ranking, greedy frequency-domain assignment, then HARQ issuance.
func (s *Scheduler) ScheduleDl(tti uint64) (models.DlSchedule, error) {
	if s.cell == nil {
		return models.DlSchedule{}, ErrCellNotConfigured
	}
	s.tti = tti
	out := models.DlSchedule{Tti: tti}
	grid := s.dlGrid
	busy := make([]bool, grid.Rbgs)
	ues := s.ues.sorted()

	retx := make(map[models.Rnti]bool)
	for _, ue := range ues {
		alloc, reason, ok := s.retransmit(ue, ue.dlHarq, busy)
		if reason != "" {
			out.Deferrals = append(out.Deferrals, models.Deferral{Rnti: ue.rnti, Reason: reason})
		}
		if ok {
			out.Allocations = append(out.Allocations, alloc)
			retx[ue.rnti] = true
		}
	}

	var candidates []Candidate
	byRnti := make(map[models.Rnti]*ueContext)
	for _, ue := range ues {
		if retx[ue.rnti] || ue.dlBuffer.ActiveChannelCount() == 0 {
			continue
		}
		if !ue.dlHarq.HasIdle() {
			out.Deferrals = append(out.Deferrals, models.Deferral{Rnti: ue.rnti, Reason: models.DeferralNoHarq})
			continue
		}
		byRnti[ue.rnti] = ue
		candidates = append(candidates, s.dlCandidate(ue))
	}
	promoted := s.rankTimeDomain(candidates)

	assigned := make(map[models.Rnti][]int)
	covered := make(map[models.Rnti]bool)
	for rbg := 0; rbg < grid.Rbgs; rbg++ {
		if busy[rbg] {
			continue
		}
		best, bestMetric := -1, 0.0
		for i, c := range promoted {
			if covered[c.Rnti] || !s.ffr.DlRbgAllowed(c.Rnti, rbg) {
				continue
			}
			ue := byRnti[c.Rnti]
			cqi := s.dlCqi(ue, rbg)
			if cqi == 0 {
				continue
			}
			m := s.metric.FrequencyDomain(c, s.rate(cqi, grid.RbgRbs(rbg), ue.layers))
			if best < 0 || m > bestMetric || (m == bestMetric && c.Rnti < promoted[best].Rnti) {
				best, bestMetric = i, m
			}
		}
		if best < 0 {
			continue
		}
		c := promoted[best]
		busy[rbg] = true
		assigned[c.Rnti] = append(assigned[c.Rnti], rbg)
		ue := byRnti[c.Rnti]
		if _, tb := s.dlTransport(ue, assigned[c.Rnti]); uint64(tb) >= c.QueuedBytes {
			covered[c.Rnti] = true
		}
	}

	for _, c := range promoted {
		rbgs := assigned[c.Rnti]
		if len(rbgs) == 0 {
			out.Deferrals = append(out.Deferrals, models.Deferral{Rnti: c.Rnti, Reason: models.DeferralNoRbg})
			continue
		}
		ue := byRnti[c.Rnti]
		id := ue.dlHarq.AssignProcess()
		if id == HarqUnavailable {
			for _, rbg := range rbgs {
				busy[rbg] = false
			}
			out.Deferrals = append(out.Deferrals, models.Deferral{Rnti: c.Rnti, Reason: models.DeferralNoHarq})
			continue
		}
		mcs, tb := s.dlTransport(ue, rbgs)
		desc := models.Descriptor{
			Rbgs:   rbgs,
			Mcs:    mcs,
			TbSize: tb,
			Layers: ue.layers,
			Pdus:   ue.dlBuffer.Distribute(tb),
		}
		if err := ue.dlHarq.OnGrantIssued(id, desc); err != nil {
			s.invariant(err)
			continue
		}
		ue.dlFlow.Record(tb)
		out.Allocations = append(out.Allocations, newAllocation(ue.rnti, id, desc, ue.dlHarq, false))
	}

	for _, ue := range ues {
		ue.dlFlow.Update(s.cfg.TimeWindow)
		for _, exp := range ue.dlHarq.Tick() {
			restorePdus(ue.dlBuffer, exp.Desc)
			s.recorder.ObserveHarq(models.Downlink, HarqTimeout)
			s.logger.Debug("harq process timed out", "rnti", ue.rnti, "dir", models.Downlink, "process", exp.Id)
		}
		ue.dlCqi.Tick()
	}
	s.checkDisjoint(models.Downlink, out.Allocations, nil)
	s.observe(models.Downlink, out.Allocations, out.Deferrals, grid.Rbgs)
	return out, nil
}

// retransmit re-grants the first pending NACKed process of the UE, in
// round-robin order, whose first-transmission RBGs are all still free. The
// UE is deferred when every pending process is blocked.
func (s *Scheduler) retransmit(ue *ueContext, t *HarqTable, busy []bool) (models.Allocation, models.DeferralReason, bool) {
	pending := t.PendingRetransmissions()
	if len(pending) == 0 {
		return models.Allocation{}, "", false
	}
	for _, id := range pending {
		stored, _ := t.Descriptor(id)
		if !allFree(busy, stored.Rbgs) {
			continue
		}
		desc, err := t.Retransmit(id)
		if err != nil {
			s.invariant(err)
			return models.Allocation{}, "", false
		}
		markBusy(busy, desc.Rbgs)
		return newAllocation(ue.rnti, id, desc, t, true), "", true
	}
	return models.Allocation{}, models.DeferralRetxBlocked, false
}

func newAllocation(rnti models.Rnti, id HarqProcessId, desc models.Descriptor, t *HarqTable, retx bool) models.Allocation {
	return models.Allocation{
		Rnti:             rnti,
		Rbgs:             desc.Rbgs,
		Mcs:              desc.Mcs,
		TbSize:           desc.TbSize,
		Layers:           desc.Layers,
		HarqProcess:      uint8(id),
		IsRetransmission: retx,
		Rv:               t.Rv(id),
		Ndi:              t.Ndi(id),
		Pdus:             desc.Pdus,
	}
}

func (s *Scheduler) dlCandidate(ue *ueContext) Candidate {
	wb, ok := ue.dlCqi.Effective(NoSubband)
	if !ok {
		wb = s.cfg.DefaultDlCqi
	}
	return Candidate{
		Rnti:             ue.rnti,
		PastThroughput:   ue.dlFlow.LastAveragedThroughput,
		TargetThroughput: ue.dlFlow.TargetThroughput,
		WidebandRate:     s.rate(wb, s.dlGrid.RbgSize, ue.layers),
		QueuedBytes:      ue.dlBuffer.Queued(),
	}
}

// rankTimeDomain orders candidates by class, then score, then RNTI and keeps
// the first NMux of them.
func (s *Scheduler) rankTimeDomain(candidates []Candidate) []Candidate {
	type ranked struct {
		c     Candidate
		class int
		score float64
	}
	list := make([]ranked, len(candidates))
	for i, c := range candidates {
		class, score := s.metric.TimeDomain(c)
		list[i] = ranked{c: c, class: class, score: score}
	}
	slices.SortStableFunc(list, func(a, b ranked) int {
		if a.class != b.class {
			return b.class - a.class
		}
		if a.score != b.score {
			return cmp.Compare(b.score, a.score)
		}
		return cmp.Compare(a.c.Rnti, b.c.Rnti)
	})
	if s.cfg.NMux > 0 && len(list) > s.cfg.NMux {
		list = list[:s.cfg.NMux]
	}
	out := make([]Candidate, len(list))
	for i, r := range list {
		out[i] = r.c
	}
	return out
}

func (s *Scheduler) dlCqi(ue *ueContext, rbg int) uint8 {
	if cqi, ok := ue.dlCqi.Effective(rbg); ok {
		return cqi
	}
	return s.cfg.DefaultDlCqi
}

// dlTransport sizes a transport block on the worst RBG of the set.
func (s *Scheduler) dlTransport(ue *ueContext, rbgs []int) (int, uint32) {
	worst := uint8(15)
	for _, rbg := range rbgs {
		worst = min(worst, s.dlCqi(ue, rbg))
	}
	mcs, bits := s.amc.Lookup(int(worst), s.dlGrid.RbsIn(rbgs))
	return mcs, uint32(bits/8) * uint32(ue.layers)
}

// rate is the bit/s a UE would get on nRb RBs at the given quality.
func (s *Scheduler) rate(cqi uint8, nRb, layers int) float64 {
	_, bits := s.amc.Lookup(int(cqi), nRb)
	return float64(bits*layers) / ttiSeconds
}

// checkDisjoint verifies no RBG was handed out twice in one direction.
func (s *Scheduler) checkDisjoint(dir models.Direction, allocs []models.Allocation, rach []models.RachGrant) {
	seen := make(map[int]models.Rnti)
	check := func(rnti models.Rnti, rbgs []int) {
		for _, rbg := range rbgs {
			if other, dup := seen[rbg]; dup {
				s.invariant(errorf("%s rbg %d granted to rnti %d and %d", dir, rbg, other, rnti))
			}
			seen[rbg] = rnti
		}
	}
	for _, a := range allocs {
		check(a.Rnti, a.Rbgs)
	}
	for _, g := range rach {
		check(g.Rnti, g.Rbgs)
	}
}

func (s *Scheduler) observe(dir models.Direction, allocs []models.Allocation, deferrals []models.Deferral, total int) {
	used := 0
	for _, a := range allocs {
		used += len(a.Rbgs)
	}
	s.recorder.ObserveSchedule(dir, allocs, used, total)
	for _, d := range deferrals {
		s.recorder.ObserveDeferral(dir, d.Reason)
	}
}
