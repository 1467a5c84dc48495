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

import "gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"

// ScheduleUl runs the uplink pass of one TTI: retransmissions, Msg3 grants
// for pending random access, then round-robin grants on contiguous RBGs.
func (s *Scheduler) ScheduleUl(tti uint64) (models.UlSchedule, error) {
	if s.cell == nil {
		return models.UlSchedule{}, ErrCellNotConfigured
	}
	s.tti = tti
	out := models.UlSchedule{Tti: tti}
	grid := s.ulGrid
	busy := make([]bool, grid.Rbgs)
	ues := s.ues.sorted()

	retx := make(map[models.Rnti]bool)
	for _, ue := range ues {
		alloc, reason, ok := s.retransmit(ue, ue.ulHarq, busy)
		if reason != "" {
			out.Deferrals = append(out.Deferrals, models.Deferral{Rnti: ue.rnti, Reason: reason})
		}
		if ok {
			out.Allocations = append(out.Allocations, alloc)
			retx[ue.rnti] = true
		}
	}

	grants, deferrals := s.rach.Admit(tti, busy, s.rachBudget(), s.rachSize)
	out.RachGrants = grants
	out.Deferrals = append(out.Deferrals, deferrals...)
	for _, g := range grants {
		s.logger.Debug("msg3 granted", "rnti", g.Rnti, "rbgs", len(g.Rbgs), "tbSize", g.TbSize)
	}

	rotated := rotate(ues, s.nextRntiUl)
	var eligible []*ueContext
	for _, ue := range rotated {
		if retx[ue.rnti] || ue.ulBuffer.ActiveChannelCount() == 0 {
			continue
		}
		if !ue.ulHarq.HasIdle() {
			out.Deferrals = append(out.Deferrals, models.Deferral{Rnti: ue.rnti, Reason: models.DeferralNoHarq})
			continue
		}
		eligible = append(eligible, ue)
	}
	if free := freeCount(busy); len(eligible) > 0 {
		perUe := max(s.cfg.MinUlRbgPerUe, free/len(eligible))
		for _, ue := range eligible {
			rnti := ue.rnti
			want := s.ulRbgsNeeded(ue, perUe)
			window := findWindow(busy, want, func(rbg int) bool { return s.ffr.UlRbgAllowed(rnti, rbg) })
			if len(window) == 0 {
				out.Deferrals = append(out.Deferrals, models.Deferral{Rnti: rnti, Reason: models.DeferralNoRbg})
				continue
			}
			id := ue.ulHarq.AssignProcess()
			if id == HarqUnavailable {
				out.Deferrals = append(out.Deferrals, models.Deferral{Rnti: rnti, Reason: models.DeferralNoHarq})
				continue
			}
			mcs, tb := s.ulTransport(ue, window)
			desc := models.Descriptor{Rbgs: window, Mcs: mcs, TbSize: tb, Layers: 1}
			desc.Pdus = ue.ulBuffer.Distribute(tb)
			if err := ue.ulHarq.OnGrantIssued(id, desc); err != nil {
				s.invariant(err)
				continue
			}
			markBusy(busy, window)
			ue.ulFlow.Record(tb)
			out.Allocations = append(out.Allocations, newAllocation(rnti, id, desc, ue.ulHarq, false))
		}
	}
	if len(rotated) > 1 {
		s.nextRntiUl = rotated[1].rnti
	} else if len(rotated) == 1 {
		s.nextRntiUl = rotated[0].rnti
	}

	for _, ue := range ues {
		ue.ulFlow.Update(s.cfg.TimeWindow)
		for _, exp := range ue.ulHarq.Tick() {
			s.recorder.ObserveHarq(models.Uplink, HarqTimeout)
			s.logger.Debug("harq process timed out", "rnti", ue.rnti, "dir", models.Uplink, "process", exp.Id)
		}
		ue.ulCqi.Tick()
	}
	s.checkDisjoint(models.Uplink, out.Allocations, out.RachGrants)
	s.observe(models.Uplink, out.Allocations, out.Deferrals, grid.Rbgs)
	s.recorder.ObserveRachGrants(len(out.RachGrants))
	return out, nil
}

// rotate returns ues starting at the first RNTI not below from.
func rotate(ues []*ueContext, from models.Rnti) []*ueContext {
	start := 0
	for i, ue := range ues {
		if ue.rnti >= from {
			start = i
			break
		}
	}
	return append(append([]*ueContext{}, ues[start:]...), ues[:start]...)
}

// rachBudget is the number of RBGs Msg3 grants may take in one TTI.
func (s *Scheduler) rachBudget() int {
	if s.cfg.RachMaxRbgs <= 0 || s.cfg.RachMaxRbgs > s.ulGrid.Rbgs {
		return s.ulGrid.Rbgs
	}
	return s.cfg.RachMaxRbgs
}

// rachSize finds the smallest contiguous RBG count carrying the request at
// the default uplink MCS.
func (s *Scheduler) rachSize(bytes uint32) (int, int, uint32) {
	mcs := s.cfg.UlGrantMcs
	for n := 1; n <= s.ulGrid.Rbgs; n++ {
		tb := uint32(s.amc.TbSize(mcs, min(n*s.ulGrid.RbgSize, s.ulGrid.Bandwidth)) / 8)
		if tb >= bytes {
			return n, mcs, tb
		}
	}
	return s.ulGrid.Rbgs + 1, mcs, 0
}

// ulRbgsNeeded trims the fair share to what the BSR asks for.
func (s *Scheduler) ulRbgsNeeded(ue *ueContext, share int) int {
	queued := ue.ulBuffer.Queued()
	cqi, fresh := ue.ulCqi.Effective(NoSubband)
	for n := 1; n < share; n++ {
		nRb := min(n*s.ulGrid.RbgSize, s.ulGrid.Bandwidth)
		bits := s.amc.TbSize(s.cfg.UlGrantMcs, nRb)
		if fresh {
			_, bits = s.amc.Lookup(int(cqi), nRb)
		}
		if uint64(bits/8) >= queued {
			return n
		}
	}
	return share
}

// ulTransport picks the MCS of the worst fresh RBG in the window.
func (s *Scheduler) ulTransport(ue *ueContext, window []int) (int, uint32) {
	nRb := s.ulGrid.RbsIn(window)
	worst, fresh := uint8(15), false
	for _, rbg := range window {
		if cqi, ok := ue.ulCqi.Effective(rbg); ok {
			worst = min(worst, cqi)
			fresh = true
		}
	}
	if !fresh {
		return s.cfg.UlGrantMcs, uint32(s.amc.TbSize(s.cfg.UlGrantMcs, nRb) / 8)
	}
	mcs, bits := s.amc.Lookup(int(worst), nRb)
	return mcs, uint32(bits / 8)
}
