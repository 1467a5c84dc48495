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

// DefaultRachMaxWait is how many TTIs a random access request may wait for
// its Msg3 grant before it is dropped.
const DefaultRachMaxWait = 20

type rachEntry struct {
	req     models.RachRequest
	arrival uint64
}

// RachQueue holds random access requests in arrival order.
type RachQueue struct {
	pending []rachEntry
	maxWait uint32
}

func NewRachQueue(maxWait uint32) *RachQueue {
	return &RachQueue{maxWait: maxWait}
}

func (q *RachQueue) OnPreambleDetected(req models.RachRequest, tti uint64) {
	q.pending = append(q.pending, rachEntry{req: req, arrival: tti})
}

func (q *RachQueue) Len() int {
	return len(q.pending)
}

// Purge drops every request of the RNTI.
func (q *RachQueue) Purge(rnti models.Rnti) {
	kept := q.pending[:0]
	for _, e := range q.pending {
		if e.req.Rnti != rnti {
			kept = append(kept, e)
		}
	}
	q.pending = kept
}

// RachSizer returns how many RBGs a request needs and the MCS and TB size in
// bytes it would be granted with.
type RachSizer func(bytes uint32) (rbgs int, mcs int, tbBytes uint32)

// Admit grants pending requests in arrival order on contiguous free RBGs of
// busy, which it marks. It stops at the first request that does not fit so a
// later, smaller request never overtakes an earlier one. Requests past their
// wait bound are dropped first.
func (q *RachQueue) Admit(tti uint64, busy []bool, budget int, size RachSizer) ([]models.RachGrant, []models.Deferral) {
	var deferrals []models.Deferral
	if q.maxWait > 0 {
		kept := q.pending[:0]
		for _, e := range q.pending {
			if tti >= e.arrival && tti-e.arrival >= uint64(q.maxWait) {
				deferrals = append(deferrals, models.Deferral{Rnti: e.req.Rnti, Reason: models.DeferralRachExpired})
				continue
			}
			kept = append(kept, e)
		}
		q.pending = kept
	}
	if budget <= 0 {
		budget = len(busy)
	}
	var grants []models.RachGrant
	admitted := 0
	for _, e := range q.pending {
		n, mcs, tb := size(e.req.RequestedBytes)
		if n > budget {
			break
		}
		window := findWindow(busy, n, nil)
		if len(window) < n {
			break
		}
		markBusy(busy, window)
		budget -= n
		grants = append(grants, models.RachGrant{Rnti: e.req.Rnti, Rbgs: window, Mcs: mcs, TbSize: tb})
		admitted++
	}
	for _, e := range q.pending[admitted:] {
		deferrals = append(deferrals, models.Deferral{Rnti: e.req.Rnti, Reason: models.DeferralRachBudget})
	}
	q.pending = append(q.pending[:0], q.pending[admitted:]...)
	return grants, deferrals
}
