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
	"slices"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

// ueContext is everything the scheduler knows about one UE.
type ueContext struct {
	rnti   models.Rnti
	cfg    models.UeConfig
	lcs    map[models.LcId]models.LcConfig
	layers int

	dlHarq   *HarqTable
	ulHarq   *HarqTable
	dlCqi    *ChannelQuality
	ulCqi    *ChannelQuality
	dlBuffer *BufferTracker
	ulBuffer *BufferTracker
	dlFlow   FlowPerf
	ulFlow   FlowPerf
}

// refreshTargets sums the guaranteed rates of the UE's GBR channels.
func (u *ueContext) refreshTargets() {
	var dl, ul uint64
	for _, lc := range u.lcs {
		if lc.IsGbr {
			dl += lc.GbrDl
			ul += lc.GbrUl
		}
	}
	u.dlFlow.TargetThroughput = float64(dl)
	u.ulFlow.TargetThroughput = float64(ul)
}

// ueTable is the per-UE arena: released slots go to a free list and are
// reused by the next UE.
type ueTable struct {
	slots []*ueContext
	index map[models.Rnti]int
	free  []int
}

func newUeTable() ueTable {
	return ueTable{index: make(map[models.Rnti]int)}
}

func (t *ueTable) get(rnti models.Rnti) (*ueContext, bool) {
	i, ok := t.index[rnti]
	if !ok {
		return nil, false
	}
	return t.slots[i], true
}

func (t *ueTable) insert(ue *ueContext) {
	if n := len(t.free); n > 0 {
		i := t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[i] = ue
		t.index[ue.rnti] = i
		return
	}
	t.slots = append(t.slots, ue)
	t.index[ue.rnti] = len(t.slots) - 1
}

func (t *ueTable) remove(rnti models.Rnti) bool {
	i, ok := t.index[rnti]
	if !ok {
		return false
	}
	t.slots[i] = nil
	delete(t.index, rnti)
	t.free = append(t.free, i)
	return true
}

func (t *ueTable) len() int {
	return len(t.index)
}

// sorted returns the live UEs by ascending RNTI.
func (t *ueTable) sorted() []*ueContext {
	ues := make([]*ueContext, 0, len(t.index))
	for _, ue := range t.slots {
		if ue != nil {
			ues = append(ues, ue)
		}
	}
	slices.SortFunc(ues, func(a, b *ueContext) int {
		return int(a.rnti) - int(b.rnti)
	})
	return ues
}
