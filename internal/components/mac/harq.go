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

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

const (
	HarqProcNum = 8

	// HarqDlTimeout and HarqUlTimeout are in TTIs.
	HarqDlTimeout = 11
	HarqUlTimeout = 8

	// DefaultMaxTransmissions covers redundancy versions 0..3.
	DefaultMaxTransmissions = 4
)

type HarqProcessId uint8

// HarqUnavailable is returned by AssignProcess when no process can be started.
const HarqUnavailable HarqProcessId = 0xFF

type HarqStatus uint8

const (
	HarqIdle HarqStatus = iota
	HarqActive
)

func (s HarqStatus) String() string {
	if s == HarqActive {
		return "ACTIVE"
	}
	return "IDLE"
}

type FeedbackOutcome uint8

const (
	FeedbackAcked FeedbackOutcome = iota
	FeedbackRetransmit
	FeedbackDropped
	FeedbackStale
)

func (o FeedbackOutcome) String() string {
	switch o {
	case FeedbackAcked:
		return "ACK"
	case FeedbackRetransmit:
		return "RETX"
	case FeedbackDropped:
		return "DROPPED"
	default:
		return "STALE"
	}
}

// Expired is a process released by its timer together with what it carried.
type Expired struct {
	Id   HarqProcessId
	Desc models.Descriptor
}

type harqProcess struct {
	status  HarqStatus
	txCount int
	timer   int
	nacked  bool
	ndi     bool
	desc    models.Descriptor
}

func (p *harqProcess) reset() {
	p.status = HarqIdle
	p.txCount = 0
	p.timer = 0
	p.nacked = false
	p.desc = models.Descriptor{}
}

// HarqTable holds the stop-and-wait processes of one UE in one direction.
type HarqTable struct {
	procs    [HarqProcNum]harqProcess
	current  HarqProcessId
	reserved HarqProcessId
	timeout  int
	maxTx    int
	enabled  bool
}

func NewHarqTable(timeout, maxTx int, enabled bool) *HarqTable {
	if maxTx <= 0 {
		maxTx = DefaultMaxTransmissions
	}
	return &HarqTable{
		current:  HarqProcNum - 1,
		reserved: HarqUnavailable,
		timeout:  timeout,
		maxTx:    maxTx,
		enabled:  enabled,
	}
}

// HasIdle reports whether AssignProcess would succeed now.
func (t *HarqTable) HasIdle() bool {
	if t.reserved != HarqUnavailable {
		return false
	}
	for i := range t.procs {
		if t.procs[i].status == HarqIdle {
			return true
		}
	}
	return false
}

// AssignProcess scans round-robin from the slot after the last assigned one
// and reserves the first idle process for this TTI.
func (t *HarqTable) AssignProcess() HarqProcessId {
	if t.reserved != HarqUnavailable {
		return HarqUnavailable
	}
	for i := 1; i <= HarqProcNum; i++ {
		id := HarqProcessId((int(t.current) + i) % HarqProcNum)
		if t.procs[id].status == HarqIdle {
			t.current = id
			t.reserved = id
			return id
		}
	}
	return HarqUnavailable
}

// OnGrantIssued starts a new transmission on an idle process, or counts a
// retransmission on an active one. The stored descriptor is only written on
// the first transmission.
func (t *HarqTable) OnGrantIssued(id HarqProcessId, desc models.Descriptor) error {
	if int(id) >= HarqProcNum {
		return fmt.Errorf("%w: harq process %d out of range", ErrInvariant, id)
	}
	p := &t.procs[id]
	if p.status == HarqActive {
		p.txCount++
		p.timer = t.timeout
		p.nacked = false
		return nil
	}
	p.ndi = !p.ndi
	if !t.enabled {
		return nil
	}
	p.status = HarqActive
	p.txCount = 1
	p.timer = t.timeout
	p.nacked = false
	p.desc = desc.Clone()
	return nil
}

// Retransmit issues the stored transmission again and returns its descriptor.
func (t *HarqTable) Retransmit(id HarqProcessId) (models.Descriptor, error) {
	if int(id) >= HarqProcNum || t.procs[id].status != HarqActive {
		return models.Descriptor{}, fmt.Errorf("%w: retransmission on idle harq process %d", ErrInvariant, id)
	}
	if err := t.OnGrantIssued(id, models.Descriptor{}); err != nil {
		return models.Descriptor{}, err
	}
	return t.procs[id].desc.Clone(), nil
}

// OnFeedback applies an ACK or NACK. The descriptor is returned when the
// process is dropped so the caller can re-surface its bytes.
func (t *HarqTable) OnFeedback(id HarqProcessId, ack bool) (FeedbackOutcome, models.Descriptor) {
	if int(id) >= HarqProcNum {
		return FeedbackStale, models.Descriptor{}
	}
	p := &t.procs[id]
	if p.status == HarqIdle {
		return FeedbackStale, models.Descriptor{}
	}
	if ack {
		p.reset()
		return FeedbackAcked, models.Descriptor{}
	}
	if p.txCount >= t.maxTx {
		desc := p.desc
		p.reset()
		return FeedbackDropped, desc
	}
	p.nacked = true
	return FeedbackRetransmit, models.Descriptor{}
}

// Tick ages every active process by one TTI and releases the reservation of
// the TTI that just ended.
func (t *HarqTable) Tick() []Expired {
	t.reserved = HarqUnavailable
	var expired []Expired
	for i := range t.procs {
		p := &t.procs[i]
		if p.status != HarqActive {
			continue
		}
		p.timer--
		if p.timer <= 0 {
			expired = append(expired, Expired{Id: HarqProcessId(i), Desc: p.desc})
			p.reset()
		}
	}
	return expired
}

// PendingRetransmissions lists NACKed processes in round-robin order.
func (t *HarqTable) PendingRetransmissions() []HarqProcessId {
	var ids []HarqProcessId
	for i := 1; i <= HarqProcNum; i++ {
		id := HarqProcessId((int(t.current) + i) % HarqProcNum)
		if p := t.procs[id]; p.status == HarqActive && p.nacked {
			ids = append(ids, id)
		}
	}
	return ids
}

func (t *HarqTable) Status(id HarqProcessId) (HarqStatus, int) {
	if int(id) >= HarqProcNum {
		return HarqIdle, 0
	}
	return t.procs[id].status, t.procs[id].txCount
}

func (t *HarqTable) Descriptor(id HarqProcessId) (models.Descriptor, bool) {
	if int(id) >= HarqProcNum || t.procs[id].status != HarqActive {
		return models.Descriptor{}, false
	}
	return t.procs[id].desc.Clone(), true
}

// Rv returns the redundancy version of the most recent transmission.
func (t *HarqTable) Rv(id HarqProcessId) uint8 {
	if int(id) >= HarqProcNum || t.procs[id].txCount == 0 {
		return 0
	}
	return uint8((t.procs[id].txCount - 1) % 4)
}

func (t *HarqTable) Ndi(id HarqProcessId) bool {
	if int(id) >= HarqProcNum {
		return false
	}
	return t.procs[id].ndi
}

func (t *HarqTable) ActiveCount() int {
	n := 0
	for i := range t.procs {
		if t.procs[i].status == HarqActive {
			n++
		}
	}
	return n
}
