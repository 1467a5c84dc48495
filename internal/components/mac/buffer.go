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
	"slices"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

type lcQueue struct {
	tx     uint32
	retx   uint32
	status uint32
}

func (q *lcQueue) total() uint32 {
	return q.tx + q.retx + q.status
}

// BufferTracker mirrors the RLC queues of one UE in one direction.
type BufferTracker struct {
	lcs map[models.LcId]*lcQueue
}

func NewBufferTracker() *BufferTracker {
	return &BufferTracker{lcs: make(map[models.LcId]*lcQueue)}
}

func (b *BufferTracker) AddChannel(lc models.LcId) {
	if _, ok := b.lcs[lc]; !ok {
		b.lcs[lc] = &lcQueue{}
	}
}

func (b *BufferTracker) RemoveChannel(lc models.LcId) {
	delete(b.lcs, lc)
}

func (b *BufferTracker) HasChannel(lc models.LcId) bool {
	_, ok := b.lcs[lc]
	return ok
}

// Update overwrites the counters of the reported channel.
func (b *BufferTracker) Update(r models.BufferStatusReport) error {
	q, ok := b.lcs[r.LcId]
	if !ok {
		return fmt.Errorf("%w: lcid %d", ErrUnknownLogicalChannel, r.LcId)
	}
	q.tx = r.TxQueueBytes
	q.retx = r.RetxQueueBytes
	q.status = r.StatusPduBytes
	return nil
}

// Consume drains status PDUs, then retransmissions, then new data, and
// returns how many bytes were actually taken.
func (b *BufferTracker) Consume(lc models.LcId, bytes uint32) uint32 {
	q, ok := b.lcs[lc]
	if !ok {
		return 0
	}
	left := bytes
	for _, c := range []*uint32{&q.status, &q.retx, &q.tx} {
		take := min(*c, left)
		*c -= take
		left -= take
	}
	return bytes - left
}

// Restore puts bytes lost by a failed HARQ process back into the retx queue.
func (b *BufferTracker) Restore(lc models.LcId, bytes uint32) {
	if q, ok := b.lcs[lc]; ok {
		q.retx += bytes
	}
}

func (b *BufferTracker) Queued() uint64 {
	var n uint64
	for _, q := range b.lcs {
		n += uint64(q.total())
	}
	return n
}

func (b *BufferTracker) QueuedOn(lc models.LcId) uint32 {
	if q, ok := b.lcs[lc]; ok {
		return q.total()
	}
	return 0
}

func (b *BufferTracker) ActiveChannelCount() int {
	n := 0
	for _, q := range b.lcs {
		if q.total() > 0 {
			n++
		}
	}
	return n
}

// ActiveChannels returns the channels with queued bytes in LCID order.
func (b *BufferTracker) ActiveChannels() []models.LcId {
	var ids []models.LcId
	for lc, q := range b.lcs {
		if q.total() > 0 {
			ids = append(ids, lc)
		}
	}
	slices.Sort(ids)
	return ids
}

// Distribute splits a transport block over the active channels in LCID
// order, consuming what it hands out. Channels that need less than their
// share leave the remainder to the following ones.
func (b *BufferTracker) Distribute(tbBytes uint32) []models.RlcPdu {
	active := b.ActiveChannels()
	var pdus []models.RlcPdu
	left := tbBytes
	for i, lc := range active {
		if left == 0 {
			break
		}
		share := left / uint32(len(active)-i)
		if share == 0 {
			share = left
		}
		got := b.Consume(lc, min(share, b.QueuedOn(lc)))
		if got == 0 {
			continue
		}
		pdus = append(pdus, models.RlcPdu{LcId: lc, Bytes: got})
		left -= got
	}
	return pdus
}
