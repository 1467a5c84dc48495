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
	"errors"
	"testing"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

func TestBufferConsumeOrder(t *testing.T) {
	b := NewBufferTracker()
	b.AddChannel(3)
	if err := b.Update(models.BufferStatusReport{LcId: 3, TxQueueBytes: 20, RetxQueueBytes: 10, StatusPduBytes: 5}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := b.Consume(3, 12); got != 12 {
		t.Fatalf("Consume(12) = %d, want 12", got)
	}
	q := b.lcs[3]
	if q.status != 0 || q.retx != 3 || q.tx != 20 {
		t.Fatalf("queues = %+v, want status 0 retx 3 tx 20", *q)
	}
	if got := b.Consume(3, 100); got != 23 {
		t.Fatalf("Consume(100) = %d, want 23", got)
	}
	if b.Queued() != 0 || b.ActiveChannelCount() != 0 {
		t.Fatalf("buffer not empty after draining")
	}
	b.Restore(3, 40)
	if q.retx != 40 {
		t.Fatalf("Restore() put %d bytes in retx, want 40", q.retx)
	}
}

func TestBufferUnknownChannel(t *testing.T) {
	b := NewBufferTracker()
	err := b.Update(models.BufferStatusReport{LcId: 4, TxQueueBytes: 1})
	if !errors.Is(err, ErrUnknownLogicalChannel) {
		t.Fatalf("Update() error = %v, want ErrUnknownLogicalChannel", err)
	}
	if got := b.Consume(4, 10); got != 0 {
		t.Fatalf("Consume() on unknown channel = %d, want 0", got)
	}
}

func TestBufferDistribute(t *testing.T) {
	b := NewBufferTracker()
	for _, lc := range []models.LcId{1, 3, 4} {
		b.AddChannel(lc)
	}
	_ = b.Update(models.BufferStatusReport{LcId: 1, StatusPduBytes: 2, TxQueueBytes: 28})
	_ = b.Update(models.BufferStatusReport{LcId: 3, TxQueueBytes: 1000})

	pdus := b.Distribute(100)
	want := []models.RlcPdu{{LcId: 1, Bytes: 30}, {LcId: 3, Bytes: 70}}
	if len(pdus) != len(want) {
		t.Fatalf("Distribute() = %v, want %v", pdus, want)
	}
	for i := range want {
		if pdus[i] != want[i] {
			t.Fatalf("Distribute()[%d] = %v, want %v", i, pdus[i], want[i])
		}
	}
	if got := b.QueuedOn(3); got != 930 {
		t.Fatalf("QueuedOn(3) = %d, want 930", got)
	}
	if got := b.Distribute(5000); len(got) != 1 || got[0].Bytes != 930 {
		t.Fatalf("Distribute() beyond queue = %v, want 930 bytes on lc 3", got)
	}
}
