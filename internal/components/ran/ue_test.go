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
	"math/rand/v2"
	"testing"
	"time"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/logging"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/trafficgen"
)

func newTestUe(t *testing.T, cfg UeConfig) *Ue {
	t.Helper()
	if cfg.Imsi == "" {
		cfg.Imsi = "001010000000001"
	}
	if cfg.DlTraffic.Kind == "" {
		cfg.DlTraffic = trafficgen.Profile{Kind: trafficgen.KindIot, Interval: time.Hour}
	}
	if cfg.UlTraffic.Kind == "" {
		cfg.UlTraffic = trafficgen.Profile{Kind: trafficgen.KindIot, Interval: time.Hour}
	}
	ue, err := NewUserEquipment(cfg, 61, "ran-test", rand.New(rand.NewPCG(5, 6)), 0, time.Unix(0, 0), logging.Discard())
	if err != nil {
		t.Fatalf("NewUserEquipment: %v", err)
	}
	return ue
}

func TestNewUserEquipmentRejectsUnknownTraffic(t *testing.T) {
	cfg := UeConfig{Imsi: "001010000000001", DlTraffic: trafficgen.Profile{Kind: "ftp"}}
	if _, err := NewUserEquipment(cfg, 61, "ran-test", rand.New(rand.NewPCG(1, 1)), 0, time.Now(), logging.Discard()); err == nil {
		t.Fatal("expected error for unknown traffic kind")
	}
}

func TestUeReportsOnlyWhenConnected(t *testing.T) {
	ue := newTestUe(t, UeConfig{CqiPeriod: 5, SubbandPeriod: 10, DlRbgs: 13})
	start := time.Unix(0, 0)

	if r := ue.Step(1, start); r.DlBuffer != nil || r.DlCqi != nil {
		t.Fatalf("pending UE reported %+v", r)
	}
	if ue.State() != models.RachPending {
		t.Fatalf("state = %s", ue.State())
	}

	ue.Connect(10)
	if ue.State() != models.Connected {
		t.Fatalf("state after connect = %s", ue.State())
	}

	r := ue.Step(10, start.Add(10*time.Millisecond))
	if r.DlBuffer == nil || r.UlBuffer == nil {
		t.Fatal("connected UE did not report buffers")
	}
	if r.DlCqi == nil || r.DlCqi.Wideband == nil || r.UlCqi == nil {
		t.Fatal("expected CQI at attach phase 0")
	}
	lo, hi := ue.Channel().CqiRange()
	if wb := *r.DlCqi.Wideband; wb < lo || wb > hi {
		t.Fatalf("wideband %d outside %d..%d", wb, lo, hi)
	}
	if len(r.DlCqi.Subbands) != 13 {
		t.Fatalf("subbands = %d, want 13", len(r.DlCqi.Subbands))
	}
	for _, sb := range r.DlCqi.Subbands {
		if sb > 15 {
			t.Fatalf("subband CQI %d out of range", sb)
		}
	}

	if r := ue.Step(11, start.Add(11*time.Millisecond)); r.DlCqi != nil {
		t.Fatal("CQI reported outside its period")
	}
	if r := ue.Step(15, start.Add(15*time.Millisecond)); r.DlCqi == nil || r.DlCqi.Subbands != nil {
		t.Fatalf("expected wideband only at phase 5, got %+v", r.DlCqi)
	}
}

func TestUeAllocationDrainsQueue(t *testing.T) {
	ue := newTestUe(t, UeConfig{})
	ue.Connect(0)
	ue.Requeue(models.Downlink, 5000)
	before, _ := ue.Queued()

	ue.OnAllocation(models.Downlink, models.Allocation{
		TbSize: 3100,
		Pdus:   []models.RlcPdu{{LcId: DataLcId, Bytes: 3000}},
	}, 4)
	after, _ := ue.Queued()
	if after != before-3000 {
		t.Fatalf("queue = %d, want %d", after, before-3000)
	}

	ue.OnAllocation(models.Downlink, models.Allocation{
		TbSize:           3100,
		IsRetransmission: true,
		Pdus:             []models.RlcPdu{{LcId: DataLcId, Bytes: 3000}},
	}, 12)
	if q, _ := ue.Queued(); q != after {
		t.Fatalf("retransmission drained the queue: %d", q)
	}

	rep := ue.Report(1000)
	if rep.DlGrants != 2 || rep.DlRetx != 1 || rep.TotalDlBytes != 3100 {
		t.Fatalf("report = %+v", rep.UeMacStats)
	}
	if rep.State != models.Connected.String() {
		t.Fatalf("report state = %s", rep.State)
	}
}

func TestUeRequeueIsCapped(t *testing.T) {
	ue := newTestUe(t, UeConfig{})
	ue.Requeue(models.Uplink, maxQueueBytes)
	ue.Requeue(models.Uplink, 1000)
	if _, ul := ue.Queued(); ul != maxQueueBytes {
		t.Fatalf("ul queue = %d, want cap %d", ul, maxQueueBytes)
	}
}

func TestUeLifetime(t *testing.T) {
	ue := newTestUe(t, UeConfig{Lifetime: 100})
	if ue.Expired(1000) {
		t.Fatal("pending UE must not expire")
	}
	ue.Connect(50)
	if ue.Expired(149) {
		t.Fatal("expired early")
	}
	if !ue.Expired(150) {
		t.Fatal("expected expiry at attach + lifetime")
	}

	ue.Release()
	ue.Release()
	if ue.State() != models.Released || ue.Expired(1000) {
		t.Fatalf("state = %s", ue.State())
	}
}

func TestVoipUeGetsGbrBearer(t *testing.T) {
	ue := newTestUe(t, UeConfig{
		DlTraffic: trafficgen.Profile{Kind: trafficgen.KindVoip},
		UlTraffic: trafficgen.Profile{Kind: trafficgen.KindVoip},
	})
	lcs := ue.LogicalChannels()
	if len(lcs) != 1 || !lcs[0].IsGbr || lcs[0].Qci != 1 {
		t.Fatalf("bearer = %+v", lcs)
	}
	if lcs[0].GbrDl != 16000 {
		t.Fatalf("gbr = %d, want 16000", lcs[0].GbrDl)
	}

	data := newTestUe(t, UeConfig{})
	if lc := data.LogicalChannels()[0]; lc.IsGbr || lc.Qci != 9 {
		t.Fatalf("default bearer = %+v", lc)
	}
}

func TestDecodeCountsNacks(t *testing.T) {
	ue := newTestUe(t, UeConfig{InitialChannel: models.ChannelOutage})
	ue.Connect(0)
	failures := 0
	for i := 0; i < 200; i++ {
		if !ue.Decode(models.Downlink, models.Allocation{}) {
			failures++
		}
	}
	if failures == 0 {
		t.Fatal("no decoding failure in outage")
	}
	if got := ue.Report(1).DlNacks; got != int64(failures) {
		t.Fatalf("nacks = %d, want %d", got, failures)
	}
}
