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
	"testing"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

func TestCqiValidityWindow(t *testing.T) {
	q := NewChannelQuality(5)
	q.OnReport(models.CqiReport{Rnti: 1, Wideband: models.PtrUint8(9)})
	for tick := 0; tick < 5; tick++ {
		if cqi, ok := q.Effective(NoSubband); !ok || cqi != 9 {
			t.Fatalf("tick %d: Effective() = %d/%v, want 9/true", tick, cqi, ok)
		}
		q.Tick()
	}
	if _, ok := q.Effective(NoSubband); ok {
		t.Fatalf("tick 5: report still present, want absent")
	}
	q.OnReport(models.CqiReport{Rnti: 1, Wideband: models.PtrUint8(4)})
	if cqi, ok := q.Effective(NoSubband); !ok || cqi != 4 {
		t.Fatalf("after new report Effective() = %d/%v, want 4/true", cqi, ok)
	}
}

func TestCqiSubbandFallsBackToWideband(t *testing.T) {
	q := NewChannelQuality(3)
	q.OnReport(models.CqiReport{Rnti: 1, Subbands: []uint8{2, 12, 7}})
	q.Tick()
	q.OnReport(models.CqiReport{Rnti: 1, Wideband: models.PtrUint8(6)})

	if cqi, _ := q.Effective(1); cqi != 12 {
		t.Fatalf("Effective(1) = %d, want subband 12", cqi)
	}
	if cqi, _ := q.Effective(5); cqi != 6 {
		t.Fatalf("Effective(5) = %d, want wideband 6 for a subband never reported", cqi)
	}
	q.Tick()
	q.Tick()
	if cqi, ok := q.Effective(1); !ok || cqi != 6 {
		t.Fatalf("Effective(1) after subband aged out = %d/%v, want wideband 6", cqi, ok)
	}
	q.Tick()
	if _, ok := q.Effective(1); ok {
		t.Fatalf("Effective(1) = present after every report aged out")
	}
}

func TestCqiEmptyReportKeepsState(t *testing.T) {
	q := NewChannelQuality(10)
	q.OnReport(models.CqiReport{Rnti: 1, Subbands: []uint8{3, 4}})
	q.OnReport(models.CqiReport{Rnti: 1})
	if cqi, ok := q.Effective(1); !ok || cqi != 4 {
		t.Fatalf("Effective(1) = %d/%v, want 4/true", cqi, ok)
	}
}
