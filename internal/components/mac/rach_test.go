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
	"testing"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

// twoRbgSizer asks two RBGs for every request up to 7 bytes, three above.
func twoRbgSizer(bytes uint32) (int, int, uint32) {
	if bytes <= 7 {
		return 2, 0, 9
	}
	return 3, 0, 13
}

func TestRachWaitsForContiguousRoom(t *testing.T) {
	q := NewRachQueue(DefaultRachMaxWait)
	q.OnPreambleDetected(models.RachRequest{Rnti: 100, RequestedBytes: 7}, 0)
	q.OnPreambleDetected(models.RachRequest{Rnti: 101, RequestedBytes: 7}, 0)

	busy := make([]bool, 10)
	for i := 0; i < 9; i++ {
		busy[i] = true
	}
	grants, deferrals := q.Admit(1, busy, 0, twoRbgSizer)
	if len(grants) != 0 {
		t.Fatalf("Admit() with one free rbg granted %v", grants)
	}
	if len(deferrals) != 2 || deferrals[0].Reason != models.DeferralRachBudget {
		t.Fatalf("deferrals = %v, want both requests deferred", deferrals)
	}

	grants, _ = q.Admit(2, make([]bool, 10), 0, twoRbgSizer)
	if len(grants) != 2 {
		t.Fatalf("Admit() granted %d requests, want 2", len(grants))
	}
	if grants[0].Rnti != 100 || grants[1].Rnti != 101 {
		t.Fatalf("grant order = %d, %d, want 100, 101", grants[0].Rnti, grants[1].Rnti)
	}
	if !slices.Equal(grants[0].Rbgs, []int{0, 1}) || !slices.Equal(grants[1].Rbgs, []int{2, 3}) {
		t.Fatalf("grant rbgs = %v, %v, want [0 1] and [2 3]", grants[0].Rbgs, grants[1].Rbgs)
	}
	if q.Len() != 0 {
		t.Fatalf("Len() = %d after admission, want 0", q.Len())
	}
}

func TestRachKeepsArrivalOrder(t *testing.T) {
	q := NewRachQueue(DefaultRachMaxWait)
	q.OnPreambleDetected(models.RachRequest{Rnti: 100, RequestedBytes: 20}, 0)
	q.OnPreambleDetected(models.RachRequest{Rnti: 101, RequestedBytes: 5}, 0)

	grants, _ := q.Admit(1, make([]bool, 10), 2, twoRbgSizer)
	if len(grants) != 0 {
		t.Fatalf("a later request overtook the head of the queue: %v", grants)
	}
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
}

func TestRachExpiry(t *testing.T) {
	q := NewRachQueue(3)
	q.OnPreambleDetected(models.RachRequest{Rnti: 100, RequestedBytes: 7}, 0)
	full := []bool{true, true, true}
	for tti := uint64(0); tti < 3; tti++ {
		if _, d := q.Admit(tti, full, 0, twoRbgSizer); len(d) != 1 || d[0].Reason != models.DeferralRachBudget {
			t.Fatalf("tti %d deferrals = %v, want budget deferral", tti, d)
		}
	}
	_, d := q.Admit(3, full, 0, twoRbgSizer)
	if len(d) != 1 || d[0].Reason != models.DeferralRachExpired {
		t.Fatalf("deferrals at tti 3 = %v, want RACH_EXPIRED", d)
	}
	if q.Len() != 0 {
		t.Fatalf("expired request still queued")
	}
}

func TestRachPurge(t *testing.T) {
	q := NewRachQueue(0)
	q.OnPreambleDetected(models.RachRequest{Rnti: 100, RequestedBytes: 7}, 0)
	q.OnPreambleDetected(models.RachRequest{Rnti: 101, RequestedBytes: 7}, 0)
	q.Purge(100)
	grants, _ := q.Admit(0, make([]bool, 4), 0, twoRbgSizer)
	if len(grants) != 1 || grants[0].Rnti != 101 {
		t.Fatalf("grants after purge = %v, want only rnti 101", grants)
	}
}
