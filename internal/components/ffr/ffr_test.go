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

package ffr

import (
	"testing"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

func TestNewPolicies(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", Config{}, false},
		{"hard", Config{Policy: PolicyHard, Dl: Band{0, 5}, Ul: Band{5, 5}}, false},
		{"soft", Config{Policy: "SOFT", Dl: Band{8, 2}, Ul: Band{8, 2}}, false},
		{"band outside grid", Config{Policy: PolicyHard, Dl: Band{8, 5}, Ul: Band{0, 1}}, true},
		{"unknown", Config{Policy: "reuse-3"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New(c.cfg, 10, 10)
			if (err != nil) != c.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestHardRestrictsEveryUe(t *testing.T) {
	p, err := New(Config{Policy: PolicyHard, Dl: Band{2, 3}, Ul: Band{0, 4}}, 10, 10)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for rbg := 0; rbg < 10; rbg++ {
		want := rbg >= 2 && rbg < 5
		if got := p.DlRbgAllowed(61, rbg); got != want {
			t.Fatalf("DlRbgAllowed(61, %d) = %v, want %v", rbg, got, want)
		}
	}
	if p.UlRbgAllowed(99, 4) {
		t.Fatalf("UlRbgAllowed(99, 4) = true, want false")
	}
}

func TestSoftSplitsEdgeAndCentre(t *testing.T) {
	s := NewSoft(Band{Offset: 7, Rbgs: 3}, Band{Offset: 0, Rbgs: 2})
	var edge, centre models.Rnti = 70, 71
	s.SetEdge(edge, true)

	if !s.DlRbgAllowed(edge, 8) || s.DlRbgAllowed(edge, 2) {
		t.Fatalf("edge ue must only use the dl edge band")
	}
	if s.DlRbgAllowed(centre, 8) || !s.DlRbgAllowed(centre, 2) {
		t.Fatalf("centre ue must stay out of the dl edge band")
	}
	if !s.UlRbgAllowed(edge, 1) || s.UlRbgAllowed(centre, 1) {
		t.Fatalf("ul edge band not honoured")
	}

	s.Forget(edge)
	if !s.DlRbgAllowed(edge, 2) {
		t.Fatalf("forgotten ue should be treated as centre")
	}
}
