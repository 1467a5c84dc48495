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
	"math"
	"testing"
)

func TestMetricByName(t *testing.T) {
	for _, name := range []string{"", "pss", "PSS-CoItA", "fdmt", "pf"} {
		if _, err := MetricByName(name); err != nil {
			t.Fatalf("MetricByName(%q) error = %v", name, err)
		}
	}
	if _, err := MetricByName("tdbet"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("MetricByName(tdbet) error = %v, want ErrInvalidConfig", err)
	}
}

func TestPssClasses(t *testing.T) {
	m, _ := MetricByName(MetricPss)
	starving := Candidate{Rnti: 1, PastThroughput: 10_000, TargetThroughput: 64_000, WidebandRate: 100_000}
	served := Candidate{Rnti: 2, PastThroughput: 10_000, WidebandRate: 1_000_000}
	if class, _ := m.TimeDomain(starving); class != 1 {
		t.Fatalf("class of a ue below target = %d, want 1", class)
	}
	if class, _ := m.TimeDomain(served); class != 0 {
		t.Fatalf("class of a best effort ue = %d, want 0", class)
	}
	if got, want := m.FrequencyDomain(starving, 50_000), 6.4*50_000/10_000; math.Abs(got-want) > 1e-9 {
		t.Fatalf("FrequencyDomain() = %v, want %v", got, want)
	}
	coita, _ := MetricByName(MetricPssCoita)
	if got := coita.FrequencyDomain(served, 500_000); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("CoItA FrequencyDomain() = %v, want 0.5", got)
	}
}

func TestFlowPerfEwma(t *testing.T) {
	f := newFlowPerf(0)
	f.Record(125)
	f.Update(DefaultTimeWindow)
	want := (1-1.0/99)*1 + 1_000_000.0/99
	if math.Abs(f.LastAveragedThroughput-want) > 1e-6 {
		t.Fatalf("LastAveragedThroughput = %v, want %v", f.LastAveragedThroughput, want)
	}
	if f.LastTtiBytes != 0 || f.TotalBytes != 125 {
		t.Fatalf("counters = %d/%d, want 0/125", f.LastTtiBytes, f.TotalBytes)
	}
	peak := f.LastAveragedThroughput
	f.Update(DefaultTimeWindow)
	if f.LastAveragedThroughput >= peak || f.SecondLastAveragedThroughput != peak {
		t.Fatalf("idle TTI did not decay the average: %v after %v", f.LastAveragedThroughput, peak)
	}
	f.TargetThroughput = 1e9
	if !f.BelowTarget() {
		t.Fatalf("BelowTarget() = false under a 1 Gbit/s target")
	}
}
