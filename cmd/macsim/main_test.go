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

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/logging"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/macstats"
	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/simulator"
)

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	err := printSummary(&out, []macstats.UeSummary{
		{Rnti: 61, DlGrants: 1200, DlBytes: 2_500_000, UlGrants: 10, UlBytes: 1000},
	}, 1000, time.Millisecond)
	if err != nil {
		t.Fatalf("printSummary: %v", err)
	}
	got := out.String()
	for _, want := range []string{"RNTI", "1,200", "2.5 MB", "20 Mbit/s", "total"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestRunBatch(t *testing.T) {
	runTtis = 300
	defer func() { runTtis = 10000 }()

	p := simulator.DefaultCellProfile()
	p.NumOfUe = 3
	p.ArrivalRate = 1000
	p.Accelerated = true
	p.Seed = 11

	var out bytes.Buffer
	if err := runBatch(context.Background(), &out, p, ":memory:", logging.Discard()); err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if !strings.Contains(out.String(), "TTIs in") {
		t.Fatalf("output = %s", out.String())
	}
}
