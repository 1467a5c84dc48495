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

package macstats

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestMigrateIsIdempotent(t *testing.T) {
	st := testStore(t)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestRecordScheduleAndSummary(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.CreateSimulation(ctx, "sim-1", map[string]int{"dlBandwidth": 25}, time.Now()); err != nil {
		t.Fatalf("CreateSimulation: %v", err)
	}

	dl := &models.DlSchedule{
		Tti: 1,
		Allocations: []models.Allocation{
			{Rnti: 61, Rbgs: []int{0, 1}, Mcs: 10, TbSize: 200, Layers: 1},
			{Rnti: 62, Rbgs: []int{2}, Mcs: 5, TbSize: 60, Layers: 1, IsRetransmission: true, Rv: 1},
		},
		Deferrals: []models.Deferral{{Rnti: 63, Reason: models.DeferralNoRbg}},
	}
	ul := &models.UlSchedule{
		Tti:         1,
		Allocations: []models.Allocation{{Rnti: 61, Rbgs: []int{0}, Mcs: 0, TbSize: 40, Layers: 1}},
		RachGrants:  []models.RachGrant{{Rnti: 64, Rbgs: []int{3}, TbSize: 7}},
		Deferrals:   []models.Deferral{{Rnti: 63, Reason: models.DeferralNoRbg}},
	}
	if err := st.RecordSchedule(ctx, "sim-1", dl, ul); err != nil {
		t.Fatalf("RecordSchedule: %v", err)
	}
	if err := st.RecordSchedule(ctx, "sim-1", &models.DlSchedule{
		Tti:         2,
		Allocations: []models.Allocation{{Rnti: 61, Rbgs: []int{0}, Mcs: 10, TbSize: 100, Layers: 1}},
	}, nil); err != nil {
		t.Fatalf("RecordSchedule dl only: %v", err)
	}

	summary, err := st.UeSummary(ctx, "sim-1")
	if err != nil {
		t.Fatalf("UeSummary: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("summary rows = %d, want 2", len(summary))
	}
	ue := summary[0]
	if ue.Rnti != 61 || ue.DlGrants != 2 || ue.UlGrants != 1 || ue.DlBytes != 300 || ue.UlBytes != 40 {
		t.Fatalf("ue 61 summary = %+v", ue)
	}
	if summary[1].DlRetx != 1 || summary[1].DlBytes != 0 {
		t.Fatalf("retransmission should count as retx without bytes: %+v", summary[1])
	}

	counts, err := st.DeferralCounts(ctx, "sim-1")
	if err != nil {
		t.Fatalf("DeferralCounts: %v", err)
	}
	if counts[models.DeferralNoRbg] != 2 {
		t.Fatalf("NO_FREE_RBG deferrals = %d, want 2", counts[models.DeferralNoRbg])
	}
	n, err := st.RachGrantCount(ctx, "sim-1")
	if err != nil || n != 1 {
		t.Fatalf("RachGrantCount = %d, %v, want 1", n, err)
	}
}

func TestSummaryIsScopedToSimulation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.RecordSchedule(ctx, "a", &models.DlSchedule{Tti: 1, Allocations: []models.Allocation{{Rnti: 61, TbSize: 10}}}, nil); err != nil {
		t.Fatalf("RecordSchedule: %v", err)
	}
	summary, err := st.UeSummary(ctx, "b")
	if err != nil {
		t.Fatalf("UeSummary: %v", err)
	}
	if len(summary) != 0 {
		t.Fatalf("summary of other simulation = %+v, want empty", summary)
	}
}

func TestStopSimulation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	if err := st.CreateSimulation(ctx, "sim-stop", nil, time.Now()); err != nil {
		t.Fatalf("CreateSimulation: %v", err)
	}
	if err := st.StopSimulation(ctx, "sim-stop", time.Now()); err != nil {
		t.Fatalf("StopSimulation: %v", err)
	}
	var stopped *string
	if err := st.db.QueryRow(`SELECT stopped_at FROM simulations WHERE id = ?`, "sim-stop").Scan(&stopped); err != nil {
		t.Fatalf("select: %v", err)
	}
	if stopped == nil {
		t.Fatalf("stopped_at not set")
	}
}
