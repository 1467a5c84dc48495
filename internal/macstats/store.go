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
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"

	_ "modernc.org/sqlite"
)

// Store persists scheduling decisions of simulated cells in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// UeSummary aggregates the allocations of one UE over a simulation.
type UeSummary struct {
	Rnti      models.Rnti `json:"rnti"`
	DlGrants  int         `json:"dlGrants"`
	UlGrants  int         `json:"ulGrants"`
	DlRetx    int         `json:"dlRetx"`
	UlRetx    int         `json:"ulRetx"`
	DlBytes   uint64      `json:"dlBytes"`
	UlBytes   uint64      `json:"ulBytes"`
	Deferrals int         `json:"deferrals"`
}

// NewStore opens (or creates) the database at dbPath. Use ":memory:" in tests.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// a single connection keeps ":memory:" databases shared across queries
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma synchronous: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With("component", "macstats"),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// CreateSimulation records the start of a simulation and its profile.
func (s *Store) CreateSimulation(ctx context.Context, simId string, profile any, startedAt time.Time) error {
	s.logger.Debug("sql", "op", "insert", "table", "simulations", "id", simId)

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO simulations (id, profile, started_at) VALUES (?, ?, ?)`,
		simId, string(profileJSON), startedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) StopSimulation(ctx context.Context, simId string, stoppedAt time.Time) error {
	s.logger.Debug("sql", "op", "update", "table", "simulations", "id", simId)
	_, err := s.db.ExecContext(ctx,
		`UPDATE simulations SET stopped_at = ? WHERE id = ?`,
		stoppedAt.UTC().Format(time.RFC3339Nano), simId,
	)
	return err
}

// RecordSchedule stores the DL and UL decisions of one TTI atomically.
// Either schedule may be nil when the subframe does not carry that direction.
func (s *Store) RecordSchedule(ctx context.Context, simId string, dl *models.DlSchedule, ul *models.UlSchedule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if dl != nil {
		if err := insertAllocations(ctx, tx, simId, dl.Tti, models.Downlink, dl.Allocations); err != nil {
			return err
		}
		if err := insertDeferrals(ctx, tx, simId, dl.Tti, models.Downlink, dl.Deferrals); err != nil {
			return err
		}
	}
	if ul != nil {
		if err := insertAllocations(ctx, tx, simId, ul.Tti, models.Uplink, ul.Allocations); err != nil {
			return err
		}
		if err := insertDeferrals(ctx, tx, simId, ul.Tti, models.Uplink, ul.Deferrals); err != nil {
			return err
		}
		for _, g := range ul.RachGrants {
			rbgs, err := json.Marshal(g.Rbgs)
			if err != nil {
				return fmt.Errorf("marshal rbgs: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO rach_grants (simulation_id, tti, rnti, rbgs, tb_size) VALUES (?, ?, ?, ?, ?)`,
				simId, ul.Tti, g.Rnti, string(rbgs), g.TbSize,
			); err != nil {
				return fmt.Errorf("insert rach grant: %w", err)
			}
		}
	}
	return tx.Commit()
}

func insertAllocations(ctx context.Context, tx *sql.Tx, simId string, tti uint64, dir models.Direction, allocs []models.Allocation) error {
	for _, a := range allocs {
		rbgs, err := json.Marshal(a.Rbgs)
		if err != nil {
			return fmt.Errorf("marshal rbgs: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO allocations (simulation_id, tti, direction, rnti, harq_process, mcs, rbgs, tb_size, layers, retx, rv)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			simId, tti, dir.String(), a.Rnti, a.HarqProcess, a.Mcs, string(rbgs), a.TbSize, a.Layers,
			boolToInt(a.IsRetransmission), a.Rv,
		); err != nil {
			return fmt.Errorf("insert allocation: %w", err)
		}
	}
	return nil
}

func insertDeferrals(ctx context.Context, tx *sql.Tx, simId string, tti uint64, dir models.Direction, deferrals []models.Deferral) error {
	for _, d := range deferrals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO deferrals (simulation_id, tti, direction, rnti, reason) VALUES (?, ?, ?, ?, ?)`,
			simId, tti, dir.String(), d.Rnti, string(d.Reason),
		); err != nil {
			return fmt.Errorf("insert deferral: %w", err)
		}
	}
	return nil
}

// UeSummary returns per-UE totals of a simulation ordered by RNTI.
// Retransmitted blocks do not count towards the byte totals.
func (s *Store) UeSummary(ctx context.Context, simId string) ([]UeSummary, error) {
	s.logger.Debug("sql", "op", "summary", "table", "allocations", "simulation", simId)

	rows, err := s.db.QueryContext(ctx,
		`SELECT rnti,
			SUM(CASE WHEN direction = 'DL' THEN 1 ELSE 0 END),
			SUM(CASE WHEN direction = 'UL' THEN 1 ELSE 0 END),
			SUM(CASE WHEN direction = 'DL' AND retx = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN direction = 'UL' AND retx = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN direction = 'DL' AND retx = 0 THEN tb_size ELSE 0 END),
			SUM(CASE WHEN direction = 'UL' AND retx = 0 THEN tb_size ELSE 0 END),
			(SELECT COUNT(*) FROM deferrals d WHERE d.simulation_id = a.simulation_id AND d.rnti = a.rnti)
		 FROM allocations a
		 WHERE simulation_id = ?
		 GROUP BY rnti
		 ORDER BY rnti`, simId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UeSummary
	for rows.Next() {
		var u UeSummary
		if err := rows.Scan(&u.Rnti, &u.DlGrants, &u.UlGrants, &u.DlRetx, &u.UlRetx, &u.DlBytes, &u.UlBytes, &u.Deferrals); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeferralCounts returns the number of deferrals per reason for a simulation.
func (s *Store) DeferralCounts(ctx context.Context, simId string) (map[models.DeferralReason]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT reason, COUNT(*) FROM deferrals WHERE simulation_id = ? GROUP BY reason`, simId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.DeferralReason]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		out[models.DeferralReason(reason)] = n
	}
	return out, rows.Err()
}

// RachGrantCount returns the number of Msg3 grants stored for a simulation.
func (s *Store) RachGrantCount(ctx context.Context, simId string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rach_grants WHERE simulation_id = ?`, simId).Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
