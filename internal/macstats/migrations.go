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
)

// schema holds the DDL of the statistics database. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS simulations (
		id         TEXT PRIMARY KEY,
		profile    TEXT NOT NULL DEFAULT '{}',
		started_at TEXT NOT NULL,
		stopped_at TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS allocations (
		simulation_id TEXT NOT NULL,
		tti           INTEGER NOT NULL,
		direction     TEXT NOT NULL,
		rnti          INTEGER NOT NULL,
		harq_process  INTEGER NOT NULL,
		mcs           INTEGER NOT NULL,
		rbgs          TEXT NOT NULL,
		tb_size       INTEGER NOT NULL,
		layers        INTEGER NOT NULL DEFAULT 1,
		retx          INTEGER NOT NULL DEFAULT 0,
		rv            INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS deferrals (
		simulation_id TEXT NOT NULL,
		tti           INTEGER NOT NULL,
		direction     TEXT NOT NULL,
		rnti          INTEGER NOT NULL,
		reason        TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS rach_grants (
		simulation_id TEXT NOT NULL,
		tti           INTEGER NOT NULL,
		rnti          INTEGER NOT NULL,
		rbgs          TEXT NOT NULL,
		tb_size       INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_allocations_sim_rnti ON allocations(simulation_id, rnti)`,
	`CREATE INDEX IF NOT EXISTS idx_deferrals_sim_reason ON deferrals(simulation_id, reason)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
