// Copyright 2026 The Kishu Authors
// This file is part of Kishu.
//
// Kishu is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Kishu is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Kishu. If not, see <http://www.gnu.org/licenses/>.

// Package scenario is a JSON-driven end-to-end harness for the Planner: it
// loads {cells, expect} fixtures and replays a sequence of fake cell
// executions against a namespace.Map through a real planner.Planner,
// asserting on the resulting ChangedVariables and, optionally, the
// checkpoint/restore plan shape.
package scenario

import "encoding/json"

// Fixture is one end-to-end scenario.
type Fixture struct {
	Name              string      `json:"name"`
	IncrementalStore  bool        `json:"incremental_store"`
	MigrationSpeedBPS float64     `json:"migration_speed_bps"`
	PreStored         []PreStored `json:"pre_stored"`
	ParentCommitID    string      `json:"parent_commit_id"`
	Cells             []Cell      `json:"cells"`
	Checkpoint        *Checkpoint `json:"checkpoint"`
}

// PreStored seeds the store.MemStore under ParentCommitID, for
// incremental-store fixtures (S6). When FromActive is true, Version is
// ignored and the harness instead reads the real version the Planner
// assigned to Names[0]'s active VS after the cells replay -- fixture
// versions can't be pinned to a literal constant since the Planner's clock
// is wall-clock nanoseconds.
type PreStored struct {
	Names      []string `json:"names"`
	Version    int64    `json:"version"`
	FromActive bool     `json:"from_active"`
}

// Cell is one fake cell execution: a batch of namespace edits applied
// between PreRunCellUpdate and PostRunCellUpdate, plus the expected diff.
type Cell struct {
	Code           string          `json:"code"`
	RuntimeSeconds float64         `json:"runtime_seconds"`
	Bind           []Bind          `json:"bind,omitempty"`
	Alias          []Alias         `json:"alias,omitempty"`
	Mutate         []Mutate        `json:"mutate,omitempty"`
	Delete         []string        `json:"delete,omitempty"`
	Expect         ExpectedChanged `json:"expect"`
}

// Bind assigns a freshly constructed value to Name. Kind selects how Value
// is decoded; see newValue.
type Bind struct {
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// Alias binds Name to the exact same live value currently held by Of,
// the way `b = a` shares a's underlying object (scenario S2).
type Alias struct {
	Name string `json:"name"`
	Of   string `json:"of"`
}

// Mutate mutates Name's existing value in place (no rebind), the way
// `xs.append(2)` does (scenario S3).
type Mutate struct {
	Name  string          `json:"name"`
	Op    string          `json:"op"`
	Value json.RawMessage `json:"value"`
}

// ExpectedChanged is the expected post_run_cell_update diff.
type ExpectedChanged struct {
	Created           []string `json:"created"`
	ModifiedValue     []string `json:"modified_value"`
	ModifiedStructure []string `json:"modified_structure"`
	Deleted           []string `json:"deleted"`
}

// Checkpoint, when present, asks the harness to call
// Planner.GenerateCheckpointRestorePlans after the last cell and assert on
// the resulting plan shape (scenarios S4, S5, S6).
type Checkpoint struct {
	CommitID           string     `json:"commit_id"`
	ExpectMigrateNames [][]string `json:"expect_migrate_names"`
	ExpectRerunCells   []int      `json:"expect_rerun_cells"`
	ExpectLoadNames    [][]string `json:"expect_load_names"`
}
