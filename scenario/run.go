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

package scenario

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kishu-project/kishu/config"
	"github.com/kishu-project/kishu/namespace"
	"github.com/kishu-project/kishu/planner"
	"github.com/kishu-project/kishu/store"
)

// Load reads and parses a fixture file from testdata.
func Load(t *testing.T, path string) Fixture {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var f Fixture
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

// Run replays f's cells through a freshly constructed Planner, asserting
// each cell's ChangedVariables and, if f.Checkpoint is set, the final
// checkpoint/restore plan shape.
func Run(t *testing.T, f Fixture) {
	t.Helper()

	cfg := config.Default()
	cfg.IncrementalStore = f.IncrementalStore
	if f.MigrationSpeedBPS > 0 {
		cfg.Optimizer.MigrationSpeedBPS = f.MigrationSpeedBPS
	}

	ns := namespace.NewMap()
	p := planner.New(ns, cfg)

	st := store.NewMemStore(64)
	ctx := context.Background()

	for i, cell := range f.Cells {
		require.NoErrorf(t, p.PreRunCellUpdate(), "cell %d PreRunCellUpdate", i)

		for _, b := range cell.Bind {
			v, err := newValue(b.Kind, b.Value)
			require.NoErrorf(t, err, "cell %d bind %q", i, b.Name)
			ns.Set(b.Name, v)
		}
		for _, a := range cell.Alias {
			v, ok := ns.Get(a.Of)
			require.Truef(t, ok, "cell %d alias %q: %q not bound", i, a.Name, a.Of)
			ns.Set(a.Name, v)
		}
		for _, m := range cell.Mutate {
			v, ok := ns.Get(m.Name)
			require.Truef(t, ok, "cell %d mutate: %q not bound", i, m.Name)
			require.NoErrorf(t, applyMutate(v, m), "cell %d mutate %q", i, m.Name)
		}
		for _, name := range cell.Delete {
			ns.Delete(name)
		}

		changed, err := p.PostRunCellUpdate(cell.Code, cell.RuntimeSeconds)
		require.NoErrorf(t, err, "cell %d PostRunCellUpdate", i)

		requireSetEqual(t, i, "created", cell.Expect.Created, changed.Created.ToSlice())
		requireSetEqual(t, i, "modified_value", cell.Expect.ModifiedValue, changed.ModifiedValue.ToSlice())
		requireSetEqual(t, i, "modified_structure", cell.Expect.ModifiedStructure, changed.ModifiedStructure.ToSlice())
		requireSetEqual(t, i, "deleted", cell.Expect.Deleted, changed.Deleted.ToSlice())
	}

	if f.Checkpoint == nil {
		return
	}

	if len(f.PreStored) > 0 {
		active := p.AHG().GetActiveVariableSnapshotsDict()
		groups := make([]store.PersistGroup, 0, len(f.PreStored))
		for _, g := range f.PreStored {
			version := g.Version
			if g.FromActive {
				require.NotEmptyf(t, g.Names, "pre_stored entry with from_active needs names")
				vs, ok := active[g.Names[0]]
				require.Truef(t, ok, "pre_stored from_active: %q not active", g.Names[0])
				version = vs.Version
			}
			groups = append(groups, store.PersistGroup{Names: g.Names, Version: version, SerializedSize: 1})
		}
		require.NoError(t, st.Persist(ctx, f.ParentCommitID, groups))
	}

	ckpt, restore, err := p.GenerateCheckpointRestorePlans(ctx, st, f.Checkpoint.CommitID, []string{f.ParentCommitID})
	require.NoError(t, err)

	var migrated [][]string
	for _, g := range ckpt.Groups {
		names := append([]string(nil), g.Names...)
		sort.Strings(names)
		migrated = append(migrated, names)
	}
	requireGroupsEqual(t, "migrate", f.Checkpoint.ExpectMigrateNames, migrated)

	var rerunCells []int
	var loaded [][]string
	for _, act := range restore.Actions {
		if act.Rerun != nil {
			rerunCells = append(rerunCells, act.Rerun.CellNum)
		}
		if act.Load != nil {
			names := append([]string(nil), act.Load.Names...)
			sort.Strings(names)
			loaded = append(loaded, names)
		}
	}
	sort.Ints(rerunCells)
	require.ElementsMatch(t, f.Checkpoint.ExpectRerunCells, rerunCells, "rerun cells")
	requireGroupsEqual(t, "load", f.Checkpoint.ExpectLoadNames, loaded)
}

func requireSetEqual(t *testing.T, cellIdx int, label string, want []string, got []string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	require.ElementsMatchf(t, want, got, "cell %d %s", cellIdx, label)
}

func requireGroupsEqual(t *testing.T, label string, want, got [][]string) {
	t.Helper()
	normalize := func(groups [][]string) []string {
		out := make([]string, len(groups))
		for i, g := range groups {
			sorted := append([]string(nil), g...)
			sort.Strings(sorted)
			s := ""
			for _, n := range sorted {
				s += n + ","
			}
			out[i] = s
		}
		sort.Strings(out)
		return out
	}
	require.Equal(t, normalize(want), normalize(got), label)
}
