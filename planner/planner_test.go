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

package planner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kishu-project/kishu/config"
	"github.com/kishu-project/kishu/namespace"
	"github.com/kishu-project/kishu/planner"
	"github.com/kishu-project/kishu/store"
)

// TestScenario_S1_PrimitiveCreateModifyDelete covers a primitive binding's
// create/modify/delete lifecycle.
func TestScenario_S1_PrimitiveCreateModifyDelete(t *testing.T) {
	ns := namespace.NewMap()
	p := planner.New(ns, config.Default())

	require.NoError(t, p.PreRunCellUpdate())
	ns.Set("x", 1)
	changed, err := p.PostRunCellUpdate("x = 1", 0)
	require.NoError(t, err)
	require.True(t, changed.Created.Contains("x"))
	require.Zero(t, changed.ModifiedValue.Cardinality())

	require.NoError(t, p.PreRunCellUpdate())
	ns.Set("x", 2)
	changed, err = p.PostRunCellUpdate("x = 2", 0)
	require.NoError(t, err)
	require.True(t, changed.ModifiedValue.Contains("x"))
	require.True(t, changed.ModifiedStructure.Contains("x"))

	require.NoError(t, p.PreRunCellUpdate())
	ns.Delete("x")
	changed, err = p.PostRunCellUpdate("del x", 0)
	require.NoError(t, err)
	require.True(t, changed.Deleted.Contains("x"))
}

// TestScenario_S2_AliasingDetection covers two names bound to the same
// underlying value, and what happens to each when aliasing breaks.
func TestScenario_S2_AliasingDetection(t *testing.T) {
	ns := namespace.NewMap()
	p := planner.New(ns, config.Default())

	shared := []int{1, 2, 3}
	require.NoError(t, p.PreRunCellUpdate())
	ns.Set("a", shared)
	ns.Set("b", shared)
	_, err := p.PostRunCellUpdate("a = [1,2,3]; b = a", 0)
	require.NoError(t, err)

	active := p.AHG().GetActiveVariableSnapshotsDict()
	require.Equal(t, active["a"].ID, active["b"].ID)

	require.NoError(t, p.PreRunCellUpdate())
	ns.Set("b", []int{1, 2, 3})
	changed, err := p.PostRunCellUpdate("b = [1,2,3]", 0)
	require.NoError(t, err)
	require.True(t, changed.ModifiedStructure.Contains("b"))
	require.False(t, changed.ModifiedValue.Contains("b"))

	active = p.AHG().GetActiveVariableSnapshotsDict()
	require.NotEqual(t, active["a"].ID, active["b"].ID)
}

type appendable struct {
	Vals []int
}

func (a *appendable) Append(v int) { a.Vals = append(a.Vals, v) }

// TestScenario_S3_InPlaceMutationRequiresAccess covers an in-place mutation
// of a bound value that was never explicitly reassigned.
func TestScenario_S3_InPlaceMutationRequiresAccess(t *testing.T) {
	ns := namespace.NewMap()
	p := planner.New(ns, config.Default())

	xs := &appendable{Vals: []int{1}}
	require.NoError(t, p.PreRunCellUpdate())
	ns.Set("xs", xs)
	_, err := p.PostRunCellUpdate("xs = [1]", 0)
	require.NoError(t, err)

	require.NoError(t, p.PreRunCellUpdate())
	xs.Append(2) // mutate without rebind and without MarkAccessed
	changed, err := p.PostRunCellUpdate("xs.append(2)", 0)
	require.NoError(t, err)
	require.True(t, changed.ModifiedStructure.Contains("xs"))
	require.True(t, changed.ModifiedValue.Contains("xs"))
}

func TestGenerateCheckpointRestorePlans_SimpleMigrate(t *testing.T) {
	ns := namespace.NewMap()
	p := planner.New(ns, config.Default())

	require.NoError(t, p.PreRunCellUpdate())
	ns.Set("x", 42)
	_, err := p.PostRunCellUpdate("x = 42", 0.001)
	require.NoError(t, err)

	st := store.NewMemStore(16)
	ckpt, restore, err := p.GenerateCheckpointRestorePlans(context.Background(), st, "commit-1", nil)
	require.NoError(t, err)
	require.NotEmpty(t, ckpt.Groups)
	require.NotEmpty(t, restore.Actions)
}

func TestReplaceState_ClearsAndReloads(t *testing.T) {
	ns := namespace.NewMap()
	p := planner.New(ns, config.Default())
	require.NoError(t, p.PreRunCellUpdate())
	ns.Set("x", 1)
	_, err := p.PostRunCellUpdate("x = 1", 0)
	require.NoError(t, err)

	serialized, err := p.AHG().Serialize()
	require.NoError(t, err)

	fresh := namespace.NewMap()
	fresh.Set("x", 1)
	require.NoError(t, p.ReplaceState(serialized, fresh))

	require.Len(t, p.AHG().GetActiveVariableSnapshots(), 1)
}
