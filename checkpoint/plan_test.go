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

package checkpoint_test

import (
	"context"
	"errors"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/require"

	"github.com/kishu-project/kishu/ahg"
	"github.com/kishu-project/kishu/checkpoint"
	"github.com/kishu-project/kishu/optimizer"
	"github.com/kishu-project/kishu/store"
)

func emptyBitmap() *roaring.Bitmap { return roaring.New() }

func names(ns ...string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, n := range ns {
		out[n] = struct{}{}
	}
	return out
}

func TestBuildRestorePlan_MigrateOnlyEmitsLoadVariable(t *testing.T) {
	g := ahg.New()
	g.UpdateGraph("x = 1", 1, 5, nil, names("x"), nil, names("x"), nil)
	active := g.GetActiveVariableSnapshotsDict()

	result := optimizer.Result{VSsToMigrate: []int{active["x"].ID}, VSsAvailableToLoad: []int{active["x"].ID}}
	result.CEsToRecompute = emptyBitmap()
	result.ReqFuncMapping = map[int][]int{}

	plan := checkpoint.BuildRestorePlan(g, result)
	require.Len(t, plan.Actions, 1)
	require.NotNil(t, plan.Actions[0].Load)
	require.Equal(t, []string{"x"}, plan.Actions[0].Load.Names)
}

func TestBuildRestorePlan_RecomputeEmitsRerunCell(t *testing.T) {
	g := ahg.New()
	g.UpdateGraph("f = lambda: 1", 1, 1, nil, names("f"), nil, names("f"), nil)

	bm := emptyBitmap()
	bm.Add(0)
	result := optimizer.Result{CEsToRecompute: bm, ReqFuncMapping: map[int][]int{0: nil}}

	plan := checkpoint.BuildRestorePlan(g, result)
	require.Len(t, plan.Actions, 1)
	require.NotNil(t, plan.Actions[0].Rerun)
	require.Equal(t, "f = lambda: 1", plan.Actions[0].Rerun.Code)
}

type flakyStore struct {
	failures int
	store.Store
}

func (f *flakyStore) Persist(ctx context.Context, commitID string, groups []store.PersistGroup) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("transient store error")
	}
	return nil
}

func TestDriver_RetriesTransientFailures(t *testing.T) {
	fs := &flakyStore{failures: 2}
	d := checkpoint.NewDriver(fs)

	plan := checkpoint.CheckpointPlan{Groups: []checkpoint.Group{{Names: []string{"x"}, Version: 1, SerializedBytes: 10}}}
	err := d.Execute(context.Background(), plan, "commit-1")
	require.NoError(t, err)
	require.Equal(t, 0, fs.failures)
}

func TestDriver_EmptyPlanIsNoop(t *testing.T) {
	fs := &flakyStore{failures: 99}
	d := checkpoint.NewDriver(fs)
	err := d.Execute(context.Background(), checkpoint.CheckpointPlan{}, "commit-1")
	require.NoError(t, err)
}
