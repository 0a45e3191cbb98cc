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

package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kishu-project/kishu/config"
	"github.com/kishu-project/kishu/optimizer"
)

// TestSolve_PrefersMigrate covers two cheap-to-store variables produced by
// expensive cells; both should migrate, nothing recomputed.
func TestSolve_PrefersMigrate(t *testing.T) {
	ces := []optimizer.CEInfo{
		{CellNum: 0, RuntimeSeconds: 10, DstVSs: []int{0}},
		{CellNum: 1, RuntimeSeconds: 10, DstVSs: []int{1}},
	}
	vss := []optimizer.VSInfo{
		{ID: 0, OutputCE: 0, Active: true, Serializable: true, SizeBytes: 100},
		{ID: 1, OutputCE: 1, Active: true, Serializable: true, SizeBytes: 100},
	}

	res, err := optimizer.Solve(ces, vss, config.DefaultMigrationSpeedBPS)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{0, 1}, res.VSsToMigrate)
	require.True(t, res.CEsToRecompute.IsEmpty())
}

// TestSolve_UnserializableForcesRecompute covers a VS that cannot be
// serialized; its owning CE must land in the recompute set regardless of
// runtime cost.
func TestSolve_UnserializableForcesRecompute(t *testing.T) {
	ces := []optimizer.CEInfo{
		{CellNum: 0, RuntimeSeconds: 1, DstVSs: []int{0}},
	}
	vss := []optimizer.VSInfo{
		{ID: 0, OutputCE: 0, Active: true, Serializable: false, SizeBytes: 0},
	}

	res, err := optimizer.Solve(ces, vss, config.DefaultMigrationSpeedBPS)
	require.NoError(t, err)
	require.Empty(t, res.VSsToMigrate)
	require.True(t, res.CEsToRecompute.Contains(0))
}

// TestSolve_IncrementalStoreSkip covers an already-stored VS: it must be
// excluded from VSsToMigrate but still appear in VSsAvailableToLoad.
func TestSolve_IncrementalStoreSkip(t *testing.T) {
	ces := []optimizer.CEInfo{
		{CellNum: 0, RuntimeSeconds: 1, DstVSs: []int{0}},
	}
	vss := []optimizer.VSInfo{
		{ID: 0, OutputCE: 0, Active: true, Serializable: true, SizeBytes: 100, Stored: true},
	}

	res, err := optimizer.Solve(ces, vss, config.DefaultMigrationSpeedBPS)
	require.NoError(t, err)
	require.Empty(t, res.VSsToMigrate)
	require.True(t, res.CEsToRecompute.IsEmpty())
	require.ElementsMatch(t, []int{0}, res.VSsAvailableToLoad)
}

// TestSolve_RecomputeChainIncludesPrerequisites verifies req_func_mapping
// transitively includes an earlier cell whose output a later, forced-to-
// recompute cell needs but cannot migrate (already superseded).
func TestSolve_RecomputeChainIncludesPrerequisites(t *testing.T) {
	ces := []optimizer.CEInfo{
		{CellNum: 0, RuntimeSeconds: 1, DstVSs: []int{0}},
		{CellNum: 1, RuntimeSeconds: 1, SrcVSs: []int{0}, DstVSs: []int{1}},
	}
	vss := []optimizer.VSInfo{
		{ID: 0, OutputCE: 0, Active: false, Serializable: true, SizeBytes: 10},
		{ID: 1, OutputCE: 1, Active: true, Serializable: false, SizeBytes: 0},
	}

	res, err := optimizer.Solve(ces, vss, config.DefaultMigrationSpeedBPS)
	require.NoError(t, err)
	require.True(t, res.CEsToRecompute.Contains(1))
	require.True(t, res.CEsToRecompute.Contains(0))
	require.Contains(t, res.ReqFuncMapping[1], 0)
}
