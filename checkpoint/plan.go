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

// Package checkpoint holds the CheckpointPlan/RestorePlan types and a
// best-effort, backoff-wrapped driver that executes a CheckpointPlan
// against the external store.Store interface. Execution itself -- the
// durable write -- is entirely the store's job; this package only
// declares what to persist and retries the call.
package checkpoint

import (
	"sort"

	"github.com/kishu-project/kishu/ahg"
	"github.com/kishu-project/kishu/optimizer"
)

// Group is one {names, version, serialized_bytes} entry of a CheckpointPlan.
type Group struct {
	Names           []string
	Version         int64
	SerializedBytes uint64
}

// CheckpointPlan declares what to persist under a commit_id.
type CheckpointPlan struct {
	Incremental bool
	Groups      []Group
}

// RerunCell re-executes a code block in a fresh namespace to rematerialize
// its outputs.
type RerunCell struct {
	CellNum int
	Code    string
}

// Prerequisite is one (cell_num, code) pair to run, in order, before a
// LoadVariable's fallback RerunCell.
type Prerequisite struct {
	CellNum int
	Code    string
}

// LoadVariable loads names from the store; if absent, falls back to
// running Prerequisites in order then re-executing CellNum.
type LoadVariable struct {
	CellNum       int
	Names         []string
	Prerequisites []Prerequisite
}

// Action is either a RerunCell or a LoadVariable.
type Action struct {
	Rerun *RerunCell
	Load  *LoadVariable
}

// RestorePlan is the ordered list of actions a restore executes.
type RestorePlan struct {
	Actions []Action
}

// BuildCheckpointPlan builds the declaration of what to persist: one Group
// per VS in vssToMigrate, carrying its names, version and size, ordered by
// version. Both modes produce this same grouped shape; incremental only sets
// plan.Incremental, and no flat name list is built in non-incremental mode.
func BuildCheckpointPlan(g *ahg.AHG, vssToMigrate []int, incremental bool) CheckpointPlan {
	plan := CheckpointPlan{Incremental: incremental}
	for _, id := range vssToMigrate {
		vs := g.VS(id)
		plan.Groups = append(plan.Groups, Group{
			Names:           append([]string(nil), vs.Names...),
			Version:         vs.Version,
			SerializedBytes: vs.Size,
		})
	}
	sort.Slice(plan.Groups, func(i, j int) bool {
		if plan.Groups[i].Version != plan.Groups[j].Version {
			return plan.Groups[i].Version < plan.Groups[j].Version
		}
		return plan.Groups[i].Names[0] < plan.Groups[j].Names[0]
	})
	return plan
}

// BuildRestorePlan walks CEs in ascending cell_num; for each CE in
// ces_to_recompute it emits a RerunCell, and for each CE that owns a VS
// available to load (freshly migrated or already stored under an ancestor
// commit) it emits a LoadVariable with that CE's owned names.
func BuildRestorePlan(g *ahg.AHG, result optimizer.Result) RestorePlan {
	loadable := map[int]struct{}{}
	for _, id := range result.VSsAvailableToLoad {
		loadable[id] = struct{}{}
	}

	var plan RestorePlan
	for _, ce := range g.GetCellExecutions() {
		if result.CEsToRecompute.Contains(uint32(ce.CellNum)) {
			plan.Actions = append(plan.Actions, Action{Rerun: &RerunCell{CellNum: ce.CellNum, Code: ce.Code}})
			continue
		}
		var owned []string
		for _, vsID := range ce.DstVSs {
			if _, ok := loadable[vsID]; ok {
				owned = append(owned, g.VS(vsID).Names...)
			}
		}
		if len(owned) == 0 {
			continue
		}
		sort.Strings(owned)

		var prereqs []Prerequisite
		for _, prereqCell := range result.ReqFuncMapping[ce.CellNum] {
			prereqs = append(prereqs, Prerequisite{CellNum: prereqCell, Code: g.CE(prereqCell).Code})
		}
		plan.Actions = append(plan.Actions, Action{Load: &LoadVariable{
			CellNum:       ce.CellNum,
			Names:         owned,
			Prerequisites: prereqs,
		}})
	}
	return plan
}
