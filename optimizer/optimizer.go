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

// Package optimizer solves the migrate-vs-recompute partition:
// given the AHG, the active variable snapshots, and which versions are
// already stored, choose the minimum-cost split between serializing a VS
// and recomputing it by replaying cell executions.
package optimizer

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kishu-project/kishu/ahg"
	"github.com/kishu-project/kishu/kishuerr"
)

// costUnit scales float64 second-costs into integer flow capacities;
// Edmonds-Karp needs integral capacities but runtime/migration costs are
// fractional seconds, so everything is rounded to microsecond granularity.
const costUnit = 1_000_000.0

// forceBonus dominates any achievable sum of weights, guaranteeing a CE
// with an unserializable active output lands on the selected side of the
// min cut regardless of its own runtime cost.
const forceBonus = 1 << 40

// VSInfo is the per-VS input the Optimizer needs, independent of the ahg
// package's internal representation so this package can be tested without
// constructing a full AHG.
type VSInfo struct {
	ID           int
	OutputCE     int
	Active       bool
	Serializable bool
	SizeBytes    uint64
	Stored       bool // already persisted under an ancestor commit
}

// CEInfo is the per-CE input the Optimizer needs.
type CEInfo struct {
	CellNum        int
	RuntimeSeconds float64
	SrcVSs         []int
	DstVSs         []int
}

// Result is the Optimizer's output.
type Result struct {
	VSsToMigrate   []int
	CEsToRecompute *roaring.Bitmap
	ReqFuncMapping map[int][]int // cell_num -> prerequisite cell_nums, ascending

	// VSsAvailableToLoad is every active VS not selected for recompute,
	// whether it is freshly migrated (VSsToMigrate) or already persisted
	// under an ancestor commit (Stored). RestorePlan construction draws
	// LoadVariable actions from this set, not just VSsToMigrate, so an
	// incremental-store hit still surfaces as a load rather than being
	// silently dropped (scenario S6).
	VSsAvailableToLoad []int
}

// Solve computes the minimum-cost {migrate, recompute} partition.
func Solve(ces []CEInfo, vss []VSInfo, migrationSpeedBPS float64) (Result, error) {
	vsByID := make(map[int]VSInfo, len(vss))
	for _, vs := range vss {
		vsByID[vs.ID] = vs
	}
	ceByCellNum := make(map[int]CEInfo, len(ces))
	for _, ce := range ces {
		ceByCellNum[ce.CellNum] = ce
	}

	available := func(vs VSInfo) bool {
		return vs.Serializable && (vs.Active || vs.Stored)
	}

	needsReplay := func(vsID int) bool {
		vs, ok := vsByID[vsID]
		if !ok {
			// Referenced by a CE but not in our VS universe: conservatively
			// assume it must come from replay (cannot migrate what we were
			// not told about).
			return true
		}
		return !available(vs)
	}

	// Seed the forced set from active VSs that cannot be migrated at all.
	forced := map[int]struct{}{}
	var seed []int
	for _, vs := range vss {
		if vs.Active && needsReplay(vs.ID) {
			seed = append(seed, vs.OutputCE)
		}
	}
	queue := append([]int(nil), seed...)
	for len(queue) > 0 {
		cellNum := queue[0]
		queue = queue[1:]
		if _, ok := forced[cellNum]; ok {
			continue
		}
		ce, ok := ceByCellNum[cellNum]
		if !ok {
			return Result{}, kishuerr.Wrapf(kishuerr.ErrOptimizerInfeasible, "cell %d not found in history\n%s", cellNum, kishuerr.DumpContext(vss))
		}
		forced[cellNum] = struct{}{}
		for _, srcID := range ce.SrcVSs {
			if needsReplay(srcID) {
				if vs, ok := vsByID[srcID]; ok {
					queue = append(queue, vs.OutputCE)
				}
			}
		}
	}

	// Index nodes: one per CE that appears anywhere (so precedence edges
	// always land on a valid node).
	cellNums := make([]int, 0, len(ces))
	for _, ce := range ces {
		cellNums = append(cellNums, ce.CellNum)
	}
	sort.Ints(cellNums)
	nodeOf := make(map[int]int, len(cellNums))
	for i, cn := range cellNums {
		nodeOf[cn] = i + 2 // 0 = source, 1 = sink
	}
	const source, sink = 0, 1
	g := newFlowGraph(len(cellNums) + 2)

	weight := make(map[int]float64, len(cellNums))
	for _, ce := range ces {
		w := -ce.RuntimeSeconds
		for _, dstID := range ce.DstVSs {
			vs, ok := vsByID[dstID]
			if !ok || !vs.Active || !vs.Serializable {
				continue
			}
			w += migrateCost(vs.SizeBytes, migrationSpeedBPS)
		}
		weight[ce.CellNum] = w
	}

	for _, ce := range ces {
		w := weight[ce.CellNum]
		if _, isForced := forced[ce.CellNum]; isForced {
			w += forceBonus
		}
		n := nodeOf[ce.CellNum]
		switch {
		case w > 0:
			g.addEdge(source, n, int64(w*costUnit))
		case w < 0:
			g.addEdge(n, sink, int64(-w*costUnit))
		}
		for _, srcID := range ce.SrcVSs {
			vs, ok := vsByID[srcID]
			if ok && available(vs) {
				continue
			}
			if vs2, ok2 := vsByID[srcID]; ok2 {
				if target, ok3 := nodeOf[vs2.OutputCE]; ok3 {
					g.addEdge(n, target, flowInf)
				}
			}
		}
	}

	g.maxFlow(source, sink)
	sourceSide := g.minCutSourceSide(source)

	recompute := roaring.New()
	for cn, n := range nodeOf {
		if _, ok := sourceSide[n]; ok {
			recompute.Add(uint32(cn))
		}
	}
	for cn := range forced {
		recompute.Add(uint32(cn))
	}

	var migrate, loadable []int
	for _, vs := range vss {
		if !vs.Active {
			continue
		}
		if recompute.Contains(uint32(vs.OutputCE)) {
			continue
		}
		loadable = append(loadable, vs.ID)
		if vs.Stored {
			continue
		}
		migrate = append(migrate, vs.ID)
	}
	sort.Ints(migrate)
	sort.Ints(loadable)

	reqFuncMapping := map[int][]int{}
	it := recompute.Iterator()
	for it.HasNext() {
		cn := int(it.Next())
		reqFuncMapping[cn] = prerequisiteClosure(cn, ceByCellNum, vsByID, available)
	}

	return Result{
		VSsToMigrate:       migrate,
		CEsToRecompute:     recompute,
		ReqFuncMapping:     reqFuncMapping,
		VSsAvailableToLoad: loadable,
	}, nil
}

func migrateCost(sizeBytes uint64, migrationSpeedBPS float64) float64 {
	if migrationSpeedBPS <= 0 {
		return 0
	}
	return float64(sizeBytes) / migrationSpeedBPS
}

// prerequisiteClosure returns, for a CE chosen for recompute, every other
// CE that must run first to satisfy its (and its transitive dependencies')
// src_vss, in ascending cell_num order.
func prerequisiteClosure(cellNum int, ceByCellNum map[int]CEInfo, vsByID map[int]VSInfo, available func(VSInfo) bool) []int {
	visited := map[int]struct{}{cellNum: {}}
	var out []int
	queue := []int{cellNum}
	for len(queue) > 0 {
		cn := queue[0]
		queue = queue[1:]
		ce, ok := ceByCellNum[cn]
		if !ok {
			continue
		}
		for _, srcID := range ce.SrcVSs {
			vs, ok := vsByID[srcID]
			if ok && available(vs) {
				continue
			}
			if !ok {
				continue
			}
			if _, seen := visited[vs.OutputCE]; seen {
				continue
			}
			visited[vs.OutputCE] = struct{}{}
			out = append(out, vs.OutputCE)
			queue = append(queue, vs.OutputCE)
		}
	}
	sort.Ints(out)
	return out
}

// VSsFromAHG projects every VS in the AHG's history (each marked Active or
// not) plus precomputed serializability/size results into the VSInfo slice
// Solve expects.
func VSsFromAHG(g *ahg.AHG, serializable map[int]bool, stored map[int]bool) []VSInfo {
	active := g.GetActiveVariableSnapshots()
	activeSet := make(map[int]struct{}, len(active))
	for _, vs := range active {
		activeSet[vs.ID] = struct{}{}
	}
	var out []VSInfo
	for _, ce := range g.GetCellExecutions() {
		for _, vsID := range ce.DstVSs {
			vs := g.VS(vsID)
			_, isActive := activeSet[vsID]
			out = append(out, VSInfo{
				ID:           vs.ID,
				OutputCE:     vs.OutputCE,
				Active:       isActive,
				Serializable: serializable[vs.ID],
				SizeBytes:    vs.Size,
				Stored:       stored[vs.ID],
			})
		}
	}
	return out
}

// CEsFromAHG projects an AHG's full CE history into the CEInfo slice Solve
// expects.
func CEsFromAHG(g *ahg.AHG) []CEInfo {
	ces := g.GetCellExecutions()
	out := make([]CEInfo, len(ces))
	for i, ce := range ces {
		out[i] = CEInfo{CellNum: ce.CellNum, RuntimeSeconds: ce.RuntimeSeconds, SrcVSs: ce.SrcVSs, DstVSs: ce.DstVSs}
	}
	return out
}
