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

// Package ahg implements the Application History Graph: the versioned
// bipartite graph of cell executions (CE) and variable snapshots (VS) that
// links code-block executions to the variable state they produced and
// consumed. The graph is append-only; nothing is ever removed from either
// arena, only superseded in the active map.
package ahg

import (
	"sort"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/emicklei/dot"

	"github.com/kishu-project/kishu/kishulog"
	"go.uber.org/zap"
)

// VariableName is an interned string identifying a namespace binding.
type VariableName = string

// VersionedName is the pair (frozen set of variable names, version): the
// co-variable group that must be restored together.
type VersionedName struct {
	Names   []VariableName
	Version int64
}

// Key returns a canonical, comparable projection of a VersionedName,
// suitable for use as a Go map key (VersionedName itself holds a slice and
// so is not comparable). Names are sorted so the key is independent of
// construction order.
func (vn VersionedName) Key() string {
	sorted := append([]VariableName(nil), vn.Names...)
	sort.Strings(sorted)
	s := strconv.FormatInt(vn.Version, 10) + "|"
	for _, n := range sorted {
		s += n + ","
	}
	return s
}

// VariableSnapshot is one VS entry in the AHG. Immutable after creation
// except Size, which is filled lazily by the size profiler.
type VariableSnapshot struct {
	ID       int
	Names    []VariableName
	Version  int64
	Size     uint64
	SizeKnown bool
	OutputCE int
	Deleted  bool

	// prevVS chains VSs for the same name backwards in time, so
	// VariableSnapshotAsOf can walk newest-first without scanning the
	// whole history. -1 means "no earlier VS".
	prevVS int
}

// CellExecution is one CE entry in the AHG: a record of one executed code
// block, its runtime, and the VSs it read and produced. Immutable once
// recorded.
type CellExecution struct {
	CellNum        int
	Code           string
	RuntimeSeconds float64
	SrcVSs         []int
	DstVSs         []int
}

// AHG is the ordered list of CEs plus the active-name -> VS map. CE and VS
// reference each other by dense integer id into two parallel arenas, never
// by raw pointer.
type AHG struct {
	ces []CellExecution
	vss []VariableSnapshot

	// active maps each currently-bound VariableName to the id of its
	// latest VS.
	active map[VariableName]int

	// lastVSForName remembers the most recent VS id touching a name, even
	// if that VS is no longer active (its group changed), used to build
	// prevVS chains in VariableSnapshotAsOf.
	lastVSForName map[VariableName]int

	logger *zap.Logger
}

// New returns an empty AHG.
func New() *AHG {
	return &AHG{
		active:        map[VariableName]int{},
		lastVSForName: map[VariableName]int{},
		logger:        kishulog.L(),
	}
}

// FromExisting bootstraps an AHG whose sole CE has CellNum=0, an empty code
// body, and one active VS per existing variable, each its own group.
func FromExisting(names []VariableName, version int64) *AHG {
	g := New()
	ce := CellExecution{CellNum: 0, Code: ""}
	for _, n := range names {
		vs := g.newVS([]VariableName{n}, version, len(g.ces))
		ce.DstVSs = append(ce.DstVSs, vs.ID)
		g.active[n] = vs.ID
		g.lastVSForName[n] = vs.ID
	}
	g.ces = append(g.ces, ce)
	return g
}

func (g *AHG) newVS(names []VariableName, version int64, outputCE int) *VariableSnapshot {
	id := len(g.vss)
	prev := -1
	if len(names) > 0 {
		if p, ok := g.lastVSForName[names[0]]; ok {
			prev = p
		}
	}
	g.vss = append(g.vss, VariableSnapshot{
		ID:       id,
		Names:    append([]VariableName(nil), names...),
		Version:  version,
		OutputCE: outputCE,
		prevVS:   prev,
	})
	return &g.vss[id]
}

// UpdateGraph records one cell execution.
//
//   - code, version, runtimeSeconds describe the executed cell.
//   - accessed: names read during execution.
//   - currentNames: the full current namespace keyset.
//   - linkedPairs: pairs of names whose live values currently overlap
//     (aliasing), used to recompute co-variable groups via union-find.
//   - modified, deleted: names classified by the Planner's diff.
func (g *AHG) UpdateGraph(
	code string,
	version int64,
	runtimeSeconds float64,
	accessed map[VariableName]struct{},
	currentNames map[VariableName]struct{},
	linkedPairs [][2]VariableName,
	modified map[VariableName]struct{},
	deleted map[VariableName]struct{},
) *CellExecution {
	cellNum := len(g.ces)
	ce := CellExecution{CellNum: cellNum, Code: code, RuntimeSeconds: runtimeSeconds}

	groups := unionFindGroups(currentNames, linkedPairs)

	prevActiveVS := func(n VariableName) (int, bool) {
		id, ok := g.active[n]
		return id, ok
	}

	groupChanged := func(names []VariableName) bool {
		var refID = -1
		for i, n := range names {
			id, ok := prevActiveVS(n)
			if !ok {
				return true
			}
			if i == 0 {
				refID = id
				continue
			}
			if id != refID {
				return true
			}
		}
		if refID == -1 {
			return true
		}
		prevNames := g.vss[refID].Names
		if len(prevNames) != len(names) {
			return true
		}
		seen := map[VariableName]struct{}{}
		for _, n := range prevNames {
			seen[n] = struct{}{}
		}
		for _, n := range names {
			if _, ok := seen[n]; !ok {
				return true
			}
		}
		return false
	}

	isModifiedGroup := func(names []VariableName) bool {
		for _, n := range names {
			if _, ok := modified[n]; ok {
				return true
			}
		}
		return false
	}

	// Record the VSs read before this cell's own outputs replace them in the
	// active map.
	readNames := unionSets(accessed, modified)
	srcSeen := map[int]struct{}{}
	for n := range readNames {
		if id, ok := g.active[n]; ok {
			if _, dup := srcSeen[id]; !dup {
				ce.SrcVSs = append(ce.SrcVSs, id)
				srcSeen[id] = struct{}{}
			}
		}
	}
	sort.Ints(ce.SrcVSs)

	for _, names := range groups {
		sort.Strings(names)
		if !isModifiedGroup(names) && !groupChanged(names) {
			continue
		}
		vs := g.newVS(names, version, cellNum)
		ce.DstVSs = append(ce.DstVSs, vs.ID)
		for _, n := range names {
			g.active[n] = vs.ID
			g.lastVSForName[n] = vs.ID
		}
	}

	delNames := make([]VariableName, 0, len(deleted))
	for n := range deleted {
		delNames = append(delNames, n)
	}
	sort.Strings(delNames)
	for _, n := range delNames {
		vs := g.newVS([]VariableName{n}, version, cellNum)
		vs.Deleted = true
		ce.DstVSs = append(ce.DstVSs, vs.ID)
		delete(g.active, n)
		g.lastVSForName[n] = vs.ID
	}

	sort.Ints(ce.DstVSs)
	g.ces = append(g.ces, ce)

	g.logger.Info("ahg: cell recorded",
		zap.Int("cell_num", cellNum),
		zap.Int("dst_vss", len(ce.DstVSs)),
		zap.Int("src_vss", len(ce.SrcVSs)),
	)
	return &g.ces[cellNum]
}

func unionSets(a, b map[VariableName]struct{}) map[VariableName]struct{} {
	out := make(map[VariableName]struct{}, len(a)+len(b))
	for n := range a {
		out[n] = struct{}{}
	}
	for n := range b {
		out[n] = struct{}{}
	}
	return out
}

// unionFindGroups partitions currentNames into co-variable groups by
// transitive closure over linkedPairs.
func unionFindGroups(currentNames map[VariableName]struct{}, linkedPairs [][2]VariableName) [][]VariableName {
	parent := map[VariableName]VariableName{}
	var find func(VariableName) VariableName
	find = func(x VariableName) VariableName {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b VariableName) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for n := range currentNames {
		parent[n] = n
	}
	for _, pair := range linkedPairs {
		a, b := pair[0], pair[1]
		if _, ok := currentNames[a]; !ok {
			continue
		}
		if _, ok := currentNames[b]; !ok {
			continue
		}
		union(a, b)
	}

	groupsByRoot := map[VariableName][]VariableName{}
	for n := range currentNames {
		r := find(n)
		groupsByRoot[r] = append(groupsByRoot[r], n)
	}
	out := make([][]VariableName, 0, len(groupsByRoot))
	for _, members := range groupsByRoot {
		out = append(out, members)
	}
	return out
}

// GetActiveVariableSnapshots returns the deduplicated set of currently
// active VSs.
func (g *AHG) GetActiveVariableSnapshots() []*VariableSnapshot {
	seen := map[int]struct{}{}
	out := make([]*VariableSnapshot, 0, len(g.active))
	for _, id := range g.active {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, &g.vss[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetActiveVariableSnapshotsDict returns the active map keyed by
// VariableName.
func (g *AHG) GetActiveVariableSnapshotsDict() map[VariableName]*VariableSnapshot {
	out := make(map[VariableName]*VariableSnapshot, len(g.active))
	for n, id := range g.active {
		out[n] = &g.vss[id]
	}
	return out
}

// GetCellExecutions returns the full ordered CE history.
func (g *AHG) GetCellExecutions() []*CellExecution {
	out := make([]*CellExecution, len(g.ces))
	for i := range g.ces {
		out[i] = &g.ces[i]
	}
	return out
}

// VariableSnapshotAsOf walks name's VS chain newest-first and returns the
// latest VS with Version <= version.
func (g *AHG) VariableSnapshotAsOf(name VariableName, version int64) (*VariableSnapshot, bool) {
	id, ok := g.lastVSForName[name]
	for ok {
		vs := &g.vss[id]
		if vs.Version <= version {
			return vs, true
		}
		id = vs.prevVS
		ok = id >= 0
	}
	return nil, false
}

// SetSize records the lazily-computed serialized size of a VS.
func (g *AHG) SetSize(vsID int, size uint64) {
	g.vss[vsID].Size = size
	g.vss[vsID].SizeKnown = true
}

// VS returns the VS with the given id.
func (g *AHG) VS(id int) *VariableSnapshot { return &g.vss[id] }

// CE returns the CE with the given cell number.
func (g *AHG) CE(cellNum int) *CellExecution { return &g.ces[cellNum] }

// NextCellNum returns the cell_num that would be assigned to the next CE
// (I-ORDER).
func (g *AHG) NextCellNum() int { return len(g.ces) }

// ActiveCellNums returns the RoaringBitmap of cell_nums that currently own
// at least one active VS.
func (g *AHG) ActiveCellNums() *roaring.Bitmap {
	bm := roaring.New()
	for _, id := range g.active {
		bm.Add(uint32(g.vss[id].OutputCE))
	}
	return bm
}

// ToDot renders the CE/VS bipartite graph for debugging planner decisions.
func (g *AHG) ToDot() *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	ceNodes := make(map[int]dot.Node, len(g.ces))
	vsNodes := make(map[int]dot.Node, len(g.vss))

	for _, ce := range g.ces {
		n := graph.Node(ceLabel(ce.CellNum)).Attr("shape", "box")
		ceNodes[ce.CellNum] = n
	}
	for _, vs := range g.vss {
		n := graph.Node(vsLabel(vs.ID)).Attr("shape", "ellipse")
		vsNodes[vs.ID] = n
	}
	for _, ce := range g.ces {
		for _, vsID := range ce.DstVSs {
			graph.Edge(ceNodes[ce.CellNum], vsNodes[vsID])
		}
		for _, vsID := range ce.SrcVSs {
			graph.Edge(vsNodes[vsID], ceNodes[ce.CellNum])
		}
	}
	return graph
}

func ceLabel(cellNum int) string { return "ce_" + strconv.Itoa(cellNum) }
func vsLabel(vsID int) string    { return "vs_" + strconv.Itoa(vsID) }
