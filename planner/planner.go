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

// Package planner orchestrates the per-cell diff/update cycle and the
// commit-time checkpoint/restore plan generation. It owns
// the AHG and the IdGraph fingerprint cache exclusively; nothing else in
// the core mutates them directly.
package planner

import (
	"context"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/kishu-project/kishu/ahg"
	"github.com/kishu-project/kishu/checkpoint"
	"github.com/kishu-project/kishu/config"
	"github.com/kishu-project/kishu/idgraph"
	"github.com/kishu-project/kishu/kishuerr"
	"github.com/kishu-project/kishu/kishulog"
	"github.com/kishu-project/kishu/namespace"
	"github.com/kishu-project/kishu/optimizer"
	"github.com/kishu-project/kishu/sizeprofiler"
	"github.com/kishu-project/kishu/store"
	"go.uber.org/zap"
)

// IdGraphMap is the side table from VariableName to the root IdGraphNode of
// its most recent fingerprint.
type IdGraphMap map[string]*idgraph.Node

// ChangedVariables is the Planner's per-cell diff report.
type ChangedVariables struct {
	Created          mapset.Set[string]
	ModifiedValue    mapset.Set[string]
	ModifiedStructure mapset.Set[string]
	Deleted          mapset.Set[string]
}

func emptyChanged() ChangedVariables {
	return ChangedVariables{
		Created:           mapset.NewThreadUnsafeSet[string](),
		ModifiedValue:     mapset.NewThreadUnsafeSet[string](),
		ModifiedStructure: mapset.NewThreadUnsafeSet[string](),
		Deleted:           mapset.NewThreadUnsafeSet[string](),
	}
}

// monotonicClock supplies strictly increasing nanosecond versions. Tests
// inject a deterministic clock; production uses wallNanoClock.
type monotonicClock interface {
	NextVersion() int64
}

type wallNanoClock struct{ last int64 }

func (c *wallNanoClock) NextVersion() int64 {
	n := time.Now().UnixNano()
	if n <= c.last {
		n = c.last + 1
	}
	c.last = n
	return n
}

// Planner is the single-threaded, exclusively-owned orchestrator.
type Planner struct {
	ns  namespace.Namespace
	ahg *ahg.AHG
	cfg config.PlannerConfig

	idGraphMap    IdGraphMap
	preRunCellVars map[string]struct{}

	builder idgraph.Builder
	clock   monotonicClock
	logger  *zap.Logger
}

// New constructs a Planner bootstrapped from ns's current bindings, seeding
// the AHG with one active VS per already-bound variable.
func New(ns namespace.Namespace, cfg config.PlannerConfig) *Planner {
	names := make([]string, 0)
	for n := range ns.Keyset() {
		names = append(names, n)
	}
	sort.Strings(names)

	clock := &wallNanoClock{}
	g := ahg.FromExisting(names, clock.NextVersion())

	p := &Planner{
		ns:             ns,
		ahg:            g,
		cfg:            cfg,
		idGraphMap:     IdGraphMap{},
		preRunCellVars: map[string]struct{}{},
		builder:        idgraph.NewBuilder(true),
		clock:          clock,
		logger:         kishulog.L(),
	}
	for _, n := range names {
		if v, ok := ns.Get(n); ok {
			if node, err := p.builder.Build(v); err == nil {
				p.idGraphMap[n] = node
			}
		}
	}
	return p
}

// idGraphMapForTest exposes the internal fingerprint cache to this
// package's own test files only.
func (p *Planner) idGraphMapForTest() IdGraphMap { return p.idGraphMap }

// PreRunCellUpdate snapshots the namespace keyset and fingerprints any AHG
// variable still bound but missing from IdGraphMap.
func (p *Planner) PreRunCellUpdate() error {
	p.preRunCellVars = p.ns.Keyset()

	for name := range p.ahg.GetActiveVariableSnapshotsDict() {
		if _, ok := p.idGraphMap[name]; ok {
			continue
		}
		if !p.ns.Contains(name) {
			continue
		}
		v, _ := p.ns.Get(name)
		node, err := p.builder.Build(v)
		if err != nil {
			return kishuerr.Wrapf(kishuerr.ErrFingerprintFailure, "pre-run fingerprint of %q: %v\n%s", name, err, kishuerr.DumpContext(v))
		}
		p.idGraphMap[name] = node
	}
	return nil
}

// PostRunCellUpdate runs the per-cell diff and updates the AHG.
func (p *Planner) PostRunCellUpdate(code string, runtimeSeconds float64) (ChangedVariables, error) {
	version := p.clock.NextVersion()

	accessedRaw := p.ns.AccessedVars()
	p.ns.ResetAccessedVars()
	accessed := map[string]struct{}{}
	for n := range accessedRaw {
		if _, ok := p.preRunCellVars[n]; ok {
			accessed[n] = struct{}{}
		}
	}

	currentKeys := p.ns.Keyset()
	created := map[string]struct{}{}
	for n := range currentKeys {
		if _, ok := p.preRunCellVars[n]; !ok {
			created[n] = struct{}{}
		}
	}
	deleted := map[string]struct{}{}
	for n := range p.preRunCellVars {
		if _, ok := currentKeys[n]; !ok {
			deleted[n] = struct{}{}
		}
	}

	modifiedValue := map[string]struct{}{}
	modifiedStructure := map[string]struct{}{}

	for name, old := range p.idGraphMap {
		if _, gone := deleted[name]; gone {
			continue
		}
		if _, bound := currentKeys[name]; !bound {
			continue
		}
		v, _ := p.ns.Get(name)
		newNode, err := p.builder.Build(v)
		if err != nil {
			return ChangedVariables{}, kishuerr.Wrapf(kishuerr.ErrFingerprintFailure, "fingerprint of %q: %v\n%s", name, err, kishuerr.DumpContext(v))
		}

		if !idgraph.ValueEqual(old, newNode) {
			modifiedValue[name] = struct{}{}
		}
		if !idgraph.StructuralEqual(old, newNode) {
			if old.HasIdentity && newNode.HasIdentity && old.Identity == newNode.Identity && old.TypeTag == newNode.TypeTag {
				// In-place mutation: root identity and type preserved, so
				// the variable was implicitly read even if instrumentation
				// did not report it.
				accessed[name] = struct{}{}
			}
			p.idGraphMap[name] = newNode
			modifiedStructure[name] = struct{}{}
		}
	}

	for name := range created {
		v, _ := p.ns.Get(name)
		node, err := p.builder.Build(v)
		if err != nil {
			return ChangedVariables{}, kishuerr.Wrapf(kishuerr.ErrFingerprintFailure, "fingerprint of new %q: %v\n%s", name, err, kishuerr.DumpContext(v))
		}
		p.idGraphMap[name] = node
	}

	for name := range deleted {
		delete(p.idGraphMap, name)
	}

	linkedPairs := p.computeLinkedPairs(currentKeys)

	modified := unionKeys(modifiedValue, modifiedStructure)
	p.ahg.UpdateGraph(code, version, runtimeSeconds, accessed, currentKeys, linkedPairs, modified, deleted)

	changed := emptyChanged()
	for n := range created {
		changed.Created.Add(n)
	}
	for n := range modifiedValue {
		changed.ModifiedValue.Add(n)
	}
	for n := range modifiedStructure {
		changed.ModifiedStructure.Add(n)
	}
	for n := range deleted {
		changed.Deleted.Add(n)
	}

	p.logger.Info("planner: cell diff computed",
		zap.Int("created", changed.Created.Cardinality()),
		zap.Int("modified_value", changed.ModifiedValue.Cardinality()),
		zap.Int("modified_structure", changed.ModifiedStructure.Cardinality()),
		zap.Int("deleted", changed.Deleted.Cardinality()),
	)
	return changed, nil
}

func unionKeys(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

// computeLinkedPairs checks overlap over every unordered pair of currently
// bound names.
func (p *Planner) computeLinkedPairs(currentKeys map[string]struct{}) [][2]string {
	names := make([]string, 0, len(currentKeys))
	for n := range currentKeys {
		if _, ok := p.idGraphMap[n]; ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	var pairs [][2]string
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if idgraph.Overlap(p.idGraphMap[names[i]], p.idGraphMap[names[j]]) {
				pairs = append(pairs, [2]string{names[i], names[j]})
			}
		}
	}
	return pairs
}

// GenerateCheckpointRestorePlans profiles sizes, consults the store for
// already-present versions, invokes the Optimizer, and emits the
// CheckpointPlan and RestorePlan.
func (p *Planner) GenerateCheckpointRestorePlans(ctx context.Context, st store.Store, commitID string, parentCommitIDs []string) (checkpoint.CheckpointPlan, checkpoint.RestorePlan, error) {
	for name := range p.ahg.GetActiveVariableSnapshotsDict() {
		if _, ok := p.idGraphMap[name]; ok {
			continue
		}
		if !p.ns.Contains(name) {
			continue
		}
		v, _ := p.ns.Get(name)
		node, err := p.builder.Build(v)
		if err != nil {
			return checkpoint.CheckpointPlan{}, checkpoint.RestorePlan{}, kishuerr.Wrapf(kishuerr.ErrFingerprintFailure, "commit-time fingerprint of %q: %v\n%s", name, err, kishuerr.DumpContext(v))
		}
		p.idGraphMap[name] = node
	}

	est := sizeprofiler.New()
	serializable := map[int]bool{}
	for _, vs := range p.ahg.GetActiveVariableSnapshots() {
		nodes := make([]*idgraph.Node, 0, len(vs.Names))
		ok := true
		for _, n := range vs.Names {
			node, present := p.idGraphMap[n]
			if !present {
				ok = false
				continue
			}
			nodes = append(nodes, node)
			if !idgraph.IsSerializable(node) {
				ok = false
			}
		}
		serializable[vs.ID] = ok
		p.ahg.SetSize(vs.ID, est.Estimate(nodes...))
	}

	stored := map[int]bool{}
	var storedKeys map[string]ahg.VersionedName
	if p.cfg.IncrementalStore {
		var err error
		storedKeys, err = st.GetStoredVersionedNames(ctx, parentCommitIDs)
		if err != nil {
			p.logger.Warn("planner: store unavailable", zap.Error(err))
			return checkpoint.CheckpointPlan{}, checkpoint.RestorePlan{}, kishuerr.Wrapf(kishuerr.ErrStoreUnavailable, "%v", err)
		}
		for _, vs := range p.ahg.GetActiveVariableSnapshots() {
			vn := ahg.VersionedName{Names: vs.Names, Version: vs.Version}
			if _, ok := storedKeys[vn.Key()]; ok {
				stored[vs.ID] = true
			}
		}
	}

	vsInfos := optimizer.VSsFromAHG(p.ahg, serializable, stored)
	ceInfos := optimizer.CEsFromAHG(p.ahg)

	result, err := optimizer.Solve(ceInfos, vsInfos, p.cfg.Optimizer.MigrationSpeedBPS)
	if err != nil {
		p.logger.Warn("planner: optimizer infeasible", zap.Error(err))
		return checkpoint.CheckpointPlan{}, checkpoint.RestorePlan{}, err
	}

	ckpt := checkpoint.BuildCheckpointPlan(p.ahg, result.VSsToMigrate, p.cfg.IncrementalStore)
	restore := checkpoint.BuildRestorePlan(p.ahg, result)

	p.logger.Info("planner: plans emitted",
		zap.Int("migrate_groups", len(ckpt.Groups)),
		zap.Int("restore_actions", len(restore.Actions)),
		zap.Uint64("active_cells", p.ahg.ActiveCellNums().GetCardinality()),
	)
	return ckpt, restore, nil
}

// ReplaceState discards the current AHG and fingerprint cache, replacing
// them wholesale -- used on checkout to a different commit.
func (p *Planner) ReplaceState(newAHG string, ns namespace.Namespace) error {
	g, err := ahg.Deserialize(newAHG)
	if err != nil {
		return err
	}
	p.ahg = g
	p.ns = ns
	p.idGraphMap = IdGraphMap{}
	p.preRunCellVars = map[string]struct{}{}
	return nil
}

// AHG exposes the underlying graph for read-only inspection (log/status
// read paths).
func (p *Planner) AHG() *ahg.AHG { return p.ahg }
