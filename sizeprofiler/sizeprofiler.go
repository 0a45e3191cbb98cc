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

// Package sizeprofiler estimates the serialized byte cost of a co-migration
// group of live values. The estimate is monotone and stable but
// not accurate: it only needs to rank candidate partitions for the
// Optimizer, never to predict an exact wire size.
package sizeprofiler

import (
	"context"
	"reflect"

	"golang.org/x/sync/errgroup"

	"github.com/kishu-project/kishu/idgraph"
	"github.com/kishu-project/kishu/mathutil"
)

// OpaqueFallbackBytes is charged for every CatOpaque leaf: such a value
// cannot be measured through reflection, but the estimator must still be
// monotone, so one opaque value always costs exactly this many bytes.
const OpaqueFallbackBytes uint64 = 64

// perElementOverhead approximates the bookkeeping a serializer spends per
// contained element (a length-prefix, a type tag, a map/set entry header),
// independent of the element's own size.
const perElementOverhead uint64 = 8

// Estimator estimates serialized byte size from already-built IdGraph
// fingerprints, so the walk the Builder already did is reused instead of
// re-traversing live values.
type Estimator struct{}

// New returns the default Estimator.
func New() *Estimator { return &Estimator{} }

// Estimate returns a monotone, stable upper-bound byte estimate for the
// union of the given fingerprints, counting each distinct identity once --
// a co-migration group is exactly the case where two fingerprints passed
// in the same call share a subtree, and that subtree's bytes must not be
// double-counted.
func (e *Estimator) Estimate(nodes ...*idgraph.Node) uint64 {
	seen := map[uintptr]struct{}{}
	var total uint64
	for _, n := range nodes {
		total = mathutil.SaturatingAdd(total, e.walk(n, seen))
	}
	return total
}

// EstimateConcurrent estimates each node's contribution in parallel and
// sums the results, for use when a co-migration group is large enough that
// fanning out per-variable is worth the goroutine overhead. Identity dedup only applies within a single
// node's own subtree, not across nodes, since sharing the seen-set across
// goroutines would require synchronization that defeats the parallelism.
func (e *Estimator) EstimateConcurrent(ctx context.Context, nodes []*idgraph.Node) (uint64, error) {
	sizes := make([]uint64, len(nodes))
	g, _ := errgroup.WithContext(ctx)
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			sizes[i] = e.walk(n, map[uintptr]struct{}{})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	var total uint64
	for _, s := range sizes {
		total = mathutil.SaturatingAdd(total, s)
	}
	return total, nil
}

func (e *Estimator) walk(n *idgraph.Node, seen map[uintptr]struct{}) uint64 {
	if n == nil {
		return 0
	}
	if n.HasIdentity {
		if _, ok := seen[n.Identity]; ok {
			return 0
		}
		seen[n.Identity] = struct{}{}
	}

	switch n.Category {
	case idgraph.CatPrimitive:
		return primitiveBytes(n.Literal)
	case idgraph.CatBytes:
		if s, ok := n.Literal.(string); ok {
			return uint64(len(s))
		}
		return e.childrenBytes(n, seen)
	case idgraph.CatOpaque:
		return OpaqueFallbackBytes
	case idgraph.CatCallable, idgraph.CatType, idgraph.CatBackEdge:
		return perElementOverhead
	default:
		return e.childrenBytes(n, seen)
	}
}

func (e *Estimator) childrenBytes(n *idgraph.Node, seen map[uintptr]struct{}) uint64 {
	total := perElementOverhead
	for _, c := range n.Children {
		total = mathutil.SaturatingAdd(total, mathutil.SaturatingAdd(e.walk(c, seen), perElementOverhead))
	}
	return total
}

func primitiveBytes(v any) uint64 {
	if v == nil {
		return 8
	}
	if s, ok := v.(string); ok {
		return uint64(len(s))
	}
	return uint64(reflect.TypeOf(v).Size())
}
