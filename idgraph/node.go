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

// Package idgraph builds canonical, cycle-safe fingerprint graphs ("IdGraphs")
// over arbitrary live values pulled from an interpreter namespace, and
// compares pairs of such graphs for structural equality, value equality and
// memory overlap.
package idgraph

// Category tags the dispatch arm that produced a Node.
type Category int

const (
	CatPrimitive Category = iota
	CatOrdered
	CatSet
	CatMap
	CatBytes
	CatType
	CatCallable
	CatReducer
	CatOpaque
	CatBackEdge
)

func (c Category) String() string {
	switch c {
	case CatPrimitive:
		return "primitive"
	case CatOrdered:
		return "ordered"
	case CatSet:
		return "set"
	case CatMap:
		return "map"
	case CatBytes:
		return "bytes"
	case CatType:
		return "type"
	case CatCallable:
		return "callable"
	case CatReducer:
		return "reducer"
	case CatOpaque:
		return "opaque"
	case CatBackEdge:
		return "backedge"
	default:
		return "unknown"
	}
}

// Node is one fingerprint-graph node. A fingerprint
// is the root Node returned by Builder.Build.
//
// Children is ordered: for CatOrdered it is positional; for CatSet and
// CatMap it has already been canonically sorted by child digest so two
// structurally identical unordered collections always produce the same
// Children order regardless of iteration order at build time.
type Node struct {
	Category Category
	TypeTag  string

	// HasIdentity is true when the live value's reflect.Kind carries a
	// stable in-process identity (pointer, map, chan, func, slice-backing
	// array). Primitive values and plain struct/array values copied by
	// value never have one.
	HasIdentity bool
	Identity    uintptr

	// RelDepth, valid only on CatBackEdge nodes, is the number of Build
	// frames between this back-edge and the ancestor it closes a cycle
	// to. It is identity-independent, so two isomorphic-but-distinct
	// cyclic structures can still be judged value_equal.
	RelDepth int

	// Digest is a content digest folding in Category, TypeTag, leaf
	// content (or recursively, children digests), and -- only when the
	// Node was built with identity inclusion enabled -- Identity/RelDepth.
	// Two Nodes with equal Digest, Category and TypeTag are considered
	// equal by the comparator; this is the opaque digest used as the
	// fingerprint content for types that cannot be introspected further.
	Digest uint64

	// Literal holds the primitive's own value for CatPrimitive nodes, so
	// exact equality can be reported in diagnostics without recomputing
	// a digest collision check.
	Literal any

	Children []*Node
}

// WalkIdentities returns the set of non-zero, HasIdentity-true identity
// tokens reachable from n, used by the comparator's Overlap relation and by
// the Planner to split the namespace into co-variable groups.
func (n *Node) WalkIdentities(into map[uintptr]struct{}) {
	if n == nil {
		return
	}
	if n.HasIdentity {
		into[n.Identity] = struct{}{}
	}
	for _, c := range n.Children {
		c.WalkIdentities(into)
	}
}
