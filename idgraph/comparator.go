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

package idgraph

// StructuralEqual reports whether a and b are identical fingerprints,
// including identity tokens and back-edge depths. Two separate Build() calls over the very same live
// object produce StructuralEqual graphs; two Build() calls over
// independently-constructed-but-isomorphic objects normally do not, because
// their pointer identities differ.
func StructuralEqual(a, b *Node) bool {
	return structEq(a, b)
}

func structEq(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Category != b.Category || a.TypeTag != b.TypeTag {
		return false
	}
	if a.Category == CatBackEdge {
		return a.HasIdentity == b.HasIdentity && a.Identity == b.Identity && a.RelDepth == b.RelDepth
	}
	if a.HasIdentity != b.HasIdentity {
		return false
	}
	if a.HasIdentity && a.Identity != b.Identity {
		return false
	}
	if a.Category == CatPrimitive {
		if a.Digest != b.Digest {
			return false
		}
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !structEq(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// ValueEqual reports whether a and b carry the same value, ignoring object
// identity and back-edge depth. StructuralEqual
// implies ValueEqual, never the reverse: two freshly-deep-copied lists are
// ValueEqual but not StructuralEqual.
func ValueEqual(a, b *Node) bool {
	return valueEq(a, b)
}

func valueEq(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Category == CatBackEdge || b.Category == CatBackEdge {
		// A back-edge only asserts "this closes a cycle here"; the thing it
		// points at is compared wherever the non-cyclic traversal visits it
		// first, so two back-edges at the same category/type are
		// considered equal for value purposes regardless of relative depth.
		return a.Category == b.Category && a.TypeTag == b.TypeTag
	}
	if a.Category != b.Category || a.TypeTag != b.TypeTag {
		return false
	}
	if a.Category == CatPrimitive {
		return a.Digest == b.Digest
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !valueEq(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Overlap reports whether a and b reach any common identity token, i.e.
// whether the two live values share mutable memory. This
// is independent of both StructuralEqual and ValueEqual: two variables can
// overlap without being equal (e.g. a is a sub-list of b), and can be equal
// without overlapping (e.g. two copies of the same list).
func Overlap(a, b *Node) bool {
	ids := map[uintptr]struct{}{}
	a.WalkIdentities(ids)
	if len(ids) == 0 {
		return false
	}
	shared := false
	b.walkIdentitiesUntil(func(id uintptr) bool {
		if _, ok := ids[id]; ok {
			shared = true
			return true
		}
		return false
	})
	return shared
}

// walkIdentitiesUntil visits HasIdentity tokens depth-first, stopping early
// once fn returns true. Kept unexported: Overlap is the only caller, and
// exposing early-exit walking publicly would invite callers to reimplement
// Overlap's identity-set semantics slightly differently each time.
func (n *Node) walkIdentitiesUntil(fn func(uintptr) bool) bool {
	if n == nil {
		return false
	}
	if n.HasIdentity && fn(n.Identity) {
		return true
	}
	for _, c := range n.Children {
		if c.walkIdentitiesUntil(fn) {
			return true
		}
	}
	return false
}
