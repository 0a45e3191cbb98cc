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

package idgraph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kishu-project/kishu/idgraph"
)

type reducerPoint struct{ X, Y int }

func (p *reducerPoint) Reduce() (string, []any, any) {
	return "reducerPoint", []any{p.X, p.Y}, nil
}

type setOfInts []int

func (s setOfInts) Members() []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func TestBuild_PrimitivesStructurallyEqual(t *testing.T) {
	b := idgraph.NewBuilder(true)

	a, err := b.Build(42)
	require.NoError(t, err)
	c, err := b.Build(42)
	require.NoError(t, err)

	require.True(t, idgraph.StructuralEqual(a, c))
	require.True(t, idgraph.ValueEqual(a, c))
	require.False(t, idgraph.Overlap(a, c))
}

func TestBuild_SamePointerStructurallyEqualAndOverlaps(t *testing.T) {
	b := idgraph.NewBuilder(true)
	v := []int{1, 2, 3}

	a, err := b.Build(v)
	require.NoError(t, err)
	c, err := b.Build(v)
	require.NoError(t, err)

	require.True(t, idgraph.StructuralEqual(a, c))
	require.True(t, idgraph.ValueEqual(a, c))
	require.True(t, idgraph.Overlap(a, c))
}

func TestBuild_DeepCopyValueEqualButNotStructuralAndNoOverlap(t *testing.T) {
	b := idgraph.NewBuilder(true)
	v1 := []int{1, 2, 3}
	v2 := append([]int{}, v1...)

	a, err := b.Build(v1)
	require.NoError(t, err)
	c, err := b.Build(v2)
	require.NoError(t, err)

	require.True(t, idgraph.ValueEqual(a, c))
	require.False(t, idgraph.StructuralEqual(a, c))
	require.False(t, idgraph.Overlap(a, c))
}

func TestBuild_SharedSubsliceOverlapsWithoutBeingEqual(t *testing.T) {
	b := idgraph.NewBuilder(true)
	backing := []int{1, 2, 3, 4, 5}
	sub := backing[1:3]

	whole, err := b.Build(backing)
	require.NoError(t, err)
	part, err := b.Build(sub)
	require.NoError(t, err)

	require.False(t, idgraph.ValueEqual(whole, part))
	require.True(t, idgraph.Overlap(whole, part))
}

func TestBuild_MapCanonicalOrderingIndependentOfInsertionOrder(t *testing.T) {
	b := idgraph.NewBuilder(true)
	m1 := map[string]int{"a": 1, "b": 2, "c": 3}
	m2 := map[string]int{"c": 3, "a": 1, "b": 2}

	a, err := b.Build(m1)
	require.NoError(t, err)
	c, err := b.Build(m2)
	require.NoError(t, err)

	require.True(t, idgraph.ValueEqual(a, c))
}

func TestBuild_SetCanonicalOrderingIndependentOfMemberOrder(t *testing.T) {
	b := idgraph.NewBuilder(true)
	s1, err := b.Build(setOfInts{3, 1, 2})
	require.NoError(t, err)
	s2, err := b.Build(setOfInts{1, 2, 3})
	require.NoError(t, err)

	require.True(t, idgraph.ValueEqual(s1, s2))
}

func TestBuild_CyclicStructureTerminates(t *testing.T) {
	type node struct {
		Val  int
		Next *node
	}
	a := &node{Val: 1}
	a.Next = a

	b := idgraph.NewBuilder(true)
	n, err := b.Build(a)
	require.NoError(t, err)
	require.NotNil(t, n)
}

func TestBuild_IsomorphicDistinctCyclesValueEqual(t *testing.T) {
	type node struct {
		Val  int
		Next *node
	}
	a := &node{Val: 7}
	a.Next = a
	c := &node{Val: 7}
	c.Next = c

	b := idgraph.NewBuilder(true)
	na, err := b.Build(a)
	require.NoError(t, err)
	nc, err := b.Build(c)
	require.NoError(t, err)

	require.True(t, idgraph.ValueEqual(na, nc))
	require.False(t, idgraph.StructuralEqual(na, nc))
}

func TestBuild_ReducerDispatchesCustomObjects(t *testing.T) {
	b := idgraph.NewBuilder(true)
	p1, err := b.Build(&reducerPoint{X: 1, Y: 2})
	require.NoError(t, err)
	p2, err := b.Build(&reducerPoint{X: 1, Y: 2})
	require.NoError(t, err)

	require.True(t, idgraph.ValueEqual(p1, p2))
	require.False(t, idgraph.StructuralEqual(p1, p2))
}

func TestBuild_NilAndOpaqueFallbackNeverError(t *testing.T) {
	b := idgraph.NewBuilder(true)

	n, err := b.Build(nil)
	require.NoError(t, err)
	require.NotNil(t, n)

	ch := make(chan int)
	n2, err := b.Build(ch)
	require.NoError(t, err)
	require.Equal(t, idgraph.CatOpaque, n2.Category)
}

func TestBuild_UnexportedFieldsAreNotSilentlyDropped(t *testing.T) {
	type withUnexported struct {
		Exported   int
		unexported int
	}
	b := idgraph.NewBuilder(true)
	n, err := b.Build(withUnexported{Exported: 1, unexported: 2})
	require.NoError(t, err)
	require.Len(t, n.Children, 2)
}
