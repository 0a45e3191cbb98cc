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

package sizeprofiler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kishu-project/kishu/idgraph"
	"github.com/kishu-project/kishu/sizeprofiler"
)

func build(t *testing.T, v any) *idgraph.Node {
	t.Helper()
	n, err := idgraph.NewBuilder(true).Build(v)
	require.NoError(t, err)
	return n
}

func TestEstimate_MonotoneUnderAppend(t *testing.T) {
	est := sizeprofiler.New()
	small := build(t, []int{1, 2, 3})
	large := build(t, []int{1, 2, 3, 4, 5})

	require.GreaterOrEqual(t, est.Estimate(large), est.Estimate(small))
}

func TestEstimate_StableAcrossCalls(t *testing.T) {
	est := sizeprofiler.New()
	n := build(t, map[string]int{"a": 1, "b": 2})

	first := est.Estimate(n)
	second := est.Estimate(n)
	require.Equal(t, first, second)
}

func TestEstimate_SharedSubtreeCountedOnce(t *testing.T) {
	est := sizeprofiler.New()
	shared := []int{1, 2, 3, 4, 5, 6, 7, 8}
	group := struct{ A, B []int }{A: shared, B: shared}

	whole := build(t, group)
	single := build(t, shared)

	withDedup := est.Estimate(whole)
	withoutDedup := est.Estimate(single) * 2
	require.Less(t, withDedup, withoutDedup)
}

func TestEstimate_OpaqueLeafIsFixedCost(t *testing.T) {
	est := sizeprofiler.New()
	ch1 := build(t, make(chan int))
	ch2 := build(t, make(chan int, 10))

	require.Equal(t, est.Estimate(ch1), est.Estimate(ch2))
}

func TestEstimateConcurrent_MatchesSerial(t *testing.T) {
	est := sizeprofiler.New()
	nodes := []*idgraph.Node{build(t, 1), build(t, "hello"), build(t, []int{1, 2, 3})}

	serial := est.Estimate(nodes...)
	concurrent, err := est.EstimateConcurrent(context.Background(), nodes)
	require.NoError(t, err)
	require.Equal(t, serial, concurrent)
}
