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

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/kishu-project/kishu/idgraph"
)

type fuzzNested struct {
	Name   string
	Values []float64
}

type fuzzPayload struct {
	Ints   []int
	Strs   map[string]string
	Nested *fuzzNested
	Flag   bool
}

// TestBuild_DispatchIsTotalOverFuzzedNamespaces drives the builder's
// dispatch switch with randomized heterogeneous values -- nil pointers,
// empty/absent maps and slices, varying string content -- to exercise the
// claim that the switch is total and Build never returns an error for a
// value reflect can observe.
func TestBuild_DispatchIsTotalOverFuzzedNamespaces(t *testing.T) {
	f := fuzz.New().NilChance(0.3).NumElements(0, 6)
	b := idgraph.NewBuilder(true)

	for i := 0; i < 64; i++ {
		var p fuzzPayload
		f.Fuzz(&p)

		node, err := b.Build(p)
		require.NoError(t, err)
		require.NotNil(t, node)

		again, err := b.Build(p)
		require.NoError(t, err)
		require.True(t, idgraph.ValueEqual(node, again), "re-fingerprinting an unmodified fuzzed value must be value-stable")
	}
}
