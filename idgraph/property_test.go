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

	"pgregory.net/rapid"

	"github.com/kishu-project/kishu/idgraph"
)

// TestProperty_StructuralImpliesValue exercises the required implication
// structural_equal(a, b) => value_equal(a, b) across randomly generated
// nested namespaces.
func TestProperty_StructuralImpliesValue(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := genValue(rt, 0)
		b := idgraph.NewBuilder(true)

		a, err := b.Build(v)
		if err != nil {
			rt.Fatal(err)
		}
		c, err := b.Build(v)
		if err != nil {
			rt.Fatal(err)
		}

		if idgraph.StructuralEqual(a, c) && !idgraph.ValueEqual(a, c) {
			rt.Fatalf("structural_equal held but value_equal did not for %#v", v)
		}
	})
}

// TestProperty_BuildIsReflexive checks that fingerprinting the same live
// value twice always yields a structurally equal graph -- the baseline
// reflexivity any equivalence relation must satisfy.
func TestProperty_BuildIsReflexive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := genValue(rt, 0)
		b := idgraph.NewBuilder(true)

		a, err := b.Build(v)
		if err != nil {
			rt.Fatal(err)
		}
		c, err := b.Build(v)
		if err != nil {
			rt.Fatal(err)
		}
		if !idgraph.StructuralEqual(a, c) {
			rt.Fatalf("Build not reflexive for %#v", v)
		}
	})
}

func genValue(rt *rapid.T, depth int) any {
	if depth > 3 {
		return rapid.Int().Draw(rt, "leaf")
	}
	kind := rapid.IntRange(0, 3).Draw(rt, "kind")
	switch kind {
	case 0:
		return rapid.Int().Draw(rt, "int")
	case 1:
		return rapid.String().Draw(rt, "string")
	case 2:
		n := rapid.IntRange(0, 4).Draw(rt, "len")
		out := make([]any, n)
		for i := range out {
			out[i] = genValue(rt, depth+1)
		}
		return out
	default:
		return rapid.Float64().Draw(rt, "float")
	}
}
