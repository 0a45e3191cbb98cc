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

package scenario_test

import (
	"testing"

	"github.com/kishu-project/kishu/scenario"
)

func TestScenarios(t *testing.T) {
	fixtures := []string{
		"testdata/s1_primitive_lifecycle.json",
		"testdata/s2_aliasing.json",
		"testdata/s3_inplace_mutation.json",
		"testdata/s4_optimizer_prefers_migrate.json",
		"testdata/s5_unserializable_forces_recompute.json",
		"testdata/s6_incremental_store_skip.json",
	}
	for _, path := range fixtures {
		path := path
		t.Run(path, func(t *testing.T) {
			f := scenario.Load(t, path)
			scenario.Run(t, f)
		})
	}
}
