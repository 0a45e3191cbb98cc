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

// Package config holds the Planner's explicit configuration surface.
// Loading it from a file, flag set, or environment is an external
// collaborator's job, not the core's.
package config

// DefaultMigrationSpeedBPS is a finite but large throughput: large enough
// that any serializable VS is preferred for migration over replaying a
// cell -- recompute only happens when forced. 1 GiB/s is a conservative
// stand-in for a local disk or fast network store.
const DefaultMigrationSpeedBPS = 1 << 30

// Optimizer holds the Optimizer's tunables.
type Optimizer struct {
	// MigrationSpeedBPS converts a VS's estimated byte size into a
	// replay-equivalent cost.
	MigrationSpeedBPS float64
}

// PlannerConfig is passed once at planner.New and never read from a
// process-wide global (Design Notes "Global configuration").
type PlannerConfig struct {
	// IncrementalStore enables skipping VSs already persisted under an
	// ancestor commit.
	IncrementalStore bool

	// IncrementalLoad is reserved for a future restore-side optimization; it
	// is wired through to this struct but never branched on anywhere in the
	// core.
	IncrementalLoad bool

	Optimizer Optimizer
}

// Default returns the documented planner defaults: incremental_store=false,
// incremental_load=false, a large finite migration speed.
func Default() PlannerConfig {
	return PlannerConfig{
		IncrementalStore: false,
		IncrementalLoad:  false,
		Optimizer:        Optimizer{MigrationSpeedBPS: DefaultMigrationSpeedBPS},
	}
}
