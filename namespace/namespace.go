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

// Package namespace defines the external Namespace collaborator:
// the live variable bindings of the interpreter the Planner observes. The
// core never executes user code; it only reads this interface between
// executions.
package namespace

// Namespace is consumed by the Planner; not implemented by it. The kernel
// host supplies a concrete Namespace backed by its actual interpreter
// globals dict (or equivalent).
type Namespace interface {
	Keyset() map[string]struct{}
	Contains(name string) bool
	Get(name string) (any, bool)
	AccessedVars() map[string]struct{}
	ResetAccessedVars()
}

// Map is an in-memory reference Namespace implementation, used by tests and
// by any embedding that keeps its variables in a plain Go map rather than a
// live interpreter.
type Map struct {
	vars     map[string]any
	accessed map[string]struct{}
}

// NewMap returns an empty Map namespace.
func NewMap() *Map {
	return &Map{vars: map[string]any{}, accessed: map[string]struct{}{}}
}

// Set binds name to value, as if the kernel had just executed an assignment.
func (m *Map) Set(name string, value any) {
	m.vars[name] = value
}

// Delete unbinds name, as if the kernel had just executed a del statement.
func (m *Map) Delete(name string) {
	delete(m.vars, name)
}

// MarkAccessed records that name was read during the current cell, the way
// the real notebook instrumentation would.
func (m *Map) MarkAccessed(name string) {
	m.accessed[name] = struct{}{}
}

func (m *Map) Keyset() map[string]struct{} {
	out := make(map[string]struct{}, len(m.vars))
	for k := range m.vars {
		out[k] = struct{}{}
	}
	return out
}

func (m *Map) Contains(name string) bool {
	_, ok := m.vars[name]
	return ok
}

func (m *Map) Get(name string) (any, bool) {
	v, ok := m.vars[name]
	return v, ok
}

func (m *Map) AccessedVars() map[string]struct{} {
	out := make(map[string]struct{}, len(m.accessed))
	for k := range m.accessed {
		out[k] = struct{}{}
	}
	return out
}

func (m *Map) ResetAccessedVars() {
	m.accessed = map[string]struct{}{}
}
