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

// Package kishuerr defines the error kinds catalogued in the planner's
// error handling design: one sentinel per kind, wrapped with
// github.com/pkg/errors at the point of failure so the sentinel still
// matches through errors.Is after wrapping.
package kishuerr

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownVariable: Planner asked to fingerprint a missing name.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrFingerprintFailure: the IdGraph builder refused a value. The
	// Opaque dispatch arm is total, so this should not happen; when it
	// does, the value is treated as unserializable and recompute is forced.
	ErrFingerprintFailure = errors.New("fingerprint failure")

	// ErrOptimizerInfeasible: no restorable partition exists.
	ErrOptimizerInfeasible = errors.New("optimizer: no feasible restore partition")

	// ErrStoreUnavailable: get_stored_versioned_names (or persist) failed.
	ErrStoreUnavailable = errors.New("value store unavailable")

	// ErrAHGDeserialization: replace_state was given a corrupt string.
	ErrAHGDeserialization = errors.New("ahg deserialization error")
)

// Wrapf wraps err (normally one of the sentinels above) with a formatted
// message, preserving errors.Is/As compatibility with the sentinel.
func Wrapf(err error, format string, args ...any) error {
	return errors.WithMessage(err, fmt.Sprintf(format, args...))
}

// DumpContext renders v with spew for inclusion in a wrapped error's
// message, used when a FingerprintFailure or OptimizerInfeasible needs to
// carry enough of the offending value/plan to diagnose without a debugger.
func DumpContext(v any) string {
	return spew.Sdump(v)
}
