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

package scenario

import (
	"encoding/json"
	"fmt"
)

// intSlice wraps an []int in a struct with one exported field, held by
// pointer, so the IdGraph builder walks Elems as an ordered collection (not
// CatOpaque) while Append keeps the root pointer's identity -- fixtures
// mutate it via append to exercise scenario S3's "in-place mutation
// requires access" path.
type intSlice struct {
	Elems []int
}

func (s *intSlice) Append(v int) { s.Elems = append(s.Elems, v) }

// newValue decodes a Bind's Kind/Value into a live Go value, the fixture
// format's small, closed vocabulary of bindable shapes.
func newValue(kind string, raw json.RawMessage) (any, error) {
	switch kind {
	case "int":
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "string":
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "float":
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "int_slice":
		var v []int
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
		}
		return &intSlice{Elems: v}, nil
	case "callable":
		// Opaque, unserializable stand-in for a Python lambda (scenario S5).
		return func(x int) int { return x }, nil
	default:
		return nil, fmt.Errorf("scenario: unknown bind kind %q", kind)
	}
}

func applyMutate(current any, m Mutate) error {
	switch m.Op {
	case "append_int":
		s, ok := current.(*intSlice)
		if !ok {
			return fmt.Errorf("scenario: append_int on non-int_slice %q", m.Name)
		}
		var v int
		if err := json.Unmarshal(m.Value, &v); err != nil {
			return err
		}
		s.Append(v)
		return nil
	default:
		return fmt.Errorf("scenario: unknown mutate op %q", m.Op)
	}
}
