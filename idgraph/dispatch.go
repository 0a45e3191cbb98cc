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

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

var (
	setType    = reflect.TypeOf((*Set)(nil)).Elem()
	reducerT   = reflect.TypeOf((*Reducer)(nil)).Elem()
	reflectTyT = reflect.TypeOf((*reflect.Type)(nil)).Elem()
)

func typeTag(rv reflect.Value) string {
	t := rv.Type()
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// identityOf returns the stable in-process identity token for kinds that
// carry one. Struct and array values copied by value have none -- Go value
// semantics mean two such variables can never actually share memory.
func identityOf(rv reflect.Value) (uintptr, bool) {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	case reflect.Slice:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}

func isPrimitive(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	case reflect.Struct:
		// The empty struct (Go's closest sentinel-singleton analog, used
		// the way Python uses None/NotImplemented/Ellipsis as markers) is
		// a primitive leaf; any struct with fields is walked field-by-field
		// as an ordered collection instead.
		return rv.NumField() == 0
	default:
		return false
	}
}

func isSet(rv reflect.Value) bool {
	return rv.IsValid() && rv.Type().Implements(setType)
}

func implementsReducer(rv reflect.Value) bool {
	return rv.IsValid() && rv.Type().Implements(reducerT)
}

func isReflectTypeValue(rv reflect.Value) bool {
	return rv.IsValid() && rv.Type().Implements(reflectTyT)
}

func bytesOf(rv reflect.Value) []byte {
	if rv.Kind() == reflect.Slice {
		return rv.Bytes()
	}
	out := make([]byte, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = byte(rv.Index(i).Uint())
	}
	return out
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func digestBytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

func digestString(s string) uint64 {
	return xxhash.Sum64String(s)
}

func digestLiteral(v any) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%T|%#v", v, v))
}

func digestChildren(children []*Node) uint64 {
	h := xxhash.New()
	for _, c := range children {
		_, _ = h.Write(uint64Bytes(c.Digest))
	}
	return h.Sum64()
}
