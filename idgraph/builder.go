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
	"fmt"
	"reflect"
	"runtime"
	"sort"

	"github.com/google/btree"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kishu-project/kishu/kishuerr"
)

// Reducer lets a custom object participate in fingerprinting the way
// Python's __reduce_ex__ does: it hands back a (constructor, args, state)
// triple that is itself recursively fingerprinted.
type Reducer interface {
	Reduce() (ctor string, args []any, state any)
}

// Set marks a value as an unordered collection of hashable elements.
// Members should return a stable Go slice; canonical ordering by child
// digest is applied by the builder, not by the caller.
type Set interface {
	Members() []any
}

// Builder produces a fingerprint graph for a live value. The visited map
// threaded through one Build call is local to that call, never global, so
// cycle-detection state from one value never leaks into another.
type Builder interface {
	Build(v any) (*Node, error)
}

// NewBuilder returns the default Builder. includeIdentity selects whether
// identity tokens participate in the digest: true for the default fingerprint used by structural_equal and
// overlap detection, false for the value-only fingerprint used to report
// "did this change" without flagging pure reference swaps.
func NewBuilder(includeIdentity bool) Builder {
	cache, _ := lru.New[uintptr, uint64](4096)
	return &builder{includeIdentity: includeIdentity, callableDigests: cache}
}

type builder struct {
	includeIdentity bool
	// callableDigests caches the digest of a function value by its entry
	// address: functions are immutable once compiled, so re-fingerprinting
	// the same closure pointer across many cells is pure waste.
	callableDigests *lru.Cache[uintptr, uint64]
}

type visitFrame struct {
	identity uintptr
	node     *Node
	depth    int
}

func (b *builder) Build(v any) (*Node, error) {
	visited := map[uintptr]*visitFrame{}
	return b.build(reflect.ValueOf(v), visited, 0)
}

func (b *builder) build(rv reflect.Value, visited map[uintptr]*visitFrame, depth int) (*Node, error) {
	if !rv.IsValid() {
		return b.primitive(nil), nil
	}

	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return b.primitive(nil), nil
		}
		return b.build(rv.Elem(), visited, depth)
	}

	identity, hasIdentity := identityOf(rv)
	if hasIdentity {
		if frame, ok := visited[identity]; ok {
			return &Node{
				Category:    CatBackEdge,
				TypeTag:     frame.node.TypeTag,
				HasIdentity: true,
				Identity:    identity,
				RelDepth:    depth - frame.depth,
				Digest:      b.backEdgeDigest(identity, depth-frame.depth),
			}, nil
		}
	}

	node := &Node{TypeTag: typeTag(rv), HasIdentity: hasIdentity, Identity: identity}
	frame := &visitFrame{identity: identity, node: node, depth: depth}
	if hasIdentity {
		visited[identity] = frame
	}

	switch {
	case isPrimitive(rv):
		*node = *b.primitiveNode(rv)

	case isSet(rv):
		node.Category = CatSet
		children, err := b.buildSet(rv, visited, depth)
		if err != nil {
			return nil, err
		}
		node.Children = children
		node.Digest = b.finishDigest(node, digestChildren(children))

	case rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8,
		rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		node.Category = CatBytes
		node.Digest = b.finishDigest(node, digestBytes(bytesOf(rv)))

	case rv.Kind() == reflect.Slice, rv.Kind() == reflect.Array:
		node.Category = CatOrdered
		children, err := b.buildOrdered(rv, visited, depth)
		if err != nil {
			return nil, err
		}
		node.Children = children
		node.Digest = b.finishDigest(node, digestChildren(children))

	case rv.Kind() == reflect.Map:
		node.Category = CatMap
		children, err := b.buildMap(rv, visited, depth)
		if err != nil {
			return nil, err
		}
		node.Children = children
		node.Digest = b.finishDigest(node, digestChildren(children))

	case isReflectTypeValue(rv):
		node.Category = CatType
		node.Digest = b.finishDigest(node, digestString(rv.Interface().(reflect.Type).String()))

	case rv.Kind() == reflect.Func:
		node.Category = CatCallable
		node.Digest = b.callableDigest(rv)

	case implementsReducer(rv):
		node.Category = CatReducer
		children, err := b.buildReducer(rv, visited, depth)
		if err != nil {
			return nil, err
		}
		node.Children = children
		node.Digest = b.finishDigest(node, digestChildren(children))

	case rv.Kind() == reflect.Ptr:
		if rv.IsNil() {
			node.Category = CatPrimitive
			node.Digest = b.finishDigest(node, digestString("<nil-ptr>"))
			break
		}
		inner, err := b.build(rv.Elem(), visited, depth+1)
		if err != nil {
			return nil, err
		}
		node.Category = CatOrdered
		node.Children = []*Node{inner}
		node.Digest = b.finishDigest(node, digestChildren(node.Children))

	case rv.Kind() == reflect.Struct:
		node.Category = CatOrdered
		children, err := b.buildStructFields(rv, visited, depth)
		if err != nil {
			return nil, err
		}
		node.Children = children
		node.Digest = b.finishDigest(node, digestChildren(children))

	default:
		// Opaque fallback: channels, unsafe pointers, and anything else
		// reflect can observe but this builder has no richer handling
		// for. This arm is total, so FingerprintFailure is never
		// reachable through this dispatch.
		node.Category = CatOpaque
		node.Digest = b.finishDigest(node, digestString(node.TypeTag))
	}

	if hasIdentity {
		delete(visited, identity)
	}
	return node, nil
}

func (b *builder) primitive(v any) *Node {
	n := &Node{Category: CatPrimitive, Literal: v}
	n.TypeTag = fmt.Sprintf("%T", v)
	n.Digest = digestLiteral(v)
	return n
}

func (b *builder) primitiveNode(rv reflect.Value) *Node {
	n := &Node{Category: CatPrimitive, TypeTag: typeTag(rv), Literal: rv.Interface()}
	n.Digest = digestLiteral(n.Literal)
	return n
}

func (b *builder) buildOrdered(rv reflect.Value, visited map[uintptr]*visitFrame, depth int) ([]*Node, error) {
	out := make([]*Node, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		child, err := b.build(rv.Index(i), visited, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func (b *builder) buildSet(rv reflect.Value, visited map[uintptr]*visitFrame, depth int) ([]*Node, error) {
	members := rv.Interface().(Set).Members()
	out := make([]*Node, 0, len(members))
	for _, m := range members {
		child, err := b.build(reflect.ValueOf(m), visited, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	sortByDigest(out)
	return out, nil
}

func (b *builder) buildMap(rv reflect.Value, visited map[uintptr]*visitFrame, depth int) ([]*Node, error) {
	type pair struct{ k, v *Node }
	iter := rv.MapRange()
	pairs := make([]pair, 0, rv.Len())
	for iter.Next() {
		kNode, err := b.build(iter.Key(), visited, depth+1)
		if err != nil {
			return nil, err
		}
		vNode, err := b.build(iter.Value(), visited, depth+1)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{kNode, vNode})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k.Digest < pairs[j].k.Digest })
	out := make([]*Node, 0, len(pairs)*2)
	for _, p := range pairs {
		// A synthetic CatOrdered wrapper keeps (key, value) together as a
		// single canonical-ordering unit.
		out = append(out, &Node{Category: CatOrdered, TypeTag: "mapentry", Children: []*Node{p.k, p.v}, Digest: digestChildren([]*Node{p.k, p.v})})
	}
	return out, nil
}

func (b *builder) buildReducer(rv reflect.Value, visited map[uintptr]*visitFrame, depth int) ([]*Node, error) {
	ctor, args, state := rv.Interface().(Reducer).Reduce()
	ctorNode := b.primitive(ctor)
	argsNode, err := b.build(reflect.ValueOf(args), visited, depth+1)
	if err != nil {
		return nil, err
	}
	stateNode, err := b.build(reflect.ValueOf(state), visited, depth+1)
	if err != nil {
		return nil, err
	}
	return []*Node{ctorNode, argsNode, stateNode}, nil
}

func (b *builder) buildStructFields(rv reflect.Value, visited map[uintptr]*visitFrame, depth int) ([]*Node, error) {
	t := rv.Type()
	out := make([]*Node, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fv := rv.Field(i)
		if !fv.CanInterface() {
			// Unexported field: best effort, still walked via unsafe-free
			// reflection is not possible, so it degrades to an opaque
			// marker keyed by field name rather than being skipped
			// silently.
			out = append(out, &Node{Category: CatOpaque, TypeTag: t.Field(i).Name, Digest: digestString(t.Field(i).Name)})
			continue
		}
		child, err := b.build(fv, visited, depth+1)
		if err != nil {
			return nil, kishuerr.Wrapf(err, "field %s", t.Field(i).Name)
		}
		out = append(out, child)
	}
	return out, nil
}

func (b *builder) callableDigest(rv reflect.Value) uint64 {
	entry := rv.Pointer()
	if d, ok := b.callableDigests.Get(entry); ok {
		return d
	}
	name := runtime.FuncForPC(entry)
	qualified := "<anonymous>"
	if name != nil {
		qualified = name.Name()
	}
	var d uint64
	if b.includeIdentity {
		d = digestBytes(append([]byte(qualified), uint64Bytes(uint64(entry))...))
	} else {
		d = digestString(qualified)
	}
	b.callableDigests.Add(entry, d)
	return d
}

func (b *builder) finishDigest(n *Node, contentDigest uint64) uint64 {
	mix := []byte(n.Category.String() + "|" + n.TypeTag + "|")
	mix = append(mix, uint64Bytes(contentDigest)...)
	if b.includeIdentity && n.HasIdentity {
		mix = append(mix, uint64Bytes(uint64(n.Identity))...)
	}
	return digestBytes(mix)
}

func (b *builder) backEdgeDigest(identity uintptr, relDepth int) uint64 {
	mix := []byte("backedge|")
	if b.includeIdentity {
		mix = append(mix, uint64Bytes(uint64(identity))...)
	} else {
		mix = append(mix, uint64Bytes(uint64(relDepth))...)
	}
	return digestBytes(mix)
}

// digestSeq pairs a Node with its pre-sort position so nodes sharing a
// digest (hash collision, or two structurally-equal members of a Set) keep
// a stable relative order in the btree rather than colliding as "equal"
// items and being dropped.
type digestSeq struct {
	node *Node
	seq  int
}

// sortByDigest canonically orders set children by content digest, via a
// btree.BTreeG that keeps equal-digest members apart by seq. Map pairs are
// ordered separately, by key digest with sort.Slice in buildMap.
func sortByDigest(nodes []*Node) {
	tree := btree.NewG(32, func(a, b digestSeq) bool {
		if a.node.Digest != b.node.Digest {
			return a.node.Digest < b.node.Digest
		}
		return a.seq < b.seq
	})
	for i, n := range nodes {
		tree.ReplaceOrInsert(digestSeq{node: n, seq: i})
	}
	i := 0
	tree.Ascend(func(item digestSeq) bool {
		nodes[i] = item.node
		i++
		return true
	})
}
