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

// IsSerializable reports whether n's subtree contains nothing the store
// refuses to persist. CatCallable and CatOpaque leaves
// are the two categories with no portable payload; everything else
// bottoms out in primitives, bytes, or a reducer triple that can be
// serialized.
func IsSerializable(n *Node) bool {
	if n == nil {
		return true
	}
	if n.Category == CatCallable || n.Category == CatOpaque {
		return false
	}
	for _, c := range n.Children {
		if !IsSerializable(c) {
			return false
		}
	}
	return true
}
