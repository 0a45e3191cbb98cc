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

// Package store defines the external value store collaborator:
// the persistent key-value store that holds serialized variable payloads.
// It is explicitly out of scope for the core -- the Planner only
// calls it; the durable format and transport belong to the embedding.
package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kishu-project/kishu/ahg"
)

// Store is consumed by the Planner and by the checkpoint package's retry
// driver; not implemented by the core.
type Store interface {
	// GetStoredVersionedNames returns the VersionedNames already persisted
	// under any of the given ancestor commits, for incremental-store mode.
	// Keyed by ahg.VersionedName.Key() since VersionedName itself is not
	// comparable.
	GetStoredVersionedNames(ctx context.Context, parentCommitIDs []string) (map[string]ahg.VersionedName, error)

	// Persist executes a CheckpointPlan's declaration under commitID.
	// Execution is delegated entirely to this collaborator.
	Persist(ctx context.Context, commitID string, groups []PersistGroup) error
}

// PersistGroup is one {names, version, serialized_bytes} entry of a
// CheckpointPlan, handed to the store's Persist call.
type PersistGroup struct {
	Names          []string
	Version        int64
	SerializedSize uint64
	Payload        []byte
}

// MemStore is an in-memory reference Store, used by tests and by any
// embedding without a real durable backend yet wired up.
type MemStore struct {
	byCommit map[string][]PersistGroup
	cache    *lru.Cache[string, struct{}]
}

// NewMemStore returns an empty MemStore. cacheSize bounds an internal
// golang-lru/v2 cache that Persist fills with the VersionedName keys it
// stores; nothing in MemStore reads it back, and the persisted groups
// themselves are kept per commit without a bound.
func NewMemStore(cacheSize int) *MemStore {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	c, _ := lru.New[string, struct{}](cacheSize)
	return &MemStore{byCommit: map[string][]PersistGroup{}, cache: c}
}

func (m *MemStore) GetStoredVersionedNames(_ context.Context, parentCommitIDs []string) (map[string]ahg.VersionedName, error) {
	out := map[string]ahg.VersionedName{}
	for _, commit := range parentCommitIDs {
		for _, g := range m.byCommit[commit] {
			vn := ahg.VersionedName{Names: append([]string(nil), g.Names...), Version: g.Version}
			out[vn.Key()] = vn
		}
	}
	return out, nil
}

func (m *MemStore) Persist(_ context.Context, commitID string, groups []PersistGroup) error {
	m.byCommit[commitID] = append(m.byCommit[commitID], groups...)
	for _, g := range groups {
		vn := ahg.VersionedName{Names: append([]string(nil), g.Names...), Version: g.Version}
		m.cache.Add(vn.Key(), struct{}{})
	}
	return nil
}
