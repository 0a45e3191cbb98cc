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

package checkpoint

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kishu-project/kishu/kishuerr"
	"github.com/kishu-project/kishu/kishulog"
	"github.com/kishu-project/kishu/store"
	"go.uber.org/zap"
)

// Persister is the subset of store.Store the driver calls; kept narrow so
// tests can stub it without constructing a full Store.
type Persister interface {
	Persist(ctx context.Context, commitID string, groups []store.PersistGroup) error
}

// Driver retries CheckpointPlan execution against the external store with
// exponential backoff (cenkalti/backoff/v4's ExponentialBackOff). This is
// glue around the external store, not a reimplementation of persistence.
type Driver struct {
	st    Persister
	newBO func() backoff.BackOff
}

// NewDriver returns a Driver with a default exponential backoff policy
// (500ms initial interval, up to 30s, giving up after 5 retries, i.e. 6
// attempts in all).
func NewDriver(st Persister) *Driver {
	return &Driver{st: st, newBO: defaultBackOff}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	return backoff.WithMaxRetries(b, 5)
}

// Execute persists plan under commitID, retrying transient store failures.
func (d *Driver) Execute(ctx context.Context, plan CheckpointPlan, commitID string) error {
	if len(plan.Groups) == 0 {
		return nil
	}
	groups := make([]store.PersistGroup, len(plan.Groups))
	for i, g := range plan.Groups {
		groups[i] = store.PersistGroup{Names: g.Names, Version: g.Version, SerializedSize: g.SerializedBytes}
	}

	logger := kishulog.L()
	op := func() error {
		err := d.st.Persist(ctx, commitID, groups)
		if err != nil {
			logger.Warn("checkpoint: persist attempt failed", zap.String("commit_id", commitID), zap.Error(err))
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(d.newBO(), ctx)); err != nil {
		return kishuerr.Wrapf(kishuerr.ErrStoreUnavailable, "persist commit %s: %v", commitID, err)
	}
	logger.Info("checkpoint: persisted", zap.String("commit_id", commitID), zap.Int("groups", len(groups)))
	return nil
}
