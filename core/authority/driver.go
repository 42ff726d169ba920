// Copyright 2025 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package authority

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/sunyihoo/authstore/core/types"
	"golang.org/x/sync/errgroup"
)

// Executor runs a certificate over its resolved inputs. Execution must be a
// deterministic function of the certificate and the inputs.
type Executor interface {
	Execute(ctx context.Context, cert *types.Certificate, inputs []*types.Object) (*ExecutionOutput, error)
}

// ExecutionOutput is what an Executor produces: the effects and every object
// version they list as written.
type ExecutionOutput struct {
	Effects *types.SignedEffects
	Objects []*types.Object
}

// DriverStats counts the outcome of one pass over the pending queue.
type DriverStats struct {
	Executed        int // committed by this pass
	AlreadyExecuted int // effects existed, entry cleared
	Deferred        int // inputs not available yet, left pending
}

// ExecutionDriver drains the pending-execution queue of the active epoch,
// executing independent certificates in parallel on a bounded worker pool.
// Commits serialize in the perpetual store.
//
// ExecutionDriver 在有界工作池上并行执行待执行队列中的证书。
type ExecutionDriver struct {
	store   *Store
	exec    Executor
	workers int
	log     log.Logger
}

// NewExecutionDriver creates a driver running at most workers executions at
// once. A zero count takes Config.ExecutionWorkers of the store.
func NewExecutionDriver(store *Store, exec Executor, workers int) *ExecutionDriver {
	if workers <= 0 {
		workers = store.config.ExecutionWorkers
	}
	if workers < 1 {
		workers = 1
	}
	return &ExecutionDriver{store: store, exec: exec, workers: workers, log: log.New("task", "execution")}
}

// RunOnce makes one pass over the pending queue. Certificates whose inputs
// are missing or whose shared versions are not assigned yet stay queued for a
// later pass. Any other failure aborts the pass.
func (d *ExecutionDriver) RunOnce(ctx context.Context) (DriverStats, error) {
	pending, err := d.store.Epoch().PendingCertificates()
	if err != nil {
		return DriverStats{}, err
	}
	var executed, already, deferred atomic.Int64

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(d.workers)
	for _, entry := range pending {
		entry := entry
		group.Go(func() error {
			cert, err := d.store.Perpetual().GetCertificate(entry.Digest)
			if err != nil {
				return err
			}
			if cert == nil {
				d.log.Warn("Pending certificate missing", "seq", entry.Sequence, "digest", entry.Digest)
				deferred.Add(1)
				return nil
			}
			res, err := d.store.ExecuteCertificate(gctx, d.exec, cert, entry.Sequence)
			switch {
			case errors.Is(err, ErrObjectNotFound), errors.Is(err, ErrVersionNotAssigned):
				d.log.Trace("Deferring certificate", "digest", entry.Digest, "reason", err)
				driverDeferredMeter.Mark(1)
				deferred.Add(1)
				return nil
			case err != nil:
				return err
			case res.Applied:
				executed.Add(1)
			default:
				already.Add(1)
			}
			return nil
		})
	}
	err = group.Wait()
	stats := DriverStats{Executed: int(executed.Load()), AlreadyExecuted: int(already.Load()), Deferred: int(deferred.Load())}
	if len(pending) > 0 {
		d.log.Debug("Drained pending queue", "pending", len(pending), "executed", stats.Executed, "cached", stats.AlreadyExecuted, "deferred", stats.Deferred)
	}
	return stats, err
}

// Run drains the queue every interval until ctx is cancelled or a pass fails.
func (d *ExecutionDriver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := d.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
