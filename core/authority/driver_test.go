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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/authstore/core/types"
)

// Independent certificates run in parallel and still get a gapless sequence.
func TestDriverParallel(t *testing.T) {
	var (
		genesis []*types.Object
		certs   []*types.Certificate
	)
	for i := byte(1); i <= 16; i++ {
		gas := testObject(i, 1, alice)
		genesis = append(genesis, gas)
		certs = append(certs, newCert(gas))
	}
	s := newTestStore(t, genesis...)
	for _, cert := range certs {
		require.NoError(t, s.HandleCertificate(cert))
	}
	exec := new(testExecutor)
	stats, err := NewExecutionDriver(s, exec, 4).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DriverStats{Executed: 16}, stats)
	assert.Equal(t, int64(16), exec.calls.Load())

	items, err := s.Perpetual().ExecutedSequenceRange(0, 100)
	require.NoError(t, err)
	require.Len(t, items, 16)
	seen := make(map[[32]byte]bool)
	for i, item := range items {
		assert.Equal(t, uint64(i), item.Sequence)
		seen[item.Digests.Transaction] = true
	}
	assert.Len(t, seen, 16)

	pending, err := s.Epoch().PendingCertificates()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// A certificate whose input is produced by a later queue entry stays pending
// until a following pass.
func TestDriverDefers(t *testing.T) {
	gas := testObject(1, 1, alice)
	s := newTestStore(t, gas)

	first := newCert(gas)
	second := newCert(mutate(gas, first.Digest()))
	require.NoError(t, s.HandleCertificate(second))
	require.NoError(t, s.HandleCertificate(first))

	driver := NewExecutionDriver(s, new(testExecutor), 1)
	stats, err := driver.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DriverStats{Executed: 1, Deferred: 1}, stats)

	stats, err = driver.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DriverStats{Executed: 1}, stats)

	latest, err := s.Perpetual().GetLatestObject(gas.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Version(3), latest.Version)
}

// Consensus certificates execute in the order their versions were assigned.
func TestDriverSharedObjects(t *testing.T) {
	f := newSharedFixture(t, 3)
	s := f.store
	deliver(t, s.Consensus(), consensusFeed(1, f.certs...)...)

	// An entry whose effects already exist is only cleared.
	_, err := s.ExecuteCertificate(context.Background(), new(testExecutor), f.certs[0])
	require.NoError(t, err)

	stats, err := NewExecutionDriver(s, new(testExecutor), 1).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DriverStats{Executed: 2, AlreadyExecuted: 1}, stats)

	latest, err := s.Perpetual().GetLatestObject(f.counter.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Version(8), latest.Version)
	pending, err := s.Epoch().PendingCertificates()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

type failingExecutor struct{}

var errEngine = errors.New("engine failure")

func (failingExecutor) Execute(context.Context, *types.Certificate, []*types.Object) (*ExecutionOutput, error) {
	return nil, errEngine
}

func TestDriverRun(t *testing.T) {
	gas := testObject(1, 1, alice)
	s := newTestStore(t, gas)
	require.NoError(t, s.HandleCertificate(newCert(gas)))

	err := NewExecutionDriver(s, failingExecutor{}, 2).Run(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, errEngine)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = NewExecutionDriver(s, new(testExecutor), 2).Run(ctx, time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	pending, err := s.Epoch().PendingCertificates()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDriverWorkers(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, DefaultConfig.ExecutionWorkers, NewExecutionDriver(s, new(testExecutor), 0).workers)
	assert.Equal(t, 2, NewExecutionDriver(s, new(testExecutor), 2).workers)

	s.config.ExecutionWorkers = 0
	assert.Equal(t, 1, NewExecutionDriver(s, new(testExecutor), 0).workers)
}
