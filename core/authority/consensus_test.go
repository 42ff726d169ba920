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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/types"
	"github.com/sunyihoo/authstore/kvdb"
	"github.com/sunyihoo/authstore/kvdb/memorydb"
)

// sharedFixture is a store holding one shared counter at version 5 and one gas
// coin per certificate touching it.
type sharedFixture struct {
	store   *Store
	counter *types.Object
	certs   []*types.Certificate
}

func newSharedFixture(t *testing.T, n int) *sharedFixture {
	t.Helper()

	counter := testObject(0xc0, 5, types.Shared)
	genesis := []*types.Object{counter}
	var certs []*types.Certificate
	for i := 0; i < n; i++ {
		gas := testObject(byte(i+1), 1, alice)
		genesis = append(genesis, gas)
		certs = append(certs, newCert(gas, sharedArg(counter)))
	}
	return &sharedFixture{store: newTestStore(t, genesis...), counter: counter, certs: certs}
}

func deliver(t *testing.T, h *ConsensusHandler, outs ...types.ConsensusOutput) []*ConsensusResult {
	t.Helper()

	results := make([]*ConsensusResult, len(outs))
	for i, out := range outs {
		res, err := h.HandleConsensusCertificate(context.Background(), out)
		require.NoError(t, err, "index %d", out.Index)
		results[i] = res
	}
	return results
}

func TestConsensusAssignsInOrder(t *testing.T) {
	f := newSharedFixture(t, 3)
	h := f.store.Consensus()
	assert.Equal(t, uint64(1), h.ExpectedNextIndex())

	results := deliver(t, h, consensusFeed(1, f.certs...)...)
	for i, res := range results {
		assert.Equal(t, types.Version(5+i), res.Assigned[f.counter.ID], "certificate %d", i)
		assert.Equal(t, uint64(i), res.PendingSequence)
	}
	epoch := f.store.Epoch()
	next, ok, err := epoch.GetNextObjectVersion(f.counter.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Version(8), next)

	versions, err := epoch.GetAssignedVersions(f.certs[1].Digest())
	require.NoError(t, err)
	assert.Equal(t, map[types.ObjectID]types.Version{f.counter.ID: 6}, versions)

	pending, err := epoch.PendingCertificates()
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for i, entry := range pending {
		assert.Equal(t, f.certs[i].Digest(), entry.Digest)
	}
	last, err := epoch.LastConsensusIndex()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), last.Index)
	assert.Equal(t, h.LastIndex(), last)

	for _, cert := range f.certs {
		stored, err := f.store.Perpetual().GetCertificate(cert.Digest())
		require.NoError(t, err)
		assert.NotNil(t, stored)
	}
}

// A redelivered index is discarded: the counter moves once per certificate.
func TestConsensusRedelivery(t *testing.T) {
	f := newSharedFixture(t, 5)
	h := f.store.Consensus()
	feed := consensusFeed(1, f.certs...)

	results := deliver(t, h, feed...)
	assigned := results[4].Assigned[f.counter.ID]
	assert.Equal(t, types.Version(9), assigned)
	before := h.LastIndex()

	for _, out := range []types.ConsensusOutput{feed[4], feed[2], feed[0]} {
		res, err := h.HandleConsensusCertificate(context.Background(), out)
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
		assert.Nil(t, res.Assigned)
	}
	epoch := f.store.Epoch()
	v, ok, err := epoch.GetAssignedVersion(f.certs[4].Digest(), f.counter.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, assigned, v)

	next, _, err := epoch.GetNextObjectVersion(f.counter.ID)
	require.NoError(t, err)
	assert.Equal(t, assigned.Increment(), next)
	assert.Equal(t, before, h.LastIndex())

	pending, err := epoch.PendingCertificates()
	require.NoError(t, err)
	assert.Len(t, pending, 5)
}

// A certificate sequenced again at a later index keeps its first assignment.
func TestConsensusAlreadyProcessed(t *testing.T) {
	f := newSharedFixture(t, 1)
	h := f.store.Consensus()
	cert := f.certs[0]

	deliver(t, h, consensusFeed(1, cert)...)
	again := types.ConsensusOutput{Index: 2, Certificate: cert, Hash: common.BytesToDigest([]byte{0xee})}
	res, err := h.HandleConsensusCertificate(context.Background(), again)
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.Empty(t, res.Assigned)
	assert.Equal(t, uint64(2), h.LastIndex().Index)

	next, _, err := f.store.Epoch().GetNextObjectVersion(f.counter.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Version(6), next)
}

func TestConsensusIndexErrors(t *testing.T) {
	f := newSharedFixture(t, 3)
	h := f.store.Consensus()
	feed := consensusFeed(1, f.certs...)
	deliver(t, h, feed[0])

	t.Run("gap", func(t *testing.T) {
		_, err := h.HandleConsensusCertificate(context.Background(), feed[2])
		var idxErr *ConsensusIndexError
		require.ErrorAs(t, err, &idxErr)
		assert.Equal(t, uint64(2), idxErr.Expected)
		assert.Equal(t, uint64(3), idxErr.Got)
		assert.False(t, idxErr.Conflict)
		assert.ErrorIs(t, err, ErrConsensusIndexMismatch)
	})
	t.Run("conflict", func(t *testing.T) {
		forged := feed[0]
		forged.Hash = common.BytesToDigest([]byte{0xff})
		_, err := h.HandleConsensusCertificate(context.Background(), forged)
		var idxErr *ConsensusIndexError
		require.ErrorAs(t, err, &idxErr)
		assert.True(t, idxErr.Conflict)
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := h.HandleConsensusCertificate(ctx, feed[1])
		assert.ErrorIs(t, err, context.Canceled)
	})
	assert.Equal(t, uint64(1), h.LastIndex().Index)

	// The feed continues where it stopped.
	deliver(t, h, feed[1:]...)
	assert.Equal(t, uint64(3), h.LastIndex().Index)
}

// An invalid certificate advances the index but leaves no other trace.
func TestConsensusRejectsInvalid(t *testing.T) {
	var (
		gas  = testObject(1, 1, alice)
		coin = testObject(2, 1, alice)
		s    = newTestStore(t, gas, coin)
		h    = s.Consensus()
		bad  = newCert(gas, ownedArg(coin), types.ObjVec(types.NewOwnedArg(coin.Ref())))
	)
	res := deliver(t, h, consensusFeed(1, bad)...)[0]
	assert.ErrorIs(t, res.Rejected, types.ErrDuplicateObjectRefInput)
	assert.Equal(t, uint64(1), h.LastIndex().Index)

	cert, err := s.Perpetual().GetCertificate(bad.Digest())
	require.NoError(t, err)
	assert.Nil(t, cert)
	processed, err := s.Epoch().IsConsensusMessageProcessed(bad.Digest())
	require.NoError(t, err)
	assert.False(t, processed)
	pending, err := s.Epoch().PendingCertificates()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestConsensusUnknownSharedObject(t *testing.T) {
	gas := testObject(1, 1, alice)
	s := newTestStore(t, gas)
	h := s.Consensus()

	cert := newCert(gas, sharedArg(testObject(0xc0, 1, types.Shared)))
	_, err := h.HandleConsensusCertificate(context.Background(), consensusFeed(1, cert)[0])
	assert.ErrorIs(t, err, ErrSharedObjectNotFound)
	assert.Equal(t, uint64(0), h.LastIndex().Index)

	// Nothing of the halted message is stored.
	stored, err := s.Perpetual().GetCertificate(cert.Digest())
	require.NoError(t, err)
	assert.Nil(t, stored)
	pending, err := s.Epoch().PendingCertificates()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// Replaying the same feed into fresh stores yields identical assignments and
// resume points.
func TestConsensusDeterministic(t *testing.T) {
	var runs [2][]*ConsensusResult
	var last [2]types.ExecutionIndicesWithHash
	for i := range runs {
		f := newSharedFixture(t, 4)
		runs[i] = deliver(t, f.store.Consensus(), consensusFeed(1, f.certs...)...)
		last[i] = f.store.Consensus().LastIndex()
	}
	for i := range runs[0] {
		assert.Equal(t, runs[0][i].Assigned, runs[1][i].Assigned)
	}
	assert.Equal(t, last[0], last[1])
	assert.NotZero(t, last[0].Hash)
}

// The resume point and counters survive reopening the epoch database.
func TestConsensusResume(t *testing.T) {
	f := newSharedFixture(t, 3)
	db := memorydb.New()
	es, err := NewEpochStore(db, 0, false)
	require.NoError(t, err)
	h, err := NewConsensusHandler(f.store.Perpetual(), es)
	require.NoError(t, err)

	feed := consensusFeed(1, f.certs...)
	deliver(t, h, feed[:2]...)

	es, err = NewEpochStore(db, 0, false)
	require.NoError(t, err)
	h, err = NewConsensusHandler(f.store.Perpetual(), es)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), h.ExpectedNextIndex())

	res := deliver(t, h, feed[1:]...)
	assert.True(t, res[0].Duplicate)
	assert.Equal(t, types.Version(7), res[1].Assigned[f.counter.ID])
	assert.Equal(t, uint64(2), res[1].PendingSequence)

	_, err = NewEpochStore(db, 1, false)
	assert.ErrorIs(t, err, ErrEpochMismatch)
}

var errCrash = errors.New("simulated crash")

// crashingDB fails every batch write while crash is set. Puts are counted so
// a test can tell the batch was fully staged before it failed.
type crashingDB struct {
	kvdb.KeyValueStore
	crash  bool
	staged int
}

type crashingBatch struct {
	kvdb.HookedBatch
}

func (b crashingBatch) Write() error { return errCrash }

func (db *crashingDB) NewBatch() kvdb.Batch {
	batch := db.KeyValueStore.NewBatch()
	if !db.crash {
		return batch
	}
	return crashingBatch{kvdb.HookedBatch{
		Batch: batch,
		OnPut: func(key []byte, value []byte) { db.staged++ },
	}}
}

func (db *crashingDB) NewBatchWithSize(size int) kvdb.Batch { return db.NewBatch() }

// A crash while committing the assignment batch leaves the epoch as if the
// message never arrived; redelivery after restart assigns the same versions.
func TestConsensusCrashRecovery(t *testing.T) {
	f := newSharedFixture(t, 2)
	db := &crashingDB{KeyValueStore: memorydb.New()}
	es, err := NewEpochStore(db, 0, false)
	require.NoError(t, err)
	h, err := NewConsensusHandler(f.store.Perpetual(), es)
	require.NoError(t, err)

	feed := consensusFeed(1, f.certs...)
	deliver(t, h, feed[0])

	db.crash = true
	_, err = h.HandleConsensusCertificate(context.Background(), feed[1])
	assert.ErrorIs(t, err, ErrStorageIO)
	assert.ErrorIs(t, err, errCrash)
	assert.NotZero(t, db.staged)

	// Nothing of the failed message is visible.
	_, ok, err := es.GetAssignedVersion(f.certs[1].Digest(), f.counter.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	next, _, err := es.GetNextObjectVersion(f.counter.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Version(6), next)
	processed, err := es.IsConsensusMessageProcessed(f.certs[1].Digest())
	require.NoError(t, err)
	assert.False(t, processed)
	last, err := es.LastConsensusIndex()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), last.Index)

	// Restart and redeliver.
	db.crash = false
	es, err = NewEpochStore(db, 0, false)
	require.NoError(t, err)
	h, err = NewConsensusHandler(f.store.Perpetual(), es)
	require.NoError(t, err)
	res := deliver(t, h, feed[1])[0]
	assert.Equal(t, types.Version(6), res.Assigned[f.counter.ID])

	pending, err := es.PendingCertificates()
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
