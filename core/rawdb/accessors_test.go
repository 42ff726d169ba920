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

package rawdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/types"
	"github.com/sunyihoo/authstore/kvdb"
	"github.com/sunyihoo/authstore/kvdb/memorydb"
)

func testID(b byte) types.ObjectID { return common.BytesToAddress([]byte{b}) }

func testObject(id byte, version types.Version, owner types.Owner) *types.Object {
	return &types.Object{
		ID:       testID(id),
		Version:  version,
		Owner:    owner,
		Type:     "0x2::coin::Coin",
		Contents: []byte{id, byte(version)},
	}
}

func TestObjectAccessors(t *testing.T) {
	db := memorydb.New()
	alice := types.NewAddressOwner(common.BytesToAddress([]byte{0xa1}))

	for v := types.Version(1); v <= 3; v++ {
		require.NoError(t, WriteObject(db, testObject(1, v, alice)))
	}
	require.NoError(t, WriteObject(db, testObject(2, 7, alice)))

	obj, err := ReadObject(db, types.ObjectKey{ID: testID(1), Version: 2})
	require.NoError(t, err)
	assert.Equal(t, types.Version(2), obj.Version)

	_, err = ReadObject(db, types.ObjectKey{ID: testID(1), Version: 9})
	assert.ErrorIs(t, err, kvdb.ErrNotFound)

	versions, err := ReadObjectVersions(db, testID(1))
	require.NoError(t, err)
	assert.Equal(t, []types.Version{1, 2, 3}, versions)

	latest, err := ReadLatestObject(db, testID(1))
	require.NoError(t, err)
	assert.Equal(t, types.Version(3), latest.Version)

	_, err = ReadLatestObject(db, testID(3))
	assert.ErrorIs(t, err, kvdb.ErrNotFound)

	require.NoError(t, DeleteObject(db, types.ObjectKey{ID: testID(1), Version: 1}))
	ok, err := HasObject(db, types.ObjectKey{ID: testID(1), Version: 1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOwnerIndexAccessors(t *testing.T) {
	db := memorydb.New()
	alice := types.NewAddressOwner(common.BytesToAddress([]byte{0xa1}))
	bob := types.NewAddressOwner(common.BytesToAddress([]byte{0xb0}))

	for _, obj := range []*types.Object{testObject(3, 1, alice), testObject(1, 1, alice), testObject(2, 1, bob)} {
		info := obj.Info()
		require.NoError(t, WriteOwnerIndex(db, &info))
	}
	owned, err := ReadOwnedObjects(db, alice)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, testID(1), owned[0].Ref.ID)
	assert.Equal(t, testID(3), owned[1].Ref.ID)

	require.NoError(t, DeleteOwnerIndex(db, alice, testID(1)))
	owned, err = ReadOwnedObjects(db, alice)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestParentSyncAccessors(t *testing.T) {
	db := memorydb.New()
	var (
		tx1 = common.BytesToDigest([]byte{0x01})
		tx2 = common.BytesToDigest([]byte{0x02})
		v1  = types.ObjectRef{ID: testID(1), Version: 1, Digest: common.BytesToDigest([]byte{0xaa})}
		v2  = types.ObjectRef{ID: testID(1), Version: 2, Digest: common.BytesToDigest([]byte{0xbb})}
	)
	require.NoError(t, WriteParentSync(db, v1, tx1))
	require.NoError(t, WriteParentSync(db, v2, tx2))
	require.NoError(t, WriteParentSync(db, types.DeletedRef(v2.Key()), tx2))
	require.NoError(t, WriteParentSync(db, types.ObjectRef{ID: testID(2), Version: 1}, tx1))

	tx, err := ReadParentSync(db, v1)
	require.NoError(t, err)
	assert.Equal(t, tx1, tx)

	entries, err := ReadParentEntries(db, testID(1))
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	latest, err := ReadLatestParentEntry(db, testID(1))
	require.NoError(t, err)
	assert.Equal(t, types.Version(3), latest.Ref.Version)
	assert.False(t, latest.Ref.IsAlive())

	next, err := ReadNextParentEntry(db, testID(1), 1)
	require.NoError(t, err)
	assert.Equal(t, v2, next.Ref)
	assert.Equal(t, tx2, next.Transaction)

	_, err = ReadNextParentEntry(db, testID(1), 3)
	assert.ErrorIs(t, err, kvdb.ErrNotFound)

	_, err = ReadLatestParentEntry(db, testID(9))
	assert.ErrorIs(t, err, kvdb.ErrNotFound)
}

func TestExecutedSequenceAccessors(t *testing.T) {
	db := memorydb.New()

	next, err := ReadNextExecutedSequence(db)
	require.NoError(t, err)
	assert.Zero(t, next)

	for seq := uint64(0); seq < 5; seq++ {
		digests := types.ExecutionDigests{Transaction: common.BytesToDigest([]byte{byte(seq)})}
		require.NoError(t, WriteExecutedSequence(db, seq, digests))
	}
	next, err = ReadNextExecutedSequence(db)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), next)

	items, err := ReadExecutedSequenceRange(db, 1, 3)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, uint64(1), items[0].Sequence)
	assert.Equal(t, uint64(2), items[1].Sequence)

	row, err := ReadExecutedSequence(db, 4)
	require.NoError(t, err)
	assert.Equal(t, common.BytesToDigest([]byte{4}), row.Transaction)
}

func TestBatchAccessors(t *testing.T) {
	db := memorydb.New()

	_, err := ReadLastBatch(db)
	assert.ErrorIs(t, err, kvdb.ErrNotFound)

	genesis := types.GenesisBatch()
	first := types.NewAuthorityBatch(&genesis, []types.SequencedDigests{{Sequence: 0}, {Sequence: 1}})
	second := types.NewAuthorityBatch(&first, []types.SequencedDigests{{Sequence: 2}})

	for _, b := range []types.AuthorityBatch{genesis, first, second} {
		require.NoError(t, WriteBatch(db, &types.SignedBatch{Batch: b}))
	}
	last, err := ReadLastBatch(db)
	require.NoError(t, err)
	assert.Equal(t, second.Digest(), last.Batch.Digest())

	batches, err := ReadBatches(db, 1, 3)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, first.Digest(), batches[0].Batch.Digest())
}

func TestEpochAccessors(t *testing.T) {
	db := memorydb.New()
	cert := common.BytesToDigest([]byte{0xc0})

	require.NoError(t, WritePendingExecution(db, 4, cert))
	require.NoError(t, WritePendingExecution(db, 2, common.BytesToDigest([]byte{0xc1})))
	pending, err := ReadPendingExecutions(db)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, uint64(2), pending[0].Sequence)
	assert.Equal(t, cert, pending[1].Digest)

	next, err := ReadNextPendingSequence(db)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), next)

	require.NoError(t, DeletePendingExecution(db, 4))
	pending, err = ReadPendingExecutions(db)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, WriteAssignedVersion(db, cert, testID(1), 3))
	require.NoError(t, WriteAssignedVersion(db, cert, testID(2), 8))
	v, err := ReadAssignedVersion(db, cert, testID(2))
	require.NoError(t, err)
	assert.Equal(t, types.Version(8), v)
	all, err := ReadAssignedVersions(db, cert)
	require.NoError(t, err)
	assert.Equal(t, map[types.ObjectID]types.Version{testID(1): 3, testID(2): 8}, all)

	_, err = ReadNextVersion(db, testID(1))
	assert.ErrorIs(t, err, kvdb.ErrNotFound)
	require.NoError(t, WriteNextVersion(db, testID(1), 4))
	v, err = ReadNextVersion(db, testID(1))
	require.NoError(t, err)
	assert.Equal(t, types.Version(4), v)

	processed, err := IsConsensusProcessed(db, cert)
	require.NoError(t, err)
	assert.False(t, processed)
	require.NoError(t, WriteConsensusProcessed(db, cert))
	processed, err = IsConsensusProcessed(db, cert)
	require.NoError(t, err)
	assert.True(t, processed)

	_, err = ReadLastConsensusIndex(db)
	assert.ErrorIs(t, err, kvdb.ErrNotFound)
	idx := types.ExecutionIndicesWithHash{}.Next(1, common.BytesToDigest([]byte{0x01}), cert)
	require.NoError(t, WriteLastConsensusIndex(db, idx))
	got, err := ReadLastConsensusIndex(db)
	require.NoError(t, err)
	assert.Equal(t, idx, *got)
}

func TestTransactionLockAccessors(t *testing.T) {
	db := memorydb.New()
	tx := &types.Transaction{
		Data: types.TransactionData{
			Sender:    common.BytesToAddress([]byte{0xa1}),
			Module:    "coin",
			Function:  "transfer",
			Gas:       types.ObjectRef{ID: testID(1), Version: 1},
			GasBudget: 1000,
		},
		Signature: []byte{1, 2, 3},
	}
	require.NoError(t, WriteTransactionLock(db, tx))
	got, err := ReadTransactionLock(db, tx.Digest())
	require.NoError(t, err)
	assert.Equal(t, tx.Digest(), got.Digest())
	assert.Equal(t, tx.Signature, got.Signature)
}

func TestMetadataAccessors(t *testing.T) {
	db := memorydb.New()
	assert.Nil(t, ReadStoreVersion(db))
	assert.Nil(t, ReadEpochNumber(db))

	WriteStoreVersion(db, StoreVersion)
	WriteEpochNumber(db, 7)
	require.NotNil(t, ReadStoreVersion(db))
	assert.Equal(t, uint64(StoreVersion), *ReadStoreVersion(db))
	assert.Equal(t, uint64(7), *ReadEpochNumber(db))

	meta := ReadStoreMetadata(db)
	assert.Equal(t, []string{"storeVersion", "1 (0x1)"}, meta[0])
	assert.Equal(t, []string{"epoch", "7 (0x7)"}, meta[1])
}
